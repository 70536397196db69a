/*
Package jsonfile provides a JSON-file backed implementation of booking.Store.

PURPOSE:
  The V1 storage backend. Three independent files in one directory:

    clubs.json         {"clubs": [{"name", "email", "points"}]}
    competitions.json  {"competitions": [{"name", "date", "numberOfPlaces"}]}
    bookings.json      {"<club>": {"<competition>": <places>}}

  Numeric club and competition fields are written as strings, as in the
  files the application was provisioned with. Reads accept either strings
  or JSON numbers.

  bookings.json written by earlier versions uses flat "<club>_<competition>"
  keys. Those entries are still read, and an entry moves under its club
  the next time that pair is incremented. New writes never produce flat
  keys, since "A" in "B_C" and "A_B" in "C" would share one.

WRITES:
  Every save replaces the whole file: the new content goes to a temp file
  in the same directory which is fsynced and renamed over the target.
  Readers never observe a half-written collection.

FAIL-SOFT READS:
  A missing file, invalid JSON, or a numeric field that is not an integer
  makes the whole collection load as empty, with an error wrapping
  booking.ErrStorageUnavailable. A missing bookings.json is simply an
  empty ledger.

TRANSACTIONS:
  WithTx holds the store lock, snapshots the raw bytes of all three files,
  and writes the snapshot back if fn fails. Single process only.

SEE ALSO:
  - booking/store.go: Interface definitions
  - store/sqlite: Transactional backend
*/
package jsonfile

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/warp/places-engine/booking"
)

const (
	ClubsFile        = "clubs.json"
	CompetitionsFile = "competitions.json"
	BookingsFile     = "bookings.json"
)

// Store implements booking.Store over JSON files.
type Store struct {
	dir string
	mu  sync.RWMutex
}

// New creates a store rooted at dir, creating the directory if needed.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Open creates a store over an existing directory. Use it for sources that
// must already hold data, such as a seed directory.
func Open(dir string) (*Store, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to open data directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("failed to open data directory: %s is not a directory", dir)
	}
	return &Store{dir: dir}, nil
}

func (s *Store) path(name string) string {
	return filepath.Join(s.dir, name)
}

// =============================================================================
// FILE FORMATS
// =============================================================================

type clubsFile struct {
	Clubs []clubRecord `json:"clubs"`
}

type clubRecord struct {
	Name   string  `json:"name"`
	Email  string  `json:"email"`
	Points textInt `json:"points"`
}

type competitionsFile struct {
	Competitions []competitionRecord `json:"competitions"`
}

type competitionRecord struct {
	Name           string  `json:"name"`
	Date           string  `json:"date"`
	NumberOfPlaces textInt `json:"numberOfPlaces"`
}

// textInt is an integer stored as a JSON string. Decoding also accepts a
// bare JSON number.
type textInt int

func (n textInt) MarshalJSON() ([]byte, error) {
	return json.Marshal(strconv.Itoa(int(n)))
}

func (n *textInt) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(data))
	if unquoted, err := strconv.Unquote(raw); err == nil {
		raw = strings.TrimSpace(unquoted)
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fmt.Errorf("not an integer: %s", data)
	}
	*n = textInt(v)
	return nil
}

// ledger is the content of bookings.json.
type ledger struct {
	pairs  map[string]map[string]int
	legacy map[string]int // flat "<club>_<competition>" entries
}

func newLedger() *ledger {
	return &ledger{pairs: map[string]map[string]int{}, legacy: map[string]int{}}
}

func legacyKey(club, competition string) string {
	return club + "_" + competition
}

func (l *ledger) get(club, competition string) int {
	if n, ok := l.pairs[club][competition]; ok {
		return n
	}
	return l.legacy[legacyKey(club, competition)]
}

// add increments a pair and returns its new total. A flat entry for the
// pair is folded into the nested one.
func (l *ledger) add(club, competition string, delta int) int {
	total := l.get(club, competition) + delta
	delete(l.legacy, legacyKey(club, competition))
	if l.pairs[club] == nil {
		l.pairs[club] = map[string]int{}
	}
	l.pairs[club][competition] = total
	return total
}

func (l *ledger) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*l = *newLedger()
	for key, v := range raw {
		if v = bytes.TrimSpace(v); len(v) > 0 && v[0] == '{' {
			perCompetition := map[string]int{}
			if err := json.Unmarshal(v, &perCompetition); err != nil {
				return fmt.Errorf("club %q: %w", key, err)
			}
			l.pairs[key] = perCompetition
			continue
		}
		var n int
		if err := json.Unmarshal(v, &n); err != nil {
			return fmt.Errorf("entry %q: %w", key, err)
		}
		l.legacy[key] = n
	}
	return nil
}

func (l *ledger) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(l.pairs)+len(l.legacy))
	for key, n := range l.legacy {
		if _, clash := l.pairs[key]; clash {
			log.Printf("[jsonfile] dropping flat ledger entry %q shadowed by a club of the same name", key)
			continue
		}
		out[key] = n
	}
	for club, perCompetition := range l.pairs {
		out[club] = perCompetition
	}
	return json.Marshal(out)
}

// =============================================================================
// REPOSITORY (booking.Repository)
// =============================================================================

func (s *Store) LoadClubs(ctx context.Context) ([]booking.Club, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loadClubs(ctx)
}

func (s *Store) LoadCompetitions(ctx context.Context) ([]booking.Competition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loadCompetitions(ctx)
}

func (s *Store) SaveClubs(ctx context.Context, clubs []booking.Club) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveClubs(ctx, clubs)
}

func (s *Store) SaveCompetitions(ctx context.Context, competitions []booking.Competition) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveCompetitions(ctx, competitions)
}

func (s *Store) loadClubs(ctx context.Context) ([]booking.Club, error) {
	if err := ctx.Err(); err != nil {
		return []booking.Club{}, err
	}
	var f clubsFile
	if err := readJSON(s.path(ClubsFile), &f); err != nil {
		return []booking.Club{}, booking.ReadError("load", "clubs", err)
	}
	if f.Clubs == nil {
		return []booking.Club{}, booking.ReadError("load", "clubs", errors.New(`missing "clubs" key`))
	}
	clubs := make([]booking.Club, len(f.Clubs))
	for i, r := range f.Clubs {
		clubs[i] = booking.Club{Name: r.Name, Email: r.Email, Points: int(r.Points)}
	}
	return clubs, nil
}

func (s *Store) loadCompetitions(ctx context.Context) ([]booking.Competition, error) {
	if err := ctx.Err(); err != nil {
		return []booking.Competition{}, err
	}
	var f competitionsFile
	if err := readJSON(s.path(CompetitionsFile), &f); err != nil {
		return []booking.Competition{}, booking.ReadError("load", "competitions", err)
	}
	if f.Competitions == nil {
		return []booking.Competition{}, booking.ReadError("load", "competitions", errors.New(`missing "competitions" key`))
	}
	competitions := make([]booking.Competition, len(f.Competitions))
	for i, r := range f.Competitions {
		competitions[i] = booking.Competition{Name: r.Name, Date: r.Date, NumberOfPlaces: int(r.NumberOfPlaces)}
	}
	return competitions, nil
}

func (s *Store) saveClubs(ctx context.Context, clubs []booking.Club) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f := clubsFile{Clubs: make([]clubRecord, len(clubs))}
	for i, c := range clubs {
		f.Clubs[i] = clubRecord{Name: c.Name, Email: c.Email, Points: textInt(c.Points)}
	}
	if err := writeJSON(s.path(ClubsFile), f); err != nil {
		return booking.WriteError("save", "clubs", err)
	}
	return nil
}

func (s *Store) saveCompetitions(ctx context.Context, competitions []booking.Competition) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f := competitionsFile{Competitions: make([]competitionRecord, len(competitions))}
	for i, c := range competitions {
		f.Competitions[i] = competitionRecord{Name: c.Name, Date: c.Date, NumberOfPlaces: textInt(c.NumberOfPlaces)}
	}
	if err := writeJSON(s.path(CompetitionsFile), f); err != nil {
		return booking.WriteError("save", "competitions", err)
	}
	return nil
}

// =============================================================================
// LEDGER (booking.Ledger)
// =============================================================================

func (s *Store) Get(ctx context.Context, club, competition string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.get(ctx, club, competition)
}

func (s *Store) Increment(ctx context.Context, club, competition string, delta int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.increment(ctx, club, competition, delta)
}

func (s *Store) get(ctx context.Context, club, competition string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	l, err := s.readBookings()
	if err != nil {
		return 0, err
	}
	return l.get(club, competition), nil
}

func (s *Store) increment(ctx context.Context, club, competition string, delta int) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if delta <= 0 {
		return 0, booking.ErrInvalidDelta
	}
	l, err := s.readBookings()
	if err != nil {
		log.Printf("[jsonfile] %v; starting a new ledger", err)
		l = newLedger()
	}
	total := l.add(club, competition, delta)
	if err := writeJSON(s.path(BookingsFile), l); err != nil {
		return 0, booking.WriteError("increment", "bookings", err)
	}
	return total, nil
}

// readBookings returns an empty ledger for a missing file and an
// ErrStorageUnavailable error for an unreadable one.
func (s *Store) readBookings() (*ledger, error) {
	l := newLedger()
	err := readJSON(s.path(BookingsFile), l)
	if errors.Is(err, fs.ErrNotExist) {
		return newLedger(), nil
	}
	if err != nil {
		return newLedger(), booking.ReadError("get", "bookings", err)
	}
	return l, nil
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

// WithTx executes fn with exclusive access to the files. If fn returns an
// error the three files are restored to their content before the call.
func (s *Store) WithTx(ctx context.Context, fn func(booking.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.snapshot()
	if err := fn(&txView{s: s}); err != nil {
		if rerr := s.restore(snap); rerr != nil {
			log.Printf("[jsonfile] rollback incomplete: %v", rerr)
		}
		return err
	}
	return nil
}

type fileSnapshot struct {
	name string
	data []byte

	// absent is true when the file did not exist; unknown is true when it
	// existed but could not be read, in which case it is left alone.
	absent  bool
	unknown bool
}

func (s *Store) snapshot() []fileSnapshot {
	names := []string{ClubsFile, CompetitionsFile, BookingsFile}
	snap := make([]fileSnapshot, 0, len(names))
	for _, name := range names {
		data, err := os.ReadFile(s.path(name))
		snap = append(snap, fileSnapshot{
			name:    name,
			data:    data,
			absent:  errors.Is(err, fs.ErrNotExist),
			unknown: err != nil && !errors.Is(err, fs.ErrNotExist),
		})
	}
	return snap
}

func (s *Store) restore(snap []fileSnapshot) error {
	var errs []error
	for _, f := range snap {
		if f.unknown {
			continue
		}
		current, err := os.ReadFile(s.path(f.name))
		switch {
		case f.absent && errors.Is(err, fs.ErrNotExist):
			continue
		case f.absent:
			if err := os.Remove(s.path(f.name)); err != nil {
				errs = append(errs, err)
			}
		case err == nil && bytes.Equal(current, f.data):
			continue
		default:
			if err := writeFileAtomic(s.path(f.name), f.data); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

// txView runs with the store's write lock held.
type txView struct {
	s *Store
}

func (tv *txView) LoadClubs(ctx context.Context) ([]booking.Club, error) {
	return tv.s.loadClubs(ctx)
}

func (tv *txView) LoadCompetitions(ctx context.Context) ([]booking.Competition, error) {
	return tv.s.loadCompetitions(ctx)
}

func (tv *txView) SaveClubs(ctx context.Context, clubs []booking.Club) error {
	return tv.s.saveClubs(ctx, clubs)
}

func (tv *txView) SaveCompetitions(ctx context.Context, competitions []booking.Competition) error {
	return tv.s.saveCompetitions(ctx, competitions)
}

func (tv *txView) Get(ctx context.Context, club, competition string) (int, error) {
	return tv.s.get(ctx, club, competition)
}

func (tv *txView) Increment(ctx context.Context, club, competition string, delta int) (int, error) {
	return tv.s.increment(ctx, club, competition, delta)
}

// =============================================================================
// FILE HELPERS
// =============================================================================

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

func writeJSON(path string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return writeFileAtomic(path, data)
}

// writeFileAtomic writes data to a temp file next to path and renames it
// into place.
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
