/*
Package sqlite provides a SQLite-backed implementation of booking.Store.

PURPOSE:
  The transactional backend. A purchase reads clubs, competitions and the
  ledger, then writes all three inside one SQL transaction, so a failure
  anywhere leaves no partial booking behind.

KEY TABLES:
  clubs:        name (pk), email (unique), points, position
  competitions: name (pk), date, number_of_places, position
  bookings:     (club_name, competition_name) pk, places

  position keeps the provisioning order of each collection, so loads come
  back in the order they were saved.

CONSTRAINTS:
  CHECK constraints mirror the engine invariants (points >= 0,
  number_of_places >= 0, places > 0). The engine never relies on them;
  they catch bugs, not user input.

WHOLE-COLLECTION WRITES:
  SaveClubs and SaveCompetitions delete and re-insert the collection in the
  same transaction. Outside WithTx each save opens its own transaction.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety and a single pooled connection, which
  also keeps ":memory:" databases consistent across calls.

USAGE:
  store, err := sqlite.New("./data/places.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  engine := booking.NewEngine(store)

SEE ALSO:
  - booking/store.go: Interface definitions
  - booking/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	_ "github.com/mattn/go-sqlite3"
	"github.com/warp/places-engine/booking"
)

// Store implements booking.Store using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	store := Wrap(db)
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Wrap uses an already opened database whose schema is in place.
func Wrap(db *sql.DB) *Store {
	return &Store{db: db}
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS clubs (
		name TEXT PRIMARY KEY,
		email TEXT NOT NULL UNIQUE,
		points INTEGER NOT NULL CHECK (points >= 0),
		position INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS competitions (
		name TEXT PRIMARY KEY,
		date TEXT NOT NULL,
		number_of_places INTEGER NOT NULL CHECK (number_of_places >= 0),
		position INTEGER NOT NULL
	);

	-- Cumulative places per (club, competition), never decremented
	CREATE TABLE IF NOT EXISTS bookings (
		club_name TEXT NOT NULL,
		competition_name TEXT NOT NULL,
		places INTEGER NOT NULL CHECK (places > 0),
		PRIMARY KEY (club_name, competition_name)
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// dbtx is satisfied by both *sql.DB and *sql.Tx.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// =============================================================================
// REPOSITORY (booking.Repository)
// =============================================================================

func (s *Store) LoadClubs(ctx context.Context) ([]booking.Club, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return loadClubs(ctx, s.db)
}

func (s *Store) LoadCompetitions(ctx context.Context) ([]booking.Competition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return loadCompetitions(ctx, s.db)
}

// SaveClubs replaces all clubs in its own transaction.
func (s *Store) SaveClubs(ctx context.Context, clubs []booking.Club) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inTx(ctx, func(tx *sql.Tx) error { return saveClubs(ctx, tx, clubs) })
}

// SaveCompetitions replaces all competitions in its own transaction.
func (s *Store) SaveCompetitions(ctx context.Context, competitions []booking.Competition) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inTx(ctx, func(tx *sql.Tx) error { return saveCompetitions(ctx, tx, competitions) })
}

func loadClubs(ctx context.Context, db dbtx) ([]booking.Club, error) {
	rows, err := db.QueryContext(ctx, "SELECT name, email, points FROM clubs ORDER BY position, name")
	if err != nil {
		return []booking.Club{}, booking.ReadError("load", "clubs", err)
	}
	defer rows.Close()

	clubs := []booking.Club{}
	for rows.Next() {
		var c booking.Club
		if err := rows.Scan(&c.Name, &c.Email, &c.Points); err != nil {
			return []booking.Club{}, booking.ReadError("load", "clubs", err)
		}
		clubs = append(clubs, c)
	}
	if err := rows.Err(); err != nil {
		return []booking.Club{}, booking.ReadError("load", "clubs", err)
	}
	return clubs, nil
}

func loadCompetitions(ctx context.Context, db dbtx) ([]booking.Competition, error) {
	rows, err := db.QueryContext(ctx, "SELECT name, date, number_of_places FROM competitions ORDER BY position, name")
	if err != nil {
		return []booking.Competition{}, booking.ReadError("load", "competitions", err)
	}
	defer rows.Close()

	competitions := []booking.Competition{}
	for rows.Next() {
		var c booking.Competition
		if err := rows.Scan(&c.Name, &c.Date, &c.NumberOfPlaces); err != nil {
			return []booking.Competition{}, booking.ReadError("load", "competitions", err)
		}
		competitions = append(competitions, c)
	}
	if err := rows.Err(); err != nil {
		return []booking.Competition{}, booking.ReadError("load", "competitions", err)
	}
	return competitions, nil
}

func saveClubs(ctx context.Context, db dbtx, clubs []booking.Club) error {
	if _, err := db.ExecContext(ctx, "DELETE FROM clubs"); err != nil {
		return booking.WriteError("save", "clubs", err)
	}
	for i, c := range clubs {
		_, err := db.ExecContext(ctx,
			"INSERT INTO clubs (name, email, points, position) VALUES (?, ?, ?, ?)",
			c.Name, c.Email, c.Points, i,
		)
		if err != nil {
			return booking.WriteError("save", "clubs", err)
		}
	}
	return nil
}

func saveCompetitions(ctx context.Context, db dbtx, competitions []booking.Competition) error {
	if _, err := db.ExecContext(ctx, "DELETE FROM competitions"); err != nil {
		return booking.WriteError("save", "competitions", err)
	}
	for i, c := range competitions {
		_, err := db.ExecContext(ctx,
			"INSERT INTO competitions (name, date, number_of_places, position) VALUES (?, ?, ?, ?)",
			c.Name, c.Date, c.NumberOfPlaces, i,
		)
		if err != nil {
			return booking.WriteError("save", "competitions", err)
		}
	}
	return nil
}

// =============================================================================
// LEDGER (booking.Ledger)
// =============================================================================

func (s *Store) Get(ctx context.Context, club, competition string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getBooked(ctx, s.db, club, competition)
}

// Increment adds delta in its own transaction.
func (s *Store) Increment(ctx context.Context, club, competition string, delta int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var total int
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		var err error
		total, err = increment(ctx, tx, club, competition, delta)
		return err
	})
	return total, err
}

func getBooked(ctx context.Context, db dbtx, club, competition string) (int, error) {
	var places int
	err := db.QueryRowContext(ctx,
		"SELECT places FROM bookings WHERE club_name = ? AND competition_name = ?",
		club, competition,
	).Scan(&places)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, booking.ReadError("get", "bookings", err)
	}
	return places, nil
}

func increment(ctx context.Context, db dbtx, club, competition string, delta int) (int, error) {
	if delta <= 0 {
		return 0, booking.ErrInvalidDelta
	}

	query := `
		INSERT INTO bookings (club_name, competition_name, places)
		VALUES (?, ?, ?)
		ON CONFLICT(club_name, competition_name) DO UPDATE SET
			places = bookings.places + excluded.places
	`
	if _, err := db.ExecContext(ctx, query, club, competition, delta); err != nil {
		return 0, booking.WriteError("increment", "bookings", err)
	}

	var total int
	err := db.QueryRowContext(ctx,
		"SELECT places FROM bookings WHERE club_name = ? AND competition_name = ?",
		club, competition,
	).Scan(&total)
	if err != nil {
		return 0, booking.WriteError("increment", "bookings", err)
	}
	return total, nil
}

// =============================================================================
// TRANSACTIONAL STORE
// =============================================================================

// WithTx executes fn within a database transaction.
func (s *Store) WithTx(ctx context.Context, fn func(booking.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.inTx(ctx, func(tx *sql.Tx) error {
		return fn(&txStore{tx: tx})
	})
}

// inTx runs fn in a SQL transaction. Caller holds s.mu.
func (s *Store) inTx(ctx context.Context, fn func(*sql.Tx) error) error {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return booking.WriteError("begin", "transaction", err)
	}
	defer sqlTx.Rollback()

	if err := fn(sqlTx); err != nil {
		return err
	}

	if err := sqlTx.Commit(); err != nil {
		return booking.WriteError("commit", "transaction", err)
	}
	return nil
}

type txStore struct {
	tx *sql.Tx
}

func (ts *txStore) LoadClubs(ctx context.Context) ([]booking.Club, error) {
	return loadClubs(ctx, ts.tx)
}

func (ts *txStore) LoadCompetitions(ctx context.Context) ([]booking.Competition, error) {
	return loadCompetitions(ctx, ts.tx)
}

func (ts *txStore) SaveClubs(ctx context.Context, clubs []booking.Club) error {
	return saveClubs(ctx, ts.tx, clubs)
}

func (ts *txStore) SaveCompetitions(ctx context.Context, competitions []booking.Competition) error {
	return saveCompetitions(ctx, ts.tx, competitions)
}

func (ts *txStore) Get(ctx context.Context, club, competition string) (int, error) {
	return getBooked(ctx, ts.tx, club, competition)
}

func (ts *txStore) Increment(ctx context.Context, club, competition string, delta int) (int, error) {
	return increment(ctx, ts.tx, club, competition, delta)
}

// =============================================================================
// UTILITIES
// =============================================================================

// Reset clears all data (for testing/demo).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tables := []string{"bookings", "competitions", "clubs"}
	for _, table := range tables {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}
	return nil
}

// Bookings returns the whole ledger keyed by (club, competition).
func (s *Store) Bookings(ctx context.Context) (map[[2]string]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, "SELECT club_name, competition_name, places FROM bookings")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ledger := make(map[[2]string]int)
	for rows.Next() {
		var club, competition string
		var places int
		if err := rows.Scan(&club, &competition, &places); err != nil {
			return nil, err
		}
		ledger[[2]string{club, competition}] = places
	}
	return ledger, rows.Err()
}
