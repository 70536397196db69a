/*
engine.go - Reservation engine

PURPOSE:
  Validates a purchase against the competition date, the remaining places,
  the per-club cap and the club's points, then applies it to the club, the
  competition and the ledger as one transaction.

VALIDATION ORDER (first failure wins, nothing is written before step 9):
  1. Load clubs and competitions inside the transaction (live state)
  2. Resolve club and competition          -> NotFound
  3. Competition date still in the future  -> CompetitionClosed
  4. Places is a positive whole number     -> InvalidQuantity
  5. Competition has places left           -> CompetitionFull
  6. Requested <= remaining places         -> InsufficientInventory
  7. Ledger + requested <= 12              -> CapExceeded
  8. Requested <= club points              -> InsufficientPoints
  9. Deduct, increment ledger, save both collections
 10. Read the post-state back through the same transaction

  The cap check runs before the points check. A request that is both over
  cap and over points reports CapExceeded.

CONCURRENCY:
  Purchases are serialized by the engine mutex, and each one runs inside
  Store.WithTx. A write failure at step 9 rolls back every write made in
  that transaction and is returned as an error wrapping
  ErrStorageWriteFailed.

EXAMPLE:
  engine := booking.NewEngine(store)
  out, err := engine.Purchase(ctx, "Simply Lift", "Spring Festival", "2")
  if err != nil {
      // booking did not complete, nothing was changed
  }
  if !out.Booked() {
      fmt.Println(out.Message) // "Error: Not enough points"
  }

SEE ALSO:
  - views.go: Read-only views (open competitions, points board)
  - store.go: Store and Tx interfaces
*/
package booking

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Engine is the reservation engine.
type Engine struct {
	store      Store
	gate       TimeGate
	now        func() time.Time
	points     PointsCache
	newReceipt func() string

	mu sync.Mutex
}

// Option configures an Engine.
type Option func(*Engine)

// WithTimeGate sets the gate used to decide whether competitions are open.
func WithTimeGate(g TimeGate) Option {
	return func(e *Engine) { e.gate = g }
}

// WithClock sets the clock used by Purchase.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithPointsCache serves ListClubPoints from c.
func WithPointsCache(c PointsCache) Option {
	return func(e *Engine) { e.points = c }
}

// WithReceipts sets the receipt ID generator.
func WithReceipts(gen func() string) Option {
	return func(e *Engine) { e.newReceipt = gen }
}

// NewEngine creates an engine over store.
func NewEngine(store Store, opts ...Option) *Engine {
	e := &Engine{
		store:      store,
		gate:       DefaultTimeGate(),
		now:        time.Now,
		newReceipt: uuid.NewString,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// =============================================================================
// PURCHASE
// =============================================================================

// Purchase books places for a club in a competition. places is the raw
// submitted text. Business rejections are returned as Outcomes with a nil
// error; a non-nil error means the booking did not complete.
func (e *Engine) Purchase(ctx context.Context, clubName, competitionName, places string) (Outcome, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	var out Outcome
	err := e.store.WithTx(ctx, func(tx Tx) error {
		var err error
		out, err = e.purchase(ctx, tx, clubName, competitionName, places)
		return err
	})
	if err != nil {
		log.Printf("[Engine] purchase club=%q competition=%q places=%q failed: %v",
			clubName, competitionName, places, err)
		return Outcome{}, err
	}

	if out.Booked() {
		log.Printf("[Engine] booked %d place(s) club=%q competition=%q total=%d receipt=%s",
			out.Places, clubName, competitionName, out.LedgerTotal, out.Receipt)
		if e.points != nil {
			e.points.Invalidate(ctx)
		}
	}
	return out, nil
}

func (e *Engine) purchase(ctx context.Context, tx Tx, clubName, competitionName, places string) (Outcome, error) {
	// 1. Live state
	clubs := loadClubs(ctx, tx)
	competitions := loadCompetitions(ctx, tx)

	// 2. Resolve
	ci := clubIndex(clubs, clubName)
	ki := competitionIndex(competitions, competitionName)
	reject := func(code Code) Outcome {
		out := rejected(code)
		out.Competitions = competitions
		if ci >= 0 {
			out.Club, out.ClubFound = clubs[ci], true
		}
		return out
	}
	if ci < 0 || ki < 0 {
		return reject(CodeNotFound), nil
	}
	club, competition := clubs[ci], competitions[ki]

	// 3. Date
	open, err := e.gate.IsOpen(competition.Date, e.now())
	if err != nil {
		log.Printf("[Engine] competition %q: %v", competition.Name, err)
	}
	if !open {
		return reject(CodeCompetitionClosed), nil
	}

	// 4. Quantity
	n, ok := ParsePlaces(places)
	if !ok {
		return reject(CodeInvalidQuantity), nil
	}

	// 5-6. Inventory
	if competition.NumberOfPlaces <= 0 {
		return reject(CodeCompetitionFull), nil
	}
	if n > competition.NumberOfPlaces {
		return reject(CodeInsufficientInventory), nil
	}

	// 7. Cap
	booked, err := tx.Get(ctx, club.Name, competition.Name)
	if err != nil {
		log.Printf("[Engine] ledger read for %q/%q treated as empty: %v", club.Name, competition.Name, err)
		booked = 0
	}
	if booked+n > MaxPlacesPerCompetition {
		return reject(CodeCapExceeded), nil
	}

	// 8. Points
	if n > club.Points {
		return reject(CodeInsufficientPoints), nil
	}

	// 9. Commit
	clubs[ci].Points -= n
	competitions[ki].NumberOfPlaces -= n

	total, err := tx.Increment(ctx, club.Name, competition.Name, n)
	if err != nil {
		return Outcome{}, err
	}
	if err := tx.SaveClubs(ctx, clubs); err != nil {
		return Outcome{}, err
	}
	if err := tx.SaveCompetitions(ctx, competitions); err != nil {
		return Outcome{}, err
	}

	// 10. Post-state, falling back to what was just written
	out := Outcome{
		Code:         CodeBooked,
		Message:      CodeBooked.Message(),
		Club:         clubs[ci],
		ClubFound:    true,
		Competitions: competitions,
		Receipt:      e.newReceipt(),
		Places:       n,
		LedgerTotal:  total,
	}
	if reread, err := tx.LoadClubs(ctx); err == nil {
		if c, ok := FindClub(reread, club.Name); ok {
			out.Club = c
		}
	}
	if reread, err := tx.LoadCompetitions(ctx); err == nil && len(reread) > 0 {
		out.Competitions = reread
	}
	return out, nil
}

func loadClubs(ctx context.Context, r Repository) []Club {
	clubs, err := r.LoadClubs(ctx)
	if err != nil {
		log.Printf("[Engine] loading clubs, using empty collection: %v", err)
		return []Club{}
	}
	return clubs
}

func loadCompetitions(ctx context.Context, r Repository) []Competition {
	competitions, err := r.LoadCompetitions(ctx)
	if err != nil {
		log.Printf("[Engine] loading competitions, using empty collection: %v", err)
		return []Competition{}
	}
	return competitions
}
