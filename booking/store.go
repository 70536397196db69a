/*
store.go - Persistence interfaces for clubs, competitions and the ledger

PURPOSE:
  Defines the boundary between the reservation engine and storage.
  The engine only talks to these interfaces; the JSON-file backend, the
  SQLite backend and the in-memory store are interchangeable.

KEY INTERFACES:
  Repository: Whole-collection load/save of clubs and competitions
  Ledger:     Cumulative places per (club, competition)
  Tx:         Repository + Ledger, as seen inside one transaction
  Store:      Tx for plain reads, plus WithTx for atomic purchases

WHOLE-COLLECTION WRITES:
  SaveClubs and SaveCompetitions replace the entire collection. There is
  no per-record update; last writer wins at collection granularity.

FAIL-SOFT READS:
  Loads and ledger reads that hit a missing or corrupt backing resource
  return an empty result together with an error wrapping
  ErrStorageUnavailable. The engine logs it and carries on with the empty
  result.

ATOMIC PURCHASES:
  WithTx runs fn with exclusive access to the store. If fn returns an
  error, every write made through the Tx handle is undone. This replaces
  the reload-before/reload-after pattern of a file-only design.

IMPLEMENTATIONS:
  - booking/store/memory.go: In-memory, snapshot + rollback
  - store/jsonfile: clubs.json / competitions.json / bookings.json
  - store/sqlite: SQLite, one SQL transaction per WithTx
*/
package booking

import "context"

// Repository persists the club and competition collections.
type Repository interface {
	LoadClubs(ctx context.Context) ([]Club, error)
	LoadCompetitions(ctx context.Context) ([]Competition, error)

	// SaveClubs replaces the whole club collection.
	SaveClubs(ctx context.Context, clubs []Club) error

	// SaveCompetitions replaces the whole competition collection.
	SaveCompetitions(ctx context.Context, competitions []Competition) error
}

// Ledger records cumulative places booked per (club, competition).
// Entries are created on first booking and never decremented.
type Ledger interface {
	// Get returns the places already booked, 0 when there is no entry.
	Get(ctx context.Context, club, competition string) (int, error)

	// Increment adds delta (> 0) and returns the new total. The total is
	// durable when Increment returns.
	Increment(ctx context.Context, club, competition string, delta int) (int, error)
}

// Tx is the view of a store inside a transaction.
type Tx interface {
	Repository
	Ledger
}

// Store is a Repository and Ledger with transaction support.
type Store interface {
	Tx

	// WithTx executes fn within a transaction.
	// If fn returns error, all writes through the Tx are rolled back.
	WithTx(ctx context.Context, fn func(Tx) error) error
}
