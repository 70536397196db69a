// Package store provides an in-memory booking.Store.
package store

import (
	"context"
	"sync"

	"github.com/warp/places-engine/booking"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu           sync.RWMutex
	clubs        []booking.Club
	competitions []booking.Competition
	ledger       map[key]int
}

type key struct {
	Club        string
	Competition string
}

// NewMemory creates a store seeded with copies of clubs and competitions.
func NewMemory(clubs []booking.Club, competitions []booking.Competition) *Memory {
	return &Memory{
		clubs:        append([]booking.Club{}, clubs...),
		competitions: append([]booking.Competition{}, competitions...),
		ledger:       make(map[key]int),
	}
}

func (m *Memory) LoadClubs(_ context.Context) ([]booking.Club, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]booking.Club{}, m.clubs...), nil
}

func (m *Memory) LoadCompetitions(_ context.Context) ([]booking.Competition, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]booking.Competition{}, m.competitions...), nil
}

func (m *Memory) SaveClubs(_ context.Context, clubs []booking.Club) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clubs = append([]booking.Club{}, clubs...)
	return nil
}

func (m *Memory) SaveCompetitions(_ context.Context, competitions []booking.Competition) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.competitions = append([]booking.Competition{}, competitions...)
	return nil
}

func (m *Memory) Get(_ context.Context, club, competition string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.ledger[key{club, competition}], nil
}

func (m *Memory) Increment(_ context.Context, club, competition string, delta int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.incrementLocked(club, competition, delta)
}

func (m *Memory) incrementLocked(club, competition string, delta int) (int, error) {
	if delta <= 0 {
		return 0, booking.ErrInvalidDelta
	}
	k := key{club, competition}
	m.ledger[k] += delta
	return m.ledger[k], nil
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

// WithTx executes fn within a transaction.
// For memory store, this is simulated with a snapshot + rollback on error.
func (m *Memory) WithTx(ctx context.Context, fn func(booking.Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot := m.snapshot()

	if err := fn(&txMemoryView{parent: m}); err != nil {
		m.restore(snapshot)
		return err
	}

	// Commit (already done via direct writes)
	return nil
}

func (m *Memory) snapshot() memorySnapshot {
	ledgerCopy := make(map[key]int, len(m.ledger))
	for k, v := range m.ledger {
		ledgerCopy[k] = v
	}
	return memorySnapshot{
		clubs:        append([]booking.Club{}, m.clubs...),
		competitions: append([]booking.Competition{}, m.competitions...),
		ledger:       ledgerCopy,
	}
}

func (m *Memory) restore(s memorySnapshot) {
	m.clubs = s.clubs
	m.competitions = s.competitions
	m.ledger = s.ledger
}

type memorySnapshot struct {
	clubs        []booking.Club
	competitions []booking.Competition
	ledger       map[key]int
}

// txMemoryView runs with the parent's write lock already held.
type txMemoryView struct {
	parent *Memory
}

func (tv *txMemoryView) LoadClubs(_ context.Context) ([]booking.Club, error) {
	return append([]booking.Club{}, tv.parent.clubs...), nil
}

func (tv *txMemoryView) LoadCompetitions(_ context.Context) ([]booking.Competition, error) {
	return append([]booking.Competition{}, tv.parent.competitions...), nil
}

func (tv *txMemoryView) SaveClubs(_ context.Context, clubs []booking.Club) error {
	tv.parent.clubs = append([]booking.Club{}, clubs...)
	return nil
}

func (tv *txMemoryView) SaveCompetitions(_ context.Context, competitions []booking.Competition) error {
	tv.parent.competitions = append([]booking.Competition{}, competitions...)
	return nil
}

func (tv *txMemoryView) Get(_ context.Context, club, competition string) (int, error) {
	return tv.parent.ledger[key{club, competition}], nil
}

func (tv *txMemoryView) Increment(_ context.Context, club, competition string, delta int) (int, error) {
	return tv.parent.incrementLocked(club, competition, delta)
}
