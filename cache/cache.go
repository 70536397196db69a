/*
Package cache provides short-lived caches for the club points board.

PURPOSE:
  The points board (/api/points) is read far more often than clubs spend
  points. Serving it from a cache for a few seconds is allowed; the cached
  copy is never used to validate a purchase.

IMPLEMENTATIONS:
  Memory: process-local, guarded by a mutex
  Redis:  shared between server instances, JSON value with a TTL

FAILURE POLICY:
  A cache that cannot be read behaves as a miss; a cache that cannot be
  written is skipped. Failures are logged, never returned.

SEE ALSO:
  - booking/views.go: Engine.ListClubPoints consults the cache
*/
package cache

import (
	"context"
	"sync"
	"time"

	"github.com/warp/places-engine/booking"
)

// DefaultTTL matches the 30 second points board cache of the web app.
const DefaultTTL = 30 * time.Second

// Compile-time checks
var (
	_ booking.PointsCache = (*Memory)(nil)
	_ booking.PointsCache = (*Redis)(nil)
)

// =============================================================================
// MEMORY CACHE
// =============================================================================

// Memory caches the points board in process memory.
type Memory struct {
	ttl time.Duration
	now func() time.Time

	mu      sync.Mutex
	points  []booking.ClubPoints
	expires time.Time
}

// NewMemory creates a cache whose entries live for ttl.
func NewMemory(ttl time.Duration) *Memory {
	return &Memory{ttl: ttl, now: time.Now}
}

func (m *Memory) Get(_ context.Context) ([]booking.ClubPoints, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.points == nil || !m.now().Before(m.expires) {
		return nil, false
	}
	return append([]booking.ClubPoints{}, m.points...), true
}

func (m *Memory) Set(_ context.Context, points []booking.ClubPoints) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.points = append([]booking.ClubPoints{}, points...)
	m.expires = m.now().Add(m.ttl)
}

func (m *Memory) Invalidate(_ context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.points = nil
}
