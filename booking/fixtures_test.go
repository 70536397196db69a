package booking_test

import (
	"context"
	"fmt"
	"time"

	"github.com/warp/places-engine/booking"
	"github.com/warp/places-engine/booking/store"
)

// testNow is the fixed clock used by engine tests.
var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func testClubs() []booking.Club {
	return []booking.Club{
		{Name: "Simply Lift", Email: "john@simplylift.co", Points: 13},
		{Name: "Iron Temple", Email: "admin@irontemple.com", Points: 4},
		{Name: "She Lifts", Email: "kate@shelifts.co.uk", Points: 12},
	}
}

func testCompetitions() []booking.Competition {
	return []booking.Competition{
		{Name: "Spring Festival", Date: booking.FormatDate(testNow.AddDate(0, 0, 30)), NumberOfPlaces: 25},
		{Name: "Fall Classic", Date: booking.FormatDate(testNow.AddDate(0, 0, 60)), NumberOfPlaces: 13},
		{Name: "Past Competition", Date: booking.FormatDate(testNow.AddDate(0, 0, -1)), NumberOfPlaces: 13},
	}
}

// newTestEngine returns an engine over a fresh memory store, with a fixed
// clock, a UTC gate and predictable receipts.
func newTestEngine(opts ...booking.Option) (*booking.Engine, *store.Memory) {
	m := store.NewMemory(testClubs(), testCompetitions())
	return newEngineOver(m, opts...), m
}

func newEngineOver(s booking.Store, opts ...booking.Option) *booking.Engine {
	n := 0
	base := []booking.Option{
		booking.WithClock(func() time.Time { return testNow }),
		booking.WithTimeGate(booking.TimeGate{Layout: booking.DateLayout, Location: time.UTC}),
		booking.WithReceipts(func() string {
			n++
			return fmt.Sprintf("receipt-%d", n)
		}),
	}
	return booking.NewEngine(s, append(base, opts...)...)
}

func clubByName(s booking.Repository, name string) booking.Club {
	clubs, _ := s.LoadClubs(context.Background())
	c, _ := booking.FindClub(clubs, name)
	return c
}

func competitionByName(s booking.Repository, name string) booking.Competition {
	comps, _ := s.LoadCompetitions(context.Background())
	c, _ := booking.FindCompetition(comps, name)
	return c
}

// recordingCache is a PointsCache that counts calls.
type recordingCache struct {
	points      []booking.ClubPoints
	ok          bool
	sets        int
	invalidated int
}

func (c *recordingCache) Get(context.Context) ([]booking.ClubPoints, bool) {
	return c.points, c.ok
}

func (c *recordingCache) Set(_ context.Context, points []booking.ClubPoints) {
	c.points, c.ok = points, true
	c.sets++
}

func (c *recordingCache) Invalidate(context.Context) {
	c.points, c.ok = nil, false
	c.invalidated++
}

// failingStore wraps a store and fails one write inside transactions.
type failingStore struct {
	booking.Store
	failOn string // "clubs", "competitions", "increment" or "get"
}

func (s *failingStore) WithTx(ctx context.Context, fn func(booking.Tx) error) error {
	return s.Store.WithTx(ctx, func(tx booking.Tx) error {
		return fn(&failingTx{Tx: tx, failOn: s.failOn})
	})
}

type failingTx struct {
	booking.Tx
	failOn string
}

var errDiskFull = fmt.Errorf("disk full")

func (t *failingTx) SaveClubs(ctx context.Context, clubs []booking.Club) error {
	if t.failOn == "clubs" {
		return booking.WriteError("save", "clubs", errDiskFull)
	}
	return t.Tx.SaveClubs(ctx, clubs)
}

func (t *failingTx) SaveCompetitions(ctx context.Context, competitions []booking.Competition) error {
	if t.failOn == "competitions" {
		return booking.WriteError("save", "competitions", errDiskFull)
	}
	return t.Tx.SaveCompetitions(ctx, competitions)
}

func (t *failingTx) Get(ctx context.Context, club, competition string) (int, error) {
	if t.failOn == "get" {
		return 0, booking.ReadError("get", "bookings", errDiskFull)
	}
	return t.Tx.Get(ctx, club, competition)
}

func (t *failingTx) Increment(ctx context.Context, club, competition string, delta int) (int, error) {
	if t.failOn == "increment" {
		return 0, booking.WriteError("increment", "bookings", errDiskFull)
	}
	return t.Tx.Increment(ctx, club, competition, delta)
}
