package booking_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/places-engine/booking"
	"github.com/warp/places-engine/booking/store"
)

func TestListOpenCompetitions_HidesPastAndInvalid(t *testing.T) {
	comps := append(testCompetitions(), booking.Competition{Name: "Mystery Meet", Date: "not a date", NumberOfPlaces: 5})
	engine := newEngineOver(store.NewMemory(testClubs(), comps))

	open := engine.ListOpenCompetitions(context.Background(), testNow)

	names := make([]string, len(open))
	for i, c := range open {
		names[i] = c.Name
	}
	assert.Equal(t, []string{"Spring Festival", "Fall Classic"}, names)
}

func TestListOpenCompetitions_BoundaryIsExclusive(t *testing.T) {
	comps := []booking.Competition{{Name: "Now", Date: booking.FormatDate(testNow), NumberOfPlaces: 5}}
	engine := newEngineOver(store.NewMemory(testClubs(), comps))

	assert.Empty(t, engine.ListOpenCompetitions(context.Background(), testNow))
}

func TestListClubPoints(t *testing.T) {
	engine, _ := newTestEngine()
	ctx := context.Background()

	first := engine.ListClubPoints(ctx)
	second := engine.ListClubPoints(ctx)

	assert.Equal(t, []booking.ClubPoints{
		{Name: "Simply Lift", Points: 13},
		{Name: "Iron Temple", Points: 4},
		{Name: "She Lifts", Points: 12},
	}, first)
	assert.Equal(t, first, second)
}

func TestListClubPoints_ServedFromCacheUntilBooking(t *testing.T) {
	// GIVEN: A points board already cached
	cache := &recordingCache{}
	engine, _ := newTestEngine(booking.WithPointsCache(cache))
	ctx := context.Background()

	engine.ListClubPoints(ctx)
	require.Equal(t, 1, cache.sets)
	engine.ListClubPoints(ctx)
	assert.Equal(t, 1, cache.sets, "second read is a cache hit")

	// WHEN: A booking completes
	_, err := engine.Purchase(ctx, "Simply Lift", "Spring Festival", "2")
	require.NoError(t, err)

	// THEN: The next read sees the new balance
	points := engine.ListClubPoints(ctx)
	assert.Equal(t, 2, cache.sets)
	assert.Contains(t, points, booking.ClubPoints{Name: "Simply Lift", Points: 11})
}

func TestSummary(t *testing.T) {
	engine, _ := newTestEngine()
	ctx := context.Background()

	club, open, ok := engine.Summary(ctx, "kate@shelifts.co.uk", testNow)
	require.True(t, ok)
	assert.Equal(t, "She Lifts", club.Name)
	assert.Len(t, open, 2)

	_, _, ok = engine.Summary(ctx, "nobody@example.com", testNow)
	assert.False(t, ok)
}

func TestBookingPage(t *testing.T) {
	engine, _ := newTestEngine()
	ctx := context.Background()

	t.Run("open", func(t *testing.T) {
		v := engine.BookingPage(ctx, "Spring Festival", "Simply Lift", testNow)
		assert.True(t, v.ClubFound)
		assert.True(t, v.CompetitionFound)
		assert.True(t, v.Open)
		assert.Equal(t, 25, v.Competition.NumberOfPlaces)
	})

	t.Run("closed", func(t *testing.T) {
		v := engine.BookingPage(ctx, "Past Competition", "Simply Lift", testNow)
		assert.True(t, v.CompetitionFound)
		assert.False(t, v.Open)
		assert.Len(t, v.OpenCompetitions, 2)
	})

	t.Run("unknown club", func(t *testing.T) {
		v := engine.BookingPage(ctx, "Spring Festival", "Nobody", testNow)
		assert.False(t, v.ClubFound)
	})

	t.Run("unknown competition", func(t *testing.T) {
		v := engine.BookingPage(ctx, "Nowhere Cup", "Simply Lift", testNow)
		assert.True(t, v.ClubFound)
		assert.False(t, v.CompetitionFound)
	})
}

func TestSeed(t *testing.T) {
	ctx := context.Background()
	src := store.NewMemory(testClubs(), testCompetitions())

	t.Run("empty destination is seeded", func(t *testing.T) {
		dst := store.NewMemory(nil, nil)

		seeded, err := booking.Seed(ctx, dst, src)

		require.NoError(t, err)
		assert.True(t, seeded)
		clubs, _ := dst.LoadClubs(ctx)
		assert.Equal(t, testClubs(), clubs)
	})

	t.Run("populated destination is left alone", func(t *testing.T) {
		dst := store.NewMemory([]booking.Club{{Name: "Solo", Email: "solo@example.com", Points: 1}}, nil)

		seeded, err := booking.Seed(ctx, dst, src)

		require.NoError(t, err)
		assert.False(t, seeded)
		clubs, _ := dst.LoadClubs(ctx)
		assert.Len(t, clubs, 1)
	})
}
