package sqlite_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/places-engine/booking"
	"github.com/warp/places-engine/store/sqlite"
)

var _ booking.Store = (*sqlite.Store)(nil)

var now = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func newStore(t *testing.T) *sqlite.Store {
	t.Helper()
	s, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func seedFixtures(t *testing.T, s *sqlite.Store) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, s.SaveClubs(ctx, []booking.Club{
		{Name: "Simply Lift", Email: "john@simplylift.co", Points: 13},
		{Name: "Iron Temple", Email: "admin@irontemple.com", Points: 4},
		{Name: "She Lifts", Email: "kate@shelifts.co.uk", Points: 12},
	}))
	require.NoError(t, s.SaveCompetitions(ctx, []booking.Competition{
		{Name: "Spring Festival", Date: booking.FormatDate(now.AddDate(0, 0, 30)), NumberOfPlaces: 25},
		{Name: "Fall Classic", Date: booking.FormatDate(now.AddDate(0, 0, 60)), NumberOfPlaces: 13},
	}))
}

func newEngine(s booking.Store) *booking.Engine {
	return booking.NewEngine(s,
		booking.WithClock(func() time.Time { return now }),
		booking.WithTimeGate(booking.TimeGate{Layout: booking.DateLayout, Location: time.UTC}),
	)
}

func TestStore_SaveLoadKeepsOrder(t *testing.T) {
	s := newStore(t)
	seedFixtures(t, s)

	clubs, err := s.LoadClubs(context.Background())
	require.NoError(t, err)

	names := make([]string, len(clubs))
	for i, c := range clubs {
		names[i] = c.Name
	}
	assert.Equal(t, []string{"Simply Lift", "Iron Temple", "She Lifts"}, names)
}

func TestStore_EmptyDatabaseLoadsEmpty(t *testing.T) {
	s := newStore(t)

	clubs, err := s.LoadClubs(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, clubs)
	assert.Empty(t, clubs)
}

func TestStore_Ledger(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	got, err := s.Get(ctx, "Simply Lift", "Spring Festival")
	require.NoError(t, err)
	assert.Equal(t, 0, got)

	total, err := s.Increment(ctx, "Simply Lift", "Spring Festival", 4)
	require.NoError(t, err)
	assert.Equal(t, 4, total)
	total, err = s.Increment(ctx, "Simply Lift", "Spring Festival", 1)
	require.NoError(t, err)
	assert.Equal(t, 5, total)

	_, err = s.Increment(ctx, "Simply Lift", "Spring Festival", -1)
	assert.ErrorIs(t, err, booking.ErrInvalidDelta)

	ledger, err := s.Bookings(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[[2]string]int{{"Simply Lift", "Spring Festival"}: 5}, ledger)
}

func TestStore_ConstraintViolationKeepsPreviousData(t *testing.T) {
	// GIVEN: Stored clubs
	s := newStore(t)
	seedFixtures(t, s)
	ctx := context.Background()

	// WHEN: Saving a club with negative points
	err := s.SaveClubs(ctx, []booking.Club{{Name: "Broken", Email: "b@b", Points: -1}})

	// THEN: The save fails as a whole
	assert.ErrorIs(t, err, booking.ErrStorageWriteFailed)
	clubs, err := s.LoadClubs(ctx)
	require.NoError(t, err)
	assert.Len(t, clubs, 3)
}

func TestStore_Reset(t *testing.T) {
	s := newStore(t)
	seedFixtures(t, s)
	ctx := context.Background()
	_, err := s.Increment(ctx, "Simply Lift", "Spring Festival", 1)
	require.NoError(t, err)

	require.NoError(t, s.Reset(ctx))

	clubs, _ := s.LoadClubs(ctx)
	comps, _ := s.LoadCompetitions(ctx)
	ledger, _ := s.Bookings(ctx)
	assert.Empty(t, clubs)
	assert.Empty(t, comps)
	assert.Empty(t, ledger)
}

func TestPurchase_SQLite(t *testing.T) {
	// GIVEN: A seeded database
	s := newStore(t)
	seedFixtures(t, s)
	engine := newEngine(s)
	ctx := context.Background()

	// WHEN: Booking 7 then 6 places
	first, err := engine.Purchase(ctx, "Simply Lift", "Spring Festival", "7")
	require.NoError(t, err)
	second, err := engine.Purchase(ctx, "Simply Lift", "Spring Festival", "6")
	require.NoError(t, err)

	// THEN: The first books, the second hits the cap
	assert.True(t, first.Booked())
	assert.Equal(t, 6, first.Club.Points)
	assert.Equal(t, booking.CodeCapExceeded, second.Code)

	clubs, err := s.LoadClubs(ctx)
	require.NoError(t, err)
	club, _ := booking.FindClub(clubs, "Simply Lift")
	assert.Equal(t, 6, club.Points)

	comps, err := s.LoadCompetitions(ctx)
	require.NoError(t, err)
	comp, _ := booking.FindCompetition(comps, "Spring Festival")
	assert.Equal(t, 18, comp.NumberOfPlaces)

	booked, err := s.Get(ctx, "Simply Lift", "Spring Festival")
	require.NoError(t, err)
	assert.Equal(t, 7, booked)
}

// =============================================================================
// FAILURE PATHS (sqlmock)
// =============================================================================

func TestPurchase_SaveFailureRollsBack(t *testing.T) {
	// GIVEN: A database that fails when clubs are rewritten
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	future := booking.FormatDate(now.AddDate(0, 0, 30))

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT name, email, points FROM clubs").
		WillReturnRows(sqlmock.NewRows([]string{"name", "email", "points"}).
			AddRow("Simply Lift", "john@simplylift.co", 13))
	mock.ExpectQuery("SELECT name, date, number_of_places FROM competitions").
		WillReturnRows(sqlmock.NewRows([]string{"name", "date", "number_of_places"}).
			AddRow("Spring Festival", future, 25))
	mock.ExpectQuery("SELECT places FROM bookings").
		WithArgs("Simply Lift", "Spring Festival").
		WillReturnRows(sqlmock.NewRows([]string{"places"}))
	mock.ExpectExec("INSERT INTO bookings").
		WithArgs("Simply Lift", "Spring Festival", 2).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectQuery("SELECT places FROM bookings").
		WithArgs("Simply Lift", "Spring Festival").
		WillReturnRows(sqlmock.NewRows([]string{"places"}).AddRow(2))
	mock.ExpectExec("DELETE FROM clubs").
		WillReturnError(errors.New("database is locked"))
	mock.ExpectRollback()

	// WHEN: Booking 2 places
	out, err := newEngine(sqlite.Wrap(db)).Purchase(context.Background(), "Simply Lift", "Spring Festival", "2")

	// THEN: The write failure is reported and the transaction rolled back
	require.Error(t, err)
	assert.ErrorIs(t, err, booking.ErrStorageWriteFailed)
	assert.False(t, out.Booked())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithTx_CommitFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO bookings").
		WithArgs("She Lifts", "Fall Classic", 3).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectQuery("SELECT places FROM bookings").
		WithArgs("She Lifts", "Fall Classic").
		WillReturnRows(sqlmock.NewRows([]string{"places"}).AddRow(3))
	mock.ExpectCommit().WillReturnError(errors.New("disk I/O error"))

	ctx := context.Background()
	err = sqlite.Wrap(db).WithTx(ctx, func(tx booking.Tx) error {
		_, err := tx.Increment(ctx, "She Lifts", "Fall Classic", 3)
		return err
	})

	assert.ErrorIs(t, err, booking.ErrStorageWriteFailed)
	assert.Contains(t, err.Error(), "commit")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoad_QueryFailureFailsSoft(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT name, date, number_of_places FROM competitions").
		WillReturnError(errors.New("no such table: competitions"))

	comps, err := sqlite.Wrap(db).LoadCompetitions(context.Background())

	assert.NotNil(t, comps)
	assert.Empty(t, comps)
	assert.ErrorIs(t, err, booking.ErrStorageUnavailable)
	assert.NoError(t, mock.ExpectationsWereMet())
}
