package booking

import (
	"context"
	"log"
	"time"
)

// PointsCache holds a recent copy of the points board. Implementations
// absorb their own failures: a miss is always a safe answer.
type PointsCache interface {
	Get(ctx context.Context) ([]ClubPoints, bool)
	Set(ctx context.Context, points []ClubPoints)
	Invalidate(ctx context.Context)
}

// BookingView is what the booking page needs for a (competition, club) pair.
type BookingView struct {
	Club             Club
	ClubFound        bool
	Competition      Competition
	CompetitionFound bool
	Open             bool

	// OpenCompetitions is filled whenever the club was found.
	OpenCompetitions []Competition
}

// =============================================================================
// READ VIEWS - Never mutate, never used by Purchase
// =============================================================================

// Clubs returns the current club collection, empty on storage failure.
func (e *Engine) Clubs(ctx context.Context) []Club {
	return loadClubs(ctx, e.store)
}

// Competitions returns the current competition collection, empty on
// storage failure.
func (e *Engine) Competitions(ctx context.Context) []Competition {
	return loadCompetitions(ctx, e.store)
}

// OpenCompetitions filters competitions down to those still bookable at now.
func (e *Engine) OpenCompetitions(competitions []Competition, now time.Time) []Competition {
	open := make([]Competition, 0, len(competitions))
	for _, c := range competitions {
		ok, err := e.gate.IsOpen(c.Date, now)
		if err != nil {
			log.Printf("[Engine] competition %q: %v", c.Name, err)
		}
		if ok {
			open = append(open, c)
		}
	}
	return open
}

// ListOpenCompetitions returns the stored competitions still open at now.
func (e *Engine) ListOpenCompetitions(ctx context.Context, now time.Time) []Competition {
	return e.OpenCompetitions(e.Competitions(ctx), now)
}

// ListClubPoints returns every club's name and points. The result may come
// from the points cache and be a few seconds stale.
func (e *Engine) ListClubPoints(ctx context.Context) []ClubPoints {
	if e.points != nil {
		if cached, ok := e.points.Get(ctx); ok {
			return cached
		}
	}

	clubs := e.Clubs(ctx)
	points := make([]ClubPoints, len(clubs))
	for i, c := range clubs {
		points[i] = ClubPoints{Name: c.Name, Points: c.Points}
	}

	if e.points != nil {
		e.points.Set(ctx, points)
	}
	return points
}

// Summary looks a club up by email and returns it with the competitions
// still open at now.
func (e *Engine) Summary(ctx context.Context, email string, now time.Time) (Club, []Competition, bool) {
	club, ok := FindClubByEmail(e.Clubs(ctx), email)
	if !ok {
		return Club{}, nil, false
	}
	return club, e.ListOpenCompetitions(ctx, now), true
}

// BookingPage resolves the booking page for a competition and a club.
func (e *Engine) BookingPage(ctx context.Context, competitionName, clubName string, now time.Time) BookingView {
	var v BookingView
	v.Club, v.ClubFound = FindClub(e.Clubs(ctx), clubName)
	competitions := e.Competitions(ctx)
	v.Competition, v.CompetitionFound = FindCompetition(competitions, competitionName)
	if !v.ClubFound {
		return v
	}

	v.OpenCompetitions = e.OpenCompetitions(competitions, now)
	if v.CompetitionFound {
		ok, err := e.gate.IsOpen(v.Competition.Date, now)
		if err != nil {
			log.Printf("[Engine] competition %q: %v", v.Competition.Name, err)
		}
		v.Open = ok
	}
	return v
}

// Now returns the engine clock's current time.
func (e *Engine) Now() time.Time {
	return e.now()
}
