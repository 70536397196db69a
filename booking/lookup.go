package booking

import (
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// FindClub returns the club with the given name.
func FindClub(clubs []Club, name string) (Club, bool) {
	if i := clubIndex(clubs, name); i >= 0 {
		return clubs[i], true
	}
	return Club{}, false
}

// FindClubByEmail returns the club registered with email.
func FindClubByEmail(clubs []Club, email string) (Club, bool) {
	for _, c := range clubs {
		if c.Email == email {
			return c, true
		}
	}
	return Club{}, false
}

// FindCompetition returns the competition with the given name.
func FindCompetition(competitions []Competition, name string) (Competition, bool) {
	if i := competitionIndex(competitions, name); i >= 0 {
		return competitions[i], true
	}
	return Competition{}, false
}

func clubIndex(clubs []Club, name string) int {
	for i, c := range clubs {
		if c.Name == name {
			return i
		}
	}
	return -1
}

func competitionIndex(competitions []Competition, name string) int {
	for i, c := range competitions {
		if c.Name == name {
			return i
		}
	}
	return -1
}

var maxPlaces = decimal.NewFromInt(math.MaxInt32)

// ParsePlaces parses a requested number of places. It accepts any decimal
// text with an integral value ("3", "3.0", " 3 ") and rejects fractions,
// zero, negatives and non-numeric input.
func ParsePlaces(s string) (int, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, false
	}
	if !d.IsInteger() || !d.IsPositive() || d.GreaterThan(maxPlaces) {
		return 0, false
	}
	return int(d.IntPart()), true
}
