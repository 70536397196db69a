package booking

import (
	"fmt"
	"time"
)

// DateLayout is the stored format of Competition.Date.
const DateLayout = "2006-01-02 15:04:05"

// TimeGate decides whether a competition can still be booked.
type TimeGate struct {
	Layout   string
	Location *time.Location
}

// DefaultTimeGate parses DateLayout in the server's local time zone.
func DefaultTimeGate() TimeGate {
	return TimeGate{Layout: DateLayout, Location: time.Local}
}

// IsOpen returns true iff now is strictly before scheduledAt.
// An unparseable date is closed; the parse failure is returned for logging.
func (g TimeGate) IsOpen(scheduledAt string, now time.Time) (bool, error) {
	at, err := g.Parse(scheduledAt)
	if err != nil {
		return false, err
	}
	return now.Before(at), nil
}

// Parse interprets a stored competition date.
func (g TimeGate) Parse(scheduledAt string) (time.Time, error) {
	layout := g.Layout
	if layout == "" {
		layout = DateLayout
	}
	loc := g.Location
	if loc == nil {
		loc = time.Local
	}
	at, err := time.ParseInLocation(layout, scheduledAt, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w %q: %v", ErrInvalidDate, scheduledAt, err)
	}
	return at, nil
}

// FormatDate renders t in the stored competition date format.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}
