package booking_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/places-engine/booking"
)

func TestTimeGate_IsOpen(t *testing.T) {
	gate := booking.TimeGate{Layout: booking.DateLayout, Location: time.UTC}
	now := time.Date(2025, 3, 10, 9, 30, 0, 0, time.UTC)

	tests := []struct {
		name string
		date string
		want bool
	}{
		{"tomorrow", "2025-03-11 09:30:00", true},
		{"one second ahead", "2025-03-10 09:30:01", true},
		{"exactly now", "2025-03-10 09:30:00", false},
		{"yesterday", "2025-03-09 10:00:00", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			open, err := gate.IsOpen(tt.date, now)
			require.NoError(t, err)
			assert.Equal(t, tt.want, open)
		})
	}
}

func TestTimeGate_InvalidDateIsClosed(t *testing.T) {
	gate := booking.DefaultTimeGate()

	for _, date := range []string{"", "2025-03-10", "10/03/2025 09:30:00", "2025-13-40 99:00:00"} {
		open, err := gate.IsOpen(date, time.Now())
		assert.False(t, open, date)
		assert.ErrorIs(t, err, booking.ErrInvalidDate, date)
	}
}

func TestFormatDate_RoundTrips(t *testing.T) {
	gate := booking.TimeGate{Location: time.UTC}
	at := time.Date(2026, 10, 22, 13, 30, 0, 0, time.UTC)

	parsed, err := gate.Parse(booking.FormatDate(at))

	require.NoError(t, err)
	assert.True(t, at.Equal(parsed))
	assert.Equal(t, "2026-10-22 13:30:00", booking.FormatDate(at))
}
