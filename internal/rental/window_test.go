package rental

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(d int) time.Time {
	return time.Date(2026, time.June, d, 0, 0, 0, 0, time.UTC)
}

func dayPtr(d int) *time.Time {
	t := day(d)
	return &t
}

func TestNewWindow(t *testing.T) {
	_, err := NewWindow(dayPtr(10), dayPtr(5))
	assert.ErrorIs(t, err, ErrInvalidInput)

	w, err := NewWindow(dayPtr(5), dayPtr(10))
	require.NoError(t, err)
	assert.False(t, w.Open())

	w, err = NewWindow(nil, nil)
	require.NoError(t, err)
	assert.True(t, w.Open())
}

func TestWindowOverlaps(t *testing.T) {
	tests := []struct {
		name       string
		w          DateWindow
		start, end time.Time
		want       bool
	}{
		{"inside", DateWindow{dayPtr(5), dayPtr(10)}, day(6), day(8), true},
		{"touching left bound is inclusive", DateWindow{dayPtr(5), dayPtr(10)}, day(1), day(5), true},
		{"touching right bound is inclusive", DateWindow{dayPtr(5), dayPtr(10)}, day(10), day(20), true},
		{"entirely before", DateWindow{dayPtr(5), dayPtr(10)}, day(1), day(4), false},
		{"entirely after", DateWindow{dayPtr(5), dayPtr(10)}, day(11), day(20), false},
		{"spanning", DateWindow{dayPtr(5), dayPtr(10)}, day(1), day(20), true},
		{"open from skips lower test", DateWindow{nil, dayPtr(10)}, day(1), day(2), true},
		{"open to skips upper test", DateWindow{dayPtr(5), nil}, day(11), day(20), true},
		{"fully open matches everything", DateWindow{}, day(1), day(2), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.w.Overlaps(tt.start, tt.end))
		})
	}
}

func TestRentalDays(t *testing.T) {
	assert.Equal(t, 1, RentalDays(day(5), day(5)), "same day bills one day")
	assert.Equal(t, 3, RentalDays(day(5), day(7)))
	assert.Equal(t, 0, RentalDays(day(7), day(5)), "inverted interval bills nothing")

	// Partial last day still counts from the whole-day floor.
	end := day(7).Add(6 * time.Hour)
	assert.Equal(t, 3, RentalDays(day(5), end))
}
