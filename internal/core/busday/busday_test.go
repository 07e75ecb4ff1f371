package busday

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func utc(y int, m time.Month, d, hour, min int) time.Time {
	return time.Date(y, m, d, hour, min, 0, 0, time.UTC)
}

func TestDay_BoundaryIsLocalMidnight(t *testing.T) {
	offset := DefaultOffset()

	tests := []struct {
		name string
		in   time.Time
		want time.Time
	}{
		{"morning stays same day", utc(2024, 3, 10, 8, 0), utc(2024, 3, 10, 0, 0)},
		{"just before local midnight", utc(2024, 3, 10, 18, 59), utc(2024, 3, 10, 0, 0)},
		{"local midnight rolls over", utc(2024, 3, 10, 19, 0), utc(2024, 3, 11, 0, 0)},
		{"late evening is next day", utc(2024, 3, 10, 21, 30), utc(2024, 3, 11, 0, 0)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, offset.Day(tt.in))
		})
	}
}

func TestDay_NegativeOffset(t *testing.T) {
	offset, err := ParseOffset("-03:00")
	require.NoError(t, err)

	// 02:00 UTC is still the previous evening at -03:00.
	assert.Equal(t, utc(2024, 3, 9, 0, 0), offset.Day(utc(2024, 3, 10, 2, 0)))
	assert.Equal(t, utc(2024, 3, 10, 0, 0), offset.Day(utc(2024, 3, 10, 3, 0)))
}

func TestSameDay(t *testing.T) {
	offset := DefaultOffset()

	assert.True(t, offset.SameDay(utc(2024, 3, 10, 8, 0), utc(2024, 3, 10, 18, 0)))
	assert.False(t, offset.SameDay(utc(2024, 3, 10, 18, 0), utc(2024, 3, 10, 21, 0)))
}

func TestParseOffset(t *testing.T) {
	valid := []struct {
		in   string
		secs int
	}{
		{"+05:00", 5 * 3600},
		{"-03:30", -(3*3600 + 30*60)},
		{"+00:00", 0},
	}
	for _, tt := range valid {
		t.Run(tt.in, func(t *testing.T) {
			offset, err := ParseOffset(tt.in)
			require.NoError(t, err)
			_, gotSecs := time.Now().In(offset.Location()).Zone()
			assert.Equal(t, tt.secs, gotSecs)
		})
	}

	invalid := []string{"", "05:00", "+5:00", "+05.00", "+15:00", "+05:60", "+aa:bb"}
	for _, in := range invalid {
		t.Run("invalid "+in, func(t *testing.T) {
			_, err := ParseOffset(in)
			assert.Error(t, err)
		})
	}
}

func TestLocation_ZeroValueFallsBack(t *testing.T) {
	var offset Offset
	assert.Equal(t, DefaultOffset().Day(utc(2024, 3, 10, 21, 0)), offset.Day(utc(2024, 3, 10, 21, 0)))
}
