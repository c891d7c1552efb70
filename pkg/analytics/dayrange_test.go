package analytics_test

import (
	"testing"
	"time"

	"github.com/poh-analytics/pohx/pkg/analytics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDayRangeBounds(t *testing.T) {
	r, err := analytics.NewDayRange(
		time.Date(2024, 3, 1, 15, 30, 0, 0, time.UTC),
		time.Date(2024, 3, 3, 23, 59, 0, 0, time.UTC),
	)
	require.NoError(t, err)

	start, end := r.Bounds()
	assert.EqualValues(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC).Unix(), start)
	assert.EqualValues(t, time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC).Unix(), end)
	assert.Equal(t, 3, r.Days())
}

func TestDayRangeEdges(t *testing.T) {
	r, err := analytics.ParseDayRange("2024-02-20", "2024-03-05")
	require.NoError(t, err)

	endDay := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC).Unix()
	startDay := time.Date(2024, 2, 20, 0, 0, 0, 0, time.UTC).Unix()

	assert.True(t, r.Contains(startDay))
	assert.True(t, r.Contains(endDay), "last day is included")
	assert.False(t, r.Contains(endDay+24*60*60), "day after the range is excluded")
	assert.False(t, r.Contains(startDay-24*60*60))
}

func TestDayRangeRejectsInvertedRange(t *testing.T) {
	_, err := analytics.ParseDayRange("2024-03-05", "2024-03-01")
	require.ErrorIs(t, err, analytics.ErrInvalidRange)

	_, err = analytics.ParseDayRange("yesterday", "2024-03-01")
	require.ErrorIs(t, err, analytics.ErrInvalidRange)
}

func TestPreset(t *testing.T) {
	now := time.Date(2024, 3, 31, 18, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		days int
	}{
		{"7d", 7},
		{"30d", 30},
		{"90d", 90},
		{"all", 3650},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := analytics.Preset(tt.name, now)
			require.NoError(t, err)
			assert.Equal(t, time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC), r.End)
			assert.Equal(t, r.End.AddDate(0, 0, -tt.days), r.Start)
		})
	}

	_, err := analytics.Preset("1y", now)
	require.ErrorIs(t, err, analytics.ErrUnknownPreset)
}
