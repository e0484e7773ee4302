package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func TestParseLookback(t *testing.T) {
	for in, want := range map[string]time.Duration{
		"30d":  30 * 24 * time.Hour,
		"2w":   14 * 24 * time.Hour,
		"1y":   365 * 24 * time.Hour,
		"36h":  36 * time.Hour,
		" 7D ": 7 * 24 * time.Hour,
		"all":  0,
		"":     0,
	} {
		got, err := ParseLookback(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	for _, bad := range []string{"0d", "-3d", "xd", "soon", "-1h"} {
		_, err := ParseLookback(bad)
		assert.Error(t, err, bad)
	}
}

func TestResolveWindowLookback(t *testing.T) {
	w, err := ResolveWindow(now, "30d", "", "")
	require.NoError(t, err)

	assert.Equal(t, now, w.End)
	assert.Equal(t, now.AddDate(0, 0, -30), w.Start)
	assert.False(t, w.Unbounded())
}

func TestResolveWindowAll(t *testing.T) {
	w, err := ResolveWindow(now, LookbackAll, "", "")
	require.NoError(t, err)

	assert.True(t, w.Unbounded())
	assert.Contains(t, w.String(), "all events until")
}

func TestResolveWindowCalendar(t *testing.T) {
	w, err := ResolveWindow(now, "1d", "2022-01-01", "2024-01-01T00:00:00+09:00")
	require.NoError(t, err)

	assert.Equal(t, time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC), w.Start)
	assert.Equal(t, time.Date(2023, 12, 31, 15, 0, 0, 0, time.UTC), w.End)
	assert.Equal(t, "2022-01-01T00:00:00Z ~ 2023-12-31T15:00:00Z", w.String())
}

func TestResolveWindowErrors(t *testing.T) {
	_, err := ResolveWindow(now, "", "2024-02-01", "2024-01-01")
	assert.ErrorContains(t, err, "not before")

	_, err = ResolveWindow(now, "", "01/02/2024", "")
	assert.ErrorContains(t, err, "invalid start")

	_, err = ResolveWindow(now, "", "", "tomorrow")
	assert.ErrorContains(t, err, "invalid end")

	// lookback "all" with an explicit end is still valid
	_, err = ResolveWindow(now, "all", "", "2024-01-01")
	assert.NoError(t, err)
}
