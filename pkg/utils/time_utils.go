package utils

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DateLayout is the calendar date format accepted for window bounds
const DateLayout = "2006-01-02"

// LookbackAll disables the lower window bound
const LookbackAll = "all"

// Window is a time range [Start, End). A zero Start means unbounded.
type Window struct {
	Start time.Time
	End   time.Time
}

// Unbounded reports whether the window has no lower bound
func (w Window) Unbounded() bool {
	return w.Start.IsZero()
}

// String formats the window for progress output
func (w Window) String() string {
	if w.Unbounded() {
		return fmt.Sprintf("all events until %s", w.End.Format(time.RFC3339))
	}
	return fmt.Sprintf("%s ~ %s", w.Start.Format(time.RFC3339), w.End.Format(time.RFC3339))
}

// ParseLookback parses a lookback period. Besides Go durations ("36h") it
// accepts day, week and year suffixes ("30d", "2w", "3y") and "all".
// "all" returns 0.
func ParseLookback(s string) (time.Duration, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "" || s == LookbackAll {
		return 0, nil
	}

	units := map[byte]time.Duration{
		'd': 24 * time.Hour,
		'w': 7 * 24 * time.Hour,
		'y': 365 * 24 * time.Hour,
	}
	if unit, ok := units[s[len(s)-1]]; ok {
		n, err := strconv.Atoi(s[:len(s)-1])
		if err != nil || n <= 0 {
			return 0, fmt.Errorf("invalid lookback %q", s)
		}
		return time.Duration(n) * unit, nil
	}

	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid lookback %q", s)
	}
	return d, nil
}

// ResolveWindow builds the query window. A calendar window (start/end as
// YYYY-MM-DD or RFC3339) wins over the lookback; an empty end means now.
func ResolveWindow(now time.Time, lookback, start, end string) (Window, error) {
	w := Window{End: now.UTC()}

	if end != "" {
		t, err := parseBound(end)
		if err != nil {
			return Window{}, fmt.Errorf("invalid end %q: %w", end, err)
		}
		w.End = t
	}

	if start != "" {
		t, err := parseBound(start)
		if err != nil {
			return Window{}, fmt.Errorf("invalid start %q: %w", start, err)
		}
		w.Start = t
	} else {
		d, err := ParseLookback(lookback)
		if err != nil {
			return Window{}, err
		}
		if d > 0 {
			w.Start = w.End.Add(-d)
		}
	}

	if !w.Unbounded() && !w.Start.Before(w.End) {
		return Window{}, fmt.Errorf("window start %s is not before end %s",
			w.Start.Format(time.RFC3339), w.End.Format(time.RFC3339))
	}
	return w, nil
}

func parseBound(s string) (time.Time, error) {
	if t, err := time.Parse(DateLayout, s); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}
