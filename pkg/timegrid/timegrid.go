// Package timegrid builds the ordered, time-zone aware sampling instants that
// the solar position engine and the tracker solver are evaluated on.
package timegrid

import (
	"fmt"
	"time"
	_ "time/tzdata" // zone lookups must not depend on the host's zoneinfo

	"github.com/chrissnell/suntrack/pkg/calcerr"
)

// DefaultStep is the sampling cadence used when the caller does not set one
const DefaultStep = 5 * time.Minute

// MaxInstants is the hard ceiling on the size of one grid, whatever limit the
// caller configures: ten years at the default step
const MaxInstants = 1051200

// Layout is the canonical wall-clock format for start and end
const Layout = "2006-01-02 15:04"

// Accepted layouts, tried in order. Date-only input means local midnight.
var layouts = []string{
	Layout,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// LoadLocation resolves an IANA zone name, reporting failures as configuration errors
func LoadLocation(tz string) (*time.Location, error) {
	if tz == "" {
		return nil, calcerr.Config("tz", "time zone is required")
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, calcerr.ConfigWrap("tz", "unknown time zone "+tz, err)
	}
	return loc, nil
}

// ParseWallClock parses a local wall-clock string in loc.
// field names the input in the returned ParseError.
func ParseWallClock(field, value string, loc *time.Location) (time.Time, error) {
	var firstErr error
	for _, layout := range layouts {
		t, err := time.ParseInLocation(layout, value, loc)
		if err == nil {
			return t, nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return time.Time{}, calcerr.Parse(field, value, firstErr)
}

// Build returns every instant from start to end inclusive, spaced by step.
// An end before start yields an empty, non-nil slice.
func Build(start, end, tz string, step time.Duration) ([]time.Time, error) {
	loc, err := LoadLocation(tz)
	if err != nil {
		return nil, err
	}

	from, err := ParseWallClock("start", start, loc)
	if err != nil {
		return nil, err
	}
	to, err := ParseWallClock("end", end, loc)
	if err != nil {
		return nil, err
	}

	return Range(from, to, step)
}

// Range is Build for already-resolved instants
func Range(from, to time.Time, step time.Duration) ([]time.Time, error) {
	n, err := Count(from, to, step)
	if err != nil {
		return nil, err
	}
	if n > MaxInstants {
		return nil, calcerr.Config("window", fmt.Sprintf("%d instants exceeds the limit of %d", n, MaxInstants))
	}

	grid := make([]time.Time, 0, n)
	for i := 0; i < n; i++ {
		grid = append(grid, from.Add(time.Duration(i)*step))
	}
	return grid, nil
}

// Count returns how many instants Range would produce without allocating
// them. A span too long to be measured as a time.Duration (about 292 years)
// is rejected rather than truncated.
func Count(from, to time.Time, step time.Duration) (int, error) {
	if step <= 0 {
		return 0, calcerr.Config("step", "must be positive")
	}
	if to.Before(from) {
		return 0, nil
	}

	span := to.Sub(from)
	if !from.Add(span).Equal(to) {
		return 0, calcerr.Config("window", "span is too long")
	}
	n := span / step
	if n >= MaxInstants {
		return MaxInstants + 1, nil
	}
	return int(n) + 1, nil
}
