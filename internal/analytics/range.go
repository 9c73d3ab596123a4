// Package analytics turns a relative range key into an upstream query and
// shapes the grouped totals and daily series that come back.
//
// Everything here is pure: the current time is always passed in and inputs
// are never mutated, so the functions are safe for concurrent use.
package analytics

import (
	"fmt"
	"time"

	"spese-analytics/internal/core"
)

// Resolve converts key into an absolute window ending at now.
//
// Rolling windows use calendar subtraction, so last30Days resolved at
// 2024-03-01T00:00Z starts at 2024-01-31T00:00Z. Month and year windows start
// at midnight UTC on the first day of now's month or year.
func Resolve(key core.RangeKey, now time.Time) (core.ResolvedRange, error) {
	now = now.UTC()
	var start time.Time
	switch key {
	case core.Last30Days:
		start = now.AddDate(0, 0, -30)
	case core.Last90Days:
		start = now.AddDate(0, 0, -90)
	case core.MonthToDate:
		start = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	case core.YearToDate:
		start = time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
	default:
		return core.ResolvedRange{}, fmt.Errorf("resolve: %w: %q", core.ErrInvalidRangeKey, key)
	}
	return core.ResolvedRange{Key: key, Start: start, End: now}, nil
}

// RangeParams returns the start/end query parameters for r.
func RangeParams(r core.ResolvedRange) Params {
	return Params{
		{Key: "start", Value: r.StartISO()},
		{Key: "end", Value: r.EndISO()},
	}
}
