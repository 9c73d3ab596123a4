package analytics

import (
	"fmt"
	"math"
	"time"

	"spese-analytics/internal/core"
)

// MalformedPointError reports the first invalid point of a series.
type MalformedPointError struct {
	Index  int
	Date   string
	Reason string
}

func (e *MalformedPointError) Error() string {
	return fmt.Sprintf("malformed time-series point at index %d (date %q): %s", e.Index, e.Date, e.Reason)
}

func (e *MalformedPointError) Unwrap() error { return core.ErrMalformedPoint }

// Normalize validates every point and returns a copy in the same order.
// Dates must be real calendar days in YYYY-MM-DD form and totals must be
// finite. Points are neither re-sorted nor merged.
func Normalize(points []core.TimeseriesPoint) ([]core.TimeseriesPoint, error) {
	out := make([]core.TimeseriesPoint, len(points))
	for i, p := range points {
		if err := checkPoint(p); err != "" {
			return nil, &MalformedPointError{Index: i, Date: p.Date, Reason: err}
		}
		out[i] = p
	}
	return out, nil
}

func checkPoint(p core.TimeseriesPoint) string {
	d, err := time.Parse(core.DayLayout, p.Date)
	if err != nil || d.Format(core.DayLayout) != p.Date {
		return "date is not a valid YYYY-MM-DD calendar day"
	}
	if math.IsNaN(p.Total) || math.IsInf(p.Total, 0) {
		return "total is not a finite number"
	}
	return ""
}
