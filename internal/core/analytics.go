package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	Last30Days  RangeKey = "last30Days"
	Last90Days  RangeKey = "last90Days"
	MonthToDate RangeKey = "monthToDate"
	YearToDate  RangeKey = "yearToDate"
)

const (
	TrendDaily   TrendType = "daily"
	TrendMonthly TrendType = "monthly"
	TrendYearly  TrendType = "yearly"
)

// OtherName labels the synthetic remainder entry of a capped breakdown.
const OtherName = "Other"

// ISOLayout is the instant format sent upstream as start/end.
const ISOLayout = "2006-01-02T15:04:05.000Z07:00"

// DayLayout is the YYYY-MM-DD layout of time-series points.
const DayLayout = "2006-01-02"

var (
	ErrInvalidRangeKey  = errors.New("invalid range key")
	ErrMalformedPoint   = errors.New("malformed time-series point")
	ErrInvalidTrendType = errors.New("invalid trend type")
)

type (
	// RangeKey names a relative reporting window.
	RangeKey string

	TrendType string

	// ResolvedRange is an absolute window. End is always the resolution time.
	ResolvedRange struct {
		Key   RangeKey
		Start time.Time
		End   time.Time
	}

	BreakdownEntry struct {
		Name  string  `json:"name"`
		Total float64 `json:"total"`
	}

	Breakdown []BreakdownEntry

	// AnalyticsBreakdown is the grouped-totals payload for one window.
	AnalyticsBreakdown struct {
		ByCategory    Breakdown `json:"byCategory"`
		ByPaymentMode Breakdown `json:"byPaymentMode"`
		ByTag         Breakdown `json:"byTag"`
	}

	TimeseriesPoint struct {
		Date  string  `json:"date"`
		Total float64 `json:"total"`
	}

	ShapedEntry struct {
		Name           string  `json:"name"`
		Total          float64 `json:"total"`
		PercentOfTotal int     `json:"percentOfTotal"`
	}

	// ShapedBreakdown is a display-ready breakdown. Total covers every raw
	// entry, including the ones hidden by a cap.
	ShapedBreakdown struct {
		Entries []ShapedEntry `json:"entries"`
		Total   float64       `json:"total"`
		Capped  bool          `json:"capped"`
		Hidden  int           `json:"hidden"`
	}

	CategoryTrendPoint struct {
		Label  string  `json:"label"`
		Amount float64 `json:"amount"`
	}
)

// RangeKeys lists the supported windows in display order.
var RangeKeys = []RangeKey{Last30Days, Last90Days, MonthToDate, YearToDate}

var rangeAliases = map[string]RangeKey{
	"30d": Last30Days,
	"90d": Last90Days,
	"mtd": MonthToDate,
	"ytd": YearToDate,
}

// ParseRangeKey accepts the canonical names and the short UI forms
// (30d, 90d, mtd, ytd).
func ParseRangeKey(s string) (RangeKey, error) {
	s = strings.TrimSpace(s)
	if k, ok := rangeAliases[strings.ToLower(s)]; ok {
		return k, nil
	}
	k := RangeKey(s)
	if !k.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidRangeKey, s)
	}
	return k, nil
}

func (k RangeKey) IsValid() bool {
	switch k {
	case Last30Days, Last90Days, MonthToDate, YearToDate:
		return true
	}
	return false
}

// Short returns the compact UI form of the key.
func (k RangeKey) Short() string {
	for alias, key := range rangeAliases {
		if key == k {
			return alias
		}
	}
	return string(k)
}

// Label is the human-readable window name.
func (k RangeKey) Label() string {
	switch k {
	case Last30Days:
		return "Last 30 days"
	case Last90Days:
		return "Last 90 days"
	case MonthToDate:
		return "Month to date"
	case YearToDate:
		return "Year to date"
	}
	return string(k)
}

// StartISO and EndISO format the bounds for the upstream query.
func (r ResolvedRange) StartISO() string { return r.Start.UTC().Format(ISOLayout) }
func (r ResolvedRange) EndISO() string   { return r.End.UTC().Format(ISOLayout) }

// Contains reports whether t falls inside [Start, End].
func (r ResolvedRange) Contains(t time.Time) bool {
	return !t.Before(r.Start) && !t.After(r.End)
}

func ParseTrendType(s string) (TrendType, error) {
	switch t := TrendType(strings.ToLower(strings.TrimSpace(s))); t {
	case TrendDaily, TrendMonthly, TrendYearly:
		return t, nil
	case "":
		return TrendDaily, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidTrendType, s)
}

// Sum returns the sum of all entry totals.
func (b Breakdown) Sum() float64 {
	var s float64
	for _, e := range b {
		s += e.Total
	}
	return s
}
