package analytics

import (
	"errors"
	"testing"
	"time"

	"spese-analytics/internal/core"
)

func TestResolve(t *testing.T) {
	cases := []struct {
		name  string
		key   core.RangeKey
		now   time.Time
		start time.Time
	}{
		{
			name:  "month to date",
			key:   core.MonthToDate,
			now:   time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC),
			start: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			name:  "last 30 days crosses leap february",
			key:   core.Last30Days,
			now:   time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
			start: time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC),
		},
		{
			name:  "last 90 days crosses year",
			key:   core.Last90Days,
			now:   time.Date(2024, 2, 15, 12, 30, 0, 0, time.UTC),
			start: time.Date(2023, 11, 17, 12, 30, 0, 0, time.UTC),
		},
		{
			name:  "year to date",
			key:   core.YearToDate,
			now:   time.Date(2024, 7, 4, 23, 59, 59, 0, time.UTC),
			start: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			name:  "month to date on the first at midnight",
			key:   core.MonthToDate,
			now:   time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
			start: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r, err := Resolve(tc.key, tc.now)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !r.Start.Equal(tc.start) {
				t.Errorf("start = %s, want %s", r.Start, tc.start)
			}
			if !r.End.Equal(tc.now) {
				t.Errorf("end = %s, want %s", r.End, tc.now)
			}
			if r.Start.After(r.End) {
				t.Errorf("start after end")
			}
		})
	}
}

func TestResolveUsesUTC(t *testing.T) {
	// 2024-03-01 01:00 in UTC+2 is still February in UTC.
	loc := time.FixedZone("UTC+2", 2*60*60)
	now := time.Date(2024, 3, 1, 1, 0, 0, 0, loc)
	r, err := Resolve(core.MonthToDate, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	if !r.Start.Equal(want) {
		t.Fatalf("start = %s, want %s", r.Start, want)
	}
	if r.StartISO() != "2024-02-01T00:00:00.000Z" {
		t.Fatalf("StartISO = %q", r.StartISO())
	}
	if r.EndISO() != "2024-02-29T23:00:00.000Z" {
		t.Fatalf("EndISO = %q", r.EndISO())
	}
}

func TestResolveInvalidKey(t *testing.T) {
	_, err := Resolve(core.RangeKey("lastWeek"), time.Now())
	if !errors.Is(err, core.ErrInvalidRangeKey) {
		t.Fatalf("expected ErrInvalidRangeKey, got %v", err)
	}
}

func TestRangeParams(t *testing.T) {
	r, _ := Resolve(core.MonthToDate, time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC))
	got := Build(RangeParams(r))
	want := "start=2024-03-01T00%3A00%3A00.000Z&end=2024-03-15T10%3A00%3A00.000Z"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}
