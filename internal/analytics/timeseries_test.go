package analytics

import (
	"errors"
	"math"
	"reflect"
	"testing"

	"spese-analytics/internal/core"
)

func TestNormalize(t *testing.T) {
	in := []core.TimeseriesPoint{
		{"2024-03-02", 10},
		{"2024-03-01", 5.5},
		{"2024-03-01", 1},
		{"2024-02-29", 0},
	}
	got, err := Normalize(in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(got, in) {
		t.Fatalf("order or duplicates changed: %v", got)
	}
	got[0].Total = 99
	if in[0].Total != 10 {
		t.Fatalf("result aliases input")
	}
}

func TestNormalizeEmpty(t *testing.T) {
	got, err := Normalize(nil)
	if err != nil || len(got) != 0 {
		t.Fatalf("got %v, %v", got, err)
	}
}

func TestNormalizeMalformed(t *testing.T) {
	cases := []struct {
		name   string
		points []core.TimeseriesPoint
		index  int
	}{
		{"month 13", []core.TimeseriesPoint{{"2024-13-01", 1}}, 0},
		{"february 30", []core.TimeseriesPoint{{"2024-03-01", 1}, {"2024-02-30", 1}}, 1},
		{"not leap year", []core.TimeseriesPoint{{"2023-02-29", 1}}, 0},
		{"short fields", []core.TimeseriesPoint{{"2024-3-1", 1}}, 0},
		{"timestamp", []core.TimeseriesPoint{{"2024-03-01T00:00:00Z", 1}}, 0},
		{"empty date", []core.TimeseriesPoint{{"", 1}}, 0},
		{"nan", []core.TimeseriesPoint{{"2024-03-01", 1}, {"2024-03-02", 2}, {"2024-03-03", math.NaN()}}, 2},
		{"inf", []core.TimeseriesPoint{{"2024-03-01", math.Inf(1)}}, 0},
		{"first bad wins", []core.TimeseriesPoint{{"2024-03-01", 1}, {"bad", 1}, {"2024-13-01", 1}}, 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Normalize(tc.points)
			if !errors.Is(err, core.ErrMalformedPoint) {
				t.Fatalf("expected ErrMalformedPoint, got %v", err)
			}
			var mpe *MalformedPointError
			if !errors.As(err, &mpe) {
				t.Fatalf("expected *MalformedPointError, got %T", err)
			}
			if mpe.Index != tc.index {
				t.Fatalf("index = %d, want %d", mpe.Index, tc.index)
			}
		})
	}
}
