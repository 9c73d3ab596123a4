package core

import "testing"

func TestParseDecimalToCents(t *testing.T) {
	cases := []struct {
		in  string
		out int64
		ok  bool
	}{
		{"1", 100, true},
		{"1.0", 100, true},
		{"1.23", 123, true},
		{"1,23", 123, true},
		{"0.01", 1, true},
		{"1.005", 101, true}, // half-up rounding
		{" 2.50 ", 250, true},
		{"-1", 0, false},
		{"0", 0, false},
		{"abc", 0, false},
		{"1.2.3", 0, false},
		{"", 0, false},
	}
	for _, tc := range cases {
		got, err := ParseDecimalToCents(tc.in)
		if tc.ok {
			if err != nil || got != tc.out {
				t.Fatalf("%q expected %d, got %d (err=%v)", tc.in, tc.out, got, err)
			}
		} else {
			if err == nil {
				t.Fatalf("%q expected error", tc.in)
			}
		}
	}
}

func TestMoneyFromFloat(t *testing.T) {
	cases := []struct {
		in   float64
		want int64
		str  string
	}{
		{12.34, 1234, "12.34"},
		{0.005, 1, "0.01"},
		{100, 10000, "100.00"},
		{0, 0, "0.00"},
	}
	for _, tc := range cases {
		m := MoneyFromFloat(tc.in)
		if m.Cents != tc.want {
			t.Fatalf("MoneyFromFloat(%v) = %d, want %d", tc.in, m.Cents, tc.want)
		}
		if m.String() != tc.str {
			t.Fatalf("String() = %q, want %q", m.String(), tc.str)
		}
	}
}
