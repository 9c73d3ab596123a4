package memory

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"spese-analytics/internal/core"
)

const seedYAML = `
expenses:
  - amount: 12.5
    category: Groceries
    payment_mode: UPI
    tags: [food, " food ", weekly]
    date: "2024-03-02"
  - amount: 100
    category: Investment
    payment_mode: Net Banking
    date: "2024-03-04"
  - amount: 30
    category: Transport
    payment_mode: Cash
    date: "2024-02-10"
incomes:
  - month: "2024-03"
    amount: 5000
    source: Salary
`

func fixedStore(t *testing.T) *Store {
	t.Helper()
	s := New()
	s.now = func() time.Time { return time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC) }
	if err := s.Load([]byte(seedYAML)); err != nil {
		t.Fatalf("Load: %v", err)
	}
	return s
}

func TestLoadSeed(t *testing.T) {
	s := fixedStore(t)
	items, _ := s.ListRecent(context.Background(), 10)
	if len(items) != 3 {
		t.Fatalf("got %d items", len(items))
	}
	if items[0].Type != core.TypeInvestment {
		t.Errorf("investment type not inferred: %+v", items[0])
	}
	if got := strings.Join(items[1].Tags, ","); got != "food,weekly" {
		t.Errorf("tags not normalized: %q", got)
	}
}

func TestLoadSeedErrors(t *testing.T) {
	cases := map[string]string{
		"bad yaml":   "expenses: [",
		"bad date":   "expenses:\n  - {amount: 1, category: c, payment_mode: p, date: 2024-13-01}",
		"bad amount": "expenses:\n  - {amount: 0, category: c, payment_mode: p, date: 2024-01-01}",
		"bad month":  "incomes:\n  - {month: 2024/01, amount: 1}",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			if err := New().Load([]byte(doc)); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestNewFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seed.yaml")
	if err := os.WriteFile(path, []byte(seedYAML), 0o600); err != nil {
		t.Fatal(err)
	}
	s, err := NewFromFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if items, _ := s.ListRecent(context.Background(), 100); len(items) != 3 {
		t.Fatalf("got %d items", len(items))
	}
	if _, err := NewFromFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
	if s, err := NewFromFile(""); err != nil || s == nil {
		t.Fatalf("empty path should give empty store: %v", err)
	}
}

func TestStoreAnalytics(t *testing.T) {
	ctx := context.Background()
	s := fixedStore(t)
	r := core.ResolvedRange{Start: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), End: s.now()}

	b, err := s.ReadBreakdown(ctx, r)
	if err != nil {
		t.Fatal(err)
	}
	if len(b.ByCategory) != 1 || b.ByCategory[0].Name != "Groceries" || b.ByCategory[0].Total != 12.5 {
		t.Fatalf("ByCategory = %v", b.ByCategory)
	}

	series, _ := s.ReadTimeseries(ctx, r)
	if len(series) != 1 || series[0].Date != "2024-03-02" {
		t.Fatalf("series = %v", series)
	}

	st, _ := s.ReadStats(ctx)
	if st.MTDIncome != 5000 || st.MTDInvestments != 100 || st.MTDExpenses != 12.5 || st.YTDExpenses != 42.5 {
		t.Fatalf("stats = %+v", st)
	}
}

func TestStoreWrites(t *testing.T) {
	ctx := context.Background()
	s := fixedStore(t)

	created, err := s.CreateExpense(ctx, core.Expense{Amount: core.Money{Cents: 999}, Category: "Other", PaymentMode: "Cash", Type: core.TypeExpense})
	if err != nil {
		t.Fatal(err)
	}
	if created.ID == "" || !created.Date.Equal(s.now()) {
		t.Fatalf("created = %+v", created)
	}

	upd := created
	upd.Amount = core.Money{Cents: 1999}
	upd.Remarks = "fixed"
	if err := s.UpdateExpense(ctx, created.ID, upd); err != nil {
		t.Fatal(err)
	}
	items, _ := s.ListRecent(ctx, 1)
	if items[0].Amount.Cents != 1999 || items[0].Remarks != "fixed" {
		t.Fatalf("update not applied: %+v", items[0])
	}
	if err := s.UpdateExpense(ctx, "nope", upd); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := s.CreateExpense(ctx, core.Expense{}); err == nil {
		t.Fatal("expected validation error")
	}

	if err := s.SetIncome(ctx, core.Income{Amount: core.Money{Cents: 700000}, Source: "Bonus"}); err != nil {
		t.Fatal(err)
	}
	st, _ := s.ReadStats(ctx)
	if st.MTDIncome != 7000 {
		t.Fatalf("income not upserted for current month: %+v", st)
	}
}

func TestStoreExportMonth(t *testing.T) {
	s := fixedStore(t)
	out, err := s.ExportMonth(context.Background(), "2024-03")
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected header and one row, got %q", out)
	}
	if !strings.HasPrefix(lines[1], "2024-03-02,Groceries,UPI,12.5,") {
		t.Fatalf("row = %q", lines[1])
	}
	if _, err := s.ExportMonth(context.Background(), "2024-3"); !errors.Is(err, core.ErrInvalidMonth) {
		t.Fatalf("expected ErrInvalidMonth, got %v", err)
	}
}
