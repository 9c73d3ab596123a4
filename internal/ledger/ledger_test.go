package ledger

import (
	"reflect"
	"strings"
	"testing"
	"time"

	"spese-analytics/internal/core"
)

func day(y, m, d int) time.Time { return time.Date(y, time.Month(m), d, 12, 0, 0, 0, time.UTC) }

func rec(id string, cents int64, cat, pay string, date time.Time, tags ...string) core.Expense {
	return core.Expense{ID: id, Amount: core.Money{Cents: cents}, Category: cat, PaymentMode: pay, Date: date, Tags: tags, Type: core.TypeForCategory(cat)}
}

var sample = []core.Expense{
	rec("1", 1000, "Groceries", "UPI", day(2024, 3, 2), "food", "weekly"),
	rec("2", 2500, "Transport", "Cash", day(2024, 3, 3), "commute"),
	rec("3", 500, "Groceries", "Cash", day(2024, 3, 3), "food"),
	rec("4", 10000, "Investment", "Net Banking", day(2024, 3, 4)),
	rec("5", 700, "Healthcare", "UPI", day(2024, 2, 20)),
	rec("6", 300, "Groceries", "UPI", day(2023, 12, 31)),
}

func TestBreakdown(t *testing.T) {
	r := core.ResolvedRange{Start: day(2024, 3, 1), End: day(2024, 3, 15)}
	got := Breakdown(sample, r)

	wantCat := core.Breakdown{{Name: "Transport", Total: 25}, {Name: "Groceries", Total: 15}}
	if !reflect.DeepEqual(got.ByCategory, wantCat) {
		t.Errorf("ByCategory = %v, want %v", got.ByCategory, wantCat)
	}
	wantPay := core.Breakdown{{Name: "Cash", Total: 30}, {Name: "UPI", Total: 10}}
	if !reflect.DeepEqual(got.ByPaymentMode, wantPay) {
		t.Errorf("ByPaymentMode = %v, want %v", got.ByPaymentMode, wantPay)
	}
	wantTag := core.Breakdown{{Name: "commute", Total: 25}, {Name: "food", Total: 15}, {Name: "weekly", Total: 10}}
	if !reflect.DeepEqual(got.ByTag, wantTag) {
		t.Errorf("ByTag = %v, want %v", got.ByTag, wantTag)
	}
}

func TestTimeseries(t *testing.T) {
	r := core.ResolvedRange{Start: day(2024, 2, 1), End: day(2024, 3, 31)}
	got := Timeseries(sample, r)
	want := []core.TimeseriesPoint{
		{Date: "2024-02-20", Total: 7},
		{Date: "2024-03-02", Total: 10},
		{Date: "2024-03-03", Total: 30},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Timeseries = %v, want %v", got, want)
	}
}

func TestStats(t *testing.T) {
	incomes := []core.Income{
		{Amount: core.Money{Cents: 500000}, Month: "2024-03"},
		{Amount: core.Money{Cents: 450000}, Month: "2024-02"},
		{Amount: core.Money{Cents: 999999}, Month: "2023-12"},
	}
	got := Stats(sample, incomes, day(2024, 3, 10))
	want := core.Stats{
		MTDIncome:      5000,
		YTDIncome:      9500,
		MTDInvestments: 100,
		YTDInvestments: 100,
		MTDExpenses:    40,
		YTDExpenses:    47,
	}
	if got != want {
		t.Fatalf("Stats = %+v, want %+v", got, want)
	}
}

func TestCategoryTrend(t *testing.T) {
	now := day(2024, 3, 10)

	daily := CategoryTrend(sample, "Groceries", core.TrendDaily, now)
	if len(daily) != TrendDays {
		t.Fatalf("daily len = %d", len(daily))
	}
	if daily[len(daily)-1].Label != "2024-03-10" || daily[0].Label != "2024-02-10" {
		t.Fatalf("daily window = %s..%s", daily[0].Label, daily[len(daily)-1].Label)
	}
	var sum float64
	for _, p := range daily {
		sum += p.Amount
	}
	if sum != 15 {
		t.Fatalf("daily sum = %v", sum)
	}

	monthly := CategoryTrend(sample, "Groceries", core.TrendMonthly, now)
	if len(monthly) != TrendMonths || monthly[11].Label != "2024-03" || monthly[11].Amount != 15 || monthly[8].Amount != 3 {
		t.Fatalf("monthly = %v", monthly)
	}

	yearly := CategoryTrend(sample, "Groceries", core.TrendYearly, now)
	want := []core.CategoryTrendPoint{{Label: "2023", Amount: 3}, {Label: "2024", Amount: 15}}
	if !reflect.DeepEqual(yearly, want) {
		t.Fatalf("yearly = %v, want %v", yearly, want)
	}
}

func TestRecentAndInMonth(t *testing.T) {
	got := Recent(sample, 2)
	if len(got) != 2 || got[0].ID != "4" || got[1].ID != "2" {
		t.Fatalf("Recent = %v", got)
	}
	if sample[0].ID != "1" {
		t.Fatal("Recent reordered its input")
	}

	march := InMonth(sample, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC))
	ids := make([]string, 0, len(march))
	for _, e := range march {
		ids = append(ids, e.ID)
	}
	if strings.Join(ids, ",") != "2,3,1" {
		t.Fatalf("InMonth ids = %v", ids)
	}
}

func TestExportCSV(t *testing.T) {
	rows := []core.Expense{
		{Date: day(2024, 3, 3), Category: "Bills & Utilities", PaymentMode: "UPI", Amount: core.Money{Cents: 1250}, Tags: []string{"power", "home"}, Remarks: "march, late"},
		{Date: day(2024, 3, 1), Category: "Groceries", PaymentMode: "Cash", Amount: core.Money{Cents: 4000}},
	}
	out, err := ExportCSV(rows)
	if err != nil {
		t.Fatal(err)
	}
	want := "Date,Category,Payment Mode,Amount,Tags,Remarks\n" +
		"2024-03-03,Bills & Utilities,UPI,12.5,\"power, home\",\"march, late\"\n" +
		"2024-03-01,Groceries,Cash,40,,\n"
	if string(out) != want {
		t.Fatalf("ExportCSV =\n%s\nwant\n%s", out, want)
	}
	if ExportFilename("2024-03") != "expenses-2024-03.csv" {
		t.Fatal("unexpected filename")
	}
}

func TestTrendLabels(t *testing.T) {
	now := time.Date(2024, 3, 10, 8, 0, 0, 0, time.UTC)
	tests := []struct {
		name      string
		trend     core.TrendType
		firstYear int
		wantLen   int
		first     string
		last      string
		layout    string
	}{
		{"daily", core.TrendDaily, 0, TrendDays, "2024-02-10", "2024-03-10", core.DayLayout},
		{"monthly", core.TrendMonthly, 0, TrendMonths, "2023-04", "2024-03", core.MonthLayout},
		{"yearly from first record", core.TrendYearly, 2021, 4, "2021", "2024", "2006"},
		{"yearly without records", core.TrendYearly, 0, 1, "2024", "2024", "2006"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			labels, layout := TrendLabels(tt.trend, now, tt.firstYear)
			if len(labels) != tt.wantLen || labels[0] != tt.first || labels[len(labels)-1] != tt.last {
				t.Fatalf("labels = %v", labels)
			}
			if layout != tt.layout {
				t.Errorf("layout = %q, want %q", layout, tt.layout)
			}
		})
	}
}
