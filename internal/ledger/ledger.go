// Package ledger answers the upstream questions (grouped totals, daily
// series, stats, trends, exports) for row-based ledgers that have no query
// engine of their own: the in-memory store and Google Sheets.
package ledger

import (
	"sort"
	"strconv"
	"time"

	"spese-analytics/internal/core"
)

// Breakdown groups non-investment records inside r by category, payment mode
// and tag. A record counts its full amount towards each of its tags. Groups
// are ordered by total descending, then by name.
func Breakdown(records []core.Expense, r core.ResolvedRange) core.AnalyticsBreakdown {
	byCat := newGroup()
	byPay := newGroup()
	byTag := newGroup()
	for _, e := range records {
		if e.Type == core.TypeInvestment || !r.Contains(e.Date) {
			continue
		}
		byCat.add(e.Category, e.Amount.Cents)
		byPay.add(e.PaymentMode, e.Amount.Cents)
		for _, t := range e.Tags {
			byTag.add(t, e.Amount.Cents)
		}
	}
	return core.AnalyticsBreakdown{
		ByCategory:    byCat.breakdown(),
		ByPaymentMode: byPay.breakdown(),
		ByTag:         byTag.breakdown(),
	}
}

// Timeseries sums non-investment records inside r per UTC day, ordered by
// date. Days without records are omitted.
func Timeseries(records []core.Expense, r core.ResolvedRange) []core.TimeseriesPoint {
	days := map[string]int64{}
	for _, e := range records {
		if e.Type == core.TypeInvestment || !r.Contains(e.Date) {
			continue
		}
		days[e.Date.UTC().Format(core.DayLayout)] += e.Amount.Cents
	}
	out := make([]core.TimeseriesPoint, 0, len(days))
	for d, cents := range days {
		out = append(out, core.TimeseriesPoint{Date: d, Total: core.Money{Cents: cents}.Float()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}

// Stats computes month-to-date and year-to-date totals at now.
func Stats(records []core.Expense, incomes []core.Income, now time.Time) core.Stats {
	now = now.UTC()
	som := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	soy := time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
	month := core.MonthOf(now)
	yearPrefix := month[:5]

	var st struct{ mtdInc, ytdInc, mtdInv, ytdInv, mtdExp, ytdExp int64 }
	for _, in := range incomes {
		if in.Month == month {
			st.mtdInc += in.Amount.Cents
		}
		if len(in.Month) == 7 && in.Month[:5] == yearPrefix {
			st.ytdInc += in.Amount.Cents
		}
	}
	for _, e := range records {
		d := e.Date.UTC()
		if d.Before(soy) || d.After(now) {
			continue
		}
		inMonth := !d.Before(som)
		if e.Type == core.TypeInvestment {
			st.ytdInv += e.Amount.Cents
			if inMonth {
				st.mtdInv += e.Amount.Cents
			}
			continue
		}
		st.ytdExp += e.Amount.Cents
		if inMonth {
			st.mtdExp += e.Amount.Cents
		}
	}
	f := func(c int64) float64 { return core.Money{Cents: c}.Float() }
	return core.Stats{
		MTDIncome:      f(st.mtdInc),
		YTDIncome:      f(st.ytdInc),
		MTDInvestments: f(st.mtdInv),
		YTDInvestments: f(st.ytdInv),
		MTDExpenses:    f(st.mtdExp),
		YTDExpenses:    f(st.ytdExp),
	}
}

// Trend windows.
const (
	TrendDays   = 30
	TrendMonths = 12
)

// TrendLabels returns the bucket labels of a category trend at now, oldest
// first, together with the time layout that formats a record into its label.
// Daily covers the last 30 days, monthly the last 12 months and yearly every
// year from firstYear up to now.
func TrendLabels(t core.TrendType, now time.Time, firstYear int) ([]string, string) {
	now = now.UTC()
	var labels []string
	switch t {
	case core.TrendMonthly:
		first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
		for i := TrendMonths - 1; i >= 0; i-- {
			labels = append(labels, first.AddDate(0, -i, 0).Format(core.MonthLayout))
		}
		return labels, core.MonthLayout
	case core.TrendYearly:
		if firstYear <= 0 || firstYear > now.Year() {
			firstYear = now.Year()
		}
		for y := firstYear; y <= now.Year(); y++ {
			labels = append(labels, strconv.Itoa(y))
		}
		return labels, "2006"
	default:
		today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
		for i := TrendDays - 1; i >= 0; i-- {
			labels = append(labels, today.AddDate(0, 0, -i).Format(core.DayLayout))
		}
		return labels, core.DayLayout
	}
}

// FillTrend turns per-label sums into trend points, reporting a zero amount
// for labels without records.
func FillTrend(labels []string, sums map[string]int64) []core.CategoryTrendPoint {
	out := make([]core.CategoryTrendPoint, 0, len(labels))
	for _, l := range labels {
		out = append(out, core.CategoryTrendPoint{Label: l, Amount: core.Money{Cents: sums[l]}.Float()})
	}
	return out
}

// CategoryTrend buckets the records of one category over the windows of
// TrendLabels. Empty buckets are reported with a zero amount.
func CategoryTrend(records []core.Expense, category string, t core.TrendType, now time.Time) []core.CategoryTrendPoint {
	now = now.UTC()
	firstYear := now.Year()
	for _, e := range records {
		if e.Category == category && e.Date.UTC().Year() < firstYear {
			firstYear = e.Date.UTC().Year()
		}
	}
	labels, layout := TrendLabels(t, now, firstYear)

	sums := make(map[string]int64, len(labels))
	for _, e := range records {
		if e.Category != category || e.Date.After(now) {
			continue
		}
		sums[e.Date.UTC().Format(layout)] += e.Amount.Cents
	}
	return FillTrend(labels, sums)
}

// Recent returns up to limit records, newest first. The input is not
// reordered.
func Recent(records []core.Expense, limit int) []core.Expense {
	out := make([]core.Expense, len(records))
	copy(out, records)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	if limit >= 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// InMonth returns the non-investment records dated in month (YYYY-MM),
// newest first.
func InMonth(records []core.Expense, month time.Time) []core.Expense {
	end := month.AddDate(0, 1, 0)
	var out []core.Expense
	for _, e := range records {
		if e.Type == core.TypeInvestment || e.Date.Before(month) || !e.Date.Before(end) {
			continue
		}
		out = append(out, e)
	}
	return Recent(out, -1)
}

type group struct {
	order []string
	cents map[string]int64
}

func newGroup() *group { return &group{cents: map[string]int64{}} }

func (g *group) add(name string, cents int64) {
	if _, ok := g.cents[name]; !ok {
		g.order = append(g.order, name)
	}
	g.cents[name] += cents
}

func (g *group) breakdown() core.Breakdown {
	out := make(core.Breakdown, 0, len(g.order))
	for _, name := range g.order {
		out = append(out, core.BreakdownEntry{Name: name, Total: core.Money{Cents: g.cents[name]}.Float()})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Total != out[j].Total {
			return out[i].Total > out[j].Total
		}
		return out[i].Name < out[j].Name
	})
	return out
}
