// Package source defines the ports through which the dashboard reads grouped
// totals from, and writes records to, its upstream ledger.
package source

import (
	"context"

	"spese-analytics/internal/core"
)

// Ports for outbound adapters.
type (
	// AnalyticsReader returns grouped totals for an absolute window. The
	// upstream does the grouping; callers only shape the result.
	AnalyticsReader interface {
		ReadBreakdown(ctx context.Context, r core.ResolvedRange) (core.AnalyticsBreakdown, error)
		ReadTimeseries(ctx context.Context, r core.ResolvedRange) ([]core.TimeseriesPoint, error)
	}

	StatsReader interface {
		ReadStats(ctx context.Context) (core.Stats, error)
	}

	TrendReader interface {
		ReadCategoryTrend(ctx context.Context, category string, t core.TrendType) ([]core.CategoryTrendPoint, error)
	}

	// ExpenseLister returns the most recent records, newest first.
	ExpenseLister interface {
		ListRecent(ctx context.Context, limit int) ([]core.Expense, error)
	}

	ExpenseWriter interface {
		CreateExpense(ctx context.Context, e core.Expense) (core.Expense, error)
		UpdateExpense(ctx context.Context, id string, e core.Expense) error
	}

	// IncomeWriter upserts the income of a month.
	IncomeWriter interface {
		SetIncome(ctx context.Context, in core.Income) error
	}

	// Exporter renders one month of non-investment records as CSV.
	Exporter interface {
		ExportMonth(ctx context.Context, month string) ([]byte, error)
	}

	// Pinger reports whether the upstream is reachable.
	Pinger interface {
		Ping(ctx context.Context) error
	}

	Source interface {
		AnalyticsReader
		StatsReader
		TrendReader
		ExpenseLister
		ExpenseWriter
		IncomeWriter
		Exporter
		Pinger
	}
)
