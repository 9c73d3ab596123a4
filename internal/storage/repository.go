package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"spese-analytics/internal/core"
	"spese-analytics/internal/ledger"
	"spese-analytics/internal/source"

	_ "modernc.org/sqlite"
)

var _ source.Source = (*SQLiteRepository)(nil)

// SQLiteRepository is a ledger kept in a local SQLite file. Grouping and
// summing happen in SQL.
type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
	now     func() time.Time
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	version, err := RunMigrations(dbPath)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	slog.Info("SQLite schema ready", "db_path", dbPath, "version", version)

	return &SQLiteRepository{
		db:      db,
		queries: New(db),
		now:     time.Now,
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func stamp(t time.Time) string { return t.UTC().Format(core.ISOLayout) }

func toCore(e Expense) (core.Expense, error) {
	date, err := time.Parse(core.ISOLayout, e.SpentAt)
	if err != nil {
		return core.Expense{}, fmt.Errorf("expense %d: bad spent_at %q: %w", e.ID, e.SpentAt, err)
	}
	tags := []string{}
	if e.Tags != "" {
		tags = strings.Split(e.Tags, tagSeparator)
	}
	return core.Expense{
		ID:          strconv.FormatInt(e.ID, 10),
		Amount:      core.Money{Cents: e.AmountCents},
		Category:    e.Category,
		PaymentMode: e.PaymentMode,
		Tags:        tags,
		Remarks:     e.Remarks,
		Date:        date.UTC(),
		Type:        core.ExpenseType(e.Type),
	}, nil
}

func toCoreAll(rows []Expense) ([]core.Expense, error) {
	out := make([]core.Expense, 0, len(rows))
	for _, row := range rows {
		e, err := toCore(row)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

func toBreakdown(rows []NameTotal) core.Breakdown {
	out := make(core.Breakdown, 0, len(rows))
	for _, row := range rows {
		out = append(out, core.BreakdownEntry{Name: row.Name, Total: core.Money{Cents: row.TotalAmount}.Float()})
	}
	return out
}

func (r *SQLiteRepository) ReadBreakdown(ctx context.Context, rng core.ResolvedRange) (core.AnalyticsBreakdown, error) {
	start, end := stamp(rng.Start), stamp(rng.End)

	byCategory, err := r.queries.SumByCategory(ctx, start, end)
	if err != nil {
		return core.AnalyticsBreakdown{}, fmt.Errorf("sum by category: %w", err)
	}
	byPayment, err := r.queries.SumByPaymentMode(ctx, start, end)
	if err != nil {
		return core.AnalyticsBreakdown{}, fmt.Errorf("sum by payment mode: %w", err)
	}
	byTag, err := r.queries.SumByTag(ctx, start, end)
	if err != nil {
		return core.AnalyticsBreakdown{}, fmt.Errorf("sum by tag: %w", err)
	}

	return core.AnalyticsBreakdown{
		ByCategory:    toBreakdown(byCategory),
		ByPaymentMode: toBreakdown(byPayment),
		ByTag:         toBreakdown(byTag),
	}, nil
}

func (r *SQLiteRepository) ReadTimeseries(ctx context.Context, rng core.ResolvedRange) ([]core.TimeseriesPoint, error) {
	rows, err := r.queries.DailyTotals(ctx, stamp(rng.Start), stamp(rng.End))
	if err != nil {
		return nil, fmt.Errorf("daily totals: %w", err)
	}
	out := make([]core.TimeseriesPoint, 0, len(rows))
	for _, row := range rows {
		out = append(out, core.TimeseriesPoint{Date: row.Name, Total: core.Money{Cents: row.TotalAmount}.Float()})
	}
	return out, nil
}

func (r *SQLiteRepository) ReadStats(ctx context.Context) (core.Stats, error) {
	now := r.now().UTC()
	som := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	soy := time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
	month := core.MonthOf(now)

	var (
		cents [6]int64
		err   error
	)
	steps := []func() error{
		func() (e error) { cents[0], e = r.queries.SumIncome(ctx, month); return },
		func() (e error) { cents[1], e = r.queries.SumIncome(ctx, month[:5]+"%"); return },
		func() (e error) {
			cents[2], e = r.queries.SumExpensesByType(ctx, string(core.TypeInvestment), stamp(som), stamp(now))
			return
		},
		func() (e error) {
			cents[3], e = r.queries.SumExpensesByType(ctx, string(core.TypeInvestment), stamp(soy), stamp(now))
			return
		},
		func() (e error) {
			cents[4], e = r.queries.SumExpensesByType(ctx, string(core.TypeExpense), stamp(som), stamp(now))
			return
		},
		func() (e error) {
			cents[5], e = r.queries.SumExpensesByType(ctx, string(core.TypeExpense), stamp(soy), stamp(now))
			return
		},
	}
	for _, step := range steps {
		if err = step(); err != nil {
			return core.Stats{}, fmt.Errorf("read stats: %w", err)
		}
	}

	f := func(c int64) float64 { return core.Money{Cents: c}.Float() }
	return core.Stats{
		MTDIncome:      f(cents[0]),
		YTDIncome:      f(cents[1]),
		MTDInvestments: f(cents[2]),
		YTDInvestments: f(cents[3]),
		MTDExpenses:    f(cents[4]),
		YTDExpenses:    f(cents[5]),
	}, nil
}

func (r *SQLiteRepository) ReadCategoryTrend(ctx context.Context, category string, t core.TrendType) ([]core.CategoryTrendPoint, error) {
	now := r.now().UTC()
	firstYear := now.Year()
	if t == core.TrendYearly {
		y, err := r.queries.FirstCategoryYear(ctx, category)
		if err != nil {
			return nil, fmt.Errorf("first category year: %w", err)
		}
		if y > 0 && y < firstYear {
			firstYear = y
		}
	}
	labels, layout := ledger.TrendLabels(t, now, firstYear)

	start, err := time.Parse(layout, labels[0])
	if err != nil {
		return nil, fmt.Errorf("trend start %q: %w", labels[0], err)
	}
	rows, err := r.queries.CategoryBuckets(ctx, len(layout), category, stamp(start), stamp(now))
	if err != nil {
		return nil, fmt.Errorf("category buckets: %w", err)
	}
	sums := make(map[string]int64, len(rows))
	for _, row := range rows {
		sums[row.Name] = row.TotalAmount
	}
	return ledger.FillTrend(labels, sums), nil
}

func (r *SQLiteRepository) ListRecent(ctx context.Context, limit int) ([]core.Expense, error) {
	rows, err := r.queries.ListRecentExpenses(ctx, int64(limit))
	if err != nil {
		return nil, fmt.Errorf("list recent expenses: %w", err)
	}
	return toCoreAll(rows)
}

func (r *SQLiteRepository) writeTags(ctx context.Context, q *Queries, id int64, tags []string) error {
	if err := q.DeleteExpenseTags(ctx, id); err != nil {
		return fmt.Errorf("clear tags: %w", err)
	}
	for i, tag := range core.NormalizeTags(tags) {
		if err := q.InsertExpenseTag(ctx, id, tag, int64(i)); err != nil {
			return fmt.Errorf("insert tag %q: %w", tag, err)
		}
	}
	return nil
}

func (r *SQLiteRepository) inTx(ctx context.Context, fn func(q *Queries) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(r.queries.WithTx(tx)); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

// CreateExpense stores e dated now unless it carries a date.
func (r *SQLiteRepository) CreateExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}
	if e.Date.IsZero() {
		e.Date = r.now()
	}
	if e.Type == "" {
		e.Type = core.TypeForCategory(e.Category)
	}

	var id int64
	err := r.inTx(ctx, func(q *Queries) error {
		var err error
		id, err = q.CreateExpense(ctx, CreateExpenseParams{
			SpentAt:     stamp(e.Date),
			AmountCents: e.Amount.Cents,
			Category:    e.Category,
			PaymentMode: e.PaymentMode,
			Remarks:     e.Remarks,
			Type:        string(e.Type),
		})
		if err != nil {
			return fmt.Errorf("create expense: %w", err)
		}
		return r.writeTags(ctx, q, id, e.Tags)
	})
	if err != nil {
		return core.Expense{}, err
	}

	saved, err := r.queries.GetExpense(ctx, id)
	if err != nil {
		return core.Expense{}, fmt.Errorf("get expense by id: %w", err)
	}

	slog.InfoContext(ctx, "Expense saved to SQLite",
		"id", saved.ID,
		"amount_cents", saved.AmountCents,
		"category", saved.Category,
		"spent_at", saved.SpentAt)

	return toCore(saved)
}

// UpdateExpense replaces the editable fields of a record; its date is kept.
func (r *SQLiteRepository) UpdateExpense(ctx context.Context, id string, e core.Expense) error {
	if err := e.Validate(); err != nil {
		return err
	}
	rowID, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return fmt.Errorf("expense %q: %w", id, core.ErrNotFound)
	}
	if e.Type == "" {
		e.Type = core.TypeForCategory(e.Category)
	}

	return r.inTx(ctx, func(q *Queries) error {
		n, err := q.UpdateExpense(ctx, UpdateExpenseParams{
			AmountCents: e.Amount.Cents,
			Category:    e.Category,
			PaymentMode: e.PaymentMode,
			Remarks:     e.Remarks,
			Type:        string(e.Type),
			ID:          rowID,
		})
		if err != nil {
			return fmt.Errorf("update expense: %w", err)
		}
		if n == 0 {
			return fmt.Errorf("expense %q: %w", id, core.ErrNotFound)
		}
		return r.writeTags(ctx, q, rowID, e.Tags)
	})
}

func (r *SQLiteRepository) SetIncome(ctx context.Context, in core.Income) error {
	if in.Month == "" {
		in.Month = core.MonthOf(r.now())
	}
	if err := in.Validate(); err != nil {
		return err
	}
	if err := r.queries.UpsertIncome(ctx, in.Month, in.Amount.Cents, in.Source); err != nil {
		return fmt.Errorf("upsert income: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) ExportMonth(ctx context.Context, month string) ([]byte, error) {
	start, err := core.ParseMonth(month)
	if err != nil {
		return nil, err
	}
	rows, err := r.queries.ListExpensesBetween(ctx, stamp(start), stamp(start.AddDate(0, 1, 0)))
	if err != nil {
		return nil, fmt.Errorf("list month expenses: %w", err)
	}
	records, err := toCoreAll(rows)
	if err != nil {
		return nil, err
	}
	return ledger.ExportCSV(records)
}

func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// GetExpense retrieves a single expense by ID.
func (r *SQLiteRepository) GetExpense(ctx context.Context, id string) (core.Expense, error) {
	rowID, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return core.Expense{}, fmt.Errorf("expense %q: %w", id, core.ErrNotFound)
	}
	row, err := r.queries.GetExpense(ctx, rowID)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Expense{}, fmt.Errorf("expense %q: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.Expense{}, fmt.Errorf("get expense by id: %w", err)
	}
	return toCore(row)
}
