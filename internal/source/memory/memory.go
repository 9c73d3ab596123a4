// Package memory is an in-process ledger used for local development and
// tests. It answers analytics queries through the ledger package.
package memory

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"spese-analytics/internal/core"
	"spese-analytics/internal/ledger"
	"spese-analytics/internal/source"
)

var _ source.Source = (*Store)(nil)

type Store struct {
	mu      sync.Mutex
	items   []core.Expense
	incomes map[string]core.Income
	nextID  int
	now     func() time.Time
}

func New() *Store {
	return NewWithClock(time.Now)
}

// NewWithClock returns an empty store that dates new records and computes
// stats with now.
func NewWithClock(now func() time.Time) *Store {
	return &Store{incomes: map[string]core.Income{}, nextID: 1, now: now}
}

// seedFile is the YAML layout accepted by NewFromFile.
type seedFile struct {
	Expenses []struct {
		Amount      float64  `yaml:"amount"`
		Category    string   `yaml:"category"`
		PaymentMode string   `yaml:"payment_mode"`
		Tags        []string `yaml:"tags"`
		Remarks     string   `yaml:"remarks"`
		Date        string   `yaml:"date"`
		Type        string   `yaml:"type"`
	} `yaml:"expenses"`
	Incomes []struct {
		Month  string  `yaml:"month"`
		Amount float64 `yaml:"amount"`
		Source string  `yaml:"source"`
	} `yaml:"incomes"`
}

// NewFromFile builds a store from a YAML seed. An empty path yields an empty
// store.
func NewFromFile(path string) (*Store, error) {
	s := New()
	if path == "" {
		return s, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed: %w", err)
	}
	if err := s.Load(raw); err != nil {
		return nil, err
	}
	return s, nil
}

// Load adds the records of a YAML seed document.
func (s *Store) Load(raw []byte) error {
	var seed seedFile
	if err := yaml.Unmarshal(raw, &seed); err != nil {
		return fmt.Errorf("parse seed: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, x := range seed.Expenses {
		date, err := time.Parse(core.DayLayout, x.Date)
		if err != nil {
			return fmt.Errorf("seed expense %d: invalid date %q", i, x.Date)
		}
		e := core.Expense{
			Amount:      core.MoneyFromFloat(x.Amount),
			Category:    x.Category,
			PaymentMode: x.PaymentMode,
			Tags:        core.NormalizeTags(x.Tags),
			Remarks:     x.Remarks,
			Date:        date,
			Type:        core.ExpenseType(x.Type),
		}
		if e.Type == "" {
			e.Type = core.TypeForCategory(e.Category)
		}
		if err := e.Validate(); err != nil {
			return fmt.Errorf("seed expense %d: %w", i, err)
		}
		s.insertLocked(e)
	}
	for i, x := range seed.Incomes {
		in := core.Income{Amount: core.MoneyFromFloat(x.Amount), Source: x.Source, Month: x.Month}
		if _, err := core.ParseMonth(in.Month); err != nil {
			return fmt.Errorf("seed income %d: %w", i, err)
		}
		s.incomes[in.Month] = in
	}
	return nil
}

func (s *Store) insertLocked(e core.Expense) core.Expense {
	e.ID = "mem-" + strconv.Itoa(s.nextID)
	s.nextID++
	s.items = append(s.items, e)
	return e
}

func (s *Store) snapshot() []core.Expense {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.Expense(nil), s.items...)
}

func (s *Store) ReadBreakdown(_ context.Context, r core.ResolvedRange) (core.AnalyticsBreakdown, error) {
	return ledger.Breakdown(s.snapshot(), r), nil
}

func (s *Store) ReadTimeseries(_ context.Context, r core.ResolvedRange) ([]core.TimeseriesPoint, error) {
	return ledger.Timeseries(s.snapshot(), r), nil
}

func (s *Store) ReadStats(_ context.Context) (core.Stats, error) {
	s.mu.Lock()
	incomes := make([]core.Income, 0, len(s.incomes))
	for _, in := range s.incomes {
		incomes = append(incomes, in)
	}
	items := append([]core.Expense(nil), s.items...)
	s.mu.Unlock()
	return ledger.Stats(items, incomes, s.now()), nil
}

func (s *Store) ReadCategoryTrend(_ context.Context, category string, t core.TrendType) ([]core.CategoryTrendPoint, error) {
	return ledger.CategoryTrend(s.snapshot(), category, t, s.now()), nil
}

func (s *Store) ListRecent(_ context.Context, limit int) ([]core.Expense, error) {
	return ledger.Recent(s.snapshot(), limit), nil
}

// CreateExpense stores e dated now and returns it with its new ID.
func (s *Store) CreateExpense(_ context.Context, e core.Expense) (core.Expense, error) {
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}
	if e.Date.IsZero() {
		e.Date = s.now().UTC()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insertLocked(e), nil
}

// UpdateExpense replaces the editable fields of a record; its date is kept.
func (s *Store) UpdateExpense(_ context.Context, id string, e core.Expense) error {
	if err := e.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.items {
		if s.items[i].ID != id {
			continue
		}
		e.ID = id
		e.Date = s.items[i].Date
		s.items[i] = e
		return nil
	}
	return fmt.Errorf("expense %q: %w", id, core.ErrNotFound)
}

func (s *Store) SetIncome(_ context.Context, in core.Income) error {
	if in.Month == "" {
		in.Month = core.MonthOf(s.now())
	}
	if err := in.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.incomes[in.Month] = in
	return nil
}

func (s *Store) ExportMonth(_ context.Context, month string) ([]byte, error) {
	start, err := core.ParseMonth(month)
	if err != nil {
		return nil, err
	}
	return ledger.ExportCSV(ledger.InMonth(s.snapshot(), start))
}

func (s *Store) Ping(context.Context) error { return nil }
