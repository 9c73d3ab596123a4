package adapters

import (
	"context"
	"log/slog"

	"spese-analytics/internal/amqp"
	"spese-analytics/internal/core"
	"spese-analytics/internal/source"
	"spese-analytics/internal/storage"
)

// ChangePublisher announces ledger writes to other dashboards.
type ChangePublisher interface {
	PublishChange(ctx context.Context, ev *amqp.ChangeEvent) error
}

var _ source.Source = (*SQLiteAdapter)(nil)

// SQLiteAdapter serves the SQLite ledger and publishes a change event after
// every successful write. A publish failure is logged and never fails the
// write; the record is already stored.
type SQLiteAdapter struct {
	*storage.SQLiteRepository
	publisher ChangePublisher
}

// NewSQLiteAdapter wraps repo. publisher may be nil when AMQP is disabled.
func NewSQLiteAdapter(repo *storage.SQLiteRepository, publisher ChangePublisher) *SQLiteAdapter {
	return &SQLiteAdapter{
		SQLiteRepository: repo,
		publisher:        publisher,
	}
}

func (a *SQLiteAdapter) publish(ctx context.Context, ev *amqp.ChangeEvent) {
	if a.publisher == nil {
		return
	}
	if err := a.publisher.PublishChange(ctx, ev); err != nil {
		slog.WarnContext(ctx, "Failed to publish change event",
			"kind", ev.Kind,
			"id", ev.ID,
			"error", err)
	}
}

func (a *SQLiteAdapter) CreateExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	saved, err := a.SQLiteRepository.CreateExpense(ctx, e)
	if err != nil {
		return core.Expense{}, err
	}
	a.publish(ctx, amqp.NewChangeEvent(amqp.KindExpenseCreated, saved.ID, core.MonthOf(saved.Date)))
	return saved, nil
}

func (a *SQLiteAdapter) UpdateExpense(ctx context.Context, id string, e core.Expense) error {
	if err := a.SQLiteRepository.UpdateExpense(ctx, id, e); err != nil {
		return err
	}
	a.publish(ctx, amqp.NewChangeEvent(amqp.KindExpenseUpdated, id, ""))
	return nil
}

func (a *SQLiteAdapter) SetIncome(ctx context.Context, in core.Income) error {
	if err := a.SQLiteRepository.SetIncome(ctx, in); err != nil {
		return err
	}
	a.publish(ctx, amqp.NewChangeEvent(amqp.KindIncomeSet, "", in.Month))
	return nil
}
