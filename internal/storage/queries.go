package storage

import (
	"context"
	"database/sql"
)

type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	PrepareContext(context.Context, string) (*sql.Stmt, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type Queries struct {
	db DBTX
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

// tagSeparator joins tags inside a single column; it never appears in a
// normalized tag.
const tagSeparator = "\x1f"

type Expense struct {
	ID          int64
	SpentAt     string
	AmountCents int64
	Category    string
	PaymentMode string
	Remarks     string
	Type        string
	Tags        string
}

type NameTotal struct {
	Name        string
	TotalAmount int64
}

const expenseColumns = `e.id, e.spent_at, e.amount_cents, e.category, e.payment_mode, e.remarks, e.type,
    COALESCE((SELECT group_concat(t.tag, char(31) ORDER BY t.position) FROM expense_tags t WHERE t.expense_id = e.id), '') AS tags`

func scanExpenses(rows *sql.Rows) ([]Expense, error) {
	defer rows.Close()
	var items []Expense
	for rows.Next() {
		var i Expense
		if err := rows.Scan(
			&i.ID,
			&i.SpentAt,
			&i.AmountCents,
			&i.Category,
			&i.PaymentMode,
			&i.Remarks,
			&i.Type,
			&i.Tags,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func scanTotals(rows *sql.Rows) ([]NameTotal, error) {
	defer rows.Close()
	var items []NameTotal
	for rows.Next() {
		var i NameTotal
		if err := rows.Scan(&i.Name, &i.TotalAmount); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const createExpense = `-- name: CreateExpense :one
INSERT INTO expenses (spent_at, amount_cents, category, payment_mode, remarks, type)
VALUES (?, ?, ?, ?, ?, ?)
RETURNING id
`

type CreateExpenseParams struct {
	SpentAt     string
	AmountCents int64
	Category    string
	PaymentMode string
	Remarks     string
	Type        string
}

func (q *Queries) CreateExpense(ctx context.Context, arg CreateExpenseParams) (int64, error) {
	row := q.db.QueryRowContext(ctx, createExpense,
		arg.SpentAt,
		arg.AmountCents,
		arg.Category,
		arg.PaymentMode,
		arg.Remarks,
		arg.Type,
	)
	var id int64
	err := row.Scan(&id)
	return id, err
}

const updateExpense = `-- name: UpdateExpense :execrows
UPDATE expenses
SET amount_cents = ?, category = ?, payment_mode = ?, remarks = ?, type = ?, updated_at = CURRENT_TIMESTAMP
WHERE id = ?
`

type UpdateExpenseParams struct {
	AmountCents int64
	Category    string
	PaymentMode string
	Remarks     string
	Type        string
	ID          int64
}

func (q *Queries) UpdateExpense(ctx context.Context, arg UpdateExpenseParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, updateExpense,
		arg.AmountCents,
		arg.Category,
		arg.PaymentMode,
		arg.Remarks,
		arg.Type,
		arg.ID,
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const insertExpenseTag = `-- name: InsertExpenseTag :exec
INSERT INTO expense_tags (expense_id, tag, position) VALUES (?, ?, ?)
`

func (q *Queries) InsertExpenseTag(ctx context.Context, expenseID int64, tag string, position int64) error {
	_, err := q.db.ExecContext(ctx, insertExpenseTag, expenseID, tag, position)
	return err
}

const deleteExpenseTags = `-- name: DeleteExpenseTags :exec
DELETE FROM expense_tags WHERE expense_id = ?
`

func (q *Queries) DeleteExpenseTags(ctx context.Context, expenseID int64) error {
	_, err := q.db.ExecContext(ctx, deleteExpenseTags, expenseID)
	return err
}

const getExpense = `-- name: GetExpense :one
SELECT ` + expenseColumns + `
FROM expenses e
WHERE e.id = ?
`

func (q *Queries) GetExpense(ctx context.Context, id int64) (Expense, error) {
	rows, err := q.db.QueryContext(ctx, getExpense, id)
	if err != nil {
		return Expense{}, err
	}
	items, err := scanExpenses(rows)
	if err != nil {
		return Expense{}, err
	}
	if len(items) == 0 {
		return Expense{}, sql.ErrNoRows
	}
	return items[0], nil
}

const listRecentExpenses = `-- name: ListRecentExpenses :many
SELECT ` + expenseColumns + `
FROM expenses e
ORDER BY e.spent_at DESC, e.id DESC
LIMIT ?
`

// ListRecentExpenses treats a negative limit as no limit.
func (q *Queries) ListRecentExpenses(ctx context.Context, limit int64) ([]Expense, error) {
	rows, err := q.db.QueryContext(ctx, listRecentExpenses, limit)
	if err != nil {
		return nil, err
	}
	return scanExpenses(rows)
}

const listExpensesBetween = `-- name: ListExpensesBetween :many
SELECT ` + expenseColumns + `
FROM expenses e
WHERE e.type = 'expense' AND e.spent_at >= ? AND e.spent_at < ?
ORDER BY e.spent_at DESC, e.id DESC
`

// ListExpensesBetween returns non-investment records in [from, to).
func (q *Queries) ListExpensesBetween(ctx context.Context, from, to string) ([]Expense, error) {
	rows, err := q.db.QueryContext(ctx, listExpensesBetween, from, to)
	if err != nil {
		return nil, err
	}
	return scanExpenses(rows)
}

const sumByCategory = `-- name: SumByCategory :many
SELECT category, SUM(amount_cents) AS total_amount
FROM expenses
WHERE type = 'expense' AND spent_at >= ? AND spent_at <= ?
GROUP BY category
ORDER BY total_amount DESC, category ASC
`

func (q *Queries) SumByCategory(ctx context.Context, start, end string) ([]NameTotal, error) {
	rows, err := q.db.QueryContext(ctx, sumByCategory, start, end)
	if err != nil {
		return nil, err
	}
	return scanTotals(rows)
}

const sumByPaymentMode = `-- name: SumByPaymentMode :many
SELECT payment_mode, SUM(amount_cents) AS total_amount
FROM expenses
WHERE type = 'expense' AND spent_at >= ? AND spent_at <= ?
GROUP BY payment_mode
ORDER BY total_amount DESC, payment_mode ASC
`

func (q *Queries) SumByPaymentMode(ctx context.Context, start, end string) ([]NameTotal, error) {
	rows, err := q.db.QueryContext(ctx, sumByPaymentMode, start, end)
	if err != nil {
		return nil, err
	}
	return scanTotals(rows)
}

const sumByTag = `-- name: SumByTag :many
SELECT t.tag, SUM(e.amount_cents) AS total_amount
FROM expense_tags t
JOIN expenses e ON e.id = t.expense_id
WHERE e.type = 'expense' AND e.spent_at >= ? AND e.spent_at <= ?
GROUP BY t.tag
ORDER BY total_amount DESC, t.tag ASC
`

func (q *Queries) SumByTag(ctx context.Context, start, end string) ([]NameTotal, error) {
	rows, err := q.db.QueryContext(ctx, sumByTag, start, end)
	if err != nil {
		return nil, err
	}
	return scanTotals(rows)
}

const dailyTotals = `-- name: DailyTotals :many
SELECT substr(spent_at, 1, 10) AS day, SUM(amount_cents) AS total_amount
FROM expenses
WHERE type = 'expense' AND spent_at >= ? AND spent_at <= ?
GROUP BY day
ORDER BY day ASC
`

// DailyTotals returns one row per UTC day; Name holds YYYY-MM-DD.
func (q *Queries) DailyTotals(ctx context.Context, start, end string) ([]NameTotal, error) {
	rows, err := q.db.QueryContext(ctx, dailyTotals, start, end)
	if err != nil {
		return nil, err
	}
	return scanTotals(rows)
}

const sumExpensesByType = `-- name: SumExpensesByType :one
SELECT COALESCE(SUM(amount_cents), 0)
FROM expenses
WHERE type = ? AND spent_at >= ? AND spent_at <= ?
`

func (q *Queries) SumExpensesByType(ctx context.Context, typ, start, end string) (int64, error) {
	row := q.db.QueryRowContext(ctx, sumExpensesByType, typ, start, end)
	var total int64
	err := row.Scan(&total)
	return total, err
}

const sumIncome = `-- name: SumIncome :one
SELECT COALESCE(SUM(amount_cents), 0)
FROM incomes
WHERE month LIKE ?
`

// SumIncome sums incomes whose month matches a LIKE pattern.
func (q *Queries) SumIncome(ctx context.Context, pattern string) (int64, error) {
	row := q.db.QueryRowContext(ctx, sumIncome, pattern)
	var total int64
	err := row.Scan(&total)
	return total, err
}

const upsertIncome = `-- name: UpsertIncome :exec
INSERT INTO incomes (month, amount_cents, source)
VALUES (?, ?, ?)
ON CONFLICT(month) DO UPDATE SET
    amount_cents = excluded.amount_cents,
    source = excluded.source,
    updated_at = CURRENT_TIMESTAMP
`

func (q *Queries) UpsertIncome(ctx context.Context, month string, amountCents int64, source string) error {
	_, err := q.db.ExecContext(ctx, upsertIncome, month, amountCents, source)
	return err
}

const categoryBuckets = `-- name: CategoryBuckets :many
SELECT substr(spent_at, 1, ?) AS bucket, SUM(amount_cents) AS total_amount
FROM expenses
WHERE category = ? AND spent_at >= ? AND spent_at <= ?
GROUP BY bucket
`

// CategoryBuckets sums one category per spent_at prefix of the given width.
func (q *Queries) CategoryBuckets(ctx context.Context, width int, category, start, end string) ([]NameTotal, error) {
	rows, err := q.db.QueryContext(ctx, categoryBuckets, width, category, start, end)
	if err != nil {
		return nil, err
	}
	return scanTotals(rows)
}

const firstCategoryYear = `-- name: FirstCategoryYear :one
SELECT COALESCE(CAST(substr(MIN(spent_at), 1, 4) AS INTEGER), 0)
FROM expenses
WHERE category = ?
`

func (q *Queries) FirstCategoryYear(ctx context.Context, category string) (int, error) {
	row := q.db.QueryRowContext(ctx, firstCategoryYear, category)
	var year int
	err := row.Scan(&year)
	return year, err
}
