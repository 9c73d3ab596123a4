// Package google keeps the expense ledger in a Google Sheets spreadsheet.
// The sheet has no query engine, so analytics are computed by the ledger
// package over the rows read on each call.
package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"spese-analytics/internal/core"
	"spese-analytics/internal/ledger"
	"spese-analytics/internal/source"
)

var _ source.Source = (*Client)(nil)

// Config selects the spreadsheet and the credentials used to reach it.
type Config struct {
	SpreadsheetID      string
	ExpensesSheet      string
	IncomeSheet        string
	ServiceAccountJSON string
	ServiceAccountFile string

	// OAuth user credentials, used when no service account is set. The
	// token is produced by `spese-cli sheets-auth`.
	OAuthClientJSON string
	OAuthClientFile string
	OAuthTokenJSON  string
	OAuthTokenFile  string
}

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	expensesSheet string
	incomeSheet   string
	now           func() time.Time
}

func New(ctx context.Context, cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet ID")
	}
	svc, err := newSheetsService(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	expenses := cfg.ExpensesSheet
	if expenses == "" {
		expenses = "Expenses"
	}
	income := cfg.IncomeSheet
	if income == "" {
		income = "Income"
	}
	return &Client{
		svc:           svc,
		spreadsheetID: cfg.SpreadsheetID,
		expensesSheet: expenses,
		incomeSheet:   income,
		now:           time.Now,
	}, nil
}

// newSheetsService authenticates with a service account, taking inline JSON
// first and then a credentials file.
func newSheetsService(ctx context.Context, cfg Config) (*gsheet.Service, error) {
	if cfg.ServiceAccountJSON == "" && cfg.ServiceAccountFile == "" && cfg.hasOAuth() {
		ts, err := oauthTokenSource(ctx, cfg)
		if err != nil {
			return nil, err
		}
		slog.InfoContext(ctx, "Creating Google Sheets service with OAuth user token")
		return gsheet.NewService(ctx, goption.WithTokenSource(ts))
	}

	var credentialsJSON []byte
	switch {
	case strings.TrimSpace(cfg.ServiceAccountJSON) != "":
		credentialsJSON = []byte(cfg.ServiceAccountJSON)
	case strings.TrimSpace(cfg.ServiceAccountFile) != "":
		b, err := os.ReadFile(cfg.ServiceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		credentialsJSON = b
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	slog.InfoContext(ctx, "Creating Google Sheets service", "credentials_size", len(credentialsJSON))
	svc, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return svc, nil
}

func (c *Client) readValues(ctx context.Context, rng string) ([][]any, error) {
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}
	return resp.Values, nil
}

func (c *Client) expenses(ctx context.Context) ([]core.Expense, error) {
	values, err := c.readValues(ctx, fmt.Sprintf("%s!A:H", c.expensesSheet))
	if err != nil {
		return nil, err
	}
	return parseExpenses(values), nil
}

func (c *Client) incomes(ctx context.Context) ([]core.Income, error) {
	values, err := c.readValues(ctx, fmt.Sprintf("%s!A:C", c.incomeSheet))
	if err != nil {
		return nil, err
	}
	return parseIncomes(values), nil
}

func (c *Client) ReadBreakdown(ctx context.Context, r core.ResolvedRange) (core.AnalyticsBreakdown, error) {
	rows, err := c.expenses(ctx)
	if err != nil {
		return core.AnalyticsBreakdown{}, err
	}
	return ledger.Breakdown(rows, r), nil
}

func (c *Client) ReadTimeseries(ctx context.Context, r core.ResolvedRange) ([]core.TimeseriesPoint, error) {
	rows, err := c.expenses(ctx)
	if err != nil {
		return nil, err
	}
	return ledger.Timeseries(rows, r), nil
}

func (c *Client) ReadStats(ctx context.Context) (core.Stats, error) {
	rows, err := c.expenses(ctx)
	if err != nil {
		return core.Stats{}, err
	}
	incomes, err := c.incomes(ctx)
	if err != nil {
		return core.Stats{}, err
	}
	return ledger.Stats(rows, incomes, c.now()), nil
}

func (c *Client) ReadCategoryTrend(ctx context.Context, category string, t core.TrendType) ([]core.CategoryTrendPoint, error) {
	rows, err := c.expenses(ctx)
	if err != nil {
		return nil, err
	}
	return ledger.CategoryTrend(rows, category, t, c.now()), nil
}

func (c *Client) ListRecent(ctx context.Context, limit int) ([]core.Expense, error) {
	rows, err := c.expenses(ctx)
	if err != nil {
		return nil, err
	}
	return ledger.Recent(rows, limit), nil
}

// CreateExpense appends a row and writes the header first on an empty sheet.
func (c *Client) CreateExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	if err := e.Validate(); err != nil {
		return core.Expense{}, fmt.Errorf("validation failed: %w", err)
	}
	e.ID = uuid.NewString()
	if e.Date.IsZero() {
		e.Date = c.now().UTC()
	}

	existing, err := c.readValues(ctx, fmt.Sprintf("%s!A1:H1", c.expensesSheet))
	if err != nil {
		return core.Expense{}, err
	}
	rows := [][]any{expenseRow(e)}
	if len(existing) == 0 {
		rows = append([][]any{headerRow(expenseHeader)}, rows...)
	}
	vr := &gsheet.ValueRange{Values: rows}
	_, err = c.svc.Spreadsheets.Values.Append(c.spreadsheetID, fmt.Sprintf("%s!A:H", c.expensesSheet), vr).
		ValueInputOption("USER_ENTERED").InsertDataOption("INSERT_ROWS").Context(ctx).Do()
	if err != nil {
		return core.Expense{}, fmt.Errorf("append to %s: %w", c.expensesSheet, err)
	}
	return e, nil
}

// UpdateExpense rewrites the row holding id, keeping its date.
func (c *Client) UpdateExpense(ctx context.Context, id string, e core.Expense) error {
	if err := e.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}
	values, err := c.readValues(ctx, fmt.Sprintf("%s!A:H", c.expensesSheet))
	if err != nil {
		return err
	}
	rows := parseExpenses(values)
	idx := slices.IndexFunc(rows, func(x core.Expense) bool { return x.ID == id })
	if idx < 0 {
		return fmt.Errorf("expense %q: %w", id, core.ErrNotFound)
	}
	cols, _ := expenseColumns(toStrings(values[0]))
	row := findRow(values, cols.id, id)
	if row == 0 && strings.HasPrefix(id, "row-") {
		fmt.Sscanf(id, "row-%d", &row)
	}
	if row == 0 {
		return fmt.Errorf("expense %q: %w", id, core.ErrNotFound)
	}
	e.ID = id
	e.Date = rows[idx].Date
	rng := fmt.Sprintf("%s!A%d:H%d", c.expensesSheet, row, row)
	_, err = c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, &gsheet.ValueRange{Values: [][]any{expenseRow(e)}}).
		ValueInputOption("USER_ENTERED").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("update %s: %w", rng, err)
	}
	return nil
}

// SetIncome upserts the row of the income month.
func (c *Client) SetIncome(ctx context.Context, in core.Income) error {
	if in.Month == "" {
		in.Month = core.MonthOf(c.now())
	}
	if err := in.Validate(); err != nil {
		return err
	}
	values, err := c.readValues(ctx, fmt.Sprintf("%s!A:C", c.incomeSheet))
	if err != nil {
		return err
	}
	row := []any{in.Month, in.Amount.Float(), in.Source}
	if r := findRow(values, 0, in.Month); r > 0 {
		rng := fmt.Sprintf("%s!A%d:C%d", c.incomeSheet, r, r)
		_, err = c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, &gsheet.ValueRange{Values: [][]any{row}}).
			ValueInputOption("USER_ENTERED").Context(ctx).Do()
		if err != nil {
			return fmt.Errorf("update %s: %w", rng, err)
		}
		return nil
	}
	rows := [][]any{row}
	if len(values) == 0 {
		rows = append([][]any{headerRow(incomeHeader)}, rows...)
	}
	_, err = c.svc.Spreadsheets.Values.Append(c.spreadsheetID, fmt.Sprintf("%s!A:C", c.incomeSheet), &gsheet.ValueRange{Values: rows}).
		ValueInputOption("USER_ENTERED").InsertDataOption("INSERT_ROWS").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("append to %s: %w", c.incomeSheet, err)
	}
	return nil
}

func (c *Client) ExportMonth(ctx context.Context, month string) ([]byte, error) {
	start, err := core.ParseMonth(month)
	if err != nil {
		return nil, err
	}
	rows, err := c.expenses(ctx)
	if err != nil {
		return nil, err
	}
	return ledger.ExportCSV(ledger.InMonth(rows, start))
}

// Ping reads the spreadsheet metadata.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Fields("spreadsheetId").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("sheets ping: %w", err)
	}
	return nil
}

func headerRow(h []string) []any {
	out := make([]any, len(h))
	for i, v := range h {
		out[i] = v
	}
	return out
}
