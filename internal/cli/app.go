package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"spese-analytics/internal/analytics"
	"spese-analytics/internal/core"
	"spese-analytics/internal/report"
	"spese-analytics/internal/services"
)

// Analytics is the part of services.AnalyticsService the commands use.
type Analytics interface {
	Dashboard(ctx context.Context, key core.RangeKey, opts services.DashboardOptions) (services.Dashboard, error)
	Timeseries(ctx context.Context, key core.RangeKey) (services.RangeInfo, []core.TimeseriesPoint, error)
	Stats(ctx context.Context) (core.Stats, error)
	CategoryTrend(ctx context.Context, category string, trend string) ([]core.CategoryTrendPoint, error)
	RecentExpenses(ctx context.Context, limit int) ([]core.Expense, error)
	ExportMonth(ctx context.Context, month string) ([]byte, error)
}

var _ Analytics = (*services.AnalyticsService)(nil)

// ServiceFactory opens the analytics service for one command run. The
// returned function releases the backend.
type ServiceFactory func(ctx context.Context) (Analytics, func() error, error)

// App is the spese-cli command tree.
type App struct {
	root       *cobra.Command
	newService ServiceFactory
	now        func() time.Time
	out        io.Writer
	output     string
}

// NewApp wires every subcommand. version is shown by --version.
func NewApp(version string, factory ServiceFactory) *App {
	app := &App{newService: factory, now: time.Now, out: os.Stdout}

	root := &cobra.Command{
		Use:           "spese-cli",
		Short:         "Expense analytics from the terminal",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&app.output, "output", "o", outputTable, "Output format: table, json, yaml")

	root.AddCommand(
		app.rangeCmd(),
		app.breakdownCmd(),
		app.seriesCmd(),
		app.statsCmd(),
		app.trendCmd(),
		app.recentCmd(),
		app.exportCmd(),
		app.reportCmd(),
		app.sheetsAuthCmd(),
	)
	app.root = root
	return app
}

// SetOutput redirects command output, for tests.
func (a *App) SetOutput(w io.Writer) {
	a.out = w
	a.root.SetOut(w)
	a.root.SetErr(w)
}

// SetArgs overrides os.Args[1:], for tests.
func (a *App) SetArgs(args []string) {
	a.root.SetArgs(args)
}

func (a *App) Execute() error {
	return a.ExecuteContext(context.Background())
}

func (a *App) ExecuteContext(ctx context.Context) error {
	return a.root.ExecuteContext(ctx)
}

// withService opens the service, runs fn and releases the backend.
func (a *App) withService(cmd *cobra.Command, fn func(ctx context.Context, svc Analytics) error) error {
	if err := validOutput(a.output); err != nil {
		return err
	}
	if a.newService == nil {
		return errors.New("no analytics backend configured")
	}
	ctx := cmd.Context()
	svc, closeFn, err := a.newService(ctx)
	if err != nil {
		return fmt.Errorf("open backend: %w", err)
	}
	defer func() {
		if closeFn != nil {
			_ = closeFn()
		}
	}()
	return fn(ctx, svc)
}

func parseNow(s string, fallback time.Time) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return fallback, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	if t, err := time.Parse(core.DayLayout, s); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("invalid --now %q (use RFC 3339 or YYYY-MM-DD)", s)
}

type resolvedRange struct {
	Key   core.RangeKey `json:"key" yaml:"key"`
	Label string        `json:"label" yaml:"label"`
	Start string        `json:"start" yaml:"start"`
	End   string        `json:"end" yaml:"end"`
	Query string        `json:"query" yaml:"query"`
}

func (a *App) rangeCmd() *cobra.Command {
	var nowFlag string
	cmd := &cobra.Command{
		Use:   "range <key>",
		Short: "Resolve a range key (30d, 90d, mtd, ytd) to absolute bounds",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validOutput(a.output); err != nil {
				return err
			}
			key, err := core.ParseRangeKey(args[0])
			if err != nil {
				return err
			}
			now, err := parseNow(nowFlag, a.now())
			if err != nil {
				return err
			}
			r, err := analytics.Resolve(key, now)
			if err != nil {
				return err
			}
			out := resolvedRange{
				Key:   r.Key,
				Label: r.Key.Label(),
				Start: r.StartISO(),
				End:   r.EndISO(),
				Query: analytics.Build(analytics.RangeParams(r)),
			}
			return a.render(out, func(w io.Writer) error {
				return renderTable(w, [][]string{
					{"Key", "Label", "Start", "End"},
					{string(out.Key), out.Label, out.Start, out.End},
				})
			})
		},
	}
	cmd.Flags().StringVar(&nowFlag, "now", "", "Resolve against this instant instead of the current time")
	return cmd
}

func (a *App) breakdownCmd() *cobra.Command {
	var rangeFlag string
	var allTags, remainder bool
	cmd := &cobra.Command{
		Use:   "breakdown",
		Short: "Show spending grouped by category, payment mode and tag",
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := core.ParseRangeKey(rangeFlag)
			if err != nil {
				return err
			}
			return a.withService(cmd, func(ctx context.Context, svc Analytics) error {
				d, err := svc.Dashboard(ctx, key, services.DashboardOptions{ShowAllTags: allTags, IncludeRemainder: remainder})
				if err != nil {
					return err
				}
				return a.render(d, func(w io.Writer) error { return renderDashboard(w, d) })
			})
		},
	}
	cmd.Flags().StringVarP(&rangeFlag, "range", "r", "30d", "Range key")
	cmd.Flags().BoolVar(&allTags, "all-tags", false, "Show every tag instead of the top ones")
	cmd.Flags().BoolVar(&remainder, "remainder", false, "Fold hidden tags into an Other entry")
	return cmd
}

type seriesOutput struct {
	Range  services.RangeInfo      `json:"range" yaml:"range"`
	Points []core.TimeseriesPoint `json:"points" yaml:"points"`
}

func (a *App) seriesCmd() *cobra.Command {
	var rangeFlag string
	cmd := &cobra.Command{
		Use:   "series",
		Short: "Show daily totals with bars",
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := core.ParseRangeKey(rangeFlag)
			if err != nil {
				return err
			}
			return a.withService(cmd, func(ctx context.Context, svc Analytics) error {
				info, points, err := svc.Timeseries(ctx, key)
				if err != nil {
					return err
				}
				out := seriesOutput{Range: info, Points: points}
				return a.render(out, func(w io.Writer) error { return renderSeries(w, info.Label, points) })
			})
		},
	}
	cmd.Flags().StringVarP(&rangeFlag, "range", "r", "30d", "Range key")
	return cmd
}

func (a *App) statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show month-to-date and year-to-date totals",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withService(cmd, func(ctx context.Context, svc Analytics) error {
				s, err := svc.Stats(ctx)
				if err != nil {
					return err
				}
				return a.render(s, func(w io.Writer) error { return renderStats(w, s) })
			})
		},
	}
}

func (a *App) trendCmd() *cobra.Command {
	var category, trend string
	cmd := &cobra.Command{
		Use:   "trend",
		Short: "Show how one category evolves over time",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withService(cmd, func(ctx context.Context, svc Analytics) error {
				points, err := svc.CategoryTrend(ctx, category, trend)
				if err != nil {
					return err
				}
				return a.render(points, func(w io.Writer) error {
					rows := [][]string{{"Period", "Amount"}}
					for _, p := range points {
						rows = append(rows, []string{p.Label, money(p.Amount)})
					}
					return renderTable(w, rows)
				})
			})
		},
	}
	cmd.Flags().StringVarP(&category, "category", "c", "", "Category name")
	cmd.Flags().StringVarP(&trend, "type", "t", "monthly", "Trend type: daily, monthly, yearly")
	_ = cmd.MarkFlagRequired("category")
	return cmd
}

type expenseRow struct {
	ID          string   `json:"id" yaml:"id"`
	Date        string   `json:"date" yaml:"date"`
	Amount      float64  `json:"amount" yaml:"amount"`
	Category    string   `json:"category" yaml:"category"`
	PaymentMode string   `json:"payment_mode" yaml:"payment_mode"`
	Tags        []string `json:"tags" yaml:"tags"`
	Remarks     string   `json:"remarks,omitempty" yaml:"remarks,omitempty"`
}

func (a *App) recentCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "recent",
		Short: "List the newest records",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withService(cmd, func(ctx context.Context, svc Analytics) error {
				items, err := svc.RecentExpenses(ctx, limit)
				if err != nil {
					return err
				}
				rows := make([]expenseRow, 0, len(items))
				for _, e := range items {
					rows = append(rows, expenseRow{
						ID: e.ID, Date: e.Date.UTC().Format(core.DayLayout), Amount: e.Amount.Float(),
						Category: e.Category, PaymentMode: e.PaymentMode, Tags: e.Tags, Remarks: e.Remarks,
					})
				}
				return a.render(rows, func(w io.Writer) error {
					table := [][]string{{"Date", "Category", "Mode", "Tags", "Amount"}}
					for _, r := range rows {
						table = append(table, []string{r.Date, r.Category, r.PaymentMode, strings.Join(r.Tags, ", "), money(r.Amount)})
					}
					return renderTable(w, table)
				})
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", services.DefaultRecentLimit, "Number of records")
	return cmd
}

func (a *App) exportCmd() *cobra.Command {
	var month, outPath string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the CSV export of a month",
		RunE: func(cmd *cobra.Command, args []string) error {
			if month == "" {
				month = core.MonthOf(a.now())
			}
			return a.withService(cmd, func(ctx context.Context, svc Analytics) error {
				body, err := svc.ExportMonth(ctx, month)
				if err != nil {
					return err
				}
				if outPath == "" {
					outPath = fmt.Sprintf("expenses-%s.csv", month)
				}
				return a.writeFile(outPath, body)
			})
		},
	}
	cmd.Flags().StringVarP(&month, "month", "m", "", "Month as YYYY-MM (default: current)")
	cmd.Flags().StringVar(&outPath, "out", "", "Output file, - for stdout (default: expenses-<month>.csv)")
	return cmd
}

func (a *App) reportCmd() *cobra.Command {
	var rangeFlag, formatFlag, outPath string
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Render the dashboard of a range as CSV, XLSX or PDF",
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := core.ParseRangeKey(rangeFlag)
			if err != nil {
				return err
			}
			format, err := report.ParseFormat(formatFlag)
			if err != nil {
				return err
			}
			return a.withService(cmd, func(ctx context.Context, svc Analytics) error {
				d, err := svc.Dashboard(ctx, key, services.DashboardOptions{ShowAllTags: true})
				if err != nil {
					return err
				}
				body, err := report.Bytes(format, d)
				if err != nil {
					return err
				}
				if outPath == "" {
					outPath = report.Filename(d, format)
				}
				return a.writeFile(outPath, body)
			})
		},
	}
	cmd.Flags().StringVarP(&rangeFlag, "range", "r", "30d", "Range key")
	cmd.Flags().StringVarP(&formatFlag, "format", "f", "csv", "Report format: csv, xlsx, pdf")
	cmd.Flags().StringVar(&outPath, "out", "", "Output file, - for stdout (default: spese-<range>-<date>.<format>)")
	return cmd
}

// writeFile writes body to path, or to the command output when path is -.
func (a *App) writeFile(path string, body []byte) error {
	if path == "-" {
		_, err := a.out.Write(body)
		return err
	}
	if err := os.WriteFile(path, body, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	printSuccess(a.out, fmt.Sprintf("Wrote %s (%d bytes)", path, len(body)))
	return nil
}
