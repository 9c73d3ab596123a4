package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/pterm/pterm"
	"gopkg.in/yaml.v3"

	"spese-analytics/internal/core"
	"spese-analytics/internal/services"
)

const (
	outputTable = "table"
	outputJSON  = "json"
	outputYAML  = "yaml"

	barWidth = 40
)

var (
	boldGreen  = color.New(color.FgGreen, color.Bold).SprintFunc()
	boldYellow = color.New(color.FgYellow, color.Bold).SprintFunc()
	cyan       = color.New(color.FgCyan).SprintFunc()
)

func validOutput(s string) error {
	switch s {
	case outputTable, outputJSON, outputYAML:
		return nil
	}
	return fmt.Errorf("invalid --output %q: must be table, json or yaml", s)
}

// render writes v as JSON or YAML, or calls table for the terminal view.
func (a *App) render(v any, table func(io.Writer) error) error {
	switch a.output {
	case outputJSON:
		enc := json.NewEncoder(a.out)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case outputYAML:
		enc := yaml.NewEncoder(a.out)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		return table(a.out)
	}
}

func money(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func renderTable(w io.Writer, rows [][]string) error {
	out, err := pterm.DefaultTable.
		WithHasHeader().
		WithBoxed().
		WithHeaderStyle(pterm.NewStyle(pterm.FgLightCyan)).
		WithData(pterm.TableData(rows)).
		Srender()
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, out)
	return err
}

func renderBreakdown(w io.Writer, title string, b core.ShapedBreakdown) error {
	rows := [][]string{{title, "Total", "%"}}
	for _, e := range b.Entries {
		rows = append(rows, []string{e.Name, money(e.Total), strconv.Itoa(e.PercentOfTotal) + "%"})
	}
	if err := renderTable(w, rows); err != nil {
		return err
	}
	if b.Capped {
		_, err := fmt.Fprintln(w, boldYellow(fmt.Sprintf("%d more hidden, use --all-tags", b.Hidden)))
		return err
	}
	return nil
}

func renderDashboard(w io.Writer, d services.Dashboard) error {
	header := fmt.Sprintf("%s  %s .. %s  total %s", d.Range.Label, d.Range.Start, d.Range.End, boldGreen(money(d.Total)))
	if _, err := fmt.Fprintln(w, pterm.DefaultBox.WithTitle("Spese").Sprint(header)); err != nil {
		return err
	}
	sections := []struct {
		title string
		b     core.ShapedBreakdown
	}{
		{"Category", d.ByCategory},
		{"Payment mode", d.ByPaymentMode},
		{"Tag", d.ByTag},
	}
	for _, s := range sections {
		if err := renderBreakdown(w, s.title, s.b); err != nil {
			return err
		}
	}
	return nil
}

// renderSeries draws one bar per day scaled to the largest total.
func renderSeries(w io.Writer, label string, points []core.TimeseriesPoint) error {
	if len(points) == 0 {
		_, err := fmt.Fprintln(w, boldYellow("No spending in "+label))
		return err
	}
	peak := 0.0
	for _, p := range points {
		if p.Total > peak {
			peak = p.Total
		}
	}
	rows := [][]string{{"Date", "Total", ""}}
	for _, p := range points {
		n := 0
		if peak > 0 {
			n = int(p.Total / peak * barWidth)
		}
		rows = append(rows, []string{p.Date, money(p.Total), cyan(strings.Repeat("█", n))})
	}
	return renderTable(w, rows)
}

func renderStats(w io.Writer, s core.Stats) error {
	return renderTable(w, [][]string{
		{"", "Month to date", "Year to date"},
		{"Expenses", money(s.MTDExpenses), money(s.YTDExpenses)},
		{"Income", money(s.MTDIncome), money(s.YTDIncome)},
		{"Investments", money(s.MTDInvestments), money(s.YTDInvestments)},
	})
}

func printSuccess(w io.Writer, msg string) {
	fmt.Fprint(w, pterm.Success.Sprintln(msg))
}
