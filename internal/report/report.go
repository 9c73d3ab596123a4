// Package report renders a shaped dashboard as a downloadable file.
package report

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/xuri/excelize/v2"

	"spese-analytics/internal/core"
	"spese-analytics/internal/services"
)

type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
	FormatPDF  Format = "pdf"
)

var ErrUnknownFormat = errors.New("unknown report format")

// Section names used as the first CSV column and as XLSX sheet names.
const (
	SectionCategory    = "Category"
	SectionPaymentMode = "Payment Mode"
	SectionTag         = "Tag"
	SectionDaily       = "Daily"
)

func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatCSV, FormatXLSX, FormatPDF:
		return f, nil
	case "":
		return FormatCSV, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
}

func (f Format) ContentType() string {
	switch f {
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case FormatPDF:
		return "application/pdf"
	default:
		return "text/csv; charset=utf-8"
	}
}

// Filename is the attachment name for a dashboard, e.g. spese-30d-2024-03-15.pdf.
func Filename(d services.Dashboard, f Format) string {
	day := d.Range.End
	if len(day) >= len(core.DayLayout) {
		day = day[:len(core.DayLayout)]
	}
	return fmt.Sprintf("spese-%s-%s.%s", d.Range.Short, day, f)
}

type section struct {
	name string
	b    core.ShapedBreakdown
}

func sections(d services.Dashboard) []section {
	return []section{
		{SectionCategory, d.ByCategory},
		{SectionPaymentMode, d.ByPaymentMode},
		{SectionTag, d.ByTag},
	}
}

func money(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

// Render writes d to w in format f.
func Render(w io.Writer, f Format, d services.Dashboard) error {
	switch f {
	case FormatCSV:
		return WriteCSV(w, d)
	case FormatXLSX:
		return WriteXLSX(w, d)
	case FormatPDF:
		return WritePDF(w, d)
	}
	return fmt.Errorf("%w: %q", ErrUnknownFormat, f)
}

// WriteCSV writes one row per breakdown entry and per series point.
func WriteCSV(w io.Writer, d services.Dashboard) error {
	writer := csv.NewWriter(w)

	if err := writer.Write([]string{"Section", "Name", "Total", "Percent"}); err != nil {
		return fmt.Errorf("write CSV header: %w", err)
	}
	for _, s := range sections(d) {
		for _, e := range s.b.Entries {
			record := []string{s.name, e.Name, money(e.Total), strconv.Itoa(e.PercentOfTotal)}
			if err := writer.Write(record); err != nil {
				return fmt.Errorf("write CSV record: %w", err)
			}
		}
	}
	for _, p := range d.Timeseries {
		if err := writer.Write([]string{SectionDaily, p.Date, money(p.Total), ""}); err != nil {
			return fmt.Errorf("write CSV record: %w", err)
		}
	}

	writer.Flush()
	return writer.Error()
}

// WriteXLSX writes a summary sheet plus one sheet per section.
func WriteXLSX(w io.Writer, d services.Dashboard) error {
	f := excelize.NewFile()
	defer f.Close()

	summary := "Summary"
	if err := f.SetSheetName("Sheet1", summary); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	_ = f.SetCellValue(summary, "A1", "Spending report")
	_ = f.SetCellValue(summary, "A3", "Range")
	_ = f.SetCellValue(summary, "B3", d.Range.Label)
	_ = f.SetCellValue(summary, "A4", "Start")
	_ = f.SetCellValue(summary, "B4", d.Range.Start)
	_ = f.SetCellValue(summary, "A5", "End")
	_ = f.SetCellValue(summary, "B5", d.Range.End)
	_ = f.SetCellValue(summary, "A6", "Total")
	_ = f.SetCellValue(summary, "B6", d.Total)

	for _, s := range sections(d) {
		if _, err := f.NewSheet(s.name); err != nil {
			return fmt.Errorf("add sheet %s: %w", s.name, err)
		}
		_ = f.SetCellValue(s.name, "A1", "Name")
		_ = f.SetCellValue(s.name, "B1", "Total")
		_ = f.SetCellValue(s.name, "C1", "Percent")
		for i, e := range s.b.Entries {
			row := i + 2
			_ = f.SetCellValue(s.name, fmt.Sprintf("A%d", row), e.Name)
			_ = f.SetCellValue(s.name, fmt.Sprintf("B%d", row), e.Total)
			_ = f.SetCellValue(s.name, fmt.Sprintf("C%d", row), e.PercentOfTotal)
		}
	}

	if _, err := f.NewSheet(SectionDaily); err != nil {
		return fmt.Errorf("add sheet %s: %w", SectionDaily, err)
	}
	_ = f.SetCellValue(SectionDaily, "A1", "Date")
	_ = f.SetCellValue(SectionDaily, "B1", "Total")
	for i, p := range d.Timeseries {
		row := i + 2
		_ = f.SetCellValue(SectionDaily, fmt.Sprintf("A%d", row), p.Date)
		_ = f.SetCellValue(SectionDaily, fmt.Sprintf("B%d", row), p.Total)
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write XLSX: %w", err)
	}
	return nil
}

// WritePDF renders a single-page A4 summary with one table per section.
func WritePDF(w io.Writer, d services.Dashboard) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()

	pdf.SetFillColor(40, 40, 40)
	pdf.SetTextColor(255, 255, 255)
	pdf.SetFont("Arial", "B", 14)
	pdf.CellFormat(0, 12, tr("  Spending report: "+d.Range.Label), "", 1, "L", true, 0, "")

	pdf.SetFont("Arial", "", 10)
	pdf.SetFillColor(240, 240, 240)
	pdf.SetTextColor(50, 50, 50)
	pdf.CellFormat(0, 8, tr(fmt.Sprintf("  %s to %s", d.Range.Start, d.Range.End)), "", 1, "L", true, 0, "")
	pdf.Ln(6)

	pdf.SetFont("Arial", "B", 16)
	pdf.Cell(0, 10, tr("Total: "+money(d.Total)))
	pdf.Ln(14)

	for _, s := range sections(d) {
		if len(s.b.Entries) == 0 {
			continue
		}
		pdf.SetFont("Arial", "B", 12)
		pdf.SetTextColor(0, 0, 0)
		pdf.Cell(0, 8, tr(s.name))
		pdf.Ln(8)

		pdf.SetFont("Arial", "B", 10)
		pdf.CellFormat(110, 6, "Name", "B", 0, "L", false, 0, "")
		pdf.CellFormat(50, 6, "Total", "B", 0, "R", false, 0, "")
		pdf.CellFormat(30, 6, "%", "B", 1, "R", false, 0, "")

		pdf.SetFont("Arial", "", 10)
		pdf.SetTextColor(50, 50, 50)
		for _, e := range s.b.Entries {
			pdf.CellFormat(110, 6, tr(e.Name), "", 0, "L", false, 0, "")
			pdf.CellFormat(50, 6, money(e.Total), "", 0, "R", false, 0, "")
			pdf.CellFormat(30, 6, strconv.Itoa(e.PercentOfTotal), "", 1, "R", false, 0, "")
		}
		if s.b.Capped {
			pdf.SetFont("Arial", "I", 8)
			pdf.CellFormat(0, 5, fmt.Sprintf("%d more not shown", s.b.Hidden), "", 1, "L", false, 0, "")
		}
		pdf.Ln(6)
	}

	pdf.SetY(-15)
	pdf.SetFont("Arial", "I", 8)
	pdf.SetTextColor(128, 128, 128)
	pdf.CellFormat(0, 10, fmt.Sprintf("Generated %s", time.Now().Format(core.DayLayout)), "", 0, "L", false, 0, "")

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("write PDF: %w", err)
	}
	return nil
}

// Bytes renders d into memory.
func Bytes(f Format, d services.Dashboard) ([]byte, error) {
	var buf bytes.Buffer
	if err := Render(&buf, f, d); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
