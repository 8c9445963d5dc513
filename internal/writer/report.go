// Package writer turns a result table into files.
package writer

import (
	"fmt"
	"strconv"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"

	"github.com/go-scripts/wordstat/pkg/common"
)

// Headers is the first row of the report.
var Headers = []string{"Query", "Loose Frequency", "Exact Frequency", "Exact-Forced Frequency"}

const maxColumnWidth = 50

// Report writes the spreadsheet.
type Report struct {
	Sheet       string
	Placeholder string
	// Lookup builds the link on every query cell.
	Lookup common.LookupURL
}

// NewReport returns a report with the default sheet name and placeholder.
func NewReport(lookup common.LookupURL) Report {
	return Report{Sheet: "Wordstat", Placeholder: "N/A", Lookup: lookup}
}

// Write saves table to path, overwriting it.
func (r Report) Write(path string, table common.ResultTable) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := r.Sheet
	if sheet == "" {
		sheet = "Wordstat"
	}
	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}
	link, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Color: "0000FF", Underline: "single"}})
	if err != nil {
		return fmt.Errorf("failed to create link style: %w", err)
	}

	widths := make([]int, len(Headers))
	for col, h := range Headers {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return fmt.Errorf("failed to write header: %w", err)
		}
		widths[col] = utf8.RuneCountInString(h)
	}
	last, _ := excelize.CoordinatesToCellName(len(Headers), 1)
	if err := f.SetCellStyle(sheet, "A1", last, bold); err != nil {
		return fmt.Errorf("failed to style header: %w", err)
	}

	for i, res := range table {
		row := i + 2
		queryCell, _ := excelize.CoordinatesToCellName(1, row)
		if err := f.SetCellValue(sheet, queryCell, res.Query); err != nil {
			return fmt.Errorf("failed to write row %d: %w", row, err)
		}
		target := r.Lookup.Build(common.Format(res.Query, common.Loose))
		if err := f.SetCellHyperLink(sheet, queryCell, target, "External"); err != nil {
			return fmt.Errorf("failed to link row %d: %w", row, err)
		}
		if err := f.SetCellStyle(sheet, queryCell, queryCell, link); err != nil {
			return fmt.Errorf("failed to style row %d: %w", row, err)
		}
		widths[0] = max(widths[0], utf8.RuneCountInString(res.Query))

		for j, v := range common.Variants() {
			cell, _ := excelize.CoordinatesToCellName(j+2, row)
			text := r.placeholder()
			var value any = text
			if n, ok := res.Get(v).Get(); ok {
				value = n
				text = strconv.FormatUint(n, 10)
			}
			if err := f.SetCellValue(sheet, cell, value); err != nil {
				return fmt.Errorf("failed to write row %d: %w", row, err)
			}
			widths[j+1] = max(widths[j+1], utf8.RuneCountInString(text))
		}
	}

	for col, w := range widths {
		name, _ := excelize.ColumnNumberToName(col + 1)
		if err := f.SetColWidth(sheet, name, name, float64(min(w+2, maxColumnWidth))); err != nil {
			return fmt.Errorf("failed to size column %s: %w", name, err)
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save report: %w", err)
	}
	return nil
}

func (r Report) placeholder() string {
	if r.Placeholder == "" {
		return "N/A"
	}
	return r.Placeholder
}
