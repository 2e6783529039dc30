package render

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/ppiankov/tdscan/internal/model"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

// Workbook sheet names
const (
	SheetSummary    = "Summary"
	SheetDetails    = "Transaction Details"
	SheetPayable    = "TDS_TCS_Payable"
	SheetOriginal   = "Original Data"
	SheetStatistics = "Statistics"
)

type sheetSpec struct {
	name   string
	header []string
	rows   [][]interface{}
}

// RenderWorkbook writes the report as an Excel workbook. The payable sheet
// is only present when at least one group is applicable.
func (r *Renderer) RenderWorkbook(report *model.Report, path string) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	summary := make([][]interface{}, len(report.Summary))
	for i, row := range report.Summary {
		summary[i] = summaryCells(row)
	}
	details := make([][]interface{}, len(report.Details))
	original := make([][]interface{}, len(report.Details))
	for i, d := range report.Details {
		details[i] = detailCells(d)
		original[i] = originalCells(d)
	}

	sheets := []sheetSpec{
		{SheetSummary, summaryHeader, summary},
		{SheetDetails, detailHeader, details},
	}
	if payable := report.Payable(); len(payable) > 0 {
		rows := make([][]interface{}, len(payable))
		for i, row := range payable {
			rows[i] = summaryCells(row)
		}
		sheets = append(sheets, sheetSpec{SheetPayable, summaryHeader, rows})
	}
	sheets = append(sheets,
		sheetSpec{SheetOriginal, originalHeader, original},
		sheetSpec{SheetStatistics, []string{"Metric", "Value"}, statisticsRows(report.Statistics)},
	)

	defaultSheet := f.GetSheetName(0)
	for _, s := range sheets {
		if _, err := f.NewSheet(s.name); err != nil {
			return fmt.Errorf("create sheet %q: %w", s.name, err)
		}
		if err := writeSheet(f, s.name, s.header, s.rows); err != nil {
			return err
		}
	}
	if err := f.DeleteSheet(defaultSheet); err != nil {
		return fmt.Errorf("remove default sheet: %w", err)
	}
	f.SetActiveSheet(0)

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save workbook: %w", err)
	}
	return nil
}

func writeSheet(f *excelize.File, sheet string, header []string, rows [][]interface{}) error {
	head := make([]interface{}, len(header))
	for i, h := range header {
		head[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &head); err != nil {
		return fmt.Errorf("write %s header: %w", sheet, err)
	}

	for i, row := range rows {
		cells := make([]interface{}, len(row))
		for j, v := range row {
			cells[j] = cellValue(v)
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &cells); err != nil {
			return fmt.Errorf("write %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}

// cellValue stores amounts as numbers so spreadsheets can sum them
func cellValue(v interface{}) interface{} {
	if d, ok := v.(decimal.Decimal); ok {
		f, _ := d.Round(2).Float64()
		return f
	}
	return v
}
