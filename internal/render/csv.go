package render

import (
	"bytes"
	"encoding/csv"
	"fmt"

	"github.com/ppiankov/tdscan/internal/model"
)

// RenderSummaryCSV writes one line per summary row
func (r *Renderer) RenderSummaryCSV(report *model.Report, path string) error {
	rows := make([][]interface{}, len(report.Summary))
	for i, row := range report.Summary {
		rows[i] = summaryCells(row)
	}
	return writeCSV(path, summaryHeader, rows)
}

// RenderDetailsCSV writes one line per input record
func (r *Renderer) RenderDetailsCSV(report *model.Report, path string) error {
	rows := make([][]interface{}, len(report.Details))
	for i, d := range report.Details {
		rows[i] = detailCells(d)
	}
	return writeCSV(path, detailHeader, rows)
}

func writeCSV(path string, header []string, rows [][]interface{}) error {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, row := range rows {
		record := make([]string, len(row))
		for i, v := range row {
			record[i] = text(v)
		}
		if err := w.Write(record); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return writeFile(path, buf.Bytes())
}
