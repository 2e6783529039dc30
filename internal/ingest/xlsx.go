package ingest

import (
	"fmt"
	"io"

	"github.com/ppiankov/tdscan/internal/model"
	"github.com/xuri/excelize/v2"
)

// XLSXImporter reads the first sheet of an Excel workbook
type XLSXImporter struct{}

// NewXLSXImporter creates a new Excel importer
func NewXLSXImporter() *XLSXImporter {
	return &XLSXImporter{}
}

// Name returns the importer name
func (x *XLSXImporter) Name() string {
	return "xlsx"
}

// CanHandle checks the file extension
func (x *XLSXImporter) CanHandle(ext string) bool {
	return ext == ".xlsx" || ext == ".xlsm"
}

// Import reads the first sheet; its first row is the header
func (x *XLSXImporter) Import(r io.Reader) ([]model.RawTransaction, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer func() { _ = f.Close() }()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		return nil, ErrNoTable
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: sheet %q is empty", ErrNoTable, sheet)
	}
	return tableRecords(rows[0], rows[1:])
}
