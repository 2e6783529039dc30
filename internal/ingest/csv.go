package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"

	"github.com/ppiankov/tdscan/internal/model"
)

// CSVImporter reads comma-separated ledgers with a header row
type CSVImporter struct{}

// NewCSVImporter creates a new CSV importer
func NewCSVImporter() *CSVImporter {
	return &CSVImporter{}
}

// Name returns the importer name
func (c *CSVImporter) Name() string {
	return "csv"
}

// CanHandle checks the file extension
func (c *CSVImporter) CanHandle(ext string) bool {
	return ext == ".csv" || ext == ".txt"
}

// Import reads all rows
func (c *CSVImporter) Import(r io.Reader) ([]model.RawTransaction, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: empty file", ErrNoTable)
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read rows: %w", err)
	}
	return tableRecords(header, rows)
}
