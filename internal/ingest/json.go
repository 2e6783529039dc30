package ingest

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/ppiankov/tdscan/internal/model"
)

// JSONImporter reads an array of objects keyed by column name
type JSONImporter struct{}

// NewJSONImporter creates a new JSON importer
func NewJSONImporter() *JSONImporter {
	return &JSONImporter{}
}

// Name returns the importer name
func (j *JSONImporter) Name() string {
	return "json"
}

// CanHandle checks the file extension
func (j *JSONImporter) CanHandle(ext string) bool {
	return ext == ".json"
}

// Import decodes the array; keys are matched like table headers
func (j *JSONImporter) Import(r io.Reader) ([]model.RawTransaction, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	var objects []map[string]interface{}
	if err := dec.Decode(&objects); err != nil {
		return nil, fmt.Errorf("decode ledger: %w", err)
	}
	if len(objects) == 0 {
		return nil, nil
	}

	// Header is the set of canonical columns present in any object
	var header []string
	seen := make(map[string]bool)
	for _, obj := range objects {
		for key := range obj {
			col, ok := canonicalColumn(key)
			if !ok || seen[col] {
				continue
			}
			seen[col] = true
			header = append(header, col)
		}
	}

	rows := make([][]string, len(objects))
	for i, obj := range objects {
		row := make([]string, len(header))
		for key, value := range obj {
			col, ok := canonicalColumn(key)
			if !ok {
				continue
			}
			for h, name := range header {
				if name == col && row[h] == "" {
					row[h] = stringify(value)
				}
			}
		}
		rows[i] = row
	}
	return tableRecords(header, rows)
}

func stringify(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case json.Number:
		return val.String()
	default:
		return strings.TrimSpace(fmt.Sprint(val))
	}
}
