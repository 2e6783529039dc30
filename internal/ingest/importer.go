// Package ingest turns ledger exports (CSV, JSON, HTML tables, Excel) into
// raw transactions in the canonical column shape.
package ingest

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ppiankov/tdscan/internal/model"
)

var (
	// ErrMissingColumns means the ledger lacks one or more required columns
	ErrMissingColumns = errors.New("missing required columns")
	// ErrUnsupportedFormat means no importer handles the file
	ErrUnsupportedFormat = errors.New("unsupported ledger format")
	// ErrNoTable means the document has no tabular data
	ErrNoTable = errors.New("no table found")
)

// Importer reads one ledger format
type Importer interface {
	// Name returns the format name used by --format
	Name() string

	// CanHandle checks if this importer reads files with the given extension
	CanHandle(ext string) bool

	// Import reads every data row of the ledger
	Import(r io.Reader) ([]model.RawTransaction, error)
}

// Registry selects an importer by explicit format or file extension
type Registry struct {
	importers []Importer
}

// NewRegistry creates a registry with the built-in importers
func NewRegistry() *Registry {
	registry := &Registry{}
	registry.Register(NewCSVImporter())
	registry.Register(NewJSONImporter())
	registry.Register(NewHTMLImporter())
	registry.Register(NewXLSXImporter())
	return registry
}

// Register adds an importer; later registrations do not override earlier ones
func (r *Registry) Register(imp Importer) {
	r.importers = append(r.importers, imp)
}

// Find returns the importer for format, or for the path's extension when
// format is empty
func (r *Registry) Find(path, format string) (Importer, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	if format != "" {
		for _, imp := range r.importers {
			if imp.Name() == format {
				return imp, nil
			}
		}
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}

	ext := strings.ToLower(filepath.Ext(path))
	for _, imp := range r.importers {
		if imp.CanHandle(ext) {
			return imp, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
}

// ImportFile opens path and imports it
func (r *Registry) ImportFile(path, format string) ([]model.RawTransaction, error) {
	imp, err := r.Find(path, format)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}
	defer func() { _ = f.Close() }()

	records, err := imp.Import(f)
	if err != nil {
		return nil, fmt.Errorf("import %s as %s: %w", filepath.Base(path), imp.Name(), err)
	}
	return records, nil
}

// Formats lists the registered format names
func (r *Registry) Formats() []string {
	names := make([]string, len(r.importers))
	for i, imp := range r.importers {
		names[i] = imp.Name()
	}
	return names
}
