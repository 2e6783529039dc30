package ingest

import (
	"fmt"
	"io"
	"strings"

	"github.com/ppiankov/tdscan/internal/model"
	"golang.org/x/net/html"
)

// HTMLImporter reads the first table of an HTML ledger export
type HTMLImporter struct{}

// NewHTMLImporter creates a new HTML importer
func NewHTMLImporter() *HTMLImporter {
	return &HTMLImporter{}
}

// Name returns the importer name
func (h *HTMLImporter) Name() string {
	return "html"
}

// CanHandle checks the file extension
func (h *HTMLImporter) CanHandle(ext string) bool {
	return ext == ".html" || ext == ".htm"
}

// Import parses the document; the first row of the table is the header
func (h *HTMLImporter) Import(r io.Reader) ([]model.RawTransaction, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	table := findFirst(doc, func(n *html.Node) bool {
		return n.Type == html.ElementNode && n.Data == "table"
	})
	if table == nil {
		return nil, ErrNoTable
	}

	var grid [][]string
	for _, tr := range findAll(table, func(n *html.Node) bool {
		return n.Type == html.ElementNode && n.Data == "tr"
	}) {
		var cells []string
		for c := tr.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.ElementNode && (c.Data == "td" || c.Data == "th") {
				cells = append(cells, extractText(c))
			}
		}
		grid = append(grid, cells)
	}
	if len(grid) == 0 {
		return nil, ErrNoTable
	}
	return tableRecords(grid[0], grid[1:])
}

// extractText joins the text nodes under n, skipping scripts and styles
func extractText(n *html.Node) string {
	var buf strings.Builder

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "noscript":
				return
			}
		}
		if n.Type == html.TextNode {
			text := strings.TrimSpace(n.Data)
			if text != "" {
				if buf.Len() > 0 {
					buf.WriteString(" ")
				}
				buf.WriteString(text)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}

	walk(n)
	return buf.String()
}

func findAll(n *html.Node, predicate func(*html.Node) bool) []*html.Node {
	var results []*html.Node

	var walk func(*html.Node)
	walk = func(node *html.Node) {
		if predicate(node) {
			results = append(results, node)
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}

	walk(n)
	return results
}

func findFirst(n *html.Node, predicate func(*html.Node) bool) *html.Node {
	var result *html.Node

	var walk func(*html.Node) bool
	walk = func(node *html.Node) bool {
		if predicate(node) {
			result = node
			return true
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			if walk(c) {
				return true
			}
		}
		return false
	}

	walk(n)
	return result
}
