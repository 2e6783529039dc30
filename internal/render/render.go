// Package render writes analysis reports as JSON, Markdown, CSV, Excel
// workbooks and a console summary.
package render

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ppiankov/tdscan/internal/model"
	"github.com/shopspring/decimal"
)

// Renderer writes reports to files and a console stream
type Renderer struct {
	includeFooter bool
	out           io.Writer
}

// NewRenderer creates a renderer; the console summary goes to out
func NewRenderer(includeFooter bool, out io.Writer) *Renderer {
	if out == nil {
		out = os.Stdout
	}
	return &Renderer{includeFooter: includeFooter, out: out}
}

// RenderJSON writes the full report as indented JSON
func (r *Renderer) RenderJSON(report *model.Report, path string) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	return writeFile(path, append(data, '\n'))
}

// ReadJSON loads a report written by RenderJSON
func ReadJSON(path string) (*model.Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read report: %w", err)
	}
	var report model.Report
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("decode report %s: %w", path, err)
	}
	return &report, nil
}

// RenderText writes preformatted text such as a standalone narrative
func (r *Renderer) RenderText(text, path string) error {
	return writeFile(path, []byte(text))
}

func writeFile(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// money formats an amount with two decimals
func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}

func perBillLimit(limit *decimal.Decimal) string {
	if limit == nil {
		return "N/A"
	}
	return money(*limit)
}

// summaryHeader and summaryCells define the summary layout shared by the
// CSV and workbook renderers
var summaryHeader = []string{
	"Party Name", "Section", "Type", "Description", "Total Amount", "Threshold",
	"Per Bill Limit", "Rate", "TDS/TCS Applicable", "TDS/TCS Amount", "Reason",
	"Transaction Count", "Max Transaction", "Per Bill Breach", "Threshold Breach",
	"Matched Keyword", "Other Sections",
}

func summaryCells(row model.ReportRow) []interface{} {
	var limit interface{} = "N/A"
	if row.ThresholdPerTransaction != nil {
		limit = *row.ThresholdPerTransaction
	}
	return []interface{}{
		row.Party, row.Section, string(row.Category), row.Description,
		row.Total, row.ThresholdCumulative, limit, row.Rate,
		yesNo(row.Applicable), row.WithholdingAmount, row.Reason,
		row.TransactionCount, row.MaxTransaction,
		yesNo(row.PerBillBreach), yesNo(row.CumulativeBreach),
		row.MatchedKeyword, alternatives(row.Alternatives),
	}
}

var detailHeader = []string{
	"Row", "Date", "Debit Ledger", "Credit Ledger", "Voucher Type", "Voucher No.",
	"Amount", "Status", "TDS Section", "TDS Rate (%)", "TDS Amount",
	"Matched Keyword", "Confidence", "Error",
}

func detailCells(d model.DetailRow) []interface{} {
	var amount interface{} = d.Amount
	if d.Status == model.DetailInvalid {
		amount = d.RawAmount
	}
	return []interface{}{
		d.Row, d.Date, d.DebitParty, d.CreditParty, d.VoucherType, d.VoucherNumber,
		amount, string(d.Status), d.Section, d.Rate, d.IndicativeAmount,
		d.MatchedKeyword, string(d.Confidence), d.Error,
	}
}

var originalHeader = []string{
	model.ColumnDate, model.ColumnDebitLedger, model.ColumnCreditLedger,
	model.ColumnVoucherType, model.ColumnVoucherNumber, model.ColumnAmount,
}

func originalCells(d model.DetailRow) []interface{} {
	var amount interface{} = d.Amount
	if d.Status == model.DetailInvalid {
		amount = d.RawAmount
	}
	return []interface{}{d.Date, d.DebitParty, d.CreditParty, d.VoucherType, d.VoucherNumber, amount}
}

// statisticsRows lists the run statistics as metric/value pairs
func statisticsRows(s model.Statistics) [][]interface{} {
	return [][]interface{}{
		{"Total Transactions", s.TotalTransactions},
		{"Invalid Transactions", s.InvalidTransactions},
		{"Unmatched Transactions", s.UnmatchedTransactions},
		{"Total Amount", s.TotalAmount},
		{"Parties Detected", s.PartiesDetected},
		{"Applicable Parties", s.ApplicableParties},
		{"Applicable Amount", s.ApplicableAmount},
		{"Total TDS/TCS", s.TotalWithholding},
	}
}

func alternatives(cands []model.Candidate) string {
	if len(cands) == 0 {
		return ""
	}
	parts := make([]string, len(cands))
	for i, c := range cands {
		parts[i] = fmt.Sprintf("%s (%s, %s)", c.Section, c.Keyword, c.Confidence)
	}
	return strings.Join(parts, "; ")
}

// text converts a cell to its CSV/Markdown form
func text(v interface{}) string {
	switch val := v.(type) {
	case decimal.Decimal:
		return money(val)
	case string:
		return val
	default:
		return fmt.Sprint(val)
	}
}
