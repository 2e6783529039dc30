package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// NoSection is the section recorded for transactions without a winning rule
const NoSection = "none"

// Report is the complete output of one analysis run
type Report struct {
	RunID       string       `json:"run_id"`
	Source      string       `json:"source"`       // Ledger that was analyzed
	GeneratedAt time.Time    `json:"generated_at"` // When the analysis ran
	RuleCount   int          `json:"rule_count"`   // Active rules used for matching
	Summary     []ReportRow  `json:"summary"`      // One row per counterparty+section group
	Details     []DetailRow  `json:"details"`      // One row per input record, input order
	Statistics  Statistics   `json:"statistics"`
	Diagnostics []Diagnostic `json:"diagnostics,omitempty"`

	Narrative *Narrative `json:"narrative,omitempty"` // Optional LLM text, never affects amounts
}

// ReportRow is the verdict for one counterparty+section group
type ReportRow struct {
	Party                   string           `json:"party"`
	Section                 string           `json:"section"`
	Category                Category         `json:"type"`
	Description             string           `json:"description,omitempty"`
	Total                   decimal.Decimal  `json:"total_amount"`
	ThresholdCumulative     decimal.Decimal  `json:"threshold"`
	ThresholdPerTransaction *decimal.Decimal `json:"per_bill_limit,omitempty"`
	Rate                    decimal.Decimal  `json:"rate"`
	Applicable              bool             `json:"applicable"`
	WithholdingAmount       decimal.Decimal  `json:"withholding_amount"`
	Reason                  string           `json:"reason"`
	TransactionCount        int              `json:"transaction_count"`
	MaxTransaction          decimal.Decimal  `json:"max_transaction"`
	PerBillBreach           bool             `json:"per_bill_breach"`
	CumulativeBreach        bool             `json:"threshold_breach"`
	MatchedKeyword          string           `json:"matched_keyword"`
	Alternatives            []Candidate      `json:"alternatives,omitempty"` // Signal only
}

// DetailStatus classifies a detail row
type DetailStatus string

const (
	DetailMatched   DetailStatus = "matched"
	DetailUnmatched DetailStatus = "unmatched"
	DetailInvalid   DetailStatus = "invalid"
)

// DetailRow carries one input record and its detection outcome
type DetailRow struct {
	Row              int             `json:"row"`
	Date             string          `json:"date"`
	DebitParty       string          `json:"debit_ledger"`
	CreditParty      string          `json:"credit_ledger"`
	VoucherType      string          `json:"voucher_type,omitempty"`
	VoucherNumber    string          `json:"voucher_no,omitempty"`
	Amount           decimal.Decimal `json:"amount"`
	RawAmount        string          `json:"raw_amount,omitempty"` // Only kept for invalid rows
	Status           DetailStatus    `json:"status"`
	Section          string          `json:"section"`
	Rate             decimal.Decimal `json:"rate"`
	IndicativeAmount decimal.Decimal `json:"indicative_amount"`
	MatchedKeyword   string          `json:"matched_keyword,omitempty"`
	Confidence       Confidence      `json:"confidence,omitempty"`
	Candidates       []Candidate     `json:"candidates,omitempty"`
	Error            string          `json:"error,omitempty"`
}

// Statistics are the run-level totals shown alongside the summary
type Statistics struct {
	TotalTransactions     int             `json:"total_transactions"`
	InvalidTransactions   int             `json:"invalid_transactions"`
	UnmatchedTransactions int             `json:"unmatched_transactions"`
	TotalAmount           decimal.Decimal `json:"total_amount"`
	PartiesDetected       int             `json:"parties_detected"`
	ApplicableParties     int             `json:"applicable_parties"`
	ApplicableAmount      decimal.Decimal `json:"applicable_amount"`
	TotalWithholding      decimal.Decimal `json:"total_withholding"`
}

// Diagnostic is an explainable note about the run (never changes amounts)
type Diagnostic struct {
	Type        DiagnosticType         `json:"type"`
	Severity    Severity               `json:"severity"`
	Description string                 `json:"description"`
	Data        map[string]interface{} `json:"data,omitempty"`
}

// DiagnosticType classifies a diagnostic
type DiagnosticType string

const (
	DiagnosticRuleConfiguration DiagnosticType = "rule_configuration" // Rule excluded from the active set
	DiagnosticRuleOverridden    DiagnosticType = "rule_overridden"    // Overlay replaced a built-in section
	DiagnosticRuleDisabled      DiagnosticType = "rule_disabled"      // Section switched off for the run
	DiagnosticInvalidRecord     DiagnosticType = "invalid_record"     // Record failed structural checks
	DiagnosticUnmatchedRecords  DiagnosticType = "unmatched_records"  // Records with no section
	DiagnosticPartyVariants     DiagnosticType = "party_name_variants"
)

// Severity indicates how much attention a diagnostic needs
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Narrative is an optional plain-language summary written by an LLM
type Narrative struct {
	Provider       string   `json:"provider,omitempty"`
	Model          string   `json:"model,omitempty"`
	StrictSections bool     `json:"strict_sections"`
	Text           string   `json:"text,omitempty"`
	Cached         bool     `json:"cached,omitempty"`
	Warnings       []string `json:"warnings,omitempty"`
}

// Payable returns the applicable rows, keeping summary order
func (r *Report) Payable() []ReportRow {
	var out []ReportRow
	for _, row := range r.Summary {
		if row.Applicable {
			out = append(out, row)
		}
	}
	return out
}

// Recompute refreshes the summary-derived statistics after an edit
func (r *Report) Recompute() {
	r.Statistics.PartiesDetected = len(r.Summary)
	r.Statistics.ApplicableParties = 0
	r.Statistics.ApplicableAmount = decimal.Zero
	r.Statistics.TotalWithholding = decimal.Zero
	for _, row := range r.Summary {
		if row.Applicable {
			r.Statistics.ApplicableParties++
			r.Statistics.ApplicableAmount = r.Statistics.ApplicableAmount.Add(row.Total)
			r.Statistics.TotalWithholding = r.Statistics.TotalWithholding.Add(row.WithholdingAmount)
		}
	}
}
