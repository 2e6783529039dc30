// Package engine runs one analysis pass: match, aggregate, evaluate, and
// assemble the report with its detail rows and diagnostics.
package engine

import (
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/ppiankov/tdscan/internal/aggregate"
	"github.com/ppiankov/tdscan/internal/evaluate"
	"github.com/ppiankov/tdscan/internal/match"
	"github.com/ppiankov/tdscan/internal/model"
	"github.com/ppiankov/tdscan/internal/rules"
	"github.com/shopspring/decimal"
)

// Recorder receives the outcome of every analysis pass
type Recorder interface {
	ObserveReport(report *model.Report, elapsed time.Duration)
}

// Engine is stateless across runs; one instance may serve concurrent passes
// as long as each pass gets its own RuleSet.
type Engine struct {
	logger    *slog.Logger
	recorder  Recorder
	evaluator *evaluate.Evaluator
	now       func() time.Time
}

// Option configures an Engine
type Option func(*Engine)

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithRecorder reports every pass to r
func WithRecorder(r Recorder) Option {
	return func(e *Engine) { e.recorder = r }
}

// WithClock overrides the report timestamp source
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// New creates an engine
func New(opts ...Option) *Engine {
	e := &Engine{
		logger:    slog.Default(),
		evaluator: evaluate.NewEvaluator(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Analyze runs one pass with a default engine
func Analyze(rs *rules.RuleSet, records []model.RawTransaction) *model.Report {
	return New().Analyze(rs, records)
}

// Analyze runs one pass over the records. Malformed records become invalid
// detail rows and never abort the run. ruleDiags are diagnostics produced
// while building rs and are carried into the report.
func (e *Engine) Analyze(rs *rules.RuleSet, records []model.RawTransaction, ruleDiags ...model.Diagnostic) *model.Report {
	start := time.Now()

	report := &model.Report{
		RunID:       uuid.NewString(),
		GeneratedAt: e.now().UTC(),
		RuleCount:   rs.Len(),
		Details:     make([]model.DetailRow, len(records)),
	}
	report.Diagnostics = append(report.Diagnostics, ruleDiags...)

	// 1. Structural checks
	var (
		txs      []model.Transaction
		detailAt []int // detail index of each valid transaction
		total    = decimal.Zero
	)
	for i, raw := range records {
		tx, err := raw.Parse()
		if err != nil {
			report.Details[i] = invalidDetail(raw, err)
			report.Statistics.InvalidTransactions++
			report.Diagnostics = append(report.Diagnostics, model.Diagnostic{
				Type:        model.DiagnosticInvalidRecord,
				Severity:    model.SeverityWarning,
				Description: err.Error(),
				Data:        map[string]interface{}{"row": raw.Row},
			})
			e.logger.Warn("invalid record skipped", "row", raw.Row, "error", err)
			continue
		}
		txs = append(txs, tx)
		detailAt = append(detailAt, i)
		total = total.Add(tx.Amount)
	}

	// 2. Match and group
	matcher := match.New(rs, e.logger)
	agg := aggregate.Aggregate(txs, matcher.Match)

	// 3. Detail rows, input order
	for j, tx := range txs {
		report.Details[detailAt[j]] = matchedDetail(tx, agg.MatchesAt(j))
	}

	// 4. Verdicts
	report.Summary = e.evaluator.Evaluate(agg)

	report.Statistics.TotalTransactions = len(records)
	report.Statistics.UnmatchedTransactions = len(agg.Unmatched())
	report.Statistics.TotalAmount = total.Round(2)
	report.Recompute()

	// 5. Explainable notes
	if d, ok := unmatchedDiagnostic(txs, agg.Unmatched()); ok {
		report.Diagnostics = append(report.Diagnostics, d)
	}
	report.Diagnostics = append(report.Diagnostics, partyVariantDiagnostics(agg.Groups())...)

	elapsed := time.Since(start)
	e.logger.Info("analysis complete",
		"run_id", report.RunID,
		"records", len(records),
		"groups", agg.Len(),
		"applicable", report.Statistics.ApplicableParties,
		"elapsed", elapsed)

	if e.recorder != nil {
		e.recorder.ObserveReport(report, elapsed)
	}
	return report
}

func invalidDetail(raw model.RawTransaction, err error) model.DetailRow {
	return model.DetailRow{
		Row:           raw.Row,
		Date:          raw.Date,
		DebitParty:    raw.DebitParty,
		CreditParty:   raw.CreditParty,
		VoucherType:   raw.VoucherType,
		VoucherNumber: raw.VoucherNumber,
		RawAmount:     raw.Amount,
		Status:        model.DetailInvalid,
		Section:       model.NoSection,
		Error:         err.Error(),
	}
}

func matchedDetail(tx model.Transaction, matches []model.Match) model.DetailRow {
	row := model.DetailRow{
		Row:           tx.Row,
		Date:          tx.Date,
		DebitParty:    tx.DebitParty,
		CreditParty:   tx.CreditParty,
		VoucherType:   tx.VoucherType,
		VoucherNumber: tx.VoucherNumber,
		Amount:        tx.Amount,
		Status:        model.DetailUnmatched,
		Section:       model.NoSection,
	}
	if len(matches) == 0 {
		return row
	}

	winner := matches[0]
	row.Status = model.DetailMatched
	row.Section = winner.Rule.Section
	row.Rate = winner.Rule.Rate
	row.IndicativeAmount = evaluate.Withholding(tx.Amount, winner.Rule.Rate)
	row.MatchedKeyword = winner.Keyword
	row.Confidence = winner.Confidence
	row.Candidates = model.Candidates(matches)
	return row
}
