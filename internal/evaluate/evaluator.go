// Package evaluate applies the threshold policy to aggregated groups and
// produces the summary rows of a report.
package evaluate

import (
	"cmp"
	"slices"
	"strings"

	"github.com/ppiankov/tdscan/internal/aggregate"
	"github.com/ppiankov/tdscan/internal/model"
	"github.com/shopspring/decimal"
)

// Breach reasons shown in reports
const (
	ReasonPerBill        = "Single transaction exceeds per-bill limit"
	ReasonCumulative     = "Total exceeds threshold"
	ReasonBelowThreshold = "Below threshold"

	// ReasonRateEditedBelow marks a below-threshold row whose rate was edited.
	// Its amount is informational and stays out of the total withholding.
	ReasonRateEditedBelow = "Below threshold; rate edited, amount excluded from total withholding"
)

var hundred = decimal.NewFromInt(100)

// Evaluator decides applicability per group. It holds no state, so
// evaluating the same groups twice yields identical rows.
type Evaluator struct{}

// NewEvaluator creates a new evaluator
func NewEvaluator() *Evaluator {
	return &Evaluator{}
}

// Evaluate produces one row per group, largest total first
func (e *Evaluator) Evaluate(agg *aggregate.Aggregation) []model.ReportRow {
	return e.EvaluateGroups(agg.Groups())
}

// EvaluateGroups produces one row per group, largest total first. Groups
// must be given in creation order; equal totals keep that order.
func (e *Evaluator) EvaluateGroups(groups []*model.Group) []model.ReportRow {
	// Order on full-precision totals; row totals are already rounded
	ordered := slices.Clone(groups)
	slices.SortStableFunc(ordered, func(a, b *model.Group) int {
		return cmp.Compare(0, a.Total.Cmp(b.Total))
	})

	rows := make([]model.ReportRow, 0, len(ordered))
	for _, g := range ordered {
		rows = append(rows, e.evaluateGroup(g))
	}
	return rows
}

func (e *Evaluator) evaluateGroup(g *model.Group) model.ReportRow {
	rule := g.Rule

	perBill := e.perBillBreach(g)
	cumulative := e.cumulativeBreach(g)
	applicable := perBill || cumulative

	amount := decimal.Zero
	if applicable {
		amount = Withholding(g.Total, rule.Rate)
	}

	row := model.ReportRow{
		Party:                   g.Key.Party,
		Section:                 g.Key.Section,
		Category:                rule.Category,
		Description:             rule.Description,
		Total:                   g.Total.Round(2),
		ThresholdCumulative:     rule.ThresholdCumulative,
		ThresholdPerTransaction: rule.ThresholdPerTransaction,
		Rate:                    rule.Rate,
		Applicable:              applicable,
		WithholdingAmount:       amount,
		Reason:                  reason(perBill, cumulative),
		TransactionCount:        len(g.Transactions),
		MaxTransaction:          g.Max.Round(2),
		PerBillBreach:           perBill,
		CumulativeBreach:        cumulative,
	}
	if len(g.Matches) > 0 {
		row.MatchedKeyword = g.Matches[0].Keyword
		row.Alternatives = model.Candidates(g.Matches[1:])
	}
	return row
}

// perBillBreach is only possible when the rule enforces a per-bill limit
func (e *Evaluator) perBillBreach(g *model.Group) bool {
	if !g.Rule.HasPerTransactionLimit() {
		return false
	}
	return g.Max.GreaterThanOrEqual(*g.Rule.ThresholdPerTransaction)
}

func (e *Evaluator) cumulativeBreach(g *model.Group) bool {
	return g.Total.GreaterThanOrEqual(g.Rule.ThresholdCumulative)
}

func reason(perBill, cumulative bool) string {
	var parts []string
	if perBill {
		parts = append(parts, ReasonPerBill)
	}
	if cumulative {
		parts = append(parts, ReasonCumulative)
	}
	if len(parts) == 0 {
		return ReasonBelowThreshold
	}
	return strings.Join(parts, " and ")
}

// Withholding computes round(total × rate / 100, 2) on the full total.
// Rounding is half away from zero.
func Withholding(total, rate decimal.Decimal) decimal.Decimal {
	return total.Mul(rate).Div(hundred).Round(2)
}
