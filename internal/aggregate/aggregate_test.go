package aggregate

import (
	"testing"

	"github.com/ppiankov/tdscan/internal/match"
	"github.com/ppiankov/tdscan/internal/model"
	"github.com/ppiankov/tdscan/internal/rules"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMatcher(t *testing.T, rs ...model.Rule) MatchFunc {
	t.Helper()
	return match.New(rules.NewRuleSet(rs...), nil).Match
}

func rentRule() model.Rule {
	return model.Rule{
		Section:             "X",
		Keywords:            []string{"rent"},
		ThresholdCumulative: decimal.NewFromInt(100000),
		Rate:                decimal.NewFromInt(10),
		SearchTarget:        model.SearchCredit,
		Priority:            1,
		Enabled:             true,
	}
}

func cashRule() model.Rule {
	return model.Rule{
		Section:             "194N",
		Keywords:            []string{"cash"},
		ThresholdCumulative: decimal.NewFromInt(10000000),
		Rate:                decimal.NewFromInt(2),
		SearchTarget:        model.SearchDebit,
		Priority:            1,
		Enabled:             true,
	}
}

func tx(row int, debit, credit, amount string) model.Transaction {
	return model.Transaction{
		Row:         row,
		DebitParty:  debit,
		CreditParty: credit,
		Amount:      decimal.RequireFromString(amount),
	}
}

func TestGroupsByPartyAndSection(t *testing.T) {
	txs := []model.Transaction{
		tx(1, "Rent Expense", "Office Rent Co", "60000"),
		tx(2, "Stationery", "Paper Mart", "5000"),
		tx(3, "Rent Expense", "Office Rent Co", "50000"),
		tx(4, "Rent Expense", "Shop Rent LLP", "70000"),
	}

	agg := Aggregate(txs, newMatcher(t, rentRule()))

	require.Equal(t, 2, agg.Len())
	assert.Equal(t, 3, agg.Matched())
	assert.Equal(t, []int{1}, agg.Unmatched())

	g, ok := agg.Get(model.GroupKey{Party: "Office Rent Co", Section: "X"})
	require.True(t, ok)
	assert.True(t, g.Total.Equal(decimal.NewFromInt(110000)))
	assert.True(t, g.Max.Equal(decimal.NewFromInt(60000)))
	require.Len(t, g.Transactions, 2)
	assert.Equal(t, 1, g.Transactions[0].Row)
	assert.Equal(t, 3, g.Transactions[1].Row)

	groups := agg.Groups()
	assert.Equal(t, "Office Rent Co", groups[0].Key.Party)
	assert.Equal(t, "Shop Rent LLP", groups[1].Key.Party)
	assert.Equal(t, 0, groups[0].Order)
	assert.Equal(t, 1, groups[1].Order)
}

func TestDebitRulesGroupByDebitParty(t *testing.T) {
	txs := []model.Transaction{
		tx(1, "Cash Withdrawal", "HDFC Bank", "1000"),
		tx(2, "Cash Withdrawal", "SBI", "2000"),
	}

	agg := Aggregate(txs, newMatcher(t, cashRule()))

	require.Equal(t, 1, agg.Len())
	g := agg.Groups()[0]
	assert.Equal(t, "Cash Withdrawal", g.Key.Party)
	assert.True(t, g.Total.Equal(decimal.NewFromInt(3000)))
}

func TestPartyVariantsAreNotMerged(t *testing.T) {
	txs := []model.Transaction{
		tx(1, "Rent", "Office Rent Co", "100"),
		tx(2, "Rent", "OFFICE RENT CO", "100"),
	}

	agg := Aggregate(txs, newMatcher(t, rentRule()))
	assert.Equal(t, 2, agg.Len())
}

func TestTotalsKeepFullPrecision(t *testing.T) {
	var txs []model.Transaction
	for i := 0; i < 1000; i++ {
		txs = append(txs, tx(i+1, "Rent", "Office Rent Co", "0.005"))
	}

	agg := Aggregate(txs, newMatcher(t, rentRule()))
	g := agg.Groups()[0]
	assert.Equal(t, "5", g.Total.String())
}

func TestTotalsEqualMatchedAmounts(t *testing.T) {
	txs := []model.Transaction{
		tx(1, "Rent", "A Rent", "10.25"),
		tx(2, "Cash", "Bank", "99"),
		tx(3, "Misc", "Nobody", "500"),
		tx(4, "Rent", "B Rent", "0"),
		tx(5, "Rent", "A Rent", "3.75"),
	}
	matchFn := newMatcher(t, rentRule(), cashRule())
	agg := Aggregate(txs, matchFn)

	groupSum := decimal.Zero
	for _, g := range agg.Groups() {
		groupSum = groupSum.Add(g.Total)
	}
	matchedSum := decimal.Zero
	for _, transaction := range txs {
		if len(matchFn(transaction)) > 0 {
			matchedSum = matchedSum.Add(transaction.Amount)
		}
	}
	assert.True(t, groupSum.Equal(matchedSum), "group sum %s != matched sum %s", groupSum, matchedSum)
	assert.Equal(t, 4, agg.Matched())
	assert.Equal(t, []int{2}, agg.Unmatched())
}

func TestGroupRetainsMatchList(t *testing.T) {
	other := rentRule()
	other.Section = "Y"
	other.Priority = 2

	agg := Aggregate([]model.Transaction{tx(1, "Rent", "Rent Co", "1")}, newMatcher(t, rentRule(), other))
	g := agg.Groups()[0]
	require.Len(t, g.Matches, 2)
	assert.Equal(t, "X", g.Rule.Section)
	assert.Equal(t, "Y", g.Matches[1].Rule.Section)
	assert.Len(t, agg.MatchesAt(0), 2)
	assert.Nil(t, agg.MatchesAt(5))
}

func TestEmptyInput(t *testing.T) {
	agg := Aggregate(nil, newMatcher(t, rentRule()))
	assert.Equal(t, 0, agg.Len())
	assert.Empty(t, agg.Groups())
	assert.Empty(t, agg.Unmatched())
}
