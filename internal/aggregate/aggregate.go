// Package aggregate groups matched transactions by counterparty and section.
package aggregate

import (
	"github.com/ppiankov/tdscan/internal/model"
)

// MatchFunc returns the ordered matches of one transaction
type MatchFunc func(model.Transaction) []model.Match

// Aggregation is the result of one grouping pass. Read-only once returned.
type Aggregation struct {
	groups    map[model.GroupKey]*model.Group
	order     []model.GroupKey
	matched   int
	unmatched []int
	matches   [][]model.Match
}

// Aggregate groups transactions in a single forward pass.
//
// The winning match of each transaction decides its group: the party is the
// text of the side the winning rule designates, the section is the rule's.
// Party names are used verbatim; differently spelled variants of the same
// counterparty form separate groups.
func Aggregate(txs []model.Transaction, matchFn MatchFunc) *Aggregation {
	a := &Aggregation{
		groups:  make(map[model.GroupKey]*model.Group),
		matches: make([][]model.Match, len(txs)),
	}

	for i, tx := range txs {
		matches := matchFn(tx)
		a.matches[i] = matches
		if len(matches) == 0 {
			a.unmatched = append(a.unmatched, i)
			continue
		}

		winner := matches[0]
		key := model.GroupKey{
			Party:   tx.Party(winner.Rule.PartySide()),
			Section: winner.Rule.Section,
		}

		g, ok := a.groups[key]
		if !ok {
			g = &model.Group{
				Key:     key,
				Rule:    winner.Rule,
				Matches: matches,
				Order:   len(a.order),
			}
			a.groups[key] = g
			a.order = append(a.order, key)
		}

		g.Transactions = append(g.Transactions, tx)
		g.Total = g.Total.Add(tx.Amount)
		if len(g.Transactions) == 1 || tx.Amount.GreaterThan(g.Max) {
			g.Max = tx.Amount
		}
		a.matched++
	}

	return a
}

// Groups returns the groups in creation order
func (a *Aggregation) Groups() []*model.Group {
	out := make([]*model.Group, len(a.order))
	for i, key := range a.order {
		out[i] = a.groups[key]
	}
	return out
}

// Get looks up one group
func (a *Aggregation) Get(key model.GroupKey) (*model.Group, bool) {
	g, ok := a.groups[key]
	return g, ok
}

// Len returns the number of groups
func (a *Aggregation) Len() int {
	return len(a.order)
}

// Matched returns the number of transactions placed in a group
func (a *Aggregation) Matched() int {
	return a.matched
}

// Unmatched returns the input indices of transactions without a match
func (a *Aggregation) Unmatched() []int {
	return append([]int(nil), a.unmatched...)
}

// MatchesAt returns the ordered matches computed for input index i
func (a *Aggregation) MatchesAt(i int) []model.Match {
	if i < 0 || i >= len(a.matches) {
		return nil
	}
	return a.matches[i]
}
