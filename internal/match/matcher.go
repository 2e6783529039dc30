// Package match detects withholding sections for ledger transactions by
// keyword search over the party texts.
package match

import (
	"cmp"
	"log/slog"
	"slices"
	"strings"

	"github.com/ppiankov/tdscan/internal/model"
	"github.com/ppiankov/tdscan/internal/rules"
)

// Matcher scans one transaction against the active rules of a run
type Matcher struct {
	rules  []*model.Rule
	logger *slog.Logger
}

// New creates a matcher over the rule set. The rule set is not modified.
func New(rs *rules.RuleSet, logger *slog.Logger) *Matcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Matcher{rules: rs.Active(), logger: logger}
}

// Match returns every rule that hits the transaction, best first.
//
// Each rule contributes at most one match: its keywords are tried in
// declared order and the first hit wins. Matches are ordered by priority
// and then confidence; rule order only decides among exact ties.
func (m *Matcher) Match(tx model.Transaction) []model.Match {
	debit := strings.ToLower(tx.DebitParty)
	credit := strings.ToLower(tx.CreditParty)

	var matches []model.Match
	for _, rule := range m.rules {
		if hit, ok := matchRule(rule, debit, credit); ok {
			matches = append(matches, hit)
		}
	}

	slices.SortStableFunc(matches, func(a, b model.Match) int {
		if c := cmp.Compare(a.Rule.Priority, b.Rule.Priority); c != 0 {
			return c
		}
		return cmp.Compare(a.Confidence.Rank(), b.Confidence.Rank())
	})

	if len(matches) > 1 {
		m.logger.Debug("multiple sections matched",
			"row", tx.Row,
			"winner", matches[0].Rule.Section,
			"candidates", len(matches))
	}
	return matches
}

// Winner returns the best match, if any
func (m *Matcher) Winner(tx model.Transaction) (model.Match, bool) {
	matches := m.Match(tx)
	if len(matches) == 0 {
		return model.Match{}, false
	}
	return matches[0], true
}

func matchRule(rule *model.Rule, debit, credit string) (model.Match, bool) {
	for _, kw := range rule.Keywords {
		if kw == "" {
			continue
		}
		switch rule.SearchTarget {
		case model.SearchDebit:
			if strings.Contains(debit, kw) {
				return hit(rule, kw, model.SideDebit, debit), true
			}
		case model.SearchCredit:
			if strings.Contains(credit, kw) {
				return hit(rule, kw, model.SideCredit, credit), true
			}
		case model.SearchEither:
			if strings.Contains(debit, kw) {
				return hit(rule, kw, model.SideDebit, debit), true
			}
			if strings.Contains(credit, kw) {
				return hit(rule, kw, model.SideCredit, credit), true
			}
		}
	}
	return model.Match{}, false
}

func hit(rule *model.Rule, keyword string, side model.Side, text string) model.Match {
	return model.Match{
		Rule:       rule,
		Keyword:    keyword,
		Side:       side,
		Confidence: confidence(keyword, text),
	}
}

// confidence is high when the keyword is a whole whitespace token of text.
// Multi-word keywords can never equal a single token, so they score medium.
func confidence(keyword, text string) model.Confidence {
	if slices.Contains(strings.Fields(text), keyword) {
		return model.ConfidenceHigh
	}
	return model.ConfidenceMedium
}
