package model

import "github.com/shopspring/decimal"

// Side identifies a ledger column of a transaction
type Side string

const (
	SideDebit  Side = "debit"
	SideCredit Side = "credit"
)

// Confidence grades how a keyword hit the ledger text
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"   // Keyword equals a whole whitespace token
	ConfidenceMedium Confidence = "medium" // Substring-only hit (e.g. "rent" in "parent")
)

// Rank orders confidences for tie-breaking; lower wins
func (c Confidence) Rank() int {
	switch c {
	case ConfidenceHigh:
		return 0
	case ConfidenceMedium:
		return 1
	default:
		return 2
	}
}

// Match is one rule hit for one transaction
type Match struct {
	Rule       *Rule
	Keyword    string
	Side       Side
	Confidence Confidence
}

// Candidate is the serialisable view of a Match kept for auditing
type Candidate struct {
	Section    string          `json:"section"`
	Rate       decimal.Decimal `json:"rate"`
	Priority   int             `json:"priority"`
	Keyword    string          `json:"keyword"`
	Side       Side            `json:"side"`
	Confidence Confidence      `json:"confidence"`
}

// Candidates converts matches to their audit view, preserving order
func Candidates(matches []Match) []Candidate {
	if len(matches) == 0 {
		return nil
	}
	out := make([]Candidate, len(matches))
	for i, m := range matches {
		out[i] = Candidate{
			Section:    m.Rule.Section,
			Rate:       m.Rule.Rate,
			Priority:   m.Rule.Priority,
			Keyword:    m.Keyword,
			Side:       m.Side,
			Confidence: m.Confidence,
		}
	}
	return out
}

// GroupKey identifies a counterparty+section group
type GroupKey struct {
	Party   string
	Section string
}

// Group accumulates the matched transactions of one counterparty+section
type Group struct {
	Key          GroupKey
	Rule         *Rule
	Matches      []Match // Full match list of the first member, for audit
	Transactions []Transaction
	Total        decimal.Decimal // Full precision, rounded only on output
	Max          decimal.Decimal
	Order        int // Creation index within the aggregation pass
}
