package model

import (
	"encoding/json"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// SearchTarget names the ledger side(s) a rule scans for keywords
type SearchTarget string

const (
	SearchDebit  SearchTarget = "debit"  // Debit ledger text only
	SearchCredit SearchTarget = "credit" // Credit ledger text only
	SearchEither SearchTarget = "either" // Debit first, then credit
)

// Category distinguishes withholding on payments from collection at source
type Category string

const (
	CategoryPayment    Category = "TDS" // Tax deducted at source (payer withholds)
	CategoryCollection Category = "TCS" // Tax collected at source (seller collects)
)

// Rule is one withholding rule. Section is the grouping identity; duplicate
// sections with different rates are legal and are told apart only by keyword.
type Rule struct {
	Section                 string           `json:"section" yaml:"section" validate:"required"`
	Description             string           `json:"description,omitempty" yaml:"description,omitempty"`
	Keywords                []string         `json:"keywords" yaml:"keywords" validate:"required,min=1,dive,required"`
	ThresholdCumulative     decimal.Decimal  `json:"threshold" yaml:"threshold" validate:"gte=0"`
	ThresholdPerTransaction *decimal.Decimal `json:"per_bill_limit,omitempty" yaml:"per_bill_limit,omitempty" validate:"omitempty,gte=0"`
	Rate                    decimal.Decimal  `json:"rate" yaml:"rate" validate:"gte=0"`
	SearchTarget            SearchTarget     `json:"search_in" yaml:"search_in" validate:"required,oneof=debit credit either"`
	Priority                int              `json:"priority" yaml:"priority" validate:"gte=0"`
	Enabled                 bool             `json:"enabled" yaml:"enabled"`
	Category                Category         `json:"type,omitempty" yaml:"type,omitempty" validate:"omitempty,oneof=TDS TCS"`
	Custom                  bool             `json:"custom" yaml:"-"`
}

// HasPerTransactionLimit reports whether the per-bill threshold is enforced
func (r *Rule) HasPerTransactionLimit() bool {
	return r.ThresholdPerTransaction != nil
}

// PartySide returns the ledger side whose text names the counterparty.
// Credit rules point at the credit party; everything else at the debit party.
func (r *Rule) PartySide() Side {
	if r.SearchTarget == SearchCredit {
		return SideCredit
	}
	return SideDebit
}

// Clone returns a deep copy so rule sets never share mutable state
func (r Rule) Clone() Rule {
	out := r
	out.Keywords = append([]string(nil), r.Keywords...)
	if r.ThresholdPerTransaction != nil {
		limit := *r.ThresholdPerTransaction
		out.ThresholdPerTransaction = &limit
	}
	return out
}

// UnmarshalJSON decodes a rule, treating a missing "enabled" key as true
func (r *Rule) UnmarshalJSON(data []byte) error {
	type plain Rule
	p := plain{Enabled: true}
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*r = Rule(p)
	return nil
}

// UnmarshalYAML decodes a rule, treating a missing "enabled" key as true
func (r *Rule) UnmarshalYAML(node *yaml.Node) error {
	type plain Rule
	p := plain{Enabled: true}
	if err := node.Decode(&p); err != nil {
		return err
	}
	*r = Rule(p)
	return nil
}

// Limit is a convenience for building optional per-bill thresholds
func Limit(v int64) *decimal.Decimal {
	d := decimal.NewFromInt(v)
	return &d
}
