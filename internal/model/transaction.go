package model

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Canonical ledger column names
const (
	ColumnDate          = "Date"
	ColumnDebitLedger   = "Debit Ledger"
	ColumnCreditLedger  = "Credit Ledger"
	ColumnVoucherType   = "Voucher Type"
	ColumnVoucherNumber = "Voucher No."
	ColumnAmount        = "Amount"
)

// RequiredColumns lists the columns every ledger must carry
var RequiredColumns = []string{ColumnDate, ColumnDebitLedger, ColumnCreditLedger, ColumnAmount}

// RawTransaction is a ledger row as delivered by an importer, before coercion
type RawTransaction struct {
	Row           int    `json:"row"`
	Date          string `json:"date"`
	DebitParty    string `json:"debit_ledger"`
	CreditParty   string `json:"credit_ledger"`
	VoucherType   string `json:"voucher_type,omitempty"`
	VoucherNumber string `json:"voucher_no,omitempty"`
	Amount        string `json:"amount"`
}

// Transaction is one validated ledger entry. Immutable once parsed.
type Transaction struct {
	Row           int             `json:"row"`
	Date          string          `json:"date"`
	DebitParty    string          `json:"debit_ledger"`
	CreditParty   string          `json:"credit_ledger"`
	VoucherType   string          `json:"voucher_type,omitempty"`
	VoucherNumber string          `json:"voucher_no,omitempty"`
	Amount        decimal.Decimal `json:"amount"`
}

// Party returns the ledger text on the given side
func (t Transaction) Party(side Side) string {
	if side == SideCredit {
		return t.CreditParty
	}
	return t.DebitParty
}

// StructuralInputError marks a single record that cannot enter the engine
type StructuralInputError struct {
	Row    int
	Field  string
	Reason string
}

func (e *StructuralInputError) Error() string {
	return fmt.Sprintf("row %d: %s: %s", e.Row, e.Field, e.Reason)
}

// Parse validates required fields and coerces the amount
func (r RawTransaction) Parse() (Transaction, error) {
	required := []struct {
		column string
		value  string
	}{
		{ColumnDate, r.Date},
		{ColumnDebitLedger, r.DebitParty},
		{ColumnCreditLedger, r.CreditParty},
		{ColumnAmount, r.Amount},
	}
	for _, f := range required {
		if strings.TrimSpace(f.value) == "" {
			return Transaction{}, &StructuralInputError{Row: r.Row, Field: f.column, Reason: "missing value"}
		}
	}

	amount, err := ParseAmount(r.Amount)
	if err != nil {
		return Transaction{}, &StructuralInputError{Row: r.Row, Field: ColumnAmount, Reason: err.Error()}
	}

	return Transaction{
		Row:           r.Row,
		Date:          strings.TrimSpace(r.Date),
		DebitParty:    strings.TrimSpace(r.DebitParty),
		CreditParty:   strings.TrimSpace(r.CreditParty),
		VoucherType:   strings.TrimSpace(r.VoucherType),
		VoucherNumber: strings.TrimSpace(r.VoucherNumber),
		Amount:        amount,
	}, nil
}

var amountNoise = strings.NewReplacer(",", "", "₹", "", "Rs.", "", "INR", "", " ", "", " ", "")

// ParseAmount parses ledger amounts such as "1,20,000.50" or "₹ 3000"
func ParseAmount(s string) (decimal.Decimal, error) {
	cleaned := amountNoise.Replace(strings.TrimSpace(s))
	if cleaned == "" {
		return decimal.Zero, fmt.Errorf("empty amount")
	}
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, fmt.Errorf("non-numeric amount %q", s)
	}
	if d.IsNegative() {
		return decimal.Zero, fmt.Errorf("negative amount %q", s)
	}
	return d, nil
}
