package evaluate

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ppiankov/tdscan/internal/model"
	"github.com/shopspring/decimal"
)

// Editable summary fields
const (
	FieldRate    = "rate"
	FieldSection = "section"
)

var (
	// ErrRowNotFound means no summary row matches the edit target
	ErrRowNotFound = errors.New("report row not found")
	// ErrInvalidEditValue means the new value cannot be applied to the field
	ErrInvalidEditValue = errors.New("invalid edit value")
)

// UnsupportedEditFieldError rejects edits of fields that cannot be recomputed
type UnsupportedEditFieldError struct {
	Field string
}

func (e *UnsupportedEditFieldError) Error() string {
	return fmt.Sprintf("unsupported edit field %q (supported: %s, %s)", e.Field, FieldRate, FieldSection)
}

// Edit targets the rows of one party, optionally narrowed to one section
type Edit struct {
	Party   string
	Section string // Empty = every row of the party
	Field   string
	Value   string
}

// ApplyEdit changes matching summary rows in place. A rate edit recomputes
// the withholding amount from the row's existing total; the total itself is
// never changed. Nothing is modified when an error is returned.
func ApplyEdit(rows []model.ReportRow, e Edit) error {
	field := strings.ToLower(strings.TrimSpace(e.Field))
	if field != FieldRate && field != FieldSection {
		return &UnsupportedEditFieldError{Field: e.Field}
	}

	var targets []int
	for i := range rows {
		if rows[i].Party != e.Party {
			continue
		}
		if e.Section != "" && rows[i].Section != e.Section {
			continue
		}
		targets = append(targets, i)
	}
	if len(targets) == 0 {
		if e.Section != "" {
			return fmt.Errorf("%w: %s / %s", ErrRowNotFound, e.Party, e.Section)
		}
		return fmt.Errorf("%w: %s", ErrRowNotFound, e.Party)
	}

	switch field {
	case FieldRate:
		rate, err := decimal.NewFromString(strings.TrimSpace(e.Value))
		if err != nil {
			return fmt.Errorf("%w: rate %q is not a number", ErrInvalidEditValue, e.Value)
		}
		if rate.IsNegative() {
			return fmt.Errorf("%w: rate %q is negative", ErrInvalidEditValue, e.Value)
		}
		for _, i := range targets {
			rows[i].Rate = rate
			rows[i].WithholdingAmount = Withholding(rows[i].Total, rate)
			if !rows[i].Applicable {
				rows[i].Reason = ReasonRateEditedBelow
			}
		}
	case FieldSection:
		section := strings.TrimSpace(e.Value)
		if section == "" {
			return fmt.Errorf("%w: empty section", ErrInvalidEditValue)
		}
		for _, i := range targets {
			rows[i].Section = section
		}
	}
	return nil
}
