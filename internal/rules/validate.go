package rules

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/ppiankov/tdscan/internal/model"
	"github.com/shopspring/decimal"
)

// Rule sources, used in diagnostics
const (
	SourceBuiltin = "builtin"
	SourceOverlay = "overlay"
)

// RuleConfigurationError describes a rule that cannot be used for matching
type RuleConfigurationError struct {
	Index    int    // Position within its source list
	Section  string // May be empty when the section itself is missing
	Source   string
	Problems []string
}

func (e *RuleConfigurationError) Error() string {
	section := e.Section
	if section == "" {
		section = "<unnamed>"
	}
	return fmt.Sprintf("%s rule #%d (%s): %s", e.Source, e.Index, section, strings.Join(e.Problems, "; "))
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Report yaml field names so problems read like the rule file
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("yaml"), ",", 2)[0]
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})

	v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := d.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})

	return v
}

// Validate checks the structural shape of a rule. It does not judge whether
// thresholds or rates are legally correct.
func Validate(rule model.Rule, index int, source string) error {
	err := validate.Struct(rule)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return &RuleConfigurationError{Index: index, Section: rule.Section, Source: source, Problems: []string{err.Error()}}
	}

	problems := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		problems = append(problems, describe(fe))
	}
	return &RuleConfigurationError{Index: index, Section: rule.Section, Source: source, Problems: problems}
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "min":
		return fmt.Sprintf("%s needs at least %s entry", fe.Field(), fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be >= %s", fe.Field(), fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s], got %q", fe.Field(), fe.Param(), fmt.Sprint(fe.Value()))
	default:
		return fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag())
	}
}
