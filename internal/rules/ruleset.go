package rules

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/ppiankov/tdscan/internal/model"
)

// RuleSet is the read-only active rule list for one analysis run. It owns
// private copies of its rules, so a RuleSet never observes later changes to
// the store it was built from.
type RuleSet struct {
	rules []model.Rule
}

// NewRuleSet wraps already-normalised rules without validation. Intended for
// tests and callers that build rules in code.
func NewRuleSet(rules ...model.Rule) *RuleSet {
	rs := &RuleSet{rules: make([]model.Rule, 0, len(rules))}
	for _, r := range rules {
		rs.rules = append(rs.rules, normalize(r.Clone()))
	}
	return rs
}

// Active returns the active rules in declaration order. The slice is fresh;
// the rules it points to belong to the RuleSet and must not be modified.
func (s *RuleSet) Active() []*model.Rule {
	out := make([]*model.Rule, len(s.rules))
	for i := range s.rules {
		out[i] = &s.rules[i]
	}
	return out
}

// Len returns the number of active rules
func (s *RuleSet) Len() int {
	return len(s.rules)
}

// Sections returns the distinct active sections in declaration order
func (s *RuleSet) Sections() []string {
	seen := make(map[string]bool)
	var out []string
	for _, r := range s.rules {
		if !seen[r.Section] {
			seen[r.Section] = true
			out = append(out, r.Section)
		}
	}
	return out
}

// Fingerprint is a stable digest of the active rules, used in cache keys
func (s *RuleSet) Fingerprint() string {
	data, err := json.Marshal(s.rules)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:8])
}

// Build merges the base library with the user overlay into the active set.
//
// Overlay rules replace every base rule of the same section. A disabled rule
// (base or overlay) takes its section out of the run. Rules that fail
// structural validation are excluded and reported; they never fall back to
// defaults.
func Build(base, overlay []model.Rule) (*RuleSet, []model.Diagnostic) {
	var diags []model.Diagnostic

	validBase := collect(base, SourceBuiltin, &diags)
	validOverlay := collect(overlay, SourceOverlay, &diags)

	overridden := make(map[string]bool)
	for _, r := range validOverlay {
		overridden[r.Section] = true
	}

	rs := &RuleSet{}
	reportedOverride := make(map[string]bool)
	for _, r := range validBase {
		if overridden[r.Section] {
			if !reportedOverride[r.Section] {
				reportedOverride[r.Section] = true
				diags = append(diags, model.Diagnostic{
					Type:        model.DiagnosticRuleOverridden,
					Severity:    model.SeverityInfo,
					Description: fmt.Sprintf("Built-in section %s replaced by overlay", r.Section),
					Data:        map[string]interface{}{"section": r.Section},
				})
			}
			continue
		}
		if !r.Enabled {
			diags = append(diags, disabled(r, SourceBuiltin))
			continue
		}
		rs.rules = append(rs.rules, r)
	}

	for _, r := range validOverlay {
		if !r.Enabled {
			diags = append(diags, disabled(r, SourceOverlay))
			continue
		}
		r.Custom = true
		rs.rules = append(rs.rules, r)
	}

	return rs, diags
}

func collect(rules []model.Rule, source string, diags *[]model.Diagnostic) []model.Rule {
	out := make([]model.Rule, 0, len(rules))
	for i, r := range rules {
		r = normalize(r.Clone())
		if err := Validate(r, i, source); err != nil {
			var cfgErr *RuleConfigurationError
			problems := []string{err.Error()}
			if errors.As(err, &cfgErr) {
				problems = cfgErr.Problems
			}
			*diags = append(*diags, model.Diagnostic{
				Type:        model.DiagnosticRuleConfiguration,
				Severity:    model.SeverityCritical,
				Description: fmt.Sprintf("Rule excluded: %s", err.Error()),
				Data: map[string]interface{}{
					"index":    i,
					"section":  r.Section,
					"source":   source,
					"problems": problems,
				},
			})
			continue
		}
		out = append(out, r)
	}
	return out
}

func disabled(r model.Rule, source string) model.Diagnostic {
	return model.Diagnostic{
		Type:        model.DiagnosticRuleDisabled,
		Severity:    model.SeverityInfo,
		Description: fmt.Sprintf("Section %s disabled for this run", r.Section),
		Data:        map[string]interface{}{"section": r.Section, "source": source},
	}
}

// normalize canonicalises text fields. Empty keywords stay in place so that
// validation can reject them.
func normalize(r model.Rule) model.Rule {
	r.Section = strings.TrimSpace(r.Section)
	for i, kw := range r.Keywords {
		r.Keywords[i] = strings.ToLower(strings.TrimSpace(kw))
	}
	r.SearchTarget = model.SearchTarget(strings.ToLower(strings.TrimSpace(string(r.SearchTarget))))
	r.Category = model.Category(strings.ToUpper(strings.TrimSpace(string(r.Category))))
	if r.Category == "" {
		r.Category = model.CategoryPayment
	}
	if r.Priority == 0 {
		r.Priority = 1
	}
	// A zero per-bill limit means "not enforced" in rule files
	if r.ThresholdPerTransaction != nil && r.ThresholdPerTransaction.IsZero() {
		r.ThresholdPerTransaction = nil
	}
	return r
}
