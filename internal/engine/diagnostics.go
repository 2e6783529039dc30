package engine

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
	"github.com/ppiankov/tdscan/internal/model"
)

// PartySimilarityThreshold is the normalised Levenshtein similarity above
// which two party names of one section are reported as likely variants
const PartySimilarityThreshold = 0.85

// maxListedRows caps row lists carried in diagnostic data
const maxListedRows = 25

func unmatchedDiagnostic(txs []model.Transaction, unmatched []int) (model.Diagnostic, bool) {
	if len(unmatched) == 0 {
		return model.Diagnostic{}, false
	}

	rows := make([]int, 0, min(len(unmatched), maxListedRows))
	for _, i := range unmatched {
		if len(rows) == maxListedRows {
			break
		}
		rows = append(rows, txs[i].Row)
	}

	return model.Diagnostic{
		Type:        model.DiagnosticUnmatchedRecords,
		Severity:    model.SeverityWarning,
		Description: fmt.Sprintf("%d transaction(s) matched no withholding section", len(unmatched)),
		Data: map[string]interface{}{
			"count": len(unmatched),
			"rows":  rows,
		},
	}, true
}

// partyVariantDiagnostics flags groups of one section whose party names look
// like spellings of the same counterparty. Groups are never merged.
func partyVariantDiagnostics(groups []*model.Group) []model.Diagnostic {
	bySection := make(map[string][]*model.Group)
	var sections []string
	for _, g := range groups {
		if _, ok := bySection[g.Key.Section]; !ok {
			sections = append(sections, g.Key.Section)
		}
		bySection[g.Key.Section] = append(bySection[g.Key.Section], g)
	}

	var diags []model.Diagnostic
	for _, section := range sections {
		members := bySection[section]
		for i := 0; i < len(members); i++ {
			for j := i + 1; j < len(members); j++ {
				a, b := members[i].Key.Party, members[j].Key.Party
				score := similarity(a, b)
				if score < PartySimilarityThreshold {
					continue
				}
				diags = append(diags, model.Diagnostic{
					Type:        model.DiagnosticPartyVariants,
					Severity:    model.SeverityWarning,
					Description: fmt.Sprintf("%q and %q under %s may be the same party; thresholds were applied separately", a, b, section),
					Data: map[string]interface{}{
						"section":    section,
						"parties":    []string{a, b},
						"similarity": score,
						"formula":    "1 - levenshtein(lower(a), lower(b)) / max(len(a), len(b))",
					},
				})
			}
		}
	}
	return diags
}

func similarity(a, b string) float64 {
	a = strings.ToLower(strings.TrimSpace(a))
	b = strings.ToLower(strings.TrimSpace(b))
	if a == b {
		return 1.0
	}
	maxLen := max(utf8.RuneCountInString(a), utf8.RuneCountInString(b))
	if maxLen == 0 {
		return 1.0
	}
	distance := levenshtein.ComputeDistance(a, b)
	return 1.0 - float64(distance)/float64(maxLen)
}
