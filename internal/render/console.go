package render

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/ppiankov/tdscan/internal/model"
)

// RenderSummary prints a short run summary and the payable groups
func (r *Renderer) RenderSummary(report *model.Report) {
	s := report.Statistics

	fmt.Fprintf(r.out, "\n")
	fmt.Fprintf(r.out, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(r.out, "  TDS/TCS Analysis: %s\n", report.Source)
	fmt.Fprintf(r.out, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(r.out, "\n")
	fmt.Fprintf(r.out, "  Transactions:   %d (%d unmatched, %d invalid)\n", s.TotalTransactions, s.UnmatchedTransactions, s.InvalidTransactions)
	fmt.Fprintf(r.out, "  Total amount:   %s\n", money(s.TotalAmount))
	fmt.Fprintf(r.out, "  Parties:        %d detected, %d applicable\n", s.PartiesDetected, s.ApplicableParties)
	fmt.Fprintf(r.out, "  Total TDS/TCS:  %s\n", money(s.TotalWithholding))
	fmt.Fprintf(r.out, "\n")

	payable := report.Payable()
	if len(payable) > 0 {
		tw := tabwriter.NewWriter(r.out, 0, 0, 2, ' ', tabwriter.AlignRight)
		fmt.Fprintln(tw, "  Party\tSection\tTotal\tRate %\tAmount\t")
		for _, row := range payable {
			fmt.Fprintf(tw, "  %s\t%s\t%s\t%s\t%s\t\n",
				truncate(row.Party, 40), row.Section, money(row.Total), row.Rate.String(), money(row.WithholdingAmount))
		}
		_ = tw.Flush()
		fmt.Fprintf(r.out, "\n")
	}

	warnings := 0
	for _, d := range report.Diagnostics {
		if d.Severity != model.SeverityInfo {
			warnings++
		}
	}
	if warnings > 0 {
		fmt.Fprintf(r.out, "  ⚠ %d diagnostic(s) need attention; see the full report\n\n", warnings)
	}
}

func truncate(s string, n int) string {
	runes := []rune(strings.TrimSpace(s))
	if len(runes) <= n {
		return string(runes)
	}
	return string(runes[:n-1]) + "…"
}
