package render

import (
	"fmt"
	"strings"

	"github.com/ppiankov/tdscan/internal/model"
)

// RenderMarkdown writes a human-readable report
func (r *Renderer) RenderMarkdown(report *model.Report, path string) error {
	return writeFile(path, []byte(r.Markdown(report)))
}

// Markdown builds the Markdown report
func (r *Renderer) Markdown(report *model.Report) string {
	var b strings.Builder

	title := report.Source
	if title == "" {
		title = "ledger"
	}
	fmt.Fprintf(&b, "# TDS/TCS Analysis: %s\n\n", title)
	fmt.Fprintf(&b, "- **Run:** `%s`\n", report.RunID)
	fmt.Fprintf(&b, "- **Generated:** %s\n", report.GeneratedAt.Format("2006-01-02 15:04:05 UTC"))
	fmt.Fprintf(&b, "- **Active rules:** %d\n\n", report.RuleCount)

	b.WriteString("## Statistics\n\n")
	b.WriteString("| Metric | Value |\n|---|---|\n")
	for _, row := range statisticsRows(report.Statistics) {
		fmt.Fprintf(&b, "| %s | %s |\n", row[0], text(row[1]))
	}
	b.WriteString("\n")

	b.WriteString("## Summary\n\n")
	if len(report.Summary) == 0 {
		b.WriteString("_No transactions matched a withholding section._\n\n")
	} else {
		b.WriteString("| Party | Section | Type | Total | Threshold | Per Bill Limit | Rate % | Applicable | Amount | Reason |\n")
		b.WriteString("|---|---|---|---:|---:|---:|---:|---|---:|---|\n")
		for _, row := range report.Summary {
			fmt.Fprintf(&b, "| %s | %s | %s | %s | %s | %s | %s | %s | %s | %s |\n",
				escape(row.Party), row.Section, row.Category, money(row.Total),
				money(row.ThresholdCumulative), perBillLimit(row.ThresholdPerTransaction),
				row.Rate.String(), yesNo(row.Applicable), money(row.WithholdingAmount), row.Reason)
		}
		b.WriteString("\n")
	}

	payable := report.Payable()
	b.WriteString("## Payable\n\n")
	if len(payable) == 0 {
		b.WriteString("_Nothing to withhold or collect._\n\n")
	} else {
		b.WriteString("| Party | Section | Type | Total | Rate % | Amount |\n")
		b.WriteString("|---|---|---|---:|---:|---:|\n")
		for _, row := range payable {
			fmt.Fprintf(&b, "| %s | %s | %s | %s | %s | %s |\n",
				escape(row.Party), row.Section, row.Category, money(row.Total),
				row.Rate.String(), money(row.WithholdingAmount))
		}
		fmt.Fprintf(&b, "\n**Total TDS/TCS:** %s\n\n", money(report.Statistics.TotalWithholding))
	}

	if len(report.Diagnostics) > 0 {
		b.WriteString("## Diagnostics\n\n")
		for _, d := range report.Diagnostics {
			fmt.Fprintf(&b, "- **%s** `%s`: %s\n", strings.ToUpper(string(d.Severity)), d.Type, d.Description)
		}
		b.WriteString("\n")
	}

	if report.Narrative != nil && report.Narrative.Text != "" {
		b.WriteString("## Narrative\n\n")
		fmt.Fprintf(&b, "_Written by %s/%s. Informational only; amounts above are authoritative._\n\n",
			report.Narrative.Provider, report.Narrative.Model)
		b.WriteString(strings.TrimSpace(report.Narrative.Text))
		b.WriteString("\n\n")
	}

	if r.includeFooter {
		b.WriteString("---\n\n")
		b.WriteString("_Generated by tdscan. Amounts are indicative and do not account for slabs, exemptions, surcharge or lower-deduction certificates._\n")
	}

	return b.String()
}

func escape(s string) string {
	return strings.ReplaceAll(s, "|", "\\|")
}
