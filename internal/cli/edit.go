package cli

import (
	"fmt"
	"os"

	"github.com/ppiankov/tdscan/internal/evaluate"
	"github.com/ppiankov/tdscan/internal/render"
	"github.com/spf13/cobra"
)

var (
	editParty   string
	editSection string
	editField   string
	editValue   string
	editOut     string
)

// editCmd represents the edit command
var editCmd = &cobra.Command{
	Use:   "edit <report.json>",
	Short: "Correct the rate or section of a report row",
	Long: `Edit changes one party's summary rows in a saved JSON report and
recomputes the withholding amount and statistics. Totals never change.

A rate edit never changes applicability. On a below-threshold row the new
amount is shown with a "rate edited" reason but stays out of the total
withholding.

Supported fields: rate, section.

Example:
  tdscan edit report.json --party "Legal Advisors LLP" --field rate --value 2
  tdscan edit report.json --party "Alpha Builders" --section 194C --field section --value 194J`,
	Args: cobra.ExactArgs(1),
	RunE: runEdit,
}

func init() {
	rootCmd.AddCommand(editCmd)

	editCmd.Flags().StringVar(&editParty, "party", "", "party whose rows are edited")
	editCmd.Flags().StringVar(&editSection, "section", "", "limit the edit to one section (default: every row of the party)")
	editCmd.Flags().StringVar(&editField, "field", "", "field to edit (rate, section)")
	editCmd.Flags().StringVar(&editValue, "value", "", "new value")
	editCmd.Flags().StringVarP(&editOut, "out", "o", "", "write the edited report here (default: overwrite input)")
	_ = editCmd.MarkFlagRequired("party")
	_ = editCmd.MarkFlagRequired("field")
	_ = editCmd.MarkFlagRequired("value")
}

func runEdit(cmd *cobra.Command, args []string) error {
	path := args[0]

	report, err := render.ReadJSON(path)
	if err != nil {
		return err
	}

	edit := evaluate.Edit{Party: editParty, Section: editSection, Field: editField, Value: editValue}
	if err := evaluate.ApplyEdit(report.Summary, edit); err != nil {
		return fmt.Errorf("edit failed: %w", err)
	}
	report.Recompute()

	out := editOut
	if out == "" {
		out = path
	}
	renderer := render.NewRenderer(true, os.Stdout)
	if err := renderer.RenderJSON(report, out); err != nil {
		return fmt.Errorf("render failed: %w", err)
	}

	fmt.Fprintf(os.Stderr, "✓ Updated %s of %s: %s\n", editField, editParty, editValue)
	fmt.Fprintf(os.Stderr, "✓ Wrote JSON: %s\n", out)
	renderer.RenderSummary(report)
	return nil
}
