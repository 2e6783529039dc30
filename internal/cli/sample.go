package cli

import (
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/ppiankov/tdscan/internal/sample"
	"github.com/spf13/cobra"
)

var (
	sampleCount int
	sampleOut   string
	sampleSeed  uint64
)

// sampleCmd represents the sample command
var sampleCmd = &cobra.Command{
	Use:   "sample",
	Short: "Generate a synthetic ledger for trying out tdscan",
	Long: `Sample writes a ledger of random transactions spread over the common
TDS sections, one financial year starting 1 April 2024.

Example:
  tdscan sample
  tdscan sample --count 500 --out ledger.csv --seed 42`,
	Args: cobra.NoArgs,
	RunE: runSample,
}

func init() {
	rootCmd.AddCommand(sampleCmd)

	sampleCmd.Flags().IntVar(&sampleCount, "count", 100, "number of transactions")
	sampleCmd.Flags().StringVar(&sampleOut, "out", "sample_transactions.xlsx", "output path (.xlsx or .csv)")
	sampleCmd.Flags().Uint64Var(&sampleSeed, "seed", 0, "random seed (default: current time)")
}

func runSample(cmd *cobra.Command, args []string) error {
	if sampleCount <= 0 {
		return fmt.Errorf("--count must be positive, got %d", sampleCount)
	}
	seed := sampleSeed
	if !cmd.Flags().Changed("seed") {
		seed = uint64(time.Now().UnixNano())
	}

	txs := sample.Generate(sampleCount, seed)
	if err := sample.Write(sampleOut, txs); err != nil {
		return err
	}

	fmt.Printf("✓ Wrote %d transactions: %s\n\n", len(txs), sampleOut)

	counts := sample.SectionCounts(txs)
	sections := make([]string, 0, len(counts))
	for s := range counts {
		sections = append(sections, s)
	}
	sort.Strings(sections)

	fmt.Println("Breakdown by section:")
	for _, s := range sections {
		fmt.Printf("  %-6s %d\n", s, counts[s])
	}
	fmt.Fprintf(os.Stderr, "\nTry: tdscan analyze %s --md report.md\n", sampleOut)
	return nil
}
