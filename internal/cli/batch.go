package cli

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/ppiankov/tdscan/internal/pipeline"
	"github.com/ppiankov/tdscan/internal/worker"
	"github.com/spf13/cobra"
)

var (
	concurrency   int
	outputDir     string
	batchTimeout  time.Duration
	ledgerTimeout time.Duration
)

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:   "batch <file>",
	Short: "Analyze multiple ledgers from a list file in parallel",
	Long: `Batch analyzes multiple ledgers concurrently:
- Read ledger paths from the list file (one per line, # for comments)
- Relative paths resolve against the list file's directory
- Every ledger is analyzed against the same rules
- Generate JSON and Markdown reports for each ledger

Example:
  tdscan batch ledgers.txt
  tdscan batch ledgers.txt --concurrency 4 --output-dir ./reports
  tdscan batch ledgers.txt --timeout 5m --ledger-timeout 30s`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().IntVar(&concurrency, "concurrency", runtime.NumCPU(), "number of concurrent workers")
	batchCmd.Flags().StringVar(&outputDir, "output-dir", "", "output directory for reports (default: output.dir)")
	batchCmd.Flags().DurationVar(&batchTimeout, "timeout", 10*time.Minute, "total timeout for batch processing")
	batchCmd.Flags().DurationVar(&ledgerTimeout, "ledger-timeout", time.Minute, "timeout for an individual ledger")

	addAnalysisFlags(batchCmd)
}

func runBatch(cmd *cobra.Command, args []string) error {
	file := args[0]
	ctx, cancel := context.WithTimeout(context.Background(), batchTimeout)
	defer cancel()

	cfg, err := analysisConfig(cmd)
	if err != nil {
		return err
	}
	if outputDir != "" {
		cfg.Output.Dir = outputDir
	}
	if cmd.Flags().Changed("concurrency") {
		cfg.Concurrency.Workers = concurrency
	}

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  tdscan Batch Processing\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Input file:   %s\n", file)
	fmt.Fprintf(os.Stderr, "  Workers:      %d\n", cfg.Concurrency.Workers)
	fmt.Fprintf(os.Stderr, "  Output dir:   %s\n", cfg.Output.Dir)
	fmt.Fprintf(os.Stderr, "  Timeout:      %v\n", batchTimeout)
	if cfg.LLM.Provider != "" {
		fmt.Fprintf(os.Stderr, "  LLM:          %s/%s\n", cfg.LLM.Provider, cfg.LLM.Model)
	}
	fmt.Fprintf(os.Stderr, "\n")

	if err := os.MkdirAll(cfg.Output.Dir, 0755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	p, sync, err := newAnalysisPipeline(cfg)
	if err != nil {
		return err
	}
	defer sync()

	processor := worker.NewBatchProcessor(p, cfg.Concurrency.Workers, ledgerTimeout)

	fmt.Fprintf(os.Stderr, "⚙️  Analyzing ledgers with %d workers...\n", cfg.Concurrency.Workers)
	fmt.Fprintf(os.Stderr, "\n")
	results, err := processor.ProcessFile(ctx, file)
	if err != nil {
		return fmt.Errorf("process file: %w", err)
	}

	successCount := 0
	failureCount := 0

	for _, result := range results {
		if result.Error != nil {
			failureCount++
			fmt.Fprintf(os.Stderr, "✗ %s: %v\n", result.Path, result.Error)
			continue
		}

		outputs := pipeline.DefaultOutputs(cfg.Output.Dir, result.Path)
		if err := p.RenderReport(result.Report, outputs, cfg.Output.Verbose); err != nil {
			failureCount++
			fmt.Fprintf(os.Stderr, "✗ %s: %v\n", result.Path, err)
			continue
		}

		successCount++
		stats := result.Report.Statistics
		fmt.Fprintf(os.Stderr, "✓ %s (%d applicable, withholding %s, %v)\n",
			result.Path, stats.ApplicableParties, stats.TotalWithholding.StringFixed(2), result.Duration.Round(time.Millisecond))
	}

	if err := p.WriteMetrics(); err != nil {
		fmt.Fprintf(os.Stderr, "✗ write metrics: %v\n", err)
	}

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  Batch Complete\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Total:     %d ledgers\n", len(results))
	fmt.Fprintf(os.Stderr, "  Success:   %d\n", successCount)
	fmt.Fprintf(os.Stderr, "  Failures:  %d\n", failureCount)
	fmt.Fprintf(os.Stderr, "  Output:    %s\n", cfg.Output.Dir)
	fmt.Fprintf(os.Stderr, "\n")

	if failureCount > 0 && successCount == 0 {
		return fmt.Errorf("all %d ledgers failed", failureCount)
	}
	return nil
}
