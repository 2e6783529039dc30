package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/ppiankov/tdscan/internal/metrics"
	"github.com/ppiankov/tdscan/internal/model"
	"github.com/ppiankov/tdscan/internal/pipeline"
	"github.com/spf13/cobra"
)

var (
	outJSON       string
	outMD         string
	outCSV        string
	outDetailsCSV string
	outXLSX       string
	rulesPath     string
	inputFormat   string
	timeout       time.Duration
	noCache       bool
	noFooter      bool
	metricsFile   string
	llmEnabled    bool
	llmProvider   string
	llmModel      string
)

// analyzeCmd represents the analyze command
var analyzeCmd = &cobra.Command{
	Use:   "analyze <ledger>",
	Short: "Analyze a ledger export for TDS/TCS withholding",
	Long: `Analyze imports a ledger export and:
- Matches every transaction against the TDS/TCS keyword rules
- Groups matched amounts per counterparty and section
- Compares totals against cumulative and per-bill thresholds
- Computes the indicative withholding amount where a threshold is crossed

Supported inputs: CSV, XLSX, JSON and HTML tables.

Example:
  tdscan analyze ledger.xlsx
  tdscan analyze ledger.csv --json report.json --md report.md --xlsx report.xlsx
  tdscan analyze ledger.csv --llm --llm-provider ollama --llm-model llama3`,
	Args: cobra.ExactArgs(1),
	RunE: runAnalyze,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)

	// Output flags
	analyzeCmd.Flags().StringVar(&outJSON, "json", "report.json", "output JSON path")
	analyzeCmd.Flags().StringVar(&outMD, "md", "", "output Markdown path (optional)")
	analyzeCmd.Flags().StringVar(&outCSV, "csv", "", "output summary CSV path (optional)")
	analyzeCmd.Flags().StringVar(&outDetailsCSV, "details-csv", "", "output per-transaction CSV path (optional)")
	analyzeCmd.Flags().StringVar(&outXLSX, "xlsx", "", "output Excel workbook path (optional)")
	analyzeCmd.Flags().DurationVar(&timeout, "timeout", 2*time.Minute, "overall analysis timeout")

	addAnalysisFlags(analyzeCmd)
}

// addAnalysisFlags registers the flags analyze and batch share
func addAnalysisFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&rulesPath, "rules", "", "custom rules overlay file (default: rules.overlay_path)")
	cmd.Flags().StringVar(&inputFormat, "format", "", "input format (csv, xlsx, json, html); default by extension")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the narrative cache")
	cmd.Flags().BoolVar(&noFooter, "no-footer", false, "disable footer in Markdown reports")
	cmd.Flags().StringVar(&metricsFile, "metrics-file", "", "write Prometheus metrics to this textfile")

	// LLM flags
	cmd.Flags().BoolVar(&llmEnabled, "llm", false, "enable LLM narrative generation")
	cmd.Flags().StringVar(&llmProvider, "llm-provider", "openai", "LLM provider (openai, ollama)")
	cmd.Flags().StringVar(&llmModel, "llm-model", "gpt-4o-mini", "LLM model name")
}

// analysisConfig loads the configuration and applies command flags on top
func analysisConfig(cmd *cobra.Command) (*model.Config, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	if rulesPath != "" {
		cfg.Rules.OverlayPath = rulesPath
	}
	if inputFormat != "" {
		cfg.Input.Format = inputFormat
	}
	if metricsFile != "" {
		cfg.Metrics.TextfilePath = metricsFile
	}
	if noFooter {
		cfg.Output.IncludeFooter = false
	}
	cfg.Output.Verbose = cfg.Output.Verbose || verbose

	if llmEnabled {
		cfg.LLM.Provider = llmProvider
		cfg.LLM.Model = llmModel
	} else {
		if cmd.Flags().Changed("llm-provider") {
			cfg.LLM.Provider = llmProvider
		}
		if cmd.Flags().Changed("llm-model") {
			cfg.LLM.Model = llmModel
		}
	}
	if cfg.LLM.Provider == "openai" && cfg.LLM.APIKey == "" && os.Getenv("OPENAI_API_KEY") == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY environment variable not set")
	}

	return cfg, nil
}

func newAnalysisPipeline(cfg *model.Config) (*pipeline.Pipeline, func(), error) {
	logger, sync, err := setupLogger(cfg)
	if err != nil {
		return nil, nil, err
	}
	p := pipeline.NewPipeline(cfg, pipeline.Options{
		Logger:  logger,
		Metrics: metrics.NewCollector(logger),
		NoCache: noCache,
	})
	return p, sync, nil
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	path := args[0]
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	cfg, err := analysisConfig(cmd)
	if err != nil {
		return err
	}

	if cfg.Output.Verbose {
		fmt.Fprintf(os.Stderr, "Analyzing: %s\n", path)
		fmt.Fprintf(os.Stderr, "Rules overlay: %s\n", cfg.Rules.OverlayPath)
		if cfg.LLM.Provider != "" {
			fmt.Fprintf(os.Stderr, "Narrative: %s/%s (cache: %v)\n", cfg.LLM.Provider, cfg.LLM.Model, cfg.Cache.Enabled && !noCache)
		}
		fmt.Fprintln(os.Stderr)
	}

	p, sync, err := newAnalysisPipeline(cfg)
	if err != nil {
		return err
	}
	defer sync()

	report, err := p.AnalyzeFile(ctx, path)
	if err != nil {
		return fmt.Errorf("analysis failed: %w", err)
	}

	if cfg.Output.Verbose {
		fmt.Fprintf(os.Stderr, "✓ Imported %d transactions\n", report.Statistics.TotalTransactions)
		stats := report.Statistics
		fmt.Fprintf(os.Stderr, "✓ Matched %d transactions\n", stats.TotalTransactions-stats.InvalidTransactions-stats.UnmatchedTransactions)
		fmt.Fprintf(os.Stderr, "✓ %d party/section rows, %d applicable\n", len(report.Summary), len(report.Payable()))
		if report.Narrative != nil {
			fmt.Fprintf(os.Stderr, "✓ Generated narrative using %s/%s\n", report.Narrative.Provider, report.Narrative.Model)
		}
		fmt.Fprintln(os.Stderr)
	}

	outputs := pipeline.Outputs{
		JSON:       outJSON,
		Markdown:   outMD,
		SummaryCSV: outCSV,
		DetailsCSV: outDetailsCSV,
		Workbook:   outXLSX,
	}
	if err := p.RenderReport(report, outputs, cfg.Output.Verbose); err != nil {
		return fmt.Errorf("render failed: %w", err)
	}

	if err := p.WriteMetrics(); err != nil {
		return fmt.Errorf("write metrics: %w", err)
	}
	return nil
}
