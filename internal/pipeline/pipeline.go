// Package pipeline wires one ledger analysis end to end: rule snapshot,
// import, engine pass, optional narrative and rendering.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ppiankov/tdscan/internal/cache"
	"github.com/ppiankov/tdscan/internal/engine"
	"github.com/ppiankov/tdscan/internal/ingest"
	"github.com/ppiankov/tdscan/internal/llm"
	"github.com/ppiankov/tdscan/internal/metrics"
	"github.com/ppiankov/tdscan/internal/model"
	"github.com/ppiankov/tdscan/internal/render"
	"github.com/ppiankov/tdscan/internal/rules"
	"github.com/ppiankov/tdscan/internal/worker"
)

// Pipeline orchestrates the complete analysis of a ledger file. It is safe
// for concurrent AnalyzeFile calls: every call takes its own rule snapshot.
type Pipeline struct {
	store      *rules.Store
	importers  *ingest.Registry
	engine     *engine.Engine
	renderer   *render.Renderer
	summarizer *llm.Summarizer // nil if narratives are disabled
	metrics    *metrics.Collector
	config     *model.Config
	logger     *slog.Logger
	out        io.Writer
}

// Options carries the optional collaborators of a pipeline
type Options struct {
	Logger  *slog.Logger
	Metrics *metrics.Collector
	Out     io.Writer // console output, stdout when nil
	NoCache bool      // bypass the narrative cache
}

// NewPipeline creates a pipeline from configuration
func NewPipeline(cfg *model.Config, opts Options) *Pipeline {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	out := opts.Out
	if out == nil {
		out = os.Stdout
	}

	engineOpts := []engine.Option{engine.WithLogger(logger)}
	if opts.Metrics != nil {
		engineOpts = append(engineOpts, engine.WithRecorder(opts.Metrics))
	}

	return &Pipeline{
		store:      rules.NewStore(cfg.Rules.OverlayPath, rules.DefaultRules(), logger),
		importers:  ingest.NewRegistry(),
		engine:     engine.New(engineOpts...),
		renderer:   render.NewRenderer(cfg.Output.IncludeFooter, out),
		summarizer: newSummarizer(cfg, opts, logger),
		metrics:    opts.Metrics,
		config:     cfg,
		logger:     logger,
		out:        out,
	}
}

// newSummarizer builds the narrative summarizer. Configuration problems only
// disable narratives; they never stop an analysis.
func newSummarizer(cfg *model.Config, opts Options, logger *slog.Logger) *llm.Summarizer {
	if cfg.LLM.Provider == "" {
		return nil
	}

	llmOpts := []llm.Option{
		llm.WithLogger(logger),
		llm.WithLimiter(worker.NewLimiter(cfg.RateLimiting.RequestsPerSecond, cfg.RateLimiting.BurstSize)),
	}
	if opts.Metrics != nil {
		llmOpts = append(llmOpts, llm.WithRecorder(opts.Metrics))
	}
	if cfg.Cache.Enabled && !opts.NoCache {
		layered := cache.NewLayeredCache(cfg.Cache.MemoryTTL, cfg.Cache.Dir, cfg.Cache.DiskTTL)
		llmOpts = append(llmOpts, llm.WithCache(layered, cfg.Cache.DiskTTL))
	}

	s, err := llm.NewSummarizer(llm.ConfigFromModel(cfg.LLM), llmOpts...)
	if err != nil {
		logger.Warn("narratives disabled", "error", err)
		return nil
	}
	return s
}

// Store exposes the rules store backing this pipeline
func (p *Pipeline) Store() *rules.Store {
	return p.store
}

// AnalyzeFile imports a ledger and runs one analysis pass over it
func (p *Pipeline) AnalyzeFile(ctx context.Context, path string) (*model.Report, error) {
	rs, ruleDiags, err := p.store.Snapshot()
	if err != nil {
		return nil, fmt.Errorf("load rules: %w", err)
	}
	if rs.Len() == 0 {
		return nil, fmt.Errorf("no active rules: every rule is disabled or invalid")
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	records, err := p.importers.ImportFile(path, p.config.Input.Format)
	if err != nil {
		return nil, err
	}
	p.logger.Debug("ledger imported", "path", path, "records", len(records), "rules", rs.Len(), "fingerprint", rs.Fingerprint())

	report := p.engine.Analyze(rs, records, ruleDiags...)
	report.Source = path

	// Narrative runs after evaluation and never touches amounts
	if p.summarizer != nil && p.summarizer.IsEnabled() {
		narrative, err := p.summarizer.GenerateNarrative(ctx, report)
		if err != nil {
			p.logger.Warn("narrative skipped", "path", path, "error", err)
		} else if narrative != nil {
			report.Narrative = narrative
		}
	}

	return report, nil
}

// Outputs names the files a report is rendered to; empty paths are skipped
type Outputs struct {
	JSON       string
	Markdown   string
	SummaryCSV string
	DetailsCSV string
	Workbook   string
}

// DefaultOutputs derives JSON and Markdown paths in dir from the ledger name
func DefaultOutputs(dir, ledgerPath string) Outputs {
	name := filepath.Base(ledgerPath)
	base := strings.TrimSuffix(name, filepath.Ext(name))
	prefix := filepath.Join(dir, base+"-"+time.Now().Format("20060102-150405"))
	return Outputs{
		JSON:     prefix + ".json",
		Markdown: prefix + ".md",
	}
}

// RenderReport renders the report to the requested outputs and prints the
// console summary
func (p *Pipeline) RenderReport(report *model.Report, outputs Outputs, verbose bool) error {
	type target struct {
		path   string
		label  string
		render func(*model.Report, string) error
	}
	targets := []target{
		{outputs.JSON, "JSON", p.renderer.RenderJSON},
		{outputs.Markdown, "Markdown", p.renderer.RenderMarkdown},
		{outputs.SummaryCSV, "Summary CSV", p.renderer.RenderSummaryCSV},
		{outputs.DetailsCSV, "Details CSV", p.renderer.RenderDetailsCSV},
		{outputs.Workbook, "Workbook", p.renderer.RenderWorkbook},
	}

	for _, t := range targets {
		if t.path == "" {
			continue
		}
		if err := t.render(report, t.path); err != nil {
			return fmt.Errorf("render %s: %w", strings.ToLower(t.label), err)
		}
		if verbose {
			fmt.Fprintf(p.out, "✓ Wrote %s: %s\n", t.label, t.path)
		}
	}

	// Standalone narrative next to the Markdown report
	if report.Narrative != nil && outputs.Markdown != "" {
		path := strings.TrimSuffix(outputs.Markdown, ".md") + ".narrative.md"
		if err := p.renderer.RenderText(llm.RenderSeparateMarkdown(report.Narrative), path); err != nil {
			p.logger.Warn("write narrative", "path", path, "error", err)
		} else if verbose {
			fmt.Fprintf(p.out, "✓ Wrote Narrative: %s\n", path)
		}
	}

	p.renderer.RenderSummary(report)
	return nil
}

// WriteMetrics exports collected metrics when a textfile path is configured
func (p *Pipeline) WriteMetrics() error {
	if p.metrics == nil || p.config.Metrics.TextfilePath == "" {
		return nil
	}
	return p.metrics.WriteTextfile(p.config.Metrics.TextfilePath)
}
