package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ppiankov/tdscan/internal/cache"
	"github.com/ppiankov/tdscan/internal/model"
)

// Narrative outcomes reported to the recorder
const (
	OutcomeGenerated   = "generated"
	OutcomeCached      = "cached"
	OutcomeRejected    = "rejected"
	OutcomeFailed      = "failed"
	OutcomeUnavailable = "unavailable"
)

// RateLimiter throttles provider calls per key
type RateLimiter interface {
	Wait(ctx context.Context, key string) error
}

// Recorder receives narrative outcomes, typically for metrics
type Recorder interface {
	ObserveNarrative(outcome string)
}

// Summarizer orchestrates narrative generation. It never alters report
// amounts; failures degrade into warnings on the narrative.
type Summarizer struct {
	provider Provider
	config   Config
	cache    cache.Cache
	cacheTTL time.Duration
	limiter  RateLimiter
	recorder Recorder
	logger   *slog.Logger
}

// Option configures a Summarizer
type Option func(*Summarizer)

// WithCache stores narratives under a digest of the report
func WithCache(c cache.Cache, ttl time.Duration) Option {
	return func(s *Summarizer) {
		s.cache = c
		s.cacheTTL = ttl
	}
}

// WithLimiter throttles provider calls
func WithLimiter(l RateLimiter) Option {
	return func(s *Summarizer) { s.limiter = l }
}

// WithRecorder reports outcomes
func WithRecorder(r Recorder) Option {
	return func(s *Summarizer) { s.recorder = r }
}

// WithLogger sets the logger
func WithLogger(l *slog.Logger) Option {
	return func(s *Summarizer) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewSummarizer creates a summarizer; an empty provider disables it
func NewSummarizer(config Config, opts ...Option) (*Summarizer, error) {
	provider, err := NewProvider(config)
	if err != nil {
		return nil, fmt.Errorf("create LLM provider: %w", err)
	}
	return newSummarizer(provider, config, opts...), nil
}

func newSummarizer(provider Provider, config Config, opts ...Option) *Summarizer {
	s := &Summarizer{
		provider: provider,
		config:   config,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// IsEnabled returns true if a provider is configured
func (s *Summarizer) IsEnabled() bool {
	return s.provider != nil
}

// ProviderName returns the configured provider name
func (s *Summarizer) ProviderName() string {
	if s.provider == nil {
		return ""
	}
	return s.provider.Name()
}

// GenerateNarrative describes the report. A disabled summarizer returns
// nil, nil. Provider failures and strict-mode rejections come back as a
// narrative with warnings and no text.
func (s *Summarizer) GenerateNarrative(ctx context.Context, report *model.Report) (*model.Narrative, error) {
	if s.provider == nil || report == nil {
		return nil, nil
	}

	narrative := &model.Narrative{
		Provider:       s.provider.Name(),
		Model:          s.config.Model,
		StrictSections: s.config.StrictSections,
	}

	key, err := s.cacheKey(report)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		var cached model.Narrative
		if cache.GetJSON(s.cache, key, &cached) {
			cached.Cached = true
			s.record(OutcomeCached)
			return &cached, nil
		}
	}

	if !s.provider.IsAvailable(ctx) {
		narrative.Warnings = append(narrative.Warnings,
			fmt.Sprintf("LLM provider '%s' is not available", s.provider.Name()))
		s.record(OutcomeUnavailable)
		return narrative, nil
	}

	if s.limiter != nil {
		if err := s.limiter.Wait(ctx, s.provider.Name()); err != nil {
			return nil, fmt.Errorf("wait for rate limit: %w", err)
		}
	}

	resp, err := s.provider.Summarize(ctx, SummarizeRequest{
		Report:          *report,
		AllowedSections: ReportSections(*report),
		Model:           s.config.Model,
		MaxTokens:       s.config.MaxTokens,
	})
	if err != nil {
		var leak *CitationLeakError
		if errors.As(err, &leak) {
			s.logger.Warn("narrative rejected", "provider", narrative.Provider, "section", leak.Section)
			narrative.Warnings = append(narrative.Warnings, fmt.Sprintf("Narrative rejected: %v", err))
			s.record(OutcomeRejected)
			return narrative, nil
		}
		s.logger.Warn("narrative generation failed", "provider", narrative.Provider, "error", err)
		narrative.Warnings = append(narrative.Warnings, fmt.Sprintf("Narrative generation failed: %v", err))
		s.record(OutcomeFailed)
		return narrative, nil
	}

	narrative.Text = resp.Summary
	if resp.Model != "" {
		narrative.Model = resp.Model
	}
	narrative.Warnings = append(narrative.Warnings, fmt.Sprintf("Tokens used: %d", resp.TokensUsed))
	if s.config.StrictSections {
		narrative.Warnings = append(narrative.Warnings,
			fmt.Sprintf("Verified %d section citations", len(resp.CitedSections)))
	}
	s.record(OutcomeGenerated)

	if s.cache != nil {
		if err := cache.SetJSON(s.cache, key, narrative, s.cacheTTL); err != nil {
			s.logger.Warn("cache narrative", "error", err)
		}
	}
	return narrative, nil
}

// cacheKey digests everything that shapes the prompt, so edited reports miss
func (s *Summarizer) cacheKey(report *model.Report) (string, error) {
	digest, err := json.Marshal(struct {
		Summary    []model.ReportRow
		Statistics model.Statistics
	}{report.Summary, report.Statistics})
	if err != nil {
		return "", fmt.Errorf("digest report: %w", err)
	}
	return cache.Key("narrative", s.provider.Name(), s.config.Model,
		fmt.Sprintf("strict=%t", s.config.StrictSections), string(digest)), nil
}

func (s *Summarizer) record(outcome string) {
	if s.recorder != nil {
		s.recorder.ObserveNarrative(outcome)
	}
}

// RenderSeparateMarkdown renders a narrative as a standalone document
func RenderSeparateMarkdown(n *model.Narrative) string {
	if n == nil {
		return ""
	}

	md := "# Withholding Narrative\n\n"
	md += "> **GENERATED CONTENT**: written by a language model from the report below. "
	md += "Amounts and applicability were determined independently and are not affected by this text.\n\n"
	md += fmt.Sprintf("- **Provider**: %s\n", n.Provider)
	if n.Model != "" {
		md += fmt.Sprintf("- **Model**: %s\n", n.Model)
	}
	md += fmt.Sprintf("- **Strict Sections**: %t\n", n.StrictSections)
	if n.Cached {
		md += "- **Cached**: true\n"
	}
	md += "\n"

	if n.Text != "" {
		md += n.Text + "\n"
	} else {
		md += "_No narrative generated._\n"
	}

	if len(n.Warnings) > 0 {
		md += "\n## Notes\n\n"
		for _, w := range n.Warnings {
			md += fmt.Sprintf("- %s\n", w)
		}
	}
	return md
}
