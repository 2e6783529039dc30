package llm

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/ppiankov/tdscan/internal/cache"
	"github.com/ppiankov/tdscan/internal/model"
	"github.com/shopspring/decimal"
)

// MockProvider implements the Provider interface for testing
type MockProvider struct {
	name      string
	available bool
	response  *SummarizeResponse
	err       error
	calls     int
	lastReq   SummarizeRequest
}

func (m *MockProvider) Name() string {
	return m.name
}

func (m *MockProvider) Summarize(ctx context.Context, req SummarizeRequest) (*SummarizeResponse, error) {
	m.calls++
	m.lastReq = req
	if m.err != nil {
		return nil, m.err
	}
	return m.response, nil
}

func (m *MockProvider) IsAvailable(ctx context.Context) bool {
	return m.available
}

type countingRecorder struct {
	outcomes []string
}

func (r *countingRecorder) ObserveNarrative(outcome string) {
	r.outcomes = append(r.outcomes, outcome)
}

type countingLimiter struct {
	keys []string
	err  error
}

func (l *countingLimiter) Wait(ctx context.Context, key string) error {
	l.keys = append(l.keys, key)
	return l.err
}

func sampleReport() model.Report {
	return model.Report{
		RunID: "run-1",
		Summary: []model.ReportRow{
			{
				Party:             "Legal Advisors LLP",
				Section:           "194J",
				Category:          model.CategoryPayment,
				Total:             decimal.NewFromInt(50000),
				Rate:              decimal.NewFromInt(10),
				Applicable:        true,
				WithholdingAmount: decimal.NewFromInt(5000),
				Reason:            "Cumulative threshold exceeded",
			},
			{
				Party:             "Swift Transport Co",
				Section:           "194C",
				Category:          model.CategoryPayment,
				Total:             decimal.NewFromInt(20000),
				Rate:              decimal.NewFromInt(2),
				WithholdingAmount: decimal.NewFromInt(400),
				Reason:            "Below threshold",
			},
		},
		Statistics: model.Statistics{
			TotalTransactions: 3,
			TotalAmount:       decimal.NewFromInt(70000),
			PartiesDetected:   2,
			ApplicableParties: 1,
			ApplicableAmount:  decimal.NewFromInt(50000),
			TotalWithholding:  decimal.NewFromInt(5000),
		},
	}
}

func TestNewSummarizer_DisabledProvider(t *testing.T) {
	summarizer, err := NewSummarizer(Config{Provider: ""})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if summarizer.IsEnabled() {
		t.Error("Expected summarizer to be disabled")
	}
	if summarizer.ProviderName() != "" {
		t.Error("Expected empty provider name when disabled")
	}

	report := sampleReport()
	narrative, err := summarizer.GenerateNarrative(context.Background(), &report)
	if err != nil {
		t.Errorf("Expected no error when disabled, got %v", err)
	}
	if narrative != nil {
		t.Error("Expected nil narrative when provider disabled")
	}
}

func TestNewSummarizer_UnknownProvider(t *testing.T) {
	if _, err := NewSummarizer(Config{Provider: "anthropic"}); err == nil {
		t.Fatal("Expected error for unsupported provider")
	}
}

func TestSummarizer_ProviderUnavailable(t *testing.T) {
	recorder := &countingRecorder{}
	summarizer := newSummarizer(&MockProvider{name: "test-provider"}, Config{StrictSections: true},
		WithRecorder(recorder))

	report := sampleReport()
	narrative, err := summarizer.GenerateNarrative(context.Background(), &report)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if narrative == nil || narrative.Text != "" {
		t.Fatalf("Expected empty narrative with warnings, got %+v", narrative)
	}
	if len(narrative.Warnings) == 0 || !strings.Contains(narrative.Warnings[0], "not available") {
		t.Errorf("Expected warning about provider unavailability, got %v", narrative.Warnings)
	}
	if len(recorder.outcomes) != 1 || recorder.outcomes[0] != OutcomeUnavailable {
		t.Errorf("Expected unavailable outcome, got %v", recorder.outcomes)
	}
}

func TestSummarizer_Success(t *testing.T) {
	provider := &MockProvider{
		name:      "test-provider",
		available: true,
		response: &SummarizeResponse{
			Summary:       "Withhold 5000.00 under Section 194J.",
			CitedSections: []string{"194J"},
			Model:         "test-model",
			TokensUsed:    150,
		},
	}
	limiter := &countingLimiter{}
	summarizer := newSummarizer(provider, Config{Model: "test-model", StrictSections: true},
		WithLimiter(limiter))

	report := sampleReport()
	narrative, err := summarizer.GenerateNarrative(context.Background(), &report)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if narrative.Text != "Withhold 5000.00 under Section 194J." {
		t.Errorf("Unexpected narrative text: %q", narrative.Text)
	}
	if narrative.Provider != "test-provider" || narrative.Model != "test-model" {
		t.Errorf("Unexpected provider/model: %s/%s", narrative.Provider, narrative.Model)
	}
	if !narrative.StrictSections {
		t.Error("Expected strict sections to be recorded")
	}

	allowed := provider.lastReq.AllowedSections
	if len(allowed) != 2 || allowed[0] != "194C" || allowed[1] != "194J" {
		t.Errorf("Expected sorted report sections as allowlist, got %v", allowed)
	}
	if len(limiter.keys) != 1 || limiter.keys[0] != "test-provider" {
		t.Errorf("Expected one limiter wait keyed by provider, got %v", limiter.keys)
	}

	foundTokens := false
	for _, w := range narrative.Warnings {
		if strings.Contains(w, "Tokens used: 150") {
			foundTokens = true
		}
	}
	if !foundTokens {
		t.Errorf("Expected token usage note, got %v", narrative.Warnings)
	}

	// Amounts are untouched
	if !report.Statistics.TotalWithholding.Equal(decimal.NewFromInt(5000)) {
		t.Error("Expected report amounts to be unchanged")
	}
}

func TestSummarizer_CitationLeakRejected(t *testing.T) {
	recorder := &countingRecorder{}
	summarizer := newSummarizer(&MockProvider{
		name:      "test-provider",
		available: true,
		err:       &CitationLeakError{Section: "194Q"},
	}, Config{StrictSections: true}, WithRecorder(recorder))

	report := sampleReport()
	narrative, err := summarizer.GenerateNarrative(context.Background(), &report)
	if err != nil {
		t.Fatalf("Expected graceful rejection, got %v", err)
	}
	if narrative.Text != "" {
		t.Errorf("Expected no text for a rejected narrative, got %q", narrative.Text)
	}
	if len(narrative.Warnings) == 0 || !strings.Contains(narrative.Warnings[0], "194Q") {
		t.Errorf("Expected warning naming the leaked section, got %v", narrative.Warnings)
	}
	if len(recorder.outcomes) != 1 || recorder.outcomes[0] != OutcomeRejected {
		t.Errorf("Expected rejected outcome, got %v", recorder.outcomes)
	}
}

func TestSummarizer_ProviderError(t *testing.T) {
	summarizer := newSummarizer(&MockProvider{
		name:      "test-provider",
		available: true,
		err:       errors.New("API rate limit exceeded"),
	}, Config{StrictSections: true})

	report := sampleReport()
	narrative, err := summarizer.GenerateNarrative(context.Background(), &report)
	if err != nil {
		t.Errorf("Expected no error (graceful degradation), got %v", err)
	}
	if narrative == nil || len(narrative.Warnings) == 0 {
		t.Fatal("Expected narrative with error warning")
	}
	if !strings.Contains(narrative.Warnings[0], "failed") || !strings.Contains(narrative.Warnings[0], "rate limit") {
		t.Errorf("Expected warning to mention error: %v", narrative.Warnings)
	}
}

func TestSummarizer_LimiterCancelled(t *testing.T) {
	summarizer := newSummarizer(&MockProvider{name: "p", available: true},
		Config{}, WithLimiter(&countingLimiter{err: context.Canceled}))

	report := sampleReport()
	if _, err := summarizer.GenerateNarrative(context.Background(), &report); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

func TestSummarizer_CachesNarratives(t *testing.T) {
	provider := &MockProvider{
		name:      "test-provider",
		available: true,
		response:  &SummarizeResponse{Summary: "Section 194J applies.", CitedSections: []string{"194J"}},
	}
	recorder := &countingRecorder{}
	store := cache.NewMemoryCache(time.Minute, time.Minute)
	summarizer := newSummarizer(provider, Config{Model: "m", StrictSections: true},
		WithCache(store, time.Minute), WithRecorder(recorder))

	report := sampleReport()
	first, err := summarizer.GenerateNarrative(context.Background(), &report)
	if err != nil {
		t.Fatalf("First call failed: %v", err)
	}
	if first.Cached {
		t.Error("Expected first narrative to be fresh")
	}

	second, err := summarizer.GenerateNarrative(context.Background(), &report)
	if err != nil {
		t.Fatalf("Second call failed: %v", err)
	}
	if !second.Cached || second.Text != first.Text {
		t.Errorf("Expected cached copy of the first narrative, got %+v", second)
	}
	if provider.calls != 1 {
		t.Errorf("Expected provider to be called once, got %d", provider.calls)
	}

	// An edited report digests differently
	report.Summary[0].Rate = decimal.NewFromInt(2)
	if _, err := summarizer.GenerateNarrative(context.Background(), &report); err != nil {
		t.Fatalf("Third call failed: %v", err)
	}
	if provider.calls != 2 {
		t.Errorf("Expected edited report to miss the cache, got %d calls", provider.calls)
	}

	want := []string{OutcomeGenerated, OutcomeCached, OutcomeGenerated}
	if strings.Join(recorder.outcomes, ",") != strings.Join(want, ",") {
		t.Errorf("Expected outcomes %v, got %v", want, recorder.outcomes)
	}
}

func TestBuildPrompt_DescribesRows(t *testing.T) {
	report := sampleReport()
	prompt := BuildPrompt(report, ReportSections(report))

	required := []string{
		"ONLY cite these sections",
		"- 194C",
		"- 194J",
		"Do not recompute",
		"Transactions: 3 (0 invalid, 0 unmatched)",
		"Total withholding: 5000.00",
		"Legal Advisors LLP | Section 194J (TDS)",
		"applicable: Cumulative threshold exceeded",
		"not applicable: Below threshold",
	}
	for _, s := range required {
		if !strings.Contains(prompt, s) {
			t.Errorf("Expected prompt to contain '%s'", s)
		}
	}
}

func TestBuildPrompt_NoSections(t *testing.T) {
	prompt := BuildPrompt(model.Report{}, nil)
	if !strings.Contains(prompt, "No sections in this report") {
		t.Error("Expected message about no sections")
	}
}

func TestExtractSections(t *testing.T) {
	tests := []struct {
		text string
		want []string
	}{
		{"Section 194J and 194C apply.", []string{"194J", "194C"}},
		{"TCS under 206C(1H) and 206CCA.", []string{"206C(1H)", "206CCA"}},
		{"Interest under section 193 and u/s 192.", []string{"193", "192"}},
		{"Total of 1,95,000 across 194 parties.", nil},
		{"Section 194IA, then 194IA again.", []string{"194IA"}},
	}

	for _, tt := range tests {
		got := extractSections(tt.text)
		if strings.Join(got, ",") != strings.Join(tt.want, ",") {
			t.Errorf("extractSections(%q) = %v, want %v", tt.text, got, tt.want)
		}
	}
}

func TestRenderSeparateMarkdown(t *testing.T) {
	if RenderSeparateMarkdown(nil) != "" {
		t.Error("Expected empty markdown when nil")
	}

	md := RenderSeparateMarkdown(&model.Narrative{
		Provider:       "openai",
		Model:          "gpt-4o-mini",
		StrictSections: true,
		Text:           "Section 194J applies.",
		Warnings:       []string{"Tokens used: 150"},
	})
	for _, s := range []string{"# Withholding Narrative", "GENERATED CONTENT", "openai", "gpt-4o-mini",
		"Section 194J applies.", "## Notes", "Tokens used: 150", "determined independently"} {
		if !strings.Contains(md, s) {
			t.Errorf("Expected markdown to contain '%s'", s)
		}
	}

	empty := RenderSeparateMarkdown(&model.Narrative{Provider: "ollama"})
	if !strings.Contains(empty, "No narrative generated") {
		t.Error("Expected message about no narrative")
	}
}

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	if config.Provider != "" {
		t.Errorf("Expected provider to be empty (disabled), got '%s'", config.Provider)
	}
	if !config.StrictSections {
		t.Error("Expected strict sections to be enabled by default")
	}
	if config.Timeout <= 0 || config.MaxTokens <= 0 {
		t.Error("Expected positive timeout and max tokens")
	}
}

func TestConfigFromModel(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "env-key")

	cfg := ConfigFromModel(model.LLMConfig{Provider: "openai", Model: "gpt-4o-mini", StrictSections: true})
	if cfg.APIKey != "env-key" {
		t.Errorf("Expected API key from environment, got %q", cfg.APIKey)
	}
	if !cfg.StrictSections || cfg.Model != "gpt-4o-mini" {
		t.Errorf("Unexpected config: %+v", cfg)
	}

	cfg = ConfigFromModel(model.LLMConfig{Provider: "openai", APIKey: "file-key"})
	if cfg.APIKey != "file-key" {
		t.Errorf("Expected configured API key to win, got %q", cfg.APIKey)
	}
}
