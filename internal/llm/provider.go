package llm

import (
	"context"
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/ppiankov/tdscan/internal/model"
)

// Provider defines the interface for LLM providers
type Provider interface {
	// Name returns the provider name
	Name() string

	// Summarize writes a narrative for the report's summary rows
	Summarize(ctx context.Context, req SummarizeRequest) (*SummarizeResponse, error)

	// IsAvailable checks if the provider is properly configured and reachable
	IsAvailable(ctx context.Context) bool
}

// SummarizeRequest contains the input for a narrative
type SummarizeRequest struct {
	// Report is the analysis to describe. Only its summary rows and
	// statistics reach the prompt.
	Report model.Report

	// AllowedSections is the strict allowlist of sections the narrative may cite
	AllowedSections []string

	// Prompt is an optional custom prompt (if empty, use default)
	Prompt string

	// Model is the specific model to use (provider-specific)
	Model string

	// MaxTokens limits the response length
	MaxTokens int
}

// SummarizeResponse contains the provider's narrative
type SummarizeResponse struct {
	// Summary is the generated text
	Summary string

	// CitedSections are the sections the text mentions (for verification)
	CitedSections []string

	// Model is the model that generated the response
	Model string

	// TokensUsed tracks token consumption
	TokensUsed int
}

// Config holds LLM provider configuration
type Config struct {
	// Provider name: "openai", "ollama", ""
	Provider string

	// Model name (provider-specific)
	Model string

	// APIKey for OpenAI
	APIKey string

	// BaseURL for custom endpoints (e.g., Ollama)
	BaseURL string

	// Timeout for API requests
	Timeout int // seconds

	// StrictSections rejects narratives citing sections absent from the report
	StrictSections bool

	// MaxTokens for response generation
	MaxTokens int

	// Proxy settings (Ollama only)
	HTTPProxy  string
	HTTPSProxy string
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Provider:       "", // Disabled by default
		Timeout:        30,
		StrictSections: true,
		MaxTokens:      600,
	}
}

// CitationLeakError is returned when strict mode catches a section the
// report never produced
type CitationLeakError struct {
	Section string
}

func (e *CitationLeakError) Error() string {
	return fmt.Sprintf("narrative cited section %s which is not in the report", e.Section)
}

const systemPrompt = "You summarize tax withholding reports for accountants. You never change or recompute amounts."

// maxPromptRows bounds how many summary rows are described to the model
const maxPromptRows = 20

// BuildPrompt constructs the default narrative prompt
func BuildPrompt(report model.Report, allowedSections []string) string {
	var b strings.Builder

	fmt.Fprintf(&b, `You are summarizing a TDS/TCS withholding report produced from an accounting ledger.
The figures below are final. Do not recompute, round or adjust them.

RULES:
1. You may ONLY cite these sections:
%s
2. Write section numbers exactly as listed (for example "Section 194J").
3. Do not give legal advice or mention sections, rates or thresholds not shown here.
4. If nothing is applicable, say so plainly.

Report Statistics:
- Transactions: %d (%d invalid, %d unmatched)
- Total amount: %s
- Parties detected: %d
- Applicable parties: %d
- Applicable amount: %s
- Total withholding: %s

Summary Rows:
`, joinSections(allowedSections),
		report.Statistics.TotalTransactions,
		report.Statistics.InvalidTransactions,
		report.Statistics.UnmatchedTransactions,
		report.Statistics.TotalAmount.StringFixed(2),
		report.Statistics.PartiesDetected,
		report.Statistics.ApplicableParties,
		report.Statistics.ApplicableAmount.StringFixed(2),
		report.Statistics.TotalWithholding.StringFixed(2))

	for i, row := range report.Summary {
		if i >= maxPromptRows {
			fmt.Fprintf(&b, "... and %d more rows\n", len(report.Summary)-maxPromptRows)
			break
		}
		status := "not applicable"
		if row.Applicable {
			status = "applicable"
		}
		fmt.Fprintf(&b, "- %s | Section %s (%s) | total %s | rate %s%% | withholding %s | %s: %s\n",
			row.Party, row.Section, row.Category, row.Total.StringFixed(2), row.Rate.String(),
			row.WithholdingAmount.StringFixed(2), status, row.Reason)
	}

	b.WriteString("\nProvide a 3-5 sentence plain-language summary of what must be withheld and why.")
	return b.String()
}

func joinSections(sections []string) string {
	if len(sections) == 0 {
		return "(No sections in this report)"
	}
	var b strings.Builder
	for _, s := range sections {
		fmt.Fprintf(&b, "   - %s\n", s)
	}
	return strings.TrimRight(b.String(), "\n")
}

// ReportSections returns the distinct sections of the summary rows, sorted
func ReportSections(report model.Report) []string {
	var out []string
	for _, row := range report.Summary {
		if !slices.Contains(out, row.Section) {
			out = append(out, row.Section)
		}
	}
	slices.Sort(out)
	return out
}

var (
	// Lettered sections (194J, 194IA) and TCS sections (206C, 206C(1H), 206CCA)
	sectionPattern = regexp.MustCompile(`\b(19[0-9][A-Z]{1,2}\b|206C[A-Z]{0,3}(?:\([0-9A-Z]+\))?)`)
	// Bare numeric sections only count when introduced as a section
	bareSectionPattern = regexp.MustCompile(`(?i)\b(?:section|sec\.|u/s)\s*(19[0-9])\b`)
)

// extractSections finds section citations in text, deduplicated in order
func extractSections(text string) []string {
	var out []string
	for _, m := range sectionPattern.FindAllStringSubmatch(text, -1) {
		if !slices.Contains(out, m[1]) {
			out = append(out, m[1])
		}
	}
	for _, m := range bareSectionPattern.FindAllStringSubmatch(text, -1) {
		if !slices.Contains(out, m[1]) {
			out = append(out, m[1])
		}
	}
	return out
}

// verifyCitations enforces strict mode against the allowlist
func verifyCitations(strict bool, allowed, cited []string) error {
	if !strict {
		return nil
	}
	for _, s := range cited {
		if !slices.Contains(allowed, s) {
			return &CitationLeakError{Section: s}
		}
	}
	return nil
}
