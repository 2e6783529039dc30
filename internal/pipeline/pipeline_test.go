package pipeline

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ppiankov/tdscan/internal/metrics"
	"github.com/ppiankov/tdscan/internal/model"
	"github.com/ppiankov/tdscan/internal/render"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const ledgerCSV = "Date,Debit Ledger,Credit Ledger,Voucher Type,Voucher No.,Amount\n" +
	"2024-04-01,Professional Fees,Legal Advisors LLP,Payment,V1000,20000\n" +
	"2024-04-02,Professional Fees,Legal Advisors LLP,Payment,V1001,15000\n" +
	"2024-04-03,Stationery,Paper Mart,Payment,V1002,1200\n" +
	"2024-04-04,Professional Fees,Legal Advisors LLP,Payment,V1003,oops\n"

func testConfig(t *testing.T) *model.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := model.DefaultConfig()
	cfg.Rules.OverlayPath = filepath.Join(dir, "rules.yaml")
	cfg.Cache.Dir = filepath.Join(dir, "cache")
	cfg.Output.Dir = filepath.Join(dir, "reports")
	return cfg
}

func writeLedger(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ledger.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestAnalyzeFile(t *testing.T) {
	cfg := testConfig(t)
	collector := metrics.NewCollector(nil)
	p := NewPipeline(cfg, Options{Metrics: collector, Out: &bytes.Buffer{}})

	path := writeLedger(t, ledgerCSV)
	report, err := p.AnalyzeFile(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, path, report.Source)
	assert.Equal(t, 4, report.Statistics.TotalTransactions)
	assert.Equal(t, 1, report.Statistics.InvalidTransactions)
	assert.Equal(t, 1, report.Statistics.UnmatchedTransactions)
	assert.Nil(t, report.Narrative)

	require.Len(t, report.Summary, 1)
	row := report.Summary[0]
	assert.Equal(t, "Legal Advisors LLP", row.Party)
	assert.Equal(t, "194J", row.Section)
	assert.True(t, row.Applicable)
	assert.Equal(t, "3500.00", row.WithholdingAmount.StringFixed(2))
}

func TestAnalyzeFileUsesOverlay(t *testing.T) {
	cfg := testConfig(t)
	p := NewPipeline(cfg, Options{Out: &bytes.Buffer{}})

	overlay := "- section: 194J\n  keywords: [legal]\n  threshold: 100000\n  rate: 10\n  search_in: credit\n  priority: 1\n"
	require.NoError(t, os.WriteFile(cfg.Rules.OverlayPath, []byte(overlay), 0644))

	report, err := p.AnalyzeFile(context.Background(), writeLedger(t, ledgerCSV))
	require.NoError(t, err)

	require.Len(t, report.Summary, 1)
	assert.False(t, report.Summary[0].Applicable, "raised overlay threshold should apply")

	var overridden bool
	for _, d := range report.Diagnostics {
		if d.Type == model.DiagnosticRuleOverridden {
			overridden = true
		}
	}
	assert.True(t, overridden)
}

func TestAnalyzeFileErrors(t *testing.T) {
	cfg := testConfig(t)
	p := NewPipeline(cfg, Options{Out: &bytes.Buffer{}})

	_, err := p.AnalyzeFile(context.Background(), filepath.Join(t.TempDir(), "missing.csv"))
	assert.Error(t, err)

	_, err = p.AnalyzeFile(context.Background(), writeLedger(t, "Date,Amount\n2024-04-01,100\n"))
	assert.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = p.AnalyzeFile(ctx, writeLedger(t, ledgerCSV))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestAnalyzeFileUnknownProviderStillAnalyzes(t *testing.T) {
	cfg := testConfig(t)
	cfg.LLM.Provider = "unknown"
	p := NewPipeline(cfg, Options{Out: &bytes.Buffer{}})

	report, err := p.AnalyzeFile(context.Background(), writeLedger(t, ledgerCSV))
	require.NoError(t, err)
	assert.Nil(t, report.Narrative)
}

func TestRenderReport(t *testing.T) {
	cfg := testConfig(t)
	cfg.Metrics.TextfilePath = filepath.Join(t.TempDir(), "tdscan.prom")
	out := &bytes.Buffer{}
	p := NewPipeline(cfg, Options{Metrics: metrics.NewCollector(nil), Out: out})

	path := writeLedger(t, ledgerCSV)
	report, err := p.AnalyzeFile(context.Background(), path)
	require.NoError(t, err)

	report.Narrative = &model.Narrative{Provider: "ollama", Text: "Section 194J applies."}

	outputs := DefaultOutputs(cfg.Output.Dir, path)
	outputs.SummaryCSV = filepath.Join(cfg.Output.Dir, "summary.csv")
	outputs.DetailsCSV = filepath.Join(cfg.Output.Dir, "details.csv")
	outputs.Workbook = filepath.Join(cfg.Output.Dir, "report.xlsx")
	require.NoError(t, p.RenderReport(report, outputs, true))

	for _, f := range []string{outputs.JSON, outputs.Markdown, outputs.SummaryCSV, outputs.DetailsCSV, outputs.Workbook,
		strings.TrimSuffix(outputs.Markdown, ".md") + ".narrative.md"} {
		assert.FileExists(t, f)
	}
	assert.True(t, strings.HasPrefix(filepath.Base(outputs.JSON), "ledger-"))

	back, err := render.ReadJSON(outputs.JSON)
	require.NoError(t, err)
	assert.Equal(t, report.RunID, back.RunID)

	assert.Contains(t, out.String(), "✓ Wrote JSON")
	assert.Contains(t, out.String(), "TDS/TCS Analysis")

	require.NoError(t, p.WriteMetrics())
	data, err := os.ReadFile(cfg.Metrics.TextfilePath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "tdscan_transactions_total")
}
