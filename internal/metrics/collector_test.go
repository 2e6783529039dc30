package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ppiankov/tdscan/internal/model"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleReport() *model.Report {
	return &model.Report{
		Summary: []model.ReportRow{
			{Party: "A", Applicable: true},
			{Party: "B", Applicable: false},
			{Party: "C", Applicable: true},
		},
		Details: []model.DetailRow{
			{Status: model.DetailMatched},
			{Status: model.DetailMatched},
			{Status: model.DetailUnmatched},
			{Status: model.DetailInvalid},
		},
		Diagnostics: []model.Diagnostic{
			{Type: model.DiagnosticRuleConfiguration},
			{Type: model.DiagnosticUnmatchedRecords},
		},
		Statistics: model.Statistics{TotalWithholding: decimal.RequireFromString("1234.5")},
	}
}

func TestObserveReport(t *testing.T) {
	c := NewCollector(nil)
	c.ObserveReport(sampleReport(), 20*time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.transactions.WithLabelValues("matched")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.transactions.WithLabelValues("unmatched")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.transactions.WithLabelValues("invalid")))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.groups.WithLabelValues("true")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.groups.WithLabelValues("false")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.ruleConfigErrors))
	assert.Equal(t, 1234.5, testutil.ToFloat64(c.withholdingAmount))
}

func TestWriteTextfile(t *testing.T) {
	c := NewCollector(nil)
	c.ObserveReport(sampleReport(), time.Millisecond)
	c.ObserveNarrative("generated")

	path := filepath.Join(t.TempDir(), "out", "tdscan.prom")
	require.NoError(t, c.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(data)
	assert.True(t, strings.Contains(text, `tdscan_transactions_total{status="matched"} 2`))
	assert.Contains(t, text, "tdscan_analysis_duration_seconds_count 1")
	assert.Contains(t, text, `tdscan_narratives_total{outcome="generated"} 1`)
}
