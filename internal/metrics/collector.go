// Package metrics exposes per-run analysis counters in Prometheus format.
package metrics

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/ppiankov/tdscan/internal/model"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector records analysis outcomes on a private registry. Safe for
// concurrent use by batch workers.
type Collector struct {
	registry          *prometheus.Registry
	transactions      *prometheus.CounterVec
	groups            *prometheus.CounterVec
	ruleConfigErrors  prometheus.Counter
	withholdingAmount prometheus.Counter
	analysisDuration  prometheus.Histogram
	narratives        *prometheus.CounterVec
	logger            *slog.Logger
}

// NewCollector creates a collector with its own registry
func NewCollector(logger *slog.Logger) *Collector {
	if logger == nil {
		logger = slog.Default()
	}

	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Collector{
		registry: registry,
		transactions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "tdscan_transactions_total",
			Help: "Ledger records analyzed, by detection status",
		}, []string{"status"}),
		groups: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "tdscan_groups_total",
			Help: "Counterparty+section groups evaluated, by applicability",
		}, []string{"applicable"}),
		ruleConfigErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "tdscan_rule_config_errors_total",
			Help: "Rules excluded from a run for structural problems",
		}),
		withholdingAmount: factory.NewCounter(prometheus.CounterOpts{
			Name: "tdscan_withholding_amount_total",
			Help: "Sum of computed withholding amounts",
		}),
		analysisDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "tdscan_analysis_duration_seconds",
			Help:    "Time taken by one analysis pass",
			Buckets: prometheus.DefBuckets,
		}),
		narratives: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "tdscan_narratives_total",
			Help: "Narrative requests, by outcome",
		}, []string{"outcome"}),
		logger: logger,
	}
}

// ObserveReport records one analysis pass
func (c *Collector) ObserveReport(r *model.Report, elapsed time.Duration) {
	for _, d := range r.Details {
		c.transactions.WithLabelValues(string(d.Status)).Inc()
	}
	for _, row := range r.Summary {
		c.groups.WithLabelValues(fmt.Sprintf("%t", row.Applicable)).Inc()
	}
	for _, d := range r.Diagnostics {
		if d.Type == model.DiagnosticRuleConfiguration {
			c.ruleConfigErrors.Inc()
		}
	}
	amount, _ := r.Statistics.TotalWithholding.Float64()
	c.withholdingAmount.Add(amount)
	c.analysisDuration.Observe(elapsed.Seconds())
}

// ObserveNarrative records a narrative outcome: generated, cached, rejected or failed
func (c *Collector) ObserveNarrative(outcome string) {
	c.narratives.WithLabelValues(outcome).Inc()
}

// Registry exposes the underlying registry
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// WriteTextfile writes all metrics in text format for a node-exporter
// textfile collector
func (c *Collector) WriteTextfile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create metrics dir: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, c.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	c.logger.Debug("metrics written", "path", path)
	return nil
}
