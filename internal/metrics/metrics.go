// Package metrics records training and scoring metrics for batch runs and
// exports them in the node-exporter textfile format.
package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/theirongolddev/ledgerscope/internal/model"
)

// Search candidate outcomes.
const (
	OutcomeOK     = "ok"
	OutcomeFailed = "failed"
)

// Recorder owns a private registry so that runs and tests never collide on
// the global one. A nil *Recorder ignores every call.
type Recorder struct {
	registry *prometheus.Registry

	fitDuration      *prometheus.HistogramVec
	searchCandidates *prometheus.CounterVec
	confidence       prometheus.Gauge
	flagged          prometheus.Gauge
	riskLevels       *prometheus.CounterVec
}

// NewRecorder creates and registers the ledgerscope metrics.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		fitDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "ledgerscope",
			Name:      "model_fit_duration_seconds",
			Help:      "Time spent fitting a model, including its hyperparameter search.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
		}, []string{"model"}),
		searchCandidates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ledgerscope",
			Name:      "search_candidates_total",
			Help:      "Hyperparameter candidates evaluated, by model and outcome.",
		}, []string{"model", "outcome"}),
		confidence: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "ledgerscope",
			Name:      "forecast_confidence_percent",
			Help:      "Model-agreement confidence of the latest forecast.",
		}),
		flagged: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "ledgerscope",
			Name:      "fraud_flagged_transactions",
			Help:      "Transactions above the flag threshold in the latest fraud run.",
		}),
		riskLevels: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ledgerscope",
			Name:      "fraud_scored_transactions_total",
			Help:      "Scored transactions by risk level.",
		}, []string{"risk_level"}),
	}
	r.registry.MustRegister(r.fitDuration, r.searchCandidates, r.confidence, r.flagged, r.riskLevels)
	return r
}

// Registry exposes the underlying registry for gathering.
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

// ObserveFit records how long fitting modelName took.
func (r *Recorder) ObserveFit(modelName string, d time.Duration) {
	if r == nil {
		return
	}
	r.fitDuration.WithLabelValues(modelName).Observe(d.Seconds())
}

// AddCandidates counts evaluated and failed search candidates.
func (r *Recorder) AddCandidates(modelName string, evaluated, failed int) {
	if r == nil {
		return
	}
	r.searchCandidates.WithLabelValues(modelName, OutcomeOK).Add(float64(evaluated))
	r.searchCandidates.WithLabelValues(modelName, OutcomeFailed).Add(float64(failed))
}

// SetConfidence records the latest forecast confidence.
func (r *Recorder) SetConfidence(pct float64) {
	if r == nil {
		return
	}
	r.confidence.Set(pct)
}

// SetFlagged records the flagged count of the latest fraud run.
func (r *Recorder) SetFlagged(n int) {
	if r == nil {
		return
	}
	r.flagged.Set(float64(n))
}

// CountRisk adds n transactions at the given risk level.
func (r *Recorder) CountRisk(level model.RiskLevel, n int) {
	if r == nil {
		return
	}
	r.riskLevels.WithLabelValues(string(level)).Add(float64(n))
}

// WriteTextfile writes every metric to path atomically.
func (r *Recorder) WriteTextfile(path string) error {
	if r == nil {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating metrics dir: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("writing metrics textfile: %w", err)
	}
	return nil
}
