package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/rs/zerolog"

	"github.com/theirongolddev/ledgerscope/internal/alert"
	"github.com/theirongolddev/ledgerscope/internal/config"
	"github.com/theirongolddev/ledgerscope/internal/features"
	"github.com/theirongolddev/ledgerscope/internal/forecast"
	"github.com/theirongolddev/ledgerscope/internal/fraud"
	"github.com/theirongolddev/ledgerscope/internal/metrics"
	"github.com/theirongolddev/ledgerscope/internal/model"
	"github.com/theirongolddev/ledgerscope/internal/store"
)

// Run statuses.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Tasks accepted by Runner.Run.
const (
	TaskAll     = "all"
	TaskPredict = "predict"
	TaskFraud   = "fraud"
)

// Source yields ledger rows in chronological order. A zero userID means
// every user.
type Source interface {
	Transactions(ctx context.Context, userID int64) ([]model.Transaction, error)
}

// BundleStore persists trained bundles.
type BundleStore interface {
	SaveBundle(ctx context.Context, rec store.BundleRecord) error
	LatestBundle(ctx context.Context, kind string, userID int64) (*store.BundleRecord, error)
	Bundle(ctx context.Context, id string) (*store.BundleRecord, error)
}

// Outcome is the status part of every run section.
type Outcome struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// OK reports whether the section succeeded.
func (o Outcome) OK() bool { return o.Status == StatusSuccess }

// MonthTotal is one point of the monthly spend series.
type MonthTotal struct {
	Month string  `json:"month"`
	Total float64 `json:"total"`
}

// ForecastOutcome is the expense prediction section of a run.
type ForecastOutcome struct {
	Outcome
	Predictions         *model.Forecast              `json:"predictions,omitempty"`
	CategoryPredictions []model.CategoryForecast     `json:"category_predictions,omitempty"`
	ModelResults        map[string]model.EvalMetrics `json:"model_results,omitempty"`
	MonthlyTotals       []MonthTotal                 `json:"monthly_totals,omitempty"`
	BundleID            string                       `json:"bundle_id,omitempty"`
	Reused              bool                         `json:"reused,omitempty"`
	ModelsSaved         bool                         `json:"models_saved"`
}

// FraudOutcome is the fraud detection section of a run.
type FraudOutcome struct {
	Outcome
	Results     *model.FraudReport `json:"results,omitempty"`
	BundleID    string             `json:"bundle_id,omitempty"`
	Reused      bool               `json:"reused,omitempty"`
	ModelsSaved bool               `json:"models_saved"`
	AlertsSent  int                `json:"alerts_sent,omitempty"`

	Scored []model.ScoredTransaction `json:"-"`
}

// RunResult is the document produced by Run.
type RunResult struct {
	Task              string           `json:"task"`
	UserID            *int64           `json:"user_id"`
	Tuning            bool             `json:"tuning"`
	ExpensePrediction *ForecastOutcome `json:"expense_prediction,omitempty"`
	FraudDetection    *FraudOutcome    `json:"fraud_detection,omitempty"`
}

// Runner wires a ledger source, bundle store and alert publisher to the
// forecast and fraud pipelines. Failures inside a pipeline are logged and
// reported in the section's Outcome, never returned.
type Runner struct {
	Source   Source
	Bundles  BundleStore     // nil disables persistence and reuse
	Alerts   alert.Publisher // nil disables alerts
	Config   config.Config
	Logger   zerolog.Logger
	Recorder *metrics.Recorder
	Fusion   fraud.FusionWeights // zero value means DefaultFusionWeights
	Reuse    bool                // predict with the latest bundle when the ledger is unchanged
}

// Run executes task for userID (0 = all users).
func (r *Runner) Run(ctx context.Context, task string, userID int64) (*RunResult, error) {
	res := &RunResult{Task: task, Tuning: r.Config.General.Tune}
	if userID != 0 {
		res.UserID = &userID
	}
	switch task {
	case TaskAll, TaskPredict, TaskFraud:
	default:
		return nil, fmt.Errorf("unknown task %q: %w", task, model.ErrInvalidConfiguration)
	}

	if task == TaskAll || task == TaskPredict {
		out := r.Forecast(ctx, userID)
		res.ExpensePrediction = &out
	}
	if task == TaskAll || task == TaskFraud {
		out := r.Fraud(ctx, userID)
		res.FraudDetection = &out
	}
	return res, nil
}

func (r *Runner) fail(section string, err error) Outcome {
	r.Logger.Error().Err(err).Str("section", section).Msg("pipeline failed")
	return Outcome{Status: StatusError, Message: err.Error()}
}

// Forecast trains (or reuses) the forecast ensemble and predicts next
// month's spend, plus per-category moving-average forecasts.
func (r *Runner) Forecast(ctx context.Context, userID int64) ForecastOutcome {
	log := r.Logger.With().Str("pipeline", "forecast").Int64("user_id", userID).Logger()
	cfg := r.Config

	txns, err := r.Source.Transactions(ctx, userID)
	if err != nil {
		return ForecastOutcome{Outcome: r.fail("forecast", fmt.Errorf("loading transactions: %w", err))}
	}
	if len(txns) < cfg.Forecast.MinTransactions {
		return ForecastOutcome{Outcome: r.fail("forecast",
			fmt.Errorf("need at least %d transactions for prediction: %w", cfg.Forecast.MinTransactions, model.ErrInsufficientData))}
	}
	log.Info().Int("transactions", len(txns)).Msg("ledger loaded")

	buckets, err := AggregateMonthly(txns)
	if err != nil {
		return ForecastOutcome{Outcome: r.fail("forecast", err)}
	}
	spec := features.ForecastSpec{MaxLag: cfg.Forecast.MaxLag, Windows: cfg.Forecast.Windows}
	ff, err := features.BuildForecastFeatures(buckets, spec)
	if err != nil {
		return ForecastOutcome{Outcome: r.fail("forecast", err)}
	}
	log.Info().Int("months", len(buckets)).Int("feature_rows", ff.Len()).Msg("features built")

	out := ForecastOutcome{}
	for _, b := range buckets {
		out.MonthlyTotals = append(out.MonthlyTotals, MonthTotal{Month: b.Key(), Total: b.Total})
	}
	fingerprint := Fingerprint(txns)

	bundle := r.reusableForecast(ctx, log, userID, fingerprint, ff.Names)
	if bundle != nil {
		out.Reused = true
	} else {
		opts := forecast.OptionsFromConfig(cfg)
		opts.Logger = log
		opts.Recorder = r.Recorder
		tr, err := forecast.Train(ff, opts)
		if err != nil {
			return ForecastOutcome{Outcome: r.fail("forecast", err)}
		}
		bundle = tr.Bundle
		bundle.Fingerprint = fingerprint
		out.ModelsSaved = r.save(ctx, log, forecast.Kind, userID, bundle.ID, bundle.CreatedAt, fingerprint, bundle)
	}

	pred, err := forecast.Predict(bundle, ff, MonthlyTotals(buckets))
	if err != nil {
		return ForecastOutcome{Outcome: r.fail("forecast", err)}
	}
	r.Recorder.SetConfidence(pred.Confidence)
	log.Info().Str("month", pred.Month).Float64("ensemble", pred.Ensemble).Float64("confidence", pred.Confidence).Str("trend", pred.Trend).Msg("forecast ready")

	out.Outcome = Outcome{Status: StatusSuccess}
	out.Predictions = &pred
	out.CategoryPredictions = forecast.ByCategory(txns, cfg.Forecast.CategoryTopN)
	out.ModelResults = bundle.Metrics
	out.BundleID = bundle.ID
	return out
}

func (r *Runner) reusableForecast(ctx context.Context, log zerolog.Logger, userID int64, fingerprint string, names []string) *forecast.Bundle {
	rec := r.latest(ctx, log, forecast.Kind, userID, fingerprint)
	if rec == nil {
		return nil
	}
	var b forecast.Bundle
	if err := json.Unmarshal(rec.Payload, &b); err != nil {
		log.Warn().Err(err).Str("bundle_id", rec.ID).Msg("stored forecast bundle unreadable, retraining")
		return nil
	}
	if !slices.Equal(b.FeatureNames, names) {
		log.Info().Str("bundle_id", rec.ID).Msg("feature layout changed, retraining")
		return nil
	}
	log.Info().Str("bundle_id", rec.ID).Msg("ledger unchanged, reusing forecast bundle")
	return &b
}

// Fraud trains (or reuses) the anomaly forest, scores every transaction
// and publishes alerts for high-risk rows.
func (r *Runner) Fraud(ctx context.Context, userID int64) FraudOutcome {
	log := r.Logger.With().Str("pipeline", "fraud").Int64("user_id", userID).Logger()
	cfg := r.Config

	txns, err := r.Source.Transactions(ctx, userID)
	if err != nil {
		return FraudOutcome{Outcome: r.fail("fraud", fmt.Errorf("loading transactions: %w", err))}
	}
	if len(txns) < cfg.Fraud.MinTransactions {
		return FraudOutcome{Outcome: r.fail("fraud",
			fmt.Errorf("need at least %d transactions for fraud detection: %w", cfg.Fraud.MinTransactions, model.ErrInsufficientData))}
	}
	log.Info().Int("transactions", len(txns)).Msg("ledger loaded")

	out := FraudOutcome{}
	fingerprint := Fingerprint(txns)
	bundle := r.reusableFraud(ctx, log, userID, fingerprint)
	if bundle != nil {
		out.Reused = true
	} else {
		opts := fraud.OptionsFromConfig(cfg)
		opts.Logger = log
		opts.Recorder = r.Recorder
		tr, err := fraud.Train(txns, opts)
		if err != nil {
			return FraudOutcome{Outcome: r.fail("fraud", err)}
		}
		bundle = tr.Bundle
		bundle.Fingerprint = fingerprint
		out.ModelsSaved = r.save(ctx, log, fraud.Kind, userID, bundle.ID, bundle.CreatedAt, fingerprint, bundle)
	}

	return r.score(ctx, log, bundle, txns, out)
}

// FraudWithBundle scores userID's ledger with a stored fraud bundle,
// without training.
func (r *Runner) FraudWithBundle(ctx context.Context, userID int64, bundleID string) FraudOutcome {
	log := r.Logger.With().Str("pipeline", "fraud").Int64("user_id", userID).Str("bundle_id", bundleID).Logger()
	if r.Bundles == nil {
		return FraudOutcome{Outcome: r.fail("fraud", errors.New("no bundle store configured"))}
	}
	rec, err := r.Bundles.Bundle(ctx, bundleID)
	if err != nil {
		return FraudOutcome{Outcome: r.fail("fraud", err)}
	}
	if rec.Kind != fraud.Kind {
		return FraudOutcome{Outcome: r.fail("fraud",
			fmt.Errorf("bundle %s is a %s bundle: %w", bundleID, rec.Kind, model.ErrInvalidConfiguration))}
	}
	var bundle fraud.Bundle
	if err := json.Unmarshal(rec.Payload, &bundle); err != nil {
		return FraudOutcome{Outcome: r.fail("fraud", fmt.Errorf("decoding bundle %s: %w", bundleID, err))}
	}

	txns, err := r.Source.Transactions(ctx, userID)
	if err != nil {
		return FraudOutcome{Outcome: r.fail("fraud", fmt.Errorf("loading transactions: %w", err))}
	}
	if len(txns) == 0 {
		return FraudOutcome{Outcome: r.fail("fraud", fmt.Errorf("no transactions to score: %w", model.ErrInsufficientData))}
	}
	return r.score(ctx, log, &bundle, txns, FraudOutcome{Reused: true})
}

func (r *Runner) reusableFraud(ctx context.Context, log zerolog.Logger, userID int64, fingerprint string) *fraud.Bundle {
	rec := r.latest(ctx, log, fraud.Kind, userID, fingerprint)
	if rec == nil {
		return nil
	}
	var b fraud.Bundle
	if err := json.Unmarshal(rec.Payload, &b); err != nil {
		log.Warn().Err(err).Str("bundle_id", rec.ID).Msg("stored fraud bundle unreadable, retraining")
		return nil
	}
	log.Info().Str("bundle_id", rec.ID).Msg("ledger unchanged, reusing fraud bundle")
	return &b
}

func (r *Runner) score(ctx context.Context, log zerolog.Logger, bundle *fraud.Bundle, txns []model.Transaction, out FraudOutcome) FraudOutcome {
	cfg := r.Config
	w := r.Fusion
	if w == (fraud.FusionWeights{}) {
		w = fraud.DefaultFusionWeights()
	}
	scorer, err := fraud.NewScorer(bundle, w)
	if err != nil {
		return FraudOutcome{Outcome: r.fail("fraud", err)}
	}
	scored := scorer.Score(txns)
	report := fraud.Report(scored, bundle.Summary, cfg.Fraud.FlagThreshold, cfg.Fraud.TopN)

	r.Recorder.SetFlagged(report.FlaggedTransactions)
	for _, level := range model.RiskLevels {
		r.Recorder.CountRisk(level, report.RiskDistribution[level])
	}
	log.Info().Int("scored", report.TotalTransactions).Int("flagged", report.FlaggedTransactions).Msg("transactions scored")

	if r.Alerts != nil {
		sent, err := r.Alerts.Publish(ctx, scored)
		if err != nil {
			log.Warn().Err(err).Int("sent", sent).Msg("publishing fraud alerts")
		}
		out.AlertsSent = sent
	}

	out.Outcome = Outcome{Status: StatusSuccess}
	out.Results = &report
	out.BundleID = bundle.ID
	out.Scored = scored
	return out
}

// latest returns the newest bundle of kind whose fingerprint matches, when
// reuse is on.
func (r *Runner) latest(ctx context.Context, log zerolog.Logger, kind string, userID int64, fingerprint string) *store.BundleRecord {
	if !r.Reuse || r.Bundles == nil {
		return nil
	}
	rec, err := r.Bundles.LatestBundle(ctx, kind, userID)
	if err != nil {
		log.Warn().Err(err).Msg("looking up stored bundle")
		return nil
	}
	if rec == nil || rec.Fingerprint != fingerprint {
		return nil
	}
	return rec
}

// save persists a freshly trained bundle and reports whether it was stored.
func (r *Runner) save(ctx context.Context, log zerolog.Logger, kind string, userID int64, id string, created time.Time, fingerprint string, bundle any) bool {
	if r.Bundles == nil {
		return false
	}
	payload, err := json.Marshal(bundle)
	if err != nil {
		log.Warn().Err(err).Msg("encoding bundle")
		return false
	}
	err = r.Bundles.SaveBundle(ctx, store.BundleRecord{
		ID:          id,
		Kind:        kind,
		UserID:      userID,
		CreatedAt:   created,
		Fingerprint: fingerprint,
		Tuned:       r.Config.General.Tune,
		Payload:     payload,
	})
	if err != nil {
		log.Warn().Err(err).Msg("saving bundle")
		return false
	}
	log.Info().Str("bundle_id", id).Msg("bundle saved")
	return true
}
