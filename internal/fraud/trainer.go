// Package fraud trains the isolation forest over per-transaction features
// and fuses its anomaly score with rule-based sub-scores.
package fraud

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/theirongolddev/ledgerscope/internal/config"
	"github.com/theirongolddev/ledgerscope/internal/features"
	"github.com/theirongolddev/ledgerscope/internal/metrics"
	"github.com/theirongolddev/ledgerscope/internal/ml"
	"github.com/theirongolddev/ledgerscope/internal/model"
)

// metricName labels isolation forest fits in the metrics recorder.
const metricName = "isolation_forest"

// Options controls training.
type Options struct {
	Tune            bool
	Contamination   float64
	MinTransactions int
	Seed            int64
	Workers         int

	Logger   zerolog.Logger
	Recorder *metrics.Recorder
}

// OptionsFromConfig maps the [general] and [fraud] sections to Options.
func OptionsFromConfig(cfg config.Config) Options {
	return Options{
		Tune:            cfg.General.Tune,
		Contamination:   cfg.Fraud.Contamination,
		MinTransactions: cfg.Fraud.MinTransactions,
		Seed:            cfg.General.Seed,
		Workers:         cfg.General.Workers,
		Logger:          zerolog.Nop(),
	}
}

var isolationGrid = struct {
	nEstimators                            []int
	maxSamples, contamination, maxFeatures []float64
	bootstrap                              []bool
}{
	nEstimators:   []int{50, 100, 150, 200},
	maxSamples:    []float64{0, 0.5, 0.75, 1.0}, // 0 = auto
	contamination: []float64{0.01, 0.02, 0.05, 0.1},
	maxFeatures:   []float64{0.5, 0.75, 1.0},
	bootstrap:     []bool{true, false},
}

// isolationCandidates enumerates the full grid in nested order.
func isolationCandidates(seed int64) []ml.IsolationParams {
	g := isolationGrid
	combos := ml.EnumerateGrid([]int{len(g.nEstimators), len(g.maxSamples), len(g.contamination), len(g.maxFeatures), len(g.bootstrap)})
	out := make([]ml.IsolationParams, len(combos))
	for i, c := range combos {
		out[i] = ml.IsolationParams{
			NEstimators:   g.nEstimators[c[0]],
			MaxSamples:    g.maxSamples[c[1]],
			Contamination: g.contamination[c[2]],
			MaxFeatures:   g.maxFeatures[c[3]],
			Bootstrap:     g.bootstrap[c[4]],
			Seed:          seed,
		}
	}
	return out
}

// TrainResult is a fitted bundle with its training summary.
type TrainResult struct {
	Bundle  *Bundle
	Summary model.AnomalySummary
}

// Train fits the feature encoder, scaler and isolation forest on txns.
//
// With tuning on, every grid combination is fitted and the one whose
// decision values have the widest standard deviation is kept. This is an
// unsupervised proxy for separability; without fraud labels there is no
// error metric to select on.
func Train(txns []model.Transaction, opts Options) (*TrainResult, error) {
	minTxns := max(opts.MinTransactions, 1)
	if len(txns) < minTxns {
		return nil, fmt.Errorf("%d transactions, need %d: %w", len(txns), minTxns, model.ErrInsufficientData)
	}
	log := opts.Logger

	enc, err := features.FitFraudEncoder(txns)
	if err != nil {
		return nil, err
	}
	frame := enc.Transform(txns)
	scaler, err := ml.FitScaler(frame.Rows)
	if err != nil {
		return nil, err
	}
	X := scaler.TransformAll(frame.Rows)

	start := time.Now()
	params := ml.DefaultIsolationParams()
	params.Seed = opts.Seed
	if opts.Contamination > 0 {
		params.Contamination = opts.Contamination
	}
	if opts.Tune {
		params, err = tuneIsolation(X, opts)
		if err != nil {
			return nil, err
		}
	}

	forest := ml.NewIsolationForest(params)
	if err := forest.Fit(X); err != nil {
		return nil, fmt.Errorf("fitting isolation forest: %w", err)
	}
	opts.Recorder.ObserveFit(metricName, time.Since(start))

	decisions := forest.DecisionAll(X)
	var anomalies int
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, d := range decisions {
		if d < 0 {
			anomalies++
		}
		lo = math.Min(lo, d)
		hi = math.Max(hi, d)
	}
	summary := model.AnomalySummary{
		Anomalies:     anomalies,
		AnomalyRate:   math.Round(float64(anomalies)/float64(len(X))*100*100) / 100,
		Contamination: params.Contamination,
	}
	log.Info().Str("params", params.String()).Int("anomalies", anomalies).Float64("anomaly_rate", summary.AnomalyRate).Dur("took", time.Since(start)).Msg("isolation forest fitted")

	b := &Bundle{
		ID:           uuid.NewString(),
		CreatedAt:    time.Now().UTC(),
		FeatureNames: frame.Names,
		Encoder:      enc,
		Scaler:       scaler,
		Forest:       forest,
		DecisionMin:  lo,
		DecisionMax:  hi,
		Summary:      summary,
	}
	return &TrainResult{Bundle: b, Summary: summary}, nil
}

func tuneIsolation(X [][]float64, opts Options) (ml.IsolationParams, error) {
	log := opts.Logger
	res, err := ml.Search(isolationCandidates(opts.Seed),
		func(p ml.IsolationParams) (*ml.IsolationForest, error) {
			f := ml.NewIsolationForest(p)
			return f, f.Fit(X)
		},
		func(_ ml.IsolationParams, f *ml.IsolationForest) (float64, error) {
			return -ml.PopStdDev(f.DecisionAll(X)), nil
		},
		ml.SearchOptions{
			Workers: opts.Workers,
			OnFailure: func(i int, err error) {
				log.Debug().Int("candidate", i).Err(err).Msg("isolation candidate skipped")
			},
		})
	opts.Recorder.AddCandidates(metricName, res.Evaluated, res.Failed)
	if err != nil {
		return ml.IsolationParams{}, err
	}
	log.Debug().Str("params", res.Params.String()).Float64("spread", -res.Score).Int("evaluated", res.Evaluated).Msg("isolation search finished")
	return res.Params, nil
}
