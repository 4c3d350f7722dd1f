// Package forecast trains the monthly spending regressors, blends them into
// a weighted ensemble and predicts next month's total.
package forecast

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

// Options controls training.
type Options struct {
	Tune             bool
	TestFraction     float64
	Folds            int
	SearchIterations int
	MinRows          int
	EnableXGBoost    bool
	Seed             int64
	Workers          int
	Weights          config.EnsembleWeights

	Logger   zerolog.Logger
	Recorder *metrics.Recorder
}

// OptionsFromConfig maps the [general] and [forecast] sections to Options.
func OptionsFromConfig(cfg config.Config) Options {
	return Options{
		Tune:             cfg.General.Tune,
		TestFraction:     cfg.Forecast.TestFraction,
		Folds:            cfg.Forecast.CVFolds,
		SearchIterations: cfg.Forecast.SearchIterations,
		MinRows:          cfg.Forecast.MinRows,
		EnableXGBoost:    cfg.Forecast.EnableXGBoost,
		Seed:             cfg.General.Seed,
		Workers:          cfg.General.Workers,
		Weights:          cfg.Forecast.Weights,
		Logger:           zerolog.Nop(),
	}
}

func (o Options) validate() error {
	if o.TestFraction <= 0 || o.TestFraction >= 1 {
		return fmt.Errorf("test fraction %v: %w", o.TestFraction, model.ErrInvalidConfiguration)
	}
	if o.Tune && (o.Folds < 1 || o.SearchIterations < 1) {
		return fmt.Errorf("folds %d, search iterations %d: %w", o.Folds, o.SearchIterations, model.ErrInvalidConfiguration)
	}
	return o.Weights.Validate()
}

// TrainResult is a fitted bundle plus its held-out evaluation.
type TrainResult struct {
	Bundle  *Bundle
	Metrics map[string]model.EvalMetrics
}

// trainer carries the standardized training split through the per-family
// fit functions.
type trainer struct {
	opts  Options
	log   zerolog.Logger
	X     [][]float64
	y     []float64
	folds []ml.Fold
}

type family struct {
	name string
	fit  func(t *trainer) (ml.Regressor, string, error)
}

var families = []family{
	{model.ModelLinear, fitLinear},
	{model.ModelRidge, fitRidge},
	{model.ModelRandomForest, fitForest},
	{model.ModelGradientBoosting, fitBoosting},
	{model.ModelXGBoost, fitXGBoost},
}

// Train fits every enabled regressor on the first part of the frame and
// evaluates each, and their weighted blend, on the chronologically last
// TestFraction of rows.
func Train(ff features.ForecastFrame, opts Options) (*TrainResult, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	n := ff.Len()
	if n < max(opts.MinRows, 2) {
		return nil, fmt.Errorf("%d monthly feature rows, need %d: %w", n, max(opts.MinRows, 2), model.ErrInsufficientData)
	}
	split := int(float64(n) * (1 - opts.TestFraction))
	if split < 1 || split >= n {
		return nil, fmt.Errorf("split %d of %d rows leaves an empty side: %w", split, n, model.ErrInsufficientData)
	}

	scaler, err := ml.FitScaler(ff.Rows[:split])
	if err != nil {
		return nil, err
	}
	X := scaler.TransformAll(ff.Rows)
	t := &trainer{opts: opts, log: opts.Logger, X: X[:split], y: ff.Targets[:split]}
	if opts.Tune {
		t.folds, err = ml.TimeSeriesSplit(split, opts.Folds)
		if err != nil {
			t.log.Warn().Err(err).Msg("too few rows to cross-validate, using fixed parameters")
		}
	}
	t.log.Info().Int("train_rows", split).Int("test_rows", n-split).Int("features", len(ff.Names)).Bool("tune", len(t.folds) > 0).Msg("training forecast models")

	b := &Bundle{
		ID:           uuid.NewString(),
		CreatedAt:    time.Now().UTC(),
		FeatureNames: append([]string(nil), ff.Names...),
		Scaler:       scaler,
		Models:       make(map[string]ml.Regressor),
		Params:       make(map[string]string),
	}
	var present []string
	for _, fam := range families {
		if fam.name == model.ModelXGBoost && !opts.EnableXGBoost {
			continue
		}
		start := time.Now()
		r, params, err := fam.fit(t)
		if err != nil {
			return nil, fmt.Errorf("training %s: %w", fam.name, err)
		}
		opts.Recorder.ObserveFit(fam.name, time.Since(start))
		t.log.Info().Str("model", fam.name).Str("params", params).Dur("took", time.Since(start)).Msg("model fitted")
		b.Models[fam.name] = r
		b.Params[fam.name] = params
		present = append(present, fam.name)
	}

	b.Weights, err = opts.Weights.For(present)
	if err != nil {
		return nil, err
	}

	Xtest, ytest := X[split:], ff.Targets[split:]
	res := &TrainResult{Bundle: b, Metrics: make(map[string]model.EvalMetrics)}
	blend := make([]float64, len(ytest))
	best := math.Inf(1)
	for _, name := range present {
		pred := ml.PredictAll(b.Models[name], Xtest)
		m := ml.Evaluate(ytest, pred)
		res.Metrics[name] = m
		for i, p := range pred {
			blend[i] += b.Weights[name] * p
		}
		if m.RMSE < best {
			best = m.RMSE
			b.BestModel = name
		}
	}
	res.Metrics[model.ModelEnsemble] = ml.Evaluate(ytest, blend)
	b.Metrics = res.Metrics
	return res, nil
}

func fitLinear(t *trainer) (ml.Regressor, string, error) {
	r := ml.NewLinear()
	return r, "", r.Fit(t.X, t.y)
}

func fitRidge(t *trainer) (ml.Regressor, string, error) {
	alpha := 1.0
	if len(t.folds) > 0 {
		best, err := tune(t, model.ModelRidge, ridgeAlphas, func(a float64) ml.Regressor { return ml.NewRidge(a) })
		if err != nil {
			return nil, "", err
		}
		alpha = best
	}
	r := ml.NewRidge(alpha)
	return r, fmt.Sprintf("alpha=%g", alpha), r.Fit(t.X, t.y)
}

func fitForest(t *trainer) (ml.Regressor, string, error) {
	p := defaultForest(t.opts.Seed)
	if len(t.folds) > 0 {
		best, err := tune(t, model.ModelRandomForest, forestCandidates(t.opts.SearchIterations, t.opts.Seed),
			func(p ml.ForestParams) ml.Regressor { return ml.NewForest(p) })
		if err != nil {
			return nil, "", err
		}
		p = best
	}
	r := ml.NewForest(p)
	return r, p.String(), r.Fit(t.X, t.y)
}

func fitBoosting(t *trainer) (ml.Regressor, string, error) {
	p := defaultBoost(t.opts.Seed)
	if len(t.folds) > 0 {
		best, err := tune(t, model.ModelGradientBoosting, boostCandidates(t.opts.SearchIterations, t.opts.Seed),
			func(p ml.BoostParams) ml.Regressor { return ml.NewGradientBoosting(p) })
		if err != nil {
			return nil, "", err
		}
		p = best
	}
	r := ml.NewGradientBoosting(p)
	return r, p.String(), r.Fit(t.X, t.y)
}

func fitXGBoost(t *trainer) (ml.Regressor, string, error) {
	p := defaultXGB(t.opts.Seed)
	if len(t.folds) > 0 {
		best, err := tune(t, model.ModelXGBoost, xgbCandidates(t.opts.SearchIterations, t.opts.Seed),
			func(p ml.XGBParams) ml.Regressor { return ml.NewXGBoost(p) })
		if err != nil {
			return nil, "", err
		}
		p = best
	}
	r := ml.NewXGBoost(p)
	return r, p.String(), r.Fit(t.X, t.y)
}

// tune picks the candidate with the lowest mean expanding-window
// validation MSE.
func tune[P any](t *trainer, name string, candidates []P, build func(P) ml.Regressor) (P, error) {
	res, err := ml.Search(candidates,
		func(p P) (float64, error) {
			return ml.CrossValidate(func() ml.Regressor { return build(p) }, t.X, t.y, t.folds)
		},
		func(_ P, mse float64) (float64, error) { return mse, nil },
		ml.SearchOptions{
			Workers: t.opts.Workers,
			OnFailure: func(i int, err error) {
				t.log.Debug().Str("model", name).Int("candidate", i).Err(err).Msg("candidate skipped")
			},
		})
	t.opts.Recorder.AddCandidates(name, res.Evaluated, res.Failed)
	if err != nil {
		var zero P
		return zero, err
	}
	t.log.Debug().Str("model", name).Int("evaluated", res.Evaluated).Int("failed", res.Failed).Float64("cv_mse", res.Score).Msg("search finished")
	return res.Params, nil
}
