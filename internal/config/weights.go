package config

import (
	"fmt"
	"math"
	"strings"

	"github.com/theirongolddev/ledgerscope/internal/model"
)

// EnsembleWeights is the fixed per-model blend of the forecast ensemble.
// It is a plain value: copies never alias, and For returns a fresh map.
type EnsembleWeights struct {
	Linear           float64 `toml:"linear"`
	Ridge            float64 `toml:"ridge"`
	RandomForest     float64 `toml:"random_forest"`
	GradientBoosting float64 `toml:"gradient_boosting"`
	XGBoost          float64 `toml:"xgboost"`
}

// DefaultWeights returns the hand-tuned default blend.
func DefaultWeights() EnsembleWeights {
	return EnsembleWeights{
		Linear:           0.10,
		Ridge:            0.15,
		RandomForest:     0.25,
		GradientBoosting: 0.25,
		XGBoost:          0.25,
	}
}

// modelAliases maps shorthand model names to canonical identifiers.
var modelAliases = map[string]string{
	"lr":      model.ModelLinear,
	"ols":     model.ModelLinear,
	"rf":      model.ModelRandomForest,
	"forest":  model.ModelRandomForest,
	"gb":      model.ModelGradientBoosting,
	"gbm":     model.ModelGradientBoosting,
	"xgb":     model.ModelXGBoost,
	"boost":   model.ModelGradientBoosting,
	"l2":      model.ModelRidge,
	"ridge":   model.ModelRidge,
	"linear":  model.ModelLinear,
	"xgboost": model.ModelXGBoost,
}

// NormalizeModelName maps user input like "RF" or "random-forest" to a
// canonical model identifier. Unknown names are returned lowercased.
func NormalizeModelName(raw string) string {
	name := strings.ToLower(strings.TrimSpace(raw))
	name = strings.ReplaceAll(name, "-", "_")
	if canon, ok := modelAliases[name]; ok {
		return canon
	}
	return name
}

// Get returns the weight of the named model, or 0 if it has none.
func (w EnsembleWeights) Get(name string) float64 {
	switch NormalizeModelName(name) {
	case model.ModelLinear:
		return w.Linear
	case model.ModelRidge:
		return w.Ridge
	case model.ModelRandomForest:
		return w.RandomForest
	case model.ModelGradientBoosting:
		return w.GradientBoosting
	case model.ModelXGBoost:
		return w.XGBoost
	}
	return 0
}

// Validate rejects negative or non-finite weights and an all-zero table.
func (w EnsembleWeights) Validate() error {
	var total float64
	for _, name := range model.ForecastModels {
		v := w.Get(name)
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("weight %s = %v: %w", name, v, model.ErrInvalidConfiguration)
		}
		total += v
	}
	if total <= 0 {
		return fmt.Errorf("ensemble weights sum to %v: %w", total, model.ErrInvalidConfiguration)
	}
	return nil
}

// For returns normalized weights over the present models, summing to 1.
// The weight of every absent model goes to the tree ensembles in
// proportion to their own weights; when neither tree ensemble is present
// the table is renormalized over what is.
func (w EnsembleWeights) For(present []string) (map[string]float64, error) {
	if err := w.Validate(); err != nil {
		return nil, err
	}
	if len(present) == 0 {
		return nil, fmt.Errorf("no models to weight: %w", model.ErrInvalidConfiguration)
	}

	out := make(map[string]float64, len(present))
	isPresent := make(map[string]bool, len(present))
	for _, name := range present {
		canon := NormalizeModelName(name)
		if w.Get(canon) == 0 && !isForecastModel(canon) {
			return nil, fmt.Errorf("unknown model %q: %w", name, model.ErrInvalidConfiguration)
		}
		isPresent[canon] = true
		out[canon] = w.Get(canon)
	}

	var missing float64
	for _, name := range model.ForecastModels {
		if !isPresent[name] {
			missing += w.Get(name)
		}
	}

	var treeTotal float64
	for _, name := range model.TreeEnsembleModels {
		if isPresent[name] {
			treeTotal += w.Get(name)
		}
	}
	if missing > 0 && treeTotal > 0 {
		for _, name := range model.TreeEnsembleModels {
			if isPresent[name] {
				out[name] += missing * w.Get(name) / treeTotal
			}
		}
	}

	var total float64
	for _, name := range model.ForecastModels {
		total += out[name]
	}
	if total <= 0 {
		return nil, fmt.Errorf("present models carry no weight: %w", model.ErrInvalidConfiguration)
	}
	for name := range out {
		out[name] /= total
	}
	return out, nil
}

func isForecastModel(name string) bool {
	for _, m := range model.ForecastModels {
		if m == name {
			return true
		}
	}
	return false
}
