package forecast

import (
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/theirongolddev/ledgerscope/internal/ml"
	"github.com/theirongolddev/ledgerscope/internal/model"
)

// Kind identifies forecast bundles in the model store.
const Kind = "forecast"

// Bundle is everything needed to predict with a trained forecast ensemble:
// the fitted regressors, the feature order and scaler they were trained
// with, and the effective ensemble weights.
type Bundle struct {
	ID           string
	CreatedAt    time.Time
	FeatureNames []string
	Scaler       *ml.Scaler
	Models       map[string]ml.Regressor
	Params       map[string]string
	Weights      map[string]float64
	Metrics      map[string]model.EvalMetrics
	BestModel    string
	Fingerprint  string
}

type bundleJSON struct {
	ID           string                       `json:"id"`
	CreatedAt    time.Time                    `json:"created_at"`
	FeatureNames []string                     `json:"feature_names"`
	Scaler       *ml.Scaler                   `json:"scaler"`
	Models       map[string]ml.Envelope       `json:"models"`
	Params       map[string]string            `json:"params,omitempty"`
	Weights      map[string]float64           `json:"weights"`
	Metrics      map[string]model.EvalMetrics `json:"metrics,omitempty"`
	BestModel    string                       `json:"best_model,omitempty"`
	Fingerprint  string                       `json:"fingerprint,omitempty"`
}

// MarshalJSON implements json.Marshaler.
func (b *Bundle) MarshalJSON() ([]byte, error) {
	out := bundleJSON{
		ID:           b.ID,
		CreatedAt:    b.CreatedAt,
		FeatureNames: b.FeatureNames,
		Scaler:       b.Scaler,
		Models:       make(map[string]ml.Envelope, len(b.Models)),
		Params:       b.Params,
		Weights:      b.Weights,
		Metrics:      b.Metrics,
		BestModel:    b.BestModel,
		Fingerprint:  b.Fingerprint,
	}
	for name, r := range b.Models {
		env, err := ml.Wrap(r)
		if err != nil {
			return nil, err
		}
		out.Models[name] = env
	}
	return json.Marshal(out)
}

// UnmarshalJSON implements json.Unmarshaler.
func (b *Bundle) UnmarshalJSON(data []byte) error {
	var in bundleJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	if in.Scaler == nil || in.Scaler.Width() != len(in.FeatureNames) {
		return fmt.Errorf("forecast bundle %s: scaler does not match %d features", in.ID, len(in.FeatureNames))
	}
	models := make(map[string]ml.Regressor, len(in.Models))
	for name, env := range in.Models {
		r, err := env.Unwrap()
		if err != nil {
			return fmt.Errorf("forecast bundle %s model %s: %w", in.ID, name, err)
		}
		models[name] = r
	}
	*b = Bundle{
		ID:           in.ID,
		CreatedAt:    in.CreatedAt,
		FeatureNames: in.FeatureNames,
		Scaler:       in.Scaler,
		Models:       models,
		Params:       in.Params,
		Weights:      in.Weights,
		Metrics:      in.Metrics,
		BestModel:    in.BestModel,
		Fingerprint:  in.Fingerprint,
	}
	return nil
}

// Predict returns every model's prediction for one raw feature row, each
// clamped at zero.
func (b *Bundle) Predict(row []float64) (map[string]float64, error) {
	if b == nil || len(b.Models) == 0 || b.Scaler == nil {
		return nil, model.ErrUntrainedModel
	}
	if len(row) != len(b.FeatureNames) {
		return nil, fmt.Errorf("feature row has %d values, bundle expects %d: %w", len(row), len(b.FeatureNames), model.ErrInvalidConfiguration)
	}
	x := b.Scaler.Transform(row)
	out := make(map[string]float64, len(b.Models))
	for name, r := range b.Models {
		out[name] = math.Max(0, r.Predict(x))
	}
	return out, nil
}

// Blend is the weighted ensemble of preds, clamped at zero.
func (b *Bundle) Blend(preds map[string]float64) float64 {
	var s float64
	for _, name := range model.ForecastModels {
		if p, ok := preds[name]; ok {
			s += b.Weights[name] * p
		}
	}
	return math.Max(0, s)
}
