package ml

import (
	"encoding/json"
	"fmt"
)

// Regressor is a fitted-or-fittable point predictor over standardized rows.
type Regressor interface {
	Fit(X [][]float64, y []float64) error
	Predict(x []float64) float64
	Kind() string
}

// PredictAll applies r to every row.
func PredictAll(r Regressor, X [][]float64) []float64 {
	out := make([]float64, len(X))
	for i, row := range X {
		out[i] = r.Predict(row)
	}
	return out
}

// Envelope tags a serialized regressor with its concrete kind.
type Envelope struct {
	Kind string          `json:"kind"`
	Data json.RawMessage `json:"data"`
}

// Wrap serializes r into an Envelope.
func Wrap(r Regressor) (Envelope, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return Envelope{}, fmt.Errorf("encoding %s: %w", r.Kind(), err)
	}
	return Envelope{Kind: r.Kind(), Data: data}, nil
}

// Unwrap restores the regressor held by e.
func (e Envelope) Unwrap() (Regressor, error) {
	var r Regressor
	switch e.Kind {
	case kindLinear:
		r = &Linear{}
	case kindForest:
		r = &Forest{}
	case kindGradientBoosting:
		r = &GradientBoosting{}
	case kindXGBoost:
		r = &XGBoost{}
	default:
		return nil, fmt.Errorf("unknown regressor kind %q", e.Kind)
	}
	if err := json.Unmarshal(e.Data, r); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", e.Kind, err)
	}
	return r, nil
}

const (
	kindLinear           = "linear"
	kindForest           = "random_forest"
	kindGradientBoosting = "gradient_boosting"
	kindXGBoost          = "xgboost"
)

func checkXY(X [][]float64, y []float64) error {
	if len(X) == 0 {
		return fmt.Errorf("fit: no rows")
	}
	if len(X) != len(y) {
		return fmt.Errorf("fit: %d rows but %d targets", len(X), len(y))
	}
	if len(X[0]) == 0 {
		return fmt.Errorf("fit: no features")
	}
	return nil
}
