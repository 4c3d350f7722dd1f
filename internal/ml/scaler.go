// Package ml implements the regressors, the isolation forest, time-ordered
// validation and hyperparameter search used by the forecast and fraud pipelines.
package ml

import (
	"encoding/json"
	"fmt"

	"github.com/theirongolddev/ledgerscope/internal/model"
)

// Scaler standardizes feature columns. Its statistics are set once by
// FitScaler and never change afterwards, so a fitted Scaler can be shared
// by concurrent readers without locking.
type Scaler struct {
	mean  []float64
	scale []float64
}

// FitScaler computes per-column mean and population standard deviation.
// Constant columns get a scale of 1 so they map to zero.
func FitScaler(X [][]float64) (*Scaler, error) {
	if len(X) == 0 || len(X[0]) == 0 {
		return nil, fmt.Errorf("fitting scaler: %w", model.ErrInsufficientData)
	}
	p := len(X[0])
	s := &Scaler{mean: make([]float64, p), scale: make([]float64, p)}
	col := make([]float64, len(X))
	for j := 0; j < p; j++ {
		for i, row := range X {
			col[i] = row[j]
		}
		m, sd := popMeanStd(col)
		s.mean[j] = m
		if sd == 0 {
			sd = 1
		}
		s.scale[j] = sd
	}
	return s, nil
}

// Width returns the number of columns the scaler was fit on.
func (s *Scaler) Width() int { return len(s.mean) }

// Transform returns a standardized copy of x.
func (s *Scaler) Transform(x []float64) []float64 {
	out := make([]float64, len(x))
	for j, v := range x {
		out[j] = (v - s.mean[j]) / s.scale[j]
	}
	return out
}

// TransformAll standardizes every row.
func (s *Scaler) TransformAll(X [][]float64) [][]float64 {
	out := make([][]float64, len(X))
	for i, row := range X {
		out[i] = s.Transform(row)
	}
	return out
}

type scalerJSON struct {
	Mean  []float64 `json:"mean"`
	Scale []float64 `json:"scale"`
}

// MarshalJSON implements json.Marshaler.
func (s *Scaler) MarshalJSON() ([]byte, error) {
	return json.Marshal(scalerJSON{Mean: s.mean, Scale: s.scale})
}

// UnmarshalJSON implements json.Unmarshaler.
func (s *Scaler) UnmarshalJSON(data []byte) error {
	var v scalerJSON
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	if len(v.Mean) != len(v.Scale) {
		return fmt.Errorf("scaler: %d means for %d scales", len(v.Mean), len(v.Scale))
	}
	s.mean, s.scale = v.Mean, v.Scale
	return nil
}
