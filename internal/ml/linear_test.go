package ml

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func linearData() ([][]float64, []float64) {
	var X [][]float64
	var y []float64
	for i := 0; i < 20; i++ {
		a := float64(i)
		b := math.Sin(float64(i))
		X = append(X, []float64{a, b})
		y = append(y, 2*a-3*b+5)
	}
	return X, y
}

func TestLinear_RecoversExactCoefficients(t *testing.T) {
	X, y := linearData()
	l := NewLinear()
	require.NoError(t, l.Fit(X, y))

	assert.InDelta(t, 2.0, l.Coef[0], 1e-9)
	assert.InDelta(t, -3.0, l.Coef[1], 1e-9)
	assert.InDelta(t, 5.0, l.Intercept, 1e-9)
	assert.InDelta(t, 2*3.0-3*0.5+5, l.Predict([]float64{3, 0.5}), 1e-9)
}

func TestRidge_ShrinksTowardMean(t *testing.T) {
	X, y := linearData()
	ols := NewLinear()
	require.NoError(t, ols.Fit(X, y))
	ridge := NewRidge(1000)
	require.NoError(t, ridge.Fit(X, y))

	assert.Less(t, math.Abs(ridge.Coef[1]), math.Abs(ols.Coef[1]))
}

func TestLinear_MoreFeaturesThanRows(t *testing.T) {
	X := [][]float64{{1, 2, 3, 4}, {2, 1, 0, 5}}
	y := []float64{10, 12}
	l := NewLinear()
	require.NoError(t, l.Fit(X, y))
	for i := range X {
		assert.InDelta(t, y[i], l.Predict(X[i]), 1e-8)
	}
}

func TestLinear_ConstantTarget(t *testing.T) {
	X := [][]float64{{0, 1}, {1, 0}, {2, 2}}
	y := []float64{1000, 1000, 1000}
	l := NewRidge(1)
	require.NoError(t, l.Fit(X, y))
	assert.InDelta(t, 1000, l.Predict([]float64{5, -3}), 1e-9)
}

func TestLinear_RejectsNegativeAlpha(t *testing.T) {
	X, y := linearData()
	assert.Error(t, NewRidge(-1).Fit(X, y))
}

func TestEnvelope_RoundTripPredictions(t *testing.T) {
	X, y := linearData()
	regs := []Regressor{
		NewRidge(0.1),
		NewForest(ForestParams{NEstimators: 5, MaxDepth: 4, MaxFeatures: FeaturesAll, Seed: 1}),
		NewGradientBoosting(BoostParams{NEstimators: 10, LearningRate: 0.1, MaxDepth: 3, Subsample: 0.8, Seed: 1}),
		NewXGBoost(XGBParams{NEstimators: 10, LearningRate: 0.1, MaxDepth: 3, MinChildWeight: 1, Subsample: 1, ColsampleByTree: 0.5, Lambda: 1, Seed: 1}),
	}
	for _, r := range regs {
		require.NoError(t, r.Fit(X, y), r.Kind())
		env, err := Wrap(r)
		require.NoError(t, err)
		data, err := json.Marshal(env)
		require.NoError(t, err)

		var back Envelope
		require.NoError(t, json.Unmarshal(data, &back))
		restored, err := back.Unwrap()
		require.NoError(t, err)
		for _, row := range X {
			assert.Equal(t, r.Predict(row), restored.Predict(row), r.Kind())
		}
	}
}

func TestEnvelope_UnknownKind(t *testing.T) {
	_, err := Envelope{Kind: "svm"}.Unwrap()
	assert.Error(t, err)
}
