package ml

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stepData() ([][]float64, []float64) {
	var X [][]float64
	var y []float64
	for i := 0; i < 40; i++ {
		x := float64(i)
		X = append(X, []float64{x, float64(i % 3)})
		if i < 20 {
			y = append(y, 100)
		} else {
			y = append(y, 500)
		}
	}
	return X, y
}

func TestForest_LearnsStep(t *testing.T) {
	X, y := stepData()
	f := NewForest(ForestParams{NEstimators: 30, MaxDepth: 5, MinSamplesSplit: 2, MinSamplesLeaf: 1, MaxFeatures: FeaturesAll, Seed: 42})
	require.NoError(t, f.Fit(X, y))

	assert.InDelta(t, 100, f.Predict([]float64{5, 2}), 30)
	assert.InDelta(t, 500, f.Predict([]float64{35, 2}), 30)
}

func TestForest_DeterministicForSeed(t *testing.T) {
	X, y := stepData()
	p := ForestParams{NEstimators: 10, MaxDepth: 3, MaxFeatures: FeaturesSqrt, Seed: 7}
	a, b := NewForest(p), NewForest(p)
	require.NoError(t, a.Fit(X, y))
	require.NoError(t, b.Fit(X, y))
	for _, row := range X {
		assert.Equal(t, a.Predict(row), b.Predict(row))
	}
}

func TestGradientBoosting_FitsTraining(t *testing.T) {
	X, y := stepData()
	g := NewGradientBoosting(BoostParams{NEstimators: 100, LearningRate: 0.1, MaxDepth: 3, MinSamplesSplit: 2, MinSamplesLeaf: 1, Subsample: 1, Seed: 42})
	require.NoError(t, g.Fit(X, y))
	assert.InDelta(t, 0, RMSE(y, PredictAll(g, X)), 1)
}

func TestGradientBoosting_InvalidParams(t *testing.T) {
	X, y := stepData()
	g := NewGradientBoosting(BoostParams{NEstimators: 10, LearningRate: 0.1, MaxDepth: 3, Subsample: 0})
	assert.Error(t, g.Fit(X, y))
}

func TestXGBoost_GammaPrunesAllSplits(t *testing.T) {
	X, y := stepData()
	b := NewXGBoost(XGBParams{NEstimators: 5, LearningRate: 0.3, MaxDepth: 4, MinChildWeight: 1, Subsample: 1, ColsampleByTree: 1, Gamma: 1e12, Lambda: 1, Seed: 1})
	require.NoError(t, b.Fit(X, y))
	for _, tr := range b.Trees {
		assert.Len(t, tr.Nodes, 1)
	}
	assert.InDelta(t, 300, b.Predict(X[0]), 1e-9)
}

func TestXGBoost_LearnsStep(t *testing.T) {
	X, y := stepData()
	b := NewXGBoost(XGBParams{NEstimators: 100, LearningRate: 0.3, MaxDepth: 3, MinChildWeight: 1, Subsample: 1, ColsampleByTree: 1, Lambda: 1, Seed: 1})
	require.NoError(t, b.Fit(X, y))
	assert.InDelta(t, 100, b.Predict([]float64{3, 0}), 5)
	assert.InDelta(t, 500, b.Predict([]float64{30, 0}), 5)
}

func TestResolveMaxFeatures(t *testing.T) {
	assert.Equal(t, 5, resolveMaxFeatures(FeaturesSqrt, 32))
	assert.Equal(t, 5, resolveMaxFeatures(FeaturesLog2, 32))
	assert.Equal(t, 32, resolveMaxFeatures(FeaturesAll, 32))
	assert.Equal(t, 1, resolveMaxFeatures(FeaturesLog2, 1))
}
