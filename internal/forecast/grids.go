package forecast

import (
	"math/rand"

	"github.com/theirongolddev/ledgerscope/internal/ml"
)

var ridgeAlphas = []float64{0.001, 0.01, 0.1, 1, 10, 100, 1000}

var forestGrid = struct {
	nEstimators, maxDepth, minSplit, minLeaf []int
	maxFeatures                              []string
}{
	nEstimators: []int{50, 100, 150, 200, 250},
	maxDepth:    []int{3, 5, 7, 10, 15, 20, 0},
	minSplit:    []int{2, 5, 10},
	minLeaf:     []int{1, 2, 4},
	maxFeatures: []string{ml.FeaturesSqrt, ml.FeaturesLog2, ml.FeaturesAll},
}

var boostGrid = struct {
	nEstimators, maxDepth, minSplit, minLeaf []int
	learningRate, subsample                  []float64
}{
	nEstimators:  []int{50, 100, 150, 200},
	learningRate: []float64{0.01, 0.05, 0.1, 0.15, 0.2},
	maxDepth:     []int{3, 4, 5, 6, 7},
	minSplit:     []int{2, 5, 10},
	minLeaf:      []int{1, 2, 4},
	subsample:    []float64{0.8, 0.9, 1.0},
}

var xgbGrid = struct {
	nEstimators, maxDepth                                     []int
	learningRate, minChildWeight, subsample, colsample, gamma []float64
}{
	nEstimators:    []int{50, 100, 150, 200},
	learningRate:   []float64{0.01, 0.05, 0.1, 0.15, 0.2},
	maxDepth:       []int{3, 4, 5, 6, 7, 8},
	minChildWeight: []float64{1, 3, 5, 7},
	subsample:      []float64{0.7, 0.8, 0.9, 1.0},
	colsample:      []float64{0.7, 0.8, 0.9, 1.0},
	gamma:          []float64{0, 0.1, 0.2, 0.3},
}

// Fixed configurations used when tuning is off.
func defaultForest(seed int64) ml.ForestParams {
	return ml.ForestParams{NEstimators: 100, MaxDepth: 10, MinSamplesSplit: 2, MinSamplesLeaf: 1, MaxFeatures: ml.FeaturesAll, Seed: seed}
}

func defaultBoost(seed int64) ml.BoostParams {
	return ml.BoostParams{NEstimators: 100, LearningRate: 0.1, MaxDepth: 5, MinSamplesSplit: 2, MinSamplesLeaf: 1, Subsample: 1, Seed: seed}
}

func defaultXGB(seed int64) ml.XGBParams {
	return ml.XGBParams{NEstimators: 100, LearningRate: 0.1, MaxDepth: 6, MinChildWeight: 1, Subsample: 1, ColsampleByTree: 1, Lambda: 1, Seed: seed}
}

func forestCandidates(n int, seed int64) []ml.ForestParams {
	g := forestGrid
	combos := ml.SampleGrid([]int{len(g.nEstimators), len(g.maxDepth), len(g.minSplit), len(g.minLeaf), len(g.maxFeatures)},
		n, rand.New(rand.NewSource(seed)))
	out := make([]ml.ForestParams, len(combos))
	for i, c := range combos {
		out[i] = ml.ForestParams{
			NEstimators:     g.nEstimators[c[0]],
			MaxDepth:        g.maxDepth[c[1]],
			MinSamplesSplit: g.minSplit[c[2]],
			MinSamplesLeaf:  g.minLeaf[c[3]],
			MaxFeatures:     g.maxFeatures[c[4]],
			Seed:            seed,
		}
	}
	return out
}

func boostCandidates(n int, seed int64) []ml.BoostParams {
	g := boostGrid
	combos := ml.SampleGrid([]int{len(g.nEstimators), len(g.learningRate), len(g.maxDepth), len(g.minSplit), len(g.minLeaf), len(g.subsample)},
		n, rand.New(rand.NewSource(seed)))
	out := make([]ml.BoostParams, len(combos))
	for i, c := range combos {
		out[i] = ml.BoostParams{
			NEstimators:     g.nEstimators[c[0]],
			LearningRate:    g.learningRate[c[1]],
			MaxDepth:        g.maxDepth[c[2]],
			MinSamplesSplit: g.minSplit[c[3]],
			MinSamplesLeaf:  g.minLeaf[c[4]],
			Subsample:       g.subsample[c[5]],
			Seed:            seed,
		}
	}
	return out
}

func xgbCandidates(n int, seed int64) []ml.XGBParams {
	g := xgbGrid
	combos := ml.SampleGrid([]int{len(g.nEstimators), len(g.learningRate), len(g.maxDepth), len(g.minChildWeight), len(g.subsample), len(g.colsample), len(g.gamma)},
		n, rand.New(rand.NewSource(seed)))
	out := make([]ml.XGBParams, len(combos))
	for i, c := range combos {
		out[i] = ml.XGBParams{
			NEstimators:     g.nEstimators[c[0]],
			LearningRate:    g.learningRate[c[1]],
			MaxDepth:        g.maxDepth[c[2]],
			MinChildWeight:  g.minChildWeight[c[3]],
			Subsample:       g.subsample[c[4]],
			ColsampleByTree: g.colsample[c[5]],
			Gamma:           g.gamma[c[6]],
			Lambda:          1,
			Seed:            seed,
		}
	}
	return out
}
