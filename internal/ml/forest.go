package ml

import (
	"fmt"
	"math"
	"math/rand"
)

// Max-features modes for random forests.
const (
	FeaturesSqrt = "sqrt"
	FeaturesLog2 = "log2"
	FeaturesAll  = "all"
)

// ForestParams configures a bagged random-feature forest.
type ForestParams struct {
	NEstimators     int    `json:"n_estimators"`
	MaxDepth        int    `json:"max_depth"` // 0 = unlimited
	MinSamplesSplit int    `json:"min_samples_split"`
	MinSamplesLeaf  int    `json:"min_samples_leaf"`
	MaxFeatures     string `json:"max_features"`
	Seed            int64  `json:"seed"`
}

func (p ForestParams) String() string {
	depth := "none"
	if p.MaxDepth > 0 {
		depth = fmt.Sprint(p.MaxDepth)
	}
	return fmt.Sprintf("n_estimators=%d max_depth=%s min_samples_split=%d min_samples_leaf=%d max_features=%s",
		p.NEstimators, depth, p.MinSamplesSplit, p.MinSamplesLeaf, p.MaxFeatures)
}

// Forest averages bootstrap-trained regression trees.
type Forest struct {
	Params ForestParams `json:"params"`
	Trees  []Tree       `json:"trees"`
}

// NewForest returns an unfitted forest.
func NewForest(p ForestParams) *Forest { return &Forest{Params: p} }

// Kind implements Regressor.
func (f *Forest) Kind() string { return kindForest }

// Fit implements Regressor.
func (f *Forest) Fit(X [][]float64, y []float64) error {
	if err := checkXY(X, y); err != nil {
		return err
	}
	if f.Params.NEstimators <= 0 {
		return fmt.Errorf("forest: n_estimators %d must be positive", f.Params.NEstimators)
	}
	n := len(X)
	tp := treeParams{
		maxDepth:    f.Params.MaxDepth,
		minSplit:    max(f.Params.MinSamplesSplit, 2),
		minLeaf:     max(f.Params.MinSamplesLeaf, 1),
		maxFeatures: resolveMaxFeatures(f.Params.MaxFeatures, len(X[0])),
	}
	rng := rand.New(rand.NewSource(f.Params.Seed))
	f.Trees = make([]Tree, f.Params.NEstimators)
	for t := range f.Trees {
		idx := make([]int, n)
		for i := range idx {
			idx[i] = rng.Intn(n)
		}
		f.Trees[t] = fitTree(X, y, idx, tp, nil, rng)
	}
	return nil
}

// Predict implements Regressor.
func (f *Forest) Predict(x []float64) float64 {
	if len(f.Trees) == 0 {
		return 0
	}
	var s float64
	for i := range f.Trees {
		s += f.Trees[i].Predict(x)
	}
	return s / float64(len(f.Trees))
}

func resolveMaxFeatures(mode string, p int) int {
	switch mode {
	case FeaturesSqrt:
		return max(1, int(math.Sqrt(float64(p))))
	case FeaturesLog2:
		return max(1, int(math.Log2(float64(p))))
	default:
		return p
	}
}
