package ml

import (
	"fmt"
	"math/rand"
)

// BoostParams configures sequential residual boosting.
type BoostParams struct {
	NEstimators     int     `json:"n_estimators"`
	LearningRate    float64 `json:"learning_rate"`
	MaxDepth        int     `json:"max_depth"`
	MinSamplesSplit int     `json:"min_samples_split"`
	MinSamplesLeaf  int     `json:"min_samples_leaf"`
	Subsample       float64 `json:"subsample"`
	Seed            int64   `json:"seed"`
}

func (p BoostParams) String() string {
	return fmt.Sprintf("n_estimators=%d learning_rate=%g max_depth=%d min_samples_split=%d min_samples_leaf=%d subsample=%g",
		p.NEstimators, p.LearningRate, p.MaxDepth, p.MinSamplesSplit, p.MinSamplesLeaf, p.Subsample)
}

// GradientBoosting fits each tree to the residuals of the ensemble so far
// under squared loss, starting from the target mean.
type GradientBoosting struct {
	Params BoostParams `json:"params"`
	Init   float64     `json:"init"`
	Trees  []Tree      `json:"trees"`
}

// NewGradientBoosting returns an unfitted booster.
func NewGradientBoosting(p BoostParams) *GradientBoosting { return &GradientBoosting{Params: p} }

// Kind implements Regressor.
func (g *GradientBoosting) Kind() string { return kindGradientBoosting }

// Fit implements Regressor.
func (g *GradientBoosting) Fit(X [][]float64, y []float64) error {
	if err := checkXY(X, y); err != nil {
		return err
	}
	p := g.Params
	if p.NEstimators <= 0 || p.LearningRate <= 0 {
		return fmt.Errorf("gradient boosting: invalid params %s", p)
	}
	if p.Subsample <= 0 || p.Subsample > 1 {
		return fmt.Errorf("gradient boosting: subsample %g out of (0,1]", p.Subsample)
	}
	tp := treeParams{
		maxDepth: p.MaxDepth,
		minSplit: max(p.MinSamplesSplit, 2),
		minLeaf:  max(p.MinSamplesLeaf, 1),
	}
	rng := rand.New(rand.NewSource(p.Seed))
	g.Init = sum(y) / float64(len(y))
	g.Trees = make([]Tree, 0, p.NEstimators)

	pred := make([]float64, len(y))
	for i := range pred {
		pred[i] = g.Init
	}
	resid := make([]float64, len(y))
	for m := 0; m < p.NEstimators; m++ {
		for i := range resid {
			resid[i] = y[i] - pred[i]
		}
		idx := subsampleRows(len(y), p.Subsample, rng)
		tree := fitTree(X, resid, idx, tp, nil, rng)
		g.Trees = append(g.Trees, tree)
		for i, row := range X {
			pred[i] += p.LearningRate * tree.Predict(row)
		}
	}
	return nil
}

// Predict implements Regressor.
func (g *GradientBoosting) Predict(x []float64) float64 {
	out := g.Init
	for i := range g.Trees {
		out += g.Params.LearningRate * g.Trees[i].Predict(x)
	}
	return out
}

// XGBParams configures the regularized second-order booster.
type XGBParams struct {
	NEstimators     int     `json:"n_estimators"`
	LearningRate    float64 `json:"learning_rate"`
	MaxDepth        int     `json:"max_depth"`
	MinChildWeight  float64 `json:"min_child_weight"`
	Subsample       float64 `json:"subsample"`
	ColsampleByTree float64 `json:"colsample_bytree"`
	Gamma           float64 `json:"gamma"`
	Lambda          float64 `json:"lambda"`
	Seed            int64   `json:"seed"`
}

func (p XGBParams) String() string {
	return fmt.Sprintf("n_estimators=%d learning_rate=%g max_depth=%d min_child_weight=%g subsample=%g colsample_bytree=%g gamma=%g",
		p.NEstimators, p.LearningRate, p.MaxDepth, p.MinChildWeight, p.Subsample, p.ColsampleByTree, p.Gamma)
}

// XGBoost is a boosted ensemble whose trees are grown on gradient/hessian
// statistics with L2 leaf regularization (Lambda), a minimum split gain
// (Gamma), a hessian floor per child and per-tree column sampling.
type XGBoost struct {
	Params    XGBParams `json:"params"`
	BaseScore float64   `json:"base_score"`
	Trees     []Tree    `json:"trees"`
}

// NewXGBoost returns an unfitted booster.
func NewXGBoost(p XGBParams) *XGBoost { return &XGBoost{Params: p} }

// Kind implements Regressor.
func (b *XGBoost) Kind() string { return kindXGBoost }

// Fit implements Regressor.
func (b *XGBoost) Fit(X [][]float64, y []float64) error {
	if err := checkXY(X, y); err != nil {
		return err
	}
	p := b.Params
	if p.NEstimators <= 0 || p.LearningRate <= 0 || p.MaxDepth <= 0 {
		return fmt.Errorf("xgboost: invalid params %s", p)
	}
	if p.Subsample <= 0 || p.Subsample > 1 || p.ColsampleByTree <= 0 || p.ColsampleByTree > 1 {
		return fmt.Errorf("xgboost: sampling ratios out of (0,1]: %s", p)
	}
	tp := treeParams{
		maxDepth:       p.MaxDepth,
		minSplit:       2,
		minLeaf:        1,
		lambda:         p.Lambda,
		gamma:          p.Gamma,
		minChildWeight: p.MinChildWeight,
	}
	rng := rand.New(rand.NewSource(p.Seed))
	nFeatures := len(X[0])
	b.BaseScore = sum(y) / float64(len(y))
	b.Trees = make([]Tree, 0, p.NEstimators)

	pred := make([]float64, len(y))
	for i := range pred {
		pred[i] = b.BaseScore
	}
	resid := make([]float64, len(y))
	for m := 0; m < p.NEstimators; m++ {
		for i := range resid {
			resid[i] = y[i] - pred[i]
		}
		idx := subsampleRows(len(y), p.Subsample, rng)
		cols := sampleColumns(nFeatures, p.ColsampleByTree, rng)
		tree := fitTree(X, resid, idx, tp, cols, rng)
		b.Trees = append(b.Trees, tree)
		for i, row := range X {
			pred[i] += p.LearningRate * tree.Predict(row)
		}
	}
	return nil
}

// Predict implements Regressor.
func (b *XGBoost) Predict(x []float64) float64 {
	out := b.BaseScore
	for i := range b.Trees {
		out += b.Params.LearningRate * b.Trees[i].Predict(x)
	}
	return out
}

func subsampleRows(n int, frac float64, rng *rand.Rand) []int {
	if frac >= 1 {
		idx := make([]int, n)
		for i := range idx {
			idx[i] = i
		}
		return idx
	}
	k := max(1, int(frac*float64(n)))
	return rng.Perm(n)[:k]
}

func sampleColumns(p int, frac float64, rng *rand.Rand) []int {
	if frac >= 1 {
		return nil
	}
	k := max(1, int(frac*float64(p)))
	return rng.Perm(p)[:k]
}
