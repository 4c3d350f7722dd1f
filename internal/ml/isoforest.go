package ml

import (
	"fmt"
	"math"
	"math/rand"
)

const eulerGamma = 0.5772156649015329

// IsolationParams configures an isolation forest. MaxSamples 0 means
// min(256, n); values in (0,1] are a fraction of the training rows.
type IsolationParams struct {
	NEstimators   int     `json:"n_estimators"`
	MaxSamples    float64 `json:"max_samples"`
	Contamination float64 `json:"contamination"`
	MaxFeatures   float64 `json:"max_features"`
	Bootstrap     bool    `json:"bootstrap"`
	Seed          int64   `json:"seed"`
}

func (p IsolationParams) String() string {
	samples := "auto"
	if p.MaxSamples > 0 {
		samples = fmt.Sprintf("%g", p.MaxSamples)
	}
	return fmt.Sprintf("n_estimators=%d max_samples=%s contamination=%g max_features=%g bootstrap=%t",
		p.NEstimators, samples, p.Contamination, p.MaxFeatures, p.Bootstrap)
}

// DefaultIsolationParams are used when tuning is off.
func DefaultIsolationParams() IsolationParams {
	return IsolationParams{
		NEstimators:   100,
		Contamination: 0.05,
		MaxFeatures:   1.0,
		Seed:          42,
	}
}

// IsoNode is one node of an isolation tree; Left == 0 marks a leaf holding
// Size training points.
type IsoNode struct {
	Feature   int     `json:"f,omitempty"`
	Threshold float64 `json:"t,omitempty"`
	Left      int     `json:"l,omitempty"`
	Right     int     `json:"r,omitempty"`
	Size      int     `json:"n,omitempty"`
}

// IsolationTree isolates points with random axis-aligned cuts.
type IsolationTree struct {
	Nodes []IsoNode `json:"nodes"`
}

// IsolationForest scores points by their average isolation depth; points
// isolated after few random cuts are anomalous.
type IsolationForest struct {
	Params     IsolationParams `json:"params"`
	Trees      []IsolationTree `json:"trees"`
	SampleSize int             `json:"sample_size"`
	Offset     float64         `json:"offset"`
}

// NewIsolationForest returns an unfitted forest.
func NewIsolationForest(p IsolationParams) *IsolationForest {
	return &IsolationForest{Params: p}
}

// Fit grows the trees and calibrates the decision offset so that roughly a
// Contamination share of X has a negative decision value.
func (f *IsolationForest) Fit(X [][]float64) error {
	n := len(X)
	if n == 0 || len(X[0]) == 0 {
		return fmt.Errorf("isolation forest: no data")
	}
	p := f.Params
	if p.NEstimators <= 0 {
		return fmt.Errorf("isolation forest: n_estimators %d must be positive", p.NEstimators)
	}
	if p.Contamination <= 0 || p.Contamination > 0.5 {
		return fmt.Errorf("isolation forest: contamination %g out of (0, 0.5]", p.Contamination)
	}
	if p.MaxSamples < 0 || p.MaxSamples > 1 || p.MaxFeatures <= 0 || p.MaxFeatures > 1 {
		return fmt.Errorf("isolation forest: invalid sampling %s", p)
	}

	switch {
	case p.MaxSamples == 0:
		f.SampleSize = min(256, n)
	default:
		f.SampleSize = int(p.MaxSamples * float64(n))
	}
	if f.SampleSize < 1 {
		return fmt.Errorf("isolation forest: max_samples %g leaves no rows of %d", p.MaxSamples, n)
	}
	heightLimit := int(math.Ceil(math.Log2(math.Max(float64(f.SampleSize), 2))))
	nFeatures := max(1, int(p.MaxFeatures*float64(len(X[0]))))

	rng := rand.New(rand.NewSource(p.Seed))
	f.Trees = make([]IsolationTree, p.NEstimators)
	for t := range f.Trees {
		features := rng.Perm(len(X[0]))[:nFeatures]
		var idx []int
		if p.Bootstrap {
			idx = make([]int, f.SampleSize)
			for i := range idx {
				idx[i] = rng.Intn(n)
			}
		} else {
			idx = rng.Perm(n)[:f.SampleSize]
		}
		b := isoBuilder{X: X, features: features, limit: heightLimit, rng: rng}
		b.grow(idx, 0)
		f.Trees[t] = IsolationTree{Nodes: b.nodes}
	}

	scores := make([]float64, n)
	for i, row := range X {
		scores[i] = f.ScoreSample(row)
	}
	f.Offset = Percentile(scores, 100*p.Contamination)
	return nil
}

// ScoreSample returns the negated anomaly score in [-1, 0): lower means
// more anomalous.
func (f *IsolationForest) ScoreSample(x []float64) float64 {
	if len(f.Trees) == 0 {
		return 0
	}
	var depth float64
	for i := range f.Trees {
		depth += f.Trees[i].pathLength(x)
	}
	mean := depth / float64(len(f.Trees))
	return -math.Pow(2, -mean/averagePathLength(f.SampleSize))
}

// Decision is ScoreSample shifted by the fitted offset; negative values
// are predicted anomalies.
func (f *IsolationForest) Decision(x []float64) float64 {
	return f.ScoreSample(x) - f.Offset
}

// DecisionAll applies Decision to every row.
func (f *IsolationForest) DecisionAll(X [][]float64) []float64 {
	out := make([]float64, len(X))
	for i, row := range X {
		out[i] = f.Decision(row)
	}
	return out
}

func (t *IsolationTree) pathLength(x []float64) float64 {
	i, depth := 0, 0
	for {
		n := t.Nodes[i]
		if n.Left == 0 {
			return float64(depth) + averagePathLength(n.Size)
		}
		if x[n.Feature] <= n.Threshold {
			i = n.Left
		} else {
			i = n.Right
		}
		depth++
	}
}

// averagePathLength is the expected path length of an unsuccessful search
// in a binary search tree of n points.
func averagePathLength(n int) float64 {
	switch {
	case n <= 1:
		return 0
	case n == 2:
		return 1
	}
	fn := float64(n)
	return 2*(math.Log(fn-1)+eulerGamma) - 2*(fn-1)/fn
}

type isoBuilder struct {
	X        [][]float64
	features []int
	limit    int
	rng      *rand.Rand
	nodes    []IsoNode
}

func (b *isoBuilder) grow(idx []int, depth int) int {
	id := len(b.nodes)
	b.nodes = append(b.nodes, IsoNode{Size: len(idx)})
	if depth >= b.limit || len(idx) <= 1 {
		return id
	}

	for _, k := range b.rng.Perm(len(b.features)) {
		f := b.features[k]
		lo, hi := b.X[idx[0]][f], b.X[idx[0]][f]
		for _, i := range idx[1:] {
			v := b.X[i][f]
			lo = math.Min(lo, v)
			hi = math.Max(hi, v)
		}
		if hi <= lo {
			continue
		}
		threshold := lo + b.rng.Float64()*(hi-lo)
		var left, right []int
		for _, i := range idx {
			if b.X[i][f] <= threshold {
				left = append(left, i)
			} else {
				right = append(right, i)
			}
		}
		l := b.grow(left, depth+1)
		r := b.grow(right, depth+1)
		b.nodes[id] = IsoNode{Feature: f, Threshold: threshold, Left: l, Right: r}
		return id
	}
	return id
}
