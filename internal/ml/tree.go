package ml

import (
	"math/rand"
	"sort"
)

// Node is one entry in a flattened regression tree. A node with Left == 0
// is a leaf; the root lives at index 0 and is never a child.
type Node struct {
	Feature   int     `json:"f,omitempty"`
	Threshold float64 `json:"t,omitempty"`
	Left      int     `json:"l,omitempty"`
	Right     int     `json:"r,omitempty"`
	Value     float64 `json:"v"`
}

// Tree is a binary regression tree.
type Tree struct {
	Nodes []Node `json:"nodes"`
}

// Predict walks x down to a leaf.
func (t *Tree) Predict(x []float64) float64 {
	i := 0
	for {
		n := t.Nodes[i]
		if n.Left == 0 {
			return n.Value
		}
		if x[n.Feature] <= n.Threshold {
			i = n.Left
		} else {
			i = n.Right
		}
	}
}

// treeParams covers both variance-reduction trees (Lambda = Gamma = 0) and
// second-order boosted trees with squared loss, where the gradient is the
// negative residual and every hessian is 1.
type treeParams struct {
	maxDepth       int // 0 = unlimited
	minSplit       int
	minLeaf        int
	maxFeatures    int // features tried per split; 0 = all allowed
	lambda         float64
	gamma          float64
	minChildWeight float64
}

type treeBuilder struct {
	X        [][]float64
	target   []float64
	params   treeParams
	features []int // allowed features; nil = all
	rng      *rand.Rand
	nodes    []Node
}

func fitTree(X [][]float64, target []float64, idx []int, p treeParams, features []int, rng *rand.Rand) Tree {
	b := &treeBuilder{X: X, target: target, params: p, features: features, rng: rng}
	if b.features == nil {
		b.features = make([]int, len(X[0]))
		for j := range b.features {
			b.features[j] = j
		}
	}
	b.grow(idx, 0)
	return Tree{Nodes: b.nodes}
}

func (b *treeBuilder) grow(idx []int, depth int) int {
	var total float64
	for _, i := range idx {
		total += b.target[i]
	}
	n := len(idx)
	id := len(b.nodes)
	b.nodes = append(b.nodes, Node{Value: total / (float64(n) + b.params.lambda)})

	if n < b.params.minSplit || n < 2*b.params.minLeaf {
		return id
	}
	if b.params.maxDepth > 0 && depth >= b.params.maxDepth {
		return id
	}

	feature, threshold, ok := b.bestSplit(idx, total)
	if !ok {
		return id
	}

	left := make([]int, 0, n)
	right := make([]int, 0, n)
	for _, i := range idx {
		if b.X[i][feature] <= threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}

	l := b.grow(left, depth+1)
	r := b.grow(right, depth+1)
	b.nodes[id].Feature = feature
	b.nodes[id].Threshold = threshold
	b.nodes[id].Left = l
	b.nodes[id].Right = r
	return id
}

func (b *treeBuilder) candidateFeatures() []int {
	k := b.params.maxFeatures
	if k <= 0 || k >= len(b.features) {
		return b.features
	}
	perm := b.rng.Perm(len(b.features))
	out := make([]int, k)
	for i := 0; i < k; i++ {
		out[i] = b.features[perm[i]]
	}
	return out
}

func (b *treeBuilder) bestSplit(idx []int, total float64) (int, float64, bool) {
	n := len(idx)
	lambda := b.params.lambda
	minLeaf := max(b.params.minLeaf, 1)
	parent := total * total / (float64(n) + lambda)

	bestGain := 1e-12
	bestFeature, bestThreshold := -1, 0.0
	sorted := make([]int, n)

	for _, f := range b.candidateFeatures() {
		copy(sorted, idx)
		sort.SliceStable(sorted, func(a, c int) bool {
			return b.X[sorted[a]][f] < b.X[sorted[c]][f]
		})

		var leftSum float64
		for k := 0; k < n-1; k++ {
			leftSum += b.target[sorted[k]]
			nl, nr := k+1, n-k-1
			xk, xnext := b.X[sorted[k]][f], b.X[sorted[k+1]][f]
			if xk == xnext {
				continue
			}
			if nl < minLeaf || nr < minLeaf {
				continue
			}
			if float64(nl) < b.params.minChildWeight || float64(nr) < b.params.minChildWeight {
				continue
			}
			rightSum := total - leftSum
			gain := leftSum*leftSum/(float64(nl)+lambda) +
				rightSum*rightSum/(float64(nr)+lambda) - parent
			gain = 0.5*gain - b.params.gamma
			if gain > bestGain {
				bestGain = gain
				bestFeature = f
				bestThreshold = xk + (xnext-xk)/2
			}
		}
	}
	return bestFeature, bestThreshold, bestFeature >= 0
}
