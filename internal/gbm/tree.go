// ABOUTME: Second-order regression tree used as the weak learner of the ensemble.
// ABOUTME: Exact greedy split search over gradient/hessian statistics.
package gbm

import (
	"math"
	"sort"
)

// Node is one node of a flattened tree. Leaves carry Value; inner nodes route
// rows with x[Feature] < Threshold to Left and everything else to Right.
type Node struct {
	Feature   int     `json:"feature,omitempty"`
	Threshold float64 `json:"threshold,omitempty"`
	Left      int     `json:"left,omitempty"`
	Right     int     `json:"right,omitempty"`
	Leaf      bool    `json:"leaf,omitempty"`
	Value     float64 `json:"value,omitempty"`
}

// Tree is a regression tree stored as a node slice rooted at index 0.
type Tree struct {
	Nodes []Node `json:"nodes"`
}

// Predict walks the tree for a single row.
func (t *Tree) Predict(x []float64) float64 {
	i := 0
	for {
		n := t.Nodes[i]
		if n.Leaf {
			return n.Value
		}
		if x[n.Feature] < n.Threshold {
			i = n.Left
		} else {
			i = n.Right
		}
	}
}

type treeBuilder struct {
	x      [][]float64
	grad   []float64
	hess   []float64
	params Params
	nodes  []Node
}

type split struct {
	feature   int
	threshold float64
	gain      float64
	left      []int
	right     []int
}

func buildTree(x [][]float64, grad, hess []float64, rows []int, p Params) Tree {
	b := &treeBuilder{x: x, grad: grad, hess: hess, params: p}
	b.grow(rows, 0)
	return Tree{Nodes: b.nodes}
}

// grow appends the subtree for rows and returns its root index.
func (b *treeBuilder) grow(rows []int, depth int) int {
	idx := len(b.nodes)
	b.nodes = append(b.nodes, Node{})

	g, h := b.sums(rows)
	if depth < b.params.MaxDepth && len(rows) > 1 {
		if s, ok := b.bestSplit(rows, g, h); ok {
			left := b.grow(s.left, depth+1)
			right := b.grow(s.right, depth+1)
			b.nodes[idx] = Node{Feature: s.feature, Threshold: s.threshold, Left: left, Right: right}
			return idx
		}
	}

	b.nodes[idx] = Node{Leaf: true, Value: -g / (h + b.params.L2()) * b.params.LearningRate}
	return idx
}

func (b *treeBuilder) sums(rows []int) (g, h float64) {
	for _, r := range rows {
		g += b.grad[r]
		h += b.hess[r]
	}
	return g, h
}

func (b *treeBuilder) score(g, h float64) float64 {
	return g * g / (h + b.params.L2())
}

func (b *treeBuilder) bestSplit(rows []int, g, h float64) (split, bool) {
	best := split{gain: 0}
	found := false
	parent := b.score(g, h)
	sorted := make([]int, len(rows))

	for f := range b.x[rows[0]] {
		copy(sorted, rows)
		sort.SliceStable(sorted, func(i, j int) bool {
			return b.x[sorted[i]][f] < b.x[sorted[j]][f]
		})

		var gl, hl float64
		for i := 0; i < len(sorted)-1; i++ {
			r := sorted[i]
			gl += b.grad[r]
			hl += b.hess[r]

			cur, next := b.x[r][f], b.x[sorted[i+1]][f]
			if cur == next {
				continue
			}
			gr, hr := g-gl, h-hl
			if hl < b.params.MinChildWeight || hr < b.params.MinChildWeight {
				continue
			}

			gain := 0.5*(b.score(gl, hl)+b.score(gr, hr)-parent) - b.params.Gamma
			if gain > best.gain {
				best = split{feature: f, threshold: cur + (next-cur)/2, gain: gain}
				found = true
			}
		}
	}

	if !found {
		return split{}, false
	}

	for _, r := range rows {
		v := b.x[r][best.feature]
		if v < best.threshold {
			best.left = append(best.left, r)
		} else {
			best.right = append(best.right, r)
		}
	}
	if len(best.left) == 0 || len(best.right) == 0 || math.IsNaN(best.threshold) {
		return split{}, false
	}
	return best, true
}
