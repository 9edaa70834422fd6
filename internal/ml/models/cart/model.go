package cart

import (
	"encoding/json"
	"errors"
	"math"
	"sort"
)

type Options struct {
	MaxDepth    int
	MinLeafSize int
}

func DefaultOptions() Options {
	return Options{
		MaxDepth:    6,
		MinLeafSize: 3,
	}
}

// node is one split (or leaf) in array form so the tree serializes flat.
type node struct {
	Feature   int     `json:"feature"`
	Threshold float64 `json:"threshold"`
	Left      int     `json:"left"`
	Right     int     `json:"right"`
	Value     float64 `json:"value"`
	Leaf      bool    `json:"leaf"`
}

type Artifact struct {
	Nodes       []node `json:"nodes"`
	MaxDepth    int    `json:"max_depth"`
	MinLeafSize int    `json:"min_leaf_size"`
}

// Model is a variance-reduction regression tree. It is the regression
// counterpart to the boosted classifier base estimator.
type Model struct {
	opts   Options
	nodes  []node
	fitted bool
}

func New(opts Options) *Model {
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = DefaultOptions().MaxDepth
	}
	if opts.MinLeafSize <= 0 {
		opts.MinLeafSize = DefaultOptions().MinLeafSize
	}
	return &Model{opts: opts}
}

func (m *Model) Fit(samples [][]float64, labels []float64) error {
	if len(samples) == 0 || len(samples) != len(labels) {
		return errors.New("invalid training dataset")
	}
	if len(samples[0]) == 0 {
		return errors.New("empty feature vectors")
	}
	idx := make([]int, len(samples))
	for i := range idx {
		idx[i] = i
	}
	m.nodes = m.nodes[:0]
	m.grow(samples, labels, idx, 0)
	m.fitted = true
	return nil
}

// grow appends the subtree for idx and returns its root position.
func (m *Model) grow(samples [][]float64, labels []float64, idx []int, depth int) int {
	pos := len(m.nodes)
	m.nodes = append(m.nodes, node{Leaf: true, Value: meanOf(labels, idx)})

	if depth >= m.opts.MaxDepth || len(idx) < 2*m.opts.MinLeafSize {
		return pos
	}
	feature, threshold, ok := m.bestSplit(samples, labels, idx)
	if !ok {
		return pos
	}

	var left, right []int
	for _, i := range idx {
		if samples[i][feature] <= threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	if len(left) < m.opts.MinLeafSize || len(right) < m.opts.MinLeafSize {
		return pos
	}

	l := m.grow(samples, labels, left, depth+1)
	r := m.grow(samples, labels, right, depth+1)
	m.nodes[pos] = node{
		Feature:   feature,
		Threshold: threshold,
		Left:      l,
		Right:     r,
	}
	return pos
}

func (m *Model) bestSplit(samples [][]float64, labels []float64, idx []int) (int, float64, bool) {
	bestFeature, bestThreshold := -1, 0.0
	bestScore := math.Inf(1)

	featCount := len(samples[0])
	order := make([]int, len(idx))
	for f := 0; f < featCount; f++ {
		copy(order, idx)
		sort.Slice(order, func(a, b int) bool { return samples[order[a]][f] < samples[order[b]][f] })

		// prefix sums over the sorted order for O(1) variance of each cut
		var sumL, sumSqL float64
		var sumR, sumSqR float64
		for _, i := range order {
			sumR += labels[i]
			sumSqR += labels[i] * labels[i]
		}
		for k := 0; k < len(order)-1; k++ {
			y := labels[order[k]]
			sumL += y
			sumSqL += y * y
			sumR -= y
			sumSqR -= y * y

			if samples[order[k]][f] == samples[order[k+1]][f] {
				continue
			}
			nL, nR := float64(k+1), float64(len(order)-k-1)
			if int(nL) < m.opts.MinLeafSize || int(nR) < m.opts.MinLeafSize {
				continue
			}
			score := (sumSqL - sumL*sumL/nL) + (sumSqR - sumR*sumR/nR)
			if score < bestScore {
				bestScore = score
				bestFeature = f
				bestThreshold = (samples[order[k]][f] + samples[order[k+1]][f]) / 2
			}
		}
	}
	if bestFeature < 0 {
		return 0, 0, false
	}
	return bestFeature, bestThreshold, true
}

func (m *Model) Predict(sample []float64) float64 {
	if m == nil || !m.fitted || len(m.nodes) == 0 {
		return 0
	}
	pos := 0
	for {
		n := m.nodes[pos]
		if n.Leaf {
			return n.Value
		}
		if sample[n.Feature] <= n.Threshold {
			pos = n.Left
		} else {
			pos = n.Right
		}
	}
}

func (m *Model) MarshalBinary() ([]byte, error) {
	if m == nil || !m.fitted {
		return nil, errors.New("model not fitted")
	}
	return json.Marshal(Artifact{Nodes: m.nodes, MaxDepth: m.opts.MaxDepth, MinLeafSize: m.opts.MinLeafSize})
}

func UnmarshalBinary(data []byte) (*Model, error) {
	if len(data) == 0 {
		return nil, errors.New("empty artifact")
	}
	var a Artifact
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, err
	}
	if len(a.Nodes) == 0 {
		return nil, errors.New("invalid artifact")
	}
	return &Model{
		opts:   Options{MaxDepth: a.MaxDepth, MinLeafSize: a.MinLeafSize},
		nodes:  a.Nodes,
		fitted: true,
	}, nil
}

func meanOf(labels []float64, idx []int) float64 {
	if len(idx) == 0 {
		return 0
	}
	var sum float64
	for _, i := range idx {
		sum += labels[i]
	}
	return sum / float64(len(idx))
}
