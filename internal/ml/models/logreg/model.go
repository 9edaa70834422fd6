package logreg

import (
	"encoding/json"
	"errors"
	"math"
	"strconv"
)

type Options struct {
	LearningRate float64
	Epochs       int
	L2           float64
}

func DefaultOptions() Options {
	return Options{
		LearningRate: 0.05,
		Epochs:       600,
		L2:           0.0001,
	}
}

type Artifact struct {
	FeatureNames []string  `json:"feature_names"`
	Weights      []float64 `json:"weights"`
	Bias         float64   `json:"bias"`
	Means        []float64 `json:"means"`
	Stds         []float64 `json:"stds"`
	L2           float64   `json:"l2"`
	LearningRate float64   `json:"learning_rate"`
	Epochs       int       `json:"epochs"`
}

// Model is an L2-regularized logistic regression trained by full-batch
// gradient descent over standardized features.
type Model struct {
	opts         Options
	featureNames []string
	artifact     Artifact
	fitted       bool
}

func New(opts Options, featureNames []string) *Model {
	if opts.LearningRate <= 0 {
		opts.LearningRate = DefaultOptions().LearningRate
	}
	if opts.Epochs <= 0 {
		opts.Epochs = DefaultOptions().Epochs
	}
	if opts.L2 < 0 {
		opts.L2 = DefaultOptions().L2
	}
	return &Model{opts: opts, featureNames: append([]string(nil), featureNames...)}
}

func (m *Model) Fit(samples [][]float64, labels []float64) error {
	if len(samples) == 0 || len(samples) != len(labels) {
		return errors.New("invalid training dataset")
	}
	if len(samples[0]) == 0 {
		return errors.New("empty feature vectors")
	}

	featCount := len(samples[0])
	means := make([]float64, featCount)
	stds := make([]float64, featCount)
	for j := 0; j < featCount; j++ {
		for i := range samples {
			means[j] += samples[i][j]
		}
		means[j] /= float64(len(samples))
		for i := range samples {
			d := samples[i][j] - means[j]
			stds[j] += d * d
		}
		stds[j] = math.Sqrt(stds[j] / float64(len(samples)))
		if stds[j] == 0 {
			stds[j] = 1
		}
	}

	weights := make([]float64, featCount)
	bias := 0.0

	for epoch := 0; epoch < m.opts.Epochs; epoch++ {
		grads := make([]float64, featCount)
		gradBias := 0.0
		n := float64(len(samples))
		for i := range samples {
			x := normalize(samples[i], means, stds)
			p := sigmoid(dot(weights, x) + bias)
			err := p - labels[i]
			for j := range grads {
				grads[j] += err * x[j]
			}
			gradBias += err
		}
		for j := range weights {
			grads[j] = grads[j]/n + m.opts.L2*weights[j]
			weights[j] -= m.opts.LearningRate * grads[j]
		}
		bias -= m.opts.LearningRate * (gradBias / n)
	}

	names := m.featureNames
	if len(names) != featCount {
		names = defaultFeatureNames(featCount)
	}
	m.artifact = Artifact{
		FeatureNames: names,
		Weights:      weights,
		Bias:         bias,
		Means:        means,
		Stds:         stds,
		L2:           m.opts.L2,
		LearningRate: m.opts.LearningRate,
		Epochs:       m.opts.Epochs,
	}
	m.fitted = true
	return nil
}

// Predict returns the probability of the positive class.
func (m *Model) Predict(sample []float64) float64 {
	if m == nil || !m.fitted || len(sample) != len(m.artifact.Weights) {
		return 0.5
	}
	x := normalize(sample, m.artifact.Means, m.artifact.Stds)
	return sigmoid(dot(m.artifact.Weights, x) + m.artifact.Bias)
}

func (m *Model) MarshalBinary() ([]byte, error) {
	if m == nil || !m.fitted {
		return nil, errors.New("model not fitted")
	}
	return json.Marshal(m.artifact)
}

func UnmarshalBinary(data []byte) (*Model, error) {
	if len(data) == 0 {
		return nil, errors.New("empty artifact")
	}
	var a Artifact
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, err
	}
	if len(a.Weights) == 0 || len(a.Weights) != len(a.Means) || len(a.Weights) != len(a.Stds) {
		return nil, errors.New("invalid artifact")
	}
	return &Model{artifact: a, fitted: true}, nil
}

func (m *Model) FeatureNames() []string {
	if m == nil {
		return nil
	}
	out := make([]string, len(m.artifact.FeatureNames))
	copy(out, m.artifact.FeatureNames)
	return out
}

func sigmoid(x float64) float64 {
	if x > 35 {
		return 1
	}
	if x < -35 {
		return 0
	}
	return 1 / (1 + math.Exp(-x))
}

func dot(a, b []float64) float64 {
	if len(a) != len(b) {
		return 0
	}
	s := 0.0
	for i := range a {
		s += a[i] * b[i]
	}
	return s
}

func normalize(in, means, stds []float64) []float64 {
	out := make([]float64, len(in))
	for i := range in {
		out[i] = (in[i] - means[i]) / stds[i]
	}
	return out
}

func defaultFeatureNames(n int) []string {
	out := make([]string, n)
	for i := 0; i < n; i++ {
		out[i] = "f" + strconv.Itoa(i)
	}
	return out
}
