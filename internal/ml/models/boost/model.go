package boost

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"math"

	"github.com/rmera/boo"
	"github.com/rmera/boo/utils"
)

type Options struct {
	Rounds       int
	LearningRate float64
	MaxDepth     int
}

func DefaultOptions() Options {
	return Options{
		Rounds:       20,
		LearningRate: 0.1,
		MaxDepth:     4,
	}
}

type artifact struct {
	FeatureNames []string `json:"feature_names"`
	ModelText    string   `json:"model_text"`
	ConstProb    *float64 `json:"const_prob,omitempty"`
}

// Model is a gradient-boosted tree classifier over rmera/boo, usable as a
// bagging base estimator. A single-class training sample degrades to a
// constant predictor instead of failing, since bootstrap draws can collapse
// to one class.
type Model struct {
	opts         Options
	featureNames []string
	boost        *boo.MultiClass
	constProb    *float64
}

func New(opts Options, featureNames []string) *Model {
	if opts.Rounds <= 0 {
		opts.Rounds = DefaultOptions().Rounds
	}
	if opts.LearningRate <= 0 {
		opts.LearningRate = DefaultOptions().LearningRate
	}
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = DefaultOptions().MaxDepth
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
	intLabels := make([]int, len(labels))
	ones := 0
	for i, v := range labels {
		if v >= 0.5 {
			intLabels[i] = 1
			ones++
		}
	}
	if ones == 0 || ones == len(labels) {
		p := float64(ones) / float64(len(labels))
		m.constProb = &p
		m.boost = nil
		return nil
	}

	names := m.featureNames
	if len(names) != len(samples[0]) {
		names = make([]string, len(samples[0]))
		for i := range names {
			names[i] = "f"
		}
	}

	o := boo.DefaultXOptions()
	o.Rounds = m.opts.Rounds
	o.LearningRate = m.opts.LearningRate
	o.MaxDepth = m.opts.MaxDepth
	o.Verbose = false
	o.EarlyStop = 0

	data := &utils.DataBunch{
		Data:   samples,
		Labels: intLabels,
		Keys:   names,
	}
	model := boo.NewMultiClass(data, o)
	if model == nil {
		return errors.New("failed to train boosted model")
	}
	m.boost = model
	m.constProb = nil
	return nil
}

// Predict returns the probability of the positive class.
func (m *Model) Predict(sample []float64) float64 {
	if m == nil {
		return 0.5
	}
	if m.constProb != nil {
		return *m.constProb
	}
	if m.boost == nil {
		return 0.5
	}
	probs := m.boost.PredictSingle(sample)
	labels := m.boost.ClassLabels()
	for i := range labels {
		if labels[i] == 1 {
			return clamp01(probs[i])
		}
	}
	if len(probs) == 0 {
		return 0.5
	}
	return clamp01(probs[len(probs)-1])
}

func (m *Model) MarshalBinary() ([]byte, error) {
	if m == nil {
		return nil, errors.New("nil model")
	}
	a := artifact{FeatureNames: m.featureNames, ConstProb: m.constProb}
	if m.boost != nil {
		var buf bytes.Buffer
		if err := boo.JSONMultiClass(m.boost, "softmax", &buf); err != nil {
			return nil, err
		}
		a.ModelText = buf.String()
	}
	return json.Marshal(a)
}

func UnmarshalBinary(blob []byte) (*Model, error) {
	if len(blob) == 0 {
		return nil, errors.New("empty artifact")
	}
	var a artifact
	if err := json.Unmarshal(blob, &a); err != nil {
		return nil, err
	}
	m := &Model{featureNames: append([]string(nil), a.FeatureNames...), constProb: a.ConstProb}
	if a.ModelText != "" {
		reader := bufio.NewReader(bytes.NewReader([]byte(a.ModelText)))
		model, err := boo.UnJSONMultiClass(reader)
		if err != nil {
			return nil, err
		}
		m.boost = model
	}
	return m, nil
}

func (m *Model) FeatureNames() []string {
	if m == nil {
		return nil
	}
	out := make([]string, len(m.featureNames))
	copy(out, m.featureNames)
	return out
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) {
		return 0.5
	}
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
