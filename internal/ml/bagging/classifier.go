package bagging

import (
	"errors"
	"time"

	"sequoia/internal/domain"
	"sequoia/internal/ml/metrics"
	"sequoia/internal/sampling"
)

// Classifier is a bagging ensemble whose bootstrap draws follow the event
// overlap structure instead of treating observations as independent.
type Classifier struct {
	*ensemble
	oob    float64
	hasOOB bool
}

func NewClassifier(factory Factory, sampler Sampler, events []domain.TripleBarrierEvent, barTimes []time.Time, cfg Config) (*Classifier, error) {
	e, err := newEnsemble(factory, sampler, events, barTimes, cfg)
	if err != nil {
		return nil, err
	}
	return &Classifier{ensemble: e}, nil
}

// Fit trains the ensemble on rows indexed by their event timestamps. Every
// timestamp must correspond to an event column of the indicator matrix.
func (c *Classifier) Fit(X [][]float64, y []float64, times []time.Time) error {
	oobSum, oobCount, err := c.fit(X, y, times)
	if err != nil {
		return err
	}
	if c.cfg.OOBScore {
		var labels, preds []float64
		for i := range oobCount {
			if oobCount[i] == 0 {
				continue
			}
			labels = append(labels, y[i])
			if oobSum[i]/oobCount[i] >= 0.5 {
				preds = append(preds, 1)
			} else {
				preds = append(preds, 0)
			}
		}
		if len(labels) == 0 {
			return errors.New("no out-of-bag rows; too few estimators")
		}
		c.oob = metrics.Accuracy(labels, preds)
		c.hasOOB = true
	}
	return nil
}

// PredictProb returns the ensemble positive-class probability.
func (c *Classifier) PredictProb(x []float64) float64 {
	return c.predictMean(x)
}

// Predict returns the class at a 0.5 probability cut.
func (c *Classifier) Predict(x []float64) float64 {
	if c.PredictProb(x) >= 0.5 {
		return 1
	}
	return 0
}

func (c *Classifier) PredictProbBatch(X [][]float64) []float64 {
	out := make([]float64, len(X))
	for i, x := range X {
		out[i] = c.PredictProb(x)
	}
	return out
}

func (c *Classifier) PredictBatch(X [][]float64) []float64 {
	out := make([]float64, len(X))
	for i, x := range X {
		out[i] = c.Predict(x)
	}
	return out
}

// OOBScore is the out-of-bag accuracy; ok is false unless Fit ran with
// OOB scoring enabled.
func (c *Classifier) OOBScore() (float64, bool) {
	return c.oob, c.hasOOB
}

// IndicatorMatrix exposes the bar/event overlap structure the sampler draws
// from.
func (c *Classifier) IndicatorMatrix() *sampling.IndicatorMatrix {
	return c.indMat
}

// TimestampIndex maps an event timestamp to its indicator-matrix column.
func (c *Classifier) TimestampIndex(t time.Time) (int, bool) {
	return c.indMat.ColumnIndex(t)
}

// XTimeIndex returns the event timestamps of the fitted training rows.
func (c *Classifier) XTimeIndex() []time.Time {
	return append([]time.Time(nil), c.xTimes...)
}
