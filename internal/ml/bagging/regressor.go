package bagging

import (
	"errors"
	"time"

	"sequoia/internal/domain"
	"sequoia/internal/ml/metrics"
	"sequoia/internal/sampling"
)

// Regressor is the regression counterpart of Classifier; its out-of-bag
// score is the R-squared of the averaged out-of-bag predictions.
type Regressor struct {
	*ensemble
	oob    float64
	hasOOB bool
}

func NewRegressor(factory Factory, sampler Sampler, events []domain.TripleBarrierEvent, barTimes []time.Time, cfg Config) (*Regressor, error) {
	e, err := newEnsemble(factory, sampler, events, barTimes, cfg)
	if err != nil {
		return nil, err
	}
	return &Regressor{ensemble: e}, nil
}

func (r *Regressor) Fit(X [][]float64, y []float64, times []time.Time) error {
	oobSum, oobCount, err := r.fit(X, y, times)
	if err != nil {
		return err
	}
	if r.cfg.OOBScore {
		var labels, preds []float64
		for i := range oobCount {
			if oobCount[i] == 0 {
				continue
			}
			labels = append(labels, y[i])
			preds = append(preds, oobSum[i]/oobCount[i])
		}
		if len(labels) == 0 {
			return errors.New("no out-of-bag rows; too few estimators")
		}
		r.oob = metrics.R2(labels, preds)
		r.hasOOB = true
	}
	return nil
}

// Predict returns the mean of the member predictions.
func (r *Regressor) Predict(x []float64) float64 {
	return r.predictMean(x)
}

func (r *Regressor) PredictBatch(X [][]float64) []float64 {
	out := make([]float64, len(X))
	for i, x := range X {
		out[i] = r.Predict(x)
	}
	return out
}

func (r *Regressor) OOBScore() (float64, bool) {
	return r.oob, r.hasOOB
}

func (r *Regressor) IndicatorMatrix() *sampling.IndicatorMatrix {
	return r.indMat
}

func (r *Regressor) TimestampIndex(t time.Time) (int, bool) {
	return r.indMat.ColumnIndex(t)
}

func (r *Regressor) XTimeIndex() []time.Time {
	return append([]time.Time(nil), r.xTimes...)
}
