package bagging

import (
	"encoding"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

type memberArtifact struct {
	Features []int  `json:"features"`
	Blob     []byte `json:"blob"`
}

type artifact struct {
	Config   Config           `json:"config"`
	Members  []memberArtifact `json:"members"`
	OOBScore *float64         `json:"oob_score,omitempty"`
	XTimes   []time.Time      `json:"x_time_index,omitempty"`
}

// EstimatorDecoder restores a base estimator from its serialized form.
type EstimatorDecoder func(data []byte) (Estimator, error)

func (e *ensemble) marshal(oob float64, hasOOB bool) ([]byte, error) {
	if len(e.members) == 0 {
		return nil, errors.New("ensemble not fitted")
	}
	a := artifact{Config: e.cfg, XTimes: e.xTimes}
	if hasOOB {
		a.OOBScore = &oob
	}
	for i, m := range e.members {
		bm, ok := m.est.(encoding.BinaryMarshaler)
		if !ok {
			return nil, fmt.Errorf("estimator %d is not serializable", i)
		}
		blob, err := bm.MarshalBinary()
		if err != nil {
			return nil, fmt.Errorf("estimator %d: %w", i, err)
		}
		a.Members = append(a.Members, memberArtifact{Features: m.features, Blob: blob})
	}
	return json.Marshal(a)
}

func unmarshalEnsemble(data []byte, decode EstimatorDecoder) (*ensemble, *float64, error) {
	if len(data) == 0 {
		return nil, nil, errors.New("empty artifact")
	}
	if decode == nil {
		return nil, nil, errors.New("nil estimator decoder")
	}
	var a artifact
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, nil, err
	}
	if len(a.Members) == 0 {
		return nil, nil, errors.New("invalid artifact")
	}
	e := &ensemble{cfg: a.Config, xTimes: a.XTimes}
	for i, m := range a.Members {
		est, err := decode(m.Blob)
		if err != nil {
			return nil, nil, fmt.Errorf("estimator %d: %w", i, err)
		}
		e.members = append(e.members, member{est: est, features: m.Features})
	}
	return e, a.OOBScore, nil
}

func (c *Classifier) MarshalBinary() ([]byte, error) {
	return c.marshal(c.oob, c.hasOOB)
}

// UnmarshalClassifier restores a prediction-ready ensemble. The indicator
// matrix is not part of the artifact, so the result cannot be refitted.
func UnmarshalClassifier(data []byte, decode EstimatorDecoder) (*Classifier, error) {
	e, oob, err := unmarshalEnsemble(data, decode)
	if err != nil {
		return nil, err
	}
	c := &Classifier{ensemble: e}
	if oob != nil {
		c.oob, c.hasOOB = *oob, true
	}
	return c, nil
}

func (r *Regressor) MarshalBinary() ([]byte, error) {
	return r.marshal(r.oob, r.hasOOB)
}

func UnmarshalRegressor(data []byte, decode EstimatorDecoder) (*Regressor, error) {
	e, oob, err := unmarshalEnsemble(data, decode)
	if err != nil {
		return nil, err
	}
	r := &Regressor{ensemble: e}
	if oob != nil {
		r.oob, r.hasOOB = *oob, true
	}
	return r, nil
}
