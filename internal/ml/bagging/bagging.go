package bagging

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sort"
	"sync"
	"time"

	"sequoia/internal/domain"
	"sequoia/internal/sampling"
)

// Estimator is a bagging base learner. Predict returns the positive-class
// probability for classifiers and the predicted value for regressors.
type Estimator interface {
	Fit(samples [][]float64, labels []float64) error
	Predict(sample []float64) float64
}

// Factory builds a fresh base estimator for each ensemble member.
type Factory func() Estimator

// Sampler draws observation columns from an indicator matrix. SeqSampler is
// the overlap-aware scheme, UniformSampler the standard bagging baseline.
type Sampler func(m *sampling.IndicatorMatrix, sampleLength int, rng *rand.Rand) []int

func SeqSampler(m *sampling.IndicatorMatrix, sampleLength int, rng *rand.Rand) []int {
	return sampling.SeqBootstrap(m, sampleLength, rng)
}

func UniformSampler(m *sampling.IndicatorMatrix, sampleLength int, rng *rand.Rand) []int {
	return sampling.UniformBootstrap(m, sampleLength, rng)
}

// Config carries the ensemble hyperparameters.
type Config struct {
	NumEstimators int
	MaxFeatures   float64 // fraction of features per estimator, (0, 1]
	OOBScore      bool
	NumWorkers    int
	Seed          int64
}

func (c *Config) applyDefaults() {
	if c.NumEstimators <= 0 {
		c.NumEstimators = 100
	}
	if c.MaxFeatures <= 0 || c.MaxFeatures > 1 {
		c.MaxFeatures = 1
	}
	if c.NumWorkers <= 0 {
		c.NumWorkers = 1
	}
	if c.Seed == 0 {
		c.Seed = time.Now().UnixNano()
	}
}

type member struct {
	est      Estimator
	features []int
}

// ensemble is the sampling/fitting core shared by Classifier and Regressor.
type ensemble struct {
	cfg     Config
	factory Factory
	sampler Sampler

	indMat  *sampling.IndicatorMatrix
	xTimes  []time.Time
	members []member
}

func newEnsemble(factory Factory, sampler Sampler, events []domain.TripleBarrierEvent, barTimes []time.Time, cfg Config) (*ensemble, error) {
	if factory == nil {
		return nil, errors.New("nil base estimator factory")
	}
	if sampler == nil {
		sampler = SeqSampler
	}
	cfg.applyDefaults()
	indMat, err := sampling.NewIndicatorMatrix(barTimes, events)
	if err != nil {
		return nil, err
	}
	return &ensemble{cfg: cfg, factory: factory, sampler: sampler, indMat: indMat}, nil
}

// fit trains the members and returns the out-of-bag probability (or value)
// accumulators: per training row, the summed prediction and the number of
// estimators for which the row was out of bag.
func (e *ensemble) fit(X [][]float64, y []float64, times []time.Time) ([]float64, []float64, error) {
	if len(X) == 0 || len(X) != len(y) || len(X) != len(times) {
		return nil, nil, errors.New("invalid training dataset")
	}
	cols := make([]int, len(times))
	for i, t := range times {
		c, ok := e.indMat.ColumnIndex(t)
		if !ok {
			return nil, nil, fmt.Errorf("training timestamp %s has no event", t)
		}
		cols[i] = c
	}
	e.xTimes = append([]time.Time(nil), times...)
	sub := e.indMat.SubMatrix(cols)

	featCount := len(X[0])
	nFeat := int(math.Round(e.cfg.MaxFeatures * float64(featCount)))
	if nFeat < 1 {
		nFeat = 1
	}

	e.members = make([]member, e.cfg.NumEstimators)
	oobSum := make([]float64, len(X))
	oobCount := make([]float64, len(X))

	var mu sync.Mutex
	var wg sync.WaitGroup
	var firstErr error
	work := make(chan int)

	for w := 0; w < e.cfg.NumWorkers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for k := range work {
				rng := rand.New(rand.NewSource(e.cfg.Seed + int64(k)))
				sample := e.sampler(sub, len(X), rng)
				features := pickFeatures(rng, featCount, nFeat)

				trainX := make([][]float64, len(sample))
				trainY := make([]float64, len(sample))
				inBag := make([]bool, len(X))
				for i, row := range sample {
					trainX[i] = project(X[row], features)
					trainY[i] = y[row]
					inBag[row] = true
				}

				est := e.factory()
				if err := est.Fit(trainX, trainY); err != nil {
					mu.Lock()
					if firstErr == nil {
						firstErr = fmt.Errorf("estimator %d: %w", k, err)
					}
					mu.Unlock()
					continue
				}
				e.members[k] = member{est: est, features: features}

				if e.cfg.OOBScore {
					preds := make([]float64, 0, len(X))
					rows := make([]int, 0, len(X))
					for row := range X {
						if inBag[row] {
							continue
						}
						rows = append(rows, row)
						preds = append(preds, est.Predict(project(X[row], features)))
					}
					mu.Lock()
					for i, row := range rows {
						oobSum[row] += preds[i]
						oobCount[row]++
					}
					mu.Unlock()
				}
			}
		}()
	}
	for k := 0; k < e.cfg.NumEstimators; k++ {
		work <- k
	}
	close(work)
	wg.Wait()

	if firstErr != nil {
		return nil, nil, firstErr
	}
	return oobSum, oobCount, nil
}

// predictMean averages member predictions over their feature subsets.
func (e *ensemble) predictMean(x []float64) float64 {
	if len(e.members) == 0 {
		return 0
	}
	var sum float64
	n := 0
	for _, m := range e.members {
		if m.est == nil {
			continue
		}
		sum += m.est.Predict(project(x, m.features))
		n++
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

func pickFeatures(rng *rand.Rand, featCount, nFeat int) []int {
	if nFeat >= featCount {
		all := make([]int, featCount)
		for i := range all {
			all[i] = i
		}
		return all
	}
	perm := rng.Perm(featCount)[:nFeat]
	sort.Ints(perm)
	return perm
}

func project(x []float64, features []int) []float64 {
	if len(features) == len(x) {
		return x
	}
	out := make([]float64, len(features))
	for i, f := range features {
		out[i] = x[f]
	}
	return out
}
