package training

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"sequoia/internal/domain"
	"sequoia/internal/filters"
	"sequoia/internal/labeling"
	"sequoia/internal/ml/bagging"
	"sequoia/internal/ml/common"
	"sequoia/internal/ml/features"
	"sequoia/internal/ml/metrics"
	"sequoia/internal/ml/models/boost"

	"go.opentelemetry.io/otel/trace"
)

type BarStore interface {
	ListRange(ctx context.Context, symbol string, from, to time.Time) ([]domain.Bar, error)
}

type FeatureRowStore interface {
	UpsertRows(ctx context.Context, rows []domain.FeatureRow) error
}

type ModelRegistry interface {
	NextVersion(ctx context.Context, modelKey string) (int, error)
	InsertModelVersion(ctx context.Context, model domain.ModelVersion) (*domain.ModelVersion, error)
	GetActiveModel(ctx context.Context, modelKey string) (*domain.ModelVersion, error)
	ActivateModel(ctx context.Context, modelKey string, version int) error
}

type Config struct {
	Symbol          string
	TrainWindowDays int
	MinTrainSamples int

	FastWindow          int
	SlowWindow          int
	CusumThreshold      float64
	VolLookback         int
	VerticalBarrierDays int
	ProfitTake          float64
	StopLoss            float64
	MinRet              float64
	NumWorkers          int

	NumEstimators      int
	StandardEstimators int
	MaxFeatures        float64
	Seed               int64
}

func (c *Config) applyDefaults() {
	if c.Symbol == "" {
		c.Symbol = domain.DefaultSymbol
	}
	if c.TrainWindowDays <= 0 {
		c.TrainWindowDays = 365
	}
	if c.MinTrainSamples <= 0 {
		c.MinTrainSamples = 100
	}
	if c.FastWindow <= 0 {
		c.FastWindow = 20
	}
	if c.SlowWindow <= 0 {
		c.SlowWindow = 50
	}
	if c.CusumThreshold <= 0 {
		c.CusumThreshold = 0.001
	}
	if c.VolLookback <= 0 {
		c.VolLookback = 50
	}
	if c.VerticalBarrierDays <= 0 {
		c.VerticalBarrierDays = 2
	}
	if c.ProfitTake <= 0 {
		c.ProfitTake = 4
	}
	if c.StopLoss <= 0 {
		c.StopLoss = 4
	}
	if c.MinRet <= 0 {
		c.MinRet = 0.005
	}
	if c.NumWorkers <= 0 {
		c.NumWorkers = 3
	}
	if c.NumEstimators <= 0 {
		c.NumEstimators = 100
	}
	if c.StandardEstimators <= 0 {
		c.StandardEstimators = 50
	}
	if c.MaxFeatures <= 0 || c.MaxFeatures > 1 {
		c.MaxFeatures = 1
	}
}

type Service struct {
	tracer   trace.Tracer
	bars     BarStore
	features FeatureRowStore
	registry ModelRegistry
	engine   *features.Engine
	cfg      Config
}

func NewService(tracer trace.Tracer, bars BarStore, featureStore FeatureRowStore, registry ModelRegistry, cfg Config) *Service {
	cfg.applyDefaults()
	return &Service{
		tracer:   tracer,
		bars:     bars,
		features: featureStore,
		registry: registry,
		engine:   features.NewEngine(nil),
		cfg:      cfg,
	}
}

// Dataset is the labeled training set produced by the event pipeline.
type Dataset struct {
	BarTimes []time.Time
	Events   []domain.TripleBarrierEvent
	Rows     []domain.FeatureRow

	X     [][]float64
	Y     []float64
	Times []time.Time
}

type ModelTrainResult struct {
	ModelKey     string
	Version      int
	SampleCount  int
	TestCount    int
	OOBScore     float64
	AUC          float64
	Promoted     bool
	PromoteError error
}

// BuildDataset runs the event pipeline over raw bars: crossover sides, the
// cumulative-sum event filter, volatility targets, the triple-barrier search,
// meta labels, and finally the feature rows for the surviving events.
func (s *Service) BuildDataset(ctx context.Context, bars []domain.Bar) (*Dataset, error) {
	_, span := s.tracer.Start(ctx, "training.build-dataset")
	defer span.End()

	if len(bars) == 0 {
		return nil, errors.New("no bars to build a dataset from")
	}
	times := make([]time.Time, len(bars))
	closes := make([]float64, len(bars))
	for i, b := range bars {
		times[i] = b.Timestamp
		closes[i] = b.Close
	}
	series, err := labeling.NewSeries(times, closes)
	if err != nil {
		return nil, err
	}

	sides := features.CrossoverSides(closes, s.cfg.FastWindow, s.cfg.SlowWindow)
	target := labeling.DailyVol(series, s.cfg.VolLookback)
	eventTimes := filters.CUSUM(times, closes, s.cfg.CusumThreshold)
	vertical := labeling.VerticalBarriers(eventTimes, series, s.cfg.VerticalBarrierDays)

	events := labeling.Events(series, eventTimes, target, vertical, sides, labeling.EventsConfig{
		ProfitTake: s.cfg.ProfitTake,
		StopLoss:   s.cfg.StopLoss,
		MinRet:     s.cfg.MinRet,
		NumWorkers: s.cfg.NumWorkers,
	})
	labels := labeling.Bins(events, series, true)
	rows := s.engine.BuildRows(s.cfg.Symbol, bars, events, labels)

	ds := &Dataset{BarTimes: times, Events: events, Rows: rows}
	for i := range rows {
		label, ok := common.TargetLabel(rows[i])
		if !ok {
			continue
		}
		ds.X = append(ds.X, common.FeatureVector(rows[i]))
		ds.Y = append(ds.Y, label)
		ds.Times = append(ds.Times, rows[i].EventTime)
	}
	return ds, nil
}

// TrainAll builds the dataset, fits the sequentially bootstrapped ensemble
// and the plain bootstrap baseline on the same chronological split, and
// stores both in the registry.
func (s *Service) TrainAll(ctx context.Context, now time.Time) ([]ModelTrainResult, error) {
	_, span := s.tracer.Start(ctx, "training.train-all")
	defer span.End()

	from := now.UTC().AddDate(0, 0, -s.cfg.TrainWindowDays)
	bars, err := s.bars.ListRange(ctx, s.cfg.Symbol, from, now.UTC())
	if err != nil {
		return nil, err
	}
	ds, err := s.BuildDataset(ctx, bars)
	if err != nil {
		return nil, err
	}
	if err := s.features.UpsertRows(ctx, ds.Rows); err != nil {
		return nil, fmt.Errorf("persist feature rows: %w", err)
	}
	if len(ds.X) < s.cfg.MinTrainSamples {
		return nil, fmt.Errorf("not enough labeled samples: got %d need >= %d", len(ds.X), s.cfg.MinTrainSamples)
	}

	split := int(float64(len(ds.X)) * 0.7)
	if split < 1 || split >= len(ds.X) {
		return nil, errors.New("dataset split produced empty partitions")
	}
	trainX, trainY, trainTimes := ds.X[:split], ds.Y[:split], ds.Times[:split]
	testX, testY := ds.X[split:], ds.Y[split:]

	results := make([]ModelTrainResult, 0, 2)
	runs := []struct {
		key        string
		sampler    bagging.Sampler
		estimators int
	}{
		{common.ModelKeySequential, bagging.SeqSampler, s.cfg.NumEstimators},
		{common.ModelKeyStandard, bagging.UniformSampler, s.cfg.StandardEstimators},
	}
	for _, run := range runs {
		clf, err := bagging.NewClassifier(boostFactory, run.sampler, ds.Events, ds.BarTimes, bagging.Config{
			NumEstimators: run.estimators,
			MaxFeatures:   s.cfg.MaxFeatures,
			OOBScore:      true,
			NumWorkers:    s.cfg.NumWorkers,
			Seed:          s.cfg.Seed,
		})
		if err != nil {
			return nil, fmt.Errorf("build %s: %w", run.key, err)
		}
		if err := clf.Fit(trainX, trainY, trainTimes); err != nil {
			return nil, fmt.Errorf("fit %s: %w", run.key, err)
		}
		blob, err := clf.MarshalBinary()
		if err != nil {
			return nil, fmt.Errorf("marshal %s: %w", run.key, err)
		}

		testMetrics := metrics.Classification(testY, clf.PredictProbBatch(testX))
		oob, _ := clf.OOBScore()
		testMetrics["oob_score"] = oob

		result, err := s.persistAndMaybePromote(ctx, run.key, now.UTC(), from, blob, "json/bagging-boost-v1", map[string]any{
			"n_estimators": run.estimators,
			"max_features": s.cfg.MaxFeatures,
			"profit_take":  s.cfg.ProfitTake,
			"stop_loss":    s.cfg.StopLoss,
			"min_ret":      s.cfg.MinRet,
		}, testMetrics, len(ds.X), len(testY))
		if err != nil {
			return nil, err
		}
		results = append(results, result)
	}
	return results, nil
}

func boostFactory() bagging.Estimator {
	return boost.New(boost.Options{}, common.FeatureNames)
}

func (s *Service) persistAndMaybePromote(
	ctx context.Context,
	modelKey string,
	now time.Time,
	trainedFrom time.Time,
	artifact []byte,
	artifactFormat string,
	hyperparams map[string]any,
	testMetrics map[string]float64,
	sampleCount int,
	testCount int,
) (ModelTrainResult, error) {
	version, err := s.registry.NextVersion(ctx, modelKey)
	if err != nil {
		return ModelTrainResult{}, err
	}
	hyperJSON, _ := json.Marshal(hyperparams)
	metricJSON, _ := json.Marshal(testMetrics)

	inserted, err := s.registry.InsertModelVersion(ctx, domain.ModelVersion{
		ModelKey:        modelKey,
		Version:         version,
		FeatureVersion:  features.FeatureSpecVersion(),
		TrainedFrom:     trainedFrom,
		TrainedTo:       now,
		HyperparamsJSON: string(hyperJSON),
		MetricsJSON:     string(metricJSON),
		ArtifactFormat:  artifactFormat,
		ArtifactBlob:    artifact,
		IsActive:        false,
	})
	if err != nil {
		return ModelTrainResult{}, err
	}

	result := ModelTrainResult{
		ModelKey:    modelKey,
		Version:     inserted.Version,
		SampleCount: sampleCount,
		TestCount:   testCount,
		OOBScore:    testMetrics["oob_score"],
		AUC:         testMetrics["auc"],
	}

	promote, promoteErr := s.shouldPromote(ctx, modelKey, testMetrics["auc"], testCount, inserted.Version)
	if promoteErr != nil {
		result.PromoteError = promoteErr
		return result, nil
	}
	if promote {
		if err := s.registry.ActivateModel(ctx, modelKey, inserted.Version); err != nil {
			result.PromoteError = err
			return result, nil
		}
		result.Promoted = true
	}
	return result, nil
}

func (s *Service) shouldPromote(ctx context.Context, modelKey string, newAUC float64, testCount int, newVersion int) (bool, error) {
	active, err := s.registry.GetActiveModel(ctx, modelKey)
	if err != nil {
		return false, err
	}
	if active == nil {
		return true, nil
	}
	if active.Version == newVersion {
		return active.IsActive, nil
	}
	if testCount < 30 {
		return false, nil
	}
	activeAUC, ok := metricValue(active.MetricsJSON, "auc")
	if !ok {
		return true, nil
	}
	return newAUC >= activeAUC+0.01, nil
}

func metricValue(metricsJSON, key string) (float64, bool) {
	var m map[string]float64
	if err := json.Unmarshal([]byte(metricsJSON), &m); err != nil {
		return 0, false
	}
	v, ok := m[key]
	return v, ok
}
