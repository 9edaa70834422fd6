package inference

import (
	"context"
	"fmt"
	"time"

	"sequoia/internal/domain"
	"sequoia/internal/ml/bagging"
	"sequoia/internal/ml/common"
	"sequoia/internal/ml/models/boost"

	"go.opentelemetry.io/otel/trace"
)

type FeatureReader interface {
	ListUnlabeledRows(ctx context.Context, symbol string, limit int) ([]domain.FeatureRow, error)
}

type ModelRegistry interface {
	GetActiveModel(ctx context.Context, modelKey string) (*domain.ModelVersion, error)
}

type PredictionStore interface {
	UpsertPredictions(ctx context.Context, preds []domain.Prediction) error
}

type Config struct {
	Symbol    string
	BatchSize int
}

type Service struct {
	tracer      trace.Tracer
	features    FeatureReader
	registry    ModelRegistry
	predictions PredictionStore
	cfg         Config
}

type RunResult struct {
	Rows        int
	Predictions int
}

func NewService(tracer trace.Tracer, features FeatureReader, registry ModelRegistry, predictions PredictionStore, cfg Config) *Service {
	if cfg.Symbol == "" {
		cfg.Symbol = domain.DefaultSymbol
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	return &Service{
		tracer:      tracer,
		features:    features,
		registry:    registry,
		predictions: predictions,
		cfg:         cfg,
	}
}

// RunLatest scores the newest unresolved feature rows with every active
// ensemble and stores the probabilities. Rows are skipped silently when no
// model is active yet.
func (s *Service) RunLatest(ctx context.Context, now time.Time) (RunResult, error) {
	_, span := s.tracer.Start(ctx, "inference.run-latest")
	defer span.End()

	if s.features == nil || s.registry == nil || s.predictions == nil {
		return RunResult{}, fmt.Errorf("inference service is not fully initialized")
	}

	rows, err := s.features.ListUnlabeledRows(ctx, s.cfg.Symbol, s.cfg.BatchSize)
	if err != nil {
		return RunResult{}, err
	}
	if len(rows) == 0 {
		return RunResult{}, nil
	}

	result := RunResult{Rows: len(rows)}
	for _, key := range []string{common.ModelKeySequential, common.ModelKeyStandard} {
		version, clf, err := s.loadActive(ctx, key)
		if err != nil {
			return result, err
		}
		if clf == nil {
			continue
		}
		preds := make([]domain.Prediction, 0, len(rows))
		for i := range rows {
			prob := common.Clamp01(clf.PredictProb(common.FeatureVector(rows[i])))
			preds = append(preds, domain.Prediction{
				ModelKey:    key,
				Version:     version,
				Symbol:      rows[i].Symbol,
				EventTime:   rows[i].EventTime,
				Prob:        prob,
				PredictedAt: now.UTC(),
			})
		}
		if err := s.predictions.UpsertPredictions(ctx, preds); err != nil {
			return result, err
		}
		result.Predictions += len(preds)
	}
	return result, nil
}

func (s *Service) loadActive(ctx context.Context, modelKey string) (int, *bagging.Classifier, error) {
	active, err := s.registry.GetActiveModel(ctx, modelKey)
	if err != nil || active == nil {
		return 0, nil, err
	}
	clf, err := bagging.UnmarshalClassifier(active.ArtifactBlob, func(data []byte) (bagging.Estimator, error) {
		return boost.UnmarshalBinary(data)
	})
	if err != nil {
		return 0, nil, fmt.Errorf("decode %s artifact: %w", modelKey, err)
	}
	return active.Version, clf, nil
}
