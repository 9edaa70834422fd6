package inference

import (
	"context"
	"testing"
	"time"

	"sequoia/internal/domain"
	"sequoia/internal/ml/bagging"
	"sequoia/internal/ml/common"
	"sequoia/internal/ml/models/boost"

	"go.opentelemetry.io/otel/trace"
)

type fakeFeatures struct {
	rows []domain.FeatureRow
}

func (f *fakeFeatures) ListUnlabeledRows(_ context.Context, _ string, _ int) ([]domain.FeatureRow, error) {
	return f.rows, nil
}

type fakeRegistry struct {
	models map[string]*domain.ModelVersion
}

func (f *fakeRegistry) GetActiveModel(_ context.Context, modelKey string) (*domain.ModelVersion, error) {
	return f.models[modelKey], nil
}

type fakePredictions struct {
	stored []domain.Prediction
}

func (f *fakePredictions) UpsertPredictions(_ context.Context, preds []domain.Prediction) error {
	f.stored = append(f.stored, preds...)
	return nil
}

func trainedArtifact(t *testing.T) []byte {
	t.Helper()
	start := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]time.Time, 120)
	for i := range bars {
		bars[i] = start.Add(time.Duration(i) * time.Hour)
	}
	var events []domain.TripleBarrierEvent
	for i := 0; i+10 < len(bars); i += 2 {
		events = append(events, domain.TripleBarrierEvent{
			EventTime: bars[i], EndTime: bars[i+10], Target: 0.01, Side: domain.SideLong,
		})
	}
	X := make([][]float64, len(events))
	y := make([]float64, len(events))
	times := make([]time.Time, len(events))
	for i := range events {
		v := float64(i%2)*2 - 1 // alternate the informative feature
		X[i] = make([]float64, len(common.FeatureNames))
		X[i][0] = v
		if v > 0 {
			y[i] = 1
		}
		times[i] = events[i].EventTime
	}
	clf, err := bagging.NewClassifier(func() bagging.Estimator {
		return boost.New(boost.Options{Rounds: 5}, common.FeatureNames)
	}, bagging.SeqSampler, events, bars, bagging.Config{NumEstimators: 3, Seed: 2})
	if err != nil {
		t.Fatalf("build classifier: %v", err)
	}
	if err := clf.Fit(X, y, times); err != nil {
		t.Fatalf("fit classifier: %v", err)
	}
	blob, err := clf.MarshalBinary()
	if err != nil {
		t.Fatalf("marshal classifier: %v", err)
	}
	return blob
}

func featureRow(ts time.Time) domain.FeatureRow {
	return domain.FeatureRow{Symbol: domain.DefaultSymbol, EventTime: ts, LogRet: 0.9, Side: 1}
}

func TestRunLatestStoresPredictions(t *testing.T) {
	blob := trainedArtifact(t)
	reg := &fakeRegistry{models: map[string]*domain.ModelVersion{
		common.ModelKeySequential: {ModelKey: common.ModelKeySequential, Version: 3, ArtifactBlob: blob},
	}}
	now := time.Date(2025, 4, 1, 12, 0, 0, 0, time.UTC)
	rows := []domain.FeatureRow{featureRow(now.Add(-2 * time.Hour)), featureRow(now.Add(-time.Hour))}
	store := &fakePredictions{}

	svc := NewService(trace.NewNoopTracerProvider().Tracer("test"), &fakeFeatures{rows: rows}, reg, store, Config{})
	result, err := svc.RunLatest(context.Background(), now)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if result.Rows != 2 || result.Predictions != 2 {
		t.Fatalf("unexpected result: %+v", result)
	}
	if len(store.stored) != 2 {
		t.Fatalf("expected 2 stored predictions, got %d", len(store.stored))
	}
	for _, p := range store.stored {
		if p.ModelKey != common.ModelKeySequential || p.Version != 3 {
			t.Fatalf("unexpected prediction identity: %+v", p)
		}
		if p.Prob < 0 || p.Prob > 1 {
			t.Fatalf("probability out of range: %v", p.Prob)
		}
		if !p.PredictedAt.Equal(now) {
			t.Fatalf("expected predicted_at %s, got %s", now, p.PredictedAt)
		}
	}
}

func TestRunLatestWithoutActiveModels(t *testing.T) {
	now := time.Now().UTC()
	rows := []domain.FeatureRow{featureRow(now)}
	store := &fakePredictions{}
	svc := NewService(trace.NewNoopTracerProvider().Tracer("test"), &fakeFeatures{rows: rows}, &fakeRegistry{models: map[string]*domain.ModelVersion{}}, store, Config{})

	result, err := svc.RunLatest(context.Background(), now)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if result.Predictions != 0 || len(store.stored) != 0 {
		t.Fatalf("expected no predictions without active models, got %+v", result)
	}
}

func TestRunLatestWithNoRows(t *testing.T) {
	svc := NewService(trace.NewNoopTracerProvider().Tracer("test"), &fakeFeatures{}, &fakeRegistry{models: map[string]*domain.ModelVersion{}}, &fakePredictions{}, Config{})
	result, err := svc.RunLatest(context.Background(), time.Now())
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if result.Rows != 0 {
		t.Fatalf("expected zero rows, got %d", result.Rows)
	}
}
