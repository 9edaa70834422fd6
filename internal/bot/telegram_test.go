package bot

import (
	"context"
	"strings"
	"testing"
	"time"

	"sequoia/internal/domain"
	"sequoia/internal/ml/common"
)

type fakeRegistry struct {
	latest   map[string]*domain.ModelVersion
	versions []domain.ModelVersion
}

func (f *fakeRegistry) GetLatestModel(_ context.Context, modelKey string) (*domain.ModelVersion, error) {
	return f.latest[modelKey], nil
}

func (f *fakeRegistry) ListModelVersions(_ context.Context, _ string, _ int) ([]domain.ModelVersion, error) {
	return f.versions, nil
}

type fakePredictions struct {
	preds []domain.Prediction
}

func (f *fakePredictions) ListRecent(_ context.Context, _, _ string, _ int) ([]domain.Prediction, error) {
	return f.preds, nil
}

func TestStartTelegramBotSkipsWithoutToken(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "")
	StartTelegramBot(nil, nil)
}

func TestOOBMessage(t *testing.T) {
	reg := &fakeRegistry{latest: map[string]*domain.ModelVersion{
		common.ModelKeySequential: {
			ModelKey:    common.ModelKeySequential,
			Version:     3,
			MetricsJSON: `{"oob_score":0.9123,"auc":0.8811}`,
			IsActive:    true,
		},
	}}

	msg := oobMessage(context.Background(), reg)
	if !strings.Contains(msg, "seqboot_bagging v3") {
		t.Fatalf("missing model line: %s", msg)
	}
	if !strings.Contains(msg, "OOB: 0.9123") || !strings.Contains(msg, "AUC: 0.8811") {
		t.Fatalf("missing metrics: %s", msg)
	}
	if !strings.Contains(msg, "standard_bagging: no trained versions yet") {
		t.Fatalf("missing untrained line: %s", msg)
	}
}

func TestRunsMessage(t *testing.T) {
	reg := &fakeRegistry{versions: []domain.ModelVersion{
		{Version: 2, TrainedAt: time.Date(2025, 5, 2, 1, 0, 0, 0, time.UTC), MetricsJSON: `{"oob_score":0.91,"auc":0.88}`},
		{Version: 1, TrainedAt: time.Date(2025, 5, 1, 1, 0, 0, 0, time.UTC), MetricsJSON: `{"oob_score":0.87,"auc":0.85}`},
	}}

	msg := runsMessage(context.Background(), reg, common.ModelKeySequential)
	if !strings.Contains(msg, "Last 2 runs") {
		t.Fatalf("missing header: %s", msg)
	}
	if !strings.Contains(msg, "v2  2025-05-02 01:00  OOB 0.9100") {
		t.Fatalf("missing run line: %s", msg)
	}
}

func TestRunsMessageEmpty(t *testing.T) {
	msg := runsMessage(context.Background(), &fakeRegistry{}, "bogus")
	if !strings.Contains(msg, "No runs for bogus") {
		t.Fatalf("unexpected message: %s", msg)
	}
}

func TestPredictMessage(t *testing.T) {
	preds := &fakePredictions{preds: []domain.Prediction{
		{EventTime: time.Date(2025, 5, 2, 14, 0, 0, 0, time.UTC), Prob: 0.731},
	}}

	msg := predictMessage(context.Background(), preds)
	if !strings.Contains(msg, "2025-05-02 14:00  p=0.731") {
		t.Fatalf("missing prediction line: %s", msg)
	}
}

func TestMetricStringHandlesBadJSON(t *testing.T) {
	if got := metricString("not json", "auc"); got != "?" {
		t.Fatalf("expected ?, got %s", got)
	}
	if got := metricString(`{"auc":0.5}`, "oob_score"); got != "?" {
		t.Fatalf("expected ? for missing key, got %s", got)
	}
}
