package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"sequoia/internal/domain"
	"sequoia/internal/ml/training"
	"sequoia/internal/service"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/trace"
)

var testTracer = trace.NewNoopTracerProvider().Tracer("test")

type stubBarRepo struct {
	bars []domain.Bar
}

func (s *stubBarRepo) UpsertBars(_ context.Context, bars []domain.Bar) error {
	s.bars = append(s.bars, bars...)
	return nil
}

func (s *stubBarRepo) GetRecentBars(_ context.Context, _ string, _ int) ([]domain.Bar, error) {
	return s.bars, nil
}

func (s *stubBarRepo) ListRange(_ context.Context, _ string, _, _ time.Time) ([]domain.Bar, error) {
	return s.bars, nil
}

type stubTrainer struct {
	results []training.ModelTrainResult
	err     error
}

func (s *stubTrainer) TrainAll(_ context.Context, _ time.Time) ([]training.ModelTrainResult, error) {
	return s.results, s.err
}

type stubRegistry struct {
	latest   *domain.ModelVersion
	versions []domain.ModelVersion
}

func (s *stubRegistry) GetLatestModel(_ context.Context, _ string) (*domain.ModelVersion, error) {
	return s.latest, nil
}

func (s *stubRegistry) ListModelVersions(_ context.Context, _ string, _ int) ([]domain.ModelVersion, error) {
	return s.versions, nil
}

type stubPredictions struct {
	preds []domain.Prediction
}

func (s *stubPredictions) ListRecent(_ context.Context, _, _ string, _ int) ([]domain.Prediction, error) {
	return s.preds, nil
}

type stubFeatures struct {
	rows []domain.FeatureRow
}

func (s *stubFeatures) ListRows(_ context.Context, _ string, _, _ time.Time) ([]domain.FeatureRow, error) {
	return s.rows, nil
}

func (s *stubFeatures) ListLabeledRows(_ context.Context, _ string, _, _ time.Time) ([]domain.FeatureRow, error) {
	labeled := make([]domain.FeatureRow, 0, len(s.rows))
	for _, row := range s.rows {
		if row.Bin != nil {
			labeled = append(labeled, row)
		}
	}
	return labeled, nil
}

type stubAdvisor struct {
	answer string
}

func (s *stubAdvisor) ExplainRun(_ context.Context, _ string) (string, error) {
	return s.answer, nil
}

func newTestRouter(h *Handler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h.RegisterRoutes(r)
	return r
}

func newTestHandler(apiKey string) (*Handler, *stubBarRepo) {
	repo := &stubBarRepo{}
	bars := service.NewBarService(testTracer, repo, nil)
	h := New(testTracer, bars, &stubTrainer{}, &stubRegistry{}, &stubPredictions{}, &stubFeatures{}, &stubAdvisor{answer: "looks fine"}, apiKey)
	return h, repo
}

func TestHealth(t *testing.T) {
	h, _ := newTestHandler("")
	r := newTestRouter(h)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "healthy") {
		t.Fatalf("unexpected body: %s", w.Body.String())
	}
}

func TestImportAndGetBars(t *testing.T) {
	h, repo := newTestHandler("")
	r := newTestRouter(h)

	csv := "date_time,close\n2025-01-01 10:00:00,100.5\n2025-01-01 11:00:00,101\n"
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/bars/import?symbol=spx", strings.NewReader(csv))
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if len(repo.bars) != 2 {
		t.Fatalf("expected 2 stored bars, got %d", len(repo.bars))
	}

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/api/bars/SPX", nil)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"count":2`) {
		t.Fatalf("unexpected body: %s", w.Body.String())
	}
}

func TestImportBarsRejectsBadCSV(t *testing.T) {
	h, _ := newTestHandler("")
	r := newTestRouter(h)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/bars/import", strings.NewReader("open,high\n1,2\n"))
	r.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestTriggerTraining(t *testing.T) {
	h, _ := newTestHandler("")
	h.trainer = &stubTrainer{results: []training.ModelTrainResult{
		{ModelKey: "seqboot_bagging", Version: 1, OOBScore: 0.91},
		{ModelKey: "standard_bagging", Version: 1, OOBScore: 0.88},
	}}
	r := newTestRouter(h)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/train", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), `"trained":2`) {
		t.Fatalf("unexpected body: %s", w.Body.String())
	}
}

func TestTriggerTrainingUnavailable(t *testing.T) {
	h, _ := newTestHandler("")
	h.trainer = nil
	r := newTestRouter(h)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/train", nil)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", w.Code)
	}
}

func TestGetModelNotFound(t *testing.T) {
	h, _ := newTestHandler("")
	r := newTestRouter(h)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/models/seqboot_bagging", nil)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestGetModel(t *testing.T) {
	h, _ := newTestHandler("")
	h.registry = &stubRegistry{latest: &domain.ModelVersion{
		ModelKey:    "seqboot_bagging",
		Version:     4,
		MetricsJSON: `{"oob_score":0.93}`,
		IsActive:    true,
	}}
	r := newTestRouter(h)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/models/seqboot_bagging", nil)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"version":4`) {
		t.Fatalf("unexpected body: %s", w.Body.String())
	}
}

func TestGetPredictionsDefaultsSymbol(t *testing.T) {
	h, _ := newTestHandler("")
	h.predictions = &stubPredictions{preds: []domain.Prediction{
		{ModelKey: "seqboot_bagging", Symbol: "SPX", Prob: 0.7},
	}}
	r := newTestRouter(h)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/predictions/seqboot_bagging", nil)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"symbol":"SPX"`) {
		t.Fatalf("unexpected body: %s", w.Body.String())
	}
}

func TestGetFeatureRows(t *testing.T) {
	h, _ := newTestHandler("")
	bin := 1.0
	h.features = &stubFeatures{rows: []domain.FeatureRow{
		{Symbol: "SPX", EventTime: time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC), Bin: &bin},
		{Symbol: "SPX", EventTime: time.Date(2025, 6, 1, 11, 0, 0, 0, time.UTC)},
	}}
	r := newTestRouter(h)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/features/spx", nil)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), `"count":2`) {
		t.Fatalf("unexpected body: %s", w.Body.String())
	}

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/api/features/spx?labeled=true", nil)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"count":1`) {
		t.Fatalf("expected only the labeled row: %s", w.Body.String())
	}
}

func TestGetFeatureRowsUnavailable(t *testing.T) {
	h, _ := newTestHandler("")
	h.features = nil
	r := newTestRouter(h)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/features/SPX", nil)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", w.Code)
	}
}

func TestExplain(t *testing.T) {
	h, _ := newTestHandler("")
	r := newTestRouter(h)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/explain", strings.NewReader(`{"question":"why is the oob score high?"}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), "looks fine") {
		t.Fatalf("unexpected body: %s", w.Body.String())
	}

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/api/explain", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without a question, got %d", w.Code)
	}
}

func TestAPIKeyAuth(t *testing.T) {
	h, _ := newTestHandler("secret")
	r := newTestRouter(h)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/train", nil)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without key, got %d", w.Code)
	}

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/api/train", nil)
	req.Header.Set("X-API-Key", "wrong")
	r.ServeHTTP(w, req)
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403 with a bad key, got %d", w.Code)
	}

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/api/train", nil)
	req.Header.Set("X-API-Key", "secret")
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 with the right key, got %d", w.Code)
	}
}
