package handler

import (
	"context"
	"time"

	"sequoia/internal/domain"
	"sequoia/internal/ml/training"
	"sequoia/internal/service"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/trace"
)

type TrainingRunner interface {
	TrainAll(ctx context.Context, now time.Time) ([]training.ModelTrainResult, error)
}

type ModelRegistry interface {
	GetLatestModel(ctx context.Context, modelKey string) (*domain.ModelVersion, error)
	ListModelVersions(ctx context.Context, modelKey string, limit int) ([]domain.ModelVersion, error)
}

type PredictionReader interface {
	ListRecent(ctx context.Context, modelKey, symbol string, limit int) ([]domain.Prediction, error)
}

type FeatureReader interface {
	ListRows(ctx context.Context, symbol string, from, to time.Time) ([]domain.FeatureRow, error)
	ListLabeledRows(ctx context.Context, symbol string, from, to time.Time) ([]domain.FeatureRow, error)
}

type Advisor interface {
	ExplainRun(ctx context.Context, question string) (string, error)
}

type Handler struct {
	tracer      trace.Tracer
	bars        *service.BarService
	trainer     TrainingRunner
	registry    ModelRegistry
	predictions PredictionReader
	features    FeatureReader
	advisor     Advisor
	apiKey      string
}

func New(tracer trace.Tracer, bars *service.BarService, trainer TrainingRunner, registry ModelRegistry, predictions PredictionReader, features FeatureReader, advisor Advisor, apiKey string) *Handler {
	return &Handler{
		tracer:      tracer,
		bars:        bars,
		trainer:     trainer,
		registry:    registry,
		predictions: predictions,
		features:    features,
		advisor:     advisor,
		apiKey:      apiKey,
	}
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", h.Health)
	r.GET("/api/bars/:symbol", h.GetBars)
	r.GET("/api/models/:key", h.GetModel)
	r.GET("/api/models/:key/versions", h.ListModelVersions)
	r.GET("/api/predictions/:key", h.GetPredictions)
	r.GET("/api/features/:symbol", h.GetFeatureRows)

	authed := r.Group("/api", APIKeyAuth(h.apiKey))
	authed.POST("/bars/import", h.ImportBars)
	authed.POST("/train", h.TriggerTraining)
	authed.POST("/explain", h.Explain)
}
