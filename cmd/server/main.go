package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"sequoia/internal/advisor"
	"sequoia/internal/bot"
	"sequoia/internal/cache"
	"sequoia/internal/config"
	"sequoia/internal/db"
	"sequoia/internal/handler"
	"sequoia/internal/job"
	"sequoia/internal/ml/features"
	"sequoia/internal/ml/inference"
	"sequoia/internal/ml/predictions"
	"sequoia/internal/ml/registry"
	"sequoia/internal/ml/training"
	"sequoia/internal/repository"
	"sequoia/internal/service"
	"sequoia/pkg/tracing"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	_ "sequoia/docs"
)

var (
	loadEnvFunc      = godotenv.Load
	loadConfigFunc   = config.Load
	initPostgresFunc = db.InitPostgres
	initRedisFunc    = cache.InitRedis
	initTracerFunc   = tracing.InitTracer

	newBarRepoFunc        = repository.NewBarRepository
	newFeatureRepoFunc    = features.NewRepository
	newRegistryRepoFunc   = registry.NewRepository
	newPredictionRepoFunc = predictions.NewRepository

	newBarServiceFunc       = service.NewBarService
	newTrainingServiceFunc  = training.NewService
	newInferenceServiceFunc = inference.NewService
	newOpenAIClientFunc     = advisor.NewOpenAIClient
	newAdvisorServiceFunc   = advisor.NewAdvisorService

	newTrainingJobFunc  = job.NewTrainingJob
	newInferenceJobFunc = job.NewInferenceJob
	startTrainingJob    = func(j *job.TrainingJob, ctx context.Context) { go j.Start(ctx) }
	startInferenceJob   = func(j *job.InferenceJob, ctx context.Context) { go j.Start(ctx) }
	startTelegramBot    = bot.StartTelegramBot

	newHandlerFunc         = handler.New
	newRouterFunc          = gin.Default
	setupSignalNotify      = signal.Notify
	waitForSignalFunc      = func(quit <-chan os.Signal) { <-quit }
	startHTTPServerFunc    = func(srv *http.Server) error { return srv.ListenAndServe() }
	shutdownHTTPServerFunc = func(srv *http.Server, ctx context.Context) error { return srv.Shutdown(ctx) }
)

// @title           Sequoia API
// @version         1.0
// @description     Sequentially bootstrapped bagging ensembles over triple-barrier labeled price bars.

// @host      localhost:8080
// @BasePath  /
func main() {
	loadEnvFunc()

	cfg := loadConfigFunc()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Init Postgres and Redis
	initPostgresFunc(ctx, cfg.DatabaseURL)
	initRedisFunc(ctx, cfg.RedisURL)

	// Init tracing
	tp, tracer, err := initTracerFunc(ctx, cfg.ServiceName)
	if err != nil {
		log.Fatalf("failed to initialize tracer: %v", err)
	}
	defer func() {
		if err := tp.Shutdown(ctx); err != nil {
			log.Printf("error shutting down tracer provider: %v", err)
		}
	}()

	// Create repositories and run migrations
	barRepo := newBarRepoFunc(db.Pool, tracer)
	if db.Pool != nil {
		if err := barRepo.RunMigrations(ctx); err != nil {
			log.Fatalf("failed to run migrations: %v", err)
		}
	}
	featureRepo := newFeatureRepoFunc(db.Pool, tracer)
	registryRepo := newRegistryRepoFunc(db.Pool, tracer)
	predictionRepo := newPredictionRepoFunc(db.Pool, tracer)

	// Create services
	barService := newBarServiceFunc(tracer, barRepo, cache.Client)
	trainingService := newTrainingServiceFunc(tracer, barRepo, featureRepo, registryRepo, training.Config{
		Symbol:              cfg.Symbol,
		TrainWindowDays:     cfg.TrainWindowDays,
		MinTrainSamples:     cfg.MinTrainSamples,
		FastWindow:          cfg.FastWindow,
		SlowWindow:          cfg.SlowWindow,
		CusumThreshold:      cfg.CusumThreshold,
		VolLookback:         cfg.VolLookback,
		VerticalBarrierDays: cfg.VerticalBarrierDays,
		ProfitTake:          cfg.ProfitTake,
		StopLoss:            cfg.StopLoss,
		MinRet:              cfg.MinRet,
		NumWorkers:          cfg.NumWorkers,
		NumEstimators:       cfg.NumEstimators,
		StandardEstimators:  cfg.StandardEstimators,
		MaxFeatures:         cfg.MaxFeatures,
	})
	inferenceService := newInferenceServiceFunc(tracer, featureRepo, registryRepo, predictionRepo, inference.Config{
		Symbol: cfg.Symbol,
	})

	// Advisor (optional)
	var advisorSvc handler.Advisor
	if cfg.OpenAIAPIKey != "" {
		llmClient := newOpenAIClientFunc(cfg.OpenAIAPIKey)
		advisorSvc = newAdvisorServiceFunc(tracer, llmClient, registryRepo, predictionRepo,
			cfg.OpenAIModel, cfg.AdvisorMaxHistory)
		log.Println("Advisor service enabled")
	}

	// Start background jobs (stopped by ctx cancel)
	trainingJob := newTrainingJobFunc(tracer, trainingService, cfg.TrainHourUTC)
	startTrainingJob(trainingJob, ctx)
	inferenceJob := newInferenceJobFunc(tracer, inferenceService, time.Duration(cfg.InferPollSecs)*time.Second)
	startInferenceJob(inferenceJob, ctx)

	// Start Telegram bot
	os.Setenv("TELEGRAM_BOT_TOKEN", cfg.TelegramBotToken)
	startTelegramBot(registryRepo, predictionRepo)

	// Create handlers and routes
	h := newHandlerFunc(tracer, barService, trainingService, registryRepo, predictionRepo, featureRepo, advisorSvc, cfg.APIKey)

	r := newRouterFunc()
	r.Use(otelgin.Middleware(cfg.ServiceName))

	h.RegisterRoutes(r)
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	srv := &http.Server{
		Addr:    ":8080",
		Handler: r,
	}

	go func() {
		if err := startHTTPServerFunc(srv); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	setupSignalNotify(quit, syscall.SIGINT, syscall.SIGTERM)
	waitForSignalFunc(quit)
	log.Println("Shutting down server...")

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := shutdownHTTPServerFunc(srv, shutdownCtx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server exiting")
}
