package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"sort"
	"time"

	"sequoia/internal/domain"
	"sequoia/internal/ml/training"
	"sequoia/internal/service"

	"go.opentelemetry.io/otel/trace"
)

var (
	csvPath     = flag.String("csv", "", "path to a bar CSV with date_time and close columns (required)")
	symbol      = flag.String("symbol", domain.DefaultSymbol, "instrument symbol")
	estimators  = flag.Int("estimators", 100, "sequential ensemble size")
	standard    = flag.Int("standard-estimators", 50, "uniform bootstrap ensemble size")
	maxFeatures = flag.Float64("max-features", 1, "fraction of features per estimator")
	minSamples  = flag.Int("min-samples", 50, "minimum labeled samples to train on")
	windowDays  = flag.Int("window-days", 3650, "training window in days, counted back from the last bar")
	workers     = flag.Int("workers", 3, "parallel triple-barrier and fit workers")
	seed        = flag.Int64("seed", 42, "rng seed for reproducible runs")

	exitFunc = os.Exit
)

func main() {
	flag.Parse()
	if *csvPath == "" {
		flag.Usage()
		exitFunc(2)
		return
	}
	if err := run(context.Background(), os.Stdout); err != nil {
		log.Fatalf("backtest failed: %v", err)
	}
}

func run(ctx context.Context, out *os.File) error {
	tracer := trace.NewNoopTracerProvider().Tracer("backtest")

	f, err := os.Open(*csvPath)
	if err != nil {
		return err
	}
	defer f.Close()

	barRepo := newMemBarRepo()
	bars := service.NewBarService(tracer, barRepo, nil)
	count, err := bars.ImportCSV(ctx, f, *symbol)
	if err != nil {
		return fmt.Errorf("import %s: %w", *csvPath, err)
	}
	fmt.Fprintf(out, "loaded %d bars from %s\n", count, *csvPath)

	reg := newMemRegistry()
	svc := training.NewService(tracer, barRepo, memFeatureStore{}, reg, training.Config{
		Symbol:             *symbol,
		TrainWindowDays:    *windowDays,
		MinTrainSamples:    *minSamples,
		NumWorkers:         *workers,
		NumEstimators:      *estimators,
		StandardEstimators: *standard,
		MaxFeatures:        *maxFeatures,
		Seed:               *seed,
	})

	now := barRepo.lastTimestamp().Add(time.Hour)
	results, err := svc.TrainAll(ctx, now)
	if err != nil {
		return err
	}

	fmt.Fprintln(out, "\nensemble comparison (same chronological 70/30 split):")
	fmt.Fprintf(out, "%-18s %8s %8s %8s %8s %8s %8s\n",
		"model", "oob", "acc", "prec", "recall", "f1", "auc")
	for _, r := range results {
		m := reg.metrics(r.ModelKey, r.Version)
		fmt.Fprintf(out, "%-18s %8.4f %8.4f %8.4f %8.4f %8.4f %8.4f\n",
			r.ModelKey, m["oob_score"], m["accuracy"], m["precision"], m["recall"], m["f1"], m["auc"])
	}
	if len(results) == 2 {
		diff := results[0].OOBScore - results[1].OOBScore
		fmt.Fprintf(out, "\nsequential minus standard OOB: %+.4f\n", diff)
	}
	return nil
}

// memBarRepo is an in-memory BarRepository for offline runs.
type memBarRepo struct {
	bars []domain.Bar
}

func newMemBarRepo() *memBarRepo { return &memBarRepo{} }

func (r *memBarRepo) UpsertBars(_ context.Context, bars []domain.Bar) error {
	r.bars = append(r.bars, bars...)
	sort.Slice(r.bars, func(i, j int) bool { return r.bars[i].Timestamp.Before(r.bars[j].Timestamp) })
	return nil
}

func (r *memBarRepo) GetRecentBars(_ context.Context, _ string, limit int) ([]domain.Bar, error) {
	if limit > len(r.bars) {
		limit = len(r.bars)
	}
	out := make([]domain.Bar, limit)
	for i := 0; i < limit; i++ {
		out[i] = r.bars[len(r.bars)-1-i]
	}
	return out, nil
}

func (r *memBarRepo) ListRange(_ context.Context, _ string, from, to time.Time) ([]domain.Bar, error) {
	var out []domain.Bar
	for _, b := range r.bars {
		if !b.Timestamp.Before(from) && !b.Timestamp.After(to) {
			out = append(out, b)
		}
	}
	return out, nil
}

func (r *memBarRepo) lastTimestamp() time.Time {
	if len(r.bars) == 0 {
		return time.Time{}
	}
	return r.bars[len(r.bars)-1].Timestamp
}

type memFeatureStore struct{}

func (memFeatureStore) UpsertRows(_ context.Context, _ []domain.FeatureRow) error { return nil }

// memRegistry keeps trained versions in memory so the training service can
// run its full persist-and-promote path without a database.
type memRegistry struct {
	versions map[string][]domain.ModelVersion
}

func newMemRegistry() *memRegistry {
	return &memRegistry{versions: make(map[string][]domain.ModelVersion)}
}

func (r *memRegistry) NextVersion(_ context.Context, modelKey string) (int, error) {
	return len(r.versions[modelKey]) + 1, nil
}

func (r *memRegistry) InsertModelVersion(_ context.Context, model domain.ModelVersion) (*domain.ModelVersion, error) {
	model.ID = int64(len(r.versions[model.ModelKey]) + 1)
	model.TrainedAt = time.Now().UTC()
	r.versions[model.ModelKey] = append(r.versions[model.ModelKey], model)
	return &model, nil
}

func (r *memRegistry) GetActiveModel(_ context.Context, modelKey string) (*domain.ModelVersion, error) {
	for i := range r.versions[modelKey] {
		if r.versions[modelKey][i].IsActive {
			return &r.versions[modelKey][i], nil
		}
	}
	return nil, nil
}

func (r *memRegistry) ActivateModel(_ context.Context, modelKey string, version int) error {
	for i := range r.versions[modelKey] {
		r.versions[modelKey][i].IsActive = r.versions[modelKey][i].Version == version
	}
	return nil
}

func (r *memRegistry) metrics(modelKey string, version int) map[string]float64 {
	for _, v := range r.versions[modelKey] {
		if v.Version == version {
			var m map[string]float64
			if err := json.Unmarshal([]byte(v.MetricsJSON), &m); err == nil {
				return m
			}
		}
	}
	return nil
}
