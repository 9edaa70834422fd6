package job

import (
	"context"
	"log"
	"time"

	"sequoia/internal/ml/inference"

	"go.opentelemetry.io/otel/trace"
)

type Inferencer interface {
	RunLatest(ctx context.Context, now time.Time) (inference.RunResult, error)
}

// InferenceJob scores unlabeled feature rows with the active ensembles
// on a fixed polling interval.
type InferenceJob struct {
	tracer       trace.Tracer
	service      Inferencer
	pollInterval time.Duration
}

func NewInferenceJob(tracer trace.Tracer, service Inferencer, pollInterval time.Duration) *InferenceJob {
	if pollInterval <= 0 {
		pollInterval = 15 * time.Minute
	}
	return &InferenceJob{tracer: tracer, service: service, pollInterval: pollInterval}
}

func (j *InferenceJob) Start(ctx context.Context) {
	if j.service == nil {
		log.Println("inference job disabled: no service")
		<-ctx.Done()
		return
	}

	j.runOnce(ctx)
	ticker := time.NewTicker(j.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			j.runOnce(ctx)
		}
	}
}

func (j *InferenceJob) runOnce(ctx context.Context) {
	_, span := j.tracer.Start(ctx, "inference-job.run-once")
	defer span.End()

	res, err := j.service.RunLatest(ctx, time.Now().UTC())
	if err != nil {
		log.Printf("inference error: %v", err)
		return
	}
	if res.Predictions > 0 {
		log.Printf("inference cycle complete (%d rows, %d predictions)", res.Rows, res.Predictions)
	}
}
