package job

import (
	"context"
	"log"
	"time"

	"sequoia/internal/ml/training"

	"go.opentelemetry.io/otel/trace"
)

type Trainer interface {
	TrainAll(ctx context.Context, now time.Time) ([]training.ModelTrainResult, error)
}

// TrainingJob retrains both ensembles once a day at a fixed UTC hour.
type TrainingJob struct {
	tracer    trace.Tracer
	service   Trainer
	trainHour int
}

func NewTrainingJob(tracer trace.Tracer, service Trainer, trainHourUTC int) *TrainingJob {
	if trainHourUTC < 0 || trainHourUTC > 23 {
		trainHourUTC = 0
	}
	return &TrainingJob{tracer: tracer, service: service, trainHour: trainHourUTC}
}

func (j *TrainingJob) Start(ctx context.Context) {
	if j.service == nil {
		log.Println("training job disabled: no service")
		<-ctx.Done()
		return
	}
	for {
		next := nextRunUTC(time.Now().UTC(), j.trainHour)
		wait := time.Until(next)
		if wait < time.Second {
			wait = time.Second
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			j.runOnce(ctx)
		}
	}
}

func (j *TrainingJob) runOnce(ctx context.Context) {
	_, span := j.tracer.Start(ctx, "training-job.run-once")
	defer span.End()

	results, err := j.service.TrainAll(ctx, time.Now().UTC())
	if err != nil {
		log.Printf("training error: %v", err)
		return
	}
	for _, r := range results {
		log.Printf("training result model=%s version=%d oob=%.4f auc=%.4f promoted=%v",
			r.ModelKey, r.Version, r.OOBScore, r.AUC, r.Promoted)
	}
}

func nextRunUTC(now time.Time, hour int) time.Time {
	run := time.Date(now.Year(), now.Month(), now.Day(), hour, 0, 0, 0, time.UTC)
	if !run.After(now) {
		run = run.Add(24 * time.Hour)
	}
	return run
}
