package predictions

import (
	"context"
	"time"

	"sequoia/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.opentelemetry.io/otel/trace"
)

type pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

type Repository struct {
	pool   pool
	tracer trace.Tracer
}

func NewRepository(pool pool, tracer trace.Tracer) *Repository {
	return &Repository{pool: pool, tracer: tracer}
}

func (r *Repository) UpsertPredictions(ctx context.Context, preds []domain.Prediction) error {
	if len(preds) == 0 {
		return nil
	}
	_, span := r.tracer.Start(ctx, "prediction-repo.upsert")
	defer span.End()

	for i := range preds {
		p := preds[i]
		_, err := r.pool.Exec(ctx, `
INSERT INTO predictions (model_key, version, symbol, event_time, prob, predicted_at)
VALUES ($1, $2, $3, $4, $5, COALESCE($6, NOW()))
ON CONFLICT (model_key, version, symbol, event_time) DO UPDATE SET
    prob = EXCLUDED.prob,
    predicted_at = NOW()`,
			p.ModelKey,
			p.Version,
			p.Symbol,
			p.EventTime.UTC(),
			p.Prob,
			nullIfZeroTime(p.PredictedAt),
		)
		if err != nil {
			return err
		}
	}
	return nil
}

// ListRecent returns the newest predictions for a model key, newest first.
func (r *Repository) ListRecent(ctx context.Context, modelKey, symbol string, limit int) ([]domain.Prediction, error) {
	_, span := r.tracer.Start(ctx, "prediction-repo.list-recent")
	defer span.End()

	if limit <= 0 {
		limit = 20
	}
	rows, err := r.pool.Query(ctx, `
SELECT id, model_key, version, symbol, event_time, prob, predicted_at
FROM predictions
WHERE model_key = $1 AND symbol = $2
ORDER BY event_time DESC
LIMIT $3`, modelKey, symbol, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.Prediction, 0)
	for rows.Next() {
		var p domain.Prediction
		if err := rows.Scan(&p.ID, &p.ModelKey, &p.Version, &p.Symbol, &p.EventTime, &p.Prob, &p.PredictedAt); err != nil {
			return nil, err
		}
		p.EventTime = p.EventTime.UTC()
		p.PredictedAt = p.PredictedAt.UTC()
		out = append(out, p)
	}
	return out, rows.Err()
}

func nullIfZeroTime(v time.Time) any {
	if v.IsZero() {
		return nil
	}
	return v.UTC()
}
