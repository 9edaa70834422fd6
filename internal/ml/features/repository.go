package features

import (
	"context"
	"time"

	"sequoia/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
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

func (r *Repository) UpsertRows(ctx context.Context, rows []domain.FeatureRow) error {
	if len(rows) == 0 {
		return nil
	}
	_, span := r.tracer.Start(ctx, "feature-repo.upsert")
	defer span.End()

	for i := range rows {
		row := rows[i]
		_, err := r.pool.Exec(ctx, `
INSERT INTO feature_rows (
    symbol, event_time, log_ret,
    momentum_2, momentum_5, momentum_10, momentum_20, momentum_25,
    std_2, std_5, std_10, std_20, std_25,
    pct_change_2, pct_change_5, pct_change_10, pct_change_20, pct_change_25,
    diff_2, diff_5, diff_10, diff_20, diff_25,
    side, ret, bin, updated_at
) VALUES (
    $1, $2, $3,
    $4, $5, $6, $7, $8,
    $9, $10, $11, $12, $13,
    $14, $15, $16, $17, $18,
    $19, $20, $21, $22, $23,
    $24, $25, $26, NOW()
)
ON CONFLICT (symbol, event_time) DO UPDATE SET
    log_ret = EXCLUDED.log_ret,
    momentum_2 = EXCLUDED.momentum_2,
    momentum_5 = EXCLUDED.momentum_5,
    momentum_10 = EXCLUDED.momentum_10,
    momentum_20 = EXCLUDED.momentum_20,
    momentum_25 = EXCLUDED.momentum_25,
    std_2 = EXCLUDED.std_2,
    std_5 = EXCLUDED.std_5,
    std_10 = EXCLUDED.std_10,
    std_20 = EXCLUDED.std_20,
    std_25 = EXCLUDED.std_25,
    pct_change_2 = EXCLUDED.pct_change_2,
    pct_change_5 = EXCLUDED.pct_change_5,
    pct_change_10 = EXCLUDED.pct_change_10,
    pct_change_20 = EXCLUDED.pct_change_20,
    pct_change_25 = EXCLUDED.pct_change_25,
    diff_2 = EXCLUDED.diff_2,
    diff_5 = EXCLUDED.diff_5,
    diff_10 = EXCLUDED.diff_10,
    diff_20 = EXCLUDED.diff_20,
    diff_25 = EXCLUDED.diff_25,
    side = EXCLUDED.side,
    ret = EXCLUDED.ret,
    bin = EXCLUDED.bin,
    updated_at = NOW()`,
			row.Symbol,
			row.EventTime.UTC(),
			row.LogRet,
			row.Momentum2, row.Momentum5, row.Momentum10, row.Momentum20, row.Momentum25,
			row.Std2, row.Std5, row.Std10, row.Std20, row.Std25,
			row.PctChange2, row.PctChange5, row.PctChange10, row.PctChange20, row.PctChange25,
			row.Diff2, row.Diff5, row.Diff10, row.Diff20, row.Diff25,
			row.Side,
			row.Ret,
			row.Bin,
		)
		if err != nil {
			return err
		}
	}
	return nil
}

const featureColumns = `symbol, event_time, log_ret,
       momentum_2, momentum_5, momentum_10, momentum_20, momentum_25,
       std_2, std_5, std_10, std_20, std_25,
       pct_change_2, pct_change_5, pct_change_10, pct_change_20, pct_change_25,
       diff_2, diff_5, diff_10, diff_20, diff_25,
       side, ret, bin, created_at, updated_at`

// ListLabeledRows returns rows whose barriers have resolved, in event order.
func (r *Repository) ListLabeledRows(ctx context.Context, symbol string, from, to time.Time) ([]domain.FeatureRow, error) {
	_, span := r.tracer.Start(ctx, "feature-repo.list-labeled")
	defer span.End()

	rows, err := r.pool.Query(ctx, `
SELECT `+featureColumns+`
FROM feature_rows
WHERE symbol = $1
  AND event_time >= $2
  AND event_time <= $3
  AND bin IS NOT NULL
ORDER BY event_time ASC`, symbol, from.UTC(), to.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanFeatureRows(rows)
}

func (r *Repository) ListRows(ctx context.Context, symbol string, from, to time.Time) ([]domain.FeatureRow, error) {
	_, span := r.tracer.Start(ctx, "feature-repo.list")
	defer span.End()

	rows, err := r.pool.Query(ctx, `
SELECT `+featureColumns+`
FROM feature_rows
WHERE symbol = $1
  AND event_time >= $2
  AND event_time <= $3
ORDER BY event_time ASC`, symbol, from.UTC(), to.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanFeatureRows(rows)
}

// ListUnlabeledRows returns the newest rows still waiting on their barriers,
// oldest first.
func (r *Repository) ListUnlabeledRows(ctx context.Context, symbol string, limit int) ([]domain.FeatureRow, error) {
	_, span := r.tracer.Start(ctx, "feature-repo.list-unlabeled")
	defer span.End()

	rows, err := r.pool.Query(ctx, `
SELECT `+featureColumns+`
FROM feature_rows
WHERE symbol = $1
  AND bin IS NULL
ORDER BY event_time DESC
LIMIT $2`, symbol, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out, err := scanFeatureRows(rows)
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

func scanFeatureRows(rows pgx.Rows) ([]domain.FeatureRow, error) {
	result := make([]domain.FeatureRow, 0)
	for rows.Next() {
		var row domain.FeatureRow
		var bin pgtype.Float8
		if err := rows.Scan(
			&row.Symbol,
			&row.EventTime,
			&row.LogRet,
			&row.Momentum2, &row.Momentum5, &row.Momentum10, &row.Momentum20, &row.Momentum25,
			&row.Std2, &row.Std5, &row.Std10, &row.Std20, &row.Std25,
			&row.PctChange2, &row.PctChange5, &row.PctChange10, &row.PctChange20, &row.PctChange25,
			&row.Diff2, &row.Diff5, &row.Diff10, &row.Diff20, &row.Diff25,
			&row.Side,
			&row.Ret,
			&bin,
			&row.CreatedAt,
			&row.UpdatedAt,
		); err != nil {
			return nil, err
		}
		row.EventTime = row.EventTime.UTC()
		row.CreatedAt = row.CreatedAt.UTC()
		row.UpdatedAt = row.UpdatedAt.UTC()
		if bin.Valid {
			v := bin.Float64
			row.Bin = &v
		}
		result = append(result, row)
	}
	return result, rows.Err()
}
