package service

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"sort"
	"strconv"
	"strings"
	"time"

	"sequoia/internal/domain"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/trace"
)

const barCacheTTL = 90 * time.Second

type BarRepository interface {
	UpsertBars(ctx context.Context, bars []domain.Bar) error
	GetRecentBars(ctx context.Context, symbol string, limit int) ([]domain.Bar, error)
	ListRange(ctx context.Context, symbol string, from, to time.Time) ([]domain.Bar, error)
}

type RedisClient interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Get(ctx context.Context, key string) *redis.StringCmd
}

// BarService imports and serves price bars, with a short-lived cache in
// front of the recent-bars query.
type BarService struct {
	tracer trace.Tracer
	repo   BarRepository
	redis  RedisClient
}

func NewBarService(tracer trace.Tracer, repo BarRepository, redisClient RedisClient) *BarService {
	return &BarService{tracer: tracer, repo: repo, redis: redisClient}
}

var timeLayouts = []string{
	"2006-01-02 15:04:05.999",
	"2006-01-02 15:04:05",
	time.RFC3339,
	"2006-01-02",
}

// ImportCSV reads a bar file with a date_time column plus at least a close
// column, stores the bars, and returns how many were imported. Missing
// open/high/low fall back to the close; missing volume to zero.
func (s *BarService) ImportCSV(ctx context.Context, r io.Reader, symbol string) (int, error) {
	_, span := s.tracer.Start(ctx, "bar-service.import-csv")
	defer span.End()

	if symbol == "" {
		symbol = domain.DefaultSymbol
	}
	reader := csv.NewReader(r)
	header, err := reader.Read()
	if err != nil {
		return 0, fmt.Errorf("read csv header: %w", err)
	}
	col := make(map[string]int, len(header))
	for i, name := range header {
		col[strings.ToLower(strings.TrimSpace(name))] = i
	}
	tsIdx, ok := col["date_time"]
	if !ok {
		return 0, fmt.Errorf("csv is missing the date_time column")
	}
	closeIdx, ok := col["close"]
	if !ok {
		return 0, fmt.Errorf("csv is missing the close column")
	}

	var bars []domain.Bar
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return 0, fmt.Errorf("read csv record: %w", err)
		}
		ts, err := parseTimestamp(record[tsIdx])
		if err != nil {
			return 0, fmt.Errorf("parse date_time %q: %w", record[tsIdx], err)
		}
		closePx, err := strconv.ParseFloat(strings.TrimSpace(record[closeIdx]), 64)
		if err != nil {
			return 0, fmt.Errorf("parse close %q: %w", record[closeIdx], err)
		}
		bar := domain.Bar{
			Symbol:    symbol,
			Timestamp: ts,
			Open:      optionalField(record, col, "open", closePx),
			High:      optionalField(record, col, "high", closePx),
			Low:       optionalField(record, col, "low", closePx),
			Close:     closePx,
			Volume:    optionalField(record, col, "volume", 0),
		}
		bars = append(bars, bar)
	}
	if len(bars) == 0 {
		return 0, fmt.Errorf("csv contained no bars")
	}
	sort.Slice(bars, func(i, j int) bool { return bars[i].Timestamp.Before(bars[j].Timestamp) })

	if err := s.repo.UpsertBars(ctx, bars); err != nil {
		return 0, fmt.Errorf("store bars: %w", err)
	}
	log.Printf("Imported %d bars for %s", len(bars), symbol)
	return len(bars), nil
}

// GetRecentBars returns the newest bars, newest first, consulting the cache
// first.
func (s *BarService) GetRecentBars(ctx context.Context, symbol string, limit int) ([]domain.Bar, error) {
	_, span := s.tracer.Start(ctx, "bar-service.get-recent")
	defer span.End()

	if limit <= 0 {
		limit = 100
	}
	key := fmt.Sprintf("bars:%s:%d", symbol, limit)
	if s.redis != nil {
		cached, err := s.getBarCache(ctx, key)
		if err != nil {
			log.Printf("redis cache read error: %v", err)
		}
		if cached != nil {
			return cached, nil
		}
	}

	bars, err := s.repo.GetRecentBars(ctx, symbol, limit)
	if err != nil {
		return nil, err
	}
	if s.redis != nil && len(bars) > 0 {
		if err := s.setBarCache(ctx, key, bars); err != nil {
			log.Printf("redis cache write error: %v", err)
		}
	}
	return bars, nil
}

func (s *BarService) ListRange(ctx context.Context, symbol string, from, to time.Time) ([]domain.Bar, error) {
	return s.repo.ListRange(ctx, symbol, from, to)
}

func (s *BarService) setBarCache(ctx context.Context, key string, bars []domain.Bar) error {
	data, err := json.Marshal(bars)
	if err != nil {
		return err
	}
	return s.redis.Set(ctx, key, data, barCacheTTL).Err()
}

func (s *BarService) getBarCache(ctx context.Context, key string) ([]domain.Bar, error) {
	data, err := s.redis.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var bars []domain.Bar
	if err := json.Unmarshal(data, &bars); err != nil {
		return nil, err
	}
	return bars, nil
}

func parseTimestamp(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range timeLayouts {
		if ts, err := time.Parse(layout, raw); err == nil {
			return ts.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp format")
}

func optionalField(record []string, col map[string]int, name string, fallback float64) float64 {
	idx, ok := col[name]
	if !ok || idx >= len(record) {
		return fallback
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(record[idx]), 64)
	if err != nil {
		return fallback
	}
	return v
}
