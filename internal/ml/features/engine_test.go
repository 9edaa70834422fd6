package features

import (
	"math"
	"testing"
	"time"

	"sequoia/internal/domain"
)

func TestCrossoverSides(t *testing.T) {
	closes := make([]float64, 20)
	for i := range closes {
		closes[i] = 100 + float64(i) // steady uptrend
	}
	sides := CrossoverSides(closes, 3, 5)
	if len(sides) != len(closes) {
		t.Fatalf("expected %d sides, got %d", len(closes), len(sides))
	}
	// warm-up: slow window needs 5 bars, plus the one-bar lag
	for i := 0; i < 5; i++ {
		if !math.IsNaN(sides[i]) {
			t.Fatalf("expected NaN side at %d, got %v", i, sides[i])
		}
	}
	for i := 5; i < len(sides); i++ {
		if sides[i] != 1 {
			t.Fatalf("expected long side at %d in an uptrend, got %v", i, sides[i])
		}
	}

	for i := range closes {
		closes[i] = 100 - float64(i)
	}
	sides = CrossoverSides(closes, 3, 5)
	for i := 5; i < len(sides); i++ {
		if sides[i] != -1 {
			t.Fatalf("expected short side at %d in a downtrend, got %v", i, sides[i])
		}
	}
}

func TestEngineBuildRows(t *testing.T) {
	now := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	engine := NewEngine(func() time.Time { return now })
	bars := makeBars(60)

	var events []domain.TripleBarrierEvent
	for i := 30; i < 50; i += 4 {
		events = append(events, domain.TripleBarrierEvent{
			EventTime: bars[i].Timestamp,
			EndTime:   bars[i+3].Timestamp,
			Target:    0.01,
			Side:      domain.SideLong,
		})
	}
	labels := []domain.Label{
		{EventTime: events[0].EventTime, Ret: 0.02, Bin: 1},
	}

	rows := engine.BuildRows("SPX", bars, events, labels)
	if len(rows) != len(events) {
		t.Fatalf("expected %d rows past warm-up, got %d", len(events), len(rows))
	}
	first := rows[0]
	if first.Symbol != "SPX" || !first.EventTime.Equal(events[0].EventTime) {
		t.Fatalf("unexpected row identity: %+v", first)
	}
	if first.Bin == nil || *first.Bin != 1 || first.Ret != 0.02 {
		t.Fatalf("expected label attached to first row, got bin=%v ret=%v", first.Bin, first.Ret)
	}
	if rows[1].Bin != nil {
		t.Fatal("expected unlabeled rows to carry a nil bin")
	}
	if first.Side != 1 {
		t.Fatalf("expected the event side on the row, got %v", first.Side)
	}
	if !first.CreatedAt.Equal(now) {
		t.Fatalf("expected created_at from injected clock, got %s", first.CreatedAt)
	}

	// diff_2 on a +0.8 staircase is exactly 1.6
	if math.Abs(first.Diff2-1.6) > 1e-9 {
		t.Fatalf("expected diff_2 = 1.6 on a linear series, got %v", first.Diff2)
	}
}

func TestEngineDropsWarmupEvents(t *testing.T) {
	engine := NewEngine(nil)
	bars := makeBars(40)
	events := []domain.TripleBarrierEvent{
		{EventTime: bars[3].Timestamp, EndTime: bars[10].Timestamp, Target: 0.01, Side: domain.SideLong},
		{EventTime: bars[35].Timestamp, EndTime: bars[39].Timestamp, Target: 0.01, Side: domain.SideLong},
	}
	rows := engine.BuildRows("SPX", bars, events, nil)
	if len(rows) != 1 {
		t.Fatalf("expected the warm-up event to be dropped, got %d rows", len(rows))
	}
	if !rows[0].EventTime.Equal(bars[35].Timestamp) {
		t.Fatalf("kept the wrong event: %s", rows[0].EventTime)
	}
}

func makeBars(n int) []domain.Bar {
	out := make([]domain.Bar, 0, n)
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	price := 100.0
	for i := 0; i < n; i++ {
		price += 0.8
		out = append(out, domain.Bar{
			Symbol:    "SPX",
			Timestamp: start.Add(time.Duration(i) * time.Hour),
			Open:      price - 0.2,
			High:      price + 0.4,
			Low:       price - 0.6,
			Close:     price,
			Volume:    1000 + float64(i*10),
		})
	}
	return out
}
