package sampling

import (
	"math"
	"math/rand"
	"testing"
	"time"

	"sequoia/internal/domain"
)

// bookMatrix reproduces the worked example with three events over six bars:
// event 0 spans bars 0-2, event 1 bars 2-3, event 2 bars 4-5.
func bookMatrix(t *testing.T) *IndicatorMatrix {
	t.Helper()
	start := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]time.Time, 6)
	for i := range bars {
		bars[i] = start.Add(time.Duration(i) * time.Hour)
	}
	events := []domain.TripleBarrierEvent{
		{EventTime: bars[0], EndTime: bars[2]},
		{EventTime: bars[2], EndTime: bars[3]},
		{EventTime: bars[4], EndTime: bars[5]},
	}
	m, err := NewIndicatorMatrix(bars, events)
	if err != nil {
		t.Fatalf("build matrix: %v", err)
	}
	return m
}

func TestIndicatorMatrixShape(t *testing.T) {
	m := bookMatrix(t)
	rows, cols := m.Dims()
	if rows != 6 || cols != 3 {
		t.Fatalf("expected 6x3, got %dx%d", rows, cols)
	}
	if m.At(0, 0) != 1 || m.At(2, 0) != 1 || m.At(3, 0) != 0 {
		t.Fatal("column 0 should cover bars 0-2 only")
	}
	if m.At(2, 1) != 1 || m.At(4, 1) != 0 {
		t.Fatal("column 1 should cover bars 2-3 only")
	}
	c, ok := m.ColumnIndex(m.EventTimes[1])
	if !ok || c != 1 {
		t.Fatalf("expected column index 1, got %d (%v)", c, ok)
	}
}

func TestAverageUniquenessMatchesHandComputation(t *testing.T) {
	m := bookMatrix(t)
	// Concurrency per bar: 1,1,2,1,1,1. Per-event uniqueness:
	// (1+1+1/2)/3, (1/2+1)/2, (1+1)/2 -> mean = 0.86111...
	got := m.AverageUniqueness()
	want := (5.0/6.0 + 0.75 + 1.0) / 3.0
	if math.Abs(got-want) > 1e-12 {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestSeqBootstrapProperties(t *testing.T) {
	m := bookMatrix(t)
	rng := rand.New(rand.NewSource(42))
	sample := SeqBootstrap(m, 100, rng)
	if len(sample) != 100 {
		t.Fatalf("expected 100 draws, got %d", len(sample))
	}
	for _, c := range sample {
		if c < 0 || c > 2 {
			t.Fatalf("column index out of range: %d", c)
		}
	}
}

// Sequential draws should carry less redundancy than uniform draws: across
// many seeds the mean uniqueness of a sequential sample beats uniform.
func TestSeqBootstrapBeatsUniformOnUniqueness(t *testing.T) {
	m := bookMatrix(t)
	var seqTotal, uniTotal float64
	trials := 300
	for seed := 0; seed < trials; seed++ {
		seqTotal += sampleUniqueness(m, SeqBootstrap(m, 3, rand.New(rand.NewSource(int64(seed)))))
		uniTotal += sampleUniqueness(m, UniformBootstrap(m, 3, rand.New(rand.NewSource(int64(seed+trials)))))
	}
	seqMean := seqTotal / float64(trials)
	uniMean := uniTotal / float64(trials)
	if seqMean <= uniMean {
		t.Fatalf("expected sequential uniqueness > uniform, got %.4f <= %.4f", seqMean, uniMean)
	}
}

// sampleUniqueness is the mean, over the drawn multiset, of each draw's
// average 1/concurrency within the sample.
func sampleUniqueness(m *IndicatorMatrix, sample []int) float64 {
	acc := m.Concurrency(sample)
	var total float64
	for _, c := range sample {
		span := 0.0
		var s float64
		for r := 0; r < len(m.BarTimes); r++ {
			if m.At(r, c) == 1 {
				s += 1 / acc[r]
				span++
			}
		}
		total += s / span
	}
	return total / float64(len(sample))
}

func TestSeqBootstrapDeterministicUnderSeed(t *testing.T) {
	m := bookMatrix(t)
	a := SeqBootstrap(m, 20, rand.New(rand.NewSource(7)))
	b := SeqBootstrap(m, 20, rand.New(rand.NewSource(7)))
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("same seed should reproduce the draw sequence, diverged at %d", i)
		}
	}
}

func TestSeqBootstrapDefaultsAndSingleColumn(t *testing.T) {
	m := bookMatrix(t)
	rng := rand.New(rand.NewSource(1))
	if got := SeqBootstrap(m, 0, rng); len(got) != 3 {
		t.Fatalf("expected default sample length of 3, got %d", len(got))
	}
	single := m.SubMatrix([]int{1})
	sample := SeqBootstrap(single, 5, rng)
	for _, c := range sample {
		if c != 0 {
			t.Fatalf("single-column sample must repeat column 0, got %d", c)
		}
	}
}

func TestSubMatrixRemaps(t *testing.T) {
	m := bookMatrix(t)
	sub := m.SubMatrix([]int{2, 0})
	_, cols := sub.Dims()
	if cols != 2 {
		t.Fatalf("expected 2 columns, got %d", cols)
	}
	if c, ok := sub.ColumnIndex(m.EventTimes[2]); !ok || c != 0 {
		t.Fatalf("expected remapped column 0, got %d (%v)", c, ok)
	}
	if sub.At(4, 0) != 1 || sub.At(0, 1) != 1 {
		t.Fatal("submatrix rows should reference the original bars")
	}
}

func TestUniformBootstrapRange(t *testing.T) {
	m := bookMatrix(t)
	rng := rand.New(rand.NewSource(3))
	sample := UniformBootstrap(m, 50, rng)
	if len(sample) != 50 {
		t.Fatalf("expected 50 draws, got %d", len(sample))
	}
	for _, c := range sample {
		if c < 0 || c > 2 {
			t.Fatalf("column index out of range: %d", c)
		}
	}
}
