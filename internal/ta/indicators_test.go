package ta

import (
	"math"
	"testing"
)

func TestSMASeries(t *testing.T) {
	values := []float64{1, 2, 3, 4, 5}
	sma := SMASeries(values, 3)
	if !math.IsNaN(sma[0]) || !math.IsNaN(sma[1]) {
		t.Fatalf("expected NaN before window fills, got %v %v", sma[0], sma[1])
	}
	if sma[2] != 2 || sma[4] != 4 {
		t.Fatalf("unexpected SMA values: %v", sma)
	}
}

func TestPctChangeAndDiff(t *testing.T) {
	values := []float64{100, 110, 121}
	pct := PctChangeSeries(values, 1)
	if math.Abs(pct[1]-0.1) > 1e-12 || math.Abs(pct[2]-0.1) > 1e-12 {
		t.Fatalf("unexpected pct change: %v", pct)
	}
	diff := DiffSeries(values, 2)
	if diff[2] != 21 {
		t.Fatalf("expected diff 21, got %v", diff[2])
	}
}

func TestRollingStdSeries(t *testing.T) {
	values := []float64{2, 2, 2, 2}
	std := RollingStdSeries(values, 3)
	if std[3] != 0 {
		t.Fatalf("expected zero std on constant series, got %v", std[3])
	}
	varied := RollingStdSeries([]float64{1, 5, 1, 5, 1}, 3)
	if varied[4] <= 0 {
		t.Fatalf("expected positive std, got %v", varied[4])
	}
}

func TestLogReturnSeries(t *testing.T) {
	values := []float64{100, 100 * math.E}
	rets := LogReturnSeries(values)
	if math.Abs(rets[1]-1) > 1e-12 {
		t.Fatalf("expected log return 1, got %v", rets[1])
	}
}

func TestEWMStdSeriesConverges(t *testing.T) {
	values := make([]float64, 200)
	for i := range values {
		if i%2 == 0 {
			values[i] = 1
		} else {
			values[i] = -1
		}
	}
	std := EWMStdSeries(values, 50)
	got := std[len(std)-1]
	if math.IsNaN(got) || got <= 0.5 || got >= 1.5 {
		t.Fatalf("expected EWM std near 1, got %v", got)
	}
	if !math.IsNaN(EWMStdSeries([]float64{math.NaN(), 1}, 10)[0]) {
		t.Fatal("expected NaN output for NaN input")
	}
}
