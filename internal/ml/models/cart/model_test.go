package cart

import (
	"math"
	"testing"
)

func TestFitStepFunction(t *testing.T) {
	samples := make([][]float64, 0, 100)
	labels := make([]float64, 0, 100)
	for i := 0; i < 50; i++ {
		x := float64(i) / 50
		samples = append(samples, []float64{x})
		labels = append(labels, -1)
		samples = append(samples, []float64{x + 2})
		labels = append(labels, 1)
	}

	model := New(DefaultOptions())
	if err := model.Fit(samples, labels); err != nil {
		t.Fatalf("fit failed: %v", err)
	}
	if got := model.Predict([]float64{0.5}); math.Abs(got+1) > 0.1 {
		t.Fatalf("expected ~-1 on the low plateau, got %v", got)
	}
	if got := model.Predict([]float64{2.5}); math.Abs(got-1) > 0.1 {
		t.Fatalf("expected ~1 on the high plateau, got %v", got)
	}
}

func TestConstantLabelsYieldConstantLeaf(t *testing.T) {
	samples := [][]float64{{1}, {2}, {3}, {4}, {5}, {6}}
	labels := []float64{0.7, 0.7, 0.7, 0.7, 0.7, 0.7}
	model := New(Options{MaxDepth: 3, MinLeafSize: 2})
	if err := model.Fit(samples, labels); err != nil {
		t.Fatalf("fit failed: %v", err)
	}
	if got := model.Predict([]float64{100}); math.Abs(got-0.7) > 1e-12 {
		t.Fatalf("expected 0.7, got %v", got)
	}
}

func TestRoundTrip(t *testing.T) {
	samples := [][]float64{{0}, {1}, {2}, {3}, {10}, {11}, {12}, {13}}
	labels := []float64{0, 0, 0, 0, 5, 5, 5, 5}
	model := New(Options{MaxDepth: 2, MinLeafSize: 2})
	if err := model.Fit(samples, labels); err != nil {
		t.Fatalf("fit failed: %v", err)
	}
	blob, err := model.MarshalBinary()
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	restored, err := UnmarshalBinary(blob)
	if err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	for _, probe := range []float64{1, 11} {
		if a, b := model.Predict([]float64{probe}), restored.Predict([]float64{probe}); a != b {
			t.Fatalf("roundtrip mismatch at %v: %v vs %v", probe, a, b)
		}
	}
}

func TestInvalidInput(t *testing.T) {
	model := New(DefaultOptions())
	if err := model.Fit(nil, nil); err == nil {
		t.Fatal("expected error on empty dataset")
	}
	if err := model.Fit([][]float64{{1}}, []float64{1, 2}); err == nil {
		t.Fatal("expected error on length mismatch")
	}
}
