package metrics

import (
	"math"
	"testing"
)

func TestConfusionDerivedMetrics(t *testing.T) {
	labels := []float64{1, 1, 1, 0, 0, 0}
	preds := []float64{1, 1, 0, 0, 0, 1}

	if got := Accuracy(labels, preds); math.Abs(got-4.0/6.0) > 1e-12 {
		t.Fatalf("accuracy: got %v", got)
	}
	if got := Precision(labels, preds); math.Abs(got-2.0/3.0) > 1e-12 {
		t.Fatalf("precision: got %v", got)
	}
	if got := Recall(labels, preds); math.Abs(got-2.0/3.0) > 1e-12 {
		t.Fatalf("recall: got %v", got)
	}
	if got := F1(labels, preds); math.Abs(got-2.0/3.0) > 1e-12 {
		t.Fatalf("f1: got %v", got)
	}
}

func TestROCAUC(t *testing.T) {
	labels := []float64{0, 0, 1, 1}
	perfect := []float64{0.1, 0.2, 0.8, 0.9}
	if got := ROCAUC(labels, perfect); got != 1 {
		t.Fatalf("expected AUC 1 for perfect ranking, got %v", got)
	}
	inverted := []float64{0.9, 0.8, 0.2, 0.1}
	if got := ROCAUC(labels, inverted); got != 0 {
		t.Fatalf("expected AUC 0 for inverted ranking, got %v", got)
	}
	if got := ROCAUC([]float64{1, 1}, []float64{0.5, 0.6}); got != 0.5 {
		t.Fatalf("expected AUC 0.5 for one-class labels, got %v", got)
	}
	tied := []float64{0.5, 0.5, 0.5, 0.5}
	if got := ROCAUC(labels, tied); got != 0.5 {
		t.Fatalf("expected AUC 0.5 under total ties, got %v", got)
	}
}

func TestRegressionMetrics(t *testing.T) {
	labels := []float64{1, 2, 3}
	preds := []float64{1, 2, 4}
	if got := MAE(labels, preds); math.Abs(got-1.0/3.0) > 1e-12 {
		t.Fatalf("mae: got %v", got)
	}
	if got := MSE(labels, preds); math.Abs(got-1.0/3.0) > 1e-12 {
		t.Fatalf("mse: got %v", got)
	}
	if got := R2(labels, labels); got != 1 {
		t.Fatalf("r2 of exact predictions should be 1, got %v", got)
	}
	if got := R2([]float64{2, 2, 2}, []float64{1, 2, 3}); got != 0 {
		t.Fatalf("r2 of constant labels should be 0, got %v", got)
	}
}

func TestClassificationSummary(t *testing.T) {
	labels := []float64{1, 0, 1, 0}
	probs := []float64{0.9, 0.1, 0.8, 0.2}
	m := Classification(labels, probs)
	if m["accuracy"] != 1 || m["auc"] != 1 || m["n"] != 4 {
		t.Fatalf("unexpected summary: %v", m)
	}
}
