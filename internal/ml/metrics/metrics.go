package metrics

import (
	"math"
	"sort"
)

// Accuracy over hard {0,1} (or {-1,1}) predictions.
func Accuracy(labels, preds []float64) float64 {
	n := len(labels)
	if n == 0 || len(preds) != n {
		return 0
	}
	hits := 0.0
	for i := range labels {
		if labels[i] == preds[i] {
			hits++
		}
	}
	return hits / float64(n)
}

func Precision(labels, preds []float64) float64 {
	tp, fp, _, _ := confusion(labels, preds)
	if tp+fp == 0 {
		return 0
	}
	return tp / (tp + fp)
}

func Recall(labels, preds []float64) float64 {
	tp, _, _, fn := confusion(labels, preds)
	if tp+fn == 0 {
		return 0
	}
	return tp / (tp + fn)
}

func F1(labels, preds []float64) float64 {
	p := Precision(labels, preds)
	r := Recall(labels, preds)
	if p+r == 0 {
		return 0
	}
	return 2 * p * r / (p + r)
}

// ROCAUC is the rank-based (Mann-Whitney) AUC of scores against binary
// labels. Degenerate label sets score 0.5.
func ROCAUC(labels, scores []float64) float64 {
	type pair struct {
		s float64
		y float64
	}
	n := len(labels)
	if n == 0 || len(scores) != n {
		return 0.5
	}
	pairs := make([]pair, n)
	pos, neg := 0.0, 0.0
	for i := range labels {
		pairs[i] = pair{s: scores[i], y: labels[i]}
		if labels[i] >= 0.5 {
			pos++
		} else {
			neg++
		}
	}
	if pos == 0 || neg == 0 {
		return 0.5
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].s < pairs[j].s })

	sumRankPos := 0.0
	rank := 1.0
	for i := 0; i < len(pairs); {
		j := i + 1
		for j < len(pairs) && math.Abs(pairs[j].s-pairs[i].s) < 1e-12 {
			j++
		}
		avgRank := (rank + float64(j)) / 2
		for k := i; k < j; k++ {
			if pairs[k].y >= 0.5 {
				sumRankPos += avgRank
			}
		}
		rank = float64(j + 1)
		i = j
	}
	auc := (sumRankPos - (pos*(pos+1))/2) / (pos * neg)
	if math.IsNaN(auc) || math.IsInf(auc, 0) {
		return 0.5
	}
	return auc
}

func MAE(labels, preds []float64) float64 {
	n := len(labels)
	if n == 0 || len(preds) != n {
		return 0
	}
	var sum float64
	for i := range labels {
		sum += math.Abs(labels[i] - preds[i])
	}
	return sum / float64(n)
}

func MSE(labels, preds []float64) float64 {
	n := len(labels)
	if n == 0 || len(preds) != n {
		return 0
	}
	var sum float64
	for i := range labels {
		d := labels[i] - preds[i]
		sum += d * d
	}
	return sum / float64(n)
}

// R2 is the coefficient of determination; a constant label vector scores 0.
func R2(labels, preds []float64) float64 {
	n := len(labels)
	if n == 0 || len(preds) != n {
		return 0
	}
	var mean float64
	for _, y := range labels {
		mean += y
	}
	mean /= float64(n)
	var ssRes, ssTot float64
	for i := range labels {
		d := labels[i] - preds[i]
		ssRes += d * d
		t := labels[i] - mean
		ssTot += t * t
	}
	if ssTot == 0 {
		return 0
	}
	return 1 - ssRes/ssTot
}

// Classification summarizes a binary run from probabilities at a 0.5 cut.
func Classification(labels, probs []float64) map[string]float64 {
	preds := make([]float64, len(probs))
	for i, p := range probs {
		if p >= 0.5 {
			preds[i] = 1
		}
	}
	return map[string]float64{
		"accuracy":  Accuracy(labels, preds),
		"precision": Precision(labels, preds),
		"recall":    Recall(labels, preds),
		"f1":        F1(labels, preds),
		"auc":       ROCAUC(labels, probs),
		"n":         float64(len(labels)),
	}
}

func confusion(labels, preds []float64) (tp, fp, tn, fn float64) {
	if len(labels) != len(preds) {
		return 0, 0, 0, 0
	}
	for i := range labels {
		predPos := preds[i] >= 0.5
		pos := labels[i] >= 0.5
		switch {
		case predPos && pos:
			tp++
		case predPos && !pos:
			fp++
		case !predPos && !pos:
			tn++
		default:
			fn++
		}
	}
	return tp, fp, tn, fn
}
