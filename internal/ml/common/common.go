package common

import (
	"math"

	"sequoia/internal/domain"
)

const (
	ModelKeySequential = "seqboot_bagging"
	ModelKeyStandard   = "standard_bagging"
)

// FeatureNames lists the engineered features in vector order.
var FeatureNames = []string{
	"log_ret",
	"momentum_2", "momentum_5", "momentum_10", "momentum_20", "momentum_25",
	"std_2", "std_5", "std_10", "std_20", "std_25",
	"pct_change_2", "pct_change_5", "pct_change_10", "pct_change_20", "pct_change_25",
	"diff_2", "diff_5", "diff_10", "diff_20", "diff_25",
}

// FeatureVector flattens a row into FeatureNames order.
func FeatureVector(row domain.FeatureRow) []float64 {
	return []float64{
		row.LogRet,
		row.Momentum2, row.Momentum5, row.Momentum10, row.Momentum20, row.Momentum25,
		row.Std2, row.Std5, row.Std10, row.Std20, row.Std25,
		row.PctChange2, row.PctChange5, row.PctChange10, row.PctChange20, row.PctChange25,
		row.Diff2, row.Diff5, row.Diff10, row.Diff20, row.Diff25,
	}
}

// TargetLabel returns the resolved bin for a row, if any.
func TargetLabel(row domain.FeatureRow) (float64, bool) {
	if row.Bin == nil {
		return 0, false
	}
	return *row.Bin, true
}

func Clamp01(v float64) float64 {
	if math.IsNaN(v) {
		return 0.5
	}
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
