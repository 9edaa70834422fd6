package ta

import "math"

func MeanStd(values []float64) (float64, float64) {
	if len(values) == 0 {
		return 0, 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(len(values))
	var variance float64
	for _, v := range values {
		d := v - mean
		variance += d * d
	}
	variance /= float64(len(values))
	return mean, math.Sqrt(variance)
}

// SMASeries returns the simple moving average with a full-window minimum:
// entries before the first complete window are NaN.
func SMASeries(values []float64, period int) []float64 {
	out := nanSeries(len(values))
	if period <= 0 || len(values) < period {
		return out
	}
	var sum float64
	for i, v := range values {
		sum += v
		if i >= period {
			sum -= values[i-period]
		}
		if i >= period-1 {
			out[i] = sum / float64(period)
		}
	}
	return out
}

// RollingStdSeries returns the sample standard deviation over a trailing
// window. NaN until the window fills or while the window contains NaN.
func RollingStdSeries(values []float64, period int) []float64 {
	out := nanSeries(len(values))
	if period <= 1 {
		return out
	}
	for i := period - 1; i < len(values); i++ {
		window := values[i-period+1 : i+1]
		if anyNaN(window) {
			continue
		}
		mean, _ := MeanStd(window)
		var variance float64
		for _, v := range window {
			d := v - mean
			variance += d * d
		}
		out[i] = math.Sqrt(variance / float64(period-1))
	}
	return out
}

// PctChangeSeries returns values[i]/values[i-lag] - 1.
func PctChangeSeries(values []float64, lag int) []float64 {
	out := nanSeries(len(values))
	if lag <= 0 {
		return out
	}
	for i := lag; i < len(values); i++ {
		if values[i-lag] == 0 {
			continue
		}
		out[i] = values[i]/values[i-lag] - 1
	}
	return out
}

// DiffSeries returns values[i] - values[i-lag].
func DiffSeries(values []float64, lag int) []float64 {
	out := nanSeries(len(values))
	if lag <= 0 {
		return out
	}
	for i := lag; i < len(values); i++ {
		out[i] = values[i] - values[i-lag]
	}
	return out
}

// LogReturnSeries returns one-step log returns, NaN at index 0.
func LogReturnSeries(values []float64) []float64 {
	out := nanSeries(len(values))
	for i := 1; i < len(values); i++ {
		if values[i] <= 0 || values[i-1] <= 0 {
			continue
		}
		out[i] = math.Log(values[i]) - math.Log(values[i-1])
	}
	return out
}

// EWMStdSeries returns the exponentially weighted standard deviation with the
// given span (adjusted weights, bias-corrected variance). NaN inputs are
// skipped and keep NaN outputs.
func EWMStdSeries(values []float64, span int) []float64 {
	out := nanSeries(len(values))
	if span < 1 {
		return out
	}
	alpha := 2.0 / (float64(span) + 1.0)
	decay := 1 - alpha

	var sumW, sumW2, sumWX, sumWX2 float64
	for i, v := range values {
		if math.IsNaN(v) {
			continue
		}
		sumW = sumW*decay + 1
		sumW2 = sumW2*decay*decay + 1
		sumWX = sumWX*decay + v
		sumWX2 = sumWX2*decay + v*v

		mean := sumWX / sumW
		biased := sumWX2/sumW - mean*mean
		denom := sumW*sumW - sumW2
		if denom <= 0 {
			continue
		}
		variance := biased * sumW * sumW / denom
		if variance < 0 {
			variance = 0
		}
		out[i] = math.Sqrt(variance)
	}
	return out
}

func anyNaN(values []float64) bool {
	for _, v := range values {
		if math.IsNaN(v) {
			return true
		}
	}
	return false
}

func nanSeries(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}
