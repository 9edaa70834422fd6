package labeling

import (
	"math"
	"time"

	"sequoia/internal/ta"
)

// DailyVol estimates per-bar volatility as the return against the latest bar
// at least one day older, smoothed by an exponentially weighted std with
// span = lookback. Bars without a day-old predecessor stay NaN.
func DailyVol(s *Series, lookback int) []float64 {
	rets := make([]float64, s.Len())
	for i := range rets {
		rets[i] = math.NaN()
	}
	for i, ts := range s.Times {
		j := s.SearchFloor(ts.Add(-24 * time.Hour))
		if j < 0 || s.Closes[j] == 0 {
			continue
		}
		rets[i] = s.Closes[i]/s.Closes[j] - 1
	}
	return ta.EWMStdSeries(rets, lookback)
}
