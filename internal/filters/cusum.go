package filters

import (
	"math"
	"time"

	"sequoia/internal/ta"
)

// CUSUM is a symmetric cumulative-sum filter over log returns. It emits the
// timestamp of every bar at which the running positive or negative drift
// exceeds threshold, resetting the breached side to zero.
func CUSUM(timestamps []time.Time, closes []float64, threshold float64) []time.Time {
	if threshold <= 0 || len(closes) != len(timestamps) {
		return nil
	}
	rets := ta.LogReturnSeries(closes)

	var events []time.Time
	var sPos, sNeg float64
	for i := 1; i < len(rets); i++ {
		r := rets[i]
		if math.IsNaN(r) {
			continue
		}
		sPos = math.Max(0, sPos+r)
		sNeg = math.Min(0, sNeg+r)
		if sNeg < -threshold {
			sNeg = 0
			events = append(events, timestamps[i])
		} else if sPos > threshold {
			sPos = 0
			events = append(events, timestamps[i])
		}
	}
	return events
}
