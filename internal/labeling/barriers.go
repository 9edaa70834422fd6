package labeling

import "time"

// VerticalBarriers maps each event time to the first bar at or after
// eventTime + numDays days. Events whose barrier falls past the end of the
// data get a zero time and are dropped by Events.
func VerticalBarriers(eventTimes []time.Time, s *Series, numDays int) []time.Time {
	out := make([]time.Time, len(eventTimes))
	horizon := time.Duration(numDays) * 24 * time.Hour
	for i, t := range eventTimes {
		j := s.SearchCeil(t.Add(horizon))
		if j >= s.Len() {
			continue
		}
		out[i] = s.Times[j]
	}
	return out
}
