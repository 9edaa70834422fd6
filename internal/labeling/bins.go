package labeling

import "sequoia/internal/domain"

// Bins turns resolved events into labels. With meta labeling the return is
// side-adjusted and the bin is 1 only when the side prediction paid off;
// otherwise the bin is the sign of the raw return. Events whose end time is
// missing from the series are dropped.
func Bins(events []domain.TripleBarrierEvent, s *Series, meta bool) []domain.Label {
	labels := make([]domain.Label, 0, len(events))
	for _, e := range events {
		i0, ok0 := s.Index(e.EventTime)
		i1, ok1 := s.Index(e.EndTime)
		if !ok0 || !ok1 || s.Closes[i0] == 0 {
			continue
		}
		ret := s.Closes[i1]/s.Closes[i0] - 1
		var bin float64
		if meta {
			ret *= float64(e.Side)
			if ret > 0 {
				bin = 1
			}
		} else {
			switch {
			case ret > 0:
				bin = 1
			case ret < 0:
				bin = -1
			}
		}
		labels = append(labels, domain.Label{EventTime: e.EventTime, Ret: ret, Bin: bin})
	}
	return labels
}
