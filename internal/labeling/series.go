package labeling

import (
	"errors"
	"fmt"
	"time"
)

// Series is a close-price series indexed by bar timestamp.
type Series struct {
	Times  []time.Time
	Closes []float64

	idx map[time.Time]int
}

// NewSeries validates that timestamps are strictly increasing and builds the
// timestamp index.
func NewSeries(times []time.Time, closes []float64) (*Series, error) {
	if len(times) == 0 {
		return nil, errors.New("empty price series")
	}
	if len(times) != len(closes) {
		return nil, fmt.Errorf("timestamp/close length mismatch: %d vs %d", len(times), len(closes))
	}
	idx := make(map[time.Time]int, len(times))
	for i, ts := range times {
		if i > 0 && !ts.After(times[i-1]) {
			return nil, fmt.Errorf("timestamps must be strictly increasing at index %d (%s)", i, ts)
		}
		idx[ts] = i
	}
	return &Series{Times: times, Closes: closes, idx: idx}, nil
}

// Index returns the position of an exact timestamp.
func (s *Series) Index(t time.Time) (int, bool) {
	i, ok := s.idx[t]
	return i, ok
}

// SearchCeil returns the first index whose timestamp is not before t, or
// len(Times) when every bar is earlier.
func (s *Series) SearchCeil(t time.Time) int {
	lo, hi := 0, len(s.Times)
	for lo < hi {
		mid := (lo + hi) / 2
		if s.Times[mid].Before(t) {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return lo
}

// SearchFloor returns the last index whose timestamp is not after t, or -1.
func (s *Series) SearchFloor(t time.Time) int {
	return s.SearchCeil(t.Add(time.Nanosecond)) - 1
}

func (s *Series) Len() int { return len(s.Times) }
