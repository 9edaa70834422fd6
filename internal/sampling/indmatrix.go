package sampling

import (
	"errors"
	"fmt"
	"time"

	"sequoia/internal/domain"
)

// IndicatorMatrix marks which bars each event's lifespan covers. Rows are bar
// timestamps, columns are events; because an event covers a contiguous run of
// bars, each column is stored as a [start, end] row range.
type IndicatorMatrix struct {
	BarTimes   []time.Time
	EventTimes []time.Time

	starts []int
	ends   []int
	colIdx map[time.Time]int
}

// NewIndicatorMatrix builds the matrix over the given bar timestamps. Bar
// timestamps must be ordered; events must fall inside them.
func NewIndicatorMatrix(barTimes []time.Time, events []domain.TripleBarrierEvent) (*IndicatorMatrix, error) {
	if len(barTimes) == 0 {
		return nil, errors.New("no bar timestamps")
	}
	if len(events) == 0 {
		return nil, errors.New("no events")
	}
	rowIdx := make(map[time.Time]int, len(barTimes))
	for i, ts := range barTimes {
		if i > 0 && !ts.After(barTimes[i-1]) {
			return nil, fmt.Errorf("bar timestamps must be strictly increasing at index %d", i)
		}
		rowIdx[ts] = i
	}

	m := &IndicatorMatrix{
		BarTimes:   barTimes,
		EventTimes: make([]time.Time, 0, len(events)),
		starts:     make([]int, 0, len(events)),
		ends:       make([]int, 0, len(events)),
		colIdx:     make(map[time.Time]int, len(events)),
	}
	for _, e := range events {
		start, ok := rowIdx[e.EventTime]
		if !ok {
			return nil, fmt.Errorf("event time %s not found in bars", e.EventTime)
		}
		end, ok := rowIdx[e.EndTime]
		if !ok {
			return nil, fmt.Errorf("event end time %s not found in bars", e.EndTime)
		}
		if end < start {
			return nil, fmt.Errorf("event at %s ends before it starts", e.EventTime)
		}
		m.colIdx[e.EventTime] = len(m.EventTimes)
		m.EventTimes = append(m.EventTimes, e.EventTime)
		m.starts = append(m.starts, start)
		m.ends = append(m.ends, end)
	}
	return m, nil
}

// Dims returns (rows, columns).
func (m *IndicatorMatrix) Dims() (int, int) {
	return len(m.BarTimes), len(m.EventTimes)
}

// At reports whether bar row r lies inside event column c.
func (m *IndicatorMatrix) At(r, c int) int {
	if r >= m.starts[c] && r <= m.ends[c] {
		return 1
	}
	return 0
}

// ColumnIndex maps an event timestamp to its column.
func (m *IndicatorMatrix) ColumnIndex(t time.Time) (int, bool) {
	c, ok := m.colIdx[t]
	return c, ok
}

// SubMatrix returns a view restricted to the given columns, preserving order.
func (m *IndicatorMatrix) SubMatrix(cols []int) *IndicatorMatrix {
	out := &IndicatorMatrix{
		BarTimes:   m.BarTimes,
		EventTimes: make([]time.Time, 0, len(cols)),
		starts:     make([]int, 0, len(cols)),
		ends:       make([]int, 0, len(cols)),
		colIdx:     make(map[time.Time]int, len(cols)),
	}
	for _, c := range cols {
		out.colIdx[m.EventTimes[c]] = len(out.EventTimes)
		out.EventTimes = append(out.EventTimes, m.EventTimes[c])
		out.starts = append(out.starts, m.starts[c])
		out.ends = append(out.ends, m.ends[c])
	}
	return out
}

// Concurrency returns, per bar row, how many of the given columns cover it.
// A nil cols means all columns.
func (m *IndicatorMatrix) Concurrency(cols []int) []float64 {
	acc := make([]float64, len(m.BarTimes))
	if cols == nil {
		for c := range m.EventTimes {
			for r := m.starts[c]; r <= m.ends[c]; r++ {
				acc[r]++
			}
		}
		return acc
	}
	for _, c := range cols {
		for r := m.starts[c]; r <= m.ends[c]; r++ {
			acc[r]++
		}
	}
	return acc
}

// Uniqueness returns the average uniqueness of column c against a concurrency
// vector: the mean over the column's rows of 1/(concurrency+1), counting the
// column itself via the +1.
func (m *IndicatorMatrix) Uniqueness(c int, concurrency []float64) float64 {
	span := float64(m.ends[c] - m.starts[c] + 1)
	var sum float64
	for r := m.starts[c]; r <= m.ends[c]; r++ {
		sum += 1 / (concurrency[r] + 1)
	}
	return sum / span
}

// AverageUniqueness is the mean over all columns of each column's uniqueness
// when every event is active.
func (m *IndicatorMatrix) AverageUniqueness() float64 {
	if len(m.EventTimes) == 0 {
		return 0
	}
	conc := m.Concurrency(nil)
	var sum float64
	for c := range m.EventTimes {
		span := float64(m.ends[c] - m.starts[c] + 1)
		var s float64
		for r := m.starts[c]; r <= m.ends[c]; r++ {
			s += 1 / conc[r]
		}
		sum += s / span
	}
	return sum / float64(len(m.EventTimes))
}
