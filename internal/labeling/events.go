package labeling

import (
	"math"
	"sync"
	"time"

	"sequoia/internal/domain"
)

// EventsConfig controls the triple-barrier search.
type EventsConfig struct {
	ProfitTake float64 // multiple of the target on the side-adjusted return
	StopLoss   float64
	MinRet     float64 // events with a smaller target are discarded
	NumWorkers int
}

// Events runs the triple-barrier search for each filtered event time.
// target and sides are aligned to the bar series; sides may be nil, in which
// case every event is long. vertical is aligned to eventTimes. The returned
// events are ordered by event time; unresolved events (NaN target/side, no
// vertical barrier, target below MinRet) are dropped.
func Events(s *Series, eventTimes []time.Time, target []float64, vertical []time.Time, sides []float64, cfg EventsConfig) []domain.TripleBarrierEvent {
	if cfg.NumWorkers <= 0 {
		cfg.NumWorkers = 1
	}
	out := make([]*domain.TripleBarrierEvent, len(eventTimes))

	var wg sync.WaitGroup
	work := make(chan int)
	for w := 0; w < cfg.NumWorkers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range work {
				out[i] = applyBarriers(s, eventTimes[i], target, vertical[i], sides, cfg)
			}
		}()
	}
	for i := range eventTimes {
		work <- i
	}
	close(work)
	wg.Wait()

	events := make([]domain.TripleBarrierEvent, 0, len(eventTimes))
	for _, e := range out {
		if e != nil {
			events = append(events, *e)
		}
	}
	return events
}

func applyBarriers(s *Series, t0 time.Time, target []float64, vertical time.Time, sides []float64, cfg EventsConfig) *domain.TripleBarrierEvent {
	i0, ok := s.Index(t0)
	if !ok || vertical.IsZero() {
		return nil
	}
	trgt := target[i0]
	if math.IsNaN(trgt) || trgt < cfg.MinRet {
		return nil
	}
	side := 1.0
	if sides != nil {
		side = sides[i0]
		if math.IsNaN(side) {
			return nil
		}
	}
	iEnd, ok := s.Index(vertical)
	if !ok {
		return nil
	}

	end := vertical
	entry := s.Closes[i0]
	for i := i0 + 1; i <= iEnd; i++ {
		adj := (s.Closes[i]/entry - 1) * side
		if cfg.ProfitTake > 0 && adj >= cfg.ProfitTake*trgt {
			end = s.Times[i]
			break
		}
		if cfg.StopLoss > 0 && adj <= -cfg.StopLoss*trgt {
			end = s.Times[i]
			break
		}
	}
	return &domain.TripleBarrierEvent{
		EventTime: t0,
		EndTime:   end,
		Target:    trgt,
		Side:      domain.Side(side),
	}
}
