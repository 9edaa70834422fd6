package features

import (
	"math"
	"time"

	"sequoia/internal/domain"
	"sequoia/internal/ta"
)

const featureSpecVersion = "v1"

// Windows are the lookbacks each feature family is computed over.
var Windows = []int{2, 5, 10, 20, 25}

type Engine struct {
	now func() time.Time
}

func NewEngine(now func() time.Time) *Engine {
	if now == nil {
		now = time.Now
	}
	return &Engine{now: now}
}

func FeatureSpecVersion() string {
	return featureSpecVersion
}

// CrossoverSides returns the moving-average crossover side per bar: long
// while the fast average sits at or above the slow one, short below. The
// signal is lagged one bar so it only uses information already closed.
func CrossoverSides(closes []float64, fastWindow, slowWindow int) []float64 {
	fast := ta.SMASeries(closes, fastWindow)
	slow := ta.SMASeries(closes, slowWindow)
	out := make([]float64, len(closes))
	for i := range out {
		out[i] = math.NaN()
		if i == 0 {
			continue
		}
		f, s := fast[i-1], slow[i-1]
		if math.IsNaN(f) || math.IsNaN(s) {
			continue
		}
		if f >= s {
			out[i] = float64(domain.SideLong)
		} else {
			out[i] = float64(domain.SideShort)
		}
	}
	return out
}

// BuildRows computes one feature row per event. Rows with any unresolved
// feature (warm-up windows) are dropped. Labels, when present for an event
// timestamp, attach the side-adjusted return and meta-label bin.
func (e *Engine) BuildRows(symbol string, bars []domain.Bar, events []domain.TripleBarrierEvent, labels []domain.Label) []domain.FeatureRow {
	if len(bars) == 0 || len(events) == 0 {
		return nil
	}

	closes := make([]float64, len(bars))
	barIdx := make(map[time.Time]int, len(bars))
	for i, b := range bars {
		closes[i] = b.Close
		barIdx[b.Timestamp] = i
	}

	logRet := ta.LogReturnSeries(closes)
	momentum := make(map[int][]float64, len(Windows))
	std := make(map[int][]float64, len(Windows))
	pctChange := make(map[int][]float64, len(Windows))
	diff := make(map[int][]float64, len(Windows))
	for _, w := range Windows {
		sma := ta.SMASeries(closes, w)
		mom := make([]float64, len(closes))
		for i := range mom {
			if math.IsNaN(sma[i]) || sma[i] == 0 {
				mom[i] = math.NaN()
			} else {
				mom[i] = closes[i]/sma[i] - 1
			}
		}
		momentum[w] = mom
		std[w] = ta.RollingStdSeries(logRet, w)
		pctChange[w] = ta.PctChangeSeries(closes, w)
		diff[w] = ta.DiffSeries(closes, w)
	}

	labelAt := make(map[time.Time]domain.Label, len(labels))
	for _, l := range labels {
		labelAt[l.EventTime] = l
	}

	now := e.now().UTC()
	rows := make([]domain.FeatureRow, 0, len(events))
	for _, ev := range events {
		i, ok := barIdx[ev.EventTime]
		if !ok {
			continue
		}
		row := domain.FeatureRow{
			Symbol:    symbol,
			EventTime: ev.EventTime,
			LogRet:    logRet[i],
			Side:      float64(ev.Side),
			CreatedAt: now,
			UpdatedAt: now,
		}
		row.Momentum2, row.Momentum5, row.Momentum10, row.Momentum20, row.Momentum25 = pick5(momentum, i)
		row.Std2, row.Std5, row.Std10, row.Std20, row.Std25 = pick5(std, i)
		row.PctChange2, row.PctChange5, row.PctChange10, row.PctChange20, row.PctChange25 = pick5(pctChange, i)
		row.Diff2, row.Diff5, row.Diff10, row.Diff20, row.Diff25 = pick5(diff, i)

		if rowHasNaN(row) {
			continue
		}
		if l, ok := labelAt[ev.EventTime]; ok {
			bin := l.Bin
			row.Ret = l.Ret
			row.Bin = &bin
		}
		rows = append(rows, row)
	}
	return rows
}

func pick5(series map[int][]float64, i int) (float64, float64, float64, float64, float64) {
	return series[2][i], series[5][i], series[10][i], series[20][i], series[25][i]
}

func rowHasNaN(row domain.FeatureRow) bool {
	for _, v := range []float64{
		row.LogRet,
		row.Momentum2, row.Momentum5, row.Momentum10, row.Momentum20, row.Momentum25,
		row.Std2, row.Std5, row.Std10, row.Std20, row.Std25,
		row.PctChange2, row.PctChange5, row.PctChange10, row.PctChange20, row.PctChange25,
		row.Diff2, row.Diff5, row.Diff10, row.Diff20, row.Diff25,
		row.Side,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return true
		}
	}
	return false
}
