package domain

import "time"

// Bar represents a single OHLCV price bar. Bars for a symbol are keyed by
// timestamp and must be strictly increasing in time.
type Bar struct {
	Symbol    string    `json:"symbol"`
	Timestamp time.Time `json:"timestamp"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    float64   `json:"volume"`
}

// DefaultSymbol is used when imported data carries no symbol column.
const DefaultSymbol = "SPX"
