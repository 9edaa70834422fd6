package domain

import "time"

// Side is the direction predicted by the primary model at an event.
type Side float64

const (
	SideLong  Side = 1
	SideShort Side = -1
)

// TripleBarrierEvent is one labeled event window. EventTime is the bar that
// triggered the event, EndTime the bar at which the first barrier was touched
// (profit-take, stop-loss, or the vertical barrier).
type TripleBarrierEvent struct {
	EventTime time.Time `json:"event_time"`
	EndTime   time.Time `json:"end_time"`
	Target    float64   `json:"target"`
	Side      Side      `json:"side"`
}

// Label is the outcome of an event: the side-adjusted return over the event
// window and the meta-label bin (1 when the side prediction paid off).
type Label struct {
	EventTime time.Time `json:"event_time"`
	Ret       float64   `json:"ret"`
	Bin       float64   `json:"bin"`
}

// FeatureRow holds the engineered features for one event timestamp.
// Bin is nil until the event's barriers resolve.
type FeatureRow struct {
	Symbol    string    `json:"symbol"`
	EventTime time.Time `json:"event_time"`

	LogRet float64 `json:"log_ret"`

	Momentum2  float64 `json:"momentum_2"`
	Momentum5  float64 `json:"momentum_5"`
	Momentum10 float64 `json:"momentum_10"`
	Momentum20 float64 `json:"momentum_20"`
	Momentum25 float64 `json:"momentum_25"`

	Std2  float64 `json:"std_2"`
	Std5  float64 `json:"std_5"`
	Std10 float64 `json:"std_10"`
	Std20 float64 `json:"std_20"`
	Std25 float64 `json:"std_25"`

	PctChange2  float64 `json:"pct_change_2"`
	PctChange5  float64 `json:"pct_change_5"`
	PctChange10 float64 `json:"pct_change_10"`
	PctChange20 float64 `json:"pct_change_20"`
	PctChange25 float64 `json:"pct_change_25"`

	Diff2  float64 `json:"diff_2"`
	Diff5  float64 `json:"diff_5"`
	Diff10 float64 `json:"diff_10"`
	Diff20 float64 `json:"diff_20"`
	Diff25 float64 `json:"diff_25"`

	Side float64  `json:"side"`
	Ret  float64  `json:"ret"`
	Bin  *float64 `json:"bin,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ModelVersion is one trained ensemble artifact in the registry.
type ModelVersion struct {
	ID              int64
	ModelKey        string
	Version         int
	FeatureVersion  string
	TrainedFrom     time.Time
	TrainedTo       time.Time
	TrainedAt       time.Time
	HyperparamsJSON string
	MetricsJSON     string
	ArtifactFormat  string
	ArtifactBlob    []byte
	IsActive        bool
	ActivatedAt     *time.Time
	CreatedAt       time.Time
}

// Prediction is a stored ensemble prediction for one event row.
type Prediction struct {
	ID          int64     `json:"id"`
	ModelKey    string    `json:"model_key"`
	Version     int       `json:"version"`
	Symbol      string    `json:"symbol"`
	EventTime   time.Time `json:"event_time"`
	Prob        float64   `json:"prob"`
	PredictedAt time.Time `json:"predicted_at"`
}
