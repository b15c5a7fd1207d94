package models

// SegmentStats holds the learned running statistics for one (segment, time bin)
// key. One row exists per key, seeded at GTFS import time with n=0 and the
// schedule baseline, then mutated in place once per admitted observation.
type SegmentStats struct {
	SegmentID int64 `json:"segment_id" db:"segment_id"`
	BinID     int   `json:"bin_id" db:"bin_id"`

	// Exact all-time running statistics (Welford)
	N           int64   `json:"n" db:"n"`
	WelfordMean float64 `json:"welford_mean" db:"welford_mean"`
	WelfordM2   float64 `json:"welford_m2" db:"welford_m2"`

	// Recency-weighted statistics (time-decayed EMA)
	EMAMean float64 `json:"ema_mean" db:"ema_mean"`
	EMAVar  float64 `json:"ema_var" db:"ema_var"`

	// GTFS schedule baseline in seconds; written once at import, never
	// touched by observations
	ScheduleMean float64 `json:"schedule_mean" db:"schedule_mean"`

	// Unix timestamp of the most recent admitted observation; nil until the
	// first one
	LastUpdate *int64 `json:"last_update,omitempty" db:"last_update"`
}

// Estimate is the output of the blend and percentile engine for one
// (segment, bin) query.
type Estimate struct {
	DurationSec float64 `json:"duration_sec"`
	P50Sec      float64 `json:"p50_sec"`
	P90Sec      float64 `json:"p90_sec"`
	BlendWeight float64 `json:"blend_weight"`
	Confidence  string  `json:"confidence"`
	SamplesUsed int64   `json:"samples_used"`
}

// Confidence tiers derived from sample count.
const (
	ConfidenceHigh   = "high"
	ConfidenceMedium = "medium"
	ConfidenceLow    = "low"
)
