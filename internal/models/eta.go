package models

// SegmentInfo echoes the queried segment identity in the ETA response.
type SegmentInfo struct {
	RouteID     string `json:"route_id"`
	DirectionID int    `json:"direction_id"`
	FromStopID  string `json:"from_stop_id"`
	ToStopID    string `json:"to_stop_id"`
}

// ScheduledInfo carries the GTFS baseline for the queried segment.
type ScheduledInfo struct {
	DurationSec float64 `json:"duration_sec"`
	ServiceID   *string `json:"service_id"`
	Source      string  `json:"source"`
}

// PredictionInfo carries the learned prediction for the queried segment.
type PredictionInfo struct {
	PredictedDurationSec float64 `json:"predicted_duration_sec"`
	P50Sec               float64 `json:"p50_sec"`
	P90Sec               float64 `json:"p90_sec"`
	Confidence           string  `json:"confidence"`
	BlendWeight          float64 `json:"blend_weight"`
	SamplesUsed          int64   `json:"samples_used"`
	BinID                int     `json:"bin_id"`
	LastUpdated          string  `json:"last_updated"`
	ModelVersion         string  `json:"model_version"`
}

// ETAResponse is the GET /v1/eta response. The nested segment/scheduled/
// prediction objects are the current format; the flat fields duplicate them
// for clients still on the pre-1.1 shape.
type ETAResponse struct {
	Segment    SegmentInfo    `json:"segment"`
	QueryTime  string         `json:"query_time"`
	Scheduled  ScheduledInfo  `json:"scheduled"`
	Prediction PredictionInfo `json:"prediction"`

	// Deprecated flat fields, kept for backward compatibility
	ETASec        float64 `json:"eta_sec"`
	P50Sec        float64 `json:"p50_sec"`
	P90Sec        float64 `json:"p90_sec"`
	N             int64   `json:"n"`
	BlendWeight   float64 `json:"blend_weight"`
	ScheduleSec   float64 `json:"schedule_sec"`
	LowConfidence bool    `json:"low_confidence"`
	BinID         int     `json:"bin_id"`
	LastUpdated   string  `json:"last_updated"`
}

// ConfigResponse is the GET /v1/config response.
type ConfigResponse struct {
	N0                 int     `json:"n0"`
	TimeBinMinutes     int     `json:"time_bin_minutes"`
	HalfLifeDays       int     `json:"half_life_days"`
	EMAAlpha           float64 `json:"ema_alpha"`
	OutlierSigma       float64 `json:"outlier_sigma"`
	MapmatchMinConf    float64 `json:"mapmatch_min_conf"`
	MaxSegmentsPerRide int     `json:"max_segments_per_ride"`
	StaleThresholdDays int     `json:"stale_threshold_days"`
	RateLimitPerHour   int     `json:"rate_limit_per_hour"`
	IdempotencyTTLHrs  int     `json:"idempotency_ttl_hours"`
	GTFSVersion        string  `json:"gtfs_version"`
	ServerVersion      string  `json:"server_version"`
}

// HealthResponse is the GET /v1/health response.
type HealthResponse struct {
	Status    string `json:"status"`
	DBOk      bool   `json:"db_ok"`
	UptimeSec int64  `json:"uptime_sec"`
}
