package models

// Segment represents a directed stop-to-stop piece of a bus route.
// Identity is (route_id, direction_id, from_stop_id, to_stop_id); rows are
// created during GTFS import and never mutated afterwards.
type Segment struct {
	ID int64 `json:"segment_id" db:"segment_id"`

	// Identity
	RouteID     string `json:"route_id" db:"route_id"`
	DirectionID int    `json:"direction_id" db:"direction_id"`
	FromStopID  string `json:"from_stop_id" db:"from_stop_id"`
	ToStopID    string `json:"to_stop_id" db:"to_stop_id"`

	// Straight-line stop-to-stop distance, computed at import time
	DistanceMeters float64 `json:"distance_m,omitempty" db:"distance_m"`
}

// SegmentKey is the natural identity of a segment, used for lookups before
// the surrogate ID is known.
type SegmentKey struct {
	RouteID     string
	DirectionID int
	FromStopID  string
	ToStopID    string
}
