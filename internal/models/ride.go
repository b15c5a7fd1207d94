package models

import (
	"errors"
	"fmt"
	"time"
)

// ObservationWindow bounds how far in the past an observation timestamp may
// fall. Future timestamps are always rejected.
const ObservationWindow = 7 * 24 * time.Hour

// SegmentObservation is a single crowd-sourced duration measurement inside a
// ride submission.
type SegmentObservation struct {
	FromStopID  string   `json:"from_stop_id" binding:"required"`
	ToStopID    string   `json:"to_stop_id" binding:"required"`
	DurationSec float64  `json:"duration_sec" binding:"required"`
	DwellSec    *float64 `json:"dwell_sec,omitempty"`

	// ISO-8601 UTC timestamp of the observation, e.g. "2025-10-22T10:33:00Z"
	ObservedAtUTC string `json:"observed_at_utc" binding:"required"`

	// Routes a weekday observation into the weekend time-bin partition
	IsHoliday bool `json:"is_holiday"`

	// Map-matching confidence computed by the client pipeline; defaults to
	// 1.0 when omitted
	MapmatchConf *float64 `json:"mapmatch_conf,omitempty"`
}

// Confidence returns the map-match confidence, defaulting to 1.0.
func (o *SegmentObservation) Confidence() float64 {
	if o.MapmatchConf == nil {
		return 1.0
	}
	return *o.MapmatchConf
}

// ObservedTime parses the observation timestamp.
func (o *SegmentObservation) ObservedTime() (time.Time, error) {
	t, err := time.Parse(time.RFC3339, o.ObservedAtUTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("observed_at_utc must be an ISO-8601 UTC timestamp: %w", err)
	}
	return t, nil
}

// RideSubmission is the ephemeral request entity for one crowd-sourced ride.
// It is not persisted beyond an audit row.
type RideSubmission struct {
	RouteID      string               `json:"route_id" binding:"required"`
	DirectionID  int                  `json:"direction_id"`
	DeviceBucket string               `json:"device_bucket,omitempty"`
	Segments     []SegmentObservation `json:"segments" binding:"required"`
}

// Validation errors surfaced to the HTTP layer as whole-submission failures.
var (
	ErrNoSegments         = errors.New("ride must contain at least one segment")
	ErrInvalidDirection   = errors.New("direction_id must be 0 or 1")
	ErrInvalidDuration    = errors.New("duration_sec must be positive")
	ErrInvalidConfidence  = errors.New("mapmatch_conf must be between 0 and 1")
	ErrInvalidBucket      = errors.New("device_bucket must be a 64-character hex string")
	ErrObservationTooOld  = errors.New("observed_at_utc is older than the accepted window")
	ErrObservationFuture  = errors.New("observed_at_utc cannot be in the future")
)

// Validate checks the whole submission against client-input rules. The time
// window is evaluated against the supplied now so validation stays
// deterministic under test.
func (r *RideSubmission) Validate(now time.Time) error {
	if len(r.Segments) == 0 {
		return ErrNoSegments
	}
	if r.DirectionID != 0 && r.DirectionID != 1 {
		return ErrInvalidDirection
	}
	if r.DeviceBucket != "" && !isHexBucket(r.DeviceBucket) {
		return ErrInvalidBucket
	}
	for i := range r.Segments {
		obs := &r.Segments[i]
		if obs.DurationSec <= 0 {
			return fmt.Errorf("segment %d: %w", i, ErrInvalidDuration)
		}
		if c := obs.Confidence(); c < 0 || c > 1 {
			return fmt.Errorf("segment %d: %w", i, ErrInvalidConfidence)
		}
		t, err := obs.ObservedTime()
		if err != nil {
			return fmt.Errorf("segment %d: %w", i, err)
		}
		if t.After(now) {
			return fmt.Errorf("segment %d: %w", i, ErrObservationFuture)
		}
		if now.Sub(t) > ObservationWindow {
			return fmt.Errorf("segment %d: %w", i, ErrObservationTooOld)
		}
	}
	return nil
}

func isHexBucket(s string) bool {
	if len(s) != 64 {
		return false
	}
	for _, c := range s {
		switch {
		case c >= '0' && c <= '9':
		case c >= 'a' && c <= 'f':
		case c >= 'A' && c <= 'F':
		default:
			return false
		}
	}
	return true
}

// RideSummaryResponse is the POST /v1/ride_summary response body.
type RideSummaryResponse struct {
	AcceptedSegments int            `json:"accepted_segments"`
	RejectedSegments int            `json:"rejected_segments"`
	RejectedByReason map[string]int `json:"rejected_by_reason"`
}
