// Package ingest runs the per-submission loop: resolve each observation to
// its (segment, bin) key, run the admission filter, apply the estimator
// update on acceptance and aggregate accept/reject counts.
package ingest

import (
	"errors"
	"fmt"
	"time"

	"github.com/kkin1995/bmtc-transit-app/internal/learning"
	"github.com/kkin1995/bmtc-transit-app/internal/models"
	"github.com/kkin1995/bmtc-transit-app/internal/timebin"
)

// Store is the persistence surface the orchestrator needs. The service layer
// backs it with transaction-scoped repositories so a storage failure on any
// segment aborts the whole submission with nothing committed.
type Store interface {
	// ResolveSegment returns nil when the identity is unknown.
	ResolveSegment(key models.SegmentKey) (*models.Segment, error)

	// GetStats returns nil when no row exists for the key.
	GetStats(segmentID int64, binID int) (*models.SegmentStats, error)

	// PutStats writes back an updated row.
	PutStats(stats models.SegmentStats) error
}

// Whole-submission failures. An unknown segment is a client/schema mismatch,
// not a data-quality problem, so it fails the submission instead of being
// counted as a rejection.
var (
	ErrUnknownSegment    = errors.New("unknown segment")
	ErrTooManySegments   = errors.New("too many segments in ride")
	ErrInvalidSubmission = errors.New("invalid submission")
)

// SegmentOutcome is the processed result for one observation, in submission
// order. The service layer forwards these to the audit log.
type SegmentOutcome struct {
	Seq        int
	SegmentID  int64
	BinID      int
	ObservedAt time.Time
	Accepted   bool
	Reason     learning.RejectReason
}

// Result aggregates a processed submission.
type Result struct {
	Accepted         int
	Rejected         int
	RejectedByReason map[string]int
	Outcomes         []SegmentOutcome
}

// Orchestrator processes ride submissions against a Store. Configuration and
// the reference timezone are fixed at construction.
type Orchestrator struct {
	store       Store
	params      learning.Params
	loc         *time.Location
	maxSegments int
}

// New creates an orchestrator.
func New(store Store, params learning.Params, loc *time.Location, maxSegments int) *Orchestrator {
	return &Orchestrator{
		store:       store,
		params:      params,
		loc:         loc,
		maxSegments: maxSegments,
	}
}

// ProcessSubmission validates the submission and processes every observation
// in order. Per-observation data-quality problems become counted rejections
// and never touch the stats row; anything else fails the whole submission
// before or instead of a partial commit.
func (o *Orchestrator) ProcessSubmission(sub *models.RideSubmission, now time.Time) (*Result, error) {
	// The cap bounds worst-case work and is checked before any processing
	if len(sub.Segments) > o.maxSegments {
		return nil, fmt.Errorf("%w: got %d, max %d", ErrTooManySegments, len(sub.Segments), o.maxSegments)
	}
	if err := sub.Validate(now); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSubmission, err)
	}

	res := &Result{
		RejectedByReason: make(map[string]int),
		Outcomes:         make([]SegmentOutcome, 0, len(sub.Segments)),
	}

	for seq := range sub.Segments {
		obs := &sub.Segments[seq]

		seg, err := o.store.ResolveSegment(models.SegmentKey{
			RouteID:     sub.RouteID,
			DirectionID: sub.DirectionID,
			FromStopID:  obs.FromStopID,
			ToStopID:    obs.ToStopID,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to resolve segment %d: %w", seq, err)
		}
		if seg == nil {
			return nil, fmt.Errorf("%w: %s -> %s", ErrUnknownSegment, obs.FromStopID, obs.ToStopID)
		}

		// Validate guarantees the timestamp parses
		observedAt, err := obs.ObservedTime()
		if err != nil {
			return nil, err
		}
		binID := timebin.Resolve(observedAt, o.loc, obs.IsHoliday)

		stats, err := o.store.GetStats(seg.ID, binID)
		if err != nil {
			return nil, fmt.Errorf("failed to load stats for segment %d: %w", seg.ID, err)
		}

		outcome := SegmentOutcome{
			Seq:        seq,
			SegmentID:  seg.ID,
			BinID:      binID,
			ObservedAt: observedAt,
		}

		admit := learning.Admit(obs.DurationSec, obs.Confidence(), stats, o.params)
		if admit.Accepted {
			updated := learning.UpdateStats(*stats, obs.DurationSec, observedAt, o.params)
			if err := o.store.PutStats(updated); err != nil {
				return nil, fmt.Errorf("failed to persist stats for segment %d: %w", seg.ID, err)
			}
			res.Accepted++
			outcome.Accepted = true
		} else {
			res.Rejected++
			res.RejectedByReason[string(admit.Reason)]++
			outcome.Reason = admit.Reason
		}

		res.Outcomes = append(res.Outcomes, outcome)
	}

	return res, nil
}
