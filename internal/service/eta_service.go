package service

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/kkin1995/bmtc-transit-app/internal/learning"
	"github.com/kkin1995/bmtc-transit-app/internal/models"
	"github.com/kkin1995/bmtc-transit-app/internal/repository"
	"github.com/kkin1995/bmtc-transit-app/internal/timebin"
)

// Lookup failures surfaced to the HTTP layer as 404s.
var (
	ErrSegmentNotFound = errors.New("segment not found")
	ErrNoStatistics    = errors.New("no statistics for segment")
)

// ETAService answers duration queries. Queries are read-only: they never
// mutate the statistics they read.
type ETAService struct {
	db      *sql.DB
	params  learning.Params
	loc     *time.Location
	version string
}

// NewETAService creates a new ETA service
func NewETAService(db *sql.DB, params learning.Params, loc *time.Location, version string) *ETAService {
	return &ETAService{db: db, params: params, loc: loc, version: version}
}

// ETAQuery identifies the segment and instant being asked about.
type ETAQuery struct {
	RouteID     string
	DirectionID int
	FromStopID  string
	ToStopID    string

	// Query instant; the handler defaults this to now
	When      time.Time
	IsHoliday bool
}

// Estimate resolves the segment, picks its time bin for the query instant and
// blends the learned statistics with the schedule baseline.
func (s *ETAService) Estimate(q ETAQuery) (*models.ETAResponse, error) {
	segments := repository.NewSegmentRepository(s.db)
	seg, err := segments.GetByKey(models.SegmentKey{
		RouteID:     q.RouteID,
		DirectionID: q.DirectionID,
		FromStopID:  q.FromStopID,
		ToStopID:    q.ToStopID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to resolve segment: %w", err)
	}
	if seg == nil {
		return nil, ErrSegmentNotFound
	}

	binID := timebin.Resolve(q.When, s.loc, q.IsHoliday)

	stats, err := repository.NewStatsRepository(s.db).Get(seg.ID, binID)
	if err != nil {
		return nil, fmt.Errorf("failed to load stats: %w", err)
	}
	if stats == nil {
		return nil, ErrNoStatistics
	}

	est := learning.Estimate(*stats, s.params)

	lastUpdated := ""
	if stats.LastUpdate != nil {
		lastUpdated = time.Unix(*stats.LastUpdate, 0).UTC().Format(time.RFC3339)
	}

	// Stale rows keep serving but are flagged so clients can discount them
	lowConfidence := est.Confidence != models.ConfidenceHigh ||
		learning.IsStale(stats.LastUpdate, q.When, s.params.StaleThresholdDays)

	return &models.ETAResponse{
		Segment: models.SegmentInfo{
			RouteID:     q.RouteID,
			DirectionID: q.DirectionID,
			FromStopID:  q.FromStopID,
			ToStopID:    q.ToStopID,
		},
		QueryTime: q.When.UTC().Format(time.RFC3339),
		Scheduled: models.ScheduledInfo{
			DurationSec: stats.ScheduleMean,
			Source:      "gtfs",
		},
		Prediction: models.PredictionInfo{
			PredictedDurationSec: est.DurationSec,
			P50Sec:               est.P50Sec,
			P90Sec:               est.P90Sec,
			Confidence:           est.Confidence,
			BlendWeight:          est.BlendWeight,
			SamplesUsed:          est.SamplesUsed,
			BinID:                binID,
			LastUpdated:          lastUpdated,
			ModelVersion:         s.version,
		},

		ETASec:        est.DurationSec,
		P50Sec:        est.P50Sec,
		P90Sec:        est.P90Sec,
		N:             est.SamplesUsed,
		BlendWeight:   est.BlendWeight,
		ScheduleSec:   stats.ScheduleMean,
		LowConfidence: lowConfidence,
		BinID:         binID,
		LastUpdated:   lastUpdated,
	}, nil
}
