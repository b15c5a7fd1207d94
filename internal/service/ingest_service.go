package service

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/kkin1995/bmtc-transit-app/internal/database"
	"github.com/kkin1995/bmtc-transit-app/internal/ingest"
	"github.com/kkin1995/bmtc-transit-app/internal/learning"
	"github.com/kkin1995/bmtc-transit-app/internal/models"
	"github.com/kkin1995/bmtc-transit-app/internal/repository"
)

// IngestService persists ride submissions. Each submission runs inside a
// single transaction: the orchestrator's statistics updates, the ride audit
// rows and the rejection log commit together or not at all, so the returned
// counts always match what was durably written.
type IngestService struct {
	db          *sql.DB
	params      learning.Params
	loc         *time.Location
	maxSegments int
}

// NewIngestService creates a new ingest service
func NewIngestService(db *sql.DB, params learning.Params, loc *time.Location, maxSegments int) *IngestService {
	return &IngestService{db: db, params: params, loc: loc, maxSegments: maxSegments}
}

// txStore adapts transaction-scoped repositories to the orchestrator's Store.
type txStore struct {
	segments *repository.SegmentRepository
	stats    *repository.StatsRepository
}

func (s *txStore) ResolveSegment(key models.SegmentKey) (*models.Segment, error) {
	return s.segments.GetByKey(key)
}

func (s *txStore) GetStats(segmentID int64, binID int) (*models.SegmentStats, error) {
	return s.stats.Get(segmentID, binID)
}

func (s *txStore) PutStats(stats models.SegmentStats) error {
	return s.stats.Put(stats)
}

// ProcessRide runs one submission through the orchestrator and writes the
// audit trail.
func (s *IngestService) ProcessRide(sub *models.RideSubmission, now time.Time) (*models.RideSummaryResponse, error) {
	var resp *models.RideSummaryResponse

	err := database.Transaction(s.db, func(tx *sql.Tx) error {
		store := &txStore{
			segments: repository.NewSegmentRepository(tx),
			stats:    repository.NewStatsRepository(tx),
		}
		rides := repository.NewRideRepository(tx)

		orch := ingest.New(store, s.params, s.loc, s.maxSegments)
		result, err := orch.ProcessSubmission(sub, now)
		if err != nil {
			return err
		}

		rideID, err := rides.InsertRide(now, len(sub.Segments))
		if err != nil {
			return err
		}

		if sub.DeviceBucket != "" {
			if err := rides.TouchDeviceBucket(sub.DeviceBucket, now); err != nil {
				return err
			}
		}

		for _, outcome := range result.Outcomes {
			obs := &sub.Segments[outcome.Seq]

			if err := rides.InsertRideSegment(repository.RideSegmentRow{
				RideID:          rideID,
				Seq:             outcome.Seq,
				SegmentID:       outcome.SegmentID,
				BinID:           outcome.BinID,
				DurationSec:     obs.DurationSec,
				DwellSec:        obs.DwellSec,
				ObservedAt:      outcome.ObservedAt.Unix(),
				Accepted:        outcome.Accepted,
				DeviceBucket:    sub.DeviceBucket,
				MapmatchConf:    obs.Confidence(),
				RejectionReason: string(outcome.Reason),
			}); err != nil {
				return err
			}

			if !outcome.Accepted {
				if err := rides.LogRejection(
					outcome.SegmentID, outcome.BinID, string(outcome.Reason),
					obs.DurationSec, obs.Confidence(), sub.DeviceBucket, now,
				); err != nil {
					return err
				}
			}
		}

		resp = &models.RideSummaryResponse{
			AcceptedSegments: result.Accepted,
			RejectedSegments: result.Rejected,
			RejectedByReason: result.RejectedByReason,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return resp, nil
}

// CleanupIdempotencyKeys removes expired idempotency keys. Intended to be
// called periodically by the server.
func (s *IngestService) CleanupIdempotencyKeys(ttl time.Duration, now time.Time) (int64, error) {
	repo := repository.NewIdempotencyRepository(s.db, ttl)
	n, err := repo.DeleteExpired(now)
	if err != nil {
		return 0, fmt.Errorf("failed to clean idempotency keys: %w", err)
	}
	return n, nil
}
