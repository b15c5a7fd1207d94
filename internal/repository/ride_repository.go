package repository

import (
	"fmt"
	"time"

	"github.com/kkin1995/bmtc-transit-app/internal/database"
)

// RideRepository handles the audit trail of ride submissions: ride headers,
// per-segment outcomes, the rejection log and device bucket tracking.
type RideRepository struct {
	db database.DBTX
}

// NewRideRepository creates a new ride repository
func NewRideRepository(db database.DBTX) *RideRepository {
	return &RideRepository{db: db}
}

// InsertRide records the submission header and returns the ride ID.
func (r *RideRepository) InsertRide(submittedAt time.Time, segmentCount int) (int64, error) {
	res, err := r.db.Exec(
		"INSERT INTO rides (submitted_at, segment_count) VALUES (?, ?)",
		submittedAt.Unix(), segmentCount,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert ride: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get ride id: %w", err)
	}
	return id, nil
}

// RideSegmentRow is one audited per-segment outcome.
type RideSegmentRow struct {
	RideID          int64
	Seq             int
	SegmentID       int64
	BinID           int
	DurationSec     float64
	DwellSec        *float64
	ObservedAt      int64
	Accepted        bool
	DeviceBucket    string
	MapmatchConf    float64
	RejectionReason string
}

// InsertRideSegment records one processed segment observation.
func (r *RideRepository) InsertRideSegment(row RideSegmentRow) error {
	accepted := 0
	if row.Accepted {
		accepted = 1
	}
	var reason any
	if row.RejectionReason != "" {
		reason = row.RejectionReason
	}
	var bucket any
	if row.DeviceBucket != "" {
		bucket = row.DeviceBucket
	}

	_, err := r.db.Exec(
		`INSERT INTO ride_segments
		(ride_id, seq, segment_id, bin_id, duration_sec, dwell_sec, observed_at, accepted, device_bucket, mapmatch_conf, rejection_reason)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		row.RideID, row.Seq, row.SegmentID, row.BinID, row.DurationSec, row.DwellSec,
		row.ObservedAt, accepted, bucket, row.MapmatchConf, reason,
	)
	if err != nil {
		return fmt.Errorf("failed to insert ride segment: %w", err)
	}
	return nil
}

// LogRejection appends a row to the rejection log.
func (r *RideRepository) LogRejection(segmentID int64, binID int, reason string, durationSec, mapmatchConf float64, deviceBucket string, rejectedAt time.Time) error {
	var bucket any
	if deviceBucket != "" {
		bucket = deviceBucket
	}

	_, err := r.db.Exec(
		`INSERT INTO rejection_log (segment_id, bin_id, reason, duration_sec, mapmatch_conf, device_bucket, rejected_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		segmentID, binID, reason, durationSec, mapmatchConf, bucket, rejectedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to log rejection: %w", err)
	}
	return nil
}

// TouchDeviceBucket upserts the device bucket row, bumping last_seen and the
// submission counter.
func (r *RideRepository) TouchDeviceBucket(bucketID string, now time.Time) error {
	_, err := r.db.Exec(
		`INSERT INTO device_buckets (bucket_id, first_seen, last_seen, submission_count)
		VALUES (?, ?, ?, 1)
		ON CONFLICT(bucket_id) DO UPDATE SET
			last_seen = excluded.last_seen,
			submission_count = submission_count + 1`,
		bucketID, now.Unix(), now.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to touch device bucket: %w", err)
	}
	return nil
}
