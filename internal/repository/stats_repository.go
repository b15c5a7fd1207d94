package repository

import (
	"database/sql"
	"fmt"

	"github.com/kkin1995/bmtc-transit-app/internal/database"
	"github.com/kkin1995/bmtc-transit-app/internal/models"
)

// StatsRepository handles database operations for per-(segment, bin) learned
// statistics. Callers that read-modify-write a row must do so inside a
// transaction; SQLite's single-writer WAL then serializes concurrent updates
// to the same key, which the Welford/EMA update requires (lost updates would
// silently drop observations).
type StatsRepository struct {
	db database.DBTX
}

// NewStatsRepository creates a new stats repository
func NewStatsRepository(db database.DBTX) *StatsRepository {
	return &StatsRepository{db: db}
}

// Get fetches the stats row for one key. Returns (nil, nil) when no row
// exists, which the admission filter treats as a data-integrity rejection.
func (r *StatsRepository) Get(segmentID int64, binID int) (*models.SegmentStats, error) {
	query := `SELECT segment_id, bin_id, n, welford_mean, welford_m2, ema_mean, ema_var, schedule_mean, last_update
		FROM segment_stats
		WHERE segment_id = ? AND bin_id = ?`

	var s models.SegmentStats
	var lastUpdate sql.NullInt64
	err := r.db.QueryRow(query, segmentID, binID).Scan(
		&s.SegmentID, &s.BinID, &s.N, &s.WelfordMean, &s.WelfordM2,
		&s.EMAMean, &s.EMAVar, &s.ScheduleMean, &lastUpdate,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get segment stats: %w", err)
	}

	if lastUpdate.Valid {
		s.LastUpdate = &lastUpdate.Int64
	}
	return &s, nil
}

// Put writes back an updated stats row. schedule_mean is deliberately not in
// the SET list: observations never touch the baseline.
func (r *StatsRepository) Put(s models.SegmentStats) error {
	var lastUpdate sql.NullInt64
	if s.LastUpdate != nil {
		lastUpdate = sql.NullInt64{Int64: *s.LastUpdate, Valid: true}
	}

	res, err := r.db.Exec(
		`UPDATE segment_stats
		SET n = ?, welford_mean = ?, welford_m2 = ?, ema_mean = ?, ema_var = ?, last_update = ?
		WHERE segment_id = ? AND bin_id = ?`,
		s.N, s.WelfordMean, s.WelfordM2, s.EMAMean, s.EMAVar, lastUpdate,
		s.SegmentID, s.BinID,
	)
	if err != nil {
		return fmt.Errorf("failed to update segment stats: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check stats update: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("segment stats row missing for segment %d bin %d", s.SegmentID, s.BinID)
	}
	return nil
}

// Seed creates or refreshes the bootstrap row for a key with n=0 and the
// GTFS-derived schedule baseline. Re-imports update the baseline but leave
// learned fields untouched.
func (r *StatsRepository) Seed(segmentID int64, binID int, scheduleMean float64) error {
	_, err := r.db.Exec(
		`INSERT INTO segment_stats (segment_id, bin_id, schedule_mean)
		VALUES (?, ?, ?)
		ON CONFLICT(segment_id, bin_id) DO UPDATE SET schedule_mean = excluded.schedule_mean`,
		segmentID, binID, scheduleMean,
	)
	if err != nil {
		return fmt.Errorf("failed to seed segment stats: %w", err)
	}
	return nil
}
