package repository

import (
	"database/sql"
	"fmt"

	"github.com/kkin1995/bmtc-transit-app/internal/database"
	"github.com/kkin1995/bmtc-transit-app/internal/models"
)

// SegmentRepository handles database operations for route segments
type SegmentRepository struct {
	db database.DBTX
}

// NewSegmentRepository creates a new segment repository
func NewSegmentRepository(db database.DBTX) *SegmentRepository {
	return &SegmentRepository{db: db}
}

// GetByKey resolves a segment by its natural identity. Returns (nil, nil)
// when the segment is unknown.
func (r *SegmentRepository) GetByKey(key models.SegmentKey) (*models.Segment, error) {
	query := `SELECT segment_id, route_id, direction_id, from_stop_id, to_stop_id, distance_m
		FROM segments
		WHERE route_id = ? AND direction_id = ? AND from_stop_id = ? AND to_stop_id = ?`

	var s models.Segment
	err := r.db.QueryRow(query, key.RouteID, key.DirectionID, key.FromStopID, key.ToStopID).Scan(
		&s.ID, &s.RouteID, &s.DirectionID, &s.FromStopID, &s.ToStopID, &s.DistanceMeters,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get segment: %w", err)
	}

	return &s, nil
}

// GetOrCreate inserts a segment if its identity is new and returns its
// surrogate ID either way. Used by the GTFS importer.
func (r *SegmentRepository) GetOrCreate(key models.SegmentKey, distanceM float64) (int64, error) {
	_, err := r.db.Exec(
		`INSERT OR IGNORE INTO segments (route_id, direction_id, from_stop_id, to_stop_id, distance_m)
		VALUES (?, ?, ?, ?, ?)`,
		key.RouteID, key.DirectionID, key.FromStopID, key.ToStopID, distanceM,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert segment: %w", err)
	}

	var id int64
	err = r.db.QueryRow(
		`SELECT segment_id FROM segments
		WHERE route_id = ? AND direction_id = ? AND from_stop_id = ? AND to_stop_id = ?`,
		key.RouteID, key.DirectionID, key.FromStopID, key.ToStopID,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to resolve segment id: %w", err)
	}

	return id, nil
}

// Count returns the number of known segments.
func (r *SegmentRepository) Count() (int64, error) {
	var n int64
	if err := r.db.QueryRow("SELECT COUNT(*) FROM segments").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count segments: %w", err)
	}
	return n, nil
}
