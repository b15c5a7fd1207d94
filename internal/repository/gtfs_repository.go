package repository

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/kkin1995/bmtc-transit-app/internal/database"
	"github.com/kkin1995/bmtc-transit-app/internal/models"
)

// GTFSRepository handles read access to the imported GTFS static tables.
type GTFSRepository struct {
	db database.DBTX
}

// NewGTFSRepository creates a new GTFS repository
func NewGTFSRepository(db database.DBTX) *GTFSRepository {
	return &GTFSRepository{db: db}
}

// StopFilter narrows a stop listing.
type StopFilter struct {
	// Bounding box, applied when MaxLat > MinLat
	MinLat, MinLon, MaxLat, MaxLon float64
	HasBBox                        bool

	// Only stops served by this route
	RouteID string

	Limit  int
	Offset int
}

// ListStops retrieves stops with filtering and pagination.
func (r *GTFSRepository) ListStops(filter StopFilter) ([]models.Stop, int64, error) {
	var conditions []string
	var args []any

	if filter.HasBBox {
		conditions = append(conditions, "stop_lat BETWEEN ? AND ? AND stop_lon BETWEEN ? AND ?")
		args = append(args, filter.MinLat, filter.MaxLat, filter.MinLon, filter.MaxLon)
	}
	if filter.RouteID != "" {
		conditions = append(conditions, `stop_id IN (
			SELECT DISTINCT st.stop_id
			FROM stop_times st
			JOIN trips t ON st.trip_id = t.trip_id
			WHERE t.route_id = ?
		)`)
		args = append(args, filter.RouteID)
	}

	whereSQL := ""
	if len(conditions) > 0 {
		whereSQL = " WHERE " + strings.Join(conditions, " AND ")
	}

	var total int64
	if err := r.db.QueryRow("SELECT COUNT(*) FROM stops"+whereSQL, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count stops: %w", err)
	}

	query := `SELECT stop_id, stop_name, stop_lat, stop_lon, zone_id FROM stops` +
		whereSQL + " ORDER BY stop_id LIMIT ? OFFSET ?"
	rows, err := r.db.Query(query, append(args, filter.Limit, filter.Offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query stops: %w", err)
	}
	defer rows.Close()

	var stops []models.Stop
	for rows.Next() {
		var s models.Stop
		if err := rows.Scan(&s.StopID, &s.StopName, &s.StopLat, &s.StopLon, &s.ZoneID); err != nil {
			return nil, 0, fmt.Errorf("failed to scan stop: %w", err)
		}
		stops = append(stops, s)
	}

	return stops, total, rows.Err()
}

// GetStop retrieves a single stop. Returns (nil, nil) when unknown.
func (r *GTFSRepository) GetStop(stopID string) (*models.Stop, error) {
	var s models.Stop
	err := r.db.QueryRow(
		"SELECT stop_id, stop_name, stop_lat, stop_lon, zone_id FROM stops WHERE stop_id = ?", stopID,
	).Scan(&s.StopID, &s.StopName, &s.StopLat, &s.StopLon, &s.ZoneID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get stop: %w", err)
	}
	return &s, nil
}

// RouteFilter narrows a route listing.
type RouteFilter struct {
	// Only routes serving this stop
	StopID string

	// GTFS route_type; negative means unset
	RouteType int

	Limit  int
	Offset int
}

// ListRoutes retrieves routes with filtering and pagination.
func (r *GTFSRepository) ListRoutes(filter RouteFilter) ([]models.Route, int64, error) {
	var conditions []string
	var args []any

	if filter.RouteType >= 0 {
		conditions = append(conditions, "route_type = ?")
		args = append(args, filter.RouteType)
	}
	if filter.StopID != "" {
		conditions = append(conditions, `route_id IN (
			SELECT DISTINCT t.route_id
			FROM trips t
			JOIN stop_times st ON t.trip_id = st.trip_id
			WHERE st.stop_id = ?
		)`)
		args = append(args, filter.StopID)
	}

	whereSQL := ""
	if len(conditions) > 0 {
		whereSQL = " WHERE " + strings.Join(conditions, " AND ")
	}

	var total int64
	if err := r.db.QueryRow("SELECT COUNT(*) FROM routes"+whereSQL, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count routes: %w", err)
	}

	query := `SELECT route_id, route_short_name, route_long_name, route_type, agency_id FROM routes` +
		whereSQL + " ORDER BY route_id LIMIT ? OFFSET ?"
	rows, err := r.db.Query(query, append(args, filter.Limit, filter.Offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query routes: %w", err)
	}
	defer rows.Close()

	var routes []models.Route
	for rows.Next() {
		var rt models.Route
		if err := rows.Scan(&rt.RouteID, &rt.RouteShortName, &rt.RouteLongName, &rt.RouteType, &rt.AgencyID); err != nil {
			return nil, 0, fmt.Errorf("failed to scan route: %w", err)
		}
		routes = append(routes, rt)
	}

	return routes, total, rows.Err()
}

// StopDepartures lists scheduled departures from a stop, optionally filtered
// by route. GTFS departure times are lexicographically ordered strings
// (HH:MM:SS, possibly beyond 24h), so string ordering is chronological.
func (r *GTFSRepository) StopDepartures(stopID, routeID string, limit int) ([]models.Departure, error) {
	whereSQL := "st.stop_id = ?"
	args := []any{stopID}
	if routeID != "" {
		whereSQL += " AND t.route_id = ?"
		args = append(args, routeID)
	}

	query := fmt.Sprintf(`
		SELECT t.trip_id, t.route_id, t.service_id, t.trip_headsign, t.direction_id,
			st.arrival_time, st.departure_time, st.stop_sequence
		FROM stop_times st
		JOIN trips t ON st.trip_id = t.trip_id
		WHERE %s
		ORDER BY st.departure_time
		LIMIT ?`, whereSQL)
	rows, err := r.db.Query(query, append(args, limit)...)
	if err != nil {
		return nil, fmt.Errorf("failed to query departures: %w", err)
	}
	defer rows.Close()

	var departures []models.Departure
	for rows.Next() {
		var d models.Departure
		var direction int
		if err := rows.Scan(
			&d.Trip.TripID, &d.Trip.RouteID, &d.Trip.ServiceID, &d.Trip.TripHeadsign, &direction,
			&d.StopTime.ArrivalTime, &d.StopTime.DepartureTime, &d.StopTime.StopSequence,
		); err != nil {
			return nil, fmt.Errorf("failed to scan departure: %w", err)
		}
		d.Trip.DirectionID = &direction
		departures = append(departures, d)
	}

	return departures, rows.Err()
}

// Metadata returns a GTFS metadata value, or def when absent.
func (r *GTFSRepository) Metadata(key, def string) string {
	var value string
	err := r.db.QueryRow("SELECT value FROM gtfs_metadata WHERE key = ?", key).Scan(&value)
	if err != nil {
		return def
	}
	return value
}

// SetMetadata stores a GTFS metadata key/value pair.
func (r *GTFSRepository) SetMetadata(key, value string, now time.Time) error {
	_, err := r.db.Exec(
		"INSERT OR REPLACE INTO gtfs_metadata (key, value, updated_at) VALUES (?, ?, ?)",
		key, value, now.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to set gtfs metadata: %w", err)
	}
	return nil
}
