package service

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/kkin1995/bmtc-transit-app/internal/models"
	"github.com/kkin1995/bmtc-transit-app/internal/repository"
)

// ErrStopNotFound is returned for departures queries against unknown stops.
var ErrStopNotFound = fmt.Errorf("stop not found")

// GTFSService serves the imported static schedule data.
type GTFSService struct {
	repo *repository.GTFSRepository
}

// NewGTFSService creates a new GTFS service
func NewGTFSService(db *sql.DB) *GTFSService {
	return &GTFSService{repo: repository.NewGTFSRepository(db)}
}

// ListStops returns a filtered, paginated stop listing.
func (s *GTFSService) ListStops(filter repository.StopFilter) (*models.StopsListResponse, error) {
	stops, total, err := s.repo.ListStops(filter)
	if err != nil {
		return nil, err
	}
	if stops == nil {
		stops = []models.Stop{}
	}
	return &models.StopsListResponse{
		Stops:  stops,
		Total:  total,
		Limit:  filter.Limit,
		Offset: filter.Offset,
	}, nil
}

// ListRoutes returns a filtered, paginated route listing.
func (s *GTFSService) ListRoutes(filter repository.RouteFilter) (*models.RoutesListResponse, error) {
	routes, total, err := s.repo.ListRoutes(filter)
	if err != nil {
		return nil, err
	}
	if routes == nil {
		routes = []models.Route{}
	}
	return &models.RoutesListResponse{
		Routes: routes,
		Total:  total,
		Limit:  filter.Limit,
		Offset: filter.Offset,
	}, nil
}

// StopSchedule returns upcoming scheduled departures for a stop.
func (s *GTFSService) StopSchedule(stopID, routeID string, limit int, now time.Time) (*models.ScheduleResponse, error) {
	stop, err := s.repo.GetStop(stopID)
	if err != nil {
		return nil, err
	}
	if stop == nil {
		return nil, ErrStopNotFound
	}

	departures, err := s.repo.StopDepartures(stopID, routeID, limit)
	if err != nil {
		return nil, err
	}
	if departures == nil {
		departures = []models.Departure{}
	}

	return &models.ScheduleResponse{
		Stop:       *stop,
		Departures: departures,
		QueryTime:  now.UTC().Format(time.RFC3339),
	}, nil
}

// GTFSVersion reports the imported feed version, or "none" before any import.
func (s *GTFSService) GTFSVersion() string {
	return s.repo.Metadata("feed_version", "none")
}
