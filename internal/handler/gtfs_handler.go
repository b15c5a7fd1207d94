package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kkin1995/bmtc-transit-app/internal/repository"
	"github.com/kkin1995/bmtc-transit-app/internal/service"
	"github.com/kkin1995/bmtc-transit-app/pkg/response"
)

const (
	defaultPageLimit  = 100
	maxPageLimit      = 500
	defaultDepartures = 20
	maxDepartures     = 100
)

// GTFSHandler handles HTTP requests for the static schedule data
type GTFSHandler struct {
	gtfsService *service.GTFSService
}

// NewGTFSHandler creates a new GTFS handler
func NewGTFSHandler(gtfsService *service.GTFSService) *GTFSHandler {
	return &GTFSHandler{
		gtfsService: gtfsService,
	}
}

// ListStops handles GET /v1/stops
func (h *GTFSHandler) ListStops(c *gin.Context) {
	filter := repository.StopFilter{
		RouteID: c.Query("route_id"),
	}

	var err error
	filter.Limit, filter.Offset, err = parsePagination(c, defaultPageLimit, maxPageLimit)
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	if bbox := c.Query("bbox"); bbox != "" {
		coords, err := parseBBox(bbox)
		if err != nil {
			response.BadRequest(c, err.Error())
			return
		}
		filter.MinLat, filter.MinLon, filter.MaxLat, filter.MaxLon = coords[0], coords[1], coords[2], coords[3]
		filter.HasBBox = true
	}

	stops, err := h.gtfsService.ListStops(filter)
	if err != nil {
		response.InternalError(c, "failed to list stops")
		return
	}

	c.JSON(http.StatusOK, stops)
}

// ListRoutes handles GET /v1/routes
func (h *GTFSHandler) ListRoutes(c *gin.Context) {
	filter := repository.RouteFilter{
		StopID:    c.Query("stop_id"),
		RouteType: -1,
	}

	var err error
	filter.Limit, filter.Offset, err = parsePagination(c, defaultPageLimit, maxPageLimit)
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	if rt := c.Query("route_type"); rt != "" {
		filter.RouteType, err = strconv.Atoi(rt)
		if err != nil || filter.RouteType < 0 {
			response.BadRequest(c, "route_type must be a non-negative integer")
			return
		}
	}

	routes, err := h.gtfsService.ListRoutes(filter)
	if err != nil {
		response.InternalError(c, "failed to list routes")
		return
	}

	c.JSON(http.StatusOK, routes)
}

// GetStopSchedule handles GET /v1/stops/:stop_id/schedule
func (h *GTFSHandler) GetStopSchedule(c *gin.Context) {
	stopID := c.Param("stop_id")

	limit := defaultDepartures
	if l := c.Query("limit"); l != "" {
		var err error
		limit, err = strconv.Atoi(l)
		if err != nil || limit < 1 {
			response.BadRequest(c, "limit must be a positive integer")
			return
		}
		if limit > maxDepartures {
			limit = maxDepartures
		}
	}

	schedule, err := h.gtfsService.StopSchedule(stopID, c.Query("route_id"), limit, time.Now())
	if err != nil {
		if errors.Is(err, service.ErrStopNotFound) {
			response.NotFound(c, "stop_not_found", "no such stop")
			return
		}
		response.InternalError(c, "failed to load schedule")
		return
	}

	c.JSON(http.StatusOK, schedule)
}

func parsePagination(c *gin.Context, def, max int) (limit, offset int, err error) {
	limit = def
	if l := c.Query("limit"); l != "" {
		limit, err = strconv.Atoi(l)
		if err != nil || limit < 1 {
			return 0, 0, errors.New("limit must be a positive integer")
		}
		if limit > max {
			limit = max
		}
	}
	if o := c.Query("offset"); o != "" {
		offset, err = strconv.Atoi(o)
		if err != nil || offset < 0 {
			return 0, 0, errors.New("offset must be a non-negative integer")
		}
	}
	return limit, offset, nil
}

// parseBBox parses "min_lat,min_lon,max_lat,max_lon".
func parseBBox(s string) ([4]float64, error) {
	var coords [4]float64
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return coords, errors.New("bbox must be min_lat,min_lon,max_lat,max_lon")
	}
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return coords, errors.New("bbox must contain four numbers")
		}
		coords[i] = v
	}
	if coords[2] <= coords[0] || coords[3] <= coords[1] {
		return coords, errors.New("bbox max must exceed min")
	}
	return coords, nil
}
