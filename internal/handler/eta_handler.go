package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kkin1995/bmtc-transit-app/internal/metrics"
	"github.com/kkin1995/bmtc-transit-app/internal/service"
	"github.com/kkin1995/bmtc-transit-app/pkg/response"
)

// ETAHandler handles HTTP requests for duration estimates
type ETAHandler struct {
	etaService *service.ETAService
	collector  *metrics.Collector
}

// NewETAHandler creates a new ETA handler
func NewETAHandler(etaService *service.ETAService, collector *metrics.Collector) *ETAHandler {
	return &ETAHandler{
		etaService: etaService,
		collector:  collector,
	}
}

// GetETA handles GET /v1/eta
func (h *ETAHandler) GetETA(c *gin.Context) {
	routeID := c.Query("route_id")
	fromStopID := c.Query("from_stop_id")
	toStopID := c.Query("to_stop_id")
	if routeID == "" || fromStopID == "" || toStopID == "" {
		response.BadRequest(c, "route_id, from_stop_id and to_stop_id are required")
		return
	}

	directionID, err := strconv.Atoi(c.DefaultQuery("direction_id", "0"))
	if err != nil || (directionID != 0 && directionID != 1) {
		response.BadRequest(c, "direction_id must be 0 or 1")
		return
	}

	// The when parameter asks about a future or past instant; default is now
	when := time.Now()
	if whenStr := c.Query("when"); whenStr != "" {
		when, err = time.Parse(time.RFC3339, whenStr)
		if err != nil {
			response.BadRequest(c, "when must be an ISO-8601 timestamp")
			return
		}
	}

	isHoliday, err := strconv.ParseBool(c.DefaultQuery("is_holiday", "false"))
	if err != nil {
		response.BadRequest(c, "is_holiday must be a boolean")
		return
	}

	start := time.Now()
	eta, err := h.etaService.Estimate(service.ETAQuery{
		RouteID:     routeID,
		DirectionID: directionID,
		FromStopID:  fromStopID,
		ToStopID:    toStopID,
		When:        when,
		IsHoliday:   isHoliday,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrSegmentNotFound):
			h.collector.ETANotFound.Inc()
			response.NotFound(c, "segment_not_found", "no such segment on this route and direction")
		case errors.Is(err, service.ErrNoStatistics):
			h.collector.ETANotFound.Inc()
			response.NotFound(c, "no_statistics", "no statistics for this segment and time bin")
		default:
			response.InternalError(c, "failed to compute estimate")
		}
		return
	}

	h.collector.ETAQueries.Inc()
	h.collector.ETADuration.Observe(time.Since(start).Seconds())

	c.JSON(http.StatusOK, eta)
}
