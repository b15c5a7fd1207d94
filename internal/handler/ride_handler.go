package handler

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kkin1995/bmtc-transit-app/internal/ingest"
	"github.com/kkin1995/bmtc-transit-app/internal/metrics"
	"github.com/kkin1995/bmtc-transit-app/internal/middleware"
	"github.com/kkin1995/bmtc-transit-app/internal/models"
	"github.com/kkin1995/bmtc-transit-app/internal/repository"
	"github.com/kkin1995/bmtc-transit-app/internal/service"
	"github.com/kkin1995/bmtc-transit-app/pkg/response"
)

// RideHandler handles HTTP requests for ride submissions
type RideHandler struct {
	ingestService *service.IngestService
	idempotency   *repository.IdempotencyRepository
	collector     *metrics.Collector
}

// NewRideHandler creates a new ride handler
func NewRideHandler(ingestService *service.IngestService, idempotency *repository.IdempotencyRepository, collector *metrics.Collector) *RideHandler {
	return &RideHandler{
		ingestService: ingestService,
		idempotency:   idempotency,
		collector:     collector,
	}
}

// SubmitRide handles POST /v1/ride_summary
func (h *RideHandler) SubmitRide(c *gin.Context) {
	var sub models.RideSubmission
	if err := c.ShouldBindJSON(&sub); err != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, "validation_error",
			"invalid request body", err.Error())
		return
	}

	now := time.Now()
	start := now

	resp, err := h.ingestService.ProcessRide(&sub, now)
	if err != nil {
		h.collector.RidesFailed.Inc()
		switch {
		case errors.Is(err, ingest.ErrUnknownSegment):
			response.NotFound(c, "unknown_segment", err.Error())
		case errors.Is(err, ingest.ErrInvalidSubmission), errors.Is(err, ingest.ErrTooManySegments):
			response.ErrorWithDetails(c, http.StatusBadRequest, "validation_error",
				"ride submission failed validation", err.Error())
		default:
			response.InternalError(c, "failed to process ride submission")
		}
		return
	}

	h.collector.RidesSubmitted.Inc()
	h.collector.SegmentsAccepted.Add(float64(resp.AcceptedSegments))
	for reason, n := range resp.RejectedByReason {
		h.collector.SegmentsRejected.WithLabelValues(reason).Add(float64(n))
	}
	h.collector.IngestDuration.Observe(time.Since(start).Seconds())

	h.cacheResponse(c, resp, now)

	c.JSON(http.StatusOK, resp)
}

// cacheResponse stores the response under the request's Idempotency-Key when
// one was presented. Failures are logged, not surfaced: the submission has
// already committed.
func (h *RideHandler) cacheResponse(c *gin.Context, resp *models.RideSummaryResponse, now time.Time) {
	key, ok := c.Get(middleware.CtxIdempotencyKey)
	if !ok {
		return
	}
	bodyHash, _ := c.Get(middleware.CtxIdempotencyBodyHash)

	payload, err := json.Marshal(resp)
	if err != nil {
		log.Printf("failed to marshal idempotent response: %v", err)
		return
	}
	if err := h.idempotency.Store(key.(string), bodyHash.(string), string(payload), now); err != nil {
		log.Printf("failed to store idempotency key: %v", err)
	}
}
