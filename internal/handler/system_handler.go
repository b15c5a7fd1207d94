package handler

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kkin1995/bmtc-transit-app/internal/config"
	"github.com/kkin1995/bmtc-transit-app/internal/models"
	"github.com/kkin1995/bmtc-transit-app/internal/service"
)

// SystemHandler handles HTTP requests for config and health
type SystemHandler struct {
	cfg         *config.Config
	db          *sql.DB
	gtfsService *service.GTFSService
	startTime   time.Time
}

// NewSystemHandler creates a new system handler
func NewSystemHandler(cfg *config.Config, db *sql.DB, gtfsService *service.GTFSService, startTime time.Time) *SystemHandler {
	return &SystemHandler{
		cfg:         cfg,
		db:          db,
		gtfsService: gtfsService,
		startTime:   startTime,
	}
}

// GetConfig handles GET /v1/config
func (h *SystemHandler) GetConfig(c *gin.Context) {
	c.JSON(http.StatusOK, models.ConfigResponse{
		N0:                 h.cfg.Learning.N0,
		TimeBinMinutes:     15,
		HalfLifeDays:       h.cfg.Learning.HalfLifeDays,
		EMAAlpha:           h.cfg.Learning.BaseAlpha,
		OutlierSigma:       h.cfg.Learning.OutlierSigma,
		MapmatchMinConf:    h.cfg.Learning.MapmatchMinConf,
		MaxSegmentsPerRide: h.cfg.MaxSegmentsPerRide,
		StaleThresholdDays: h.cfg.Learning.StaleThresholdDays,
		RateLimitPerHour:   h.cfg.RateLimitPerHour,
		IdempotencyTTLHrs:  int(h.cfg.IdempotencyTTL.Hours()),
		GTFSVersion:        h.gtfsService.GTFSVersion(),
		ServerVersion:      config.ServerVersion,
	})
}

// GetHealth handles GET /v1/health
func (h *SystemHandler) GetHealth(c *gin.Context) {
	dbOk := h.db.Ping() == nil

	status := "ok"
	code := http.StatusOK
	if !dbOk {
		status = "degraded"
		code = http.StatusServiceUnavailable
	}

	c.JSON(code, models.HealthResponse{
		Status:    status,
		DBOk:      dbOk,
		UptimeSec: int64(time.Since(h.startTime).Seconds()),
	})
}
