package api

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kkin1995/bmtc-transit-app/internal/config"
	"github.com/kkin1995/bmtc-transit-app/internal/handler"
	"github.com/kkin1995/bmtc-transit-app/internal/metrics"
	"github.com/kkin1995/bmtc-transit-app/internal/middleware"
	"github.com/kkin1995/bmtc-transit-app/internal/repository"
	"github.com/kkin1995/bmtc-transit-app/internal/service"
)

// SetupRouter wires middleware, services and handlers into the gin engine.
func SetupRouter(cfg *config.Config, db *sql.DB, collector *metrics.Collector) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.ServerVersion(config.ServerVersion))

	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, Idempotency-Key, X-Device-Bucket")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	ingestService := service.NewIngestService(db, cfg.Learning, cfg.Location, cfg.MaxSegmentsPerRide)
	etaService := service.NewETAService(db, cfg.Learning, cfg.Location, config.ServerVersion)
	gtfsService := service.NewGTFSService(db)

	idempotencyRepo := repository.NewIdempotencyRepository(db, cfg.IdempotencyTTL)
	rateLimitRepo := repository.NewRateLimitRepository(db, cfg.RateLimitPerHour)

	rideHandler := handler.NewRideHandler(ingestService, idempotencyRepo, collector)
	etaHandler := handler.NewETAHandler(etaService, collector)
	gtfsHandler := handler.NewGTFSHandler(gtfsService)
	systemHandler := handler.NewSystemHandler(cfg, db, gtfsService, time.Now())

	r.GET("/metrics", gin.WrapH(collector.Handler()))

	v1 := r.Group("/v1")
	{
		v1.GET("/health", systemHandler.GetHealth)
		v1.GET("/config", systemHandler.GetConfig)

		v1.GET("/eta", etaHandler.GetETA)

		v1.GET("/stops", gtfsHandler.ListStops)
		v1.GET("/stops/:stop_id/schedule", gtfsHandler.GetStopSchedule)
		v1.GET("/routes", gtfsHandler.ListRoutes)

		submit := v1.Group("")
		submit.Use(middleware.Auth(cfg.APIKey, cfg.HMACSecret))
		submit.Use(middleware.Idempotency(idempotencyRepo, rateLimitRepo, collector))
		if cfg.RateLimitEnabled {
			submit.Use(middleware.RateLimit(rateLimitRepo, collector))
		}
		submit.POST("/ride_summary", rideHandler.SubmitRide)
	}

	return r
}
