package main

import (
	"log"
	"time"

	"github.com/kkin1995/bmtc-transit-app/internal/api"
	"github.com/kkin1995/bmtc-transit-app/internal/config"
	"github.com/kkin1995/bmtc-transit-app/internal/database"
	"github.com/kkin1995/bmtc-transit-app/internal/metrics"
	"github.com/kkin1995/bmtc-transit-app/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration: ", err)
	}

	if err := database.Init(database.Config{Path: cfg.DBPath}); err != nil {
		log.Fatal("Failed to initialize database: ", err)
	}
	defer database.Close()
	db := database.GetDB()

	collector := metrics.NewCollector()

	// Hourly sweep of expired idempotency keys
	ingestService := service.NewIngestService(db, cfg.Learning, cfg.Location, cfg.MaxSegmentsPerRide)
	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for range ticker.C {
			n, err := ingestService.CleanupIdempotencyKeys(cfg.IdempotencyTTL, time.Now())
			if err != nil {
				log.Printf("idempotency cleanup failed: %v", err)
			} else if n > 0 {
				log.Printf("idempotency cleanup removed %d keys", n)
			}
		}
	}()

	router := api.SetupRouter(cfg, db, collector)

	log.Printf("Server %s starting on %s (n0=%d, half_life=%dd, tz=%s)",
		config.ServerVersion, cfg.Port, cfg.Learning.N0, cfg.Learning.HalfLifeDays, cfg.Location)
	if err := router.Run(cfg.Port); err != nil {
		log.Fatal("Failed to start server: ", err)
	}
}
