package main

import (
	"flag"
	"log"
	"os"
	"time"

	"github.com/kkin1995/bmtc-transit-app/internal/database"
	"github.com/kkin1995/bmtc-transit-app/internal/gtfs"
)

func main() {
	zipPath := flag.String("zip", "", "path to the GTFS static zip (required)")
	dbPath := flag.String("db", defaultDBPath(), "path to the SQLite database")
	flag.Parse()

	if *zipPath == "" {
		flag.Usage()
		os.Exit(2)
	}

	if err := database.Init(database.Config{Path: *dbPath}); err != nil {
		log.Fatal("Failed to initialize database: ", err)
	}
	defer database.Close()

	start := time.Now()
	summary, err := gtfs.NewImporter(database.GetDB()).Run(*zipPath, start)
	if err != nil {
		log.Fatal("Import failed: ", err)
	}

	log.Printf("Imported %d routes, %d stops, %d trips, %d stop_times in %v",
		summary.Routes, summary.Stops, summary.Trips, summary.StopTimes, time.Since(start))
	log.Printf("Derived %d segments, seeded %d (segment, bin) baselines", summary.Segments, summary.SeededBins)
}

func defaultDBPath() string {
	if v := os.Getenv("BMTC_DB_PATH"); v != "" {
		return v
	}
	return "./data/bmtc.db"
}
