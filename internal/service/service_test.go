package service

import (
	"database/sql"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kkin1995/bmtc-transit-app/internal/database"
	"github.com/kkin1995/bmtc-transit-app/internal/learning"
	"github.com/kkin1995/bmtc-transit-app/internal/models"
	"github.com/kkin1995/bmtc-transit-app/internal/repository"
	"github.com/kkin1995/bmtc-transit-app/internal/timebin"
)

var testKey = models.SegmentKey{
	RouteID:     "335E",
	DirectionID: 0,
	FromStopID:  "S1",
	ToStopID:    "S2",
}

func testDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := database.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, database.RunMigrations(db))
	return db
}

// seedSegment registers a segment and seeds every bin with the given
// schedule baseline.
func seedSegment(t *testing.T, db *sql.DB, key models.SegmentKey, scheduleMean float64) int64 {
	t.Helper()

	segID, err := repository.NewSegmentRepository(db).GetOrCreate(key, 850)
	require.NoError(t, err)

	statsRepo := repository.NewStatsRepository(db)
	for bin := 0; bin < timebin.NumBins; bin++ {
		require.NoError(t, statsRepo.Seed(segID, bin, scheduleMean))
	}
	return segID
}

func TestIngestServiceProcessRide(t *testing.T) {
	db := testDB(t)
	segID := seedSegment(t, db, testKey, 600)

	svc := NewIngestService(db, learning.DefaultParams, time.UTC, 50)
	now := time.Date(2025, 10, 22, 11, 0, 0, 0, time.UTC)
	observedAt := now.Add(-time.Hour)

	lowConf := 0.3
	sub := &models.RideSubmission{
		RouteID:      "335E",
		DeviceBucket: "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa",
		Segments: []models.SegmentObservation{
			{
				FromStopID:    "S1",
				ToStopID:      "S2",
				DurationSec:   580,
				ObservedAtUTC: observedAt.Format(time.RFC3339),
			},
			{
				FromStopID:    "S1",
				ToStopID:      "S2",
				DurationSec:   600,
				ObservedAtUTC: observedAt.Format(time.RFC3339),
				MapmatchConf:  &lowConf,
			},
		},
	}

	resp, err := svc.ProcessRide(sub, now)
	require.NoError(t, err)

	assert.Equal(t, 1, resp.AcceptedSegments)
	assert.Equal(t, 1, resp.RejectedSegments)
	assert.Equal(t, map[string]int{"low_mapmatch_conf": 1}, resp.RejectedByReason)

	// Statistics advanced for the accepted observation only
	bin := timebin.Resolve(observedAt, time.UTC, false)
	stats, err := repository.NewStatsRepository(db).Get(segID, bin)
	require.NoError(t, err)
	require.NotNil(t, stats)
	assert.EqualValues(t, 1, stats.N)
	assert.Equal(t, 580.0, stats.WelfordMean)

	// Audit rows and the rejection log committed in the same transaction
	var rides, rideSegments, rejections, buckets int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM rides").Scan(&rides))
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM ride_segments").Scan(&rideSegments))
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM rejection_log").Scan(&rejections))
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM device_buckets").Scan(&buckets))
	assert.Equal(t, 1, rides)
	assert.Equal(t, 2, rideSegments)
	assert.Equal(t, 1, rejections)
	assert.Equal(t, 1, buckets)
}

func TestIngestServiceUnknownSegmentWritesNothing(t *testing.T) {
	db := testDB(t)
	seedSegment(t, db, testKey, 600)

	svc := NewIngestService(db, learning.DefaultParams, time.UTC, 50)
	now := time.Date(2025, 10, 22, 11, 0, 0, 0, time.UTC)

	sub := &models.RideSubmission{
		RouteID: "335E",
		Segments: []models.SegmentObservation{
			{
				FromStopID:    "S1",
				ToStopID:      "S2",
				DurationSec:   580,
				ObservedAtUTC: now.Add(-time.Hour).Format(time.RFC3339),
			},
			{
				FromStopID:    "NOPE",
				ToStopID:      "NADA",
				DurationSec:   300,
				ObservedAtUTC: now.Add(-time.Hour).Format(time.RFC3339),
			},
		},
	}

	_, err := svc.ProcessRide(sub, now)
	require.Error(t, err)

	// The whole submission rolled back, including the first segment's update
	var rides int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM rides").Scan(&rides))
	assert.Zero(t, rides)

	var updated int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM segment_stats WHERE n > 0").Scan(&updated))
	assert.Zero(t, updated)
}

func TestETAServiceColdKeyServesSchedule(t *testing.T) {
	db := testDB(t)
	seedSegment(t, db, testKey, 720)

	svc := NewETAService(db, learning.DefaultParams, time.UTC, "0.2.0")
	when := time.Date(2025, 10, 22, 10, 33, 0, 0, time.UTC)

	eta, err := svc.Estimate(ETAQuery{
		RouteID:    "335E",
		FromStopID: "S1",
		ToStopID:   "S2",
		When:       when,
	})
	require.NoError(t, err)

	assert.Equal(t, 720.0, eta.Prediction.PredictedDurationSec)
	assert.Equal(t, 720.0, eta.Prediction.P50Sec)
	assert.InDelta(t, 720+1.5*72, eta.Prediction.P90Sec, 1e-9)
	assert.Zero(t, eta.Prediction.BlendWeight)
	assert.Equal(t, models.ConfidenceLow, eta.Prediction.Confidence)
	assert.True(t, eta.LowConfidence)
	assert.Empty(t, eta.Prediction.LastUpdated)
	assert.Equal(t, "0.2.0", eta.Prediction.ModelVersion)
	assert.Equal(t, 720.0, eta.ScheduleSec)
}

func TestETAServiceLowSampleWidenedBand(t *testing.T) {
	db := testDB(t)
	segID := seedSegment(t, db, testKey, 600)

	when := time.Date(2025, 10, 22, 10, 33, 0, 0, time.UTC)
	bin := timebin.Resolve(when, time.UTC, false)

	// Five observations: below the high-confidence cut, widened percentile
	statsRepo := repository.NewStatsRepository(db)
	stats, err := statsRepo.Get(segID, bin)
	require.NoError(t, err)
	for i, x := range []float64{560, 590, 570, 610, 580} {
		next := learning.UpdateStats(*stats, x, when.Add(time.Duration(i-6)*24*time.Hour), learning.DefaultParams)
		require.NoError(t, statsRepo.Put(next))
		stats = &next
	}

	svc := NewETAService(db, learning.DefaultParams, time.UTC, "0.2.0")
	eta, err := svc.Estimate(ETAQuery{
		RouteID:    "335E",
		FromStopID: "S1",
		ToStopID:   "S2",
		When:       when,
	})
	require.NoError(t, err)

	assert.EqualValues(t, 5, eta.N)
	assert.InDelta(t, 0.2, eta.BlendWeight, 1e-9)
	assert.Equal(t, models.ConfidenceMedium, eta.Prediction.Confidence)
	assert.True(t, eta.LowConfidence)

	sigma := math.Sqrt(learning.VarianceFromM2(stats.WelfordM2, stats.N))
	assert.InDelta(t, eta.P50Sec+1.5*sigma, eta.P90Sec, 1e-9)
	assert.Equal(t, bin, eta.BinID)
	assert.NotEmpty(t, eta.Prediction.LastUpdated)
}

func TestETAServiceUnknownSegment(t *testing.T) {
	db := testDB(t)
	svc := NewETAService(db, learning.DefaultParams, time.UTC, "0.2.0")

	_, err := svc.Estimate(ETAQuery{
		RouteID:    "999X",
		FromStopID: "A",
		ToStopID:   "B",
		When:       time.Now(),
	})
	assert.ErrorIs(t, err, ErrSegmentNotFound)
}

func TestETAServiceQueriesDoNotMutate(t *testing.T) {
	db := testDB(t)
	segID := seedSegment(t, db, testKey, 720)

	svc := NewETAService(db, learning.DefaultParams, time.UTC, "0.2.0")
	when := time.Date(2025, 10, 22, 10, 33, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		_, err := svc.Estimate(ETAQuery{RouteID: "335E", FromStopID: "S1", ToStopID: "S2", When: when})
		require.NoError(t, err)
	}

	bin := timebin.Resolve(when, time.UTC, false)
	stats, err := repository.NewStatsRepository(db).Get(segID, bin)
	require.NoError(t, err)
	assert.Zero(t, stats.N)
	assert.Nil(t, stats.LastUpdate)
}
