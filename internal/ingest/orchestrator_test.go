package ingest

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kkin1995/bmtc-transit-app/internal/learning"
	"github.com/kkin1995/bmtc-transit-app/internal/models"
)

type fakeStore struct {
	segments map[models.SegmentKey]*models.Segment
	stats    map[string]*models.SegmentStats
	puts     []models.SegmentStats

	failPut bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		segments: make(map[models.SegmentKey]*models.Segment),
		stats:    make(map[string]*models.SegmentStats),
	}
}

func statsKey(segmentID int64, binID int) string {
	return fmt.Sprintf("%d/%d", segmentID, binID)
}

func (f *fakeStore) addSegment(key models.SegmentKey, id int64) {
	f.segments[key] = &models.Segment{
		ID:          id,
		RouteID:     key.RouteID,
		DirectionID: key.DirectionID,
		FromStopID:  key.FromStopID,
		ToStopID:    key.ToStopID,
	}
}

func (f *fakeStore) seedAllBins(segmentID int64, scheduleMean float64) {
	for bin := 0; bin < 192; bin++ {
		f.stats[statsKey(segmentID, bin)] = &models.SegmentStats{
			SegmentID:    segmentID,
			BinID:        bin,
			ScheduleMean: scheduleMean,
		}
	}
}

func (f *fakeStore) ResolveSegment(key models.SegmentKey) (*models.Segment, error) {
	return f.segments[key], nil
}

func (f *fakeStore) GetStats(segmentID int64, binID int) (*models.SegmentStats, error) {
	return f.stats[statsKey(segmentID, binID)], nil
}

func (f *fakeStore) PutStats(stats models.SegmentStats) error {
	if f.failPut {
		return errors.New("disk full")
	}
	f.puts = append(f.puts, stats)
	f.stats[statsKey(stats.SegmentID, stats.BinID)] = &stats
	return nil
}

func testOrchestrator(store Store) *Orchestrator {
	return New(store, learning.DefaultParams, time.UTC, 50)
}

func observation(from, to string, dur float64, observedAt time.Time) models.SegmentObservation {
	return models.SegmentObservation{
		FromStopID:    from,
		ToStopID:      to,
		DurationSec:   dur,
		ObservedAtUTC: observedAt.UTC().Format(time.RFC3339),
	}
}

func TestProcessSubmissionAcceptsAndUpdates(t *testing.T) {
	now := time.Date(2025, 10, 22, 11, 0, 0, 0, time.UTC)
	store := newFakeStore()
	store.addSegment(models.SegmentKey{RouteID: "335E", FromStopID: "A", ToStopID: "B"}, 1)
	store.addSegment(models.SegmentKey{RouteID: "335E", FromStopID: "B", ToStopID: "C"}, 2)
	store.seedAllBins(1, 600)
	store.seedAllBins(2, 300)

	sub := &models.RideSubmission{
		RouteID: "335E",
		Segments: []models.SegmentObservation{
			observation("A", "B", 580, now.Add(-time.Hour)),
			observation("B", "C", 310, now.Add(-50*time.Minute)),
		},
	}

	res, err := testOrchestrator(store).ProcessSubmission(sub, now)
	require.NoError(t, err)

	assert.Equal(t, 2, res.Accepted)
	assert.Zero(t, res.Rejected)
	assert.Empty(t, res.RejectedByReason)
	require.Len(t, res.Outcomes, 2)
	assert.True(t, res.Outcomes[0].Accepted)
	assert.EqualValues(t, 1, res.Outcomes[0].SegmentID)

	require.Len(t, store.puts, 2)
	assert.EqualValues(t, 1, store.puts[0].N)
	assert.Equal(t, 580.0, store.puts[0].WelfordMean)
}

func TestProcessSubmissionRejectionsAreCounted(t *testing.T) {
	now := time.Date(2025, 10, 22, 11, 0, 0, 0, time.UTC)
	store := newFakeStore()
	store.addSegment(models.SegmentKey{RouteID: "335E", FromStopID: "A", ToStopID: "B"}, 1)
	store.seedAllBins(1, 600)
	// One bin key has no stats rows at all
	store.addSegment(models.SegmentKey{RouteID: "335E", FromStopID: "B", ToStopID: "C"}, 2)

	lowConf := 0.3
	good := observation("A", "B", 590, now.Add(-time.Hour))
	bad := observation("A", "B", 600, now.Add(-time.Hour))
	bad.MapmatchConf = &lowConf
	orphan := observation("B", "C", 300, now.Add(-time.Hour))

	sub := &models.RideSubmission{
		RouteID:  "335E",
		Segments: []models.SegmentObservation{good, bad, orphan},
	}

	res, err := testOrchestrator(store).ProcessSubmission(sub, now)
	require.NoError(t, err)

	assert.Equal(t, 1, res.Accepted)
	assert.Equal(t, 2, res.Rejected)
	assert.Equal(t, map[string]int{
		"low_mapmatch_conf": 1,
		"missing_stats":     1,
	}, res.RejectedByReason)

	require.Len(t, res.Outcomes, 3)
	assert.True(t, res.Outcomes[0].Accepted)
	assert.Equal(t, learning.ReasonLowMapmatchConf, res.Outcomes[1].Reason)
	assert.Equal(t, learning.ReasonMissingStats, res.Outcomes[2].Reason)
}

func TestProcessSubmissionUnknownSegmentFailsWhole(t *testing.T) {
	now := time.Date(2025, 10, 22, 11, 0, 0, 0, time.UTC)
	store := newFakeStore()
	store.addSegment(models.SegmentKey{RouteID: "335E", FromStopID: "A", ToStopID: "B"}, 1)
	store.seedAllBins(1, 600)

	sub := &models.RideSubmission{
		RouteID: "335E",
		Segments: []models.SegmentObservation{
			observation("A", "B", 580, now.Add(-time.Hour)),
			observation("X", "Y", 300, now.Add(-time.Hour)),
		},
	}

	_, err := testOrchestrator(store).ProcessSubmission(sub, now)
	assert.ErrorIs(t, err, ErrUnknownSegment)
}

func TestProcessSubmissionTooManySegments(t *testing.T) {
	now := time.Now()
	segments := make([]models.SegmentObservation, 51)
	for i := range segments {
		segments[i] = observation("A", "B", 100, now.Add(-time.Hour))
	}

	_, err := testOrchestrator(newFakeStore()).ProcessSubmission(
		&models.RideSubmission{RouteID: "335E", Segments: segments}, now)
	assert.ErrorIs(t, err, ErrTooManySegments)
}

func TestProcessSubmissionValidationFailure(t *testing.T) {
	now := time.Date(2025, 10, 22, 11, 0, 0, 0, time.UTC)

	sub := &models.RideSubmission{
		RouteID: "335E",
		Segments: []models.SegmentObservation{
			observation("A", "B", 580, now.Add(time.Hour)), // future
		},
	}

	_, err := testOrchestrator(newFakeStore()).ProcessSubmission(sub, now)
	assert.ErrorIs(t, err, ErrInvalidSubmission)
}

func TestProcessSubmissionStorageFailureAborts(t *testing.T) {
	now := time.Date(2025, 10, 22, 11, 0, 0, 0, time.UTC)
	store := newFakeStore()
	store.addSegment(models.SegmentKey{RouteID: "335E", FromStopID: "A", ToStopID: "B"}, 1)
	store.seedAllBins(1, 600)
	store.failPut = true

	sub := &models.RideSubmission{
		RouteID: "335E",
		Segments: []models.SegmentObservation{
			observation("A", "B", 580, now.Add(-time.Hour)),
		},
	}

	_, err := testOrchestrator(store).ProcessSubmission(sub, now)
	assert.Error(t, err)
}

func TestProcessSubmissionHolidayBin(t *testing.T) {
	// Wednesday observation flagged as holiday lands in the weekend partition
	now := time.Date(2025, 10, 22, 12, 0, 0, 0, time.UTC)
	store := newFakeStore()
	store.addSegment(models.SegmentKey{RouteID: "335E", FromStopID: "A", ToStopID: "B"}, 1)
	store.seedAllBins(1, 600)

	obs := observation("A", "B", 580, now.Add(-time.Hour))
	obs.IsHoliday = true

	res, err := testOrchestrator(store).ProcessSubmission(
		&models.RideSubmission{RouteID: "335E", Segments: []models.SegmentObservation{obs}}, now)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, res.Outcomes[0].BinID, 96)
}
