package learning

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kkin1995/bmtc-transit-app/internal/models"
)

// statsWith builds a row with the given sample count, mean and variance.
func statsWith(n int64, mean, variance float64) *models.SegmentStats {
	return &models.SegmentStats{
		N:           n,
		WelfordMean: mean,
		WelfordM2:   variance * float64(n),
	}
}

func TestAdmitLowConfidence(t *testing.T) {
	res := Admit(600, 0.5, statsWith(100, 600, 100), DefaultParams)
	assert.False(t, res.Accepted)
	assert.Equal(t, ReasonLowMapmatchConf, res.Reason)
}

func TestAdmitConfidenceCheckedBeforeMissingStats(t *testing.T) {
	// Both problems present: confidence gating wins
	res := Admit(600, 0.2, nil, DefaultParams)
	assert.Equal(t, ReasonLowMapmatchConf, res.Reason)
}

func TestAdmitConfidenceAtThreshold(t *testing.T) {
	res := Admit(600, 0.7, statsWith(100, 600, 100), DefaultParams)
	assert.True(t, res.Accepted)
}

func TestAdmitMissingStats(t *testing.T) {
	res := Admit(600, 0.95, nil, DefaultParams)
	assert.False(t, res.Accepted)
	assert.Equal(t, ReasonMissingStats, res.Reason)
}

func TestAdmitOutlier(t *testing.T) {
	// sigma = 10, threshold 3 sigma: 631 is in, 635 is out
	stats := statsWith(100, 600, 100)

	assert.True(t, Admit(629, 1.0, stats, DefaultParams).Accepted)
	assert.True(t, Admit(571, 1.0, stats, DefaultParams).Accepted)

	res := Admit(635, 1.0, stats, DefaultParams)
	assert.False(t, res.Accepted)
	assert.Equal(t, ReasonOutlier, res.Reason)

	res = Admit(565, 1.0, stats, DefaultParams)
	assert.Equal(t, ReasonOutlier, res.Reason)
}

func TestAdmitNoOutlierCheckDuringBootstrap(t *testing.T) {
	// At n <= 5 any duration is admitted so cold keys can accumulate data
	stats := statsWith(5, 600, 100)
	assert.True(t, Admit(10000, 1.0, stats, DefaultParams).Accepted)
}

func TestAdmitZeroVarianceGuard(t *testing.T) {
	// Identical historical samples give sigma 0; the z-test is skipped
	stats := statsWith(50, 600, 0)
	assert.True(t, Admit(9000, 1.0, stats, DefaultParams).Accepted)
}

func TestAdmitIsPure(t *testing.T) {
	stats := statsWith(100, 600, 100)
	before := *stats
	Admit(635, 1.0, stats, DefaultParams)
	assert.Equal(t, before, *stats)
}

func TestIsOutlierBoundary(t *testing.T) {
	// Exactly 3 sigma away is not an outlier; strictly beyond is
	assert.False(t, IsOutlier(630, 600, 100, 10, 3.0))
	assert.True(t, IsOutlier(630.001, 600, 100, 10, 3.0))
}
