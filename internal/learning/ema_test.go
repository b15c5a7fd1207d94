package learning

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var testNow = time.Date(2025, 10, 22, 10, 30, 0, 0, time.UTC)

func unixPtr(t time.Time) *int64 {
	ts := t.Unix()
	return &ts
}

func TestTimeBasedAlphaFirstObservation(t *testing.T) {
	assert.Equal(t, 0.1, TimeBasedAlpha(nil, testNow, 0.1, 30))
}

func TestTimeBasedAlphaAtHalfLife(t *testing.T) {
	last := unixPtr(testNow.AddDate(0, 0, -30))
	assert.InDelta(t, 0.5, TimeBasedAlpha(last, testNow, 0.1, 30), 1e-9)
}

func TestTimeBasedAlphaClampedToBase(t *testing.T) {
	// One hour gap decays far less than the base smoothing factor
	last := unixPtr(testNow.Add(-time.Hour))
	assert.Equal(t, 0.1, TimeBasedAlpha(last, testNow, 0.1, 30))
}

func TestTimeBasedAlphaLongGapApproachesOne(t *testing.T) {
	last := unixPtr(testNow.AddDate(-1, 0, 0))
	alpha := TimeBasedAlpha(last, testNow, 0.1, 30)
	assert.Greater(t, alpha, 0.99)
	assert.LessOrEqual(t, alpha, 1.0)
}

func TestTimeBasedAlphaMonotonicInGap(t *testing.T) {
	prev := 0.0
	for days := 1; days <= 120; days += 7 {
		last := unixPtr(testNow.AddDate(0, 0, -days))
		alpha := TimeBasedAlpha(last, testNow, 0.1, 30)
		assert.GreaterOrEqual(t, alpha, prev, "alpha must not decrease with gap length")
		prev = alpha
	}
}

func TestUpdateEMA(t *testing.T) {
	mean, variance := UpdateEMA(600, 100, 660, 0.5)

	// mean' = 0.5*660 + 0.5*600
	assert.InDelta(t, 630.0, mean, 1e-9)
	// var' = 0.5*(660-630)^2 + 0.5*100
	assert.InDelta(t, 500.0, variance, 1e-9)
}

func TestUpdateEMAFullWeightReplaces(t *testing.T) {
	mean, variance := UpdateEMA(600, 2500, 431, 1.0)
	assert.Equal(t, 431.0, mean)
	assert.Zero(t, variance)
}

func TestIsStale(t *testing.T) {
	assert.True(t, IsStale(nil, testNow, 90))
	assert.False(t, IsStale(unixPtr(testNow.AddDate(0, 0, -89)), testNow, 90))
	assert.True(t, IsStale(unixPtr(testNow.AddDate(0, 0, -91)), testNow, 90))
}
