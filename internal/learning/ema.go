package learning

import (
	"math"
	"time"
)

const secondsPerDay = 86400

// UpdateEMA folds one observation into the exponentially weighted mean and
// variance with smoothing factor alpha.
func UpdateEMA(mean, variance, x, alpha float64) (float64, float64) {
	mean = alpha*x + (1-alpha)*mean
	diff := x - mean
	variance = alpha*diff*diff + (1-alpha)*variance
	return mean, variance
}

// TimeBasedAlpha derives the EMA smoothing factor from the wall-clock gap
// since the previous admitted observation, using half-life decay:
//
//	alpha(dt) = 1 - exp(-ln2 * dt_days / halfLifeDays)
//
// A key observed frequently adapts slowly per sample; after a long gap the
// stale EMA state is down-weighted by letting alpha approach 1. The result is
// clamped to [baseAlpha, 1]. On the first observation (lastUpdate == nil)
// there is no gap to measure and baseAlpha is returned directly.
func TimeBasedAlpha(lastUpdate *int64, now time.Time, baseAlpha float64, halfLifeDays int) float64 {
	if lastUpdate == nil {
		return baseAlpha
	}
	elapsedDays := float64(now.Unix()-*lastUpdate) / secondsPerDay
	alpha := 1.0 - math.Exp(-math.Ln2*elapsedDays/float64(halfLifeDays))
	if alpha < baseAlpha {
		return baseAlpha
	}
	if alpha > 1.0 {
		return 1.0
	}
	return alpha
}

// IsStale reports whether a key has gone longer than thresholdDays without an
// admitted observation. Never-updated keys are stale by definition.
func IsStale(lastUpdate *int64, now time.Time, thresholdDays int) bool {
	if lastUpdate == nil {
		return true
	}
	return now.Unix()-*lastUpdate > int64(thresholdDays)*secondsPerDay
}
