package learning

import (
	"math"

	"github.com/kkin1995/bmtc-transit-app/internal/models"
)

// Sample-count cut points for the confidence tiers and the percentile
// safety margin.
const (
	highConfidenceN   = 8
	mediumConfidenceN = 3
)

// z-multipliers for the 90th percentile under the normal approximation. The
// widened multiplier applies below highConfidenceN samples, where the
// Gaussian assumption is not trustworthy.
const (
	z90        = 1.28
	z90Widened = 1.5
)

// BlendWeight is the Bayesian-shrinkage weight w = n/(n+n0) given to learned
// data over the schedule prior: 0 at n=0, 0.5 at n=n0, approaching 1 as n
// grows.
func BlendWeight(n int64, n0 int) float64 {
	return float64(n) / (float64(n) + float64(n0))
}

// BlendedMean combines the learned mean with the schedule baseline using the
// shrinkage weight.
func BlendedMean(welfordMean, scheduleMean float64, n int64, n0 int) float64 {
	w := BlendWeight(n, n0)
	return w*welfordMean + (1-w)*scheduleMean
}

// RobustPercentiles computes p50/p90 around the blended mean with low-n
// protection. Below highConfidenceN samples the band is widened to
// z90Widened sigma, and when there is no variance signal at all a heuristic
// 10%-of-schedule uncertainty stands in for sigma. lowN reports whether the
// widened path was taken.
func RobustPercentiles(mean, variance float64, n int64, scheduleMean float64) (p50, p90 float64, lowN bool) {
	p50 = mean
	if n < highConfidenceN {
		sigma := scheduleMean * 0.1
		if variance > 0 {
			sigma = math.Sqrt(variance)
		}
		return p50, mean + z90Widened*sigma, true
	}
	return p50, mean + z90*math.Sqrt(variance), false
}

// ConfidenceTier maps a sample count to its confidence label.
func ConfidenceTier(n int64) string {
	switch {
	case n >= highConfidenceN:
		return models.ConfidenceHigh
	case n >= mediumConfidenceN:
		return models.ConfidenceMedium
	default:
		return models.ConfidenceLow
	}
}

// Estimate runs the full blend and percentile engine over one stats row.
// Read-only: queries never mutate statistics.
func Estimate(stats models.SegmentStats, p Params) models.Estimate {
	mean := BlendedMean(stats.WelfordMean, stats.ScheduleMean, stats.N, p.N0)
	variance := VarianceFromM2(stats.WelfordM2, stats.N)
	p50, p90, _ := RobustPercentiles(mean, variance, stats.N, stats.ScheduleMean)
	return models.Estimate{
		DurationSec: mean,
		P50Sec:      p50,
		P90Sec:      p90,
		BlendWeight: BlendWeight(stats.N, p.N0),
		Confidence:  ConfidenceTier(stats.N),
		SamplesUsed: stats.N,
	}
}
