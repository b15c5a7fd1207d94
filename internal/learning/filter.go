package learning

import (
	"math"

	"github.com/kkin1995/bmtc-transit-app/internal/models"
)

// RejectReason labels why an observation was refused admission. The values
// are wire-visible in the ride summary response histogram.
type RejectReason string

const (
	ReasonLowMapmatchConf RejectReason = "low_mapmatch_conf"
	ReasonMissingStats    RejectReason = "missing_stats"
	ReasonOutlier         RejectReason = "outlier"
)

// AdmitResult is the tagged outcome of the admission filter. The orchestrator
// both counts it and forwards it to the audit log; the filter itself has no
// side effects.
type AdmitResult struct {
	Accepted bool
	Reason   RejectReason
}

// Outlier detection needs this many samples before the Welford variance is
// trusted; below it every observation is admitted so cold keys can bootstrap
// from schedule-only state.
const minSamplesForOutlier = 5

// sigmaEpsilon guards the z-test against near-zero variance.
const sigmaEpsilon = 1e-6

// Admit decides whether an observation may update the statistics for its
// (segment, bin) key. Reasons are evaluated in fixed priority order:
// confidence gating first, so a badly map-matched observation can never reach
// the outlier test, then stats presence, then the z-score outlier check.
// Pure function of its inputs.
func Admit(durationSec, mapmatchConf float64, current *models.SegmentStats, p Params) AdmitResult {
	if mapmatchConf < p.MapmatchMinConf {
		return AdmitResult{Reason: ReasonLowMapmatchConf}
	}
	if current == nil {
		return AdmitResult{Reason: ReasonMissingStats}
	}
	if IsOutlier(durationSec, current.WelfordMean, VarianceFromM2(current.WelfordM2, current.N), current.N, p.OutlierSigma) {
		return AdmitResult{Reason: ReasonOutlier}
	}
	return AdmitResult{Accepted: true}
}

// IsOutlier reports whether x lies more than sigmaThreshold standard
// deviations from the running mean. Always false at n <= minSamplesForOutlier
// or when the variance signal is effectively zero.
func IsOutlier(x, mean, variance float64, n int64, sigmaThreshold float64) bool {
	if n <= minSamplesForOutlier {
		return false
	}
	sigma := math.Sqrt(variance)
	if sigma < sigmaEpsilon {
		return false
	}
	return math.Abs(x-mean) > sigmaThreshold*sigma
}
