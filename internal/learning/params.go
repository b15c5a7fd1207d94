// Package learning implements the online statistics engine behind segment ETA
// predictions: Welford running moments, a time-decayed EMA, observation
// admission filtering and the schedule-prior blend.
package learning

// Params holds the tuning constants for the learning engine. A Params value
// is immutable and injected into every component that needs it; there is no
// process-wide settings state.
type Params struct {
	// N0 is the prior strength of the schedule baseline: the sample count at
	// which learned data and schedule are weighted equally.
	N0 int

	// BaseAlpha is the EMA smoothing floor, used directly on the first
	// observation of a key.
	BaseAlpha float64

	// HalfLifeDays controls how fast the EMA smoothing factor grows with the
	// gap since the previous observation.
	HalfLifeDays int

	// OutlierSigma is the z-threshold for outlier rejection.
	OutlierSigma float64

	// MapmatchMinConf is the minimum map-match confidence an observation
	// needs to be admitted.
	MapmatchMinConf float64

	// StaleThresholdDays marks learned data as stale after this many days
	// without an admitted observation. Informational only.
	StaleThresholdDays int
}

// DefaultParams are the production defaults.
var DefaultParams = Params{
	N0:                 20,
	BaseAlpha:          0.1,
	HalfLifeDays:       30,
	OutlierSigma:       3.0,
	MapmatchMinConf:    0.7,
	StaleThresholdDays: 90,
}
