package learning

import (
	"time"

	"github.com/kkin1995/bmtc-transit-app/internal/models"
)

// UpdateStats applies one admitted observation to a stats row and returns the
// new row. Both the exact Welford moments and the time-decayed EMA are
// advanced together, then last_update moves to the observation time. Pure
// transform: the caller persists the result, and invalid or outlier data must
// have been rejected before this point.
func UpdateStats(current models.SegmentStats, durationSec float64, observedAt time.Time, p Params) models.SegmentStats {
	next := current

	next.N, next.WelfordMean, next.WelfordM2 = UpdateWelford(
		current.N, current.WelfordMean, current.WelfordM2, durationSec)

	alpha := TimeBasedAlpha(current.LastUpdate, observedAt, p.BaseAlpha, p.HalfLifeDays)
	next.EMAMean, next.EMAVar = UpdateEMA(current.EMAMean, current.EMAVar, durationSec, alpha)

	ts := observedAt.Unix()
	next.LastUpdate = &ts
	return next
}
