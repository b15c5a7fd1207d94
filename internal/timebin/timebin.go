// Package timebin partitions the week into the 192 recurring 15-minute
// buckets that key all learned statistics: 2 day types (weekday, weekend) x
// 24 hours x 4 slots.
package timebin

import "time"

const (
	// NumBins is the total bucket count.
	NumBins = 192

	// Day-type partitions.
	Weekday = 0
	Weekend = 1

	binsPerDayType = 96
	slotMinutes    = 15
)

// Resolve maps an instant to its bin in [0, NumBins). The instant is
// converted to civil time in loc, the server's fixed reference timezone, so
// the mapping is server-authoritative and reproducible regardless of the
// caller's zone. A holiday on a weekday is remapped to the weekend partition
// with the same hour and slot. Pure and total: every valid instant resolves
// to exactly one bin.
func Resolve(t time.Time, loc *time.Location, isHoliday bool) int {
	local := t.In(loc)

	weekdayType := Weekday
	switch local.Weekday() {
	case time.Saturday, time.Sunday:
		weekdayType = Weekend
	default:
		if isHoliday {
			weekdayType = Weekend
		}
	}

	return weekdayType*binsPerDayType + local.Hour()*4 + local.Minute()/slotMinutes
}

// FromDaySeconds maps seconds-since-midnight to a bin in the given day-type
// partition. GTFS stop times past 24:00:00 wrap into the next service day.
func FromDaySeconds(sec int, weekdayType int) int {
	sec %= 86400
	hour := sec / 3600
	minute := (sec % 3600) / 60
	return weekdayType*binsPerDayType + hour*4 + minute/slotMinutes
}

// Describe splits a bin back into its (weekdayType, hour, minuteStart)
// coordinates, the inverse of the packing used by Resolve.
func Describe(bin int) (weekdayType, hour, minuteStart int) {
	weekdayType = bin / binsPerDayType
	rem := bin % binsPerDayType
	return weekdayType, rem / 4, (rem % 4) * slotMinutes
}
