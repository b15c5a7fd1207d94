package timebin

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func kolkata(t *testing.T) *time.Location {
	loc, err := time.LoadLocation("Asia/Kolkata")
	require.NoError(t, err)
	return loc
}

func TestResolveWeekdayMorning(t *testing.T) {
	loc := kolkata(t)

	// Wednesday 10:33 IST: weekday partition, hour 10, slot 2
	instant := time.Date(2025, 10, 22, 10, 33, 0, 0, loc)
	assert.Equal(t, 10*4+2, Resolve(instant, loc, false))
}

func TestResolveWeekend(t *testing.T) {
	loc := kolkata(t)

	// Saturday 00:00 IST is the first weekend bin
	instant := time.Date(2025, 10, 25, 0, 0, 0, 0, loc)
	assert.Equal(t, 96, Resolve(instant, loc, false))

	// Sunday 23:59 IST is the last bin
	instant = time.Date(2025, 10, 26, 23, 59, 0, 0, loc)
	assert.Equal(t, NumBins-1, Resolve(instant, loc, false))
}

func TestResolveHolidayRemapsToWeekend(t *testing.T) {
	loc := kolkata(t)
	instant := time.Date(2025, 10, 22, 10, 33, 0, 0, loc) // Wednesday

	weekdayBin := Resolve(instant, loc, false)
	holidayBin := Resolve(instant, loc, true)

	assert.Equal(t, weekdayBin+96, holidayBin)
}

func TestResolveHolidayOnWeekendIsNoOp(t *testing.T) {
	loc := kolkata(t)
	instant := time.Date(2025, 10, 25, 14, 0, 0, 0, loc) // Saturday
	assert.Equal(t, Resolve(instant, loc, false), Resolve(instant, loc, true))
}

func TestResolveUsesReferenceTimezone(t *testing.T) {
	loc := kolkata(t)

	// 22:00 UTC Friday is 03:30 IST Saturday: weekend, hour 3, slot 2
	instant := time.Date(2025, 10, 24, 22, 0, 0, 0, time.UTC)
	assert.Equal(t, 96+3*4+2, Resolve(instant, loc, false))
}

func TestResolveCoversAllBins(t *testing.T) {
	loc := kolkata(t)
	seen := make(map[int]bool)

	// Walk a full week in 15-minute steps from a Monday midnight
	start := time.Date(2025, 10, 20, 0, 0, 0, 0, loc)
	for i := 0; i < 7*96; i++ {
		bin := Resolve(start.Add(time.Duration(i)*15*time.Minute), loc, false)
		require.GreaterOrEqual(t, bin, 0)
		require.Less(t, bin, NumBins)
		seen[bin] = true
	}
	assert.Len(t, seen, NumBins)
}

func TestFromDaySeconds(t *testing.T) {
	assert.Equal(t, 0, FromDaySeconds(0, Weekday))
	assert.Equal(t, 10*4+2, FromDaySeconds(10*3600+33*60, Weekday))
	assert.Equal(t, 96, FromDaySeconds(0, Weekend))
}

func TestFromDaySecondsWrapsOvernightService(t *testing.T) {
	// GTFS 25:30:00 is 01:30 the next service day
	assert.Equal(t, 1*4+2, FromDaySeconds(25*3600+30*60, Weekday))
}

func TestDescribeRoundTrip(t *testing.T) {
	for bin := 0; bin < NumBins; bin++ {
		weekdayType, hour, minuteStart := Describe(bin)
		assert.Equal(t, bin, weekdayType*96+hour*4+minuteStart/15)
	}
}
