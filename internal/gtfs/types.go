// Package gtfs parses GTFS static feeds and bootstraps the schedule tables,
// the segment registry and the per-bin schedule baselines.
package gtfs

// Agency is a row of agency.txt.
type Agency struct {
	AgencyID string
	Name     string
	URL      string
	Timezone string
	Lang     string
}

// Route is a row of routes.txt.
type Route struct {
	RouteID   string
	AgencyID  string
	ShortName string
	LongName  string
	RouteType int
}

// Stop is a row of stops.txt.
type Stop struct {
	StopID string
	Name   string
	Lat    float64
	Lon    float64
	ZoneID string
}

// Calendar is a row of calendar.txt. Days are service flags.
type Calendar struct {
	ServiceID string
	Days      [7]bool // Monday..Sunday
	StartDate string
	EndDate   string
}

// Trip is a row of trips.txt.
type Trip struct {
	TripID      string
	RouteID     string
	ServiceID   string
	Headsign    string
	DirectionID int
	ShapeID     string
}

// StopTime is a row of stop_times.txt. Times stay as GTFS strings; values
// past 24:00:00 are legal and wrap into the next service day.
type StopTime struct {
	TripID        string
	StopSequence  int
	StopID        string
	ArrivalTime   string
	DepartureTime string
}

// FeedInfo is the single row of feed_info.txt.
type FeedInfo struct {
	PublisherName string
	Version       string
	StartDate     string
	EndDate       string
}

// Feed is a fully parsed GTFS static feed.
type Feed struct {
	Agencies  []Agency
	Routes    []Route
	Stops     []Stop
	Calendars []Calendar
	Trips     []Trip
	StopTimes []StopTime
	FeedInfo  *FeedInfo
}
