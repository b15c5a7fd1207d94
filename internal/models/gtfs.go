package models

// Stop is a GTFS stop row.
type Stop struct {
	StopID   string  `json:"stop_id" db:"stop_id"`
	StopName string  `json:"stop_name" db:"stop_name"`
	StopLat  float64 `json:"stop_lat" db:"stop_lat"`
	StopLon  float64 `json:"stop_lon" db:"stop_lon"`
	ZoneID   *string `json:"zone_id,omitempty" db:"zone_id"`
}

// Route is a GTFS route row.
type Route struct {
	RouteID        string  `json:"route_id" db:"route_id"`
	RouteShortName *string `json:"route_short_name,omitempty" db:"route_short_name"`
	RouteLongName  *string `json:"route_long_name,omitempty" db:"route_long_name"`
	RouteType      int     `json:"route_type" db:"route_type"`
	AgencyID       *string `json:"agency_id,omitempty" db:"agency_id"`
}

// StopsListResponse is the GET /v1/stops response.
type StopsListResponse struct {
	Stops  []Stop `json:"stops"`
	Total  int64  `json:"total"`
	Limit  int    `json:"limit"`
	Offset int    `json:"offset"`
}

// RoutesListResponse is the GET /v1/routes response.
type RoutesListResponse struct {
	Routes []Route `json:"routes"`
	Total  int64   `json:"total"`
	Limit  int     `json:"limit"`
	Offset int     `json:"offset"`
}

// TripInfo identifies the trip a departure belongs to.
type TripInfo struct {
	TripID       string  `json:"trip_id"`
	RouteID      string  `json:"route_id"`
	ServiceID    string  `json:"service_id"`
	TripHeadsign *string `json:"trip_headsign,omitempty"`
	DirectionID  *int    `json:"direction_id,omitempty"`
}

// StopTimeInfo is one scheduled call at a stop.
type StopTimeInfo struct {
	ArrivalTime   string `json:"arrival_time"`
	DepartureTime string `json:"departure_time"`
	StopSequence  int    `json:"stop_sequence"`
}

// Departure pairs a trip with its stop time for the schedule endpoint.
type Departure struct {
	Trip     TripInfo     `json:"trip"`
	StopTime StopTimeInfo `json:"stop_time"`
}

// ScheduleResponse is the GET /v1/stops/:stop_id/schedule response.
type ScheduleResponse struct {
	Stop       Stop        `json:"stop"`
	Departures []Departure `json:"departures"`
	QueryTime  string      `json:"query_time"`
}
