package gtfs

import (
	"archive/zip"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ErrMissingFile marks a feed lacking one of the required GTFS files.
var ErrMissingFile = errors.New("missing required GTFS file")

// ReadZip parses a GTFS static zip. routes, stops, trips and stop_times are
// required; agency, calendar and feed_info are optional.
func ReadZip(path string) (*Feed, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open GTFS zip: %w", err)
	}
	defer zr.Close()

	feed := &Feed{}

	required := map[string]func(record) error{
		"routes.txt":     feed.addRoute,
		"stops.txt":      feed.addStop,
		"trips.txt":      feed.addTrip,
		"stop_times.txt": feed.addStopTime,
	}
	optional := map[string]func(record) error{
		"agency.txt":    feed.addAgency,
		"calendar.txt":  feed.addCalendar,
		"feed_info.txt": feed.addFeedInfo,
	}

	files := make(map[string]*zip.File)
	for _, f := range zr.File {
		// Some feeds nest the txt files inside a directory
		name := f.Name
		if i := strings.LastIndexByte(name, '/'); i >= 0 {
			name = name[i+1:]
		}
		files[name] = f
	}

	for name, add := range required {
		f, ok := files[name]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingFile, name)
		}
		if err := readCSV(f, add); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", name, err)
		}
	}
	for name, add := range optional {
		f, ok := files[name]
		if !ok {
			continue
		}
		if err := readCSV(f, add); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", name, err)
		}
	}

	return feed, nil
}

// record gives header-keyed access to one CSV row.
type record struct {
	index map[string]int
	row   []string
}

func (r record) get(field string) string {
	i, ok := r.index[field]
	if !ok || i >= len(r.row) {
		return ""
	}
	return strings.TrimSpace(r.row[i])
}

func (r record) getInt(field string, def int) int {
	v := r.get(field)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func (r record) getFloat(field string) (float64, error) {
	return strconv.ParseFloat(r.get(field), 64)
}

func readCSV(f *zip.File, add func(record) error) error {
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	cr := csv.NewReader(rc)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return fmt.Errorf("failed to read header: %w", err)
	}
	index := make(map[string]int, len(header))
	for i, h := range header {
		// Strip the UTF-8 BOM some feed publishers emit
		index[strings.TrimPrefix(strings.TrimSpace(h), "﻿")] = i
	}

	for line := 2; ; line++ {
		row, err := cr.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}
		if err := add(record{index: index, row: row}); err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}
	}
}

func (f *Feed) addAgency(r record) error {
	f.Agencies = append(f.Agencies, Agency{
		AgencyID: r.get("agency_id"),
		Name:     r.get("agency_name"),
		URL:      r.get("agency_url"),
		Timezone: r.get("agency_timezone"),
		Lang:     r.get("agency_lang"),
	})
	return nil
}

func (f *Feed) addRoute(r record) error {
	routeID := r.get("route_id")
	if routeID == "" {
		return errors.New("route_id is required")
	}
	f.Routes = append(f.Routes, Route{
		RouteID:   routeID,
		AgencyID:  r.get("agency_id"),
		ShortName: r.get("route_short_name"),
		LongName:  r.get("route_long_name"),
		RouteType: r.getInt("route_type", 3),
	})
	return nil
}

func (f *Feed) addStop(r record) error {
	stopID := r.get("stop_id")
	if stopID == "" {
		return errors.New("stop_id is required")
	}
	lat, err := r.getFloat("stop_lat")
	if err != nil {
		return fmt.Errorf("stop %s: invalid stop_lat", stopID)
	}
	lon, err := r.getFloat("stop_lon")
	if err != nil {
		return fmt.Errorf("stop %s: invalid stop_lon", stopID)
	}
	f.Stops = append(f.Stops, Stop{
		StopID: stopID,
		Name:   r.get("stop_name"),
		Lat:    lat,
		Lon:    lon,
		ZoneID: r.get("zone_id"),
	})
	return nil
}

func (f *Feed) addCalendar(r record) error {
	cal := Calendar{
		ServiceID: r.get("service_id"),
		StartDate: r.get("start_date"),
		EndDate:   r.get("end_date"),
	}
	for i, day := range []string{"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday"} {
		cal.Days[i] = r.get(day) == "1"
	}
	f.Calendars = append(f.Calendars, cal)
	return nil
}

func (f *Feed) addTrip(r record) error {
	tripID := r.get("trip_id")
	if tripID == "" {
		return errors.New("trip_id is required")
	}
	f.Trips = append(f.Trips, Trip{
		TripID:      tripID,
		RouteID:     r.get("route_id"),
		ServiceID:   r.get("service_id"),
		Headsign:    r.get("trip_headsign"),
		DirectionID: r.getInt("direction_id", 0),
		ShapeID:     r.get("shape_id"),
	})
	return nil
}

func (f *Feed) addStopTime(r record) error {
	f.StopTimes = append(f.StopTimes, StopTime{
		TripID:        r.get("trip_id"),
		StopSequence:  r.getInt("stop_sequence", 0),
		StopID:        r.get("stop_id"),
		ArrivalTime:   r.get("arrival_time"),
		DepartureTime: r.get("departure_time"),
	})
	return nil
}

func (f *Feed) addFeedInfo(r record) error {
	f.FeedInfo = &FeedInfo{
		PublisherName: r.get("feed_publisher_name"),
		Version:       r.get("feed_version"),
		StartDate:     r.get("feed_start_date"),
		EndDate:       r.get("feed_end_date"),
	}
	return nil
}

// ParseTime converts a GTFS HH:MM:SS time to seconds since midnight. Hours
// past 24 are legal for overnight service.
func ParseTime(s string) (int, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return 0, fmt.Errorf("invalid GTFS time %q", s)
	}
	h, err1 := strconv.Atoi(parts[0])
	m, err2 := strconv.Atoi(parts[1])
	sec, err3 := strconv.Atoi(parts[2])
	if err1 != nil || err2 != nil || err3 != nil || h < 0 || m < 0 || m > 59 || sec < 0 || sec > 59 {
		return 0, fmt.Errorf("invalid GTFS time %q", s)
	}
	return h*3600 + m*60 + sec, nil
}
