package gtfs

import (
	"database/sql"
	"fmt"
	"log"
	"sort"
	"strconv"
	"time"

	"github.com/golang/geo/s2"
	"gonum.org/v1/gonum/stat"

	"github.com/kkin1995/bmtc-transit-app/internal/database"
	"github.com/kkin1995/bmtc-transit-app/internal/models"
	"github.com/kkin1995/bmtc-transit-app/internal/repository"
	"github.com/kkin1995/bmtc-transit-app/internal/timebin"
)

const earthRadiusMeters = 6371008.8

// Importer loads a parsed feed into SQLite: the raw GTFS tables, the derived
// segment registry and the seeded per-bin schedule baselines.
type Importer struct {
	db *sql.DB
}

// NewImporter creates a new importer
func NewImporter(db *sql.DB) *Importer {
	return &Importer{db: db}
}

// Summary reports what an import wrote.
type Summary struct {
	Routes     int
	Stops      int
	Trips      int
	StopTimes  int
	Segments   int
	SeededBins int
}

// Run imports the feed inside one transaction. Re-imports refresh the GTFS
// tables and schedule baselines but never touch learned statistics.
func (im *Importer) Run(zipPath string, now time.Time) (*Summary, error) {
	feed, err := ReadZip(zipPath)
	if err != nil {
		return nil, err
	}

	summary := &Summary{
		Routes:    len(feed.Routes),
		Stops:     len(feed.Stops),
		Trips:     len(feed.Trips),
		StopTimes: len(feed.StopTimes),
	}

	err = database.Transaction(im.db, func(tx *sql.Tx) error {
		if err := insertStatic(tx, feed); err != nil {
			return err
		}

		segments, seeded, err := im.deriveSegments(tx, feed)
		if err != nil {
			return err
		}
		summary.Segments = segments
		summary.SeededBins = seeded

		return writeMetadata(tx, feed, summary, now)
	})
	if err != nil {
		return nil, err
	}

	return summary, nil
}

func insertStatic(tx *sql.Tx, feed *Feed) error {
	for _, a := range feed.Agencies {
		if _, err := tx.Exec(
			`INSERT OR REPLACE INTO agency (agency_id, agency_name, agency_url, agency_timezone, agency_lang)
			VALUES (?, ?, ?, ?, ?)`,
			a.AgencyID, a.Name, a.URL, a.Timezone, a.Lang,
		); err != nil {
			return fmt.Errorf("failed to insert agency: %w", err)
		}
	}

	for _, rt := range feed.Routes {
		if _, err := tx.Exec(
			`INSERT OR REPLACE INTO routes (route_id, agency_id, route_short_name, route_long_name, route_type)
			VALUES (?, ?, ?, ?, ?)`,
			rt.RouteID, nullable(rt.AgencyID), nullable(rt.ShortName), nullable(rt.LongName), rt.RouteType,
		); err != nil {
			return fmt.Errorf("failed to insert route %s: %w", rt.RouteID, err)
		}
	}

	for _, s := range feed.Stops {
		if _, err := tx.Exec(
			`INSERT OR REPLACE INTO stops (stop_id, stop_name, stop_lat, stop_lon, zone_id)
			VALUES (?, ?, ?, ?, ?)`,
			s.StopID, s.Name, s.Lat, s.Lon, nullable(s.ZoneID),
		); err != nil {
			return fmt.Errorf("failed to insert stop %s: %w", s.StopID, err)
		}
	}

	for _, cal := range feed.Calendars {
		if _, err := tx.Exec(
			`INSERT OR REPLACE INTO calendar (service_id, monday, tuesday, wednesday, thursday, friday, saturday, sunday, start_date, end_date)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			cal.ServiceID,
			boolInt(cal.Days[0]), boolInt(cal.Days[1]), boolInt(cal.Days[2]), boolInt(cal.Days[3]),
			boolInt(cal.Days[4]), boolInt(cal.Days[5]), boolInt(cal.Days[6]),
			atoiOrZero(cal.StartDate), atoiOrZero(cal.EndDate),
		); err != nil {
			return fmt.Errorf("failed to insert calendar %s: %w", cal.ServiceID, err)
		}
	}

	tripStmt, err := tx.Prepare(
		`INSERT OR REPLACE INTO trips (trip_id, route_id, service_id, trip_headsign, direction_id, shape_id)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare trip insert: %w", err)
	}
	defer tripStmt.Close()
	for _, t := range feed.Trips {
		if _, err := tripStmt.Exec(t.TripID, t.RouteID, t.ServiceID, nullable(t.Headsign), t.DirectionID, nullable(t.ShapeID)); err != nil {
			return fmt.Errorf("failed to insert trip %s: %w", t.TripID, err)
		}
	}

	stStmt, err := tx.Prepare(
		`INSERT OR REPLACE INTO stop_times (trip_id, stop_sequence, stop_id, arrival_time, departure_time)
		VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare stop_time insert: %w", err)
	}
	defer stStmt.Close()
	for _, st := range feed.StopTimes {
		if _, err := stStmt.Exec(st.TripID, st.StopSequence, st.StopID, st.ArrivalTime, st.DepartureTime); err != nil {
			return fmt.Errorf("failed to insert stop_time %s/%d: %w", st.TripID, st.StopSequence, err)
		}
	}

	return nil
}

// pairDurations collects the scheduled durations observed for one segment.
type pairDurations struct {
	key   models.SegmentKey
	byBin map[int][]float64
	all   []float64
}

// deriveSegments walks each trip's consecutive stop pairs, registers the
// segment identities and seeds every time bin with a schedule baseline: the
// bin's own scheduled mean where the timetable covers it, the segment's
// overall mean elsewhere.
func (im *Importer) deriveSegments(tx *sql.Tx, feed *Feed) (segments, seeded int, err error) {
	trips := make(map[string]*Trip, len(feed.Trips))
	for i := range feed.Trips {
		trips[feed.Trips[i].TripID] = &feed.Trips[i]
	}

	stops := make(map[string]*Stop, len(feed.Stops))
	for i := range feed.Stops {
		stops[feed.Stops[i].StopID] = &feed.Stops[i]
	}

	dayTypes := serviceDayTypes(feed)

	byTrip := make(map[string][]StopTime)
	for _, st := range feed.StopTimes {
		byTrip[st.TripID] = append(byTrip[st.TripID], st)
	}

	durations := make(map[models.SegmentKey]*pairDurations)

	for tripID, stopTimes := range byTrip {
		trip, ok := trips[tripID]
		if !ok {
			continue
		}
		sort.Slice(stopTimes, func(i, j int) bool {
			return stopTimes[i].StopSequence < stopTimes[j].StopSequence
		})

		for i := 0; i+1 < len(stopTimes); i++ {
			from, to := stopTimes[i], stopTimes[i+1]

			depSec, err1 := ParseTime(from.DepartureTime)
			arrSec, err2 := ParseTime(to.ArrivalTime)
			if err1 != nil || err2 != nil {
				continue
			}
			dur := float64(arrSec - depSec)
			if dur <= 0 {
				continue
			}

			key := models.SegmentKey{
				RouteID:     trip.RouteID,
				DirectionID: trip.DirectionID,
				FromStopID:  from.StopID,
				ToStopID:    to.StopID,
			}
			pd, ok := durations[key]
			if !ok {
				pd = &pairDurations{key: key, byBin: make(map[int][]float64)}
				durations[key] = pd
			}

			pd.all = append(pd.all, dur)
			for _, dayType := range dayTypes(trip.ServiceID) {
				bin := timebin.FromDaySeconds(depSec, dayType)
				pd.byBin[bin] = append(pd.byBin[bin], dur)
			}
		}
	}

	segRepo := repository.NewSegmentRepository(tx)
	statsRepo := repository.NewStatsRepository(tx)

	for _, pd := range durations {
		distance := stopDistance(stops, pd.key.FromStopID, pd.key.ToStopID)

		segID, err := segRepo.GetOrCreate(pd.key, distance)
		if err != nil {
			return segments, seeded, err
		}
		segments++

		overallMean := stat.Mean(pd.all, nil)
		for bin := 0; bin < timebin.NumBins; bin++ {
			mean := overallMean
			if xs, ok := pd.byBin[bin]; ok {
				mean = stat.Mean(xs, nil)
			}
			if err := statsRepo.Seed(segID, bin, mean); err != nil {
				return segments, seeded, err
			}
			seeded++
		}
	}

	return segments, seeded, nil
}

// serviceDayTypes returns a lookup from service_id to the day-type partitions
// the service runs in. Without calendar.txt every service covers both.
func serviceDayTypes(feed *Feed) func(serviceID string) []int {
	both := []int{timebin.Weekday, timebin.Weekend}
	if len(feed.Calendars) == 0 {
		return func(string) []int { return both }
	}

	byService := make(map[string][]int, len(feed.Calendars))
	for _, cal := range feed.Calendars {
		var types []int
		if cal.Days[0] || cal.Days[1] || cal.Days[2] || cal.Days[3] || cal.Days[4] {
			types = append(types, timebin.Weekday)
		}
		if cal.Days[5] || cal.Days[6] {
			types = append(types, timebin.Weekend)
		}
		byService[cal.ServiceID] = types
	}

	return func(serviceID string) []int {
		if types, ok := byService[serviceID]; ok && len(types) > 0 {
			return types
		}
		return both
	}
}

// stopDistance is the great-circle distance between two stops in meters, or 0
// when either stop is unknown.
func stopDistance(stops map[string]*Stop, fromID, toID string) float64 {
	from, ok1 := stops[fromID]
	to, ok2 := stops[toID]
	if !ok1 || !ok2 {
		log.Printf("missing stop coordinates for %s -> %s", fromID, toID)
		return 0
	}
	a := s2.LatLngFromDegrees(from.Lat, from.Lon)
	b := s2.LatLngFromDegrees(to.Lat, to.Lon)
	return a.Distance(b).Radians() * earthRadiusMeters
}

func writeMetadata(tx *sql.Tx, feed *Feed, summary *Summary, now time.Time) error {
	repo := repository.NewGTFSRepository(tx)

	meta := map[string]string{
		"imported_at": now.UTC().Format(time.RFC3339),
		"routes":      strconv.Itoa(summary.Routes),
		"stops":       strconv.Itoa(summary.Stops),
		"trips":       strconv.Itoa(summary.Trips),
		"segments":    strconv.Itoa(summary.Segments),
	}
	if feed.FeedInfo != nil {
		meta["feed_version"] = feed.FeedInfo.Version
		meta["feed_publisher"] = feed.FeedInfo.PublisherName
		meta["feed_start_date"] = feed.FeedInfo.StartDate
		meta["feed_end_date"] = feed.FeedInfo.EndDate
	}

	for key, value := range meta {
		if value == "" {
			continue
		}
		if err := repo.SetMetadata(key, value, now); err != nil {
			return err
		}
	}
	return nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func atoiOrZero(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
