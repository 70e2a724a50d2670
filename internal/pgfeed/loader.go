// Package pgfeed loads a gtfs.Feed from a Postgres/PostGIS-backed static-timetable schema.
// It is the one collaborator in this repository that knows SQL; everything downstream only
// ever sees gtfs.Feed.
package pgfeed

import (
	"context"
	"log"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"

	"github.com/antigravity/transit-router/internal/gtfs"
)

// Loader reads the static timetable out of Postgres on demand. It holds no state besides
// the pool and is safe to reuse across loads (e.g. a periodic feed refresh).
type Loader struct {
	db *pgxpool.Pool
}

func NewLoader(db *pgxpool.Pool) *Loader {
	return &Loader{db: db}
}

// Load reads stops, lines, trips/stop-times, service calendars and calendar exceptions and
// assembles them into a gtfs.Feed. It does none of the route-equivalence or service-date
// filtering work itself — that belongs to network.Build.
func (l *Loader) Load(ctx context.Context) (gtfs.Feed, error) {
	log.Println("pgfeed: loading static timetable from database...")
	start := time.Now()

	var feed gtfs.Feed

	stops, err := l.loadStops(ctx)
	if err != nil {
		return gtfs.Feed{}, errors.Wrap(err, "pgfeed: loading stops")
	}
	feed.Stops = stops
	log.Printf("pgfeed: loaded %d stops", len(feed.Stops))

	routes, err := l.loadRoutes(ctx)
	if err != nil {
		return gtfs.Feed{}, errors.Wrap(err, "pgfeed: loading lines")
	}
	feed.Routes = routes
	log.Printf("pgfeed: loaded %d lines", len(feed.Routes))

	services, err := l.loadServices(ctx)
	if err != nil {
		return gtfs.Feed{}, errors.Wrap(err, "pgfeed: loading service calendars")
	}
	feed.Services = services
	log.Printf("pgfeed: loaded %d service calendars", len(feed.Services))

	exceptions, err := l.loadCalendarExceptions(ctx)
	if err != nil {
		return gtfs.Feed{}, errors.Wrap(err, "pgfeed: loading calendar exceptions")
	}
	feed.CalendarExceptions = exceptions

	trips, err := l.loadTrips(ctx)
	if err != nil {
		return gtfs.Feed{}, errors.Wrap(err, "pgfeed: loading trips")
	}
	feed.Trips = trips
	log.Printf("pgfeed: loaded %d trips", len(feed.Trips))

	log.Printf("pgfeed: static timetable load complete in %s", time.Since(start))
	return feed, nil
}

func (l *Loader) loadStops(ctx context.Context) ([]gtfs.Stop, error) {
	rows, err := l.db.Query(ctx, `
		SELECT id, name, ST_X(location::geometry), ST_Y(location::geometry)
		FROM stops
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stops []gtfs.Stop
	for rows.Next() {
		var s gtfs.Stop
		if err := rows.Scan(&s.ID, &s.Name, &s.Longitude, &s.Latitude); err != nil {
			return nil, err
		}
		stops = append(stops, s)
	}
	return stops, rows.Err()
}

func (l *Loader) loadRoutes(ctx context.Context) (map[string]gtfs.Route, error) {
	rows, err := l.db.Query(ctx, `
		SELECT id, code, COALESCE(short_name, code), COALESCE(long_name, ''), COALESCE(color, '#000000')
		FROM lines
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	routes := make(map[string]gtfs.Route)
	for rows.Next() {
		var id, code string
		var r gtfs.Route
		if err := rows.Scan(&id, &code, &r.ShortName, &r.LongName, &r.Color); err != nil {
			return nil, err
		}
		r.ID = id
		routes[id] = r
	}
	return routes, rows.Err()
}

func (l *Loader) loadServices(ctx context.Context) (map[string]gtfs.Service, error) {
	rows, err := l.db.Query(ctx, `
		SELECT id, monday, tuesday, wednesday, thursday, friday, saturday, sunday,
		       start_year, start_month, start_day, end_year, end_month, end_day
		FROM services
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	services := make(map[string]gtfs.Service)
	for rows.Next() {
		var svc gtfs.Service
		if err := rows.Scan(
			&svc.ID,
			&svc.Weekdays[0], &svc.Weekdays[1], &svc.Weekdays[2], &svc.Weekdays[3],
			&svc.Weekdays[4], &svc.Weekdays[5], &svc.Weekdays[6],
			&svc.StartDate.Year, &svc.StartDate.Month, &svc.StartDate.Day,
			&svc.EndDate.Year, &svc.EndDate.Month, &svc.EndDate.Day,
		); err != nil {
			return nil, err
		}
		services[svc.ID] = svc
	}
	return services, rows.Err()
}

func (l *Loader) loadCalendarExceptions(ctx context.Context) ([]gtfs.CalendarException, error) {
	rows, err := l.db.Query(ctx, `
		SELECT service_id, year, month, day, added FROM calendar_exceptions
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var exceptions []gtfs.CalendarException
	for rows.Next() {
		var exc gtfs.CalendarException
		if err := rows.Scan(&exc.ServiceID, &exc.Date.Year, &exc.Date.Month, &exc.Date.Day, &exc.Added); err != nil {
			return nil, err
		}
		exceptions = append(exceptions, exc)
	}
	return exceptions, rows.Err()
}

// loadTrips loads every trip's stop-time rows in one sequence-ordered query. No calendar
// filtering happens here — deciding which trips run on the query date belongs to
// gtfs.Feed.RunsOn / network.Build.
func (l *Loader) loadTrips(ctx context.Context) ([]gtfs.Trip, error) {
	rows, err := l.db.Query(ctx, `
		SELECT t.id, t.line_id, t.service_id, t.direction,
		       ts.stop_id, ts.arrival_time, ts.departure_time
		FROM trips t
		JOIN trip_stop_times ts ON ts.trip_id = t.id
		ORDER BY t.id, ts.stop_sequence
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tripsByID := make(map[string]*gtfs.Trip)
	var order []string
	for rows.Next() {
		var tripID, lineID, serviceID string
		var direction int
		var st gtfs.StopTime
		if err := rows.Scan(&tripID, &lineID, &serviceID, &direction,
			&st.StopID, &st.ArrivalTime, &st.DepartureTime); err != nil {
			return nil, err
		}

		trip, ok := tripsByID[tripID]
		if !ok {
			trip = &gtfs.Trip{
				ID:           tripID,
				RouteID:      lineID,
				ServiceID:    serviceID,
				HasDirection: true,
				Direction:    gtfs.Direction(direction),
			}
			tripsByID[tripID] = trip
			order = append(order, tripID)
		}
		trip.StopTimes = append(trip.StopTimes, st)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	trips := make([]gtfs.Trip, 0, len(order))
	for _, id := range order {
		trips = append(trips, *tripsByID[id])
	}
	return trips, nil
}
