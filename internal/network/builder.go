package network

import (
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/pkg/errors"

	"github.com/antigravity/transit-router/internal/gtfs"
)

// stopBitfieldWords*64 bits: 448 total, the top bit reserved for direction, leaving 447
// stops as the hard per-route ceiling (the 901 bus route in Melbourne needs every one of
// them).
const stopBitfieldWords = 7
const stopBitfieldBits = stopBitfieldWords * 64
const maxStopsPerRoute = stopBitfieldBits - 1

type routeBitfield [stopBitfieldWords]uint64

func (b *routeBitfield) setBit(i int) {
	b[i/64] |= 1 << uint(i%64)
}

func (b *routeBitfield) setDirectionBit() {
	b.setBit(stopBitfieldBits - 1)
}

// TooManyStopsError is a construction-time fatal condition: a line exceeds the per-route
// stop ceiling. It names the offending line and each of its stops.
type TooManyStopsError struct {
	RouteID  string
	NumStops int
	Stops    []string
}

func (e *TooManyStopsError) Error() string {
	return fmt.Sprintf("network: route %q has %d stops, exceeding the %d-stop ceiling; stops: %v",
		e.RouteID, e.NumStops, maxStopsPerRoute, e.Stops)
}

// TooManyStopsInNetworkError is a construction-time fatal condition: the feed has more
// stops than the StopIndex width can address.
type TooManyStopsInNetworkError struct {
	NumStops int
}

func (e *TooManyStopsInNetworkError) Error() string {
	return fmt.Sprintf("network: %d stops exceeds the maximum addressable by StopIndex (%d)", e.NumStops, 1<<31-2)
}

// BuildOptions configures Build beyond the mandatory feed and date. DefaultTransferTime
// is the initial transfer time of every stop.
type BuildOptions struct {
	DefaultTransferTime Timestamp
}

// Build materializes a Network from a parsed feed for a single journey date, in three
// phases: service filtering, route derivation, then flattening into the dense arrays the
// scanners search.
func Build(feed gtfs.Feed, date gtfs.Date, opts BuildOptions) (*Network, error) {
	weekday := date.Weekday()
	if len(feed.Stops) >= 1<<31-2 {
		return nil, &TooManyStopsInNetworkError{NumStops: len(feed.Stops)}
	}

	stopIndexByID := make(map[string]StopIndex, len(feed.Stops))
	stops := make([]Stop, len(feed.Stops))
	for i, s := range feed.Stops {
		stopIndexByID[s.ID] = StopIndex(i)
		stops[i] = Stop{
			Name:       ShortStopName(s.Name),
			ExternalID: s.ID,
			Point:      Point{Latitude: s.Latitude, Longitude: s.Longitude},
		}
	}

	// Phase A — service filtering.
	type filteredTrip struct {
		trip *gtfs.Trip
	}
	byGTFSRoute := make(map[string][]filteredTrip)
	for i := range feed.Trips {
		trip := &feed.Trips[i]
		runs, known := feed.RunsOn(trip.ServiceID, date, weekday)
		if !known {
			return nil, errors.Errorf("network: trip %q references unknown service %q", trip.ID, trip.ServiceID)
		}
		if !runs {
			continue
		}
		if !trip.HasDirection {
			log.Printf("network: trip %q has no direction, defaulting to outbound", trip.ID)
		}
		byGTFSRoute[trip.RouteID] = append(byGTFSRoute[trip.RouteID], filteredTrip{trip: trip})
	}

	// Phase B — route derivation: group first by GTFS route (bounds stop count per
	// line), then within each group by a bitfield over route-local stop indices plus a
	// direction bit.
	type candidateRoute struct {
		gtfsRouteID string
		bits        routeBitfield
		trips       []*gtfs.Trip
	}
	candidatesByKey := make(map[string]map[routeBitfield]*candidateRoute)

	for gtfsRouteID, trips := range byGTFSRoute {
		localStopIndex := make(map[StopIndex]int)
		numLocalStops := 0
		for _, ft := range trips {
			for _, st := range ft.trip.StopTimes {
				sid := stopIndexByID[st.StopID]
				if _, ok := localStopIndex[sid]; !ok {
					localStopIndex[sid] = numLocalStops
					numLocalStops++
				}
			}
		}
		if numLocalStops == 0 {
			continue
		}
		if numLocalStops > maxStopsPerRoute {
			offending := make([]string, 0, numLocalStops)
			for sid := range localStopIndex {
				offending = append(offending, stops[sid].Name)
			}
			return nil, &TooManyStopsError{RouteID: gtfsRouteID, NumStops: numLocalStops, Stops: offending}
		}

		group := make(map[routeBitfield]*candidateRoute)
		candidatesByKey[gtfsRouteID] = group

		for _, ft := range trips {
			var bits routeBitfield
			if ft.trip.HasDirection && ft.trip.Direction == gtfs.DirectionInbound {
				bits.setDirectionBit()
			}
			for _, st := range ft.trip.StopTimes {
				sid := stopIndexByID[st.StopID]
				bits.setBit(localStopIndex[sid])
			}
			cr, ok := group[bits]
			if !ok {
				cr = &candidateRoute{gtfsRouteID: gtfsRouteID, bits: bits}
				group[bits] = cr
			}
			cr.trips = append(cr.trips, ft.trip)
		}
	}

	// Phase C — flattening: sort trips by first-stop arrival time, append the common
	// stop sequence and each trip's stop-times row, then build the inverted stop->routes
	// index.
	var routes []Route
	var routeStops []StopIndex
	var stopTimes []StopTime
	numTrips := 0

	// Deterministic iteration: sort candidate groups by (gtfsRouteID, bitfield) so builds
	// are reproducible across runs.
	var gtfsRouteIDs []string
	for id := range candidatesByKey {
		gtfsRouteIDs = append(gtfsRouteIDs, id)
	}
	sort.Strings(gtfsRouteIDs)

	for _, gtfsRouteID := range gtfsRouteIDs {
		group := candidatesByKey[gtfsRouteID]
		var keys []routeBitfield
		for k := range group {
			keys = append(keys, k)
		}
		sort.Slice(keys, func(i, j int) bool { return bitfieldLess(keys[i], keys[j]) })

		for _, key := range keys {
			cr := group[key]
			if len(cr.trips) == 0 {
				continue
			}
			sort.SliceStable(cr.trips, func(i, j int) bool {
				return cr.trips[i].StopTimes[0].ArrivalTime < cr.trips[j].StopTimes[0].ArrivalTime
			})

			first := cr.trips[0]
			lineLabel := lineLabelFor(feed, first.RouteID)

			route := Route{
				Line:          lineLabel,
				NumStops:      len(first.StopTimes),
				NumTrips:      len(cr.trips),
				RouteStopsIdx: len(routeStops),
				StopTimesIdx:  len(stopTimes),
			}
			for _, st := range first.StopTimes {
				routeStops = append(routeStops, stopIndexByID[st.StopID])
			}
			for _, trip := range cr.trips {
				for _, st := range trip.StopTimes {
					stopTimes = append(stopTimes, StopTime{
						ArrivalTime:   Timestamp(st.ArrivalTime),
						DepartureTime: Timestamp(st.DepartureTime),
					})
				}
			}
			numTrips += len(cr.trips)
			routes = append(routes, route)
		}
	}

	// Invert stop -> routes index.
	var stopRoutes []RouteIndex
	for stopIdx := range stops {
		stops[stopIdx].routesStart = len(stopRoutes)
		for routeIdx, route := range routes {
			for _, s := range routeStops[route.RouteStopsIdx : route.RouteStopsIdx+route.NumStops] {
				if int(s) == stopIdx {
					stopRoutes = append(stopRoutes, RouteIndex(routeIdx))
					break
				}
			}
		}
		stops[stopIdx].routesCount = len(stopRoutes) - stops[stopIdx].routesStart
	}

	transferTimes := make([]Timestamp, len(stops))
	for i := range transferTimes {
		transferTimes[i] = opts.DefaultTransferTime
	}

	return &Network{
		Stops:         stops,
		Routes:        routes,
		NumTrips:      numTrips,
		RouteStops:    routeStops,
		StopTimes:     stopTimes,
		StopRoutes:    stopRoutes,
		TransferTimes: transferTimes,
		StopIndexByID: stopIndexByID,
		Date:          time.Date(date.Year, time.Month(date.Month), date.Day, 0, 0, 0, 0, time.UTC),
	}, nil
}

func bitfieldLess(a, b routeBitfield) bool {
	for i := len(a) - 1; i >= 0; i-- {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return false
}

func lineLabelFor(feed gtfs.Feed, gtfsRouteID string) string {
	if route, ok := feed.Routes[gtfsRouteID]; ok {
		if route.ShortName != "" {
			return route.ShortName
		}
		if route.LongName != "" {
			return route.LongName
		}
	}
	return gtfsRouteID
}
