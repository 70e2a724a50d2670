// Package network materializes a parsed GTFS feed into the cache-friendly, index-based
// timetable representation the RAPTOR and CSA scanners search: dense integer stop/route/
// trip indices, a row-major stop-times matrix, and an inverted stop->routes index.
package network

import "time"

// StopIndex, RouteIndex and TripOrder are dense, small-integer handles into the flat
// arrays below. A trip is addressed as (RouteIndex, TripOrder), never standalone.
type StopIndex int32
type RouteIndex int32
type TripOrder int32

// Timestamp is seconds since midnight of the query date. Values past 24*3600 are valid,
// representing post-midnight service on the previous day's schedule.
type Timestamp int32

const InfiniteTime Timestamp = 1<<31 - 1

// Point is a geographic coordinate in degrees.
type Point struct {
	Latitude, Longitude float64
}

const earthRadiusKM = 6371.0

// DistanceKM returns the equirectangular-projection approximation of the distance between
// two points, in kilometres. Accurate for the short distances between nearby transit
// stops; not a substitute for the haversine formula over long distances.
func (p Point) DistanceKM(other Point) float64 {
	x := toRadians(other.Longitude-p.Longitude) * cos(toRadians((other.Latitude+p.Latitude)*0.5))
	y := toRadians(other.Latitude - p.Latitude)
	return sqrt(x*x+y*y) * earthRadiusKM
}

// Stop is a physical boarding location plus the slice of routes that visit it.
type Stop struct {
	Name        string // canonicalized, see ShortStopName
	ExternalID  string
	Point       Point
	routesStart int
	routesCount int
}

// StopTime is a trip's arrival/departure pair at one stop of its route.
type StopTime struct {
	ArrivalTime   Timestamp
	DepartureTime Timestamp
}

// Route is an equivalence class of trips sharing an ordered stop sequence and direction.
// It is not a GTFS route ("line") — see Route.Line for the display label.
type Route struct {
	Line          string
	NumStops      int
	NumTrips      int
	RouteStopsIdx int // base offset into Network.RouteStops
	StopTimesIdx  int // base offset into Network.StopTimes (row-major, NumTrips x NumStops)
}

// Connection is one hop of one trip between two adjacent stops, used by CSA.
type Connection struct {
	Route                RouteIndex
	TripOrder            TripOrder
	UniqueTripIndex      int // dense, assigned across the whole network; used for CSA's reachability flags
	DepartureStop        StopIndex
	DepartureStopOrder   int
	DepartureTime        Timestamp
	ArrivalStop          StopIndex
	ArrivalTime          Timestamp
}

// Network is the immutable, query-ready timetable. It is built once per (feed, date) pair
// and never mutated while queries run against it.
type Network struct {
	Stops     []Stop
	Routes    []Route
	NumTrips  int // total trips across all routes; not derivable from len(Stops)

	RouteStops []StopIndex // route.RouteStopsIdx .. +NumStops
	StopTimes  []StopTime  // route.StopTimesIdx .. +NumTrips*NumStops, row-major
	StopRoutes []RouteIndex // stop.routesStart .. +routesCount

	TransferTimes []Timestamp // per-stop, seconds; SetTransferTime overwrites one entry

	Connections []Connection // empty until BuildConnections runs

	StopIndexByID map[string]StopIndex

	Date time.Time
}

// RouteStopSequence returns the ordered stop sequence of a route.
func (n *Network) RouteStopSequence(r RouteIndex) []StopIndex {
	route := &n.Routes[r]
	return n.RouteStops[route.RouteStopsIdx : route.RouteStopsIdx+route.NumStops]
}

// Trip returns the stop-time row for the given (route, trip order) pair.
func (n *Network) Trip(r RouteIndex, trip TripOrder) []StopTime {
	route := &n.Routes[r]
	start := route.StopTimesIdx + int(trip)*route.NumStops
	return n.StopTimes[start : start+route.NumStops]
}

// StopTimeIndex returns the flat index of a (route, trip, stop order) cell in StopTimes,
// the same indexing scheme a per-stop-time cost array (see raptor.MultiCriterionQuery)
// must use.
func (n *Network) StopTimeIndex(r RouteIndex, trip TripOrder, stopOrder int) int {
	route := &n.Routes[r]
	return route.StopTimesIdx + int(trip)*route.NumStops + stopOrder
}

// StopOrderInRoute scans a route's stop sequence starting at fromOrder looking for
// target, returning its stop order. Used by journey reconstruction to compute an arrival
// stop's order within the route it was reached on.
func (n *Network) StopOrderInRoute(r RouteIndex, fromOrder int, target StopIndex) (int, bool) {
	seq := n.RouteStopSequence(r)
	for i := fromOrder; i < len(seq); i++ {
		if seq[i] == target {
			return i, true
		}
	}
	return 0, false
}

// RoutesThroughStop returns the routes that visit the given stop.
func (n *Network) RoutesThroughStop(s StopIndex) []RouteIndex {
	stop := &n.Stops[s]
	return n.StopRoutes[stop.routesStart : stop.routesStart+stop.routesCount]
}

func (n *Network) GetStop(s StopIndex) *Stop { return &n.Stops[s] }

// StopIndexForName looks up a stop by case/whitespace-insensitive substring match against
// its short (canonicalized) name. Returns ok=false when nothing matches.
func (n *Network) StopIndexForName(query string) (StopIndex, bool) {
	normalizedQuery := normalizeForCompare(query)
	for i, stop := range n.Stops {
		if containsNormalized(ShortStopName(stop.Name), normalizedQuery) {
			return StopIndex(i), true
		}
	}
	return 0, false
}

// SetTransferTime overwrites the transfer time for one stop. Overrides take effect at
// query time: CSA reads TransferTimes directly on every sweep rather than baking the
// value into Connection at build time, so the call order relative to BuildConnections
// does not matter.
func (n *Network) SetTransferTime(stop StopIndex, seconds Timestamp) {
	n.TransferTimes[stop] = seconds
}
