package raptor

import (
	"github.com/pkg/errors"

	"github.com/antigravity/transit-router/internal/journey"
	"github.com/antigravity/transit-router/internal/network"
)

// Rounds bounds the number of trips (K) a query will consider.
const Rounds = 8

// ErrStopOutOfRange is returned when a query references a stop index outside the
// Network.
var ErrStopOutOfRange = errors.New("raptor: stop index out of range")

// markedStopSet is a word-chunked bitmap of stops touched in the current round, checked
// for all-false via network.IsZero to decide round termination.
type markedStopSet struct {
	words []uint64
}

func newMarkedStopSet(numStops int) markedStopSet {
	return markedStopSet{words: make([]uint64, (numStops+63)/64)}
}

func (m *markedStopSet) set(stop int) { m.words[stop/64] |= 1 << uint(stop%64) }

func (m *markedStopSet) clear() {
	for i := range m.words {
		m.words[i] = 0
	}
}

func (m *markedStopSet) isEmpty() bool { return network.IsZero(m.words) }

func (m *markedStopSet) isSet(stop int) bool {
	return m.words[stop/64]&(1<<uint(stop%64)) != 0
}

// routesFromMarkedStops returns, for each route touched by a marked stop, the smallest
// stop order at which it was touched (the set Q of the RAPTOR paper). Unreached routes
// are absent from the map.
func routesFromMarkedStops(net *network.Network, marked *markedStopSet, numStops int) map[network.RouteIndex]int {
	earliest := make(map[network.RouteIndex]int)
	for stop := 0; stop < numStops; stop++ {
		if !marked.isSet(stop) {
			continue
		}
		for _, routeIdx := range net.RoutesThroughStop(network.StopIndex(stop)) {
			seq := net.RouteStopSequence(routeIdx)
			for order, s := range seq {
				if cur, ok := earliest[routeIdx]; ok && order >= cur {
					break
				}
				if s == network.StopIndex(stop) {
					earliest[routeIdx] = order
					break
				}
			}
		}
	}
	return earliest
}

// boarding tracks the vehicle a scan is currently riding while walking a route.
type boarding struct {
	tripOrder int
	b         journey.Boarding
}

// Query runs single-criterion RAPTOR: round-based earliest-arrival search bounded to
// Rounds trips.
func Query(net *network.Network, start, end network.StopIndex, startTime network.Timestamp) (journey.Journey, error) {
	numStops := len(net.Stops)
	if int(start) < 0 || int(start) >= numStops || int(end) < 0 || int(end) >= numStops {
		return journey.Journey{Network: net}, ErrStopOutOfRange
	}
	if start == end {
		return journey.Journey{Network: net}, nil
	}

	tau := make([][Rounds]network.Timestamp, numStops)
	for i := range tau {
		for k := range tau[i] {
			tau[i][k] = network.InfiniteTime
		}
	}
	tauStar := make([]journey.TauEntry, numStops)
	for i := range tauStar {
		tauStar[i].Time = network.InfiniteTime
	}

	tau[start][0] = startTime
	tauStar[start] = journey.TauEntry{Time: startTime}

	marked := newMarkedStopSet(numStops)
	marked.set(int(start))

	for k := 1; k < Rounds; k++ {
		earliestStopForRoute := routesFromMarkedStops(net, &marked, numStops)
		marked.clear()

		for routeIdx, earliestStopOrder := range earliestStopForRoute {
			route := &net.Routes[routeIdx]
			seq := net.RouteStopSequence(routeIdx)
			var current *boarding

			for order := earliestStopOrder; order < len(seq); order++ {
				stopIdx := seq[order]

				currentTau := tau[stopIdx][k-1]
				var transferTime network.Timestamp
				if k > 1 {
					transferTime = net.TransferTimes[stopIdx]
				}

				var currentDepartureTime *network.Timestamp
				if current != nil {
					row := net.Trip(routeIdx, network.TripOrder(current.tripOrder))
					arrivalTime := row[order].ArrivalTime
					dep := row[order].DepartureTime
					currentDepartureTime = &dep
					bestKnown := tauStar[stopIdx].Time
					if tauStar[end].Time < bestKnown {
						bestKnown = tauStar[end].Time
					}
					if arrivalTime < bestKnown {
						tau[stopIdx][k] = arrivalTime
						tauStar[stopIdx] = journey.TauEntry{Time: arrivalTime, Boarding: &current.b}
						marked.set(int(stopIdx))
					}
				}

				legalBoardingTime := saturatingAdd(currentTau, transferTime)
				if currentDepartureTime == nil || legalBoardingTime <= *currentDepartureTime {
					firstTripToScan := route.NumTrips
					if current != nil {
						firstTripToScan = current.tripOrder
					}

					foundTrip := -1
					var foundDeparture network.Timestamp
					for trip := firstTripToScan - 1; trip >= 0; trip-- {
						dep := net.StopTimes[net.StopTimeIndex(routeIdx, network.TripOrder(trip), order)].DepartureTime
						if dep < legalBoardingTime {
							break
						}
						foundTrip = trip
						foundDeparture = dep
					}

					if foundTrip >= 0 {
						current = &boarding{
							tripOrder: foundTrip,
							b: journey.Boarding{
								BoardedStop:      stopIdx,
								BoardedStopOrder: order,
								BoardedTime:      foundDeparture,
								Route:            routeIdx,
								Trip:             network.TripOrder(foundTrip),
							},
						}
					}
				}
			}
		}

		if marked.isEmpty() {
			break
		}
	}

	tauEntries := make([]journey.TauEntry, numStops)
	copy(tauEntries, tauStar)
	return journey.FromTau(tauEntries, net, start, end)
}

func saturatingAdd(a, b network.Timestamp) network.Timestamp {
	if a >= network.InfiniteTime-b {
		return network.InfiniteTime
	}
	return a + b
}
