// Package csa implements the Connection Scanning Algorithm: a single linear sweep
// over a globally time-sorted connection list, sharing the Network representation with
// the raptor package.
package csa

import (
	"sort"

	"github.com/pkg/errors"

	"github.com/antigravity/transit-router/internal/journey"
	"github.com/antigravity/transit-router/internal/network"
)

// ErrStopOutOfRange is returned when a query references a stop index outside the
// Network.
var ErrStopOutOfRange = errors.New("csa: stop index out of range")

// ErrConnectionsNotBuilt is returned when Network.BuildConnections was never called.
var ErrConnectionsNotBuilt = errors.New("csa: network has no connection list; call BuildConnections first")

// Query runs the Connection Scanning Algorithm: a single sweep over the sorted
// connection list from the first connection departing at or after startTime. Requires
// net.BuildConnections to have been run.
func Query(net *network.Network, start, end network.StopIndex, startTime network.Timestamp) (journey.Journey, error) {
	numStops := len(net.Stops)
	if int(start) < 0 || int(start) >= numStops || int(end) < 0 || int(end) >= numStops {
		return journey.Journey{Network: net}, ErrStopOutOfRange
	}
	if start == end {
		return journey.Journey{Network: net}, nil
	}
	if len(net.Connections) == 0 {
		return journey.Journey{Network: net}, ErrConnectionsNotBuilt
	}

	tau := make([]journey.TauEntry, numStops)
	for i := range tau {
		tau[i].Time = network.InfiniteTime
	}
	tau[start].Time = startTime

	tripReachable := make([]bool, net.NumTrips)

	endTime := network.InfiniteTime

	first := sort.Search(len(net.Connections), func(i int) bool {
		return net.Connections[i].DepartureTime >= startTime
	})

	for i := first; i < len(net.Connections); i++ {
		c := &net.Connections[i]
		if c.DepartureTime >= endTime {
			break
		}

		var transferTime network.Timestamp
		if c.DepartureStop != start {
			transferTime = net.TransferTimes[c.DepartureStop]
		}
		legalBoardingTime := tau[c.DepartureStop].Time
		if legalBoardingTime < network.InfiniteTime-transferTime {
			legalBoardingTime += transferTime
		} else {
			legalBoardingTime = network.InfiniteTime
		}

		if !tripReachable[c.UniqueTripIndex] && legalBoardingTime <= c.DepartureTime {
			tripReachable[c.UniqueTripIndex] = true
		}

		if tripReachable[c.UniqueTripIndex] && c.ArrivalTime < tau[c.ArrivalStop].Time {
			var boarding *journey.Boarding
			pred := tau[c.DepartureStop].Boarding
			if pred != nil && pred.Trip == c.TripOrder && pred.Route == c.Route {
				// Carry the predecessor's Boarding through: still riding the same trip.
				boarding = pred
			} else {
				boarding = &journey.Boarding{
					BoardedStop:      c.DepartureStop,
					BoardedStopOrder: c.DepartureStopOrder,
					BoardedTime:      c.DepartureTime,
					Route:            c.Route,
					Trip:             c.TripOrder,
				}
			}

			tau[c.ArrivalStop] = journey.TauEntry{Time: c.ArrivalTime, Boarding: boarding}
			if c.ArrivalStop == end && c.ArrivalTime < endTime {
				endTime = c.ArrivalTime
			}
		}
	}

	return journey.FromTau(tau, net, start, end)
}
