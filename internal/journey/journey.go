// Package journey reconstructs a rider-facing itinerary from the parent-pointer and
// Pareto-label state the scanners in internal/raptor and internal/csa leave behind.
package journey

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"github.com/antigravity/transit-router/internal/network"
)

// ErrNoJourneyFound is returned when no path reaches the destination.
var ErrNoJourneyFound = errors.New("journey: no journey found")

// ErrInfiniteLoop guards against a corrupted parent-pointer chain. The hop limit is a
// defense, not a root-cause fix; reconstruction surfaces the condition instead of
// spinning.
var ErrInfiniteLoop = errors.New("journey: parent-pointer chain exceeded safety limit")

// MaxLegs bounds the number of legs reconstruction will walk back through before giving
// up with ErrInfiniteLoop.
const MaxLegs = 100

// Boarding records where and when a rider joined a vehicle: the parent pointer a leg is
// reconstructed from.
type Boarding struct {
	BoardedStop      network.StopIndex
	BoardedStopOrder int
	BoardedTime      network.Timestamp
	Route            network.RouteIndex
	Trip             network.TripOrder
}

// TauEntry is the best known arrival at a stop plus the boarding that achieved it — the
// RAPTOR/CSA τ* parent-pointer slot.
type TauEntry struct {
	Time     network.Timestamp
	Boarding *Boarding
}

// Leg is one vehicle ride between a boarding and an arrival stop.
type Leg struct {
	BoardedStop      network.StopIndex
	BoardedStopOrder int
	BoardedTime      network.Timestamp
	ArrivalStop      network.StopIndex
	ArrivalStopOrder int
	ArrivalTime      network.Timestamp
	Route            network.RouteIndex
	Trip             network.TripOrder
}

// Journey is an ordered sequence of legs plus a reference back to the Network it was
// computed against, for display.
type Journey struct {
	Legs    []Leg
	Cost    float64
	Network *network.Network
}

// Duration returns the total elapsed seconds of the journey, zero for an empty journey.
func (j Journey) Duration() network.Timestamp {
	if len(j.Legs) == 0 {
		return 0
	}
	return j.Legs[len(j.Legs)-1].ArrivalTime - j.Legs[0].BoardedTime
}

func (j Journey) String() string {
	var b strings.Builder
	b.WriteString("-----------------------------------------------")
	if len(j.Legs) == 0 {
		b.WriteString("\nNo journey found.\n")
		b.WriteString("-----------------------------------------------")
		return b.String()
	}
	for _, leg := range j.Legs {
		line := j.Network.Routes[leg.Route].Line
		fmt.Fprintf(&b, "\nBoard at %s at %s (%s line).",
			j.Network.GetStop(leg.BoardedStop).Name, network.FormatTime(leg.BoardedTime), line)
		fmt.Fprintf(&b, "\nArrive at %s at %s.",
			j.Network.GetStop(leg.ArrivalStop).Name, network.FormatTime(leg.ArrivalTime))
	}
	fmt.Fprintf(&b, "\n\nTotal journey time: %d minutes.\n", j.Duration()/60)
	b.WriteString("-----------------------------------------------")
	return b.String()
}

// FromTau reconstructs a Journey by walking parent pointers back from end to start — used
// by single-criterion RAPTOR and CSA, both of which maintain a plain tau*
// parent-pointer array rather than Pareto label bags.
func FromTau(tau []TauEntry, net *network.Network, start, end network.StopIndex) (Journey, error) {
	if start == end {
		return Journey{Network: net}, nil
	}
	if tau[end].Boarding == nil {
		return Journey{Network: net}, ErrNoJourneyFound
	}

	var legs []Leg
	current := end
	for i := 0; ; i++ {
		if i >= MaxLegs {
			return Journey{Network: net}, ErrInfiniteLoop
		}
		if current == start {
			break
		}
		entry := tau[current]
		boarding := entry.Boarding
		if boarding == nil {
			break
		}

		arrivalStopOrder, found := net.StopOrderInRoute(boarding.Route, boarding.BoardedStopOrder, current)
		if !found {
			return Journey{Network: net}, errors.New("journey: arrival stop not found in boarded route")
		}

		legs = append(legs, Leg{
			BoardedStop:      boarding.BoardedStop,
			BoardedStopOrder: boarding.BoardedStopOrder,
			BoardedTime:      boarding.BoardedTime,
			ArrivalStop:      current,
			ArrivalStopOrder: arrivalStopOrder,
			ArrivalTime:      entry.Time,
			Route:            boarding.Route,
			Trip:             boarding.Trip,
		})
		current = boarding.BoardedStop
	}

	reverseLegs(legs)
	return Journey{Legs: legs, Network: net}, nil
}

func reverseLegs(legs []Leg) {
	for i, j := 0, len(legs)-1; i < j; i, j = i+1, j-1 {
		legs[i], legs[j] = legs[j], legs[i]
	}
}

// Preferences selects one label among several Pareto-optimal arrivals at a stop during
// bag-based reconstruction (McRAPTOR). A function value rather than an interface — there
// is exactly one method and no implementation needs private state beyond a closure.
type Preferences struct {
	// Utility scores a candidate (arrival time, cost) pair relative to the journey's
	// start time; reconstruction picks the label minimizing Utility among those that
	// arrive strictly before the next leg's boarding time.
	Utility func(arrivalTime network.Timestamp, cost float64, startTime network.Timestamp) float64
}

// DefaultPreferences is cost-blind: it always prefers the earliest arrival, i.e. shortest
// total travel time.
func DefaultPreferences() Preferences {
	return Preferences{
		Utility: func(arrivalTime network.Timestamp, _ float64, startTime network.Timestamp) float64 {
			return float64(arrivalTime - startTime)
		},
	}
}

// WeightedPreferences scores arrival time and cost as a weighted sum, trading travel time
// against the caller's cost model.
func WeightedPreferences(timeWeight, costWeight float64) Preferences {
	return Preferences{
		Utility: func(arrivalTime network.Timestamp, cost float64, startTime network.Timestamp) float64 {
			return timeWeight*float64(arrivalTime-startTime) + costWeight*cost
		},
	}
}
