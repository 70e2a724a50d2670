package raptor

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/antigravity/transit-router/internal/journey"
	"github.com/antigravity/transit-router/internal/network"
)

// DefaultBagCapacity is the Pareto-front width used when a caller does not supply one.
const DefaultBagCapacity = 5

// ErrZeroAgents is returned by MultiDestinationQuery when called with no destinations.
var ErrZeroAgents = errors.New("raptor: no destinations requested")

// MultiCriterionQuery generalizes Query to Pareto fronts over (arrival time, cost),
// where costs is a per-stop-time-row array indexed the same way as Network.StopTimes —
// every (trip, stop order) cell carries its own cost.
func MultiCriterionQuery(net *network.Network, start, end network.StopIndex, startTime network.Timestamp, costs []float64, prefs journey.Preferences) (journey.Journey, error) {
	numStops := len(net.Stops)
	if int(start) < 0 || int(start) >= numStops || int(end) < 0 || int(end) >= numStops {
		return journey.Journey{Network: net}, ErrStopOutOfRange
	}
	if start == end {
		return journey.Journey{Network: net}, nil
	}

	tauStar := runMultiCriterionRounds(net, start, startTime, costs, DefaultBagCapacity, end, true)
	return reconstructFromBags(tauStar, net, start, end, startTime, prefs)
}

// MultiDestinationQuery computes the best Pareto-optimal journey to each of several
// destinations from a single round-based scan, reconstructing each destination's
// journey concurrently. Destinations with no reachable journey are simply absent from
// the result map.
func MultiDestinationQuery(ctx context.Context, net *network.Network, start network.StopIndex, ends []network.StopIndex, startTime network.Timestamp, costs []float64, prefs journey.Preferences) (map[network.StopIndex]journey.Journey, error) {
	if len(ends) == 0 {
		return nil, ErrZeroAgents
	}

	// No single target to prune against when multiple destinations are in play.
	tauStar := runMultiCriterionRounds(net, start, startTime, costs, DefaultBagCapacity, 0, false)

	results := make(map[network.StopIndex]journey.Journey, len(ends))
	var mu sync.Mutex
	g, _ := errgroup.WithContext(ctx)
	for _, end := range ends {
		end := end
		g.Go(func() error {
			var j journey.Journey
			if start == end {
				j = journey.Journey{Network: net}
			} else {
				var err error
				j, err = reconstructFromBags(tauStar, net, start, end, startTime, prefs)
				if err != nil {
					if errors.Is(err, journey.ErrNoJourneyFound) {
						return nil
					}
					return err
				}
			}
			mu.Lock()
			results[end] = j
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// runMultiCriterionRounds executes the bag-valued round loop, returning the accumulated
// best-across-rounds bag per stop (tau*). When prune is true, labels
// dominated by τ*[pruneStop] are discarded as they are produced.
func runMultiCriterionRounds(net *network.Network, start network.StopIndex, startTime network.Timestamp, costs []float64, capacity int, pruneStop network.StopIndex, prune bool) []Bag {
	numStops := len(net.Stops)

	tau := make([][]Bag, Rounds)
	for k := range tau {
		tau[k] = make([]Bag, numStops)
		for s := range tau[k] {
			tau[k][s] = NewBag(capacity)
		}
	}
	tauStar := make([]Bag, numStops)
	for s := range tauStar {
		tauStar[s] = NewBag(capacity)
	}

	startLabel := Label{ArrivalTime: startTime, Cost: 0}
	tau[0][start].Add(startLabel)
	tauStar[start].Add(startLabel)

	marked := newMarkedStopSet(numStops)
	marked.set(int(start))

	for k := 1; k < Rounds; k++ {
		earliestStopForRoute := routesFromMarkedStops(net, &marked, numStops)
		marked.clear()

		for routeIdx, earliestStopOrder := range earliestStopForRoute {
			route := &net.Routes[routeIdx]
			seq := net.RouteStopSequence(routeIdx)
			routeBag := NewBag(capacity)

			for order := earliestStopOrder; order < len(seq); order++ {
				stopIdx := seq[order]

				// 1. Advance current riders.
				advanced := NewBag(capacity)
				for _, l := range routeBag.Labels() {
					row := net.Trip(routeIdx, l.Boarding.Trip)
					costIdx := net.StopTimeIndex(routeIdx, l.Boarding.Trip, order)
					advanced.Add(Label{
						ArrivalTime: row[order].ArrivalTime,
						Cost:        l.Cost + costs[costIdx],
						Boarding:    l.Boarding,
					})
				}
				routeBag = advanced

				// 2. Deliver to stop.
				for _, l := range routeBag.Labels() {
					if tauStar[stopIdx].Dominates(l) {
						continue
					}
					if prune && tauStar[pruneStop].Dominates(l) {
						continue
					}
					mutatedRound := tau[k][stopIdx].Add(l)
					mutatedBest := tauStar[stopIdx].Add(l)
					if mutatedRound || mutatedBest {
						marked.set(int(stopIdx))
					}
				}

				// 3. Board new trips.
				var transferTime network.Timestamp
				if k > 1 {
					transferTime = net.TransferTimes[stopIdx]
				}
				for _, l := range tau[k-1][stopIdx].Labels() {
					legalBoardingTime := saturatingAdd(l.ArrivalTime, transferTime)

					foundTrip := -1
					var foundDeparture network.Timestamp
					for trip := route.NumTrips - 1; trip >= 0; trip-- {
						dep := net.StopTimes[net.StopTimeIndex(routeIdx, network.TripOrder(trip), order)].DepartureTime
						if dep < legalBoardingTime {
							break
						}
						foundTrip = trip
						foundDeparture = dep
					}
					if foundTrip < 0 {
						continue
					}

					routeBag.Add(Label{
						ArrivalTime: l.ArrivalTime,
						Cost:        l.Cost,
						Boarding: &journey.Boarding{
							BoardedStop:      stopIdx,
							BoardedStopOrder: order,
							BoardedTime:      foundDeparture,
							Route:            routeIdx,
							Trip:             network.TripOrder(foundTrip),
						},
					})
				}
			}
		}

		if marked.isEmpty() {
			break
		}
	}

	return tauStar
}

// reconstructFromBags walks back from end through tau* bags, choosing at each stop the
// label minimizing prefs.Utility among those arriving before the next leg's boarding
// time.
func reconstructFromBags(tauStar []Bag, net *network.Network, start, end network.StopIndex, startTime network.Timestamp, prefs journey.Preferences) (journey.Journey, error) {
	endLabels := tauStar[end].Labels()
	if len(endLabels) == 0 {
		return journey.Journey{Network: net}, journey.ErrNoJourneyFound
	}

	currentLabel, _ := bestLabel(endLabels, startTime, prefs)
	if currentLabel.Boarding == nil {
		return journey.Journey{Network: net}, journey.ErrNoJourneyFound
	}
	totalCost := currentLabel.Cost

	var legs []journey.Leg
	currentStop := end
	for i := 0; ; i++ {
		if i >= journey.MaxLegs {
			return journey.Journey{Network: net}, journey.ErrInfiniteLoop
		}
		boarding := currentLabel.Boarding
		if boarding == nil {
			break
		}

		arrivalOrder, found := net.StopOrderInRoute(boarding.Route, boarding.BoardedStopOrder, currentStop)
		if !found {
			return journey.Journey{Network: net}, errors.New("raptor: arrival stop not found in boarded route")
		}

		legs = append(legs, journey.Leg{
			BoardedStop:      boarding.BoardedStop,
			BoardedStopOrder: boarding.BoardedStopOrder,
			BoardedTime:      boarding.BoardedTime,
			ArrivalStop:      currentStop,
			ArrivalStopOrder: arrivalOrder,
			ArrivalTime:      currentLabel.ArrivalTime,
			Route:            boarding.Route,
			Trip:             boarding.Trip,
		})

		predStop := boarding.BoardedStop
		if predStop == start {
			break
		}

		predLabel, ok := bestLabelBefore(tauStar[predStop].Labels(), startTime, prefs, boarding.BoardedTime)
		if !ok {
			return journey.Journey{Network: net}, journey.ErrNoJourneyFound
		}
		currentStop = predStop
		currentLabel = predLabel
	}

	for i, j := 0, len(legs)-1; i < j; i, j = i+1, j-1 {
		legs[i], legs[j] = legs[j], legs[i]
	}

	return journey.Journey{Legs: legs, Cost: totalCost, Network: net}, nil
}

// bestLabel returns the label minimizing prefs.Utility, unconstrained. Returns false for
// an empty slice.
func bestLabel(labels []Label, startTime network.Timestamp, prefs journey.Preferences) (Label, bool) {
	if len(labels) == 0 {
		return Label{}, false
	}
	best := labels[0]
	bestUtil := prefs.Utility(best.ArrivalTime, best.Cost, startTime)
	for _, l := range labels[1:] {
		u := prefs.Utility(l.ArrivalTime, l.Cost, startTime)
		if u < bestUtil {
			best, bestUtil = l, u
		}
	}
	return best, true
}

// bestLabelBefore returns the label minimizing prefs.Utility among those arriving
// strictly before the given time, used when selecting a predecessor label during
// reconstruction.
func bestLabelBefore(labels []Label, startTime network.Timestamp, prefs journey.Preferences, before network.Timestamp) (Label, bool) {
	var best Label
	var bestUtil float64
	found := false
	for _, l := range labels {
		if l.ArrivalTime >= before {
			continue
		}
		u := prefs.Utility(l.ArrivalTime, l.Cost, startTime)
		if !found || u < bestUtil {
			best, bestUtil, found = l, u, true
		}
	}
	return best, found
}
