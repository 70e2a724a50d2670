package network

import "sort"

// BuildConnections derives the globally time-sorted connection list CSA scans.
// Connections carry no transfer times — CSA reads TransferTimes at query time — so the
// call order relative to SetTransferTime does not matter.
func (n *Network) BuildConnections() {
	var connections []Connection
	uniqueTripIndex := 0
	for routeIdx := range n.Routes {
		route := &n.Routes[routeIdx]
		stops := n.RouteStopSequence(RouteIndex(routeIdx))
		for trip := 0; trip < route.NumTrips; trip++ {
			row := n.Trip(RouteIndex(routeIdx), TripOrder(trip))
			for arrivalOrder := 1; arrivalOrder < route.NumStops; arrivalOrder++ {
				departureOrder := arrivalOrder - 1
				connections = append(connections, Connection{
					Route:              RouteIndex(routeIdx),
					TripOrder:          TripOrder(trip),
					UniqueTripIndex:    uniqueTripIndex,
					DepartureStop:      stops[departureOrder],
					DepartureStopOrder: departureOrder,
					DepartureTime:      row[departureOrder].DepartureTime,
					ArrivalStop:        stops[arrivalOrder],
					ArrivalTime:        row[arrivalOrder].ArrivalTime,
				})
			}
			uniqueTripIndex++
		}
	}

	// Stable sort: ties broken arbitrarily but consistently across builds.
	sort.SliceStable(connections, func(i, j int) bool {
		return connections[i].DepartureTime < connections[j].DepartureTime
	})

	n.Connections = connections
}
