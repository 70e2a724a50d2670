package raptor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/antigravity/transit-router/internal/gtfs"
	"github.com/antigravity/transit-router/internal/journey"
	"github.com/antigravity/transit-router/internal/network"
)

var testDate = gtfs.Date{Year: 2026, Month: 7, Day: 29}

func weekdayService() gtfs.Service {
	return gtfs.Service{
		ID:        "WEEKDAY",
		Weekdays:  [7]bool{true, true, true, true, true, false, false},
		StartDate: gtfs.Date{Year: 2026, Month: 1, Day: 1},
		EndDate:   gtfs.Date{Year: 2026, Month: 12, Day: 31},
	}
}

// threeStopLine builds a feed with a single A->B->C line running two trips thirty
// minutes apart, and an unreachable fourth stop D with no route through it.
func threeStopLine() gtfs.Feed {
	return gtfs.Feed{
		Stops: []gtfs.Stop{
			{ID: "A", Name: "Alpha"},
			{ID: "B", Name: "Beta"},
			{ID: "C", Name: "Gamma"},
			{ID: "D", Name: "Delta"},
		},
		Trips: []gtfs.Trip{
			{
				ID: "T1", RouteID: "R1", ServiceID: "WEEKDAY", HasDirection: true,
				StopTimes: []gtfs.StopTime{
					{StopID: "A", ArrivalTime: 8 * 3600, DepartureTime: 8 * 3600},
					{StopID: "B", ArrivalTime: 8*3600 + 600, DepartureTime: 8*3600 + 620},
					{StopID: "C", ArrivalTime: 8*3600 + 1200, DepartureTime: 8*3600 + 1200},
				},
			},
			{
				ID: "T2", RouteID: "R1", ServiceID: "WEEKDAY", HasDirection: true,
				StopTimes: []gtfs.StopTime{
					{StopID: "A", ArrivalTime: 8*3600 + 1800, DepartureTime: 8*3600 + 1800},
					{StopID: "B", ArrivalTime: 8*3600 + 2400, DepartureTime: 8*3600 + 2420},
					{StopID: "C", ArrivalTime: 8*3600 + 3000, DepartureTime: 8*3600 + 3000},
				},
			},
		},
		Services: map[string]gtfs.Service{"WEEKDAY": weekdayService()},
		Routes:   map[string]gtfs.Route{"R1": {ID: "R1", ShortName: "R1"}},
	}
}

func buildTestNetwork(t *testing.T) *network.Network {
	t.Helper()
	net, err := network.Build(threeStopLine(), testDate, network.BuildOptions{DefaultTransferTime: 60})
	require.NoError(t, err)
	return net
}

func TestQueryFindsEarliestArrival(t *testing.T) {
	net := buildTestNetwork(t)
	a, _ := net.StopIndexForName("Alpha")
	c, _ := net.StopIndexForName("Gamma")

	j, err := Query(net, a, c, 8*3600)
	require.NoError(t, err)
	require.NotEmpty(t, j.Legs)
	assert.Equal(t, a, j.Legs[0].BoardedStop)
	assert.Equal(t, c, j.Legs[len(j.Legs)-1].ArrivalStop)
	assert.Equal(t, network.Timestamp(8*3600+1200), j.Legs[len(j.Legs)-1].ArrivalTime)
}

func TestQueryBoardsExactlyAtDepartureTime(t *testing.T) {
	net := buildTestNetwork(t)
	a, _ := net.StopIndexForName("Alpha")
	c, _ := net.StopIndexForName("Gamma")

	// Boarding is legal when departure >= boarding time, not strictly greater.
	j, err := Query(net, a, c, network.Timestamp(8*3600))
	require.NoError(t, err)
	require.NotEmpty(t, j.Legs)
	assert.Equal(t, network.Timestamp(8*3600), j.Legs[0].BoardedTime)
}

func TestQueryStartEqualsEnd(t *testing.T) {
	net := buildTestNetwork(t)
	a, _ := net.StopIndexForName("Alpha")

	j, err := Query(net, a, a, 8*3600)
	require.NoError(t, err)
	assert.Empty(t, j.Legs)
	assert.Equal(t, network.Timestamp(0), j.Duration())
}

func TestQueryNoReachableDestination(t *testing.T) {
	net := buildTestNetwork(t)
	a, _ := net.StopIndexForName("Alpha")
	d, _ := net.StopIndexForName("Delta")

	_, err := Query(net, a, d, 8*3600)
	assert.ErrorIs(t, err, journey.ErrNoJourneyFound)
}

func TestQueryStartTimeAfterEveryDeparture(t *testing.T) {
	net := buildTestNetwork(t)
	a, _ := net.StopIndexForName("Alpha")
	c, _ := net.StopIndexForName("Gamma")

	_, err := Query(net, a, c, network.Timestamp(23*3600+59*60+59))
	assert.ErrorIs(t, err, journey.ErrNoJourneyFound)
}
