package raptor

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/antigravity/transit-router/internal/gtfs"
	"github.com/antigravity/transit-router/internal/journey"
	"github.com/antigravity/transit-router/internal/network"
)

func zeroCosts(net *network.Network) []float64 {
	return make([]float64, len(net.StopTimes))
}

func TestMultiCriterionQueryCostBlindMatchesSingleCriterion(t *testing.T) {
	net := buildTestNetwork(t)
	a, _ := net.StopIndexForName("Alpha")
	c, _ := net.StopIndexForName("Gamma")

	single, err := Query(net, a, c, 8*3600)
	require.NoError(t, err)

	multi, err := MultiCriterionQuery(net, a, c, 8*3600, zeroCosts(net), journey.DefaultPreferences())
	require.NoError(t, err)

	require.NotEmpty(t, multi.Legs)
	assert.Equal(t, single.Legs[len(single.Legs)-1].ArrivalTime, multi.Legs[len(multi.Legs)-1].ArrivalTime)
	assert.Equal(t, a, multi.Legs[0].BoardedStop)
	assert.Equal(t, c, multi.Legs[len(multi.Legs)-1].ArrivalStop)
}

func TestMultiCriterionQueryStartEqualsEnd(t *testing.T) {
	net := buildTestNetwork(t)
	a, _ := net.StopIndexForName("Alpha")

	j, err := MultiCriterionQuery(net, a, a, 8*3600, zeroCosts(net), journey.DefaultPreferences())
	require.NoError(t, err)
	assert.Empty(t, j.Legs)
}

func TestMultiCriterionQueryNoReachableDestination(t *testing.T) {
	net := buildTestNetwork(t)
	a, _ := net.StopIndexForName("Alpha")
	d, _ := net.StopIndexForName("Delta")

	_, err := MultiCriterionQuery(net, a, d, 8*3600, zeroCosts(net), journey.DefaultPreferences())
	assert.ErrorIs(t, err, journey.ErrNoJourneyFound)
}

func TestMultiDestinationQueryRejectsEmptyDestinationList(t *testing.T) {
	net := buildTestNetwork(t)
	a, _ := net.StopIndexForName("Alpha")

	_, err := MultiDestinationQuery(context.Background(), net, a, nil, 8*3600, zeroCosts(net), journey.DefaultPreferences())
	assert.ErrorIs(t, err, ErrZeroAgents)
}

// twoRouteTransferFeed builds A->B on one route and B->C on a second route, requiring a
// transfer at B, so a multi-leg journey's accumulated cost can be checked end to end.
func twoRouteTransferFeed() gtfs.Feed {
	return gtfs.Feed{
		Stops: []gtfs.Stop{
			{ID: "A", Name: "Alpha"},
			{ID: "B", Name: "Beta"},
			{ID: "C", Name: "Gamma"},
		},
		Trips: []gtfs.Trip{
			{
				ID: "T1", RouteID: "R1", ServiceID: "WEEKDAY", HasDirection: true,
				StopTimes: []gtfs.StopTime{
					{StopID: "A", ArrivalTime: 8 * 3600, DepartureTime: 8 * 3600},
					{StopID: "B", ArrivalTime: 8*3600 + 600, DepartureTime: 8*3600 + 600},
				},
			},
			{
				ID: "T2", RouteID: "R2", ServiceID: "WEEKDAY", HasDirection: true,
				StopTimes: []gtfs.StopTime{
					{StopID: "B", ArrivalTime: 8*3600 + 900, DepartureTime: 8*3600 + 900},
					{StopID: "C", ArrivalTime: 8*3600 + 1500, DepartureTime: 8*3600 + 1500},
				},
			},
		},
		Services: map[string]gtfs.Service{"WEEKDAY": weekdayService()},
		Routes: map[string]gtfs.Route{
			"R1": {ID: "R1", ShortName: "R1"},
			"R2": {ID: "R2", ShortName: "R2"},
		},
	}
}

func TestMultiCriterionQueryAccumulatesCostAcrossLegs(t *testing.T) {
	net, err := network.Build(twoRouteTransferFeed(), testDate, network.BuildOptions{DefaultTransferTime: 60})
	require.NoError(t, err)
	a, _ := net.StopIndexForName("Alpha")
	c, _ := net.StopIndexForName("Gamma")

	costs := make([]float64, len(net.StopTimes))
	for i := range costs {
		costs[i] = 2.5
	}

	j, err := MultiCriterionQuery(net, a, c, 8*3600, costs, journey.DefaultPreferences())
	require.NoError(t, err)
	require.Len(t, j.Legs, 2)
	assert.Equal(t, 5.0, j.Cost)
}

func TestMultiDestinationQueryReturnsOneJourneyPerReachableDestination(t *testing.T) {
	net := buildTestNetwork(t)
	a, _ := net.StopIndexForName("Alpha")
	b, _ := net.StopIndexForName("Beta")
	c, _ := net.StopIndexForName("Gamma")
	d, _ := net.StopIndexForName("Delta")

	results, err := MultiDestinationQuery(context.Background(), net, a, []network.StopIndex{b, c, d}, 8*3600, zeroCosts(net), journey.DefaultPreferences())
	require.NoError(t, err)

	_, hasB := results[b]
	_, hasC := results[c]
	_, hasD := results[d]
	assert.True(t, hasB)
	assert.True(t, hasC)
	assert.False(t, hasD) // Delta is unreachable, so it is simply absent.
}
