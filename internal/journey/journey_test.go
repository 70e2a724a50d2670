package journey

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/antigravity/transit-router/internal/network"
)

// cycleNetwork hand-crafts a minimal network whose two routes run A->B and B->A, so a
// corrupted tau array can send reconstruction around in circles.
func cycleNetwork() *network.Network {
	return &network.Network{
		Stops: make([]network.Stop, 3),
		Routes: []network.Route{
			{Line: "X", NumStops: 2, RouteStopsIdx: 0},
			{Line: "X", NumStops: 2, RouteStopsIdx: 2},
		},
		RouteStops: []network.StopIndex{0, 1, 1, 0},
	}
}

func TestFromTauStopsOnCorruptedParentPointers(t *testing.T) {
	net := cycleNetwork()

	// tau[B] claims it was reached from A and tau[A] claims it was reached from B; start
	// is the unreachable stop 2, so the walk-back never terminates on its own.
	tau := []TauEntry{
		{Time: 200, Boarding: &Boarding{BoardedStop: 1, BoardedStopOrder: 0, BoardedTime: 150, Route: 1}},
		{Time: 100, Boarding: &Boarding{BoardedStop: 0, BoardedStopOrder: 0, BoardedTime: 50, Route: 0}},
		{Time: network.InfiniteTime},
	}

	_, err := FromTau(tau, net, 2, 1)
	assert.ErrorIs(t, err, ErrInfiniteLoop)
}

func TestFromTauNoBoardingAtEnd(t *testing.T) {
	net := cycleNetwork()
	tau := []TauEntry{
		{Time: network.InfiniteTime},
		{Time: network.InfiniteTime},
		{Time: network.InfiniteTime},
	}

	_, err := FromTau(tau, net, 0, 1)
	assert.ErrorIs(t, err, ErrNoJourneyFound)
}

func TestFromTauStartEqualsEnd(t *testing.T) {
	net := cycleNetwork()
	j, err := FromTau(nil, net, 1, 1)
	require.NoError(t, err)
	assert.Empty(t, j.Legs)
	assert.Equal(t, network.Timestamp(0), j.Duration())
}

func TestFromTauSingleLeg(t *testing.T) {
	net := cycleNetwork()
	tau := []TauEntry{
		{Time: 100},
		{Time: 200, Boarding: &Boarding{BoardedStop: 0, BoardedStopOrder: 0, BoardedTime: 120, Route: 0}},
		{Time: network.InfiniteTime},
	}

	j, err := FromTau(tau, net, 0, 1)
	require.NoError(t, err)
	require.Len(t, j.Legs, 1)
	leg := j.Legs[0]
	assert.Equal(t, network.StopIndex(0), leg.BoardedStop)
	assert.Equal(t, network.StopIndex(1), leg.ArrivalStop)
	assert.Equal(t, 1, leg.ArrivalStopOrder)
	assert.Equal(t, network.Timestamp(80), j.Duration())
}

func TestJourneyStringRendersLegsAndTotal(t *testing.T) {
	net := cycleNetwork()
	j := Journey{
		Network: net,
		Legs: []Leg{{
			BoardedStop: 0, BoardedTime: 120,
			ArrivalStop: 1, ArrivalStopOrder: 1, ArrivalTime: 300,
			Route: 0,
		}},
	}

	rendered := j.String()
	assert.Contains(t, rendered, "Board at")
	assert.Contains(t, rendered, "X line")
	assert.Contains(t, rendered, "Total journey time: 3 minutes.")

	empty := Journey{Network: net}
	assert.True(t, strings.Contains(empty.String(), "No journey found."))
}

func TestDefaultPreferencesPrefersEarliestArrival(t *testing.T) {
	prefs := DefaultPreferences()
	early := prefs.Utility(100, 50, 0)
	late := prefs.Utility(200, 1, 0)
	assert.Less(t, early, late)
}

func TestWeightedPreferencesTradesTimeAgainstCost(t *testing.T) {
	prefs := WeightedPreferences(1, 10)
	cheapButSlow := prefs.Utility(200, 1, 0)
	fastButDear := prefs.Utility(100, 50, 0)
	assert.Less(t, cheapButSlow, fastButDear)
}
