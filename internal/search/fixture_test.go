package search

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"grouptrip.org/internal/schedule"
)

func clock(hour, minute int) time.Time {
	return time.Date(2026, 10, 14, hour, minute, 0, 0, time.UTC)
}

func stopAt(id string, lat float64) schedule.Stop {
	return schedule.Stop{ID: id, GroupID: schedule.LogicalGroupID(id), Lat: lat, Lon: -122.30}
}

func call(tripID, stopID string, seq int, arrival, departure time.Time) schedule.StopTime {
	return schedule.StopTime{TripID: tripID, StopID: stopID, Arrival: arrival, Departure: departure, Sequence: seq}
}

func at(stop schedule.Stop) LatLon {
	return LatLon{Lat: stop.Lat, Lon: stop.Lon}
}

func traveler(id string, stop schedule.Stop) Traveler {
	return Traveler{ID: id, Lat: stop.Lat, Lon: stop.Lon}
}

var (
	stopA    = stopAt("A", 47.60)
	stopB    = stopAt("B", 47.61)
	stopC    = stopAt("C", 47.62)
	stopX    = stopAt("X", 47.63)
	stop10a  = stopAt("10:1", 47.64)
	stop10b  = stopAt("10:2", 47.6401)
	stopD    = stopAt("D", 47.66)
	stopFar  = schedule.Stop{ID: "Z", GroupID: "Z", Lat: 48.50, Lon: -121.00}
	allStops = []schedule.Stop{stopA, stopB, stopC, stopX, stop10a, stop10b, stopD, stopFar}
)

// lineSnapshot is a single trip A 08:00 -> B 08:10 -> C 08:20.
func lineSnapshot() *schedule.Snapshot {
	return schedule.NewSnapshot(allStops, map[string][]schedule.StopTime{
		"T1": {
			call("T1", "A", 1, clock(8, 0), clock(8, 0)),
			call("T1", "B", 2, clock(8, 10), clock(8, 10)),
			call("T1", "C", 3, clock(8, 20), clock(8, 20)),
		},
	})
}

// transferSnapshot needs a walk between the platforms of station 10:
// X 08:30 -> 10:1 08:40 on T3, walk to 10:2, then 10:2 09:00 -> D 09:20 on T2.
func transferSnapshot() *schedule.Snapshot {
	return schedule.NewSnapshot(allStops, map[string][]schedule.StopTime{
		"T2": {
			call("T2", "10:2", 1, clock(9, 0), clock(9, 0)),
			call("T2", "D", 2, clock(9, 20), clock(9, 20)),
		},
		"T3": {
			call("T3", "X", 1, clock(8, 30), clock(8, 30)),
			call("T3", "10:1", 2, clock(8, 40), clock(8, 40)),
		},
	})
}

func newSearch(t *testing.T, snap *schedule.Snapshot) *Search {
	t.Helper()
	s, err := New(snap, Options{})
	require.NoError(t, err)
	return s
}

// assertWellFormed checks that a path connects stop to stop, never goes
// back in time and arrives by the deadline.
func assertWellFormed(t *testing.T, result PathResult, deadline time.Time) {
	t.Helper()
	if len(result.Segments) == 0 {
		return
	}
	assert.Equal(t, result.Departure, result.Segments[0].Departure)

	last := result.Segments[0].Departure
	for i, seg := range result.Segments {
		if i > 0 {
			assert.Equal(t, result.Segments[i-1].ToStopID, seg.FromStopID, "segment %d does not connect", i)
		}
		assert.False(t, seg.Departure.Before(last), "segment %d departs before the previous arrival", i)
		assert.False(t, seg.Arrival.Before(seg.Departure), "segment %d arrives before it departs", i)
		last = seg.Arrival
	}
	assert.False(t, last.After(deadline), "path arrives after the deadline")
}
