package schedule

import (
	"context"
	"strings"
	"sync"
	"time"

	"grouptrip.org/gtfsdb"
)

// fakeStore is an in-memory Store whose contents and failures tests can
// swap between rebuilds.
type fakeStore struct {
	mu        sync.Mutex
	data      gtfsdb.Dataset
	marker    time.Time
	listErr   error
	markerErr error
}

func (f *fakeStore) set(data gtfsdb.Dataset, marker time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data = data
	f.marker = marker
}

func (f *fakeStore) failLists(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listErr = err
}

func (f *fakeStore) failMarker(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.markerErr = err
}

func (f *fakeStore) ListStops(ctx context.Context) ([]gtfsdb.Stop, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	return append([]gtfsdb.Stop(nil), f.data.Stops...), nil
}

func (f *fakeStore) ListTrips(ctx context.Context, excludedPrefixes []string) ([]gtfsdb.Trip, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var trips []gtfsdb.Trip
	for _, t := range f.data.Trips {
		excluded := false
		for _, p := range excludedPrefixes {
			if strings.HasPrefix(t.ID, p) {
				excluded = true
			}
		}
		if !excluded {
			trips = append(trips, t)
		}
	}
	return trips, nil
}

func (f *fakeStore) ListStopTimes(ctx context.Context) ([]gtfsdb.StopTime, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]gtfsdb.StopTime(nil), f.data.StopTimes...), nil
}

func (f *fakeStore) ListFrequencies(ctx context.Context) ([]gtfsdb.Frequency, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]gtfsdb.Frequency(nil), f.data.Frequencies...), nil
}

func (f *fakeStore) LastUpdated(ctx context.Context) (time.Time, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.markerErr != nil {
		return time.Time{}, f.markerErr
	}
	return f.marker, nil
}

// Wednesday.
var testNow = time.Date(2026, 10, 14, 10, 0, 0, 0, time.UTC)

func at(hour, minute int) time.Time {
	return time.Date(2026, 10, 14, hour, minute, 0, 0, time.UTC)
}

func testDataset() gtfsdb.Dataset {
	return gtfsdb.Dataset{
		Stops: []gtfsdb.Stop{
			{ID: "101N", Name: "First Ave Northbound", Lat: 47.600, Lon: -122.330},
			{ID: "101S", Name: "First Ave Southbound", Lat: 47.6001, Lon: -122.3301},
			{ID: "102", Name: "Second Ave", Lat: 47.610, Lon: -122.320},
			{ID: "103:1", Name: "Third Ave Bay 1", Lat: 47.620, Lon: -122.310},
			{ID: "103:2", Name: "Third Ave Bay 2", Lat: 47.6201, Lon: -122.3101},
		},
		Trips: []gtfsdb.Trip{
			{ID: "BUS_A@20261014", BaseTripID: "BUS_A", RouteID: "R1", ServiceDate: "20261014"},
			{ID: "RAIL_X@20261014", BaseTripID: "RAIL_X", RouteID: "R9", ServiceDate: "20261014"},
			{ID: "SHORT@20261014", BaseTripID: "SHORT", RouteID: "R1", ServiceDate: "20261014"},
			{ID: "GHOST@20261014", BaseTripID: "GHOST", RouteID: "R1", ServiceDate: "20261014"},
		},
		StopTimes: []gtfsdb.StopTime{
			{TripID: "BUS_A", StopID: "101N", ArrivalTime: 8 * 3600, DepartureTime: 8 * 3600, StopSequence: 1},
			{TripID: "BUS_A", StopID: "102", ArrivalTime: 8*3600 + 600, DepartureTime: 8*3600 + 660, StopSequence: 2},
			{TripID: "BUS_A", StopID: "103:1", ArrivalTime: 8*3600 + 1200, DepartureTime: 8*3600 + 1200, StopSequence: 3},
			{TripID: "RAIL_X", StopID: "101N", ArrivalTime: 9 * 3600, DepartureTime: 9 * 3600, StopSequence: 1},
			{TripID: "RAIL_X", StopID: "103:2", ArrivalTime: 9*3600 + 300, DepartureTime: 9*3600 + 300, StopSequence: 2},
			{TripID: "SHORT", StopID: "102", ArrivalTime: 7 * 3600, DepartureTime: 7 * 3600, StopSequence: 1},
			{TripID: "GHOST", StopID: "999", ArrivalTime: 7 * 3600, DepartureTime: 7 * 3600, StopSequence: 1},
			{TripID: "GHOST", StopID: "101S", ArrivalTime: 7*3600 + 300, DepartureTime: 7*3600 + 300, StopSequence: 2},
			{TripID: "LOOP_DLY", StopID: "102", ArrivalTime: 0, DepartureTime: 0, StopSequence: 1},
			{TripID: "LOOP_DLY", StopID: "103:2", ArrivalTime: 300, DepartureTime: 300, StopSequence: 2},
			{TripID: "LOOP_XYZ", StopID: "102", ArrivalTime: 0, DepartureTime: 0, StopSequence: 1},
			{TripID: "LOOP_XYZ", StopID: "103:2", ArrivalTime: 300, DepartureTime: 300, StopSequence: 2},
		},
		Frequencies: []gtfsdb.Frequency{
			{TripID: "LOOP_DLY", StartTime: 6 * 3600, EndTime: 7 * 3600, HeadwaySecs: 1800},
			{TripID: "LOOP_XYZ", StartTime: 6 * 3600, EndTime: 7 * 3600, HeadwaySecs: 600},
		},
	}
}

func newTestCache(store Store) *Cache {
	return NewCache(store, CacheConfig{
		Now: func() time.Time { return testNow },
	})
}
