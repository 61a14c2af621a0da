// Package schedule holds the in-memory timetable used by path searches: an
// immutable Snapshot, the Cache that builds and publishes it, and the
// Refresher that rebuilds it when the store changes.
package schedule

import (
	"sort"
	"strings"
	"time"
)

// Stop is a boarding location. Stops sharing a GroupID are one logical stop
// and can be walked between.
type Stop struct {
	ID      string
	GroupID string
	Name    string
	Lat     float64
	Lon     float64
}

// StopTime is a trip's call at a stop in absolute time.
type StopTime struct {
	TripID    string
	StopID    string
	Arrival   time.Time
	Departure time.Time
	Sequence  int
}

// Visit locates a stop time: the trip and the index into its stop times.
type Visit struct {
	TripID string
	Index  int
}

// Snapshot is an immutable view of the timetable. All accessors return
// slices in a deterministic order; callers must not modify them.
type Snapshot struct {
	Marker        time.Time     // store change marker the snapshot was built from
	BuiltAt       time.Time     // when the build finished
	BuildDuration time.Duration // how long the build took
	WindowStart   time.Time     // first service date frequencies were expanded for

	stops   map[string]Stop
	stopIDs []string
	groups  map[string][]string
	trips   map[string][]StopTime
	tripIDs []string
	visits  map[string][]Visit

	stopTimeCount int
}

// NewSnapshot indexes stops and trips. Each trip's stop times are ordered by
// sequence. Stop times referring to unknown stops are kept out of the visit
// index.
func NewSnapshot(stops []Stop, trips map[string][]StopTime) *Snapshot {
	snap := &Snapshot{
		stops:  make(map[string]Stop, len(stops)),
		groups: make(map[string][]string),
		trips:  make(map[string][]StopTime, len(trips)),
		visits: make(map[string][]Visit),
	}

	for _, stop := range stops {
		if stop.GroupID == "" {
			stop.GroupID = LogicalGroupID(stop.ID)
		}
		if _, dup := snap.stops[stop.ID]; !dup {
			snap.stopIDs = append(snap.stopIDs, stop.ID)
			snap.groups[stop.GroupID] = append(snap.groups[stop.GroupID], stop.ID)
		}
		snap.stops[stop.ID] = stop
	}
	sort.Strings(snap.stopIDs)
	for _, members := range snap.groups {
		sort.Strings(members)
	}

	for tripID, stopTimes := range trips {
		ordered := make([]StopTime, len(stopTimes))
		copy(ordered, stopTimes)
		sort.SliceStable(ordered, func(i, j int) bool {
			return ordered[i].Sequence < ordered[j].Sequence
		})
		snap.trips[tripID] = ordered
		snap.tripIDs = append(snap.tripIDs, tripID)
		snap.stopTimeCount += len(ordered)
	}
	sort.Strings(snap.tripIDs)

	for _, tripID := range snap.tripIDs {
		for i, st := range snap.trips[tripID] {
			if _, ok := snap.stops[st.StopID]; !ok {
				continue
			}
			snap.visits[st.StopID] = append(snap.visits[st.StopID], Visit{TripID: tripID, Index: i})
		}
	}

	return snap
}

// LogicalGroupID derives the logical stop a stop id belongs to. The part
// before the first ':' is the group when present; otherwise a trailing run
// of letters is a platform suffix ("101N" -> "101").
func LogicalGroupID(stopID string) string {
	if i := strings.IndexByte(stopID, ':'); i >= 0 {
		return stopID[:i]
	}

	end := len(stopID)
	for end > 0 && isASCIILetter(stopID[end-1]) {
		end--
	}
	if end == 0 || end == len(stopID) {
		return stopID
	}
	return stopID[:end]
}

func isASCIILetter(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

// StopIDs returns every stop id in ascending order.
func (s *Snapshot) StopIDs() []string {
	return s.stopIDs
}

func (s *Snapshot) Stop(id string) (Stop, bool) {
	stop, ok := s.stops[id]
	return stop, ok
}

// GroupID returns the logical group of a stop, falling back to deriving it
// from the id for stops the snapshot does not know.
func (s *Snapshot) GroupID(stopID string) string {
	if stop, ok := s.stops[stopID]; ok {
		return stop.GroupID
	}
	return LogicalGroupID(stopID)
}

// GroupMembers returns the stop ids of a logical group in ascending order.
func (s *Snapshot) GroupMembers(groupID string) []string {
	return s.groups[groupID]
}

// TripIDs returns every trip id in ascending order.
func (s *Snapshot) TripIDs() []string {
	return s.tripIDs
}

// StopTimes returns a trip's stop times ordered by sequence.
func (s *Snapshot) StopTimes(tripID string) []StopTime {
	return s.trips[tripID]
}

// Visits returns the calls at a stop ordered by trip id and index.
func (s *Snapshot) Visits(stopID string) []Visit {
	return s.visits[stopID]
}

func (s *Snapshot) StopCount() int {
	return len(s.stopIDs)
}

func (s *Snapshot) TripCount() int {
	return len(s.tripIDs)
}

func (s *Snapshot) StopTimeCount() int {
	return s.stopTimeCount
}
