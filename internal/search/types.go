package search

import (
	"math"
	"time"
)

// LatLon is a coordinate in decimal degrees.
type LatLon struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Traveler is one member of a group trip and where they start from.
type Traveler struct {
	ID  string  `json:"id"`
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// State is the best known way to leave a stop and still reach the
// destination by the deadline. Only Departure is compared; Transfers and
// TripID are carried along.
type State struct {
	Departure time.Time
	Transfers int
	TripID    string
}

// unreachable is the sentinel state of stops the search never reached.
var unreachable = State{Transfers: math.MaxInt}

// Reachable reports whether the state was reached by the search.
func (s State) Reachable() bool {
	return !s.Departure.IsZero()
}

// backPointer records the next hop toward the destination. Destination
// seeds point to themselves.
type backPointer struct {
	Next      string
	TripID    string // empty for a walk
	Arrival   time.Time
	Transfers int
}

// PathSegment is one ride between consecutive stops of a trip, or a walk
// between two stops of the same logical group when TripID is empty.
type PathSegment struct {
	FromStopID string    `json:"from_stop_id"`
	ToStopID   string    `json:"to_stop_id"`
	TripID     string    `json:"trip_id,omitempty"`
	Departure  time.Time `json:"departure"`
	Arrival    time.Time `json:"arrival"`
}

// IsWalk reports whether the segment is a walking transfer.
func (p PathSegment) IsWalk() bool {
	return p.TripID == ""
}

// PathResult is a traveler's itinerary. A zero Departure with no segments
// means no path was found.
type PathResult struct {
	Departure time.Time     `json:"departure"`
	Segments  []PathSegment `json:"segments"`
}

// Found reports whether the result holds a path.
func (r PathResult) Found() bool {
	return !r.Departure.IsZero()
}
