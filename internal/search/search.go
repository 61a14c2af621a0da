// Package search finds, for every traveler of a group trip, the latest
// departure that still reaches a shared destination by a deadline.
//
// One backward label-correcting pass from the destination computes a best
// state and a back pointer for every stop; each traveler then only picks
// the best stop of their origin group and follows the pointers forward.
package search

import (
	"errors"
	"fmt"
	"math"
	"time"

	"grouptrip.org/internal/schedule"
	"grouptrip.org/internal/utils"
)

// Defaults applied to zero Options fields.
const (
	DefaultLookBack     = 3 * time.Hour
	DefaultWalkDuration = time.Minute
)

var (
	// ErrNoStops is returned when the snapshot holds no stops to resolve a
	// coordinate against.
	ErrNoStops = errors.New("no stops loaded")

	// ErrInvalidOptions is returned by New for negative durations.
	ErrInvalidOptions = errors.New("invalid search options")
)

// Options tunes a Search. Zero fields take the package defaults.
type Options struct {
	LookBack     time.Duration // trips with no arrival in [deadline-LookBack, deadline] are ignored
	WalkDuration time.Duration // cost of walking between stops of one logical group
}

func (o Options) withDefaults() (Options, error) {
	if o.LookBack == 0 {
		o.LookBack = DefaultLookBack
	}
	if o.WalkDuration == 0 {
		o.WalkDuration = DefaultWalkDuration
	}
	if o.LookBack < 0 {
		return o, fmt.Errorf("%w: look-back %s must be positive", ErrInvalidOptions, o.LookBack)
	}
	if o.WalkDuration < 0 {
		return o, fmt.Errorf("%w: walk duration %s must be positive", ErrInvalidOptions, o.WalkDuration)
	}
	return o, nil
}

// Search runs backward searches over one snapshot. It holds no per-run
// state and is safe for concurrent use.
type Search struct {
	snap *schedule.Snapshot
	opts Options
}

// New returns a Search over snap, failing with ErrInvalidOptions when opts
// are out of range.
func New(snap *schedule.Snapshot, opts Options) (*Search, error) {
	opts, err := opts.withDefaults()
	if err != nil {
		return nil, err
	}
	return &Search{snap: snap, opts: opts}, nil
}

// run is the request-scoped state of one backward pass.
type run struct {
	*Search
	deadline time.Time
	seeds    map[string]bool
	active   map[string]bool
	best     map[string]State
	back     map[string]backPointer
	queue    []string
	inQueue  map[string]bool
}

// Run computes a PathResult for every traveler, keyed by traveler id.
// Unreachable travelers get an empty result; only ErrNoStops fails the
// whole batch.
func (s *Search) Run(dest LatLon, deadline time.Time, travelers []Traveler) (map[string]PathResult, error) {
	destStop, err := s.nearestStop(dest.Lat, dest.Lon)
	if err != nil {
		return nil, err
	}
	destGroup := s.snap.GroupID(destStop)
	r := s.backward(destGroup, deadline)

	results := make(map[string]PathResult, len(travelers))
	for _, traveler := range travelers {
		originStop, err := s.nearestStop(traveler.Lat, traveler.Lon)
		if err != nil {
			return nil, err
		}
		originGroup := s.snap.GroupID(originStop)
		if originGroup == destGroup {
			results[traveler.ID] = PathResult{Departure: deadline, Segments: []PathSegment{}}
			continue
		}
		results[traveler.ID] = r.resultFor(originGroup)
	}
	return results, nil
}

// backward seeds every stop of the destination group with the deadline and
// relaxes until no state improves.
func (s *Search) backward(destGroup string, deadline time.Time) *run {
	r := &run{
		Search:   s,
		deadline: deadline,
		seeds:    make(map[string]bool),
		active:   s.activeTrips(deadline),
		best:     make(map[string]State),
		back:     make(map[string]backPointer),
		inQueue:  make(map[string]bool),
	}
	for _, stopID := range s.snap.GroupMembers(destGroup) {
		r.seeds[stopID] = true
		r.best[stopID] = State{Departure: deadline}
		r.back[stopID] = backPointer{Next: stopID, Arrival: deadline}
		r.enqueue(stopID)
	}
	r.relaxAll()
	return r
}

// nearestStop returns the stop closest to a coordinate, ties going to the
// lowest stop id.
func (s *Search) nearestStop(lat, lon float64) (string, error) {
	nearest := ""
	bestDistance := math.Inf(1)
	for _, stopID := range s.snap.StopIDs() {
		stop, _ := s.snap.Stop(stopID)
		d := utils.Haversine(lat, lon, stop.Lat, stop.Lon)
		if d < bestDistance {
			nearest = stopID
			bestDistance = d
		}
	}
	if nearest == "" {
		return "", ErrNoStops
	}
	return nearest, nil
}

func (s *Search) activeTrips(deadline time.Time) map[string]bool {
	windowStart := deadline.Add(-s.opts.LookBack)
	active := make(map[string]bool)
	for _, tripID := range s.snap.TripIDs() {
		for _, st := range s.snap.StopTimes(tripID) {
			if !st.Arrival.Before(windowStart) && !st.Arrival.After(deadline) {
				active[tripID] = true
				break
			}
		}
	}
	return active
}

func (r *run) enqueue(stopID string) {
	if r.inQueue[stopID] {
		return
	}
	r.inQueue[stopID] = true
	r.queue = append(r.queue, stopID)
}

func (r *run) state(stopID string) State {
	if st, ok := r.best[stopID]; ok {
		return st
	}
	return unreachable
}

// offer replaces a stop's state when the candidate departs strictly later.
func (r *run) offer(stopID string, candidate State, bp backPointer) {
	if !candidate.Departure.After(r.state(stopID).Departure) {
		return
	}
	r.best[stopID] = candidate
	r.back[stopID] = bp
	r.enqueue(stopID)
}

func (r *run) relaxAll() {
	for len(r.queue) > 0 {
		stopID := r.queue[0]
		r.queue = r.queue[1:]
		r.inQueue[stopID] = false

		cur := r.best[stopID]
		r.relaxTrips(stopID, cur)
		r.relaxWalks(stopID, cur)
	}
}

// relaxTrips rides every active trip serving stopID backward from the call
// that alights there in time.
func (r *run) relaxTrips(stopID string, cur State) {
	for _, visit := range r.snap.Visits(stopID) {
		if !r.active[visit.TripID] {
			continue
		}
		stopTimes := r.snap.StopTimes(visit.TripID)
		alight := stopTimes[visit.Index]
		if alight.Arrival.After(cur.Departure) {
			continue
		}

		transfers := cur.Transfers
		if visit.TripID != cur.TripID && !r.seeds[stopID] {
			transfers++
		}

		for j := visit.Index - 1; j >= 0; j-- {
			board := stopTimes[j]
			if board.Departure.After(alight.Arrival) {
				break
			}
			if board.StopID == stopID {
				continue
			}
			r.offer(board.StopID,
				State{Departure: board.Departure, Transfers: transfers, TripID: visit.TripID},
				backPointer{Next: stopID, TripID: visit.TripID, Arrival: alight.Arrival, Transfers: transfers})
		}
	}
}

// relaxWalks moves to the other stops of stopID's logical group.
func (r *run) relaxWalks(stopID string, cur State) {
	if cur.Departure.Sub(time.Time{}) < r.opts.WalkDuration {
		return
	}
	departure := cur.Departure.Add(-r.opts.WalkDuration)

	for _, member := range r.snap.GroupMembers(r.snap.GroupID(stopID)) {
		if member == stopID {
			continue
		}
		r.offer(member,
			State{Departure: departure, Transfers: cur.Transfers},
			backPointer{Next: stopID, Arrival: cur.Departure, Transfers: cur.Transfers})
	}
}

// resultFor picks the best stop of the origin group and rebuilds its path.
func (r *run) resultFor(originGroup string) PathResult {
	chosen := ""
	best := unreachable
	for _, stopID := range r.snap.GroupMembers(originGroup) {
		if st := r.state(stopID); st.Departure.After(best.Departure) {
			chosen = stopID
			best = st
		}
	}
	if chosen == "" {
		return PathResult{Segments: []PathSegment{}}
	}
	return PathResult{
		Departure: best.Departure,
		Segments:  r.reconstruct(chosen),
	}
}

// reconstruct follows back pointers from start toward the destination.
func (r *run) reconstruct(start string) []PathSegment {
	segments := []PathSegment{}
	visited := make(map[string]bool)

	for stopID := start; !visited[stopID]; {
		visited[stopID] = true
		bp, ok := r.back[stopID]
		if !ok || bp.Next == stopID {
			break
		}

		departure := r.best[stopID].Departure
		if bp.TripID == "" {
			segments = append(segments, PathSegment{
				FromStopID: stopID,
				ToStopID:   bp.Next,
				Departure:  departure,
				Arrival:    bp.Arrival,
			})
		} else {
			segments = append(segments, r.rideSegments(stopID, departure, bp)...)
		}
		stopID = bp.Next
	}
	return segments
}

// rideSegments expands a ride into one segment per consecutive stop pair,
// falling back to a single segment when the trip's calls cannot be matched.
func (r *run) rideSegments(from string, departure time.Time, bp backPointer) []PathSegment {
	coarse := []PathSegment{{
		FromStopID: from,
		ToStopID:   bp.Next,
		TripID:     bp.TripID,
		Departure:  departure,
		Arrival:    bp.Arrival,
	}}

	stopTimes := r.snap.StopTimes(bp.TripID)
	fromIdx := -1
	for i, st := range stopTimes {
		if st.StopID == from && st.Departure.Equal(departure) {
			fromIdx = i
			break
		}
	}
	if fromIdx < 0 {
		return coarse
	}
	toIdx := -1
	for i := fromIdx + 1; i < len(stopTimes); i++ {
		if stopTimes[i].StopID == bp.Next && stopTimes[i].Arrival.Equal(bp.Arrival) {
			toIdx = i
			break
		}
	}
	if toIdx < 0 {
		return coarse
	}

	segments := make([]PathSegment, 0, toIdx-fromIdx)
	for i := fromIdx; i < toIdx; i++ {
		segments = append(segments, PathSegment{
			FromStopID: stopTimes[i].StopID,
			ToStopID:   stopTimes[i+1].StopID,
			TripID:     bp.TripID,
			Departure:  stopTimes[i].Departure,
			Arrival:    stopTimes[i+1].Arrival,
		})
	}
	return segments
}
