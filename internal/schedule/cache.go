package schedule

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"grouptrip.org/gtfsdb"
	"grouptrip.org/internal/logging"
)

// ErrNotInitialized is returned by Snapshot before the first successful build.
var ErrNotInitialized = errors.New("schedule cache not initialized")

const DefaultExpansionDays = 3

// DefaultExcludedTripPrefixes lists trip id prefixes of modes the search
// does not support yet.
var DefaultExcludedTripPrefixes = []string{"RAIL_"}

// Store is the read side of the schedule database.
type Store interface {
	ListStops(ctx context.Context) ([]gtfsdb.Stop, error)
	ListTrips(ctx context.Context, excludedPrefixes []string) ([]gtfsdb.Trip, error)
	ListStopTimes(ctx context.Context) ([]gtfsdb.StopTime, error)
	ListFrequencies(ctx context.Context) ([]gtfsdb.Frequency, error)
	LastUpdated(ctx context.Context) (time.Time, error)
}

// SnapshotListener is called after a new snapshot is published.
type SnapshotListener func(snap *Snapshot)

type CacheConfig struct {
	Location             *time.Location // service-day time zone; nil means UTC
	ExpansionDays        int            // frequency expansion window; <= 0 means DefaultExpansionDays
	ExcludedTripPrefixes []string       // nil means DefaultExcludedTripPrefixes
	Now                  func() time.Time
	Logger               *slog.Logger
}

// Cache builds snapshots from a Store and publishes them atomically.
// Readers never block on a rebuild.
type Cache struct {
	store  Store
	config CacheConfig
	logger *slog.Logger

	current   atomic.Pointer[Snapshot]
	rebuildMu sync.Mutex

	listenersMu sync.Mutex
	listeners   []SnapshotListener
}

func NewCache(store Store, config CacheConfig) *Cache {
	if config.Location == nil {
		config.Location = time.UTC
	}
	if config.ExpansionDays <= 0 {
		config.ExpansionDays = DefaultExpansionDays
	}
	if config.ExcludedTripPrefixes == nil {
		config.ExcludedTripPrefixes = DefaultExcludedTripPrefixes
	}
	if config.Now == nil {
		config.Now = time.Now
	}

	return &Cache{
		store:  store,
		config: config,
		logger: logging.OrDefault(config.Logger).With(slog.String("component", "schedule_cache")),
	}
}

// OnPublish registers a listener for future publishes.
func (c *Cache) OnPublish(listener SnapshotListener) {
	c.listenersMu.Lock()
	defer c.listenersMu.Unlock()
	c.listeners = append(c.listeners, listener)
}

// Initialize performs the first full build.
func (c *Cache) Initialize(ctx context.Context) error {
	if err := c.Rebuild(ctx); err != nil {
		return fmt.Errorf("initial schedule build failed: %w", err)
	}
	return nil
}

// Snapshot returns the currently published snapshot.
func (c *Cache) Snapshot() (*Snapshot, error) {
	snap := c.current.Load()
	if snap == nil {
		return nil, ErrNotInitialized
	}
	return snap, nil
}

// Rebuild loads the store into a new snapshot and publishes it. On failure
// the previous snapshot stays published.
func (c *Cache) Rebuild(ctx context.Context) error {
	c.rebuildMu.Lock()
	defer c.rebuildMu.Unlock()

	started := time.Now()
	snap, err := c.build(ctx)
	if err != nil {
		logging.LogError(c.logger, "Schedule rebuild failed", err)
		return err
	}
	snap.BuiltAt = c.config.Now()
	snap.BuildDuration = time.Since(started)

	c.current.Store(snap)

	logging.LogOperation(c.logger, "schedule_snapshot_published",
		slog.Time("marker", snap.Marker),
		slog.Int("stops", snap.StopCount()),
		slog.Int("trips", snap.TripCount()),
		slog.Int("stop_times", snap.StopTimeCount()),
		slog.Duration("duration", snap.BuildDuration))

	c.listenersMu.Lock()
	listeners := append([]SnapshotListener(nil), c.listeners...)
	c.listenersMu.Unlock()
	for _, listener := range listeners {
		listener(snap)
	}
	return nil
}

func (c *Cache) build(ctx context.Context) (*Snapshot, error) {
	marker, err := c.store.LastUpdated(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading change marker: %w", err)
	}

	dbStops, err := c.store.ListStops(ctx)
	if err != nil {
		return nil, err
	}
	dbTrips, err := c.store.ListTrips(ctx, c.config.ExcludedTripPrefixes)
	if err != nil {
		return nil, err
	}
	dbStopTimes, err := c.store.ListStopTimes(ctx)
	if err != nil {
		return nil, err
	}
	dbFrequencies, err := c.store.ListFrequencies(ctx)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	stops := make([]Stop, 0, len(dbStops))
	known := make(map[string]bool, len(dbStops))
	for _, s := range dbStops {
		stops = append(stops, Stop{
			ID:      s.ID,
			GroupID: LogicalGroupID(s.ID),
			Name:    s.Name,
			Lat:     s.Lat,
			Lon:     s.Lon,
		})
		known[s.ID] = true
	}

	patterns := make(map[string][]PatternStop)
	dropped := 0
	for _, st := range dbStopTimes {
		if !known[st.StopID] {
			dropped++
			continue
		}
		patterns[st.TripID] = append(patterns[st.TripID], PatternStop{
			StopID:    st.StopID,
			Arrival:   time.Duration(st.ArrivalTime) * time.Second,
			Departure: time.Duration(st.DepartureTime) * time.Second,
			Sequence:  st.StopSequence,
		})
	}
	if dropped > 0 {
		c.logger.Warn("dropped stop times referring to unknown stops", slog.Int("count", dropped))
	}

	trips := make(map[string][]StopTime, len(dbTrips))
	for _, trip := range dbTrips {
		date, err := time.Parse("20060102", trip.ServiceDate)
		if err != nil {
			c.logger.Warn("skipping trip with invalid service date",
				slog.String("trip_id", trip.ID),
				slog.String("service_date", trip.ServiceDate))
			continue
		}
		dayStart := ServiceDayStart(date.Year(), date.Month(), date.Day(), c.config.Location)

		pattern := patterns[trip.BaseTripID]
		stopTimes := make([]StopTime, len(pattern))
		for i, p := range pattern {
			stopTimes[i] = StopTime{
				TripID:    trip.ID,
				StopID:    p.StopID,
				Arrival:   dayStart.Add(p.Arrival),
				Departure: dayStart.Add(p.Departure),
				Sequence:  p.Sequence,
			}
		}
		trips[trip.ID] = stopTimes
	}

	blocks := make([]FrequencyBlock, 0, len(dbFrequencies))
	for _, f := range dbFrequencies {
		if hasAnyPrefix(f.TripID, c.config.ExcludedTripPrefixes) {
			continue
		}
		if _, ok := ServiceDays(f.TripID); !ok {
			c.logger.Debug("skipping frequency block with unknown day tag", slog.String("trip_id", f.TripID))
			continue
		}
		blocks = append(blocks, FrequencyBlock{
			TemplateTripID: f.TripID,
			Start:          time.Duration(f.StartTime) * time.Second,
			End:            time.Duration(f.EndTime) * time.Second,
			Headway:        time.Duration(f.HeadwaySecs) * time.Second,
		})
	}

	from := c.windowStart()
	to := from.AddDate(0, 0, c.config.ExpansionDays)
	synthetic, err := ExpandFrequencies(blocks, patterns, from, to, c.config.Location)
	if err != nil {
		return nil, err
	}
	for tripID, stopTimes := range synthetic {
		trips[tripID] = stopTimes
	}

	for tripID, stopTimes := range trips {
		if len(stopTimes) < 2 {
			delete(trips, tripID)
		}
	}

	snap := NewSnapshot(stops, trips)
	snap.Marker = marker
	snap.WindowStart = from
	return snap, nil
}

// windowStart is midnight of yesterday's service date, so trips of the
// previous day still running after midnight are expanded.
func (c *Cache) windowStart() time.Time {
	y, m, d := c.config.Now().In(c.config.Location).AddDate(0, 0, -1).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, c.config.Location)
}

// WindowExpired reports whether the service date has moved past the
// expansion window snap was built for.
func (c *Cache) WindowExpired(snap *Snapshot) bool {
	return c.windowStart().After(snap.WindowStart)
}

func hasAnyPrefix(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if p != "" && strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}
