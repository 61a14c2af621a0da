package app

import (
	"context"
	"fmt"
	"log/slog"

	"grouptrip.org/gtfsdb"
	"grouptrip.org/internal/config"
	"grouptrip.org/internal/events"
	"grouptrip.org/internal/logging"
	"grouptrip.org/internal/metrics"
	"grouptrip.org/internal/schedule"
	"grouptrip.org/internal/search"
)

// Application holds the dependencies for our HTTP handlers and the
// background schedule refresher.
type Application struct {
	Config    *config.Config
	Logger    *slog.Logger
	Store     *gtfsdb.Client
	Cache     *schedule.Cache
	Refresher *schedule.Refresher
	Planner   *search.Planner
	Metrics   *metrics.Collector    // nil when metrics are disabled
	Events    *events.NATSPublisher // nil when no NATS URL is configured
}

// OpenStore opens the schedule database described by cfg.
func OpenStore(cfg *config.Config, logger *slog.Logger) (*gtfsdb.Client, error) {
	dbConfig := gtfsdb.NewConfig(cfg.Database.Driver, cfg.Database.DSN, cfg.Environment(), cfg.LogLevel == "debug")
	dbConfig.Logger = logger
	client, err := gtfsdb.NewClient(dbConfig)
	if err != nil {
		return nil, fmt.Errorf("opening schedule database: %w", err)
	}
	return client, nil
}

// New wires the store, cache, refresher, planner and the optional metrics
// and event publisher. It does not build the first snapshot; call Start.
func New(cfg *config.Config, logger *slog.Logger) (*Application, error) {
	logger = logging.OrDefault(logger)

	loc, err := cfg.Location()
	if err != nil {
		return nil, fmt.Errorf("loading schedule time zone: %w", err)
	}

	store, err := OpenStore(cfg, logger)
	if err != nil {
		return nil, err
	}

	a := &Application{
		Config: cfg,
		Logger: logger,
		Store:  store,
	}

	a.Cache = schedule.NewCache(store, schedule.CacheConfig{
		Location:             loc,
		ExpansionDays:        cfg.Schedule.ExpansionDays,
		ExcludedTripPrefixes: cfg.Schedule.ExcludedTripPrefixes,
		Logger:               logger,
	})

	var refreshObserver schedule.RefreshObserver
	var searchObserver search.SearchObserver
	var publisherMetrics events.PublisherMetrics
	if cfg.MetricsEnabled() {
		a.Metrics = metrics.NewCollector(cfg.Schedule.RefreshInterval)
		a.Cache.OnPublish(a.Metrics.ObserveSnapshot)
		refreshObserver = a.Metrics
		searchObserver = a.Metrics
		publisherMetrics = a.Metrics
	}

	if cfg.NATS.URL != "" {
		a.Events, err = events.NewNATSPublisher(cfg.NATS.URL, cfg.NATS.Subject, publisherMetrics, logger)
		if err != nil {
			logging.SafeCloseWithLogging(store, logger, "schedule_database")
			return nil, err
		}
		a.Cache.OnPublish(a.Events.PublishSnapshot)
	}

	a.Refresher = schedule.NewRefresher(a.Cache, store, schedule.RefresherConfig{
		Interval: cfg.Schedule.RefreshInterval,
		Observer: refreshObserver,
		Logger:   logger,
	})

	a.Planner, err = search.NewPlanner(a.Cache, search.Options{
		LookBack:     cfg.Search.LookBack,
		WalkDuration: cfg.Search.WalkDuration,
	}, searchObserver, logger)
	if err != nil {
		a.Close()
		return nil, err
	}

	return a, nil
}

// Start builds the first snapshot and launches the refresher.
func (a *Application) Start(ctx context.Context) error {
	if err := a.Cache.Initialize(ctx); err != nil {
		return err
	}
	snap, _ := a.Cache.Snapshot()
	logging.LogOperation(a.Logger, "schedule_cache_initialized",
		slog.Int("stops", snap.StopCount()),
		slog.Int("trips", snap.TripCount()),
		slog.Time("marker", snap.Marker),
		slog.Duration("build_duration", snap.BuildDuration))

	a.Refresher.Start(ctx)
	return nil
}

// Close stops the refresher and releases the event publisher and store.
func (a *Application) Close() {
	if a.Refresher != nil {
		a.Refresher.Shutdown()
	}
	if a.Events != nil {
		a.Events.Close()
	}
	if a.Store != nil {
		logging.SafeCloseWithLogging(a.Store, a.Logger, "schedule_database")
	}
}
