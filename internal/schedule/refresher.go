package schedule

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"grouptrip.org/internal/logging"
)

const (
	DefaultRefreshInterval = time.Minute
	DefaultRebuildTimeout  = 5 * time.Minute
)

// Tick results reported to a RefreshObserver.
const (
	TickUnchanged = "unchanged"
	TickRebuilt   = "rebuilt"
	TickError     = "error"
)

// MarkerSource reports the store's change marker.
type MarkerSource interface {
	LastUpdated(ctx context.Context) (time.Time, error)
}

type RefreshObserver interface {
	ObserveRefreshTick(result string)
}

type RefresherConfig struct {
	Interval       time.Duration // <= 0 means DefaultRefreshInterval
	RebuildTimeout time.Duration // <= 0 means DefaultRebuildTimeout
	Observer       RefreshObserver
	Logger         *slog.Logger
}

// Refresher polls the store's change marker and rebuilds the cache when it
// moves or when the service date rolls past the snapshot's frequency window.
// Failed ticks are logged and retried on the next tick.
type Refresher struct {
	cache  *Cache
	source MarkerSource
	config RefresherConfig
	logger *slog.Logger

	shutdownChan chan struct{}
	wg           sync.WaitGroup
	shutdownOnce sync.Once
}

func NewRefresher(cache *Cache, source MarkerSource, config RefresherConfig) *Refresher {
	if config.Interval <= 0 {
		config.Interval = DefaultRefreshInterval
	}
	if config.RebuildTimeout <= 0 {
		config.RebuildTimeout = DefaultRebuildTimeout
	}

	return &Refresher{
		cache:        cache,
		source:       source,
		config:       config,
		logger:       logging.OrDefault(config.Logger).With(slog.String("component", "schedule_refresher")),
		shutdownChan: make(chan struct{}),
	}
}

// Run ticks until ctx is cancelled or Shutdown is called.
func (r *Refresher) Run(ctx context.Context) {
	ticker := time.NewTicker(r.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.tick(ctx)
		case <-ctx.Done():
			r.logger.Info("schedule refresher stopped", slog.String("reason", ctx.Err().Error()))
			return
		case <-r.shutdownChan:
			r.logger.Info("schedule refresher shut down")
			return
		}
	}
}

// Start runs the refresher in a background goroutine.
func (r *Refresher) Start(ctx context.Context) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.Run(ctx)
	}()
}

// Shutdown stops the background loop and waits for an in-flight rebuild.
func (r *Refresher) Shutdown() {
	r.shutdownOnce.Do(func() {
		close(r.shutdownChan)
		r.wg.Wait()
	})
}

func (r *Refresher) tick(ctx context.Context) string {
	result := r.refresh(ctx)
	if r.config.Observer != nil {
		r.config.Observer.ObserveRefreshTick(result)
	}
	return result
}

func (r *Refresher) refresh(ctx context.Context) string {
	marker, err := r.source.LastUpdated(ctx)
	if err != nil {
		logging.LogError(r.logger, "Failed to read schedule change marker", err)
		return TickError
	}

	snap, err := r.cache.Snapshot()
	if err == nil && snap.Marker.Equal(marker) {
		if !r.cache.WindowExpired(snap) {
			return TickUnchanged
		}
		r.logger.Info("service date rolled over, rebuilding schedule",
			slog.Time("window_start", snap.WindowStart))
	}

	// A rebuild that has started runs to completion even if ctx is cancelled.
	rebuildCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.config.RebuildTimeout)
	defer cancel()

	if err := r.cache.Rebuild(rebuildCtx); err != nil {
		logging.LogError(r.logger, "Scheduled rebuild failed", err,
			slog.Time("marker", marker))
		return TickError
	}
	return TickRebuilt
}
