package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"grouptrip.org/internal/schedule"
)

type Collector struct {
	reg *prometheus.Registry

	RefreshTicks    *prometheus.CounterVec // result label: unchanged|rebuilt|error
	RebuildDuration prometheus.Histogram

	SnapshotTrips     prometheus.Gauge
	SnapshotStops     prometheus.Gauge
	SnapshotStopTimes prometheus.Gauge
	SnapshotMarker    prometheus.Gauge // unix seconds

	SearchDuration prometheus.Histogram
	Travelers      *prometheus.CounterVec // result label: found|unreachable

	EventsPublished  prometheus.Counter
	EventPublishErrs prometheus.Counter
	NATSConnected    prometheus.Gauge
	RefreshInterval  prometheus.Gauge // seconds
}

func NewCollector(refreshInterval time.Duration) *Collector {
	reg := prometheus.NewRegistry()

	c := &Collector{
		reg: reg,
		RefreshTicks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "planner_refresh_ticks_total",
			Help: "Refresher ticks by outcome.",
		}, []string{"result"}),
		RebuildDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "planner_rebuild_duration_seconds",
			Help:    "Duration of schedule snapshot builds.",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 14),
		}),
		SnapshotTrips: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "planner_snapshot_trips",
			Help: "Trip instances in the published snapshot.",
		}),
		SnapshotStops: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "planner_snapshot_stops",
			Help: "Stops in the published snapshot.",
		}),
		SnapshotStopTimes: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "planner_snapshot_stop_times",
			Help: "Stop times in the published snapshot.",
		}),
		SnapshotMarker: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "planner_snapshot_marker_seconds",
			Help: "Store change marker of the published snapshot as a unix timestamp.",
		}),
		SearchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "planner_search_duration_seconds",
			Help:    "Duration of backward path searches.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 15),
		}),
		Travelers: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "planner_travelers_total",
			Help: "Travelers planned, by whether a path was found.",
		}, []string{"result"}),
		EventsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "planner_events_published_total",
			Help: "Total snapshot events published to NATS.",
		}),
		EventPublishErrs: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "planner_event_publish_errors_total",
			Help: "Total NATS publish errors.",
		}),
		NATSConnected: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "planner_nats_connected",
			Help: "1 if NATS connection is established, 0 otherwise.",
		}),
		RefreshInterval: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "planner_refresh_interval_seconds",
			Help: "Refresher interval in seconds.",
		}),
	}

	reg.MustRegister(
		c.RefreshTicks, c.RebuildDuration,
		c.SnapshotTrips, c.SnapshotStops, c.SnapshotStopTimes, c.SnapshotMarker,
		c.SearchDuration, c.Travelers,
		c.EventsPublished, c.EventPublishErrs, c.NATSConnected,
		c.RefreshInterval,
	)

	c.RefreshInterval.Set(refreshInterval.Seconds())
	return c
}

func (c *Collector) Handler() http.Handler { return promhttp.HandlerFor(c.reg, promhttp.HandlerOpts{}) }

// ObserveRefreshTick counts one refresher tick.
func (c *Collector) ObserveRefreshTick(result string) {
	c.RefreshTicks.WithLabelValues(result).Inc()
}

// ObserveSnapshot records a newly published snapshot. It is registered as a
// schedule.SnapshotListener.
func (c *Collector) ObserveSnapshot(snap *schedule.Snapshot) {
	c.RebuildDuration.Observe(snap.BuildDuration.Seconds())
	c.SnapshotTrips.Set(float64(snap.TripCount()))
	c.SnapshotStops.Set(float64(snap.StopCount()))
	c.SnapshotStopTimes.Set(float64(snap.StopTimeCount()))
	if !snap.Marker.IsZero() {
		c.SnapshotMarker.Set(float64(snap.Marker.Unix()))
	}
}

func (c *Collector) ObserveSearch(d time.Duration, found, unreachable int) {
	c.SearchDuration.Observe(d.Seconds())
	c.Travelers.WithLabelValues("found").Add(float64(found))
	c.Travelers.WithLabelValues("unreachable").Add(float64(unreachable))
}

func (c *Collector) EventPublishedInc() { c.EventsPublished.Inc() }
func (c *Collector) EventPublishErrInc() { c.EventPublishErrs.Inc() }

func (c *Collector) NATSSetConnected(connected bool) {
	if connected {
		c.NATSConnected.Set(1)
		return
	}
	c.NATSConnected.Set(0)
}
