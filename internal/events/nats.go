// Package events announces newly published schedule snapshots on NATS so
// other planner instances and downstream consumers can react to timetable
// changes.
package events

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"grouptrip.org/internal/logging"
	"grouptrip.org/internal/schedule"
)

const DefaultSubject = "planner.snapshot.published"

type PublisherMetrics interface {
	EventPublishedInc()
	EventPublishErrInc()
	NATSSetConnected(connected bool)
}

// publishConn is the part of *nats.Conn the publisher needs.
type publishConn interface {
	Publish(subject string, data []byte) error
}

type NATSPublisher struct {
	nc      *nats.Conn
	conn    publishConn
	subject string
	metrics PublisherMetrics
	logger  *slog.Logger
}

// SnapshotEvent is the JSON payload published for every new snapshot.
type SnapshotEvent struct {
	Marker          time.Time `json:"marker"`
	BuiltAt         time.Time `json:"builtAt"`
	BuildDurationMs int64     `json:"buildDurationMs"`
	Stops           int       `json:"stops"`
	Trips           int       `json:"trips"`
	StopTimes       int       `json:"stopTimes"`
}

func NewNATSPublisher(url, subject string, m PublisherMetrics, logger *slog.Logger) (*NATSPublisher, error) {
	logger = logging.OrDefault(logger).With(slog.String("component", "events"))

	nc, err := nats.Connect(url,
		nats.Name("grouptrip-planner"),
		nats.Timeout(5*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if m != nil {
				m.NATSSetConnected(false)
			}
			logger.Warn("nats disconnected", slog.Any("error", err))
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			if m != nil {
				m.NATSSetConnected(true)
			}
			logger.Info("nats reconnected")
		}),
		nats.ClosedHandler(func(_ *nats.Conn) {
			if m != nil {
				m.NATSSetConnected(false)
			}
			logger.Info("nats closed")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connecting to NATS at %s: %w", url, err)
	}
	if m != nil {
		m.NATSSetConnected(true)
	}

	p := newPublisher(nc, subject, m, logger)
	p.nc = nc
	return p, nil
}

func newPublisher(conn publishConn, subject string, m PublisherMetrics, logger *slog.Logger) *NATSPublisher {
	if strings.TrimSpace(subject) == "" {
		subject = DefaultSubject
	}
	return &NATSPublisher{
		conn:    conn,
		subject: subject,
		metrics: m,
		logger:  logging.OrDefault(logger),
	}
}

func (p *NATSPublisher) Close() {
	if p.nc != nil {
		if err := p.nc.Drain(); err != nil {
			logging.LogError(p.logger, "Failed to drain NATS connection", err)
		}
		p.nc.Close()
	}
}

// PublishSnapshot sends a SnapshotEvent for snap. It has the shape of a
// schedule.SnapshotListener; failures are logged and counted, never returned.
func (p *NATSPublisher) PublishSnapshot(snap *schedule.Snapshot) {
	if err := p.publish(newSnapshotEvent(snap)); err != nil {
		logging.LogError(p.logger, "Failed to publish snapshot event", err,
			slog.String("subject", p.subject))
	}
}

func (p *NATSPublisher) publish(event SnapshotEvent) error {
	b, err := json.Marshal(event)
	if err != nil {
		return err
	}
	err = p.conn.Publish(p.subject, b)
	if p.metrics != nil {
		if err != nil {
			p.metrics.EventPublishErrInc()
		} else {
			p.metrics.EventPublishedInc()
		}
	}
	return err
}

func newSnapshotEvent(snap *schedule.Snapshot) SnapshotEvent {
	return SnapshotEvent{
		Marker:          snap.Marker,
		BuiltAt:         snap.BuiltAt,
		BuildDurationMs: snap.BuildDuration.Milliseconds(),
		Stops:           snap.StopCount(),
		Trips:           snap.TripCount(),
		StopTimes:       snap.StopTimeCount(),
	}
}
