package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"grouptrip.org/internal/logging"
	"grouptrip.org/internal/schedule"
	"grouptrip.org/internal/utils"
)

// ErrInvalidRequest wraps every validation failure of a PlanRequest.
var ErrInvalidRequest = errors.New("invalid plan request")

// PlanRequest asks for paths of several travelers to one destination.
type PlanRequest struct {
	Destination     LatLon     `json:"destination"`
	ArrivalDeadline time.Time  `json:"arrival_deadline" validate:"required"`
	Travelers       []Traveler `json:"travelers" validate:"required,min=1,max=100,unique=ID"`
}

// ValidationError lists request problems by field name.
type ValidationError struct {
	FieldErrors map[string][]string
}

func (e *ValidationError) Error() string {
	fields := make([]string, 0, len(e.FieldErrors))
	for field := range e.FieldErrors {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	return fmt.Sprintf("%s: %s", ErrInvalidRequest, strings.Join(fields, ", "))
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidRequest
}

// SnapshotSource provides the currently published snapshot.
type SnapshotSource interface {
	Snapshot() (*schedule.Snapshot, error)
}

type SearchObserver interface {
	ObserveSearch(duration time.Duration, found, unreachable int)
}

// Planner is the path-planning entry point used by request handlers.
type Planner struct {
	source   SnapshotSource
	options  Options
	observer SearchObserver
	logger   *slog.Logger
	validate *validator.Validate
}

func NewPlanner(source SnapshotSource, options Options, observer SearchObserver, logger *slog.Logger) (*Planner, error) {
	options, err := options.withDefaults()
	if err != nil {
		return nil, err
	}

	validate := validator.New()
	validate.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return &Planner{
		source:   source,
		options:  options,
		observer: observer,
		logger:   logging.OrDefault(logger).With(slog.String("component", "planner")),
		validate: validate,
	}, nil
}

// ComputePaths validates req, runs one backward search over the current
// snapshot and returns a result per traveler id.
func (p *Planner) ComputePaths(ctx context.Context, req PlanRequest) (map[string]PathResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := p.validateRequest(req); err != nil {
		return nil, err
	}

	snap, err := p.source.Snapshot()
	if err != nil {
		return nil, err
	}
	s, err := New(snap, p.options)
	if err != nil {
		return nil, err
	}

	started := time.Now()
	results, err := s.Run(req.Destination, req.ArrivalDeadline, req.Travelers)
	if err != nil {
		logging.LogError(p.logger, "Path search failed", err)
		return nil, err
	}
	duration := time.Since(started)

	found := 0
	for _, result := range results {
		if result.Found() {
			found++
		}
	}
	unreachableCount := len(results) - found
	if p.observer != nil {
		p.observer.ObserveSearch(duration, found, unreachableCount)
	}

	logging.FromContext(ctx).Debug("path search completed",
		slog.String("component", "planner"),
		slog.Int("travelers", len(req.Travelers)),
		slog.Int("found", found),
		slog.Int("unreachable", unreachableCount),
		slog.Time("snapshot_marker", snap.Marker),
		slog.Duration("duration", duration))

	return results, nil
}

func (p *Planner) validateRequest(req PlanRequest) error {
	fieldErrors := make(map[string][]string)

	if err := p.validate.Struct(req); err != nil {
		var validationErrors validator.ValidationErrors
		if !errors.As(err, &validationErrors) {
			return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
		}
		for _, fe := range validationErrors {
			fieldErrors[fe.Field()] = append(fieldErrors[fe.Field()], fmt.Sprintf("failed on the '%s' rule", fe.Tag()))
		}
	}

	fieldErrors = utils.ValidateCoordinates("destination", req.Destination.Lat, req.Destination.Lon, fieldErrors)
	for i, traveler := range req.Travelers {
		field := fmt.Sprintf("travelers[%d]", i)
		if err := utils.ValidateID(traveler.ID); err != nil {
			fieldErrors[field+".id"] = append(fieldErrors[field+".id"], err.Error())
		}
		fieldErrors = utils.ValidateCoordinates(field, traveler.Lat, traveler.Lon, fieldErrors)
	}

	if len(fieldErrors) > 0 {
		return &ValidationError{FieldErrors: fieldErrors}
	}
	return nil
}
