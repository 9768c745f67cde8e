// Package sink publishes aggregation results to downstream systems.
package sink

import (
	"context"
	"errors"
	"fmt"

	"github.com/orunio/climate/backend/internal/contracts"
	"github.com/orunio/climate/backend/pkg/logger"
)

// Sink receives finished records and index series
type Sink interface {
	Name() string
	PublishRecord(ctx context.Context, rec contracts.AggregateRecord) error
	PublishSeries(ctx context.Context, region string, s contracts.IndexTimeSeries) error
	Close() error
}

// Multi fans out to every sink; a failing sink is logged and the rest still run
type Multi struct {
	sinks  []Sink
	logger *logger.Logger
}

// NewMulti creates a fan-out over sinks; nil entries are dropped
func NewMulti(log *logger.Logger, sinks ...Sink) *Multi {
	m := &Multi{logger: log.WithField("module", "sink")}
	for _, s := range sinks {
		if s != nil {
			m.sinks = append(m.sinks, s)
		}
	}
	return m
}

// Name implements Sink
func (m *Multi) Name() string { return "multi" }

// Len returns the number of attached sinks
func (m *Multi) Len() int { return len(m.sinks) }

// PublishRecord implements Sink
func (m *Multi) PublishRecord(ctx context.Context, rec contracts.AggregateRecord) error {
	return m.each(func(s Sink) error { return s.PublishRecord(ctx, rec) }, rec.Region.Key)
}

// PublishSeries implements Sink
func (m *Multi) PublishSeries(ctx context.Context, region string, ts contracts.IndexTimeSeries) error {
	return m.each(func(s Sink) error { return s.PublishSeries(ctx, region, ts) }, region)
}

// Close closes every sink
func (m *Multi) Close() error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.Close(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
		}
	}
	return errors.Join(errs...)
}

func (m *Multi) each(fn func(Sink) error, region string) error {
	var errs []error
	for _, s := range m.sinks {
		if err := fn(s); err != nil {
			m.logger.WithError(err).WithFields(map[string]interface{}{
				"sink":   s.Name(),
				"region": region,
			}).Warn("Sink publish failed")
			errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
		}
	}
	return errors.Join(errs...)
}
