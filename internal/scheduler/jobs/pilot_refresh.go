package jobs

import (
	"context"
	"errors"
	"fmt"

	"github.com/orunio/climate/backend/internal/contracts"
	"github.com/orunio/climate/backend/internal/index"
	"github.com/orunio/climate/backend/internal/sink"
	"github.com/orunio/climate/backend/pkg/logger"
	"github.com/orunio/climate/backend/pkg/redis"
)

// Aggregator is the part of the aggregator the refresh needs
type Aggregator interface {
	AggregateRegions(ctx context.Context, regions []contracts.RegionProfile, names []string) []contracts.AggregateRecord
}

// RecordStore persists refresh results
type RecordStore interface {
	SaveAggregate(ctx context.Context, rec contracts.AggregateRecord) error
	SaveIndexSeries(ctx context.Context, region string, s contracts.IndexTimeSeries) error
}

// IndexSource fetches satellite index series (Sentinel Hub statistics)
type IndexSource interface {
	FetchIndexSeries(ctx context.Context, q contracts.Query, index string) contracts.Outcome
}

// PilotRefreshJob aggregates every pilot site and pushes the results out
type PilotRefreshJob struct {
	agg      Aggregator
	pilots   []contracts.RegionProfile
	schedule string

	store   RecordStore  // optional
	sinks   sink.Sink    // optional
	cache   *redis.Cache // optional
	indices IndexSource  // optional
	logger  *logger.Logger
}

// PilotRefreshOption configures optional outputs
type PilotRefreshOption func(*PilotRefreshJob)

// WithStore saves records and index series
func WithStore(s RecordStore) PilotRefreshOption {
	return func(j *PilotRefreshJob) { j.store = s }
}

// WithSink publishes records and index series
func WithSink(s sink.Sink) PilotRefreshOption {
	return func(j *PilotRefreshJob) { j.sinks = s }
}

// WithCache refreshes cached region profiles
func WithCache(c *redis.Cache) PilotRefreshOption {
	return func(j *PilotRefreshJob) { j.cache = c }
}

// WithIndexSource also refreshes satellite index series per pilot
func WithIndexSource(src IndexSource) PilotRefreshOption {
	return func(j *PilotRefreshJob) { j.indices = src }
}

// NewPilotRefreshJob creates the job
func NewPilotRefreshJob(agg Aggregator, pilots []contracts.RegionProfile, schedule string, log *logger.Logger, opts ...PilotRefreshOption) *PilotRefreshJob {
	j := &PilotRefreshJob{
		agg:      agg,
		pilots:   pilots,
		schedule: schedule,
		logger:   log.WithField("job", "pilot_refresh"),
	}
	for _, opt := range opts {
		opt(j)
	}
	return j
}

// Name returns the job name
func (j *PilotRefreshJob) Name() string {
	return "pilot_refresh"
}

// Schedule returns the cron schedule
func (j *PilotRefreshJob) Schedule() string {
	return j.schedule
}

// Run aggregates all pilots. Source failures are data, not job errors;
// only output failures fail the run.
func (j *PilotRefreshJob) Run(ctx context.Context) error {
	records := j.agg.AggregateRegions(ctx, j.pilots, nil)

	var errs []error
	for _, rec := range records {
		j.logger.WithRegion(rec.Region.Key).WithFields(map[string]interface{}{
			"run_id":    rec.RunID,
			"available": len(rec.Available()),
			"skipped":   len(rec.Skipped()),
			"failed":    len(rec.Failed()),
		}).Info("Pilot refreshed")

		if err := j.output(ctx, rec); err != nil {
			errs = append(errs, err)
		}
		if j.indices != nil {
			if err := j.refreshIndices(ctx, rec); err != nil {
				errs = append(errs, err)
			}
		}
	}

	return errors.Join(errs...)
}

func (j *PilotRefreshJob) output(ctx context.Context, rec contracts.AggregateRecord) error {
	var errs []error

	if j.store != nil {
		if err := j.store.SaveAggregate(ctx, rec); err != nil {
			errs = append(errs, fmt.Errorf("save %s: %w", rec.Region.Key, err))
		}
	}
	if j.sinks != nil {
		if err := j.sinks.PublishRecord(ctx, rec); err != nil {
			errs = append(errs, fmt.Errorf("publish %s: %w", rec.Region.Key, err))
		}
	}
	if j.cache != nil {
		// 캐시 실패는 잡 실패로 보지 않음
		if err := j.cache.Set(ctx, redis.RegionProfileKey(rec.Region.Key, nil), rec, redis.TTLMedium); err != nil {
			j.logger.WithError(err).Warn("Failed to refresh cached profile")
		}
	}

	return errors.Join(errs...)
}

func (j *PilotRefreshJob) refreshIndices(ctx context.Context, rec contracts.AggregateRecord) error {
	q := contracts.Query{Region: rec.Region, Range: rec.Range}

	var errs []error
	for _, name := range []string{"NDVI", "NDWI", "EVI"} {
		o := j.indices.FetchIndexSeries(ctx, q, name)
		if !o.OK() {
			j.logger.WithRegion(rec.Region.Key).WithFields(map[string]interface{}{
				"index":   name,
				"outcome": o.String(),
			}).Warn("Index series unavailable")
			continue
		}

		series, ok := o.Data.(contracts.IndexTimeSeries)
		if !ok {
			continue
		}
		series = index.FilterCloudCover(series, index.DefaultMaxCloudCover)

		if j.store != nil {
			if err := j.store.SaveIndexSeries(ctx, rec.Region.Key, series); err != nil {
				errs = append(errs, fmt.Errorf("save %s %s: %w", rec.Region.Key, name, err))
			}
		}
		if j.sinks != nil {
			if err := j.sinks.PublishSeries(ctx, rec.Region.Key, series); err != nil {
				errs = append(errs, fmt.Errorf("publish %s %s: %w", rec.Region.Key, name, err))
			}
		}
	}
	return errors.Join(errs...)
}
