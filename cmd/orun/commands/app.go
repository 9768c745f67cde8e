package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/orunio/climate/backend/internal/aggregator"
	"github.com/orunio/climate/backend/internal/api/handlers"
	"github.com/orunio/climate/backend/internal/external/sentinel"
	"github.com/orunio/climate/backend/internal/gateway"
	"github.com/orunio/climate/backend/internal/quota"
	"github.com/orunio/climate/backend/internal/regions"
	"github.com/orunio/climate/backend/internal/registry"
	"github.com/orunio/climate/backend/internal/scheduler/jobs"
	"github.com/orunio/climate/backend/internal/sink"
	"github.com/orunio/climate/backend/internal/store"
	"github.com/orunio/climate/backend/pkg/config"
	"github.com/orunio/climate/backend/pkg/database"
	"github.com/orunio/climate/backend/pkg/httputil"
	"github.com/orunio/climate/backend/pkg/logger"
	"github.com/orunio/climate/backend/pkg/redis"
)

const cachePrefix = "orun"

// app holds the wired dependencies shared by commands
type app struct {
	cfg     *config.Config
	log     *logger.Logger
	reg     *registry.Registry
	tracker *quota.Tracker
	gw      *gateway.Gateway
	table   *regions.Table
	redis   *redis.Client
	cache   *redis.Cache
	agg     *aggregator.Aggregator
	sent    *sentinel.Adapter

	db    *database.DB      // nil without DATABASE_URL
	store *store.Repository // nil without DATABASE_URL
	sinks *sink.Multi
}

type appOptions struct {
	concurrency int
	persistence bool // connect the database and sinks
}

// newApp loads config and wires the aggregation stack
func newApp(ctx context.Context, opts appOptions) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if env != "" {
		cfg.Env = env
	}
	if verbose {
		cfg.LogLevel = "debug"
	}
	if opts.concurrency > 0 {
		cfg.Aggregator.Concurrency = opts.concurrency
	}

	log := logger.New(cfg)

	table, err := regions.Load(cfg.Aggregator.RegionsFile)
	if err != nil {
		return nil, err
	}

	rc, err := redis.New(cfg)
	if err != nil {
		// Redis는 선택 사항: 연결 실패 시 캐시 없이 진행
		log.WithError(err).Warn("Redis unavailable, continuing without cache")
		rc = redis.Disabled()
	}

	client := httputil.New(log).WithRateLimiter(redis.NewRateLimiter(rc, cachePrefix))
	reg := registry.FromConfig(cfg)
	tracker := quota.NewTracker()
	gw := gateway.New(reg, tracker, client, log, cfg.Gateway)
	cache := redis.NewCache(rc, cachePrefix)

	a := &app{
		cfg:     cfg,
		log:     log,
		reg:     reg,
		tracker: tracker,
		gw:      gw,
		table:   table,
		redis:   rc,
		cache:   cache,
		sent:    sentinel.NewAdapter(gw),
		agg: aggregator.New(gw, aggregator.DefaultSources(gw, log, cache), aggregator.Config{
			Concurrency:    cfg.Aggregator.Concurrency,
			InterCallDelay: cfg.Aggregator.InterCallDelay,
			DaysBack:       cfg.Aggregator.DaysBack,
		}, log),
		sinks: sink.NewMulti(log),
	}

	if !opts.persistence {
		return a, nil
	}

	db, err := database.New(ctx, cfg.Database)
	switch {
	case errors.Is(err, database.ErrDisabled):
		log.Debug("DATABASE_URL not set, runs will not be persisted")
	case err != nil:
		a.close()
		return nil, fmt.Errorf("connect to database: %w", err)
	default:
		a.db = db
		a.store = store.NewRepository(db.Pool)
		if err := a.store.EnsureSchema(ctx); err != nil {
			a.close()
			return nil, err
		}
	}

	a.sinks = sink.FromConfig(cfg, log)
	return a, nil
}

func (a *app) close() {
	if a.sinks != nil {
		if err := a.sinks.Close(); err != nil {
			a.log.WithError(err).Warn("Failed to close sinks")
		}
	}
	a.db.Close()
	_ = a.redis.Close()
}

// pilotJobOptions wires whichever optional outputs are configured
func (a *app) pilotJobOptions() []jobs.PilotRefreshOption {
	opts := []jobs.PilotRefreshOption{
		jobs.WithCache(a.cache),
		jobs.WithIndexSource(a.sent),
	}
	if a.store != nil {
		opts = append(opts, jobs.WithStore(a.store))
	}
	if a.sinks.Len() > 0 {
		opts = append(opts, jobs.WithSink(a.sinks))
	}
	return opts
}

// latestStore returns the store for the API, a nil interface without one
func (a *app) latestStore() handlers.LatestStore {
	if a.store == nil {
		return nil
	}
	return a.store
}
