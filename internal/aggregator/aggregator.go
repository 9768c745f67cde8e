// Package aggregator merges per-source outcomes into one region profile.
package aggregator

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/orunio/climate/backend/internal/contracts"
	"github.com/orunio/climate/backend/internal/registry"
	"github.com/orunio/climate/backend/pkg/logger"
)

// Source is one adapter the aggregator can query
type Source interface {
	Name() string
	Provider() string
	Fetch(ctx context.Context, q contracts.Query) contracts.Outcome
}

// Credentials reports whether a provider can be called at all
type Credentials interface {
	HasCredentials(provider string) bool
}

// Progress receives each entry as soon as its source finishes.
// Calls are serialized.
type Progress func(entry contracts.SourceEntry)

// Config holds aggregation run settings
type Config struct {
	Concurrency    int           // sources per region in flight
	InterCallDelay time.Duration // same provider, consecutive calls
	DaysBack       int
}

// Aggregator runs sources for a region and never aborts on a failed source
// ⭐ SSOT: 지역별 다중 소스 병합은 여기서만
type Aggregator struct {
	sources map[string]Source
	order   []string
	creds   Credentials
	cfg     Config
	logger  *logger.Logger
	now     func() time.Time

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// Option configures an Aggregator
type Option func(*Aggregator)

// WithClock overrides the run timestamp source
func WithClock(now func() time.Time) Option {
	return func(a *Aggregator) { a.now = now }
}

// New creates an aggregator over the given sources, in registration order
func New(creds Credentials, sources []Source, cfg Config, log *logger.Logger, opts ...Option) *Aggregator {
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	if cfg.DaysBack < 1 {
		cfg.DaysBack = 30
	}

	a := &Aggregator{
		sources:  make(map[string]Source, len(sources)),
		creds:    creds,
		cfg:      cfg,
		logger:   log.WithField("module", "aggregator"),
		now:      time.Now,
		limiters: make(map[string]*rate.Limiter),
	}
	for _, s := range sources {
		if _, dup := a.sources[s.Name()]; dup {
			continue
		}
		a.sources[s.Name()] = s
		a.order = append(a.order, s.Name())
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Names returns the registered source names in registration order
func (a *Aggregator) Names() []string {
	out := make([]string, len(a.order))
	copy(out, a.order)
	return out
}

// Request describes one region run
type Request struct {
	Region   contracts.RegionProfile
	Names    []string // empty means all sources
	Days     int      // trailing window; 0 uses the configured default
	Progress Progress // optional
}

// Aggregate queries the named sources (all when empty) for one region.
// Every requested name appears exactly once in the record.
func (a *Aggregator) Aggregate(ctx context.Context, region contracts.RegionProfile, names []string) contracts.AggregateRecord {
	return a.Run(ctx, Request{Region: region, Names: names})
}

// Run executes one region request; it never returns an error
func (a *Aggregator) Run(ctx context.Context, req Request) contracts.AggregateRecord {
	region, progress := req.Region, req.Progress

	days := req.Days
	if days < 1 {
		days = a.cfg.DaysBack
	}

	now := a.now()
	q := contracts.Query{
		Region: region,
		Range:  contracts.TrailingDays(now, days),
	}

	record := contracts.AggregateRecord{
		RunID:     uuid.NewString(),
		Region:    region,
		Timestamp: now.UTC(),
		Range:     q.Range,
		Sources:   make(map[string]contracts.SourceEntry),
	}

	names := req.Names
	if len(names) == 0 {
		names = a.order
	}
	names = dedupe(names)

	log := a.logger.WithRegion(region.Key)
	log.WithFields(map[string]interface{}{
		"run_id":      record.RunID,
		"sources":     len(names),
		"concurrency": a.cfg.Concurrency,
	}).Info("Starting aggregation")

	var mu sync.Mutex
	put := func(e contracts.SourceEntry) {
		mu.Lock()
		defer mu.Unlock()
		record.Sources[e.Source] = e
		if progress != nil {
			progress(e)
		}
	}

	nameCh := make(chan string, len(names))
	for _, n := range names {
		nameCh <- n
	}
	close(nameCh)

	workers := a.cfg.Concurrency
	if workers > len(names) {
		workers = len(names)
	}

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for name := range nameCh {
				put(a.run(ctx, name, q))
			}
		}()
	}
	wg.Wait()

	log.WithFields(map[string]interface{}{
		"run_id":    record.RunID,
		"available": len(record.Available()),
		"skipped":   len(record.Skipped()),
		"failed":    len(record.Failed()),
	}).Info("Aggregation completed")

	return record
}

// AggregateRegions runs regions one after another.
// Calls to the same provider are spaced by InterCallDelay.
func (a *Aggregator) AggregateRegions(ctx context.Context, regions []contracts.RegionProfile, names []string) []contracts.AggregateRecord {
	out := make([]contracts.AggregateRecord, 0, len(regions))
	for _, r := range regions {
		out = append(out, a.Aggregate(ctx, r, names))
	}
	return out
}

// run produces the entry for one source; it never fails
func (a *Aggregator) run(ctx context.Context, name string, q contracts.Query) contracts.SourceEntry {
	src, ok := a.sources[name]
	if !ok {
		return contracts.SourceEntry{
			Source: name,
			Status: contracts.EntryFailed,
			Kind:   contracts.KindNotFound,
			Reason: fmt.Sprintf("unknown source %q", name),
		}
	}

	provider := src.Provider()
	if !a.creds.HasCredentials(provider) {
		return contracts.EntryFromOutcome(name, provider, missingKey(provider))
	}

	if err := a.limiter(provider).Wait(ctx); err != nil {
		return contracts.EntryFromOutcome(name, provider,
			contracts.Failure(contracts.KindTimeout, "throttle wait: %v", err))
	}

	start := time.Now()
	o := src.Fetch(ctx, q)

	a.logger.WithProvider(provider).WithFields(map[string]interface{}{
		"source":      name,
		"region":      q.Region.Key,
		"outcome":     o.String(),
		"duration_ms": time.Since(start).Milliseconds(),
	}).Debug("Source fetched")

	return contracts.EntryFromOutcome(name, provider, o)
}

// limiter returns the shared per-provider throttle
func (a *Aggregator) limiter(provider string) *rate.Limiter {
	a.mu.Lock()
	defer a.mu.Unlock()

	l, ok := a.limiters[provider]
	if !ok {
		limit := rate.Inf
		if a.cfg.InterCallDelay > 0 {
			limit = rate.Every(a.cfg.InterCallDelay)
		}
		l = rate.NewLimiter(limit, 1)
		a.limiters[provider] = l
	}
	return l
}

func missingKey(provider string) contracts.Outcome {
	if k, ok := registry.KeyInstructions(provider); ok {
		return contracts.Failure(contracts.KindMissingCredentials, "%s not configured (%s)", k.EnvVar, k.URL)
	}
	return contracts.Failure(contracts.KindMissingCredentials, "%s requires an API key and none is configured", provider)
}

func dedupe(names []string) []string {
	seen := make(map[string]bool, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	return out
}

// SortedNames returns the record's source names sorted
func SortedNames(r contracts.AggregateRecord) []string {
	names := make([]string, 0, len(r.Sources))
	for n := range r.Sources {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
