package aggregator

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orunio/climate/backend/internal/contracts"
	"github.com/orunio/climate/backend/internal/gateway/gatewaytest"
	"github.com/orunio/climate/backend/internal/registry"
	"github.com/orunio/climate/backend/pkg/logger"
)

type fakeSource struct {
	name     string
	provider string
	outcome  contracts.Outcome
	delay    time.Duration
	calls    atomic.Int32
}

func (f *fakeSource) Name() string     { return f.name }
func (f *fakeSource) Provider() string { return f.provider }

func (f *fakeSource) Fetch(ctx context.Context, q contracts.Query) contracts.Outcome {
	f.calls.Add(1)
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	return f.outcome
}

type fakeCreds map[string]bool

func (c fakeCreds) HasCredentials(provider string) bool { return c[provider] }

var kenya = contracts.RegionProfile{
	Key: "kenya", Name: "Kenya", Kind: contracts.RegionCountry,
	Point: contracts.GeoPoint{Lat: 0.0236, Lon: 37.9062}, CountryCode: "KE",
}

func newSources() (*fakeSource, *fakeSource, *fakeSource, *fakeSource) {
	ok := &fakeSource{name: "good", provider: "p1",
		outcome: contracts.Success(http.StatusOK, nil, nil).WithData("payload")}
	broken := &fakeSource{name: "broken", provider: "p2",
		outcome: contracts.Failure(contracts.KindServerError, "boom").WithStatus(http.StatusInternalServerError)}
	keyed := &fakeSource{name: "keyed", provider: "p3"}
	slow := &fakeSource{name: "slow", provider: "p4",
		outcome: contracts.Failure(contracts.KindTimeout, "deadline exceeded").WithStatus(0)}
	return ok, broken, keyed, slow
}

func TestAggregate_EveryRequestedSourceOnce(t *testing.T) {
	for _, concurrency := range []int{1, 4} {
		t.Run(fmt.Sprintf("concurrency_%d", concurrency), func(t *testing.T) {
			good, broken, keyed, slow := newSources()
			creds := fakeCreds{"p1": true, "p2": true, "p4": true}
			agg := New(creds, []Source{good, broken, keyed, slow}, Config{Concurrency: concurrency}, logger.Nop())

			rec := agg.Aggregate(context.Background(), kenya, []string{"good", "broken", "keyed", "slow", "ghost", "good"})

			require.Len(t, rec.Sources, 5)
			assert.NotEmpty(t, rec.RunID)
			assert.Equal(t, []string{"good"}, rec.Available())
			assert.Equal(t, []string{"keyed"}, rec.Skipped())
			assert.Equal(t, []string{"broken", "ghost", "slow"}, rec.Failed())

			assert.Equal(t, "payload", rec.Sources["good"].Data)
			assert.Equal(t, contracts.KindServerError, rec.Sources["broken"].Kind)
			assert.Equal(t, contracts.KindTimeout, rec.Sources["slow"].Kind)
			assert.Equal(t, contracts.KindNotFound, rec.Sources["ghost"].Kind)
			assert.Equal(t, contracts.KindMissingCredentials, rec.Sources["keyed"].Kind)

			assert.Equal(t, int32(1), good.calls.Load())
			assert.Equal(t, int32(0), keyed.calls.Load())
		})
	}
}

func TestAggregate_DefaultsToAllSources(t *testing.T) {
	good, broken, keyed, slow := newSources()
	creds := fakeCreds{"p1": true, "p2": true, "p4": true}
	agg := New(creds, []Source{good, broken, keyed, slow}, Config{}, logger.Nop())

	rec := agg.Aggregate(context.Background(), kenya, nil)

	assert.Len(t, rec.Sources, 4)
	assert.Equal(t, []string{"good", "broken", "keyed", "slow"}, agg.Names())
	assert.InDelta(t, 0.25, rec.Coverage(), 1e-9)
}

func TestAggregate_RangeAndTimestamp(t *testing.T) {
	fixed := time.Date(2024, 6, 15, 13, 45, 0, 0, time.UTC)
	good, _, _, _ := newSources()
	agg := New(fakeCreds{"p1": true}, []Source{good}, Config{DaysBack: 10}, logger.Nop(),
		WithClock(func() time.Time { return fixed }))

	rec := agg.Aggregate(context.Background(), kenya, nil)

	assert.Equal(t, fixed, rec.Timestamp)
	assert.Equal(t, time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC), rec.Range.To)
	assert.Equal(t, time.Date(2024, 6, 5, 0, 0, 0, 0, time.UTC), rec.Range.From)

	rec = agg.Run(context.Background(), Request{Region: kenya, Days: 3})
	assert.Equal(t, time.Date(2024, 6, 12, 0, 0, 0, 0, time.UTC), rec.Range.From)
}

func TestAggregate_Progress(t *testing.T) {
	good, broken, keyed, slow := newSources()
	agg := New(fakeCreds{"p1": true, "p2": true, "p4": true},
		[]Source{good, broken, keyed, slow}, Config{Concurrency: 3}, logger.Nop())

	var mu sync.Mutex
	seen := map[string]contracts.EntryStatus{}
	rec := agg.Run(context.Background(), Request{Region: kenya, Progress: func(e contracts.SourceEntry) {
		mu.Lock()
		defer mu.Unlock()
		seen[e.Source] = e.Status
	}})

	require.Len(t, seen, len(rec.Sources))
	for name, e := range rec.Sources {
		assert.Equal(t, e.Status, seen[name])
	}
}

func TestAggregateRegions_ThrottlesSameProvider(t *testing.T) {
	good, _, _, _ := newSources()
	agg := New(fakeCreds{"p1": true}, []Source{good}, Config{InterCallDelay: 50 * time.Millisecond}, logger.Nop())

	start := time.Now()
	records := agg.AggregateRegions(context.Background(),
		[]contracts.RegionProfile{kenya, kenya, kenya}, nil)

	require.Len(t, records, 3)
	assert.GreaterOrEqual(t, time.Since(start), 100*time.Millisecond)
	assert.Equal(t, int32(3), good.calls.Load())
}

func TestAggregate_CancelledContext(t *testing.T) {
	good, _, _, _ := newSources()
	agg := New(fakeCreds{"p1": true}, []Source{good}, Config{InterCallDelay: time.Hour}, logger.Nop())

	// first call consumes the burst
	agg.Aggregate(context.Background(), kenya, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	rec := agg.Aggregate(ctx, kenya, nil)

	assert.Equal(t, contracts.EntryFailed, rec.Sources["good"].Status)
	assert.Equal(t, int32(1), good.calls.Load())
}

// Real adapters against a fake provider: keyed providers without keys never hit the network.
func TestDefaultSources_MissingKeysMakeNoCalls(t *testing.T) {
	srv := gatewaytest.NewServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	gw := gatewaytest.NewGateway(srv.URL, nil)

	agg := New(gw, DefaultSources(gw, logger.Nop(), nil), Config{Concurrency: 2}, logger.Nop())
	rec := agg.Aggregate(context.Background(), kenya, nil)

	require.Len(t, rec.Sources, 9)
	assert.Equal(t, []string{"copernicus", "nasa_epic", "nasa_imagery", "noaa", "sentinel_hub"}, rec.Skipped())
	for _, name := range rec.Skipped() {
		assert.Contains(t, rec.Sources[name].Reason, "not configured")
	}

	assert.Equal(t, 0, srv.CallsTo("/planetary/earth/assets"))
	assert.Equal(t, 0, srv.CallsTo("/stations"))
	assert.Equal(t, 0, srv.CallsTo("/catalog/1.0.0/search"))
	assert.Empty(t, rec.Available())

	_, ok := rec.Sources[registry.WorldBank]
	assert.True(t, ok)
}
