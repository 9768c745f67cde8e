package store

import (
	"context"
	"errors"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orunio/climate/backend/internal/contracts"
	"github.com/orunio/climate/backend/pkg/config"
	"github.com/orunio/climate/backend/pkg/database"
)

func newTestRepository(t *testing.T) *Repository {
	t.Helper()

	// Skip if DATABASE_URL is not set
	url := os.Getenv("DATABASE_URL")
	if url == "" {
		t.Skip("DATABASE_URL not set, skipping integration test")
	}

	db, err := database.New(context.Background(), config.DatabaseConfig{URL: url})
	require.NoError(t, err)
	t.Cleanup(db.Close)

	repo := NewRepository(db.Pool)
	require.NoError(t, repo.EnsureSchema(context.Background()))
	return repo
}

func TestAggregateRoundTrip(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	region := "test_" + uuid.NewString()[:8]
	now := time.Now().UTC().Truncate(time.Second)

	older := contracts.AggregateRecord{
		RunID:     uuid.NewString(),
		Region:    contracts.RegionProfile{Key: region},
		Timestamp: now.Add(-time.Hour),
		Range:     contracts.TrailingDays(now, 30),
		Sources: map[string]contracts.SourceEntry{
			"noaa": contracts.EntryFromOutcome("noaa", "noaa",
				contracts.Failure(contracts.KindMissingCredentials, "no key")),
		},
	}
	newer := older
	newer.RunID = uuid.NewString()
	newer.Timestamp = now
	newer.Sources = map[string]contracts.SourceEntry{
		"openstreetmap": contracts.EntryFromOutcome("openstreetmap", "openstreetmap",
			contracts.Success(http.StatusOK, nil, nil).WithData(map[string]int{"nodes": 3})),
	}

	require.NoError(t, repo.SaveAggregate(ctx, older))
	require.NoError(t, repo.SaveAggregate(ctx, newer))

	got, err := repo.LatestAggregate(ctx, region)
	require.NoError(t, err)
	assert.Equal(t, newer.RunID, got.RunID)
	assert.Equal(t, []string{"openstreetmap"}, got.Available())

	_, err = repo.LatestAggregate(ctx, "no_such_region_"+uuid.NewString())
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestIndexSeriesRoundTrip(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	region := "test_" + uuid.NewString()[:8]
	day := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s := contracts.IndexTimeSeries{Index: "NDVI", Points: []contracts.IndexPoint{
		{Date: day, Value: 0.31, CloudCover: 4},
		{Date: day.AddDate(0, 0, 16), Value: 0.36, CloudCover: 12},
	}}

	require.NoError(t, repo.SaveIndexSeries(ctx, region, s))
	s.Points[1].Value = 0.37
	require.NoError(t, repo.SaveIndexSeries(ctx, region, s))

	got, err := repo.IndexSeries(ctx, region, "NDVI", day, day.AddDate(0, 1, 0))
	require.NoError(t, err)
	require.Len(t, got.Points, 2)
	assert.InDelta(t, 0.37, got.Points[1].Value, 1e-12)
}

func TestSaveIndexSeries_RejectsUnordered(t *testing.T) {
	repo := &Repository{} // validation happens before any query
	day := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s := contracts.IndexTimeSeries{Index: "NDVI", Points: []contracts.IndexPoint{
		{Date: day.AddDate(0, 0, 16)},
		{Date: day},
	}}

	err := repo.SaveIndexSeries(context.Background(), "kenya", s)
	assert.ErrorIs(t, err, contracts.ErrNotChronological)
}
