package commands

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orunio/climate/backend/internal/aggregator"
	"github.com/orunio/climate/backend/internal/contracts"
	"github.com/orunio/climate/backend/pkg/logger"
)

type stubSource string

func (s stubSource) Name() string     { return string(s) }
func (s stubSource) Provider() string { return string(s) }
func (s stubSource) Fetch(ctx context.Context, q contracts.Query) contracts.Outcome {
	return contracts.Success(200, nil, nil)
}

type allCreds struct{}

func (allCreds) HasCredentials(string) bool { return true }

func TestEntryDetail(t *testing.T) {
	tests := []struct {
		name  string
		entry contracts.SourceEntry
		want  string
	}{
		{
			name:  "available shows data",
			entry: contracts.SourceEntry{Status: contracts.EntryAvailable, Data: map[string]int{"count": 3}},
			want:  `{"count":3}`,
		},
		{
			name:  "skipped shows reason",
			entry: contracts.SourceEntry{Status: contracts.EntrySkipped, Reason: "noaa not configured"},
			want:  "noaa not configured",
		},
		{
			name: "failed shows kind",
			entry: contracts.SourceEntry{
				Status: contracts.EntryFailed,
				Kind:   contracts.KindTimeout,
				Reason: "deadline exceeded",
			},
			want: "[timeout] deadline exceeded",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, entryDetail(tt.entry))
		})
	}
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcdefg...", truncate("abcdefghijklmnop", 10))
	assert.Len(t, []rune(truncate("케냐 마쿠에니 카운티 가뭄 모니터링 사이트", 10)), 10)
}

func TestCheckSources(t *testing.T) {
	agg := aggregator.New(allCreds{}, []aggregator.Source{stubSource("noaa"), stubSource("osm")},
		aggregator.Config{Concurrency: 1, DaysBack: 30}, logger.Nop())

	assert.NoError(t, checkSources(agg, nil))
	assert.NoError(t, checkSources(agg, []string{"osm"}))

	err := checkSources(agg, []string{"osm", "modis"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"modis"`)
	assert.Contains(t, err.Error(), "noaa, osm")
}

func TestReadSeries(t *testing.T) {
	dir := t.TempDir()

	good := filepath.Join(dir, "ndvi.json")
	require.NoError(t, os.WriteFile(good, []byte(`{
		"index": "NDVI",
		"points": [
			{"date": "2024-01-01T00:00:00Z", "value": 0.41, "cloud_cover": 5},
			{"date": "2024-01-17T00:00:00Z", "value": 0.44, "cloud_cover": 12}
		]
	}`), 0o600))

	s, err := readSeries(good)
	require.NoError(t, err)
	assert.Equal(t, "NDVI", s.Index)
	assert.Equal(t, []float64{0.41, 0.44}, s.Values())

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`[1,2`), 0o600))
	_, err = readSeries(bad)
	assert.Error(t, err)

	_, err = readSeries(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)
}

func TestSortedSources(t *testing.T) {
	rec := contracts.AggregateRecord{Sources: map[string]contracts.SourceEntry{
		"world_bank": {Status: contracts.EntryFailed},
		"noaa":       {Status: contracts.EntrySkipped},
		"osm":        {Status: contracts.EntryAvailable},
		"nasa_power": {Status: contracts.EntryAvailable},
	}}

	assert.Equal(t, []string{"nasa_power", "osm", "noaa", "world_bank"}, sortedSources(rec))
}
