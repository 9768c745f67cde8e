package stac

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orunio/climate/backend/internal/contracts"
)

func TestInterval(t *testing.T) {
	r := contracts.DateRange{
		From: time.Date(2024, 1, 1, 15, 0, 0, 0, time.UTC),
		To:   time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC),
	}
	assert.Equal(t, "2024-01-01T00:00:00Z/2024-01-31T23:59:59Z", Interval(r))
}

func TestParse(t *testing.T) {
	payload := []byte(`{"features":[
		{"id":"b","properties":{"datetime":"2024-02-01T00:00:00Z","eo:cloud_cover":40}},
		{"id":"a","properties":{"datetime":"2024-01-01T00:00:00Z","eo:cloud_cover":10}},
		{"id":"c","properties":{"datetime":"not a date"}}
	]}`)

	list, err := Parse(payload)
	require.NoError(t, err)

	assert.Equal(t, 3, list.Returned)
	assert.Equal(t, 3, list.Matched)
	// unparseable datetime sorts first as zero time
	assert.Equal(t, []string{"c", "a", "b"}, []string{list.Scenes[0].ID, list.Scenes[1].ID, list.Scenes[2].ID})
	assert.Equal(t, "a", list.LeastCloudy.ID)
	assert.InDelta(t, 25.0, *list.MeanCloudCover, 1e-9)
}

func TestParse_Empty(t *testing.T) {
	list, err := Parse([]byte(`{"type":"FeatureCollection","features":[]}`))
	require.NoError(t, err)
	assert.Zero(t, list.Returned)
	assert.Empty(t, list.Scenes)
	assert.Nil(t, list.LeastCloudy)

	_, err = Parse([]byte(`[1,2]`))
	assert.Error(t, err)
}
