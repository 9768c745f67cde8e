package nasa

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orunio/climate/backend/internal/contracts"
	"github.com/orunio/climate/backend/internal/gateway/gatewaytest"
	"github.com/orunio/climate/backend/internal/registry"
)

var kenya = contracts.Query{
	Region: contracts.RegionProfile{
		Key:   "kenya",
		Name:  "Kenya",
		Point: contracts.GeoPoint{Lat: 0.0236, Lon: 37.9062},
	},
	Range: contracts.DateRange{
		From: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
		To:   time.Date(2024, 5, 31, 0, 0, 0, 0, time.UTC),
	},
}

func TestImageryAdapter_Fetch(t *testing.T) {
	srv := gatewaytest.NewServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/planetary/earth/assets", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "0.0236", q.Get("lat"))
		assert.Equal(t, "37.9062", q.Get("lon"))
		assert.Equal(t, "2024-05-31", q.Get("date"))
		assert.Equal(t, "0.15", q.Get("dim"))
		assert.Equal(t, "nasa-key", q.Get("api_key"))
		fmt.Fprint(w, `{"date":"2024-05-28T08:01:12","id":"LC08_L1TP_168060","resource":{"dataset":"landsat8"},"url":"https://earthengine/thumb.png"}`)
	})

	gw := gatewaytest.NewGateway(srv.URL, gatewaytest.Keys{registry.NASA: "nasa-key"})
	o := NewImageryAdapter(gw).Fetch(context.Background(), kenya)

	require.True(t, o.OK(), o.String())
	img, ok := o.Data.(Imagery)
	require.True(t, ok)
	assert.Equal(t, "https://earthengine/thumb.png", img.URL)
	assert.Equal(t, "2024-05-28T08:01:12", img.Date)
	assert.Equal(t, "LC08_L1TP_168060", img.ID)
	assert.Equal(t, 0.15, img.Dim)
}

func TestImageryAdapter_MissingKey(t *testing.T) {
	srv := gatewaytest.NewServer(t, func(w http.ResponseWriter, r *http.Request) {})

	gw := gatewaytest.NewGateway(srv.URL, nil)
	o := NewImageryAdapter(gw).Fetch(context.Background(), kenya)

	assert.Equal(t, contracts.KindMissingCredentials, o.Kind)
	assert.Equal(t, 0, srv.Calls())
}

func TestImageryAdapter_MalformedBody(t *testing.T) {
	srv := gatewaytest.NewServer(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html>maintenance</html>`)
	})

	gw := gatewaytest.NewGateway(srv.URL, gatewaytest.Keys{registry.NASA: "k"})
	o := NewImageryAdapter(gw).Fetch(context.Background(), kenya)

	assert.Equal(t, contracts.KindServerError, o.Kind)
	assert.Contains(t, o.Message, "malformed response")
	assert.Equal(t, http.StatusOK, o.StatusCode)
}

func TestParseEPIC(t *testing.T) {
	payload := []byte(`[
		{"identifier":"20240530003633","caption":"a","image":"epic_1b_20240530003633","date":"2024-05-30 00:31:45","centroid_coordinates":{"lat":4.1,"lon":170.2}},
		{"identifier":"20240530225523","caption":"b","image":"epic_1b_20240530225523","date":"2024-05-30 22:50:57","centroid_coordinates":{"lat":3.9,"lon":-166.5}},
		{"identifier":"20240530113019","caption":"c","image":"epic_1b_20240530113019","date":"2024-05-30 11:26:21"}
	]`)

	summary, err := ParseEPIC(payload)
	require.NoError(t, err)
	assert.Equal(t, 3, summary.Count)
	require.NotNil(t, summary.Latest)
	assert.Equal(t, "20240530225523", summary.Latest.Identifier)
	assert.Equal(t, -166.5, summary.Latest.Centroid.Lon)

	empty, err := ParseEPIC([]byte(`[]`))
	require.NoError(t, err)
	assert.Zero(t, empty.Count)
	assert.Nil(t, empty.Latest)
}

func TestEPICAdapter_Fetch(t *testing.T) {
	srv := gatewaytest.NewServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/EPIC/api/natural", r.URL.Path)
		fmt.Fprint(w, `[{"identifier":"1","date":"2024-05-30 00:31:45"}]`)
	})

	gw := gatewaytest.NewGateway(srv.URL, gatewaytest.Keys{registry.NASA: "k"})
	o := NewEPICAdapter(gw).Fetch(context.Background(), kenya)

	require.True(t, o.OK(), o.String())
	assert.Equal(t, 1, o.Data.(EPICSummary).Count)
}

func TestParseLibrary(t *testing.T) {
	items := ""
	for i := 0; i < 7; i++ {
		if i > 0 {
			items += ","
		}
		items += fmt.Sprintf(`{"data":[{"nasa_id":"id%d","title":"t%d"}],"links":[{"href":"https://img/%d~thumb.jpg","rel":"preview"}]}`, i, i, i)
	}
	payload := []byte(`{"collection":{"metadata":{"total_hits":128},"items":[` + items + `,{"data":[]}]}}`)

	result, err := ParseLibrary(payload)
	require.NoError(t, err)
	assert.Equal(t, 128, result.TotalHits)
	require.Len(t, result.Items, maxLibraryItems)
	assert.Equal(t, "id0", result.Items[0].NASAID)
	assert.Equal(t, "https://img/4~thumb.jpg", result.Items[4].Preview)
}

func TestParseLibrary_SchemaDrift(t *testing.T) {
	result, err := ParseLibrary([]byte(`{"unexpected":true}`))
	require.NoError(t, err)
	assert.Zero(t, result.TotalHits)
	assert.Empty(t, result.Items)
}

func TestLibraryAdapter_Fetch(t *testing.T) {
	srv := gatewaytest.NewServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, "Kenya satellite climate", r.URL.Query().Get("q"))
		assert.Equal(t, "image", r.URL.Query().Get("media_type"))
		assert.Empty(t, r.URL.Query().Get("api_key"))
		fmt.Fprint(w, `{"collection":{"metadata":{"total_hits":2},"items":[]}}`)
	})

	gw := gatewaytest.NewGateway(srv.URL, nil)
	o := NewLibraryAdapter(gw).Fetch(context.Background(), kenya)

	require.True(t, o.OK(), o.String())
	res := o.Data.(LibraryResult)
	assert.Equal(t, 2, res.TotalHits)
	assert.Equal(t, "Kenya satellite climate", res.Query)
}
