package osm

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orunio/climate/backend/internal/contracts"
	"github.com/orunio/climate/backend/internal/gateway/gatewaytest"
)

const sampleMap = `<?xml version="1.0" encoding="UTF-8"?>
<osm version="0.6" generator="CGImap 0.9.0">
 <bounds minlat="-2.2933" minlon="37.8233" maxlat="-2.2733" maxlon="37.8433"/>
 <node id="1" lat="-2.28" lon="37.83" version="1"/>
 <node id="2" lat="-2.281" lon="37.831" version="1">
  <tag k="natural" v="water"/>
 </node>
 <node id="3" lat="-2.282" lon="37.832" version="1"/>
 <way id="10" version="1">
  <nd ref="1"/>
  <nd ref="3"/>
  <tag k="waterway" v="stream"/>
 </way>
 <way id="11" version="1">
  <nd ref="2"/>
  <tag k="landuse" v="farmland"/>
 </way>
 <relation id="100" version="1">
  <member type="way" ref="10" role="outer"/>
  <tag k="natural" v="wetland"/>
 </relation>
</osm>`

func TestParse(t *testing.T) {
	cov, err := Parse([]byte(sampleMap))
	require.NoError(t, err)

	assert.True(t, cov.Available)
	assert.Equal(t, 3, cov.Nodes)
	assert.Equal(t, 2, cov.Ways)
	assert.Equal(t, 1, cov.Relations)
	assert.Equal(t, 6, cov.Total())
	assert.Equal(t, 2, cov.Features["natural"])
	assert.Equal(t, 1, cov.Features["waterway"])
	assert.Equal(t, 1, cov.Features["landuse"])
	assert.NotContains(t, cov.Features, "highway")
}

func TestParse_EmptyArea(t *testing.T) {
	cov, err := Parse([]byte(`<osm version="0.6"><bounds minlat="0" minlon="0" maxlat="0.02" maxlon="0.02"/></osm>`))
	require.NoError(t, err)
	assert.False(t, cov.Available)
	assert.Zero(t, cov.Total())
}

func TestParse_NotOSM(t *testing.T) {
	_, err := Parse([]byte(`{"error":"json instead of xml"}`))
	assert.Error(t, err)
}

func TestAdapter_Fetch(t *testing.T) {
	srv := gatewaytest.NewServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/map", r.URL.Path)
		assert.Equal(t, "37.823300,-2.293300,37.843300,-2.273300", r.URL.Query().Get("bbox"))
		assert.Equal(t, "application/xml", r.Header.Get("Accept"))
		w.Header().Set("Content-Type", "text/xml")
		fmt.Fprint(w, sampleMap)
	})

	gw := gatewaytest.NewGateway(srv.URL, nil)
	o := NewAdapter(gw).Fetch(context.Background(), contracts.Query{
		Region: contracts.RegionProfile{Key: "makueni_kenya", Point: contracts.GeoPoint{Lat: -2.2833, Lon: 37.8333}},
	})

	require.True(t, o.OK(), o.String())
	cov := o.Data.(Coverage)
	assert.Equal(t, 6, cov.Total())
	assert.InDelta(t, 37.8233, cov.BBox[0], 1e-9)
}

func TestAdapter_BandwidthExceeded(t *testing.T) {
	srv := gatewaytest.NewServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(509)
	})

	gw := gatewaytest.NewGateway(srv.URL, nil)
	o := NewAdapter(gw).Fetch(context.Background(), contracts.Query{
		Region: contracts.RegionProfile{Key: "x", Point: contracts.GeoPoint{Lat: 1, Lon: 1}},
	})

	assert.Equal(t, contracts.KindServerError, o.Kind)
	assert.Equal(t, 509, o.StatusCode)
}
