// Package osm adapts the OpenStreetMap API 0.6 map call.
package osm

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/PuerkitoBio/goquery"

	"github.com/orunio/climate/backend/internal/contracts"
	"github.com/orunio/climate/backend/internal/gateway"
	"github.com/orunio/climate/backend/internal/registry"
)

// DefaultMargin pads the site point into a bbox (degrees); the API rejects large boxes
const DefaultMargin = 0.01

// featureKeys are the tag keys counted as climate-relevant features
var featureKeys = []string{"natural", "landuse", "waterway", "water", "highway", "building"}

// Coverage is the reduced OSM record; raw geometry is discarded
type Coverage struct {
	Available bool           `json:"available"`
	BBox      [4]float64     `json:"bbox"`
	Nodes     int            `json:"nodes"`
	Ways      int            `json:"ways"`
	Relations int            `json:"relations"`
	Features  map[string]int `json:"features"` // tag key -> element count
}

// Total returns the approximate feature count
func (c Coverage) Total() int {
	return c.Nodes + c.Ways + c.Relations
}

// Adapter fetches map data around a point
// ⭐ SSOT: OSM 호출은 여기서만
type Adapter struct {
	gw     gateway.Caller
	Margin float64
}

// NewAdapter creates the adapter with DefaultMargin
func NewAdapter(gw gateway.Caller) *Adapter {
	return &Adapter{gw: gw, Margin: DefaultMargin}
}

// Name returns the source name used in aggregate records
func (a *Adapter) Name() string { return registry.OSM }

// Provider returns the registry provider backing this source
func (a *Adapter) Provider() string { return registry.OSM }

// Fetch implements the source contract
func (a *Adapter) Fetch(ctx context.Context, q contracts.Query) contracts.Outcome {
	bbox := q.Region.Point.BBox(a.Margin)

	o := a.gw.Call(ctx, gateway.Request{
		Provider: registry.OSM,
		Endpoint: "map",
		Params:   url.Values{"bbox": {formatBBox(bbox)}},
		Header:   http.Header{"Accept": {"application/xml"}},
	})
	if !o.OK() {
		return o
	}

	cov, err := Parse(o.Payload)
	if err != nil {
		return gateway.Malformed(o, err)
	}
	cov.BBox = bbox
	o.Payload = nil
	return o.WithData(cov)
}

// Parse counts elements in an OSM XML document.
// Nesting produced by the lenient parser does not affect counts.
func Parse(payload []byte) (Coverage, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(payload))
	if err != nil {
		return Coverage{}, fmt.Errorf("parse osm document: %w", err)
	}
	if doc.Find("osm").Length() == 0 {
		return Coverage{}, fmt.Errorf("no <osm> root element")
	}

	cov := Coverage{
		Nodes:     doc.Find("node").Length(),
		Ways:      doc.Find("way").Length(),
		Relations: doc.Find("relation").Length(),
		Features:  make(map[string]int),
	}
	for _, key := range featureKeys {
		if n := doc.Find(fmt.Sprintf(`tag[k="%s"]`, key)).Length(); n > 0 {
			cov.Features[key] = n
		}
	}
	cov.Available = cov.Total() > 0
	return cov, nil
}

func formatBBox(b [4]float64) string {
	f := func(v float64) string { return strconv.FormatFloat(v, 'f', 6, 64) }
	return f(b[0]) + "," + f(b[1]) + "," + f(b[2]) + "," + f(b[3])
}
