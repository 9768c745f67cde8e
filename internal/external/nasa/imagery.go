// Package nasa adapts api.nasa.gov (Earth imagery, EPIC) and the NASA Image Library.
package nasa

import (
	"context"
	"net/url"
	"strconv"
	"time"

	"github.com/orunio/climate/backend/internal/contracts"
	"github.com/orunio/climate/backend/internal/gateway"
	"github.com/orunio/climate/backend/internal/registry"
)

// DefaultDim is the imagery tile width in degrees
const DefaultDim = 0.15

// Imagery is the parsed Earth assets record
type Imagery struct {
	URL  string  `json:"url,omitempty"`
	Date string  `json:"date,omitempty"`
	ID   string  `json:"id,omitempty"`
	Dim  float64 `json:"dim"`
}

// ImageryAdapter fetches the Landsat/Sentinel asset closest to a date
// ⭐ SSOT: NASA Earth imagery 호출은 여기서만
type ImageryAdapter struct {
	gw  gateway.Caller
	Dim float64
}

// NewImageryAdapter creates the adapter with DefaultDim
func NewImageryAdapter(gw gateway.Caller) *ImageryAdapter {
	return &ImageryAdapter{gw: gw, Dim: DefaultDim}
}

// Name returns the source name used in aggregate records
func (a *ImageryAdapter) Name() string { return "nasa_imagery" }

// Provider returns the registry provider backing this source
func (a *ImageryAdapter) Provider() string { return registry.NASA }

// Fetch implements the source contract
func (a *ImageryAdapter) Fetch(ctx context.Context, q contracts.Query) contracts.Outcome {
	date := q.Range.To
	if date.IsZero() {
		date = time.Now().UTC()
	}

	params := url.Values{}
	params.Set("lat", formatCoord(q.Region.Point.Lat))
	params.Set("lon", formatCoord(q.Region.Point.Lon))
	params.Set("date", date.Format("2006-01-02"))
	params.Set("dim", strconv.FormatFloat(a.Dim, 'f', -1, 64))

	o := a.gw.Call(ctx, gateway.Request{
		Provider: registry.NASA,
		Endpoint: "earth_assets",
		Params:   params,
		Heavy:    true,
	})
	if !o.OK() {
		return o
	}

	var raw struct {
		Date string `json:"date"`
		ID   string `json:"id"`
		URL  string `json:"url"`
	}
	if err := o.Decode(&raw); err != nil {
		return gateway.Malformed(o, err)
	}

	return o.WithData(Imagery{URL: raw.URL, Date: raw.Date, ID: raw.ID, Dim: a.Dim})
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', 4, 64)
}
