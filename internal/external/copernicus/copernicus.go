// Package copernicus adapts the Copernicus Data Space STAC catalogue.
package copernicus

import (
	"context"
	"net/http"
	"time"

	"github.com/orunio/climate/backend/internal/contracts"
	"github.com/orunio/climate/backend/internal/external/stac"
	"github.com/orunio/climate/backend/internal/gateway"
	"github.com/orunio/climate/backend/internal/registry"
)

// Product filter defaults
const (
	DefaultCollection  = "SENTINEL-2"
	DefaultProductType = "S2MSI2A"
	DefaultMargin      = 0.1
	DefaultLimit       = 20
)

// Adapter searches Sentinel products covering a site
type Adapter struct {
	gw          gateway.Caller
	Collection  string
	ProductType string
	Margin      float64
	Limit       int
}

// NewAdapter creates the adapter with defaults
func NewAdapter(gw gateway.Caller) *Adapter {
	return &Adapter{
		gw:          gw,
		Collection:  DefaultCollection,
		ProductType: DefaultProductType,
		Margin:      DefaultMargin,
		Limit:       DefaultLimit,
	}
}

// Name returns the source name used in aggregate records
func (a *Adapter) Name() string { return registry.Copernicus }

// Provider returns the registry provider backing this source
func (a *Adapter) Provider() string { return registry.Copernicus }

// Fetch implements the source contract
func (a *Adapter) Fetch(ctx context.Context, q contracts.Query) contracts.Outcome {
	r := q.Range
	if r.IsZero() {
		r = contracts.TrailingDays(time.Now(), 30)
	}

	body := stac.SearchRequest{
		BBox:        q.Region.Point.BBox(a.Margin),
		Datetime:    stac.Interval(r),
		Collections: []string{a.Collection},
		Limit:       a.Limit,
		FilterLang:  "cql2-json",
		Filter: map[string]interface{}{
			"op": "=",
			"args": []interface{}{
				map[string]string{"property": "productType"},
				a.ProductType,
			},
		},
	}

	o := a.gw.Call(ctx, gateway.Request{
		Provider: registry.Copernicus,
		Endpoint: "search",
		Method:   http.MethodPost,
		Body:     body,
	})
	if !o.OK() {
		return o
	}

	scenes, err := stac.Parse(o.Payload)
	if err != nil {
		return gateway.Malformed(o, err)
	}
	return o.WithData(scenes)
}
