// Package sentinel adapts the Sentinel Hub Catalog and Statistical APIs.
package sentinel

import (
	"context"
	"net/http"
	"time"

	"github.com/orunio/climate/backend/internal/contracts"
	"github.com/orunio/climate/backend/internal/external/stac"
	"github.com/orunio/climate/backend/internal/gateway"
	"github.com/orunio/climate/backend/internal/registry"
)

// Collection is the Sentinel-2 L2A (surface reflectance) collection id
const Collection = "sentinel-2-l2a"

// Defaults
const (
	DefaultMargin        = 0.1  // bbox padding, degrees
	DefaultMaxCloudCover = 20.0 // percent
	DefaultSearchLimit   = 50
	DefaultDays          = 30
)

// Adapter searches the Sentinel Hub catalog around a site
// ⭐ SSOT: Sentinel Hub 호출은 여기서만
type Adapter struct {
	gw            gateway.Caller
	Margin        float64
	MaxCloudCover float64
	Limit         int
}

// NewAdapter creates the adapter with defaults
func NewAdapter(gw gateway.Caller) *Adapter {
	return &Adapter{
		gw:            gw,
		Margin:        DefaultMargin,
		MaxCloudCover: DefaultMaxCloudCover,
		Limit:         DefaultSearchLimit,
	}
}

// Name returns the source name used in aggregate records
func (a *Adapter) Name() string { return registry.SentinelHub }

// Provider returns the registry provider backing this source
func (a *Adapter) Provider() string { return registry.SentinelHub }

// Fetch implements the source contract
func (a *Adapter) Fetch(ctx context.Context, q contracts.Query) contracts.Outcome {
	body := stac.SearchRequest{
		BBox:        q.Region.Point.BBox(a.Margin),
		Datetime:    stac.Interval(rangeOrDefault(q.Range)),
		Collections: []string{Collection},
		Limit:       a.Limit,
		FilterLang:  "cql2-json",
		Filter: map[string]interface{}{
			"op": "<=",
			"args": []interface{}{
				map[string]string{"property": "eo:cloud_cover"},
				a.MaxCloudCover,
			},
		},
	}

	o := a.gw.Call(ctx, gateway.Request{
		Provider: registry.SentinelHub,
		Endpoint: "catalog",
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

func rangeOrDefault(r contracts.DateRange) contracts.DateRange {
	if r.IsZero() {
		return contracts.TrailingDays(time.Now(), DefaultDays)
	}
	return r
}
