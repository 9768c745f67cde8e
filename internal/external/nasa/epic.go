package nasa

import (
	"context"

	"github.com/orunio/climate/backend/internal/contracts"
	"github.com/orunio/climate/backend/internal/gateway"
	"github.com/orunio/climate/backend/internal/registry"
)

// EPICImage is one full-disc capture
type EPICImage struct {
	Identifier string             `json:"identifier"`
	Caption    string             `json:"caption,omitempty"`
	Image      string             `json:"image"`
	Date       string             `json:"date"`
	Centroid   contracts.GeoPoint `json:"centroid"`
}

// EPICSummary is the parsed EPIC record
type EPICSummary struct {
	Count  int        `json:"count"`
	Latest *EPICImage `json:"latest,omitempty"`
}

// EPICAdapter fetches the most recent natural-colour EPIC images.
// The response is global; the region only labels the record.
type EPICAdapter struct {
	gw gateway.Caller
}

// NewEPICAdapter creates the adapter
func NewEPICAdapter(gw gateway.Caller) *EPICAdapter {
	return &EPICAdapter{gw: gw}
}

// Name returns the source name used in aggregate records
func (a *EPICAdapter) Name() string { return "nasa_epic" }

// Provider returns the registry provider backing this source
func (a *EPICAdapter) Provider() string { return registry.NASA }

// Fetch implements the source contract
func (a *EPICAdapter) Fetch(ctx context.Context, _ contracts.Query) contracts.Outcome {
	o := a.gw.Call(ctx, gateway.Request{
		Provider: registry.NASA,
		Endpoint: "epic_natural",
	})
	if !o.OK() {
		return o
	}

	summary, err := ParseEPIC(o.Payload)
	if err != nil {
		return gateway.Malformed(o, err)
	}
	return o.WithData(summary)
}

type epicItem struct {
	Identifier string `json:"identifier"`
	Caption    string `json:"caption"`
	Image      string `json:"image"`
	Date       string `json:"date"`
	Centroid   struct {
		Lat float64 `json:"lat"`
		Lon float64 `json:"lon"`
	} `json:"centroid_coordinates"`
}

// ParseEPIC reduces the EPIC image list to a count and the latest capture.
// Dates are "YYYY-MM-DD hh:mm:ss" and compare lexically.
func ParseEPIC(payload []byte) (EPICSummary, error) {
	var items []epicItem
	if err := decodeJSON(payload, &items); err != nil {
		return EPICSummary{}, err
	}

	summary := EPICSummary{Count: len(items)}
	for i := range items {
		it := items[i]
		if summary.Latest != nil && it.Date <= summary.Latest.Date {
			continue
		}
		summary.Latest = &EPICImage{
			Identifier: it.Identifier,
			Caption:    it.Caption,
			Image:      it.Image,
			Date:       it.Date,
			Centroid:   contracts.GeoPoint{Lat: it.Centroid.Lat, Lon: it.Centroid.Lon},
		}
	}
	return summary, nil
}
