// Package stac holds the STAC item-search request and response shapes
// shared by the Sentinel Hub and Copernicus catalogs.
package stac

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/orunio/climate/backend/internal/contracts"
)

// SearchRequest is a STAC /search body
type SearchRequest struct {
	BBox        [4]float64             `json:"bbox"`
	Datetime    string                 `json:"datetime"`
	Collections []string               `json:"collections,omitempty"`
	Limit       int                    `json:"limit,omitempty"`
	Filter      map[string]interface{} `json:"filter,omitempty"`
	FilterLang  string                 `json:"filter-lang,omitempty"`
	Query       map[string]interface{} `json:"query,omitempty"`
}

// Interval formats a date range as a STAC datetime interval
func Interval(r contracts.DateRange) string {
	return r.From.UTC().Format("2006-01-02T00:00:00Z") + "/" + r.To.UTC().Format("2006-01-02T23:59:59Z")
}

// Scene is one catalog item reduced to what reports need
type Scene struct {
	ID          string    `json:"id"`
	Collection  string    `json:"collection,omitempty"`
	Datetime    time.Time `json:"datetime"`
	CloudCover  *float64  `json:"cloud_cover,omitempty"`
	ProductType string    `json:"product_type,omitempty"`
	Platform    string    `json:"platform,omitempty"`
}

// SceneList is the parsed catalog search record
type SceneList struct {
	Matched        int      `json:"matched"` // server-reported total when given
	Returned       int      `json:"returned"`
	Scenes         []Scene  `json:"scenes"`
	LeastCloudy    *Scene   `json:"least_cloudy,omitempty"`
	MeanCloudCover *float64 `json:"mean_cloud_cover,omitempty"`
}

type featureCollection struct {
	Features []struct {
		ID         string `json:"id"`
		Collection string `json:"collection"`
		Properties struct {
			Datetime    string   `json:"datetime"`
			CloudCover  *float64 `json:"eo:cloud_cover"`
			ProductType string   `json:"productType"`
			Platform    string   `json:"platform"`
		} `json:"properties"`
	} `json:"features"`
	Context *struct {
		Returned int `json:"returned"`
		Matched  int `json:"matched"`
	} `json:"context"`
	NumberMatched  *int `json:"numberMatched"`
	NumberReturned *int `json:"numberReturned"`
}

// Parse decodes a STAC FeatureCollection; scenes are sorted by datetime
func Parse(payload []byte) (SceneList, error) {
	var fc featureCollection
	if err := json.Unmarshal(payload, &fc); err != nil {
		return SceneList{}, fmt.Errorf("decode feature collection: %w", err)
	}

	list := SceneList{Scenes: make([]Scene, 0, len(fc.Features))}
	var cloudSum float64
	var cloudN int
	for _, f := range fc.Features {
		s := Scene{
			ID:          f.ID,
			Collection:  f.Collection,
			CloudCover:  f.Properties.CloudCover,
			ProductType: f.Properties.ProductType,
			Platform:    f.Properties.Platform,
		}
		if ts, err := time.Parse(time.RFC3339, f.Properties.Datetime); err == nil {
			s.Datetime = ts
		}
		if s.CloudCover != nil {
			cloudSum += *s.CloudCover
			cloudN++
		}
		list.Scenes = append(list.Scenes, s)
	}
	sort.SliceStable(list.Scenes, func(i, j int) bool {
		return list.Scenes[i].Datetime.Before(list.Scenes[j].Datetime)
	})

	for i := range list.Scenes {
		s := list.Scenes[i]
		if s.CloudCover == nil {
			continue
		}
		if list.LeastCloudy == nil || *s.CloudCover < *list.LeastCloudy.CloudCover {
			list.LeastCloudy = &s
		}
	}
	if cloudN > 0 {
		m := cloudSum / float64(cloudN)
		list.MeanCloudCover = &m
	}

	list.Returned = len(list.Scenes)
	switch {
	case fc.Context != nil:
		list.Matched = fc.Context.Matched
	case fc.NumberMatched != nil:
		list.Matched = *fc.NumberMatched
	default:
		list.Matched = list.Returned
	}
	return list, nil
}
