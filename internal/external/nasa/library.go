package nasa

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/orunio/climate/backend/internal/contracts"
	"github.com/orunio/climate/backend/internal/gateway"
	"github.com/orunio/climate/backend/internal/registry"
)

// maxLibraryItems caps how many search hits are kept
const maxLibraryItems = 5

// LibraryItem is one NASA Image Library hit
type LibraryItem struct {
	NASAID      string `json:"nasa_id"`
	Title       string `json:"title"`
	DateCreated string `json:"date_created,omitempty"`
	Description string `json:"description,omitempty"`
	Preview     string `json:"preview,omitempty"`
}

// LibraryResult is the parsed search record
type LibraryResult struct {
	Query     string        `json:"query"`
	TotalHits int           `json:"total_hits"`
	Items     []LibraryItem `json:"items"`
}

// LibraryAdapter searches images-api.nasa.gov for region imagery
type LibraryAdapter struct {
	gw gateway.Caller
}

// NewLibraryAdapter creates the adapter
func NewLibraryAdapter(gw gateway.Caller) *LibraryAdapter {
	return &LibraryAdapter{gw: gw}
}

// Name returns the source name used in aggregate records
func (a *LibraryAdapter) Name() string { return "nasa_images" }

// Provider returns the registry provider backing this source
func (a *LibraryAdapter) Provider() string { return registry.NASAImages }

// Fetch implements the source contract
func (a *LibraryAdapter) Fetch(ctx context.Context, q contracts.Query) contracts.Outcome {
	term := strings.TrimSpace(q.Region.Name + " satellite climate")

	params := url.Values{}
	params.Set("q", term)
	params.Set("media_type", "image")

	o := a.gw.Call(ctx, gateway.Request{
		Provider: registry.NASAImages,
		Endpoint: "search",
		Params:   params,
	})
	if !o.OK() {
		return o
	}

	result, err := ParseLibrary(o.Payload)
	if err != nil {
		return gateway.Malformed(o, err)
	}
	result.Query = term
	return o.WithData(result)
}

// ParseLibrary keeps the hit count and the first few items
func ParseLibrary(payload []byte) (LibraryResult, error) {
	var raw struct {
		Collection struct {
			Metadata struct {
				TotalHits int `json:"total_hits"`
			} `json:"metadata"`
			Items []struct {
				Data []struct {
					NASAID      string `json:"nasa_id"`
					Title       string `json:"title"`
					DateCreated string `json:"date_created"`
					Description string `json:"description"`
				} `json:"data"`
				Links []struct {
					Href string `json:"href"`
					Rel  string `json:"rel"`
				} `json:"links"`
			} `json:"items"`
		} `json:"collection"`
	}
	if err := decodeJSON(payload, &raw); err != nil {
		return LibraryResult{}, err
	}

	result := LibraryResult{
		TotalHits: raw.Collection.Metadata.TotalHits,
		Items:     []LibraryItem{},
	}
	for _, it := range raw.Collection.Items {
		if len(result.Items) == maxLibraryItems {
			break
		}
		if len(it.Data) == 0 {
			continue
		}
		item := LibraryItem{
			NASAID:      it.Data[0].NASAID,
			Title:       it.Data[0].Title,
			DateCreated: it.Data[0].DateCreated,
			Description: it.Data[0].Description,
		}
		for _, l := range it.Links {
			if l.Rel == "preview" || item.Preview == "" {
				item.Preview = l.Href
			}
		}
		result.Items = append(result.Items, item)
	}
	return result, nil
}

func decodeJSON(payload []byte, v interface{}) error {
	if len(payload) == 0 {
		return fmt.Errorf("empty payload")
	}
	return json.Unmarshal(payload, v)
}
