package handlers

import (
	"net/http"

	"github.com/orunio/climate/backend/internal/gateway"
	"github.com/orunio/climate/backend/internal/quota"
	"github.com/orunio/climate/backend/internal/registry"
)

// ProviderHandler exposes the registry and quota state
type ProviderHandler struct {
	registry *registry.Registry
	tracker  *quota.Tracker
}

// NewProviderHandler creates a new provider handler
func NewProviderHandler(reg *registry.Registry, tracker *quota.Tracker) *ProviderHandler {
	return &ProviderHandler{registry: reg, tracker: tracker}
}

// ProviderInfo is the public view of a provider; the key is masked
type ProviderInfo struct {
	Name         string                   `json:"name"`
	BaseURL      string                   `json:"base_url"`
	Endpoints    []string                 `json:"endpoints"`
	KeyRequired  bool                     `json:"key_required"`
	KeyPresent   bool                     `json:"key_present"`
	MaskedKey    string                   `json:"masked_key,omitempty"`
	DefaultQuota int                      `json:"default_quota,omitempty"`
	Instructions *registry.KeyInstruction `json:"instructions,omitempty"`
}

// Providers lists the registry
// GET /api/providers
func (h *ProviderHandler) Providers(w http.ResponseWriter, r *http.Request) {
	out := make([]ProviderInfo, 0)
	for _, p := range h.registry.All() {
		info := ProviderInfo{
			Name:         p.Name,
			BaseURL:      p.BaseURL,
			Endpoints:    p.EndpointNames(),
			KeyRequired:  p.KeyRequired,
			KeyPresent:   p.HasKey(),
			DefaultQuota: p.DefaultQuota,
		}
		if p.HasKey() {
			info.MaskedKey = gateway.MaskKey(p.APIKey)
		}
		if k, ok := registry.KeyInstructions(p.Name); ok && p.KeyRequired && !p.HasKey() {
			info.Instructions = &k
		}
		out = append(out, info)
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"providers": out,
		"missing":   h.registry.MissingKeys(),
	})
}

// Quota returns the tracker snapshot
// GET /api/quota
func (h *ProviderHandler) Quota(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"providers": h.tracker.Snapshot(),
	})
}
