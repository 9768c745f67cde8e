// Package registry is the static catalog of external data providers.
package registry

import (
	"fmt"
	"sort"

	"github.com/orunio/climate/backend/pkg/config"
)

// Provider names
const (
	NASA        = "nasa"
	NASAPower   = "nasa_power"
	NASAImages  = "nasa_images"
	WorldBank   = "world_bank"
	OSM         = "openstreetmap"
	SentinelHub = "sentinel_hub"
	Copernicus  = "copernicus"
	NOAA        = "noaa"
)

// AuthStyle is how a provider expects its key
type AuthStyle string

const (
	AuthNone   AuthStyle = "none"
	AuthQuery  AuthStyle = "query"  // ?api_key=...
	AuthHeader AuthStyle = "header" // custom header (NOAA "token")
	AuthBearer AuthStyle = "bearer" // Authorization: Bearer ...
)

// ProviderConfig is one provider's immutable catalog entry
// ⭐ SSOT: 프로바이더 URL/엔드포인트/인증 방식은 여기서만 정의
type ProviderConfig struct {
	Name        string
	BaseURL     string
	Endpoints   map[string]string // endpoint name -> path (may hold {placeholders})
	APIKey      string            // empty is a valid, expected state
	KeyRequired bool
	Auth        AuthStyle
	AuthParam   string // query parameter or header name
	// DefaultQuota seeds the quota tracker; 0 means untracked
	DefaultQuota int
}

// HasKey reports whether a credential is configured
func (p ProviderConfig) HasKey() bool {
	return p.APIKey != ""
}

// Endpoint returns the path registered under name
func (p ProviderConfig) Endpoint(name string) (string, bool) {
	path, ok := p.Endpoints[name]
	return path, ok
}

// EndpointNames returns the sorted endpoint names
func (p ProviderConfig) EndpointNames() []string {
	names := make([]string, 0, len(p.Endpoints))
	for n := range p.Endpoints {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Registry holds all provider configs, created once at startup
type Registry struct {
	providers map[string]ProviderConfig
}

// New builds a registry from explicit provider configs
func New(providers ...ProviderConfig) *Registry {
	r := &Registry{providers: make(map[string]ProviderConfig, len(providers))}
	for _, p := range providers {
		r.providers[p.Name] = p
	}
	return r
}

// FromConfig builds the standard provider catalog from application config
func FromConfig(cfg *config.Config) *Registry {
	p := cfg.Providers
	return New(
		ProviderConfig{
			Name:    NASA,
			BaseURL: p.NASA.BaseURL,
			Endpoints: map[string]string{
				"earth_imagery": "/planetary/earth/imagery",
				"earth_assets":  "/planetary/earth/assets",
				"epic_natural":  "/EPIC/api/natural",
				"epic_date":     "/EPIC/api/natural/date/{date}",
			},
			APIKey:       p.NASA.APIKey,
			KeyRequired:  true,
			Auth:         AuthQuery,
			AuthParam:    "api_key",
			DefaultQuota: 1000,
		},
		ProviderConfig{
			Name:    NASAPower,
			BaseURL: p.NASAPower.BaseURL,
			Endpoints: map[string]string{
				"daily_point": "/temporal/daily/point",
			},
			Auth: AuthNone,
		},
		ProviderConfig{
			Name:    NASAImages,
			BaseURL: p.NASAImages.BaseURL,
			Endpoints: map[string]string{
				"search": "/search",
			},
			Auth: AuthNone,
		},
		ProviderConfig{
			Name:    WorldBank,
			BaseURL: p.WorldBank.BaseURL,
			Endpoints: map[string]string{
				"indicator": "/country/{country}/indicator/{indicator}",
			},
			Auth: AuthNone,
		},
		ProviderConfig{
			Name:    OSM,
			BaseURL: p.OSM.BaseURL,
			Endpoints: map[string]string{
				"map": "/map",
			},
			Auth: AuthNone,
		},
		ProviderConfig{
			Name:    SentinelHub,
			BaseURL: p.SentinelHub.BaseURL,
			Endpoints: map[string]string{
				"process":    "/process",
				"statistics": "/statistics",
				"catalog":    "/catalog/1.0.0/search",
			},
			APIKey:      p.SentinelHub.APIKey,
			KeyRequired: true,
			Auth:        AuthBearer,
		},
		ProviderConfig{
			Name:    Copernicus,
			BaseURL: p.Copernicus.BaseURL,
			Endpoints: map[string]string{
				"search": "/search",
			},
			APIKey:      p.Copernicus.APIKey,
			KeyRequired: true,
			Auth:        AuthBearer,
		},
		ProviderConfig{
			Name:    NOAA,
			BaseURL: p.NOAA.BaseURL,
			Endpoints: map[string]string{
				"stations": "/stations",
				"data":     "/data",
				"datasets": "/datasets",
			},
			APIKey:       p.NOAA.APIKey,
			KeyRequired:  true,
			Auth:         AuthHeader,
			AuthParam:    "token",
			DefaultQuota: 10000, // per day
		},
	)
}

// Get returns the config for a provider
func (r *Registry) Get(name string) (ProviderConfig, bool) {
	p, ok := r.providers[name]
	return p, ok
}

// MustGet returns the config for a provider or panics (startup wiring only)
func (r *Registry) MustGet(name string) ProviderConfig {
	p, ok := r.providers[name]
	if !ok {
		panic(fmt.Sprintf("registry: unknown provider %q", name))
	}
	return p
}

// Names returns all provider names, sorted
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// All returns all provider configs sorted by name
func (r *Registry) All() []ProviderConfig {
	out := make([]ProviderConfig, 0, len(r.providers))
	for _, name := range r.Names() {
		out = append(out, r.providers[name])
	}
	return out
}

// MissingKeys returns the providers that need a key but have none
func (r *Registry) MissingKeys() []string {
	var missing []string
	for _, p := range r.All() {
		if p.KeyRequired && !p.HasKey() {
			missing = append(missing, p.Name)
		}
	}
	return missing
}
