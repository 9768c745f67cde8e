// Package gatewaytest provides a fake provider server and a gateway wired to it.
package gatewaytest

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/orunio/climate/backend/internal/gateway"
	"github.com/orunio/climate/backend/internal/quota"
	"github.com/orunio/climate/backend/internal/registry"
	"github.com/orunio/climate/backend/pkg/config"
	"github.com/orunio/climate/backend/pkg/httputil"
	"github.com/orunio/climate/backend/pkg/logger"
)

// Server is an httptest server that counts requests per path
type Server struct {
	*httptest.Server

	mu    sync.Mutex
	calls map[string]int
	total int
}

// NewServer starts a counting server; it is closed on test cleanup
func NewServer(t *testing.T, handler http.HandlerFunc) *Server {
	t.Helper()

	s := &Server{calls: make(map[string]int)}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.calls[r.URL.Path]++
		s.total++
		s.mu.Unlock()
		handler(w, r)
	}))
	t.Cleanup(s.Close)
	return s
}

// Calls returns the total number of requests served
func (s *Server) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.total
}

// CallsTo returns the number of requests for one path
func (s *Server) CallsTo(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[path]
}

// Keys maps provider name to API key for Config
type Keys map[string]string

// Config returns an application config pointing every provider at baseURL
func Config(baseURL string, keys Keys) *config.Config {
	ep := func(name string) config.ProviderEndpoint {
		return config.ProviderEndpoint{BaseURL: baseURL, APIKey: keys[name]}
	}
	return &config.Config{
		Env: "test",
		Providers: config.ProvidersConfig{
			NASA:        ep(registry.NASA),
			NASAPower:   ep(registry.NASAPower),
			NASAImages:  ep(registry.NASAImages),
			WorldBank:   ep(registry.WorldBank),
			OSM:         ep(registry.OSM),
			SentinelHub: ep(registry.SentinelHub),
			Copernicus:  ep(registry.Copernicus),
			NOAA:        ep(registry.NOAA),
		},
		Gateway: config.GatewayConfig{
			GetTimeout:  2 * time.Second,
			PostTimeout: 2 * time.Second,
		},
	}
}

// NewGateway returns a gateway whose providers all resolve to baseURL
func NewGateway(baseURL string, keys Keys) *gateway.Gateway {
	cfg := Config(baseURL, keys)
	return gateway.New(
		registry.FromConfig(cfg),
		quota.NewTracker(),
		httputil.New(logger.Nop()),
		logger.Nop(),
		cfg.Gateway,
	)
}
