package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orunio/climate/backend/pkg/config"
)

func testConfig() *config.Config {
	return &config.Config{
		Providers: config.ProvidersConfig{
			NASA:        config.ProviderEndpoint{BaseURL: "https://api.nasa.gov", APIKey: "nasa-key"},
			NASAPower:   config.ProviderEndpoint{BaseURL: "https://power.larc.nasa.gov/api"},
			NASAImages:  config.ProviderEndpoint{BaseURL: "https://images-api.nasa.gov"},
			WorldBank:   config.ProviderEndpoint{BaseURL: "https://api.worldbank.org/v2"},
			OSM:         config.ProviderEndpoint{BaseURL: "https://api.openstreetmap.org/api/0.6"},
			SentinelHub: config.ProviderEndpoint{BaseURL: "https://services.sentinel-hub.com/api/v1"},
			Copernicus:  config.ProviderEndpoint{BaseURL: "https://catalogue.dataspace.copernicus.eu/stac"},
			NOAA:        config.ProviderEndpoint{BaseURL: "https://www.ncei.noaa.gov/cdo-web/api/v2"},
		},
	}
}

func TestFromConfig(t *testing.T) {
	r := FromConfig(testConfig())

	assert.Equal(t, []string{
		Copernicus, NASA, NASAImages, NASAPower, NOAA, OSM, SentinelHub, WorldBank,
	}, r.Names())

	nasa := r.MustGet(NASA)
	assert.True(t, nasa.KeyRequired)
	assert.True(t, nasa.HasKey())
	assert.Equal(t, AuthQuery, nasa.Auth)
	assert.Equal(t, "api_key", nasa.AuthParam)

	noaa := r.MustGet(NOAA)
	assert.Equal(t, AuthHeader, noaa.Auth)
	assert.Equal(t, "token", noaa.AuthParam)

	path, ok := r.MustGet(WorldBank).Endpoint("indicator")
	require.True(t, ok)
	assert.Equal(t, "/country/{country}/indicator/{indicator}", path)

	_, ok = r.MustGet(OSM).Endpoint("nope")
	assert.False(t, ok)
}

func TestMissingKeys(t *testing.T) {
	r := FromConfig(testConfig())

	assert.Equal(t, []string{Copernicus, NOAA, SentinelHub}, r.MissingKeys())

	instructions := r.MissingKeyInstructions()
	require.Len(t, instructions, 3)
	for _, k := range instructions {
		assert.NotEmpty(t, k.URL)
		assert.NotEmpty(t, k.EnvVar)
	}
}

func TestKeyInstructionsCoverKeyedProviders(t *testing.T) {
	for _, p := range FromConfig(testConfig()).All() {
		if !p.KeyRequired {
			continue
		}
		_, ok := KeyInstructions(p.Name)
		assert.True(t, ok, "missing key instructions for %s", p.Name)
	}
}

func TestMustGetPanicsOnUnknown(t *testing.T) {
	assert.Panics(t, func() { New().MustGet("unknown") })
}
