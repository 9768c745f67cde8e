package registry

// KeyInstruction tells an operator how to obtain a provider credential
type KeyInstruction struct {
	Provider     string   `json:"provider"`
	EnvVar       string   `json:"env_var"`
	URL          string   `json:"url"`
	Instructions []string `json:"instructions"`
	FreeTier     string   `json:"free_tier"`
	UseCase      string   `json:"use_case"`
}

// keyInstructions covers every provider with KeyRequired set
var keyInstructions = map[string]KeyInstruction{
	NASA: {
		Provider: NASA,
		EnvVar:   "NASA_API_KEY",
		URL:      "https://api.nasa.gov/",
		Instructions: []string{
			"Fill in the sign-up form on api.nasa.gov",
			"The key is emailed immediately",
		},
		FreeTier: "1,000 requests per hour",
		UseCase:  "Earth imagery assets and EPIC full-disc imagery",
	},
	SentinelHub: {
		Provider: SentinelHub,
		EnvVar:   "SENTINEL_HUB_API_KEY",
		URL:      "https://www.sentinel-hub.com/",
		Instructions: []string{
			"Create a free trial account",
			"Create an OAuth client in the dashboard",
			"Exchange client credentials for an access token",
		},
		FreeTier: "30-day trial, limited processing units",
		UseCase:  "Sentinel-2 NDVI/NDWI/EVI statistics and catalog search",
	},
	Copernicus: {
		Provider: Copernicus,
		EnvVar:   "COPERNICUS_API_KEY",
		URL:      "https://dataspace.copernicus.eu/",
		Instructions: []string{
			"Register on the Copernicus Data Space Ecosystem",
			"Request an access token with your account credentials",
		},
		FreeTier: "Free and open access",
		UseCase:  "Sentinel product catalog search",
	},
	NOAA: {
		Provider: NOAA,
		EnvVar:   "NOAA_API_KEY",
		URL:      "https://www.ncdc.noaa.gov/cdo-web/token",
		Instructions: []string{
			"Submit your email address on the token page",
			"The token arrives by email",
		},
		FreeTier: "1,000 requests per day, 5 per second",
		UseCase:  "Daily station observations (GHCND) near a site",
	},
}

// KeyInstructions returns instructions for the given provider
func KeyInstructions(provider string) (KeyInstruction, bool) {
	k, ok := keyInstructions[provider]
	return k, ok
}

// MissingKeyInstructions returns instructions for every keyless provider that needs one
func (r *Registry) MissingKeyInstructions() []KeyInstruction {
	var out []KeyInstruction
	for _, name := range r.MissingKeys() {
		if k, ok := keyInstructions[name]; ok {
			out = append(out, k)
		}
	}
	return out
}
