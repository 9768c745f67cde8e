package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
// ⭐ SSOT: 모든 환경변수는 여기서만 읽음
type Config struct {
	// Server
	Port string
	Env  string // development, staging, production, test

	// Database (optional, the aggregation core runs without it)
	Database DatabaseConfig

	// Redis
	Redis RedisConfig

	// External data providers
	Providers ProvidersConfig

	// Gateway timeouts
	Gateway GatewayConfig

	// Aggregation
	Aggregator AggregatorConfig

	// Scheduler
	RefreshSchedule string

	// Sinks
	Kafka  KafkaConfig
	Influx InfluxConfig

	// Logging
	LogLevel  string
	LogFormat string
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Enabled  bool
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	URL string

	// Connection Pool
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// Enabled reports whether a database URL was configured
func (d DatabaseConfig) Enabled() bool {
	return d.URL != ""
}

// ProviderEndpoint holds base URL and credential for one provider.
// An empty APIKey is a valid state.
type ProviderEndpoint struct {
	BaseURL string
	APIKey  string
}

// ProvidersConfig holds per-provider endpoints and keys
type ProvidersConfig struct {
	NASA        ProviderEndpoint // api.nasa.gov (imagery, EPIC)
	NASAPower   ProviderEndpoint
	NASAImages  ProviderEndpoint
	WorldBank   ProviderEndpoint
	OSM         ProviderEndpoint
	SentinelHub ProviderEndpoint
	Copernicus  ProviderEndpoint
	NOAA        ProviderEndpoint
}

// GatewayConfig holds outbound request timeouts
type GatewayConfig struct {
	GetTimeout  time.Duration // lightweight GET
	PostTimeout time.Duration // POST / imagery
}

// AggregatorConfig holds aggregation run settings
type AggregatorConfig struct {
	InterCallDelay time.Duration // same provider, across regions
	Concurrency    int           // sources per region in flight
	RegionsFile    string        // optional YAML override of the region table
	DaysBack       int
}

// KafkaConfig holds the aggregate-record publisher settings
type KafkaConfig struct {
	Brokers []string
	Topic   string
	Enabled bool
}

// InfluxConfig holds the index time-series writer settings
type InfluxConfig struct {
	URL     string
	Token   string
	Org     string
	Bucket  string
	Enabled bool
}

// Load reads configuration from environment variables
// ⭐ SSOT: 이 함수만 os.Getenv()를 호출함
func Load() (*Config, error) {
	// Try multiple paths for .env file
	loadEnvFile()

	cfg := &Config{
		// Server
		Port: getEnv("PORT", "8089"),
		Env:  getEnv("ENV", "development"),

		// Database
		Database: DatabaseConfig{
			URL:             getEnv("DATABASE_URL", ""),
			MaxConns:        getEnvAsInt("DB_MAX_CONNS", 10),
			MinConns:        getEnvAsInt("DB_MIN_CONNS", 2),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", "1h"),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", "30m"),
		},

		// Redis
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),
		},

		Providers: ProvidersConfig{
			NASA: ProviderEndpoint{
				BaseURL: getEnv("NASA_BASE_URL", "https://api.nasa.gov"),
				APIKey:  getEnv("NASA_API_KEY", ""),
			},
			NASAPower: ProviderEndpoint{
				BaseURL: getEnv("NASA_POWER_BASE_URL", "https://power.larc.nasa.gov/api"),
			},
			NASAImages: ProviderEndpoint{
				BaseURL: getEnv("NASA_IMAGES_BASE_URL", "https://images-api.nasa.gov"),
			},
			WorldBank: ProviderEndpoint{
				BaseURL: getEnv("WORLD_BANK_BASE_URL", "https://api.worldbank.org/v2"),
			},
			OSM: ProviderEndpoint{
				BaseURL: getEnv("OSM_BASE_URL", "https://api.openstreetmap.org/api/0.6"),
			},
			SentinelHub: ProviderEndpoint{
				BaseURL: getEnv("SENTINEL_HUB_BASE_URL", "https://services.sentinel-hub.com/api/v1"),
				APIKey:  getEnv("SENTINEL_HUB_API_KEY", ""),
			},
			Copernicus: ProviderEndpoint{
				BaseURL: getEnv("COPERNICUS_BASE_URL", "https://catalogue.dataspace.copernicus.eu/stac"),
				APIKey:  getEnv("COPERNICUS_API_KEY", ""),
			},
			NOAA: ProviderEndpoint{
				BaseURL: getEnv("NOAA_BASE_URL", "https://www.ncei.noaa.gov/cdo-web/api/v2"),
				APIKey:  getEnv("NOAA_API_KEY", ""),
			},
		},

		Gateway: GatewayConfig{
			GetTimeout:  getEnvAsDuration("GATEWAY_GET_TIMEOUT", "10s"),
			PostTimeout: getEnvAsDuration("GATEWAY_POST_TIMEOUT", "30s"),
		},

		Aggregator: AggregatorConfig{
			InterCallDelay: getEnvAsDuration("AGGREGATOR_INTER_CALL_DELAY", "500ms"),
			Concurrency:    getEnvAsInt("AGGREGATOR_CONCURRENCY", 1),
			RegionsFile:    getEnv("REGIONS_FILE", ""),
			DaysBack:       getEnvAsInt("AGGREGATOR_DAYS_BACK", 30),
		},

		RefreshSchedule: getEnv("REFRESH_SCHEDULE", "0 0 6 * * *"),

		Kafka: KafkaConfig{
			Brokers: getEnvAsList("KAFKA_BROKERS", "localhost:9092"),
			Topic:   getEnv("KAFKA_TOPIC", "orun.aggregate-records"),
			Enabled: getEnvAsBool("KAFKA_ENABLED", false),
		},

		Influx: InfluxConfig{
			URL:     getEnv("INFLUX_URL", "http://localhost:8086"),
			Token:   getEnv("INFLUX_TOKEN", ""),
			Org:     getEnv("INFLUX_ORG", "orun"),
			Bucket:  getEnv("INFLUX_BUCKET", "satellite_indices"),
			Enabled: getEnvAsBool("INFLUX_ENABLED", false),
		},

		// Logging
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "console"),
	}

	// Validate configuration
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// validate checks if configuration values are usable
func (c *Config) validate() error {
	switch c.Env {
	case "development", "staging", "production", "test":
	default:
		return fmt.Errorf("ENV must be one of: development, staging, production, test")
	}

	if c.Gateway.GetTimeout <= 0 || c.Gateway.PostTimeout <= 0 {
		return fmt.Errorf("gateway timeouts must be positive")
	}

	if c.Aggregator.Concurrency < 1 {
		return fmt.Errorf("AGGREGATOR_CONCURRENCY must be >= 1")
	}

	if c.Aggregator.DaysBack < 1 {
		return fmt.Errorf("AGGREGATOR_DAYS_BACK must be >= 1")
	}

	if c.Influx.Enabled && c.Influx.Token == "" {
		return fmt.Errorf("INFLUX_TOKEN is required when INFLUX_ENABLED=true")
	}

	return nil
}

// Helper functions (private, only used within this file)

// loadEnvFile tries to load .env from multiple locations
func loadEnvFile() {
	// Try paths in order of priority
	paths := []string{
		".env",         // Current directory
		"backend/.env", // From project root
	}

	// Also try relative to executable
	if exe, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exe)
		paths = append(paths,
			filepath.Join(exeDir, ".env"),
			filepath.Join(exeDir, "..", ".env"),
		)
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			return
		}
	}
}

func getEnv(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		valueStr = defaultValue
	}

	duration, err := time.ParseDuration(valueStr)
	if err != nil {
		// Fallback to default
		duration, _ = time.ParseDuration(defaultValue)
	}

	return duration
}

// getEnvAsList splits a comma separated value, dropping empty items
func getEnvAsList(key string, defaultValue string) []string {
	raw := getEnv(key, defaultValue)
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
