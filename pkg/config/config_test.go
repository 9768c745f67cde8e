package config

import (
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	t.Setenv("ENV", "development")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Env != "development" {
		t.Errorf("Expected Env to be development, got %s", cfg.Env)
	}

	if cfg.Gateway.GetTimeout != 10*time.Second {
		t.Errorf("Expected GET timeout 10s, got %v", cfg.Gateway.GetTimeout)
	}

	if cfg.Gateway.PostTimeout != 30*time.Second {
		t.Errorf("Expected POST timeout 30s, got %v", cfg.Gateway.PostTimeout)
	}

	if cfg.Aggregator.Concurrency != 1 {
		t.Errorf("Expected sequential aggregation by default, got %d", cfg.Aggregator.Concurrency)
	}
}

func TestLoadWithCustomValues(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("ENV", "production")
	t.Setenv("NOAA_API_KEY", "noaa-token")
	t.Setenv("GATEWAY_GET_TIMEOUT", "3s")
	t.Setenv("AGGREGATOR_CONCURRENCY", "4")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Port != "9000" {
		t.Errorf("Expected Port to be 9000, got %s", cfg.Port)
	}

	if cfg.Providers.NOAA.APIKey != "noaa-token" {
		t.Errorf("Expected NOAA key to be loaded, got %q", cfg.Providers.NOAA.APIKey)
	}

	if cfg.Gateway.GetTimeout != 3*time.Second {
		t.Errorf("Expected GET timeout 3s, got %v", cfg.Gateway.GetTimeout)
	}

	if cfg.Aggregator.Concurrency != 4 {
		t.Errorf("Expected concurrency 4, got %d", cfg.Aggregator.Concurrency)
	}

	if len(cfg.Kafka.Brokers) != 2 || cfg.Kafka.Brokers[1] != "k2:9092" {
		t.Errorf("Expected 2 trimmed brokers, got %v", cfg.Kafka.Brokers)
	}
}

func TestMissingKeysAreNotAnError(t *testing.T) {
	t.Setenv("ENV", "test")
	t.Setenv("NASA_API_KEY", "")
	t.Setenv("SENTINEL_HUB_API_KEY", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Providers.SentinelHub.APIKey != "" {
		t.Errorf("Expected empty Sentinel Hub key, got %q", cfg.Providers.SentinelHub.APIKey)
	}
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			Env:        "test",
			Gateway:    GatewayConfig{GetTimeout: time.Second, PostTimeout: time.Second},
			Aggregator: AggregatorConfig{Concurrency: 1, DaysBack: 30},
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"unknown env", func(c *Config) { c.Env = "qa" }, true},
		{"zero timeout", func(c *Config) { c.Gateway.GetTimeout = 0 }, true},
		{"zero concurrency", func(c *Config) { c.Aggregator.Concurrency = 0 }, true},
		{"zero days back", func(c *Config) { c.Aggregator.DaysBack = 0 }, true},
		{"influx without token", func(c *Config) { c.Influx.Enabled = true }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)
			err := cfg.validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestGetEnvAsDuration(t *testing.T) {
	t.Setenv("TEST_DURATION", "not-a-duration")

	if got := getEnvAsDuration("TEST_DURATION", "5s"); got != 5*time.Second {
		t.Errorf("Expected fallback to default 5s, got %v", got)
	}
}
