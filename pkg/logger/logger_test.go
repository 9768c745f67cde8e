package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orunio/climate/backend/pkg/config"
)

func newBufferLogger(level string) (*Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	cfg := &config.Config{Env: "test", LogLevel: level, LogFormat: "json"}
	return NewWithWriter(cfg, &buf), &buf
}

func decode(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	return entry
}

func TestNewWithWriterLevel(t *testing.T) {
	tests := []struct {
		level string
		want  zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"info", zerolog.InfoLevel},
		{"warn", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			log, _ := newBufferLogger(tt.level)
			assert.Equal(t, tt.want, log.Level())
		})
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input string
		want  zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"DEBUG", zerolog.DebugLevel},
		{"warning", zerolog.WarnLevel},
		{"fatal", zerolog.FatalLevel},
		{"panic", zerolog.PanicLevel},
		{"invalid", zerolog.InfoLevel}, // Default
		{"", zerolog.InfoLevel},        // Default
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, parseLogLevel(tt.input))
		})
	}
}

func TestLevelFiltering(t *testing.T) {
	log, buf := newBufferLogger("warn")

	log.Info("dropped")
	assert.Zero(t, buf.Len())

	log.Warnf("quota low: %d left", 3)
	entry := decode(t, buf)
	assert.Equal(t, "warn", entry["level"])
	assert.Equal(t, "quota low: 3 left", entry["message"])
	assert.Equal(t, "test", entry["env"])
}

func TestProviderAndRegionFields(t *testing.T) {
	log, buf := newBufferLogger("debug")

	log.WithProvider("noaa").WithRegion("kenya").Debug("station lookup")

	entry := decode(t, buf)
	assert.Equal(t, "noaa", entry["provider"])
	assert.Equal(t, "kenya", entry["region"])
	assert.Equal(t, "station lookup", entry["message"])
}

func TestWithFields(t *testing.T) {
	log, buf := newBufferLogger("info")

	log.WithFields(map[string]interface{}{
		"status":    403,
		"attempted": true,
	}).Info("auth rejected")

	entry := decode(t, buf)
	assert.Equal(t, float64(403), entry["status"])
	assert.Equal(t, true, entry["attempted"])
}

func TestWithError(t *testing.T) {
	log, buf := newBufferLogger("info")

	log.WithError(errors.New("dial tcp: i/o timeout")).Error("request failed")

	entry := decode(t, buf)
	assert.Equal(t, "dial tcp: i/o timeout", entry["error"])
	assert.Equal(t, "error", entry["level"])
}

func TestNop(t *testing.T) {
	// must not panic or write anywhere
	log := Nop()
	log.WithProvider("nasa").Info("ignored")
	log.Errorf("ignored %d", 1)
}
