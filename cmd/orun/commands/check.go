package commands

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/orunio/climate/backend/internal/registry"
	"github.com/orunio/climate/backend/internal/sink"
	"github.com/orunio/climate/backend/pkg/config"
	"github.com/orunio/climate/backend/pkg/database"
	"github.com/orunio/climate/backend/pkg/logger"
	"github.com/orunio/climate/backend/pkg/redis"
)

// checkCmd represents the check command
var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "설정 및 인프라 연결 점검",
	Long: `설정을 로드하고 선택적 인프라(PostgreSQL, Redis, Kafka/InfluxDB)의
연결 상태와 프로바이더 키 설정 여부를 점검합니다.

설정되지 않은 구성요소는 건너뜁니다. 수집 코어는 어느 것도 필요로 하지 않습니다.

Example:
  go run ./cmd/orun check
  go run ./cmd/orun check --env production`,
	Args: cobra.NoArgs,
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	fmt.Println("=== ORUN Configuration Check ===")

	fmt.Println("Loading configuration...")
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("❌ Failed to load config: %w", err)
	}
	if env != "" {
		cfg.Env = env
	}
	PrintSuccess(fmt.Sprintf("Config loaded (ENV: %s, LOG_LEVEL: %s)", cfg.Env, cfg.LogLevel))

	log := logger.New(cfg)
	log.WithField("check", "logger").Debug("Logger initialized")

	ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
	defer cancel()

	var failed []string

	// Providers
	fmt.Println()
	reg := registry.FromConfig(cfg)
	for _, p := range reg.All() {
		switch {
		case !p.KeyRequired:
			PrintKeyValue(p.Name, "no key needed", 14)
		case p.HasKey():
			PrintKeyValue(p.Name, "✅ key configured", 14)
		default:
			PrintKeyValue(p.Name, "⏭  no key (source will be skipped)", 14)
		}
	}

	// Database
	fmt.Println()
	if err := checkDatabase(ctx, cfg); err != nil {
		PrintError(err.Error())
		failed = append(failed, "database")
	}

	// Redis
	if err := checkRedis(ctx, cfg); err != nil {
		PrintError(err.Error())
		failed = append(failed, "redis")
	}

	// Sinks
	sinks := sink.FromConfig(cfg, log)
	if sinks.Len() == 0 {
		PrintInfo("Sinks: none enabled (KAFKA_ENABLED / INFLUX_ENABLED)")
	} else {
		PrintSuccess(fmt.Sprintf("Sinks: %d enabled", sinks.Len()))
	}
	_ = sinks.Close()

	fmt.Println()
	if len(failed) > 0 {
		return fmt.Errorf("checks failed: %s", strings.Join(failed, ", "))
	}
	PrintSuccess("All checks passed!")
	return nil
}

func checkDatabase(ctx context.Context, cfg *config.Config) error {
	db, err := database.New(ctx, cfg.Database)
	if errors.Is(err, database.ErrDisabled) {
		PrintInfo("Database: DATABASE_URL not set, skipping")
		return nil
	}
	if err != nil {
		return fmt.Errorf("database (%s): %w", redactURL(cfg.Database.URL), err)
	}
	defer db.Close()

	status, err := db.HealthCheck(ctx)
	if err != nil {
		return fmt.Errorf("database health check: %w", err)
	}

	PrintSuccess(fmt.Sprintf("Database: %s (%v)", redactURL(cfg.Database.URL), status.ResponseTime))
	PrintKeyValue("Max Connections", fmt.Sprintf("%d", status.Stats.MaxConns), 20)
	PrintKeyValue("Total Connections", fmt.Sprintf("%d", status.Stats.TotalConns), 20)
	PrintKeyValue("Idle Connections", fmt.Sprintf("%d", status.Stats.IdleConns), 20)
	return nil
}

func checkRedis(ctx context.Context, cfg *config.Config) error {
	if !cfg.Redis.Enabled {
		PrintInfo("Redis: REDIS_ENABLED=false, skipping")
		return nil
	}

	rc, err := redis.New(cfg)
	if err != nil {
		return fmt.Errorf("redis %s:%s: %w", cfg.Redis.Host, cfg.Redis.Port, err)
	}
	defer rc.Close()

	if err := rc.Ping(ctx); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	PrintSuccess(fmt.Sprintf("Redis: %s:%s", cfg.Redis.Host, cfg.Redis.Port))
	return nil
}

// redactURL hides the password of a connection URL for display
func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "(unparseable URL)"
	}
	return u.Redacted()
}
