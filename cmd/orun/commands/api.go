package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/orunio/climate/backend/internal/api"
	"github.com/orunio/climate/backend/internal/api/handlers"
)

// apiCmd represents the api command
var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "API 서버 시작",
	Long: `REST API 서버를 시작합니다.

Endpoints:
  GET  /health                         - Health check
  GET  /api/regions                    - 지역 목록 (?kind=country|pilot)
  GET  /api/regions/{name}             - 지역 조회
  GET  /api/regions/{name}/profile     - 기후 프로파일 수집 (?sources=a,b&days=30)
  GET  /api/regions/{name}/latest      - 마지막 저장된 프로파일 (DB 필요)
  GET  /api/providers                  - 프로바이더/키 상태
  GET  /api/quota                      - 호출 한도 상태
  POST /api/index/summary              - 지수 시계열 요약
  POST /api/impact                     - 개입 효과 추정
  GET  /ws/aggregate/{name}            - 수집 진행 스트림 (WebSocket)

Example:
  go run ./cmd/orun api
  go run ./cmd/orun api --port 8080`,
	Args: cobra.NoArgs,
	RunE: runAPIServer,
}

var apiPort string

func init() {
	rootCmd.AddCommand(apiCmd)

	apiCmd.Flags().StringVar(&apiPort, "port", "", "API 서버 포트 (default: PORT)")
}

func runAPIServer(cmd *cobra.Command, args []string) error {
	fmt.Println("=== ORUN Climate API Server ===")

	ctx := cmd.Context()

	// 1. Wire config, logger, gateway, aggregator, optional DB
	a, err := newApp(ctx, appOptions{persistence: true})
	if err != nil {
		return err
	}
	defer a.close()

	if apiPort != "" {
		a.cfg.Port = apiPort
	}
	log := a.log

	log.WithFields(map[string]interface{}{
		"port":    a.cfg.Port,
		"env":     a.cfg.Env,
		"sources": len(a.agg.Names()),
		"db":      a.db != nil,
		"redis":   a.redis.Enabled(),
	}).Info("Initializing API server")

	// 2. Create handlers
	regionHandler := handlers.NewRegionHandler(a.table, a.agg, a.cache, a.latestStore(), log)
	h := api.Handlers{
		Regions:   regionHandler,
		Providers: handlers.NewProviderHandler(a.reg, a.tracker),
		Index:     handlers.NewIndexHandler(),
		Stream:    handlers.NewStreamHandler(regionHandler, log),
		DB:        a.db,
	}

	// 3. Create router and server
	server := api.New(a.cfg, log, api.NewRouter(h, log))

	// 4. Start server with graceful shutdown
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	log.Info("API server started successfully")
	fmt.Printf("\n✅ Server running on http://localhost:%s\n", a.cfg.Port)
	fmt.Println("\nPress Ctrl+C to stop")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
		return nil
	case <-quit:
	}

	fmt.Println("\nShutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	PrintSuccess("Server stopped gracefully")
	return nil
}
