package database_test

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/orunio/climate/backend/pkg/config"
	"github.com/orunio/climate/backend/pkg/database"
)

// Example connects when DATABASE_URL is set and reports pool health
func Example() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	db, err := database.New(ctx, cfg.Database)
	if errors.Is(err, database.ErrDisabled) {
		fmt.Println("running without a database")
		return
	}
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	status, err := db.HealthCheck(ctx)
	if err != nil {
		log.Fatalf("Health check failed: %v", err)
	}

	fmt.Printf("Database is healthy: %v\n", status.Healthy)
	fmt.Printf("Max connections: %d\n", status.Stats.MaxConns)
}
