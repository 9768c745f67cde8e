package main

import (
	"os"

	"github.com/orunio/climate/backend/cmd/orun/commands"
)

// main is the entry point for the ORUN CLI
// ⭐ 통합 CLI 진입점: go run ./cmd/orun [command]
func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
