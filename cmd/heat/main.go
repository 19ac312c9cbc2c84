package main

import (
	"os"

	"github.com/silverpulse/heat/cmd/heat/commands"
)

// main is the entry point for the heat CLI
// ⭐ 통합 CLI 진입점: go run ./cmd/heat [command]
func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
