// This is the main entry point for the changelist CLI.
// Build with: go build -o bin/changelist ./cmd/changelist
// Usage: changelist --db catalog.db <command> [options]
package main

import (
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
