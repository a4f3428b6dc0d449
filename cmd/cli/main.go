// Package main is the entry point for the fe-catalog CLI.
package main

import (
	"os"

	"fe-catalog/cmd/cli/cmd"
	"fe-catalog/internal/logging"
)

func main() {
	err := cmd.Execute()
	// os.Exit skips deferred calls
	logging.Sync()
	if err != nil {
		os.Exit(1)
	}
}
