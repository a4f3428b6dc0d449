// Package main - Entry point for the Flexible Engine catalog server
package main

import (
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"fe-catalog/cmd/cli/cmd"
	"fe-catalog/internal/logging"
)

func main() {
	addr := flag.String("addr", "", "Server address (default from config)")
	cfgFile := flag.String("config", "", "Config file, JSON or YAML")
	flag.Parse()

	args := []string{"serve"}
	if *cfgFile != "" {
		args = append([]string{"--config", *cfgFile}, args...)
	}
	if *addr != "" {
		args = append(args, "--addr", *addr)
	}

	fmt.Printf("Flexible Engine Catalog Server v%s\n", cmd.Version)
	if err := cmd.ExecuteArgs(args); err != nil {
		logging.Error("Server stopped", zap.Error(err))
		logging.Sync()
		os.Exit(1)
	}
	logging.Sync()
}
