// Package cmd - CLI command: fe-catalog catalog install
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"fe-catalog/db/ingestion"
	"fe-catalog/internal/config"
	"fe-catalog/internal/logging"
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Price catalog commands",
	Long:  "Commands for installing and updating the Flexible Engine price catalog.",
}

var catalogInstallCmd = &cobra.Command{
	Use:   "install",
	Short: "Install or update the catalog from the price feeds",
	Long: `Download the OS and compute price feeds and merge them into the stored catalog.

The run goes through 4 phases:
  1. initialize         - Load the stored catalog of the node
  2. install-instances  - Index OS licences, merge compute prices
  3. install-storages   - No storage feed is published, nothing is written
  4. install-support    - Merge the bundled support plans and prices

With --prune, stored instance prices the run did not touch are deleted afterwards.`,
	RunE: runCatalogInstall,
}

var (
	installForce   bool
	installPrune   bool
	installURL     string
	installTimeout time.Duration
)

func init() {
	rootCmd.AddCommand(catalogCmd)
	catalogCmd.AddCommand(catalogInstallCmd)

	catalogInstallCmd.Flags().BoolVarP(&installForce, "force", "f", false, "Overwrite descriptive attributes of stored entities")
	catalogInstallCmd.Flags().BoolVar(&installPrune, "prune", false, "Delete stored instance prices missing from the feeds")
	catalogInstallCmd.Flags().StringVar(&installURL, "url", "", "Prices base URL (default from config)")
	catalogInstallCmd.Flags().DurationVar(&installTimeout, "timeout", 30*time.Minute, "Timeout for the whole run")
}

func runCatalogInstall(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, installTimeout)
	defer cancel()

	cfg := config.Get()
	if installURL != "" {
		cfg.Feed.PricesURL = installURL
	}
	opts, err := ingestion.OptionsFromConfig(cfg)
	if err != nil {
		return err
	}

	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to open catalog store: %w", err)
	}
	defer closeStore()

	status := ingestion.NewImportStatus()
	importer, err := ingestion.NewImporter(store, opts, ingestion.WithProgress(status))
	if err != nil {
		return err
	}

	log := logging.Named("cli")
	log.Info("Catalog install started",
		zap.String("node", opts.Node),
		zap.String("url", opts.PricesURL),
		zap.Bool("force", installForce))

	result, err := importer.Install(ctx, installForce)
	status.Finish(result, err)
	if err != nil {
		return fmt.Errorf("catalog install failed: %w", err)
	}

	var pruned []string
	if installPrune {
		pruned, err = importer.Prune(ctx, result)
		if err != nil {
			return fmt.Errorf("catalog prune failed: %w", err)
		}
	}

	printInstallResult(status.Snapshot(), result, pruned)
	return nil
}

func printInstallResult(snapshot ingestion.StatusSnapshot, result *ingestion.Result, pruned []string) {
	fmt.Println("")
	fmt.Printf("Node:             %s\n", snapshot.Node)
	fmt.Printf("Phases:           %d/%d\n", snapshot.Done, snapshot.Workload)
	if snapshot.End != nil {
		fmt.Printf("Duration:         %s\n", snapshot.End.Sub(snapshot.Start).Round(time.Millisecond))
	}
	fmt.Println("")
	fmt.Println("Statistics:")
	fmt.Printf("  Instance prices:  %d\n", result.InstancePrices)
	fmt.Printf("  Instance types:   %d\n", result.InstanceTypes)
	fmt.Printf("  Locations:        %d\n", result.Locations)
	fmt.Printf("  Storage types:    %d\n", result.StorageTypes)
	fmt.Printf("  Support prices:   %d\n", result.SupportPrices)
	fmt.Printf("  Store writes:     %d\n", result.Saves)
	if pruned != nil {
		fmt.Printf("  Pruned prices:    %d\n", len(pruned))
	}
}
