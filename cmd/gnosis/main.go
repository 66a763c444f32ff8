// -----------------------------------------------------------------------
// Gnosis CLI - Per-user knowledge base: ingest documents, ask questions
// -----------------------------------------------------------------------

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/ternarybob/arbor"

	"github.com/corvus-labs/gnosis/internal/app"
	"github.com/corvus-labs/gnosis/internal/common"
)

var (
	configPath string

	// Global state, populated by initApp before any subcommand runs
	config      *common.Config
	logger      arbor.ILogger
	application *app.App
)

var rootCmd = &cobra.Command{
	Use:   "gnosis",
	Short: "Per-user RAG knowledge base",
	Long:  `Gnosis ingests documents (PDF, text, structured records, crawled websites) into a per-user knowledge base and answers natural-language questions against it with source attribution.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Configuration file path (TOML)")

	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(queryCmd)
	rootCmd.AddCommand(documentsCmd)
	rootCmd.AddCommand(versionCmd)
}

// initApp loads configuration and wires the full application. Called by the
// subcommands that need running services; version does not.
func initApp() error {
	// Auto-discover config file if not specified
	if configPath == "" {
		if _, err := os.Stat("gnosis.toml"); err == nil {
			configPath = "gnosis.toml"
		}
	}

	var err error
	config, err = common.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger = common.InitLogger(config)
	common.PrintBanner(common.GetVersion())

	application, err = app.New(config, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}

	return nil
}

func closeApp() {
	if application != nil {
		if err := application.Close(); err != nil {
			logger.Error().Err(err).Msg("Shutdown failed")
		}
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
