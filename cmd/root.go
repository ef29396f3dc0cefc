package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/stanza-labs/refdata-cli/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "refdata-cli",
	Short: "Reference-data acquisition for music-prompt generation",
	Long:  "Fetches genre, meta-tag, and production-technique reference pages, parses them into typed records, caches them locally, and serves them with provenance.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
