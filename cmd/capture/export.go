package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/steveyackey/posthog/internal/archive"
	"github.com/steveyackey/posthog/internal/config"
	"github.com/steveyackey/posthog/internal/store/postgres"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export all ingested events as JSONL to stdout",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		store, err := postgres.New(cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer store.Close()

		return archive.ExportJSONL(cmd.Context(), store, os.Stdout)
	},
}
