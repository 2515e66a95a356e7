package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/odyssey-erp/crudkit/internal/app"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		Long:  "Serve the catalog. Without PG_DSN the catalog is kept in memory and seeded with sample rows.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if app.InTestMode() {
				slog.Default().Info("test mode detected, skipping runtime startup")
				return nil
			}
			cfg, err := app.LoadConfig()
			if err != nil {
				return err
			}
			return app.Run(cmd.Context(), cfg, app.NewLogger(cfg))
		},
	}
}
