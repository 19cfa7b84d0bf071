package main

import (
	"context"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create schemas, tables and indexes for the configured driver",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := bootstrap()
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			repos, err := openRepositories(cmd.Context(), cfg, log, true)
			if err != nil {
				return err
			}
			defer func() { _ = repos.close(context.Background()) }()

			log.Info("migration finished", zap.String("driver", cfg.Database.Driver))
			return nil
		},
	}
}
