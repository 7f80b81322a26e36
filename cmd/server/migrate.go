package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fastygo/taskhub/internal/config"
	pgInfra "github.com/fastygo/taskhub/internal/infrastructure/postgres"
	"github.com/fastygo/taskhub/pkg/logger"
)

func migrateCmd() *cobra.Command {
	var (
		steps int
		path  string
	)

	cmd := &cobra.Command{
		Use:       "migrate [up|down]",
		Short:     "Apply or roll back database migrations",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{pgInfra.MigrateUp, pgInfra.MigrateDown},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("config error: %w", err)
			}
			if path != "" {
				cfg.Migrations.Path = path
			}

			zapLogger, err := logger.New(logger.Config{
				Level:    cfg.Logger.Level,
				Encoding: cfg.Logger.Encoding,
				Service:  cfg.AppName,
			})
			if err != nil {
				return fmt.Errorf("logger error: %w", err)
			}
			defer zapLogger.Sync()

			version, err := pgInfra.Migrate(cfg, args[0], steps, zapLogger)
			if err != nil {
				return fmt.Errorf("migrate %s: %w", args[0], err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "schema at version %d\n", version)
			return nil
		},
	}

	cmd.Flags().IntVarP(&steps, "steps", "n", 0, "number of migrations to apply (0 means all)")
	cmd.Flags().StringVar(&path, "path", "", "migrations directory (defaults to MIGRATIONS_PATH)")

	return cmd
}
