package main

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/tmvsalud/medtour/internal/infrastructure/clients/postgres"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending PostgreSQL schema migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			pgClient, err := postgres.NewClient(&cfg.Database)
			if err != nil {
				return fmt.Errorf("failed to initialize PostgreSQL client: %w", err)
			}
			defer pgClient.Close()

			applied, err := pgClient.Migrate(cmd.Context())
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
			log.Info().Int("applied", applied).Msg("migrations complete")
			return nil
		},
	}
}
