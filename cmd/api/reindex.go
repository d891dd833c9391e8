package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/tmvsalud/medtour/pkg/config"
)

func reindexCmd() *cobra.Command {
	var reset bool
	var intervalFlag string

	cmd := &cobra.Command{
		Use:   "reindex",
		Short: "Push every doctor profile to the Typesense directory index",
		RunE: func(cmd *cobra.Command, args []string) error {
			interval, err := parseInterval(intervalFlag)
			if err != nil {
				return err
			}

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if !cfg.Typesense.Enabled {
				return errors.New("typesense is disabled; set TYPESENSE_ENABLED=true")
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			for {
				if err := reindexOnce(ctx, cfg, reset); err != nil {
					log.Error().Err(err).Msg("reindex failed")
					if interval <= 0 {
						return err
					}
				}
				if interval <= 0 {
					return nil
				}

				reset = false
				log.Info().Dur("interval", interval).Msg("reindex complete, waiting for next run")

				select {
				case <-ctx.Done():
					log.Info().Msg("reindexer shutting down")
					return nil
				case <-time.After(interval):
				}
			}
		},
	}
	cmd.Flags().BoolVar(&reset, "reset", false, "delete the Typesense collection before reindexing")
	cmd.Flags().StringVar(&intervalFlag, "interval", "", "repeat interval for reindexing (e.g. 6h, 30m)")
	return cmd
}

func parseInterval(flag string) (time.Duration, error) {
	value := strings.TrimSpace(flag)
	if value == "" {
		value = strings.TrimSpace(os.Getenv("REINDEX_INTERVAL"))
	}
	if value == "" {
		return 0, nil
	}

	interval, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid interval %q: %w", value, err)
	}
	if interval <= 0 {
		return 0, errors.New("interval must be greater than zero")
	}
	return interval, nil
}

func reindexOnce(ctx context.Context, cfg *config.Config, reset bool) error {
	a, err := newApp(ctx, cfg, nil)
	if err != nil {
		return err
	}
	defer a.Close()

	if a.search == nil {
		return errors.New("typesense is unavailable")
	}

	if reset {
		log.Warn().Msg("deleting doctor collection before reindexing")
		if err := a.search.DropSchema(ctx); err != nil {
			log.Warn().Err(err).Msg("failed to delete collection")
		}
		if err := a.search.InitSchema(ctx); err != nil {
			return err
		}
	}

	indexed, err := a.catalogService.ReindexDoctors(ctx)
	if err != nil {
		return err
	}
	log.Info().Int("indexed", indexed).Msg("doctor directory reindexed")
	return nil
}
