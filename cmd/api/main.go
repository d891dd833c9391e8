package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/tmvsalud/medtour/internal/infrastructure/observability"
	"github.com/tmvsalud/medtour/pkg/config"
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "medtour",
		Short:         "Medical tourism quote and payment API",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(seedCmd())
	rootCmd.AddCommand(reindexCmd())

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig reads .env into the process environment, loads configuration and
// initialises the global logger
func loadConfig() (*config.Config, error) {
	// .env is optional
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	observability.InitLogger(cfg.OTEL.ServiceName, cfg.Server.Env)
	return cfg, nil
}
