package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/tmvsalud/medtour/internal/api/handlers"
	"github.com/tmvsalud/medtour/internal/api/routes"
	"github.com/tmvsalud/medtour/internal/application/services"
	"github.com/tmvsalud/medtour/internal/infrastructure/notifications"
	"github.com/tmvsalud/medtour/internal/infrastructure/observability"
	"github.com/tmvsalud/medtour/pkg/config"
)

func serveCmd() *cobra.Command {
	var seed bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			return runServer(cmd.Context(), cfg, seed)
		},
	}
	cmd.Flags().BoolVar(&seed, "seed", false, "load demo catalog and quote before serving")
	return cmd
}

func runServer(ctx context.Context, cfg *config.Config, seed bool) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.OTEL.Enabled && cfg.OTEL.Endpoint != "" {
		shutdown, err := observability.Setup(ctx, cfg.OTEL.ServiceName, cfg.OTEL.ServiceVersion, cfg.OTEL.Endpoint)
		if err != nil {
			log.Warn().Err(err).Msg("failed to set up OpenTelemetry")
		} else {
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := shutdown(ctx); err != nil {
					log.Error().Err(err).Msg("error shutting down OpenTelemetry")
				}
			}()
			log.Info().Str("endpoint", cfg.OTEL.Endpoint).Msg("OpenTelemetry initialized")
		}
	}

	metrics, err := observability.InitMetrics()
	if err != nil {
		return fmt.Errorf("failed to initialize metrics: %w", err)
	}

	a, err := newApp(ctx, cfg, metrics)
	if err != nil {
		return err
	}
	defer a.Close()

	if seed {
		if err := seedAll(ctx, a); err != nil {
			return err
		}
	}

	if a.search != nil {
		go func() {
			n, err := a.catalogService.ReindexDoctors(ctx)
			if err != nil {
				log.Warn().Err(err).Int("indexed", n).Msg("doctor reindex failed")
				return
			}
			log.Info().Int("indexed", n).Msg("doctor directory indexed")
		}()
	}

	if cfg.WhatsApp.Enabled() {
		sender, err := notifications.NewWhatsAppCloudSender(&cfg.WhatsApp)
		if err != nil {
			return fmt.Errorf("failed to initialize WhatsApp sender: %w", err)
		}
		notifier := services.NewNotificationService(a.quotes, a.bus, sender, services.NotificationOptions{
			Language: cfg.Locale.DefaultLanguage,
			Currency: cfg.Pricing.Currency,
		}, metrics)
		if err := notifier.Start(); err != nil {
			return fmt.Errorf("failed to start notifications: %w", err)
		}
		defer notifier.Stop()
		log.Info().Str("language", cfg.Locale.DefaultLanguage).Msg("WhatsApp notifications enabled")
	}

	router := routes.NewRouter(
		handlers.NewQuoteHandler(a.quoteService),
		handlers.NewPaymentHandler(a.paymentService),
		handlers.NewCatalogHandler(a.catalogService),
		handlers.NewPricingHandler(a.catalogService, cfg.Pricing.DefaultLogisticsFee),
		handlers.NewSSEHandler(a.bus, a.quoteService),
		routes.Options{
			Hotels:         a.hotels,
			AllowedOrigins: cfg.CORS.AllowedOrigins,
			Metrics:        metrics,
		},
	)

	// WriteTimeout stays zero: SSE streams are long lived.
	server := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           router.SetupRoutes(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", server.Addr).Str("storage", cfg.Storage.Driver).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	log.Info().Msg("server exited")
	return nil
}
