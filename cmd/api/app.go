package main

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/tmvsalud/medtour/internal/adapters/cache"
	"github.com/tmvsalud/medtour/internal/adapters/database"
	"github.com/tmvsalud/medtour/internal/adapters/events"
	"github.com/tmvsalud/medtour/internal/adapters/locks"
	"github.com/tmvsalud/medtour/internal/adapters/memory"
	"github.com/tmvsalud/medtour/internal/adapters/search"
	"github.com/tmvsalud/medtour/internal/application/services"
	"github.com/tmvsalud/medtour/internal/domain/providers"
	"github.com/tmvsalud/medtour/internal/domain/repositories"
	"github.com/tmvsalud/medtour/internal/domain/workflow"
	"github.com/tmvsalud/medtour/internal/infrastructure/clients/postgres"
	"github.com/tmvsalud/medtour/internal/infrastructure/clients/redis"
	"github.com/tmvsalud/medtour/internal/infrastructure/clients/typesense"
	"github.com/tmvsalud/medtour/internal/infrastructure/observability"
	"github.com/tmvsalud/medtour/pkg/config"
)

const lockTTL = 10 * time.Second

// app holds every wired dependency shared by the subcommands
type app struct {
	cfg *config.Config

	quotes   repositories.QuoteRepository
	payments repositories.PaymentRepository
	hotels   repositories.HotelRepository
	doctors  repositories.DoctorRepository
	tx       repositories.TransactionManager

	cache   providers.CacheProvider
	bus     providers.EventBus
	locker  providers.Locker
	search  *search.TypesenseAdapter
	metrics *observability.Metrics
	machine *workflow.Machine

	quoteService   *services.QuoteService
	paymentService *services.PaymentService
	catalogService *services.CatalogService

	closers []func() error
}

// newApp connects the configured storage and optional redis and typesense backends.
// Redis and typesense failures degrade to in-process implementations.
func newApp(ctx context.Context, cfg *config.Config, metrics *observability.Metrics) (*app, error) {
	a := &app{cfg: cfg, metrics: metrics}

	if err := a.initStorage(cfg); err != nil {
		a.Close()
		return nil, err
	}
	a.initRedis(cfg)
	a.initSearch(ctx, cfg)

	a.machine = workflow.NewMachine(a.hotels, workflow.Options{
		DefaultLogisticsFee: cfg.Pricing.DefaultLogisticsFee,
	})

	// A nil *TypesenseAdapter must not reach the service as a non-nil interface.
	var searchRepo repositories.DoctorSearchRepository
	if a.search != nil {
		searchRepo = a.search
	}

	a.quoteService = services.NewQuoteService(a.quotes, a.payments, a.doctors, a.tx, a.machine, a.locker, a.bus, metrics)
	a.paymentService = services.NewPaymentService(a.payments, a.quotes, a.tx, a.machine, a.locker, a.bus, metrics)
	a.catalogService = services.NewCatalogService(a.hotels, a.doctors, searchRepo)

	return a, nil
}

func (a *app) initStorage(cfg *config.Config) error {
	switch cfg.Storage.Driver {
	case "memory":
		store := memory.NewStore()
		a.quotes = store.Quotes()
		a.payments = store.Payments()
		a.hotels = store.Hotels()
		a.doctors = store.Doctors()
		a.tx = store
		log.Warn().Msg("using in-memory storage; data is lost on restart")
	case "postgres":
		pgClient, err := postgres.NewClient(&cfg.Database)
		if err != nil {
			return fmt.Errorf("failed to initialize PostgreSQL client: %w", err)
		}
		a.closers = append(a.closers, pgClient.Close)
		a.quotes = database.NewQuoteAdapter(pgClient)
		a.payments = database.NewPaymentAdapter(pgClient)
		a.hotels = database.NewHotelAdapter(pgClient)
		a.doctors = database.NewDoctorAdapter(pgClient)
		a.tx = pgClient
		log.Info().Str("host", cfg.Database.Host).Str("database", cfg.Database.Database).Msg("PostgreSQL client initialized")
	default:
		return fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
	return nil
}

func (a *app) initRedis(cfg *config.Config) {
	a.bus = events.NewLocalEventBus()
	a.locker = locks.NewLocalLocker()

	if !cfg.Redis.Enabled {
		log.Info().Msg("redis disabled, using in-process event bus and locks")
		return
	}

	redisClient, err := redis.NewClient(&cfg.Redis)
	if err != nil {
		// Continue without redis: a single instance works with local locks and events.
		log.Warn().Err(err).Msg("failed to initialize Redis client, using in-process event bus and locks")
		return
	}
	a.closers = append(a.closers, redisClient.Close)

	a.cache = cache.NewRedisAdapter(redisClient)
	a.bus = events.NewRedisEventBus(redisClient)
	a.locker = locks.NewRedisLocker(redisClient, lockTTL)

	a.hotels = database.NewCachedHotelAdapter(a.hotels, a.cache)
	a.doctors = database.NewCachedDoctorAdapter(a.doctors, a.cache)
	log.Info().Str("addr", cfg.Redis.RedisAddr()).Msg("Redis client initialized, catalog reads cached")
}

func (a *app) initSearch(ctx context.Context, cfg *config.Config) {
	if !cfg.Typesense.Enabled {
		return
	}

	tsClient, err := typesense.NewClient(&cfg.Typesense)
	if err != nil {
		log.Warn().Err(err).Msg("failed to initialize Typesense client, doctor search uses the store")
		return
	}

	adapter := search.NewTypesenseAdapter(tsClient)
	if err := adapter.InitSchema(ctx); err != nil {
		log.Warn().Err(err).Msg("failed to initialize Typesense schema, doctor search uses the store")
		return
	}
	a.search = adapter
	log.Info().Str("url", cfg.Typesense.URL).Msg("Typesense client initialized")
}

// Close releases connections in reverse order of acquisition
func (a *app) Close() {
	if a.bus != nil {
		if err := a.bus.Close(); err != nil {
			log.Error().Err(err).Msg("error closing event bus")
		}
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			log.Error().Err(err).Msg("error closing client")
		}
	}
}
