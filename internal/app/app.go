package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/utafrali/storefront/internal/catalog"
	"github.com/utafrali/storefront/internal/checkout"
	"github.com/utafrali/storefront/internal/config"
	"github.com/utafrali/storefront/internal/event"
	handler "github.com/utafrali/storefront/internal/handler/http"
	"github.com/utafrali/storefront/internal/render"
	"github.com/utafrali/storefront/internal/storage"
	"github.com/utafrali/storefront/internal/storage/memory"
	"github.com/utafrali/storefront/internal/storage/postgres"
	redisstore "github.com/utafrali/storefront/internal/storage/redis"
	"github.com/utafrali/storefront/internal/store"
	"github.com/utafrali/storefront/pkg/database"
	"github.com/utafrali/storefront/pkg/health"
	"github.com/utafrali/storefront/pkg/httpclient"
	pkgkafka "github.com/utafrali/storefront/pkg/kafka"
	"github.com/utafrali/storefront/pkg/middleware"
	"github.com/utafrali/storefront/pkg/tracing"
)

// ServiceName labels logs, metrics and traces.
const ServiceName = "storefront"

// purger is implemented by backends that keep expired rows until swept.
type purger interface {
	PurgeExpired(ctx context.Context) (int64, error)
}

type pinger interface {
	Ping(ctx context.Context) error
}

// App wires together all dependencies and runs the storefront service.
type App struct {
	cfg            *config.Config
	logger         *slog.Logger
	backend        storage.Backend
	pool           *pgxpool.Pool
	rdb            *redis.Client
	producer       *pkgkafka.Producer
	catalogEvents  *pkgkafka.Consumer
	watcher        *catalog.Watcher
	limiter        *middleware.RateLimiter
	httpServer     *http.Server
	tracerShutdown tracing.ShutdownFunc
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	a := &App{cfg: cfg, logger: logger}

	// Initialize OpenTelemetry tracing.
	tracerShutdown, err := tracing.InitTracer(ctx, tracing.Config{
		ServiceName:    ServiceName,
		ServiceVersion: "0.1.0",
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.OTELEndpoint,
		SampleRate:     cfg.OTELSampleRate,
		Enabled:        cfg.OTELEnabled,
	})
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}
	a.tracerShutdown = tracerShutdown

	healthHandler := health.NewHandler()

	// Storage backend.
	if err := a.initStorage(ctx, healthHandler); err != nil {
		a.closeClients()
		return nil, err
	}
	adapter := storage.NewAdapter(a.backend, logger)

	// Kafka producer. Events are dropped silently when Kafka is disabled.
	var publisher event.Publisher = event.NopPublisher{}
	if cfg.KafkaEnabled {
		a.producer = pkgkafka.NewProducer(pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers), logger)
		if err := a.producer.Ping(ctx); err != nil {
			logger.Warn("kafka producer ping failed, continuing in degraded mode",
				slog.String("error", err.Error()),
			)
		} else {
			logger.Info("kafka producer initialized", slog.Any("brokers", cfg.KafkaBrokers))
		}
		publisher = a.producer
		healthHandler.RegisterNonCritical("kafka", a.producer.Ping)
	}
	eventProducer := event.NewProducer(publisher, logger)

	// Catalog.
	loader, err := a.initCatalog(logger)
	if err != nil {
		a.closeClients()
		return nil, err
	}
	if cfg.KafkaEnabled {
		a.catalogEvents = a.newCatalogConsumer(loader)
	}

	// Build the dependency graph.
	stores := store.NewFactory(adapter, logger, eventProducer.Listener())
	checkoutService := checkout.NewService(adapter, eventProducer, cfg.HandoffTTL(), logger)
	renderer, err := render.New()
	if err != nil {
		a.closeClients()
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	a.limiter = middleware.NewRateLimiter(cfg.CheckoutRateRPS, cfg.CheckoutRateBurst, 10*time.Minute, logger)

	// HTTP router.
	h := handler.NewHandler(adapter, stores, checkoutService, loader, renderer, logger)
	router := handler.NewRouter(h, healthHandler, a.limiter, handler.RouterConfig{
		ServiceName:   ServiceName,
		SessionTTL:    cfg.StoreTTL(),
		SecureCookies: cfg.SecureCookies,
		CatalogMaxAge: cfg.CatalogMaxAgeSecs,
		CORSOrigins:   cfg.CORSAllowedOrigins,
		PprofCIDRs:    cfg.PprofAllowedCIDRs,
	}, logger)

	a.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return a, nil
}

// initStorage connects the configured backend and registers its health check.
func (a *App) initStorage(ctx context.Context, healthHandler *health.Handler) error {
	cfg := a.cfg
	switch cfg.StorageBackend {
	case config.BackendRedis:
		rdb, err := database.NewRedisClient(ctx, database.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPass,
			DB:       cfg.RedisDB,
		}, a.logger)
		if err != nil {
			return fmt.Errorf("connect to redis: %w", err)
		}
		a.rdb = rdb
		a.backend = redisstore.New(rdb, cfg.StoreTTL())
		a.logger.Info("connected to Redis",
			slog.String("addr", cfg.RedisAddr),
			slog.Int("db", cfg.RedisDB),
		)

	case config.BackendPostgres:
		pgCfg := database.PostgresConfig{
			Host:            cfg.PostgresHost,
			Port:            cfg.PostgresPort,
			User:            cfg.PostgresUser,
			Password:        cfg.PostgresPass,
			DBName:          cfg.PostgresDB,
			SSLMode:         cfg.PostgresSSL,
			MaxConns:        cfg.DBMaxConns,
			MinConns:        cfg.DBMinConns,
			MaxConnLifetime: time.Duration(cfg.DBMaxConnLifetimeMins) * time.Minute,
			MaxConnIdleTime: time.Duration(cfg.DBMaxConnIdleTimeMins) * time.Minute,
		}
		pool, err := database.NewPostgresPool(ctx, &pgCfg, a.logger)
		if err != nil {
			return fmt.Errorf("connect to postgres: %w", err)
		}
		a.pool = pool
		a.logger.Info("connected to PostgreSQL",
			slog.String("host", cfg.PostgresHost),
			slog.Int("port", cfg.PostgresPort),
			slog.String("database", cfg.PostgresDB),
		)
		if err := prometheus.Register(database.NewPoolStatsCollector(pool, ServiceName)); err != nil {
			a.logger.Warn("pool metrics not registered", slog.String("error", err.Error()))
		}

		// Run database migrations.
		if err := database.RunMigrations(ctx, pool, postgres.Migrations(), a.logger); err != nil {
			return fmt.Errorf("run migrations: %w", err)
		}
		a.logger.Info("database migrations completed")

		if cfg.SlowQueryThresholdMs > 0 {
			database.SetSlowQueryLogging(time.Duration(cfg.SlowQueryThresholdMs)*time.Millisecond, a.logger)
		}
		a.backend = postgres.New(pool, cfg.StoreTTL())

	default:
		opts := []memory.Option{memory.WithTTL(cfg.StoreTTL())}
		if cfg.MemoryQuotaBytes > 0 {
			opts = append(opts, memory.WithQuota(cfg.MemoryQuotaBytes))
		}
		a.backend = memory.New(opts...)
		a.logger.Warn("using in-memory storage; session state is lost on restart")
	}

	switch {
	case a.pool != nil:
		healthHandler.RegisterCritical("postgres", a.pool.Ping)
	case a.backend != nil:
		if p, ok := a.backend.(pinger); ok {
			healthHandler.RegisterCritical(cfg.StorageBackend, p.Ping)
		}
	}
	return nil
}

// initCatalog builds the document loader over a remote base URL when one is
// configured and over the local data directory otherwise.
func (a *App) initCatalog(logger *slog.Logger) (*catalog.Loader, error) {
	cfg := a.cfg
	var source catalog.Source
	if cfg.CatalogBaseURL != "" {
		client := httpclient.NewBreakerClient(
			httpclient.New(httpclient.DefaultConfig()),
			httpclient.DefaultBreakerConfig("catalog"),
			logger,
		)
		source = catalog.NewHTTPSource(cfg.CatalogBaseURL, client)
		logger.Info("serving catalog from remote source", slog.String("base_url", cfg.CatalogBaseURL))
	} else {
		source = catalog.NewDirSource(cfg.CatalogDir)
		logger.Info("serving catalog from directory", slog.String("dir", cfg.CatalogDir))
	}

	loader, err := catalog.NewLoader(source, cfg.CatalogCacheSize, logger)
	if err != nil {
		return nil, err
	}

	if cfg.CatalogBaseURL == "" && cfg.CatalogWatch {
		w, err := catalog.NewWatcher(cfg.CatalogDir, loader, logger)
		if err != nil {
			// The catalog still loads; it just is not refreshed on change.
			logger.Warn("catalog watcher disabled", slog.String("error", err.Error()))
		} else {
			a.watcher = w
		}
	}
	return loader, nil
}

// newCatalogConsumer invalidates cached documents on catalog.updated.
// Deduplication is shared across replicas when Redis is available.
func (a *App) newCatalogConsumer(loader *catalog.Loader) *pkgkafka.Consumer {
	const group = "storefront-catalog-updated"

	var seen pkgkafka.IdempotencyStore = pkgkafka.NewMemoryIdempotencyStore(24 * time.Hour)
	if a.rdb != nil {
		seen = pkgkafka.NewRedisIdempotencyStore(a.rdb, "storefront:processed:", 24*time.Hour)
	}

	return pkgkafka.NewConsumer(pkgkafka.ConsumerConfig{
		Brokers:  a.cfg.KafkaBrokers,
		GroupID:  group,
		Topic:    event.TopicCatalogUpdated,
		MinBytes: 1,
		MaxBytes: 1 << 20,
	}, pkgkafka.IdempotentHandler(seen, event.TopicCatalogUpdated, group,
		event.CatalogUpdatedHandler(loader, a.logger), a.logger), a.logger)
}

// Handler returns the HTTP handler served by Run.
func (a *App) Handler() http.Handler { return a.httpServer.Handler }

// Run starts the HTTP server, Kafka consumer, and background jobs, then blocks until the context is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 3)

	// Start HTTP server.
	go func() {
		a.logger.Info("starting HTTP server",
			slog.String("addr", a.httpServer.Addr),
		)
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	if a.catalogEvents != nil {
		go func() {
			if err := a.catalogEvents.Start(ctx); err != nil {
				errCh <- fmt.Errorf("catalog consumer: %w", err)
			}
		}()
	}

	if a.watcher != nil {
		go func() {
			if err := a.watcher.Run(ctx); err != nil {
				errCh <- fmt.Errorf("catalog watcher: %w", err)
			}
		}()
	}

	go a.limiter.Run(ctx)

	if p, ok := a.backend.(purger); ok {
		go a.runPurge(ctx, p)
	}

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		_ = a.Shutdown()
		return err
	}

	return a.Shutdown()
}

// runPurge periodically deletes expired session state.
func (a *App) runPurge(ctx context.Context, p purger) {
	interval := time.Duration(a.cfg.PurgeIntervalMin) * time.Minute
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := p.PurgeExpired(ctx)
			if err != nil {
				a.logger.Error("expired state purge error", slog.String("error", err.Error()))
			} else if n > 0 {
				a.logger.Info("expired state purged", slog.Int64("removed", n))
			}
		}
	}
}

// Shutdown gracefully stops all components in the correct order:
// 1. HTTP server (drain in-flight requests)
// 2. Tracer (flush pending spans from drained requests)
// 3. Kafka consumer and producer
// 4. Redis client and PostgreSQL pool
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	var errs []error

	httpCtx, httpCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer httpCancel()
	if err := a.httpServer.Shutdown(httpCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	if a.tracerShutdown != nil {
		tracerCtx, tracerCancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer tracerCancel()
		if err := a.tracerShutdown(tracerCtx); err != nil {
			a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	if a.watcher != nil {
		if err := a.watcher.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	if a.catalogEvents != nil {
		if err := a.catalogEvents.Close(); err != nil {
			a.logger.Error("catalog consumer close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	errs = append(errs, a.closeClients())

	a.logger.Info("application shutdown complete")
	return errors.Join(errs...)
}

// closeClients releases the Kafka producer and database connections.
func (a *App) closeClients() error {
	var errs []error
	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
		a.producer = nil
	}
	if a.rdb != nil {
		if err := a.rdb.Close(); err != nil {
			a.logger.Error("redis close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
		a.rdb = nil
	}
	if a.pool != nil {
		a.pool.Close()
		a.pool = nil
	}
	return errors.Join(errs...)
}
