package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-redis/redis_rate/v10"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/utafrali/TradeCatalog/internal/config"
	"github.com/utafrali/TradeCatalog/internal/event"
	handler "github.com/utafrali/TradeCatalog/internal/handler/http"
	"github.com/utafrali/TradeCatalog/internal/repository"
	"github.com/utafrali/TradeCatalog/internal/repository/memory"
	"github.com/utafrali/TradeCatalog/internal/repository/postgres"
	rediscache "github.com/utafrali/TradeCatalog/internal/repository/redis"
	"github.com/utafrali/TradeCatalog/internal/service"
	"github.com/utafrali/TradeCatalog/internal/supplier"
	"github.com/utafrali/TradeCatalog/migrations"
	"github.com/utafrali/TradeCatalog/pkg/database"
	"github.com/utafrali/TradeCatalog/pkg/health"
	"github.com/utafrali/TradeCatalog/pkg/httpclient"
	pkgkafka "github.com/utafrali/TradeCatalog/pkg/kafka"
	"github.com/utafrali/TradeCatalog/pkg/middleware"
	"github.com/utafrali/TradeCatalog/pkg/tracing"
)

const (
	serviceName    = "catalog"
	idempotencyTTL = 24 * time.Hour
)

// App wires together all dependencies and runs the catalog service.
type App struct {
	cfg            *config.Config
	logger         *slog.Logger
	pool           *pgxpool.Pool
	redis          *redis.Client
	consumers      []*pkgkafka.Consumer
	dlq            *pkgkafka.DLQProducer
	httpServer     *http.Server
	tracerShutdown func(context.Context) error
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	a := &App{cfg: cfg, logger: logger}

	// Initialize OpenTelemetry tracing.
	tracerShutdown, err := tracing.InitTracer(ctx, tracing.Config{
		ServiceName:    serviceName,
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
	metrics := service.NewMetrics(prometheus.DefaultRegisterer)

	st, err := a.initStorage(ctx, healthHandler)
	if err != nil {
		a.closeResources()
		return nil, err
	}

	if cfg.RedisEnabled {
		if err := a.initRedis(ctx, healthHandler); err != nil {
			a.closeResources()
			return nil, err
		}
		st.products = rediscache.NewCachedProductRepository(st.products, a.redis, cfg.ProductCacheTTL, logger, metrics)
	}

	// User directory behind a circuit breaker, cached when Redis is available.
	httpCfg := httpclient.DefaultConfig()
	httpCfg.Timeout = cfg.UserServiceTimeout
	breaker := httpclient.NewCircuitBreakerClient(
		httpclient.New(httpCfg),
		httpclient.DefaultCircuitBreakerConfig("user-service"),
		logger,
	)
	var directory supplier.Directory = supplier.NewClient(breaker, cfg.UserServiceURL)
	if a.redis != nil {
		cached := supplier.NewCachedDirectory(directory, a.redis, cfg.SupplierCacheTTL, logger, metrics)
		directory = cached

		if cfg.KafkaEnabled {
			a.initConsumers(cached, healthHandler)
		}
	}

	catalogService := service.NewCatalogService(st.products, directory, metrics, logger)
	categoryService := service.NewCategoryService(st.categories)

	opts := handler.Options{
		CORS:        corsConfig(cfg),
		CacheMaxAge: cfg.CacheMaxAgeSeconds,
		Images:      service.NewImageService(st.products, st.images, metrics, logger),
	}
	if cfg.JWTSecret != "" {
		opts.Tokens = middleware.HMACTokenValidator([]byte(cfg.JWTSecret))
	}
	if cfg.WriteRateLimitPerMinute > 0 {
		opts.WriteLimit = redis_rate.PerMinute(cfg.WriteRateLimitPerMinute)
		if a.redis != nil {
			opts.WriteLimiter = redis_rate.NewLimiter(a.redis)
		} else {
			opts.WriteLimiter = middleware.NewLocalLimiter(10 * time.Minute)
		}
	}

	// HTTP router.
	router := handler.NewRouter(catalogService, categoryService, healthHandler, logger, opts)

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

// stores groups the repositories behind the catalog services.
type stores struct {
	products   repository.ProductRepository
	categories repository.CategoryRepository
	images     repository.ImageRepository
}

// initStorage opens the configured product, category and image stores.
func (a *App) initStorage(ctx context.Context, healthHandler *health.Handler) (*stores, error) {
	if a.cfg.StorageDriver == config.StorageMemory {
		a.logger.Warn("using in-memory storage; data is lost on restart")
		return &stores{
			products:   memory.NewProductRepository(),
			categories: memory.NewCategoryRepository(),
			images:     memory.NewImageRepository(),
		}, nil
	}

	pgCfg := a.cfg.Postgres()
	pool, err := database.NewPostgresPool(ctx, &pgCfg, a.logger)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	a.pool = pool
	a.logger.Info("connected to PostgreSQL",
		slog.String("host", pgCfg.Host),
		slog.Int("port", pgCfg.Port),
		slog.String("database", pgCfg.DBName),
	)
	database.RegisterPoolMetrics(pool, serviceName)

	// Run database migrations.
	if err := database.RunMigrations(ctx, pool, migrations.FS, a.logger); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	a.logger.Info("database migrations completed")

	if a.cfg.SlowQueryThresholdMs > 0 {
		database.SetSlowQueryLogging(a.cfg.SlowQueryThreshold(), a.logger)
	}

	healthHandler.Register("postgres", func(ctx context.Context) error {
		return pool.Ping(ctx)
	})
	return &stores{
		products:   postgres.NewProductRepository(pool),
		categories: postgres.NewCategoryRepository(pool),
		images:     postgres.NewImageRepository(pool),
	}, nil
}

func (a *App) initRedis(ctx context.Context, healthHandler *health.Handler) error {
	redisCfg := database.DefaultRedisConfig()
	redisCfg.Addr = a.cfg.RedisAddr
	redisCfg.Password = a.cfg.RedisPassword
	redisCfg.DB = a.cfg.RedisDB

	client, err := database.NewRedisClient(ctx, redisCfg)
	if err != nil {
		return fmt.Errorf("connect to redis: %w", err)
	}
	a.redis = client
	a.logger.Info("connected to Redis", slog.String("addr", redisCfg.Addr))

	healthHandler.RegisterOptional("redis", func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	})
	return nil
}

// initConsumers subscribes to user events so supplier cache entries are
// dropped when a user changes role or is deleted.
func (a *App) initConsumers(suppliers event.SupplierInvalidator, healthHandler *health.Handler) {
	eventConsumer := event.NewConsumer(suppliers, a.logger)
	idempotencyStore := pkgkafka.NewRedisIdempotencyStore(a.redis, "catalog:events", idempotencyTTL)
	handle := pkgkafka.IdempotentHandler(idempotencyStore, eventConsumer.Handle, a.logger)

	a.dlq = pkgkafka.NewDLQProducer(a.cfg.KafkaBrokers, a.logger)
	for _, topic := range event.Topics() {
		c := pkgkafka.NewConsumer(pkgkafka.ConsumerConfig{
			Brokers:  a.cfg.KafkaBrokers,
			GroupID:  fmt.Sprintf("%s-%s", a.cfg.KafkaGroupPrefix, topic),
			Topic:    topic,
			MinBytes: 1,
			MaxBytes: 10e6,
		}, handle, a.logger).WithDLQ(a.dlq)
		a.consumers = append(a.consumers, c)
	}
	a.logger.Info("kafka consumers initialized",
		slog.Any("brokers", a.cfg.KafkaBrokers),
		slog.Int("topic_count", len(a.consumers)),
	)

	brokers := a.cfg.KafkaBrokers
	healthHandler.RegisterOptional("kafka", func(ctx context.Context) error {
		return pkgkafka.PingBrokers(ctx, brokers)
	})
}

func corsConfig(cfg *config.Config) middleware.CORSConfig {
	c := middleware.DefaultCORSConfig()
	c.AllowedOrigins = cfg.CORSAllowedOrigins
	c.Environment = cfg.Environment
	return c
}

// Handler returns the HTTP handler serving the catalog API.
func (a *App) Handler() http.Handler {
	return a.httpServer.Handler
}

// Run starts the HTTP server and Kafka consumers, blocking until the context is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1+len(a.consumers))

	// Start Kafka consumers in background goroutines.
	for _, c := range a.consumers {
		go func() {
			if err := c.Start(ctx); err != nil {
				errCh <- fmt.Errorf("kafka consumer: %w", err)
			}
		}()
	}

	// Start HTTP server.
	go func() {
		a.logger.Info("starting HTTP server",
			slog.String("addr", a.httpServer.Addr),
		)
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		_ = a.Shutdown()
		return err
	}

	return a.Shutdown()
}

// Shutdown gracefully stops all components: HTTP first, then the tracer,
// consumers and finally the stores.
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	var errs []error

	// Graceful HTTP server shutdown with a 10-second deadline.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if a.httpServer != nil {
		if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
			a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	if a.tracerShutdown != nil {
		if err := a.tracerShutdown(shutdownCtx); err != nil {
			a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	errs = append(errs, a.closeResources()...)

	a.logger.Info("application shutdown complete")
	return errors.Join(errs...)
}

// closeResources releases consumers and connections in dependency order.
func (a *App) closeResources() []error {
	var errs []error

	for _, c := range a.consumers {
		if err := c.Close(); err != nil {
			a.logger.Error("kafka consumer close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}
	a.consumers = nil

	if a.dlq != nil {
		if err := a.dlq.Close(); err != nil {
			a.logger.Error("dlq producer close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
		a.dlq = nil
	}

	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Error("redis close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
		a.redis = nil
	}

	if a.pool != nil {
		a.pool.Close()
		a.pool = nil
	}
	return errs
}
