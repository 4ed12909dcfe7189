package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/gearvn/storefront/internal/backend"
	"github.com/gearvn/storefront/internal/checkout"
	"github.com/gearvn/storefront/internal/config"
	"github.com/gearvn/storefront/internal/event"
	handler "github.com/gearvn/storefront/internal/handler/http"
	"github.com/gearvn/storefront/internal/repository"
	"github.com/gearvn/storefront/internal/repository/memory"
	redisrepo "github.com/gearvn/storefront/internal/repository/redis"
	"github.com/gearvn/storefront/internal/search"
	"github.com/gearvn/storefront/internal/service"
	"github.com/gearvn/storefront/pkg/database"
	"github.com/gearvn/storefront/pkg/health"
	"github.com/gearvn/storefront/pkg/httpclient"
	pkgkafka "github.com/gearvn/storefront/pkg/kafka"
	"github.com/gearvn/storefront/pkg/middleware"
	"github.com/gearvn/storefront/pkg/tracing"
)

const serviceName = "storefront"

// App wires together all dependencies and runs the storefront service.
type App struct {
	cfg            *config.Config
	logger         *slog.Logger
	rdb            *redis.Client
	producer       *pkgkafka.Producer
	httpServer     *http.Server
	sweepers       []service.Sweeper
	tracerShutdown func(context.Context) error
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

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

	a := &App{
		cfg:            cfg,
		logger:         logger,
		tracerShutdown: tracerShutdown,
	}
	healthHandler := health.NewHandler()

	// Session storage.
	var sessions repository.SessionRepository
	switch cfg.StorageDriver {
	case config.StorageMemory:
		sessions = memory.NewSessionRepository()
		logger.Warn("using in-memory session storage, carts are lost on restart")
	default:
		rcfg := database.DefaultRedisConfig()
		rcfg.Addr = cfg.RedisAddr
		rcfg.Password = cfg.RedisPass
		rcfg.DB = cfg.RedisDB

		rdb, err := database.NewRedisClient(ctx, rcfg)
		if err != nil {
			_ = tracerShutdown(context.Background())
			return nil, fmt.Errorf("connect to redis: %w", err)
		}
		logger.Info("connected to Redis",
			slog.String("addr", cfg.RedisAddr),
			slog.Int("db", cfg.RedisDB),
		)
		a.rdb = rdb
		sessions = redisrepo.NewSessionRepository(rdb, cfg.SessionTTL)
	}
	healthHandler.Register("storage", sessions.Ping)

	// Domain events.
	var publisher event.Publisher = event.NoopPublisher{}
	if cfg.KafkaEnabled {
		a.producer = pkgkafka.NewProducer(pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers), logger)
		publisher = event.NewProducer(a.producer, event.Topics{
			OrderPlaced: cfg.KafkaTopicOrderPlaced,
			CartCleared: cfg.KafkaTopicCartCleared,
		}, logger)
		healthHandler.RegisterOptional("kafka", a.producer.Ping)
		logger.Info("kafka producer initialized", slog.Any("brokers", cfg.KafkaBrokers))
	}

	// Backend API client with circuit breaker.
	baseClient := httpclient.New(httpclient.Config{
		Timeout:         cfg.BackendTimeout,
		MaxRetries:      cfg.BackendMaxRetries,
		RetryWaitMin:    200 * time.Millisecond,
		RetryWaitMax:    2 * time.Second,
		MaxConnsPerHost: 50,
	})
	cbCfg := httpclient.DefaultCircuitBreakerConfig("storefront-backend")
	cbClient := httpclient.NewCircuitBreakerClient(baseClient, cbCfg, logger).
		WithFallback(backend.CircuitOpenFallback)
	api := backend.NewClient(cbClient, cfg.BackendBaseURL, logger)
	logger.Info("backend client initialized",
		slog.String("base_url", cfg.BackendBaseURL),
		slog.String("breaker", cbCfg.Name),
	)

	// Build the dependency graph.
	catalog := search.NewCatalog(api, cfg.CatalogTTL, logger)
	suggester := search.NewSuggester(catalog, cfg.SuggestDelay, cfg.SuggestLimit, logger)
	submitter := checkout.NewSubmitter(api, publisher, logger, cfg.Location())

	carts := service.NewCartService(sessions, catalog, publisher, logger, cfg.SessionIdleTTL)
	checkouts := service.NewCheckoutService(carts, submitter, api, logger, cfg.SessionIdleTTL)
	svc := handler.Services{
		Cart:     carts,
		Checkout: checkouts,
		Search:   service.NewSearchService(catalog, suggester, logger),
		Session:  service.NewSessionService(sessions, logger),
	}

	a.sweepers = []service.Sweeper{
		service.SweepFunc{Label: "carts", Fn: carts.Sweep},
		service.SweepFunc{Label: "checkouts", Fn: checkouts.Sweep},
		service.SweepFunc{Label: "suggestions", Fn: func() int { return suggester.Sweep(cfg.SessionIdleTTL) }},
	}
	if cfg.RateLimitRPS > 0 {
		svc.Limiter = middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
		a.sweepers = append(a.sweepers, service.SweepFunc{
			Label: "rate-limiters",
			Fn:    func() int { return svc.Limiter.Sweep(cfg.SessionIdleTTL) },
		})
	}

	healthHandler.RegisterOptional("backend", func(ctx context.Context) error {
		_, err := catalog.Products(ctx)
		return err
	})

	// HTTP router.
	cors := middleware.DefaultCORSConfig()
	cors.AllowedOrigins = cfg.CORSAllowedOrigins
	router := handler.NewRouter(svc, healthHandler, cors, logger)

	a.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      cfg.BackendTimeout + 15*time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return a, nil
}

// Run starts the HTTP server and the idle-session janitor and blocks until
// the context is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		a.logger.Info("starting HTTP server",
			slog.String("addr", a.httpServer.Addr),
		)
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	janitorCtx, stopJanitor := context.WithCancel(ctx)
	defer stopJanitor()
	go service.RunJanitor(janitorCtx, janitorInterval(a.cfg.SessionIdleTTL), a.logger, a.sweepers...)

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		return err
	}

	return a.Shutdown()
}

// Shutdown gracefully stops all components in the correct order:
// 1. HTTP server (drain in-flight requests)
// 2. Tracer (flush pending spans from drained requests)
// 3. Kafka producer
// 4. Redis client
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
	}

	if a.tracerShutdown != nil {
		if err := a.tracerShutdown(shutdownCtx); err != nil {
			a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
		}
	}

	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
		}
	}

	if a.rdb != nil {
		if err := a.rdb.Close(); err != nil {
			a.logger.Error("redis close error", slog.String("error", err.Error()))
		}
	}

	a.logger.Info("application shutdown complete")
	return nil
}

// janitorInterval sweeps a few times per idle period, at least once a minute.
func janitorInterval(idle time.Duration) time.Duration {
	interval := idle / 4
	if interval <= 0 || interval > time.Minute {
		return time.Minute
	}
	return interval
}
