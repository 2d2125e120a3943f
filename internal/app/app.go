package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/utafrali/customerdash/internal/cache"
	"github.com/utafrali/customerdash/internal/config"
	"github.com/utafrali/customerdash/internal/handler"
	"github.com/utafrali/customerdash/internal/loader"
	"github.com/utafrali/customerdash/internal/reviewapi"
	"github.com/utafrali/customerdash/internal/view"
	"github.com/utafrali/customerdash/pkg/database"
	"github.com/utafrali/customerdash/pkg/health"
	"github.com/utafrali/customerdash/pkg/httpclient"
	"github.com/utafrali/customerdash/pkg/tracing"
)

const (
	serviceName    = "customerdash"
	serviceVersion = "0.1.0"
)

// App wires together all dependencies and runs the dashboard service.
type App struct {
	cfg            *config.Config
	logger         *slog.Logger
	httpServer     *http.Server
	registry       *loader.Registry
	redis          *redis.Client
	stop           chan struct{}
	tracerShutdown tracing.ShutdownFunc
}

// NewApp builds the reviews API client, the optional Redis cache, the view
// registry and the HTTP router.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	tracerShutdown, err := tracing.Init(ctx, cfg.Tracing(serviceName, serviceVersion))
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}

	cbCfg := cfg.CircuitBreaker()
	cbClient := httpclient.NewCircuitBreakerClient(httpclient.New(cfg.HTTPClient()), cbCfg, logger).
		WithFallback(reviewapi.CircuitOpenFallback)
	logger.Info("circuit breaker initialized",
		slog.String("name", cbCfg.Name),
		slog.Uint64("max_requests", uint64(cbCfg.MaxRequests)),
		slog.Int("timeout_seconds", cfg.CBTimeoutSeconds),
		slog.Uint64("min_requests", uint64(cbCfg.MinRequests)),
	)

	var fetcher loader.Fetcher = reviewapi.NewClient(cfg.ReviewsAPIURL, cbClient, logger)

	healthHandler := health.NewHandler()
	healthHandler.RegisterNonCritical("reviews_api", func(ctx context.Context) error {
		dialCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		return reviewapi.DialCheck(cfg.ReviewsAPIURL)(dialCtx)
	})

	var redisClient *redis.Client
	if cfg.RedisEnabled {
		redisClient, err = database.NewRedisClient(ctx, cfg.Redis())
		if err != nil {
			_ = tracerShutdown(context.Background())
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		healthHandler.RegisterCritical("redis", database.RedisHealthCheck(redisClient))
		logger.Info("redis connected", slog.String("addr", cfg.Redis().Addr()))

		if cfg.ReviewsCacheTTL > 0 {
			fetcher = cache.New(fetcher, redisClient, cfg.ReviewsCacheTTL, logger)
			logger.Info("reviews cache enabled", slog.Duration("ttl", cfg.ReviewsCacheTTL))
		}
	}

	registry := loader.NewRegistry(fetcher, cfg.FetchTimeout, cfg.ViewSessionTTL, cfg.MaxViewsPerUser, logger)

	reviews := handler.NewReviewsHandler(registry, view.Options{
		BasePath:       "/reviews",
		DashboardURL:   cfg.DashboardURL,
		DateLayout:     cfg.DateLayout,
		Location:       cfg.Location(),
		RefreshSeconds: cfg.LoadingRefreshSeconds,
	}, cfg.PageLoadWait, logger)

	stop := make(chan struct{})
	router := handler.NewRouter(cfg, reviews, healthHandler, stop, logger)

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      cfg.WriteTimeout(),
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return &App{
		cfg:            cfg,
		logger:         logger,
		httpServer:     httpServer,
		registry:       registry,
		redis:          redisClient,
		stop:           stop,
		tracerShutdown: tracerShutdown,
	}, nil
}

// Handler returns the root HTTP handler.
func (a *App) Handler() http.Handler {
	return a.httpServer.Handler
}

// Run starts the HTTP server and blocks until the context is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		a.logger.Info("starting HTTP server", slog.String("addr", a.httpServer.Addr))
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

// Shutdown stops the service in order:
// 1. HTTP server (drain in-flight requests)
// 2. open views and middleware background loops
// 3. Redis
// 4. tracer (flush spans from drained requests)
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	var errs []error

	httpCtx, httpCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer httpCancel()
	if err := a.httpServer.Shutdown(httpCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	a.registry.Close()
	select {
	case <-a.stop:
	default:
		close(a.stop)
	}

	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Error("redis close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	if a.tracerShutdown != nil {
		tracerCtx, tracerCancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer tracerCancel()
		if err := a.tracerShutdown(tracerCtx); err != nil {
			a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	a.logger.Info("application shutdown complete")
	return errors.Join(errs...)
}
