package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/utafrali/customerdash/internal/config"
	dashmw "github.com/utafrali/customerdash/internal/middleware"
	"github.com/utafrali/customerdash/pkg/health"
	pkgmw "github.com/utafrali/customerdash/pkg/middleware"
)

const serviceName = "customerdash"

// NewRouter creates the chi router with the global middleware stack,
// operator endpoints and the review routes. stop ends background work
// owned by the middleware.
func NewRouter(cfg *config.Config, reviews *ReviewsHandler, healthHandler *health.Handler, stop <-chan struct{}, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	// RequestLogging runs first so every error envelope carries the
	// correlation id.
	r.Use(pkgmw.RequestLogging(logger))
	r.Use(pkgmw.Recovery(logger))
	r.Use(dashmw.RateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst, stop, logger))
	r.Use(chimw.Compress(5))
	r.Use(chimw.Timeout(cfg.RequestTimeout))
	r.Use(pkgmw.PrometheusMetrics(serviceName))
	r.Use(pkgmw.Tracing(serviceName))

	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())

	r.With(pkgmw.IPAllowlist(cfg.MetricsAllowedCIDRs, logger)).Handle("/metrics", promhttp.Handler())
	pkgmw.RegisterPprof(r, cfg.PprofAllowedCIDRs, logger)

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/reviews", http.StatusFound)
	})

	r.Group(func(r chi.Router) {
		r.Use(dashmw.CurrentUser(cfg.JWTSecret, cfg.AuthCookieName, logger))
		r.Use(pkgmw.RequestLogger(logger))
		r.Use(pkgmw.CacheControl("no-store"))

		r.Get("/reviews", reviews.Page)
		r.Get("/api/v1/dashboard/reviews", reviews.JSON)
	})

	return r
}
