package config

import (
	"errors"
	"fmt"
	"net/url"
	"time"

	pkgconfig "github.com/utafrali/customerdash/pkg/config"
	"github.com/utafrali/customerdash/pkg/database"
	"github.com/utafrali/customerdash/pkg/httpclient"
	"github.com/utafrali/customerdash/pkg/tracing"
)

const (
	defaultJWTSecret = "your-secret-key-change-in-production"
	writeGrace       = 5 * time.Second
)

// Config holds all configuration for the customer dashboard service.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
	HTTPPort    int    `env:"DASH_HTTP_PORT" envDefault:"8090"`

	// RequestTimeout bounds each handler; the server write timeout is
	// derived from it so the handler timeout always fires first.
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT" envDefault:"10s"`

	// Reviews API
	ReviewsAPIURL        string        `env:"REVIEWS_API_URL" envDefault:"http://localhost:5000"`
	ReviewsAPITimeout    time.Duration `env:"REVIEWS_API_TIMEOUT" envDefault:"10s"`
	ReviewsAPIMaxRetries int           `env:"REVIEWS_API_MAX_RETRIES" envDefault:"0"`
	FetchTimeout         time.Duration `env:"FETCH_TIMEOUT" envDefault:"15s"`

	// Circuit breaker
	CBMaxRequests     uint32  `env:"CB_MAX_REQUESTS" envDefault:"1"`
	CBIntervalSeconds int     `env:"CB_INTERVAL_SECONDS" envDefault:"60"`
	CBTimeoutSeconds  int     `env:"CB_TIMEOUT_SECONDS" envDefault:"30"`
	CBFailureRatio    float64 `env:"CB_FAILURE_RATIO" envDefault:"0.5"`
	CBMinRequests     uint32  `env:"CB_MIN_REQUESTS" envDefault:"5"`

	// Auth
	JWTSecret      string `env:"JWT_SECRET" envDefault:"your-secret-key-change-in-production"`
	AuthCookieName string `env:"AUTH_COOKIE_NAME" envDefault:"token"`

	// Page
	ViewSessionTTL        time.Duration `env:"VIEW_SESSION_TTL" envDefault:"30m"`
	MaxViewsPerUser       int           `env:"MAX_VIEWS_PER_USER" envDefault:"5"`
	PageLoadWait          time.Duration `env:"PAGE_LOAD_WAIT" envDefault:"250ms"`
	LoadingRefreshSeconds int           `env:"LOADING_REFRESH_SECONDS" envDefault:"1"`
	DashboardURL          string        `env:"DASHBOARD_URL" envDefault:"/customer-dash"`
	DateLayout            string        `env:"DATE_LAYOUT" envDefault:"1/2/2006"`
	DisplayTimezone       string        `env:"DISPLAY_TIMEZONE" envDefault:"UTC"`

	// Redis snapshot cache
	RedisEnabled    bool          `env:"REDIS_ENABLED" envDefault:"false"`
	RedisHost       string        `env:"REDIS_HOST" envDefault:"localhost"`
	RedisPort       int           `env:"REDIS_PORT" envDefault:"6379"`
	RedisPassword   string        `env:"REDIS_PASSWORD" envDefault:""`
	RedisDB         int           `env:"REDIS_DB" envDefault:"0"`
	ReviewsCacheTTL time.Duration `env:"REVIEWS_CACHE_TTL" envDefault:"0"`

	// Rate limiting
	RateLimitRPS   int `env:"RATE_LIMIT_RPS" envDefault:"50"`
	RateLimitBurst int `env:"RATE_LIMIT_BURST" envDefault:"100"`

	// Operator endpoints
	MetricsAllowedCIDRs []string `env:"METRICS_ALLOWED_CIDRS" envDefault:"127.0.0.0/8,10.0.0.0/8,172.16.0.0/12,192.168.0.0/16" envSeparator:","`
	PprofAllowedCIDRs   []string `env:"PPROF_ALLOWED_CIDRS" envDefault:"127.0.0.0/8,10.0.0.0/8,172.16.0.0/12,192.168.0.0/16" envSeparator:","`

	// Tracing
	OTELEnabled    bool    `env:"OTEL_ENABLED" envDefault:"false"`
	OTELEndpoint   string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:"localhost:4318"`
	OTELSampleRate float64 `env:"OTEL_SAMPLE_RATE" envDefault:"1.0"`

	location *time.Location
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.Load(cfg); err != nil {
		return nil, fmt.Errorf("load customerdash config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// validate checks configuration invariants and resolves the display
// timezone.
func (c *Config) validate() error {
	if c.Environment != "development" && c.JWTSecret == defaultJWTSecret {
		return fmt.Errorf("JWT_SECRET must be changed from default value in %s environment", c.Environment)
	}

	u, err := url.Parse(c.ReviewsAPIURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("REVIEWS_API_URL must be an absolute http(s) URL, got %q", c.ReviewsAPIURL)
	}

	loc, err := time.LoadLocation(c.DisplayTimezone)
	if err != nil {
		return fmt.Errorf("DISPLAY_TIMEZONE %q: %w", c.DisplayTimezone, err)
	}
	c.location = loc

	if c.ViewSessionTTL <= 0 {
		return errors.New("VIEW_SESSION_TTL must be positive")
	}
	if c.MaxViewsPerUser < 1 {
		return errors.New("MAX_VIEWS_PER_USER must be at least 1")
	}
	if c.RequestTimeout <= 0 {
		return errors.New("REQUEST_TIMEOUT must be positive")
	}
	if c.ReviewsCacheTTL < 0 {
		return errors.New("REVIEWS_CACHE_TTL must not be negative")
	}
	if c.ReviewsCacheTTL > 0 && !c.RedisEnabled {
		return errors.New("REVIEWS_CACHE_TTL requires REDIS_ENABLED=true")
	}
	if c.FetchTimeout <= 0 {
		return errors.New("FETCH_TIMEOUT must be positive")
	}
	if c.LoadingRefreshSeconds < 1 {
		return errors.New("LOADING_REFRESH_SECONDS must be at least 1")
	}
	return nil
}

// Location returns the display timezone, UTC if validate has not run.
func (c *Config) Location() *time.Location {
	if c.location == nil {
		return time.UTC
	}
	return c.location
}

// WriteTimeout returns the HTTP server write timeout: RequestTimeout plus
// the grace needed to write the handler's timeout response.
func (c *Config) WriteTimeout() time.Duration {
	return c.RequestTimeout + writeGrace
}

// HTTPClient returns the retrying client settings for the reviews API.
func (c *Config) HTTPClient() httpclient.Config {
	cfg := httpclient.DefaultConfig()
	cfg.Timeout = c.ReviewsAPITimeout
	cfg.MaxRetries = c.ReviewsAPIMaxRetries
	return cfg
}

// CircuitBreaker returns the breaker settings for the reviews API.
func (c *Config) CircuitBreaker() httpclient.CircuitBreakerConfig {
	return httpclient.CircuitBreakerConfig{
		Name:         "reviews-api",
		MaxRequests:  c.CBMaxRequests,
		Interval:     time.Duration(c.CBIntervalSeconds) * time.Second,
		Timeout:      time.Duration(c.CBTimeoutSeconds) * time.Second,
		FailureRatio: c.CBFailureRatio,
		MinRequests:  c.CBMinRequests,
	}
}

// Redis returns the Redis connection settings.
func (c *Config) Redis() database.RedisConfig {
	cfg := database.DefaultRedisConfig()
	cfg.Host = c.RedisHost
	cfg.Port = c.RedisPort
	cfg.Password = c.RedisPassword
	cfg.DB = c.RedisDB
	return cfg
}

// Tracing returns the OpenTelemetry settings.
func (c *Config) Tracing(serviceName, version string) tracing.Config {
	return tracing.Config{
		ServiceName:    serviceName,
		ServiceVersion: version,
		Environment:    c.Environment,
		OTLPEndpoint:   c.OTELEndpoint,
		SampleRate:     c.OTELSampleRate,
		Enabled:        c.OTELEnabled,
	}
}
