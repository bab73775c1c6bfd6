package app

import (
	"fmt"
	"net/http"

	"github.com/redis/go-redis/extra/redisotel/v9"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/noah-isme/portfolio-api/internal/config"
	"github.com/noah-isme/portfolio-api/internal/content"
	"github.com/noah-isme/portfolio-api/internal/obs"
	"github.com/noah-isme/portfolio-api/internal/payment"
	"github.com/noah-isme/portfolio-api/internal/resilience"
)

// Dependencies enumerates the shared services the router is assembled from.
// Everything here is built once at startup and shared by all requests.
type Dependencies struct {
	Config      *config.Config
	Logger      zerolog.Logger
	Redis       *redis.Client
	Content     *content.Store
	Provider    payment.Provider
	HTTPMetrics *obs.HTTPMetrics
	Metrics     http.Handler
	Tracing     bool
	Pprof       Pprof
}

// Pprof controls the profiling endpoints.
type Pprof struct {
	Enabled bool
	User    string
	Pass    string
}

// NewRedis connects the optional Redis client. It returns nil when no URL is
// configured.
func NewRedis(cfg *config.Config, logger zerolog.Logger, instrumentMetrics bool) (*redis.Client, error) {
	if !cfg.RedisEnabled() {
		return nil, nil
	}
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := redisotel.InstrumentTracing(client); err != nil {
		logger.Error().Err(err).Msg("instrument redis tracing")
	}
	if instrumentMetrics {
		if err := redisotel.InstrumentMetrics(client); err != nil {
			logger.Error().Err(err).Msg("instrument redis metrics")
		}
	}
	return client, nil
}

// NewRazorpay builds the shared provider client. Calls go through a circuit
// breaker and a traced transport; retries stay off unless configured.
func NewRazorpay(cfg *config.Config, logger zerolog.Logger) payment.Razorpay {
	breaker := resilience.NewBreaker(cfg.CircuitProviderMinReq, cfg.CircuitProviderFailureRate, cfg.CircuitProviderOpenFor).
		WithTarget("razorpay").
		WithLogger(logger)
	return payment.Razorpay{
		KeyID:     cfg.RazorpayKeyID,
		KeySecret: cfg.RazorpayKeySecret,
		BaseURL:   cfg.RazorpayBaseURL,
		HTTP: &resilience.HTTPClient{
			Client:      &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)},
			Breaker:     breaker,
			BaseBackoff: cfg.RetryBase,
			MaxAttempts: cfg.RazorpayMaxAttempts,
			Jitter:      cfg.RetryJitterPercent,
			Timeout:     cfg.RazorpayTimeout,
			Target:      "razorpay",
			Logger:      &logger,
		},
	}
}
