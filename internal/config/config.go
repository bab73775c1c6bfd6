package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	AppEnv             string
	Port               string
	RedisURL           string
	CORSAllowedOrigins []string
	TrustedProxies     []string
	ContentFile        string

	RazorpayKeyID       string
	RazorpayKeySecret   string
	RazorpayPublicKeyID string
	RazorpayBaseURL     string
	RazorpayTimeout     time.Duration
	RazorpayMaxAttempts int
	RetryBase           time.Duration
	RetryJitterPercent  float64

	PaymentDefaultCurrency string

	CircuitProviderMinReq      int
	CircuitProviderFailureRate float64
	CircuitProviderOpenFor     time.Duration

	IdempotencyTTL         time.Duration
	RateLimitPaymentMax    int
	RateLimitPaymentWindow time.Duration
	RateLimitContent       string
	BodyLimitBytes         int64

	SecurityHeadersEnabled bool
	HSTSEnabled            bool
	ShutdownTimeout        time.Duration
}

// Load reads configuration from environment variables and optional .env files.
func Load() (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", func(s string) string { return s }), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	keyID := strings.TrimSpace(k.String("RAZORPAY_KEY_ID"))
	cfg := &Config{
		AppEnv:             valueOrDefault(k.String("APP_ENV"), "development"),
		Port:               valueOrDefault(k.String("PORT"), "8080"),
		RedisURL:           strings.TrimSpace(k.String("REDIS_URL")),
		CORSAllowedOrigins: splitAndTrim(k.String("CORS_ALLOWED_ORIGINS")),
		TrustedProxies:     splitAndTrim(k.String("TRUSTED_PROXIES")),
		ContentFile:        strings.TrimSpace(k.String("CONTENT_FILE")),

		RazorpayKeyID:       keyID,
		RazorpayKeySecret:   strings.TrimSpace(k.String("RAZORPAY_KEY_SECRET")),
		RazorpayPublicKeyID: valueOrDefault(k.String("RAZORPAY_PUBLIC_KEY_ID"), keyID),
		RazorpayBaseURL:     valueOrDefault(k.String("RAZORPAY_BASE_URL"), "https://api.razorpay.com/v1"),
		RazorpayTimeout:     parseDuration(k.String("RAZORPAY_TIMEOUT"), "10s"),
		RazorpayMaxAttempts: parseInt(k.String("RAZORPAY_MAX_ATTEMPTS"), 1),
		RetryBase:           parseDuration(k.String("RETRY_BASE"), "200ms"),
		RetryJitterPercent:  parseFloat(k.String("RETRY_JITTER_PERCENT"), 0.2),

		PaymentDefaultCurrency: strings.ToUpper(valueOrDefault(k.String("PAYMENT_DEFAULT_CURRENCY"), "INR")),

		CircuitProviderMinReq:      parseInt(k.String("CIRCUIT_PROVIDER_MIN_REQUESTS"), 5),
		CircuitProviderFailureRate: parseFloat(k.String("CIRCUIT_PROVIDER_FAILURE_RATIO"), 0.5),
		CircuitProviderOpenFor:     parseDuration(k.String("CIRCUIT_PROVIDER_OPEN_FOR"), "30s"),

		IdempotencyTTL:         parseDuration(k.String("IDEMPOTENCY_TTL"), "24h"),
		RateLimitPaymentMax:    parseInt(k.String("RATE_LIMIT_PAYMENT_MAX"), 20),
		RateLimitPaymentWindow: parseDuration(k.String("RATE_LIMIT_PAYMENT_WINDOW"), "1m"),
		RateLimitContent:       valueOrDefault(k.String("RATE_LIMIT_CONTENT"), "300-M"),
		BodyLimitBytes:         int64(parseInt(k.String("BODY_LIMIT_BYTES"), 16<<10)),

		SecurityHeadersEnabled: parseBoolDefault(k.String("SECURITY_HEADERS_ENABLED"), true),
		HSTSEnabled:            parseBoolDefault(k.String("SECURITY_HSTS_ENABLED"), false),
		ShutdownTimeout:        parseDuration(k.String("SHUTDOWN_TIMEOUT"), "15s"),
	}

	if cfg.RazorpayKeyID == "" {
		return nil, errors.New("RAZORPAY_KEY_ID is required")
	}
	if cfg.RazorpayKeySecret == "" {
		return nil, errors.New("RAZORPAY_KEY_SECRET is required")
	}
	if cfg.RazorpayMaxAttempts < 1 {
		cfg.RazorpayMaxAttempts = 1
	}

	return cfg, nil
}

// HTTPAddr returns the address the HTTP server should bind to.
func (c *Config) HTTPAddr() string {
	port := strings.TrimSpace(c.Port)
	if port == "" {
		port = "8080"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return ":" + port
}

// RedisEnabled reports whether a Redis URL was configured.
func (c *Config) RedisEnabled() bool {
	return c.RedisURL != ""
}

func splitAndTrim(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func valueOrDefault(value, fallback string) string {
	if trimmed := strings.TrimSpace(value); trimmed != "" {
		return trimmed
	}
	return fallback
}

func parseDuration(value, fallback string) time.Duration {
	base := strings.TrimSpace(value)
	if base == "" {
		base = fallback
	}
	d, err := time.ParseDuration(base)
	if err != nil {
		d, _ = time.ParseDuration(fallback)
	}
	return d
}

func parseInt(value string, fallback int) int {
	parsed, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return parsed
}

func parseFloat(value string, fallback float64) float64 {
	parsed, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func parseBoolDefault(value string, fallback bool) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

// MustLoad behaves like Load but panics on error. Useful for tests and command entrypoints.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// LoadForTests allows tests to override environment variables without touching the real environment.
func LoadForTests(env map[string]string) (*Config, error) {
	original := make(map[string]string, len(env))
	for key := range env {
		original[key] = os.Getenv(key)
		if err := setEnvVar(key, env[key]); err != nil {
			return nil, err
		}
	}
	cfg, err := Load()
	restoreErr := restoreEnv(original)
	if err != nil {
		return nil, err
	}
	return cfg, restoreErr
}

func setEnvVar(key, value string) error {
	if value == "" {
		return os.Unsetenv(key)
	}
	return os.Setenv(key, value)
}

func restoreEnv(values map[string]string) error {
	var errs []string
	for key, value := range values {
		if err := setEnvVar(key, value); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", key, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("restore env: %s", strings.Join(errs, "; "))
	}
	return nil
}
