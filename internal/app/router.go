package app

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/noah-isme/portfolio-api/internal/common"
	"github.com/noah-isme/portfolio-api/internal/content"
	"github.com/noah-isme/portfolio-api/internal/health"
	"github.com/noah-isme/portfolio-api/internal/obs"
	"github.com/noah-isme/portfolio-api/internal/payment"
	"github.com/noah-isme/portfolio-api/internal/ratelimit"
	"github.com/noah-isme/portfolio-api/internal/security"
)

const verifyPaymentPath = "/api/verify-payment"

var createOrderPaths = []string{"/api/create-order", "/api/create-razorpay-order"}

// NewRouter assembles the HTTP surface.
func NewRouter(deps Dependencies) (http.Handler, error) {
	cfg := deps.Config
	if cfg == nil {
		return nil, errors.New("app: config is required")
	}
	if deps.Provider == nil {
		return nil, errors.New("app: payment provider is required")
	}
	logger := deps.Logger

	store := deps.Content
	if store == nil {
		loaded, err := content.Load(cfg.ContentFile)
		if err != nil {
			return nil, err
		}
		store = loaded
	}

	paymentHandler := &payment.Handler{
		Svc: &payment.Service{
			Provider:        deps.Provider,
			Secret:          cfg.RazorpayKeySecret,
			DefaultCurrency: cfg.PaymentDefaultCurrency,
		},
		PublicKeyID: cfg.RazorpayPublicKeyID,
	}
	contentHandler := content.NewHandler(content.HandlerConfig{Store: store})
	healthHandler := health.Handler{
		Checker:      health.RedisChecker{Client: deps.Redis},
		RedisTimeout: 300 * time.Millisecond,
	}

	idem := common.Idem{
		R:   deps.Redis,
		TTL: cfg.IdempotencyTTL,
		OnError: func(err error) {
			logger.Warn().Err(err).Msg("idempotency store unavailable")
		},
	}
	paymentLimit := ratelimit.Handler{
		Limiter: ratelimit.Limiter{Client: deps.Redis, Prefix: "ratelimit:payment:"},
		Config: ratelimit.Config{
			Key:    ratelimit.ByClientIP(""),
			Window: cfg.RateLimitPaymentWindow,
			Max:    cfg.RateLimitPaymentMax,
		},
		OnError: func(err error) {
			logger.Warn().Err(err).Msg("payment rate limiter unavailable")
		},
	}
	limiterStore, err := ratelimit.NewStore(deps.Redis)
	if err != nil {
		return nil, err
	}
	contentLimit, err := ratelimit.NewFixedWindow(limiterStore, cfg.RateLimitContent)
	if err != nil {
		return nil, err
	}
	contentLimit.OnError = func(err error) {
		logger.Warn().Err(err).Msg("content rate limiter unavailable")
	}
	contentCORS := cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins(cfg.CORSAllowedOrigins),
		AllowedMethods: []string{http.MethodGet, http.MethodHead, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "If-None-Match"},
		ExposedHeaders: []string{"ETag"},
		MaxAge:         300,
	})

	trusted, err := ratelimit.ParseTrustedProxies(cfg.TrustedProxies)
	if err != nil {
		return nil, err
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(ratelimit.ClientIP{Trusted: trusted}.Middleware)
	r.Use(middleware.Recoverer)
	r.Use(obs.RoutePatternMiddleware)
	if deps.Tracing {
		r.Use(obs.TracingMiddleware)
	}
	if deps.HTTPMetrics != nil {
		r.Use(obs.HTTPObs{Metrics: deps.HTTPMetrics}.Middleware)
	}
	r.Use(obs.RequestLogger{Logger: logger}.Middleware)
	r.Use(security.Headers{Enable: cfg.SecurityHeadersEnabled, EnableHSTS: cfg.HSTSEnabled}.Middleware)

	if deps.Metrics != nil {
		r.Handle("/metrics", deps.Metrics)
	}
	if deps.Pprof.Enabled {
		r.Mount(pprofPrefix, protectPprof(newPprofMux(), deps.Pprof.User, deps.Pprof.Pass, cfg.AppEnv == "development"))
	}

	r.Get("/health/live", healthHandler.Live)
	r.Get("/health/ready", healthHandler.Ready)

	r.Group(func(p chi.Router) {
		p.Use(security.PaymentCORS)
		p.Use(security.BodyLimit{Max: cfg.BodyLimitBytes}.Middleware)
		p.Use(paymentLimit.Middleware)

		for _, path := range createOrderPaths {
			p.Options(path, paymentHandler.Preflight)
			p.With(idem.Middleware).Post(path, paymentHandler.CreateOrder)
		}
		p.Options(verifyPaymentPath, paymentHandler.Preflight)
		p.Post(verifyPaymentPath, paymentHandler.VerifyPayment)
	})
	// group middleware only wraps matched routes; a wrong method on a
	// payment path still carries the payment CORS headers
	paymentMethodNotAllowed := security.PaymentCORS(http.HandlerFunc(methodNotAllowed))
	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		if isPaymentPath(req.URL.Path) {
			paymentMethodNotAllowed.ServeHTTP(w, req)
			return
		}
		methodNotAllowed(w, req)
	})

	r.With(contentCORS).Get("/api/payment-config", paymentHandler.Config)

	r.Route("/api/v1", func(v chi.Router) {
		v.Use(contentCORS)
		v.Use(contentLimit.Middleware)
		v.Get("/profile", contentHandler.Profile)
		v.Get("/projects", contentHandler.Projects)
		v.Get("/projects/{slug}", contentHandler.ProjectDetail)
		v.Get("/pages", contentHandler.Pages)
		v.Get("/pages/{slug}", contentHandler.PageDetail)
	})

	return r, nil
}

func isPaymentPath(path string) bool {
	if path == verifyPaymentPath {
		return true
	}
	for _, p := range createOrderPaths {
		if path == p {
			return true
		}
	}
	return false
}

func methodNotAllowed(w http.ResponseWriter, _ *http.Request) {
	common.JSONMessage(w, http.StatusMethodNotAllowed, "Method not allowed")
}

func allowedOrigins(origins []string) []string {
	out := make([]string, 0, len(origins))
	for _, origin := range origins {
		if trimmed := strings.TrimSpace(origin); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}
