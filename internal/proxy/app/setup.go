// Package app wires the proxy: store client, pass-through service, middleware and routes.
package app

import (
	"log/slog"
	"net/http"

	"github.com/abgdnv/smartstock/internal/observability"
	"github.com/abgdnv/smartstock/internal/proxy/config"
	"github.com/abgdnv/smartstock/internal/proxy/service"
	"github.com/abgdnv/smartstock/internal/proxy/transport/rest"
	"github.com/abgdnv/smartstock/internal/store"
	"github.com/abgdnv/smartstock/pkg/server"
	"github.com/abgdnv/smartstock/pkg/web"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/unrolled/secure"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

type Dependencies struct {
	ProductService service.ProductService
	Metrics        *observability.Metrics
	Logger         *slog.Logger
}

// SetupDependencies builds the service over the configured store relation.
func SetupDependencies(client store.Client, cfg *config.Config, logger *slog.Logger) *Dependencies {
	metrics := observability.NewMetrics()
	return &Dependencies{
		ProductService: service.NewPassThrough(client, cfg.Store.Table, metrics, logger),
		Metrics:        metrics,
		Logger:         logger,
	}
}

// SetupHttpHandler builds the router with the full middleware chain.
// Used by tests to exercise the proxy without a listener.
func SetupHttpHandler(deps *Dependencies, cfg *config.Config) http.Handler {
	mux := server.NewChiRouter(deps.Logger)
	mux.Use(deps.Metrics.Middleware)
	mux.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.CORS.AllowedOrigins(),
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "Authorization", "X-Request-Id"},
		ExposedHeaders: []string{"X-Request-Id"},
		MaxAge:         cfg.CORS.MaxAge,
	}))
	mux.Use(secureHeaders())
	if cfg.RateLimit.Enabled {
		mux.Use(rateLimiter(cfg, deps.Logger))
	}
	wireRoutes(mux, deps)
	return otelhttp.NewHandler(mux, "proxy", otelhttp.WithSpanNameFormatter(spanName))
}

func spanName(_ string, r *http.Request) string {
	return r.Method + " " + r.URL.Path
}

func wireRoutes(mux *chi.Mux, deps *Dependencies) {
	mux.Method(http.MethodGet, "/metrics", deps.Metrics.Handler())
	rest.NewHandler(deps.ProductService, deps.Logger).RegisterRoutes(mux)
}

// SetupHttpServer creates the proxy HTTP server.
func SetupHttpServer(deps *Dependencies, cfg *config.Config) *http.Server {
	return server.NewHTTPServer(cfg.HTTPServer, SetupHttpHandler(deps, cfg))
}

func secureHeaders() func(http.Handler) http.Handler {
	return secure.New(secure.Options{
		FrameDeny:          true,
		ContentTypeNosniff: true,
		BrowserXssFilter:   true,
		ReferrerPolicy:     "strict-origin-when-cross-origin",
	}).Handler
}

func rateLimiter(cfg *config.Config, logger *slog.Logger) func(http.Handler) http.Handler {
	return httprate.Limit(cfg.RateLimit.Requests, cfg.RateLimit.Window,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			logger.WarnContext(r.Context(), "Rate limit exceeded", "remote_addr", r.RemoteAddr)
			web.RespondError(w, logger, http.StatusTooManyRequests, http.StatusText(http.StatusTooManyRequests))
		}),
	)
}
