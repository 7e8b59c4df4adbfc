// Package router assembles the HTTP routes and middleware stack of the server.
package router

import (
	"net/http"
	"slices"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/riandyrn/otelchi"
	otelchimetric "github.com/riandyrn/otelchi/metric"
	"github.com/socialchef/pantry/internal/api"
	"github.com/socialchef/pantry/internal/config"
	"github.com/socialchef/pantry/internal/middleware"
	"github.com/socialchef/pantry/internal/sentry"
	"github.com/socialchef/pantry/internal/web"
	"go.opentelemetry.io/otel"
)

// Options selects the optional surfaces mounted by New.
type Options struct {
	// RateLimiter throttles the recipe endpoint when non-nil.
	RateLimiter *middleware.RateLimiter
	// History mounts GET /api/generations.
	History bool
}

// New returns the server's root handler.
func New(cfg *config.Config, srv *api.Server, opts Options) http.Handler {
	name := cfg.ServiceName
	if name == "" {
		name = "pantry"
	}

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(sentry.HTTPMiddleware)

	r.Use(otelchi.Middleware(name,
		otelchi.WithChiRoutes(r),
		otelchi.WithFilter(func(r *http.Request) bool {
			return r.URL.Path != "/health"
		}),
	))

	metricCfg := otelchimetric.NewBaseConfig(name, otelchimetric.WithMeterProvider(otel.GetMeterProvider()))
	r.Use(otelchimetric.NewRequestDurationMillis(metricCfg))
	r.Use(otelchimetric.NewRequestInFlight(metricCfg))
	r.Use(otelchimetric.NewResponseSizeBytes(metricCfg))

	origins := cfg.CORSAllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Retry-After", "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
		AllowCredentials: !slices.Contains(origins, "*"),
		MaxAge:           300,
	}))

	r.Get("/health", srv.HandleHealth)
	r.Method(http.MethodGet, "/", web.Handler())

	r.Group(func(r chi.Router) {
		if cfg.AuthEnabled() {
			r.Use(middleware.AuthMiddleware(cfg))
		}
		if opts.RateLimiter != nil {
			r.Use(opts.RateLimiter.Middleware)
		}
		r.Post("/api/generate-recipe", srv.HandleGenerateRecipe)
		if opts.History {
			r.Get("/api/generations", srv.HandleListGenerations)
		}
	})

	return r
}
