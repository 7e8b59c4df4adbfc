package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/socialchef/pantry/internal/api"
	"github.com/socialchef/pantry/internal/config"
	"github.com/socialchef/pantry/internal/db"
	"github.com/socialchef/pantry/internal/history"
	"github.com/socialchef/pantry/internal/logger"
	"github.com/socialchef/pantry/internal/metrics"
	"github.com/socialchef/pantry/internal/middleware"
	"github.com/socialchef/pantry/internal/router"
	"github.com/socialchef/pantry/internal/sentry"
	"github.com/socialchef/pantry/internal/services/recipe"
	"github.com/socialchef/pantry/internal/telemetry"
	"github.com/socialchef/pantry/internal/worker"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

func main() {
	defer sentry.Recover()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize telemetry
	if cfg.OtelExporterOTLPEndpoint != "" {
		shutdown, err := telemetry.InitTelemetry(ctx, cfg.ServiceName, cfg.ServiceVersion, cfg.Env, cfg.OtelExporterOTLPEndpoint, cfg.OTLPHeaders())
		if err != nil {
			slog.Warn("Failed to init telemetry", "error", err)
		} else {
			defer shutdown(context.WithoutCancel(ctx))
		}
	}

	// Initialize Sentry
	if err := sentry.Init(cfg.SentryDSN, cfg.Env, cfg.ServiceName, cfg.ServiceVersion); err != nil {
		slog.Warn("Failed to init Sentry", "error", err)
	} else if cfg.SentryDSN != "" {
		defer sentry.Flush(2 * time.Second)
	}

	if err := metrics.Init(); err != nil {
		slog.Warn("Failed to init business metrics", "error", err)
	}

	logger := logger.New(cfg.Env)
	slog.SetDefault(logger)

	if cfg.GeminiKey == "" {
		slog.Warn("GEMINI_API_KEY is not set; recipe requests will fail with a configuration error")
		sentry.CaptureMessage("GEMINI_API_KEY is not set")
	}

	recipes := recipe.NewService(cfg.GeminiKey, recipe.NewProvider(cfg.Recipe, cfg.GeminiKey), cfg.Recipe.MinRecipeLength)

	// Optional generation history
	var recorder history.Recorder = history.NopRecorder{}
	if cfg.History.Enabled {
		asynqClient, err := worker.NewClient(cfg.RedisURL)
		if err != nil {
			log.Fatalf("Failed to create task client: %v", err)
		}
		defer asynqClient.Close()
		recorder = history.NewQueueRecorder(asynqClient, cfg.History.Queue, cfg.History.MaxRetry)
	}

	var generations api.GenerationLister
	if cfg.DatabaseURL != "" {
		pool, err := db.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		defer pool.Close()
		generations = db.New(pool)
	}

	// Optional rate limiting
	var limiter *middleware.RateLimiter
	if cfg.RateLimit.Enabled {
		rdb, err := db.NewRedis(ctx, cfg.RedisURL)
		if err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		defer rdb.Close()
		limiter = middleware.NewRateLimiter(middleware.NewRedisCounter(rdb), middleware.RateLimitConfig{
			Limit:  cfg.RateLimit.Limit,
			Window: cfg.RateLimit.Window,
		}, logger)
	}

	apiServer := api.NewServer(cfg, recipes, recorder, generations, logger)
	handler := router.New(cfg, apiServer, router.Options{
		RateLimiter: limiter,
		History:     generations != nil,
	})

	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("Starting server",
			"port", cfg.Port,
			"model", cfg.Recipe.Model,
			"auth", cfg.AuthEnabled(),
			"rate_limit", limiter != nil,
			"history", cfg.History.Enabled)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		slog.Error("Server failed", "error", err)
	}
}
