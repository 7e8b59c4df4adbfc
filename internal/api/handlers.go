package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/socialchef/pantry/internal/config"
	"github.com/socialchef/pantry/internal/db"
	"github.com/socialchef/pantry/internal/history"
	"github.com/socialchef/pantry/internal/logger"
	"github.com/socialchef/pantry/internal/metrics"
	"github.com/socialchef/pantry/internal/middleware"
	"github.com/socialchef/pantry/internal/sentry"
	"github.com/socialchef/pantry/internal/services/recipe"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MaxBodyBytes caps the request body of the recipe endpoint.
const MaxBodyBytes = 1 << 20

const (
	defaultGenerationsLimit = 20
	maxGenerationsLimit     = 100
)

// recordTimeout bounds how long a finished request waits on the history queue.
const recordTimeout = 2 * time.Second

var errNullBody = errors.New("request body is null")

// GenerationLister reads stored generation records. *db.Queries satisfies it.
type GenerationLister interface {
	ListGenerations(ctx context.Context, limit int32) ([]db.Generation, error)
}

type Server struct {
	cfg         *config.Config
	recipes     *recipe.Service
	history     history.Recorder
	generations GenerationLister
	logger      *slog.Logger
}

// NewServer wires the HTTP handlers. recorder and generations may be nil when
// history is disabled.
func NewServer(cfg *config.Config, recipes *recipe.Service, recorder history.Recorder, generations GenerationLister, log *slog.Logger) *Server {
	if recorder == nil {
		recorder = history.NopRecorder{}
	}
	if log == nil {
		log = slog.Default()
	}
	return &Server{
		cfg:         cfg,
		recipes:     recipes,
		history:     recorder,
		generations: generations,
		logger:      log,
	}
}

// HandleGenerateRecipe serves POST /api/generate-recipe.
//
// Failures that happen before the provider is consulted (unreadable body, panics)
// are answered with the generic recipe and a 200.
func (s *Server) HandleGenerateRecipe(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()

	var result recipe.Result
	defer func() {
		if rec := recover(); rec != nil {
			result = recipe.GenericResult(fmt.Errorf("panic: %v", rec))
			sentry.CapturePanic(ctx, rec, map[string]string{"outcome": string(result.Outcome)})
			s.logger.ErrorContext(ctx, "Recovered panic in generate-recipe", "panic", rec)
			writeJSON(w, result.StatusCode, result.Response())
			flush(w)
		} else if result.Masked() {
			sentry.CaptureError(ctx, result.Err, map[string]string{"outcome": string(result.Outcome)})
		}
		s.observe(ctx, result, time.Since(start))
	}()

	result = s.generate(w, r)
	writeJSON(w, result.StatusCode, result.Response())
	flush(w)
}

func (s *Server) generate(w http.ResponseWriter, r *http.Request) recipe.Result {
	if !s.recipes.Configured() {
		s.logger.ErrorContext(r.Context(), "GEMINI_API_KEY environment variable is not set")
		return recipe.ConfigurationResult()
	}

	payload, err := decodePayload(w, r)
	if err != nil {
		s.logger.WarnContext(r.Context(), "Unreadable generate-recipe body", "error", err)
		return recipe.GenericResult(err)
	}

	// The provider call outlives a disconnected client.
	return s.recipes.Generate(context.WithoutCancel(r.Context()), payload)
}

// decodePayload reads exactly one JSON value from the body.
func decodePayload(w http.ResponseWriter, r *http.Request) (any, error) {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, MaxBodyBytes))

	var payload any
	if err := dec.Decode(&payload); err != nil {
		return nil, fmt.Errorf("invalid JSON body: %w", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("invalid JSON body: unexpected data after value")
	}
	if payload == nil {
		return nil, errNullBody
	}
	return payload, nil
}

// observe emits the outcome of one request as a log line, metrics and a history record.
func (s *Server) observe(ctx context.Context, result recipe.Result, duration time.Duration) {
	attrs := []any{
		"outcome", result.Outcome,
		"status", result.StatusCode,
		"duration_ms", duration.Milliseconds(),
		logger.WithTraceContext(ctx),
	}
	if userID, ok := middleware.GetUserID(ctx); ok {
		attrs = append(attrs, "user_id", userID)
	}
	if result.Err != nil {
		attrs = append(attrs, "error", result.Err.Error())
	}

	switch {
	case result.Outcome == recipe.OutcomeConfigurationError:
		s.logger.ErrorContext(ctx, "Recipe generation failed", attrs...)
	case result.Err != nil:
		s.logger.WarnContext(ctx, "Recipe generation failed", attrs...)
	default:
		s.logger.InfoContext(ctx, "Recipe generated", attrs...)
	}

	metricAttrs := metric.WithAttributes(
		attribute.String("outcome", string(result.Outcome)),
		attribute.Int("status_code", result.StatusCode),
	)
	metrics.RecipeGenerationsTotal.Add(ctx, 1, metricAttrs)
	metrics.RecipeGenerationDuration.Record(ctx, duration.Seconds(), metricAttrs)

	s.record(ctx, result, duration)
}

func (s *Server) record(ctx context.Context, result recipe.Result, duration time.Duration) {
	rec := history.Record{
		ID:           uuid.New(),
		Ingredients:  result.Ingredients,
		Outcome:      string(result.Outcome),
		StatusCode:   result.StatusCode,
		RecipeLength: len([]rune(result.Recipe)),
		Duration:     duration,
		CreatedAt:    time.Now().UTC(),
	}
	switch result.Outcome {
	case recipe.OutcomeAuthError, recipe.OutcomeRateLimitError, recipe.OutcomeProviderFallback:
		if result.Err != nil && result.Err.Err != nil {
			rec.ProviderError = result.Err.Err.Error()
		}
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), recordTimeout)
	defer cancel()
	if err := s.history.Record(ctx, rec); err != nil {
		s.logger.WarnContext(ctx, "Failed to record generation", "error", err, "generation_id", rec.ID)
	}
}

type GenerationResponse struct {
	ID            string    `json:"id"`
	Ingredients   string    `json:"ingredients"`
	Outcome       string    `json:"outcome"`
	StatusCode    int       `json:"status_code"`
	RecipeLength  int       `json:"recipe_length"`
	ProviderError string    `json:"provider_error,omitempty"`
	DurationMs    int64     `json:"duration_ms"`
	CreatedAt     time.Time `json:"created_at"`
}

type GenerationsResponse struct {
	Generations []GenerationResponse `json:"generations"`
}

// HandleListGenerations serves GET /api/generations?limit=N, newest first.
func (s *Server) HandleListGenerations(w http.ResponseWriter, r *http.Request) {
	if s.generations == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "History is not enabled"})
		return
	}

	limit := defaultGenerationsLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "limit must be a positive integer"})
			return
		}
		limit = min(n, maxGenerationsLimit)
	}

	rows, err := s.generations.ListGenerations(r.Context(), int32(limit))
	if err != nil {
		s.logger.ErrorContext(r.Context(), "Failed to list generations", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to list generations"})
		return
	}

	resp := GenerationsResponse{Generations: make([]GenerationResponse, 0, len(rows))}
	for _, g := range rows {
		item := GenerationResponse{
			Ingredients:   g.Ingredients,
			Outcome:       g.Outcome,
			StatusCode:    int(g.StatusCode),
			RecipeLength:  int(g.RecipeLength),
			ProviderError: g.ProviderError.String,
			DurationMs:    g.DurationMs,
			CreatedAt:     g.CreatedAt.Time,
		}
		if g.ID.Valid {
			item.ID = uuid.UUID(g.ID.Bytes).String()
		}
		resp.Generations = append(resp.Generations, item)
	}

	writeJSON(w, http.StatusOK, resp)
}

// HandleHealth serves GET /health.
func (s *Server) HandleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		slog.Error("Failed to encode response", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	data = append(data, '\n')

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		slog.Error("Failed to write response", "error", err)
	}
}

// flush sends the complete response before any post-response work runs.
// With Content-Length set the client sees the end of the body here.
func flush(w http.ResponseWriter) {
	if err := http.NewResponseController(w).Flush(); err != nil && !errors.Is(err, http.ErrNotSupported) {
		slog.Warn("Failed to flush response", "error", err)
	}
}
