// Package integration runs the full server stack against a fake Gemini API,
// an in-process task queue and an in-memory generation store.
package integration

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"sync"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5"
	"github.com/socialchef/pantry/internal/api"
	"github.com/socialchef/pantry/internal/config"
	"github.com/socialchef/pantry/internal/db"
	"github.com/socialchef/pantry/internal/history"
	"github.com/socialchef/pantry/internal/router"
	"github.com/socialchef/pantry/internal/services/recipe"
	"github.com/socialchef/pantry/internal/worker"
	"github.com/stretchr/testify/require"
)

// ============================================================================
// Generation store
// ============================================================================

// memoryStore implements the worker's GenerationStore and the API's GenerationLister.
type memoryStore struct {
	mu   sync.Mutex
	rows []db.Generation
	err  error
}

func (s *memoryStore) CreateGeneration(_ context.Context, arg db.CreateGenerationParams) (db.Generation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return db.Generation{}, s.err
	}
	for _, row := range s.rows {
		if row.ID == arg.ID {
			return db.Generation{}, pgx.ErrNoRows
		}
	}
	g := db.Generation{
		ID:            arg.ID,
		Ingredients:   arg.Ingredients,
		Outcome:       arg.Outcome,
		StatusCode:    arg.StatusCode,
		RecipeLength:  arg.RecipeLength,
		ProviderError: arg.ProviderError,
		DurationMs:    arg.DurationMs,
		CreatedAt:     arg.CreatedAt,
	}
	s.rows = append(s.rows, g)
	return g, nil
}

func (s *memoryStore) ListGenerations(_ context.Context, limit int32) ([]db.Generation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := slices.Clone(s.rows)
	slices.Reverse(out)
	if int(limit) < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (s *memoryStore) all() []db.Generation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.rows)
}

// ============================================================================
// Task queue
// ============================================================================

// loopbackQueue runs enqueued tasks synchronously through the worker mux.
// Task ids are unique, as with a real asynq client.
type loopbackQueue struct {
	handler asynq.Handler

	mu      sync.Mutex
	seen    map[string]bool
	results []error
}

func newLoopbackQueue(handler asynq.Handler) *loopbackQueue {
	return &loopbackQueue{handler: handler, seen: make(map[string]bool)}
}

func (q *loopbackQueue) EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	var id string
	for _, o := range opts {
		if o.Type() == asynq.TaskIDOpt {
			id, _ = o.Value().(string)
		}
	}

	q.mu.Lock()
	if id != "" && q.seen[id] {
		q.mu.Unlock()
		return nil, asynq.ErrTaskIDConflict
	}
	q.seen[id] = true
	q.mu.Unlock()

	err := q.handler.ProcessTask(ctx, task)

	q.mu.Lock()
	q.results = append(q.results, err)
	q.mu.Unlock()
	return &asynq.TaskInfo{ID: id, Type: task.Type()}, nil
}

func (q *loopbackQueue) processed() []error {
	q.mu.Lock()
	defer q.mu.Unlock()
	return slices.Clone(q.results)
}

// ============================================================================
// Gemini API
// ============================================================================

type geminiRequest struct {
	Path   string
	APIKey string
	Prompt string
}

// fakeGemini serves generateContent with a canned status and body.
type fakeGemini struct {
	*httptest.Server

	mu       sync.Mutex
	status   int
	body     string
	requests []geminiRequest
}

func newFakeGemini(t *testing.T) *fakeGemini {
	t.Helper()
	f := &fakeGemini{status: http.StatusOK}
	f.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Contents []struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"contents"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)

		var prompt strings.Builder
		for _, c := range req.Contents {
			for _, p := range c.Parts {
				prompt.WriteString(p.Text)
			}
		}

		f.mu.Lock()
		f.requests = append(f.requests, geminiRequest{
			Path:   r.URL.Path,
			APIKey: r.Header.Get("x-goog-api-key"),
			Prompt: prompt.String(),
		})
		status, body := f.status, f.body
		f.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(f.Close)
	return f
}

func (f *fakeGemini) respond(status int, body string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.status, f.body = status, body
}

func (f *fakeGemini) respondText(text string) {
	payload, _ := json.Marshal(map[string]any{
		"candidates": []any{map[string]any{
			"content":      map[string]any{"role": "model", "parts": []any{map[string]string{"text": text}}},
			"finishReason": "STOP",
		}},
	})
	f.respond(http.StatusOK, string(payload))
}

func (f *fakeGemini) calls() []geminiRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.requests)
}

// ============================================================================
// Stack
// ============================================================================

type stack struct {
	handler http.Handler
	gemini  *fakeGemini
	store   *memoryStore
	queue   *loopbackQueue
}

type stackOptions struct {
	apiKey    string
	jwtSecret string
	jwtIssuer string
}

func newStack(t *testing.T, opts stackOptions) *stack {
	t.Helper()

	gemini := newFakeGemini(t)

	cfg := &config.Config{
		GeminiKey:     opts.apiKey,
		AuthJWTSecret: opts.jwtSecret,
		AuthJWTIssuer: opts.jwtIssuer,
	}
	cfg.Recipe.BaseURL = gemini.URL
	cfg.History.Enabled = true
	cfg.SetDefaults()

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := &memoryStore{}
	queue := newLoopbackQueue(worker.NewServeMux(worker.NewGenerationProcessor(store, nil)))
	recorder := history.NewQueueRecorder(queue, cfg.History.Queue, cfg.History.MaxRetry)

	recipes := recipe.NewService(cfg.GeminiKey, recipe.NewProvider(cfg.Recipe, cfg.GeminiKey), cfg.Recipe.MinRecipeLength)
	srv := api.NewServer(cfg, recipes, recorder, store, log)

	return &stack{
		handler: router.New(cfg, srv, router.Options{History: true}),
		gemini:  gemini,
		store:   store,
		queue:   queue,
	}
}

func (s *stack) post(t *testing.T, body, token string) (*httptest.ResponseRecorder, recipe.Response) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/generate-recipe", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	s.handler.ServeHTTP(rr, req)

	var resp recipe.Response
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp), "body: %s", rr.Body.String())
	return rr, resp
}

func (s *stack) listGenerations(t *testing.T, query string) api.GenerationsResponse {
	t.Helper()
	rr := httptest.NewRecorder()
	s.handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/generations"+query, nil))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var resp api.GenerationsResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	return resp
}
