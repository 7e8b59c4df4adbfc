package router

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/socialchef/pantry/internal/api"
	"github.com/socialchef/pantry/internal/config"
	"github.com/socialchef/pantry/internal/db"
	"github.com/socialchef/pantry/internal/middleware"
	"github.com/socialchef/pantry/internal/services/recipe"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const stubRecipe = "# Omelette\n\nWhisk the eggs, pour into a hot buttered pan, fold and serve immediately."

type countingCounter struct {
	mu     sync.Mutex
	counts map[string]int64
}

func (c *countingCounter) Incr(_ context.Context, key string, _ time.Duration) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.counts == nil {
		c.counts = make(map[string]int64)
	}
	c.counts[key]++
	return c.counts[key], nil
}

type emptyLister struct{}

func (emptyLister) ListGenerations(context.Context, int32) ([]db.Generation, error) {
	return nil, nil
}

func newHandler(t *testing.T, cfg *config.Config, opts Options) http.Handler {
	t.Helper()
	cfg.SetDefaults()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	gen := recipe.TextGeneratorFunc(func(context.Context, string) (string, error) {
		return stubRecipe, nil
	})
	srv := api.NewServer(cfg, recipe.NewService("key", gen, cfg.Recipe.MinRecipeLength), nil, emptyLister{}, log)
	return New(cfg, srv, opts)
}

func postRecipe(h http.Handler, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/generate-recipe", strings.NewReader(`{"ingredients":"eggs"}`))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestRoutes(t *testing.T) {
	h := newHandler(t, &config.Config{}, Options{})

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "OK", rr.Body.String())

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "<textarea")

	rr = postRecipe(h, "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "Omelette")

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/generate-recipe", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}

func TestHistoryRouteIsOptional(t *testing.T) {
	rr := httptest.NewRecorder()
	newHandler(t, &config.Config{}, Options{}).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/generations", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = httptest.NewRecorder()
	newHandler(t, &config.Config{}, Options{History: true}).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/generations", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"generations":[]}`, rr.Body.String())
}

func TestAuthEnabled(t *testing.T) {
	cfg := &config.Config{AuthJWTSecret: "test-secret", AuthJWTIssuer: "pantry"}
	h := newHandler(t, cfg, Options{})

	rr := postRecipe(h, "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "user-1",
		"iss": "pantry",
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte("test-secret"))
	require.NoError(t, err)

	rr = postRecipe(h, signed)
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rr.Code, "health stays public")
}

func TestRateLimiterApplied(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	limiter := middleware.NewRateLimiter(&countingCounter{}, middleware.RateLimitConfig{Limit: 2, Window: time.Hour}, log)
	h := newHandler(t, &config.Config{}, Options{RateLimiter: limiter})

	assert.Equal(t, http.StatusOK, postRecipe(h, "").Code)
	assert.Equal(t, http.StatusOK, postRecipe(h, "").Code)

	rr := postRecipe(h, "")
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.NotEmpty(t, rr.Header().Get("Retry-After"))
}

func TestCORSPreflight(t *testing.T) {
	h := newHandler(t, &config.Config{CORSAllowedOrigins: []string{"https://pantry.example.com"}}, Options{})

	req := httptest.NewRequest(http.MethodOptions, "/api/generate-recipe", nil)
	req.Header.Set("Origin", "https://pantry.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	assert.Equal(t, "https://pantry.example.com", rr.Header().Get("Access-Control-Allow-Origin"))
}
