package httpclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestWithProvider(t *testing.T) {
	ctx := WithProvider(context.Background(), "Gemini")
	if got := ProviderFrom(ctx); got != "Gemini" {
		t.Errorf("ProviderFrom() = %q, want Gemini", got)
	}
	if got := ProviderFrom(context.Background()); got != "" {
		t.Errorf("ProviderFrom(empty) = %q, want empty", got)
	}
}

func TestSpanName(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "http://example.com/v1beta/models/m:generateContent", nil)
	if got := spanName("", req); got != "POST /v1beta/models/m:generateContent" {
		t.Errorf("unexpected span name %q", got)
	}

	req = req.WithContext(WithProvider(req.Context(), "Gemini"))
	if got := spanName("", req); got != "Gemini: POST /v1beta/models/m:generateContent" {
		t.Errorf("unexpected span name %q", got)
	}
}

func TestNewInstrumentedClient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	defer srv.Close()

	client := NewInstrumentedClient(5 * time.Second)
	if client.Timeout != 5*time.Second {
		t.Errorf("expected 5s timeout, got %v", client.Timeout)
	}

	req, _ := http.NewRequestWithContext(WithProvider(context.Background(), "Test"), http.MethodGet, srv.URL, nil)
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusTeapot {
		t.Errorf("expected 418 to pass through, got %d", resp.StatusCode)
	}
}

func TestSharedClientHasNoTimeout(t *testing.T) {
	if InstrumentedClient.Transport == nil {
		t.Fatal("expected transport to be set")
	}
	if InstrumentedClient.Timeout != 0 {
		t.Errorf("expected shared client to have no timeout, got %v", InstrumentedClient.Timeout)
	}
}
