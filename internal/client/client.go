package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/socialchef/pantry/internal/httpclient"
)

// DefaultURL is the recipe endpoint of a locally running server.
const DefaultURL = "http://localhost:8080/api/generate-recipe"

// Client posts ingredients to the recipe endpoint.
type Client struct {
	url        string
	token      string
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithToken sends a bearer token with every request.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// WithHTTPClient replaces the instrumented default client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func New(url string, opts ...Option) *Client {
	if url == "" {
		url = DefaultURL
	}
	c := &Client{
		url:        url,
		httpClient: httpclient.InstrumentedClient,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Generate posts ingredients and returns the status and decoded body.
// A non-JSON body yields an empty Response with the status intact.
func (c *Client) Generate(ctx context.Context, ingredients string) (int, Response, error) {
	body, err := json.Marshal(map[string]string{"ingredients": ingredients})
	if err != nil {
		return 0, Response{}, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return 0, Response{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, Response{}, fmt.Errorf("request failed after %s: %w", time.Since(start).Round(time.Millisecond), err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, Response{}, fmt.Errorf("failed to read response: %w", err)
	}

	var out Response
	_ = json.Unmarshal(raw, &out)
	return resp.StatusCode, out, nil
}
