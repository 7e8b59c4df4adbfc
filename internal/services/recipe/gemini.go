package recipe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/socialchef/pantry/internal/httpclient"
	"github.com/socialchef/pantry/internal/metrics"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const geminiProviderName = "Gemini"

// maxErrorBody bounds how much of an undecodable error body ends up in the error message.
const maxErrorBody = 512

// GeminiProvider implements TextGenerator for the Gemini generateContent API
type GeminiProvider struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
}

// NewGeminiProvider creates a new Gemini text provider.
// A zero timeout leaves the request bounded only by the caller's context.
func NewGeminiProvider(apiKey, model, baseURL string, timeout time.Duration) *GeminiProvider {
	return &GeminiProvider{
		apiKey:  apiKey,
		model:   model,
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  httpclient.NewInstrumentedClient(timeout),
	}
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type generateContentRequest struct {
	Contents []geminiContent `json:"contents"`
}

type generateContentResponse struct {
	Candidates []struct {
		Content      geminiContent `json:"content"`
		FinishReason string        `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback *struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback"`
}

type googleErrorEnvelope struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
		Details []struct {
			Reason string `json:"reason"`
		} `json:"details"`
	} `json:"error"`
}

// Finish reasons that mean the candidate was withheld.
var blockedFinishReasons = map[string]bool{
	"SAFETY":             true,
	"RECITATION":         true,
	"BLOCKLIST":          true,
	"PROHIBITED_CONTENT": true,
	"SPII":               true,
}

// Generate sends a single-turn prompt and returns the concatenated text of the first candidate.
func (p *GeminiProvider) Generate(ctx context.Context, prompt string) (string, error) {
	startTime := time.Now()
	defer func() {
		duration := time.Since(startTime).Seconds()
		attrs := []attribute.KeyValue{
			attribute.String("provider", "gemini"),
			attribute.String("model", p.model),
		}
		metrics.AIGenerationDuration.Record(ctx, duration, metric.WithAttributes(attrs...))
		metrics.ExternalAPIDuration.Record(ctx, duration, metric.WithAttributes(attrs...))
		metrics.ExternalAPICallsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	}()

	body, err := json.Marshal(generateContentRequest{
		Contents: []geminiContent{{Role: "user", Parts: []geminiPart{{Text: prompt}}}},
	})
	if err != nil {
		return "", err
	}

	endpoint := fmt.Sprintf("%s/v1beta/models/%s:generateContent", p.baseURL, url.PathEscape(p.model))
	httpReq, err := http.NewRequestWithContext(httpclient.WithProvider(ctx, geminiProviderName), http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("x-goog-api-key", p.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("gemini request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read gemini response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return "", decodeGeminiError(resp.StatusCode, respBody)
	}

	var genResp generateContentResponse
	if err := json.Unmarshal(respBody, &genResp); err != nil {
		return "", fmt.Errorf("failed to decode gemini response: %w", err)
	}

	if genResp.PromptFeedback != nil && genResp.PromptFeedback.BlockReason != "" {
		return "", &ProviderError{
			Provider: geminiProviderName,
			Reason:   genResp.PromptFeedback.BlockReason,
			Message:  "prompt was blocked",
		}
	}

	if len(genResp.Candidates) == 0 {
		return "", nil
	}

	first := genResp.Candidates[0]
	var sb strings.Builder
	for _, part := range first.Content.Parts {
		sb.WriteString(part.Text)
	}

	if sb.Len() == 0 && blockedFinishReasons[first.FinishReason] {
		return "", &ProviderError{
			Provider: geminiProviderName,
			Reason:   first.FinishReason,
			Message:  "candidate was blocked",
		}
	}

	return sb.String(), nil
}

func decodeGeminiError(statusCode int, body []byte) error {
	perr := &ProviderError{
		Provider:   geminiProviderName,
		HTTPStatus: statusCode,
	}

	var env googleErrorEnvelope
	if err := json.Unmarshal(body, &env); err != nil || (env.Error.Message == "" && env.Error.Status == "") {
		msg := strings.TrimSpace(string(body))
		if len(msg) > maxErrorBody {
			msg = msg[:maxErrorBody]
		}
		perr.Message = msg
		return perr
	}

	perr.Status = env.Error.Status
	perr.Message = env.Error.Message
	for _, d := range env.Error.Details {
		if d.Reason != "" {
			perr.Reason = d.Reason
			break
		}
	}
	return perr
}
