package recipe

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newGeminiServer(t *testing.T, status int, body string, check func(r *http.Request)) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if check != nil {
			check(r)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestGeminiProvider_Success(t *testing.T) {
	var gotBody generateContentRequest
	srv := newGeminiServer(t, http.StatusOK,
		`{"candidates":[{"content":{"role":"model","parts":[{"text":"# Fried Rice\n"},{"text":"Cook it."}]},"finishReason":"STOP"}]}`,
		func(r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "/v1beta/models/gemini-1.5-flash:generateContent", r.URL.Path)
			assert.Equal(t, "secret", r.Header.Get("x-goog-api-key"))
			assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
			require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		})

	p := NewGeminiProvider("secret", "gemini-1.5-flash", srv.URL+"/", 0)
	text, err := p.Generate(context.Background(), "make rice")

	require.NoError(t, err)
	assert.Equal(t, "# Fried Rice\nCook it.", text)
	require.Len(t, gotBody.Contents, 1)
	assert.Equal(t, "user", gotBody.Contents[0].Role)
	require.Len(t, gotBody.Contents[0].Parts, 1)
	assert.Equal(t, "make rice", gotBody.Contents[0].Parts[0].Text)
}

func TestGeminiProvider_NoCandidates(t *testing.T) {
	srv := newGeminiServer(t, http.StatusOK, `{"candidates":[]}`, nil)

	text, err := NewGeminiProvider("k", "m", srv.URL, 0).Generate(context.Background(), "p")

	require.NoError(t, err)
	assert.Empty(t, text)
}

func TestGeminiProvider_ErrorEnvelope(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantKind ErrorKind
		want     ProviderError
	}{
		{
			name:     "invalid key",
			status:   http.StatusBadRequest,
			body:     `{"error":{"code":400,"message":"API key not valid. Please pass a valid API key.","status":"INVALID_ARGUMENT","details":[{"@type":"type.googleapis.com/google.rpc.ErrorInfo","reason":"API_KEY_INVALID","domain":"googleapis.com"}]}}`,
			wantKind: KindAuth,
			want:     ProviderError{HTTPStatus: 400, Status: "INVALID_ARGUMENT", Reason: "API_KEY_INVALID"},
		},
		{
			name:     "quota",
			status:   http.StatusTooManyRequests,
			body:     `{"error":{"code":429,"message":"Resource has been exhausted (e.g. check quota).","status":"RESOURCE_EXHAUSTED"}}`,
			wantKind: KindRateLimit,
			want:     ProviderError{HTTPStatus: 429, Status: "RESOURCE_EXHAUSTED"},
		},
		{
			name:     "server error",
			status:   http.StatusInternalServerError,
			body:     `{"error":{"code":500,"message":"An internal error has occurred.","status":"INTERNAL"}}`,
			wantKind: KindOther,
			want:     ProviderError{HTTPStatus: 500, Status: "INTERNAL"},
		},
		{
			name:     "non-json body",
			status:   http.StatusBadGateway,
			body:     `<html>bad gateway</html>`,
			wantKind: KindOther,
			want:     ProviderError{HTTPStatus: 502},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newGeminiServer(t, tt.status, tt.body, nil)

			_, err := NewGeminiProvider("k", "gemini-1.5-flash", srv.URL, 0).Generate(context.Background(), "p")
			require.Error(t, err)

			var perr *ProviderError
			require.True(t, errors.As(err, &perr), "expected *ProviderError, got %T", err)
			assert.Equal(t, tt.want.HTTPStatus, perr.HTTPStatus)
			assert.Equal(t, tt.want.Status, perr.Status)
			assert.Equal(t, tt.want.Reason, perr.Reason)
			assert.NotEmpty(t, perr.Message)
			assert.Equal(t, tt.wantKind, ClassifyError(err))
		})
	}
}

func TestGeminiProvider_Blocked(t *testing.T) {
	t.Run("prompt feedback", func(t *testing.T) {
		srv := newGeminiServer(t, http.StatusOK, `{"promptFeedback":{"blockReason":"SAFETY"}}`, nil)

		_, err := NewGeminiProvider("k", "m", srv.URL, 0).Generate(context.Background(), "p")

		var perr *ProviderError
		require.True(t, errors.As(err, &perr))
		assert.Equal(t, "SAFETY", perr.Reason)
		assert.Equal(t, KindOther, ClassifyError(err))
	})

	t.Run("candidate finish reason", func(t *testing.T) {
		srv := newGeminiServer(t, http.StatusOK, `{"candidates":[{"content":{"parts":[]},"finishReason":"RECITATION"}]}`, nil)

		_, err := NewGeminiProvider("k", "m", srv.URL, 0).Generate(context.Background(), "p")

		var perr *ProviderError
		require.True(t, errors.As(err, &perr))
		assert.Equal(t, "RECITATION", perr.Reason)
	})

	t.Run("max tokens with text is not blocked", func(t *testing.T) {
		srv := newGeminiServer(t, http.StatusOK, `{"candidates":[{"content":{"parts":[{"text":"partial"}]},"finishReason":"MAX_TOKENS"}]}`, nil)

		text, err := NewGeminiProvider("k", "m", srv.URL, 0).Generate(context.Background(), "p")

		require.NoError(t, err)
		assert.Equal(t, "partial", text)
	})
}

func TestGeminiProvider_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewGeminiProvider("k", "m", url, 0).Generate(context.Background(), "p")

	require.Error(t, err)
	assert.Equal(t, KindOther, ClassifyError(err))
}

func TestGeminiProvider_MalformedSuccessBody(t *testing.T) {
	srv := newGeminiServer(t, http.StatusOK, `{"candidates":`, nil)

	_, err := NewGeminiProvider("k", "m", srv.URL, 0).Generate(context.Background(), "p")

	require.Error(t, err)
	assert.Equal(t, KindOther, ClassifyError(err))
}
