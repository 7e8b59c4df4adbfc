package errors

import (
	"errors"
	"net/http"
	"testing"
)

func TestAppError_Error(t *testing.T) {
	err := &AppError{
		Message: "something went wrong",
	}
	if err.Error() != "something went wrong" {
		t.Errorf("expected 'something went wrong', got %v", err.Error())
	}

	wrappedErr := errors.New("underlying error")
	errWithWrap := &AppError{
		Message: "failed operation",
		Err:     wrappedErr,
	}
	expected := "failed operation: underlying error"
	if errWithWrap.Error() != expected {
		t.Errorf("expected %q, got %q", expected, errWithWrap.Error())
	}
	if !errors.Is(errWithWrap, wrappedErr) {
		t.Error("expected errors.Is to find the wrapped error")
	}
}

func TestAppError_Code(t *testing.T) {
	err := &AppError{
		ErrorCode: "ERR_CODE_123",
	}
	if err.Code() != "ERR_CODE_123" {
		t.Errorf("expected ERR_CODE_123, got %v", err.Code())
	}
}

func TestAppError_IsSurfaced(t *testing.T) {
	tests := []struct {
		name string
		err  *AppError
		want bool
	}{
		{"validation is surfaced", NewValidationError("bad", "BAD", ""), true},
		{"configuration is surfaced", NewConfigurationError("no key", "NO_KEY"), true},
		{"auth is surfaced", NewAuthError("invalid key", "KEY", nil), true},
		{"rate limit is surfaced", NewRateLimitError("quota", "QUOTA", ""), true},
		{"provider is absorbed", NewProviderError("boom", "PROVIDER", errors.New("x")), false},
		{"unknown is absorbed", NewUnknownError("panic", errors.New("x")), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.IsSurfaced(); got != tt.want {
				t.Errorf("AppError.IsSurfaced() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestConstructorStatusCodes(t *testing.T) {
	tests := []struct {
		name string
		err  *AppError
		typ  ErrorType
		code int
	}{
		{"validation", NewValidationError("m", "C", "s"), ErrorTypeValidation, http.StatusBadRequest},
		{"configuration", NewConfigurationError("m", "C"), ErrorTypeConfiguration, http.StatusInternalServerError},
		{"auth", NewAuthError("m", "C", nil), ErrorTypeAuth, http.StatusUnauthorized},
		{"rate limit", NewRateLimitError("m", "C", "s"), ErrorTypeRateLimit, http.StatusTooManyRequests},
		{"provider", NewProviderError("m", "C", nil), ErrorTypeProvider, http.StatusOK},
		{"unknown", NewUnknownError("m", nil), ErrorTypeUnknown, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Type != tt.typ {
				t.Errorf("expected type %v, got %v", tt.typ, tt.err.Type)
			}
			if tt.err.StatusCode != tt.code {
				t.Errorf("expected %d, got %d", tt.code, tt.err.StatusCode)
			}
		})
	}
}

func TestNewValidationError(t *testing.T) {
	err := NewValidationError("invalid input", "VALIDATION_FAILED", "Check your fields")
	if err.RecoverySuggestion() != "Check your fields" {
		t.Errorf("expected 'Check your fields', got %v", err.RecoverySuggestion())
	}
}

func TestNewAuthError(t *testing.T) {
	underlying := errors.New("API_KEY_INVALID")
	err := NewAuthError("Invalid API key", "PROVIDER_AUTH_FAILED", underlying)
	if err.Err != underlying {
		t.Error("underlying error not correctly wrapped")
	}
}
