package errors

import (
	"fmt"
	"net/http"
)

// ErrorType defines the category of the error
type ErrorType string

const (
	ErrorTypeValidation    ErrorType = "VALIDATION_ERROR"
	ErrorTypeConfiguration ErrorType = "CONFIGURATION_ERROR"
	ErrorTypeAuth          ErrorType = "AUTH_ERROR"
	ErrorTypeRateLimit     ErrorType = "RATE_LIMIT_ERROR"
	ErrorTypeProvider      ErrorType = "PROVIDER_ERROR"
	ErrorTypeUnknown       ErrorType = "UNKNOWN_ERROR"
)

// AppError represents a structured error for the application
type AppError struct {
	Type          ErrorType `json:"type"`
	Message       string    `json:"message"`
	StatusCode    int       `json:"statusCode"`
	ErrorCode     string    `json:"errorCode"`
	IsOperational bool      `json:"isOperational"`
	Recovery      string    `json:"recoverySuggestion,omitempty"`
	Err           error     `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap exposes the underlying cause to errors.Is and errors.As
func (e *AppError) Unwrap() error {
	return e.Err
}

// Code returns the application-specific error code
func (e *AppError) Code() string {
	return e.ErrorCode
}

// RecoverySuggestion returns the suggestion on how to recover from the error
func (e *AppError) RecoverySuggestion() string {
	return e.Recovery
}

// IsSurfaced reports whether the error reaches the caller as a non-200 response.
// Provider and unknown errors are absorbed behind a fallback recipe.
func (e *AppError) IsSurfaced() bool {
	switch e.Type {
	case ErrorTypeValidation, ErrorTypeConfiguration, ErrorTypeAuth, ErrorTypeRateLimit:
		return true
	default:
		return false
	}
}

// NewValidationError creates a new validation error (400)
func NewValidationError(message string, errorCode string, suggestion string) *AppError {
	return &AppError{
		Type:          ErrorTypeValidation,
		Message:       message,
		StatusCode:    http.StatusBadRequest,
		ErrorCode:     errorCode,
		IsOperational: true,
		Recovery:      suggestion,
	}
}

// NewConfigurationError creates a new server configuration error (500)
func NewConfigurationError(message string, errorCode string) *AppError {
	return &AppError{
		Type:          ErrorTypeConfiguration,
		Message:       message,
		StatusCode:    http.StatusInternalServerError,
		ErrorCode:     errorCode,
		IsOperational: false,
		Recovery:      "Set the provider credential in the server environment and restart.",
	}
}

// NewAuthError creates a new provider credential error (401)
func NewAuthError(message string, errorCode string, err error) *AppError {
	return &AppError{
		Type:          ErrorTypeAuth,
		Message:       message,
		StatusCode:    http.StatusUnauthorized,
		ErrorCode:     errorCode,
		IsOperational: true,
		Recovery:      "Check that the configured API key is valid.",
		Err:           err,
	}
}

// NewRateLimitError creates a new rate limit error (429)
func NewRateLimitError(message string, errorCode string, suggestion string) *AppError {
	return &AppError{
		Type:          ErrorTypeRateLimit,
		Message:       message,
		StatusCode:    http.StatusTooManyRequests,
		ErrorCode:     errorCode,
		IsOperational: true,
		Recovery:      suggestion,
	}
}

// NewProviderError wraps an unclassified provider failure. The caller still gets a 200.
func NewProviderError(message string, errorCode string, err error) *AppError {
	return &AppError{
		Type:          ErrorTypeProvider,
		Message:       message,
		StatusCode:    http.StatusOK,
		ErrorCode:     errorCode,
		IsOperational: true,
		Recovery:      "Try again later; a fallback recipe was served.",
		Err:           err,
	}
}

// NewUnknownError wraps a failure caught by the outermost request guard.
func NewUnknownError(message string, err error) *AppError {
	return &AppError{
		Type:          ErrorTypeUnknown,
		Message:       message,
		StatusCode:    http.StatusOK,
		ErrorCode:     "UNKNOWN",
		IsOperational: false,
		Err:           err,
	}
}
