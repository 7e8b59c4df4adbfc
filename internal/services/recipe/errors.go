package recipe

import (
	stderrors "errors"
	"fmt"
	"strings"
)

// Markers the provider uses to identify credential and quota failures.
const (
	reasonAPIKeyInvalid     = "API_KEY_INVALID"
	reasonQuotaExceeded     = "QUOTA_EXCEEDED"
	statusResourceExhausted = "RESOURCE_EXHAUSTED"
)

// ProviderError is a failure reported by the generation API itself.
type ProviderError struct {
	Provider   string
	HTTPStatus int    // 0 when the failure was not an HTTP error (e.g. a blocked response)
	Status     string // RPC status, e.g. "INVALID_ARGUMENT"
	Reason     string // first detail reason, or the block reason
	Message    string
}

// Error implements the error interface
func (e *ProviderError) Error() string {
	var sb strings.Builder
	if e.Provider != "" {
		sb.WriteString(e.Provider)
		sb.WriteString(" API error")
	} else {
		sb.WriteString("provider error")
	}
	if e.HTTPStatus != 0 {
		fmt.Fprintf(&sb, " (status %d)", e.HTTPStatus)
	}
	if e.Status != "" {
		sb.WriteString(" ")
		sb.WriteString(e.Status)
	}
	if e.Reason != "" {
		sb.WriteString(" [")
		sb.WriteString(e.Reason)
		sb.WriteString("]")
	}
	if e.Message != "" {
		sb.WriteString(": ")
		sb.WriteString(e.Message)
	}
	return sb.String()
}

// ErrorKind is the caller-visible category of a provider failure.
type ErrorKind string

const (
	KindNone      ErrorKind = ""
	KindAuth      ErrorKind = "auth"
	KindRateLimit ErrorKind = "rate_limit"
	KindOther     ErrorKind = "other"
)

// ClassifyError maps a provider failure to the category that decides the response.
// Structured provider errors are inspected first; anything else falls back to
// matching the two known markers in the error text, case-sensitively.
func ClassifyError(err error) ErrorKind {
	if err == nil {
		return KindNone
	}

	var perr *ProviderError
	if stderrors.As(err, &perr) {
		switch {
		case perr.Reason == reasonAPIKeyInvalid:
			return KindAuth
		case perr.Reason == reasonQuotaExceeded, perr.Status == statusResourceExhausted:
			return KindRateLimit
		}
	}

	msg := err.Error()
	switch {
	case strings.Contains(msg, reasonAPIKeyInvalid):
		return KindAuth
	case strings.Contains(msg, reasonQuotaExceeded):
		return KindRateLimit
	default:
		return KindOther
	}
}
