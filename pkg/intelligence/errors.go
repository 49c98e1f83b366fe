package intelligence

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"
)

// ErrorType indicates what part of the provider configuration failed.
type ErrorType string

const (
	ErrorTypeAuth      ErrorType = "auth"
	ErrorTypeModel     ErrorType = "model"
	ErrorTypeEndpoint  ErrorType = "endpoint"
	ErrorTypeRateLimit ErrorType = "rate_limit"
	ErrorTypeResponse  ErrorType = "response"
	ErrorTypeUnknown   ErrorType = "unknown"
)

var (
	// ErrInvalidResponse is returned when provider output does not satisfy the assessment contract.
	ErrInvalidResponse = errors.New("invalid provider response")
	// ErrCircuitOpen is returned while a provider's circuit breaker is blocking calls.
	ErrCircuitOpen = errors.New("provider circuit open")
)

// Error is a classified provider failure.
type Error struct {
	Provider   ProviderName
	Type       ErrorType
	Message    string
	Retryable  bool
	StatusCode int
	Cause      error
}

// Error implements the error interface.
func (e *Error) Error() string {
	var parts []string
	parts = append(parts, string(e.Provider), string(e.Type))
	if e.StatusCode > 0 {
		parts = append(parts, fmt.Sprintf("HTTP %d", e.StatusCode))
	}
	parts = append(parts, e.Message)

	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", strings.Join(parts, " "), e.Cause)
	}
	return strings.Join(parts, " ")
}

// Unwrap returns the underlying cause for errors.Is/As.
func (e *Error) Unwrap() error {
	return e.Cause
}

// IsRetryable implements retry.RetryableError.
func (e *Error) IsRetryable() bool {
	return e.Retryable
}

// ClassifyError turns a raw client error into an *Error.
// Errors that are already classified are returned unchanged.
func ClassifyError(provider ProviderName, err error) *Error {
	if err == nil {
		return nil
	}

	var classified *Error
	if errors.As(err, &classified) {
		return classified
	}

	newErr := func(t ErrorType, msg string, retryable bool, status int) *Error {
		return &Error{Provider: provider, Type: t, Message: msg, Retryable: retryable, StatusCode: status, Cause: err}
	}

	if errors.Is(err, ErrInvalidResponse) {
		return newErr(ErrorTypeResponse, "response did not match the assessment contract", false, 0)
	}
	if errors.Is(err, context.Canceled) {
		return newErr(ErrorTypeUnknown, "request canceled", false, 0)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return newErr(ErrorTypeEndpoint, "request timeout", true, 0)
	}

	status := statusCode(err)
	lower := strings.ToLower(err.Error())

	switch {
	case status == 401 || status == 403 ||
		strings.Contains(lower, "unauthorized") ||
		strings.Contains(lower, "invalid api key") ||
		strings.Contains(lower, "incorrect api key") ||
		strings.Contains(lower, "authentication") ||
		strings.Contains(lower, "permission"):
		return newErr(ErrorTypeAuth, "authentication failed", false, status)

	case strings.Contains(lower, "model") &&
		(strings.Contains(lower, "not found") || strings.Contains(lower, "does not exist")):
		return newErr(ErrorTypeModel, "model not found", false, status)

	case status == 404:
		return newErr(ErrorTypeEndpoint, "endpoint not found", false, status)

	case status == 429 || strings.Contains(lower, "rate limit") || strings.Contains(lower, "too many requests"):
		return newErr(ErrorTypeRateLimit, "rate limited", true, status)

	case strings.Contains(lower, "connection refused") || strings.Contains(lower, "no such host") ||
		strings.Contains(lower, "connection reset"):
		return newErr(ErrorTypeEndpoint, "connection failed", true, status)

	case strings.Contains(lower, "timeout") || strings.Contains(lower, "timed out"):
		return newErr(ErrorTypeEndpoint, "request timeout", true, status)

	case status >= 500 || strings.Contains(lower, "overloaded"):
		return newErr(ErrorTypeEndpoint, "server error", true, status)
	}

	return newErr(ErrorTypeUnknown, "provider error", false, status)
}

// statusCode extracts an HTTP status from go-openai errors or from the message text.
func statusCode(err error) int {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode
	}

	msg := err.Error()
	for _, code := range []int{400, 401, 403, 404, 429, 500, 502, 503, 504, 529} {
		if strings.Contains(msg, fmt.Sprintf("status code: %d", code)) ||
			strings.Contains(msg, fmt.Sprintf("HTTP %d", code)) {
			return code
		}
	}
	return 0
}
