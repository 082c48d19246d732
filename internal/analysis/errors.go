package analysis

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorType classifies a provider failure.
type ErrorType string

const (
	ErrTypeRateLimit       ErrorType = "rate_limit"
	ErrTypeAuthentication  ErrorType = "authentication"
	ErrTypeNetwork         ErrorType = "network"
	ErrTypeProvider        ErrorType = "provider"
	ErrTypeInvalidResponse ErrorType = "invalid_response"
	ErrTypeConfiguration   ErrorType = "configuration"
)

// ErrNoProvider is returned when no enabled provider is configured.
var ErrNoProvider = errors.New("no enabled analysis provider")

// ProviderError represents errors specific to analysis providers.
type ProviderError struct {
	Type       ErrorType
	Message    string
	Provider   string
	StatusCode int
	Cause      error
	// Retryable is true only for rate limiting.
	Retryable bool
}

func (e *ProviderError) Error() string {
	var parts []string
	if e.Provider != "" {
		parts = append(parts, fmt.Sprintf("provider=%s", e.Provider))
	}
	parts = append(parts, fmt.Sprintf("type=%s", e.Type))
	if e.StatusCode > 0 {
		parts = append(parts, fmt.Sprintf("status=%d", e.StatusCode))
	}
	parts = append(parts, e.Message)
	if e.Cause != nil {
		parts = append(parts, fmt.Sprintf("cause=%s", e.Cause.Error()))
	}
	return strings.Join(parts, ": ")
}

func (e *ProviderError) Unwrap() error {
	return e.Cause
}

// Is matches another *ProviderError of the same Type.
func (e *ProviderError) Is(target error) bool {
	if pe, ok := target.(*ProviderError); ok {
		return e.Type == pe.Type
	}
	return false
}

func NewProviderError(errType ErrorType, provider, message string) *ProviderError {
	return &ProviderError{
		Type:      errType,
		Provider:  provider,
		Message:   message,
		Retryable: errType == ErrTypeRateLimit,
	}
}

func NewProviderErrorWithCause(errType ErrorType, provider, message string, cause error) *ProviderError {
	e := NewProviderError(errType, provider, message)
	e.Cause = cause
	return e
}

// NewRateLimitError marks a provider response as rate limited.
func NewRateLimitError(provider string, statusCode int, message string) *ProviderError {
	e := NewProviderError(ErrTypeRateLimit, provider, message)
	e.StatusCode = statusCode
	return e
}

// IsRateLimited reports whether err signals that the provider is throttling us,
// either as a typed error or through a message mentioning "rate limit".
func IsRateLimited(err error) bool {
	if err == nil {
		return false
	}
	var pe *ProviderError
	if errors.As(err, &pe) && pe.Type == ErrTypeRateLimit {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "rate limit")
}
