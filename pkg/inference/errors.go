package inference

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrNoModel             = errors.New("inference: model required")
	ErrProviderUnavailable = errors.New("inference: provider unavailable")
	ErrNoChoices           = errors.New("inference: no choices returned")
)

// APIError is a non-2xx answer from a chat endpoint.
type APIError struct {
	Provider   string
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	status := fmt.Sprint(e.StatusCode)
	if e.Code != "" {
		status += " " + e.Code
	}
	return fmt.Sprintf("inference [%s]: %s: %s", e.Provider, status, e.Message)
}

// Unauthorized reports a rejected or missing credential.
func (e *APIError) Unauthorized() bool {
	return e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden
}

// Retryable reports rate limiting and server-side failures.
func (e *APIError) Retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// ProviderError tags an error with the provider that produced it.
type ProviderError struct {
	Provider string
	Err      error
}

func (e *ProviderError) Error() string { return "inference [" + e.Provider + "]: " + e.Err.Error() }

func (e *ProviderError) Unwrap() error { return e.Err }

// WrapError tags err with provider. A nil err stays nil.
func WrapError(provider string, err error) error {
	if err == nil {
		return nil
	}
	return &ProviderError{Provider: provider, Err: err}
}

// ChainError lists why each provider in a chain failed, in order.
type ChainError struct {
	Errors []error
}

func (e *ChainError) Error() string {
	if len(e.Errors) == 1 {
		return "inference chain: " + e.Errors[0].Error()
	}
	return fmt.Sprintf("inference chain: %d providers failed: %v", len(e.Errors), errors.Join(e.Errors...))
}

// Unwrap exposes every failure to errors.Is and errors.As.
func (e *ChainError) Unwrap() []error {
	return e.Errors
}
