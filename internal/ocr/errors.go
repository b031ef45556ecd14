package ocr

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrUnknownProvider indicates a requested provider id is not registered.
// This is a caller programming error and is rejected defensively.
var ErrUnknownProvider = errors.New("Unknown provider")

// ErrNoCredentialsAvailable indicates system-held credentials were requested
// but none are configured for the provider.
var ErrNoCredentialsAvailable = errors.New("no system credentials available for provider")

// ErrMissingUserCredential indicates user-supplied mode was selected but no
// key is stored. This is a recoverable precondition, not a run failure;
// callers prompt for a key or fall back rather than dispatching.
var ErrMissingUserCredential = errors.New("no user credential stored for provider")

// ErrTooManyProviders indicates a benchmark selection above the cap.
var ErrTooManyProviders = errors.New("too many providers selected")

// ErrorKind classifies a provider failure where derivable from its response.
// All kinds are treated identically by the orchestrators (opaque failure);
// the classification only shapes the human-readable message.
type ErrorKind string

const (
	ErrInvalidCredentials ErrorKind = "invalid_credentials"
	ErrPermissionDenied   ErrorKind = "permission_denied"
	ErrRateLimited        ErrorKind = "rate_limited"
	ErrOther              ErrorKind = "other"
)

// ProviderError is the canonical failure of a single provider's recognition
// call. It covers authentication, permission, rate-limit, malformed-response
// and engine-crash cases.
type ProviderError struct {
	Provider string
	Kind     ErrorKind
	Message  string
}

func (e *ProviderError) Error() string {
	switch e.Kind {
	case ErrInvalidCredentials:
		return fmt.Sprintf("%s: invalid credentials: %s", e.Provider, e.Message)
	case ErrPermissionDenied:
		return fmt.Sprintf("%s: permission denied: %s", e.Provider, e.Message)
	case ErrRateLimited:
		return fmt.Sprintf("%s: rate limited: %s", e.Provider, e.Message)
	default:
		return fmt.Sprintf("%s: %s", e.Provider, e.Message)
	}
}

// newProviderError builds a ProviderError with a kind derived from an HTTP
// status code.
func newProviderError(provider string, status int, message string) *ProviderError {
	return &ProviderError{
		Provider: provider,
		Kind:     classifyStatus(status),
		Message:  message,
	}
}

func classifyStatus(status int) ErrorKind {
	switch status {
	case http.StatusUnauthorized:
		return ErrInvalidCredentials
	case http.StatusForbidden:
		return ErrPermissionDenied
	case http.StatusTooManyRequests:
		return ErrRateLimited
	default:
		return ErrOther
	}
}
