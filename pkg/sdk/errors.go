package sdk

import (
	"errors"
	"fmt"
)

// Sentinel errors for errors.Is checks. An *APIError unwraps to the
// sentinel matching its code.
var (
	ErrSessionNotFound   = errors.New("session not found or expired")
	ErrNotFound          = errors.New("not found")
	ErrNoResults         = errors.New("no places found")
	ErrInvalidPageToken  = errors.New("invalid page token")
	ErrInsufficientData  = errors.New("insufficient data for clustering")
	ErrGeocodeFailed     = errors.New("geocoding failed")
	ErrEmbeddingProvider = errors.New("embedding provider error")
	ErrValidation        = errors.New("validation failed")
)

// APIError is a non-2xx response from the service.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("tablematch: %s (%s, http %d)", e.Message, e.Code, e.StatusCode)
}

// Unwrap maps the error code onto the package sentinel, if any.
func (e *APIError) Unwrap() error {
	switch e.Code {
	case "session_not_found":
		return ErrSessionNotFound
	case "not_found":
		return ErrNotFound
	case "no_results":
		return ErrNoResults
	case "invalid_page_token":
		return ErrInvalidPageToken
	case "insufficient_data":
		return ErrInsufficientData
	case "geocode_failed":
		return ErrGeocodeFailed
	case "embedding_provider_error":
		return ErrEmbeddingProvider
	case "validation_failed", "bad_request":
		return ErrValidation
	default:
		return nil
	}
}
