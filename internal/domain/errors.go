package domain

import "errors"

var (
	// ErrEncoding signals a malformed or incomplete place record.
	ErrEncoding = errors.New("encoding failed")
	// ErrInsufficientData signals too few distinct rows for the requested cluster count.
	ErrInsufficientData = errors.New("insufficient data for clustering")
	// ErrNotFound signals a missing resource.
	ErrNotFound = errors.New("not found")
	// ErrNoResults signals an empty places search result.
	ErrNoResults = errors.New("no places found in the specified radius")
	// ErrRadiusTooLarge signals a search radius beyond the provider maximum.
	ErrRadiusTooLarge = errors.New("radius must be 100000 meters or less")
	// ErrLocationRequired signals a search without address or coordinates.
	ErrLocationRequired = errors.New("address or lat/lng is required")
	// ErrInvalidPageToken signals an unparseable continuation token.
	ErrInvalidPageToken = errors.New("invalid page token")
	// ErrGeocodeFailed signals that an address could not be resolved.
	ErrGeocodeFailed = errors.New("geocoding failed")
	// ErrEmbeddingProvider signals an embedding provider failure.
	ErrEmbeddingProvider = errors.New("embedding provider error")
	// ErrSessionNotFound signals a missing or expired session.
	ErrSessionNotFound = errors.New("session not found or expired")
)
