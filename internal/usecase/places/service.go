// Package places finds candidate restaurants: location resolution, nearby
// search with per-place detail fetches, and stateless pagination.
package places

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/tablematch/tablematch/internal/domain"
	"github.com/tablematch/tablematch/internal/domain/place"
)

// MaxRadiusMeters is the provider's hard limit; larger values return
// nothing, so they are rejected up front.
const MaxRadiusMeters = 100_000

const defaultRadiusMeters = 10_000

// Provider is the places backend contract (ISP).
type Provider interface {
	Nearby(ctx context.Context, loc place.LatLng, radius int, keyword, pageToken string) ([]place.NearbyHit, string, error)
	Details(ctx context.Context, placeID string) (place.Record, error)
	Geocode(ctx context.Context, address string) (place.LatLng, error)
	Geolocate(ctx context.Context) (place.LatLng, error)
}

// SearchRequest describes one candidate search. Exactly one of Location,
// Address or PageToken must carry the position: a continuation token
// re-embeds the original search parameters.
type SearchRequest struct {
	Location  *place.LatLng
	Address   string
	Radius    int
	Keyword   string
	PageToken string
}

// SearchResult is one page of detailed candidate records.
type SearchResult struct {
	Records   []place.Record
	PageToken string
}

// Service runs candidate searches against a places provider.
type Service struct {
	provider Provider
	logger   *zap.Logger
}

// New creates a places service.
func New(provider Provider, logger *zap.Logger) *Service {
	return &Service{provider: provider, logger: logger}
}

// Search returns one page of restaurants with full details.
//
// Location is resolved in priority order: continuation token, explicit
// lat/lng, then geocoded address. A request with none of the three fails
// with ErrLocationRequired. Empty pages fail with ErrNoResults, matching
// the behavior the feedback loop expects: a search that succeeded always
// has candidates to rate.
func (s *Service) Search(ctx context.Context, req SearchRequest) (SearchResult, error) {
	loc, radius, keyword, providerToken, err := s.resolve(ctx, req)
	if err != nil {
		return SearchResult{}, err
	}

	if radius <= 0 {
		radius = defaultRadiusMeters
	}
	if radius > MaxRadiusMeters {
		return SearchResult{}, fmt.Errorf("radius %d m exceeds %d m: %w",
			radius, MaxRadiusMeters, domain.ErrRadiusTooLarge)
	}

	hits, nextProviderToken, err := s.provider.Nearby(ctx, loc, radius, keyword, providerToken)
	if err != nil {
		return SearchResult{}, fmt.Errorf("nearby search: %w", err)
	}
	if len(hits) == 0 {
		return SearchResult{}, domain.ErrNoResults
	}

	records := make([]place.Record, 0, len(hits))
	for _, hit := range hits {
		rec, err := s.provider.Details(ctx, hit.PlaceID)
		if err != nil {
			// One unfetchable place must not sink the page.
			s.logger.Warn("Failed to fetch place details",
				zap.String("place_id", hit.PlaceID), zap.Error(err))
			continue
		}
		if rec.Vicinity == "" {
			rec.Vicinity = hit.Vicinity
		}
		records = append(records, rec)
	}
	if len(records) == 0 {
		return SearchResult{}, domain.ErrNoResults
	}

	var nextToken string
	if nextProviderToken != "" {
		nextToken, err = encodeToken(continuation{
			ProviderToken: nextProviderToken,
			Lat:           loc.Lat,
			Lng:           loc.Lng,
			Radius:        radius,
			Keyword:       keyword,
		})
		if err != nil {
			return SearchResult{}, fmt.Errorf("encode page token: %w", err)
		}
	}

	s.logger.Info("Candidate search completed",
		zap.Int("results", len(records)),
		zap.Int("radius_m", radius),
		zap.Bool("has_next_page", nextToken != ""))

	return SearchResult{Records: records, PageToken: nextToken}, nil
}

// Geolocate estimates the caller's position via the provider.
func (s *Service) Geolocate(ctx context.Context) (place.LatLng, error) {
	return s.provider.Geolocate(ctx)
}

// resolve turns the request into concrete search parameters.
func (s *Service) resolve(ctx context.Context, req SearchRequest) (place.LatLng, int, string, string, error) {
	if req.PageToken != "" {
		cont, err := decodeToken(req.PageToken)
		if err != nil {
			return place.LatLng{}, 0, "", "", err
		}
		return place.LatLng{Lat: cont.Lat, Lng: cont.Lng}, cont.Radius, cont.Keyword, cont.ProviderToken, nil
	}

	if req.Location != nil {
		return *req.Location, req.Radius, req.Keyword, "", nil
	}

	if req.Address != "" {
		loc, err := s.provider.Geocode(ctx, req.Address)
		if err != nil {
			return place.LatLng{}, 0, "", "", fmt.Errorf("geocode address: %w", err)
		}
		return loc, req.Radius, req.Keyword, "", nil
	}

	return place.LatLng{}, 0, "", "", domain.ErrLocationRequired
}
