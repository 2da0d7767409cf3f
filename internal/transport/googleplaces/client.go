// Package googleplaces is a thin client for the Google Maps web service
// JSON endpoints: nearby search, place details, geocoding and geolocation.
//
// It talks to the REST endpoints directly because the candidate ranking
// needs Place Details fields (dine_in, serves_* and friends) that the
// official Go client does not expose.
package googleplaces

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/tablematch/tablematch/internal/domain"
	"github.com/tablematch/tablematch/internal/domain/place"
	"github.com/tablematch/tablematch/internal/metrics"
)

const (
	defaultMapsBaseURL  = "https://maps.googleapis.com/maps/api"
	defaultGeolocateURL = "https://www.googleapis.com/geolocation/v1/geolocate"
	defaultHTTPTimeout  = 10 * time.Second

	statusOK          = "OK"
	statusZeroResults = "ZERO_RESULTS"
)

// detailFields is the Place Details field mask. Everything the encoder or
// the response cards consume, nothing else; fields cost money.
var detailFields = strings.Join([]string{
	"place_id", "name", "geometry", "price_level", "rating", "user_ratings_total",
	"types", "vicinity", "website", "formatted_phone_number", "business_status",
	"opening_hours", "editorial_summary", "reviews", "photos",
	"curbside_pickup", "delivery", "dine_in", "reservable", "takeout",
	"serves_breakfast", "serves_lunch", "serves_dinner", "serves_brunch",
	"serves_vegetarian_food", "serves_beer", "serves_wine",
	"wheelchair_accessible_entrance",
}, ",")

// Config holds the places provider settings.
type Config struct {
	APIKey       string
	BaseURL      string // maps API root, overridable for tests
	GeolocateURL string
	Timeout      time.Duration
	Logger       *zap.Logger
}

// Client calls the Google Maps web services.
type Client struct {
	apiKey       string
	baseURL      string
	geolocateURL string
	httpClient   *http.Client
	logger       *zap.Logger
}

// NewClient creates a places client.
func NewClient(cfg *Config) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultMapsBaseURL
	}
	geolocateURL := cfg.GeolocateURL
	if geolocateURL == "" {
		geolocateURL = defaultGeolocateURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultHTTPTimeout
	}

	return &Client{
		apiKey:       cfg.APIKey,
		baseURL:      strings.TrimSuffix(baseURL, "/"),
		geolocateURL: geolocateURL,
		httpClient:   &http.Client{Timeout: timeout},
		logger:       cfg.Logger,
	}
}

// Nearby returns one page of restaurants around loc. An empty keyword
// searches all restaurants. pageToken continues a previous search.
func (c *Client) Nearby(ctx context.Context, loc place.LatLng, radius int, keyword, pageToken string) ([]place.NearbyHit, string, error) {
	params := url.Values{}
	params.Set("location", fmt.Sprintf("%f,%f", loc.Lat, loc.Lng))
	params.Set("radius", strconv.Itoa(radius))
	params.Set("type", "restaurant")
	if keyword != "" {
		params.Set("keyword", keyword)
	}
	if pageToken != "" {
		params.Set("pagetoken", pageToken)
	}

	var payload struct {
		Status        string `json:"status"`
		ErrorMessage  string `json:"error_message"`
		NextPageToken string `json:"next_page_token"`
		Results       []struct {
			PlaceID  string `json:"place_id"`
			Vicinity string `json:"vicinity"`
		} `json:"results"`
	}
	if err := c.get(ctx, "nearby", c.baseURL+"/place/nearbysearch/json", params, &payload); err != nil {
		return nil, "", err
	}

	switch payload.Status {
	case statusOK:
	case statusZeroResults:
		return nil, "", nil
	case "INVALID_REQUEST":
		// A stale or malformed pagetoken is the only way a well-formed
		// nearby request gets this status.
		if pageToken != "" {
			return nil, "", fmt.Errorf("pagetoken rejected: %w", domain.ErrInvalidPageToken)
		}
		return nil, "", statusError("nearby search", payload.Status, payload.ErrorMessage)
	default:
		return nil, "", statusError("nearby search", payload.Status, payload.ErrorMessage)
	}

	hits := make([]place.NearbyHit, 0, len(payload.Results))
	for _, r := range payload.Results {
		hits = append(hits, place.NearbyHit{PlaceID: r.PlaceID, Vicinity: r.Vicinity})
	}
	return hits, payload.NextPageToken, nil
}

// Details fetches the full record for one place.
func (c *Client) Details(ctx context.Context, placeID string) (place.Record, error) {
	params := url.Values{}
	params.Set("place_id", placeID)
	params.Set("fields", detailFields)
	params.Set("reviews_sort", "newest")

	var payload struct {
		Status       string        `json:"status"`
		ErrorMessage string        `json:"error_message"`
		Result       detailsResult `json:"result"`
	}
	if err := c.get(ctx, "details", c.baseURL+"/place/details/json", params, &payload); err != nil {
		return place.Record{}, err
	}
	if payload.Status != statusOK {
		if payload.Status == "NOT_FOUND" {
			return place.Record{}, fmt.Errorf("place %s: %w", placeID, domain.ErrNotFound)
		}
		return place.Record{}, statusError("place details", payload.Status, payload.ErrorMessage)
	}

	return payload.Result.toRecord(placeID), nil
}

// Geocode resolves a free-form address to coordinates.
func (c *Client) Geocode(ctx context.Context, address string) (place.LatLng, error) {
	params := url.Values{}
	params.Set("address", address)

	var payload struct {
		Status       string `json:"status"`
		ErrorMessage string `json:"error_message"`
		Results      []struct {
			Geometry struct {
				Location place.LatLng `json:"location"`
			} `json:"geometry"`
		} `json:"results"`
	}
	if err := c.get(ctx, "geocode", c.baseURL+"/geocode/json", params, &payload); err != nil {
		return place.LatLng{}, err
	}
	if payload.Status != statusOK || len(payload.Results) == 0 {
		return place.LatLng{}, fmt.Errorf("geocode %q: status %s: %w",
			address, payload.Status, domain.ErrGeocodeFailed)
	}
	return payload.Results[0].Geometry.Location, nil
}

// Geolocate estimates the caller's coordinates from the server's network
// position. Used when the client supplies no location at all.
func (c *Client) Geolocate(ctx context.Context) (place.LatLng, error) {
	body, err := json.Marshal(map[string]bool{"considerIp": true})
	if err != nil {
		return place.LatLng{}, fmt.Errorf("marshal geolocate request: %w", err)
	}

	reqURL := c.geolocateURL + "?key=" + url.QueryEscape(c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, bytes.NewReader(body))
	if err != nil {
		return place.LatLng{}, fmt.Errorf("build geolocate request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.PlacesRequestsTotal.WithLabelValues("geolocate", "error").Inc()
		return place.LatLng{}, fmt.Errorf("geolocate request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		metrics.PlacesRequestsTotal.WithLabelValues("geolocate", "error").Inc()
		return place.LatLng{}, fmt.Errorf("geolocate returned status %d: %w",
			resp.StatusCode, domain.ErrGeocodeFailed)
	}

	var payload struct {
		Location place.LatLng `json:"location"`
		Accuracy float64      `json:"accuracy"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		metrics.PlacesRequestsTotal.WithLabelValues("geolocate", "error").Inc()
		return place.LatLng{}, fmt.Errorf("decode geolocate response: %w", err)
	}

	metrics.PlacesRequestsTotal.WithLabelValues("geolocate", "success").Inc()
	return payload.Location, nil
}

func (c *Client) get(ctx context.Context, operation, endpoint string, params url.Values, out any) error {
	if c.apiKey == "" {
		return fmt.Errorf("maps api key is required")
	}
	params.Set("key", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("build %s request: %w", operation, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.PlacesRequestsTotal.WithLabelValues(operation, "error").Inc()
		return fmt.Errorf("%s request: %w", operation, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		metrics.PlacesRequestsTotal.WithLabelValues(operation, "error").Inc()
		return fmt.Errorf("%s returned status %d", operation, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		metrics.PlacesRequestsTotal.WithLabelValues(operation, "error").Inc()
		return fmt.Errorf("decode %s response: %w", operation, err)
	}

	metrics.PlacesRequestsTotal.WithLabelValues(operation, "success").Inc()
	return nil
}

func statusError(operation, status, message string) error {
	if message != "" {
		return fmt.Errorf("%s failed: %s - %s", operation, status, message)
	}
	return fmt.Errorf("%s failed: %s", operation, status)
}
