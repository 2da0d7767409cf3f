package sdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"
)

const sessionHeader = "X-Session-ID"

const defaultTimeout = 90 * time.Second

// Client talks to a tablematch API server. It is safe for concurrent use;
// all calls share the session started with StartSession.
type Client struct {
	baseURL string
	http    *http.Client

	mu        sync.Mutex
	sessionID string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithSessionID resumes an existing session instead of starting a new one.
func WithSessionID(id string) Option {
	return func(c *Client) { c.sessionID = id }
}

// New creates a client for the API at baseURL, e.g. "http://localhost:8080".
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: defaultTimeout},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// SessionID returns the current session id, or "" before StartSession.
func (c *Client) SessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionID
}

type sessionResponse struct {
	SessionID string `json:"session_id"`
}

// StartSession opens a new session and remembers its id for later calls.
func (c *Client) StartSession(ctx context.Context) (string, error) {
	var resp sessionResponse
	if err := c.do(ctx, http.MethodPost, "/sessions", nil, &resp); err != nil {
		return "", err
	}

	c.mu.Lock()
	c.sessionID = resp.SessionID
	c.mu.Unlock()
	return resp.SessionID, nil
}

// EndSession closes the session and drops its server-side state.
func (c *Client) EndSession(ctx context.Context) error {
	if err := c.do(ctx, http.MethodDelete, "/sessions", nil, nil); err != nil {
		return err
	}

	c.mu.Lock()
	c.sessionID = ""
	c.mu.Unlock()
	return nil
}

// SearchParams describes a candidate search. Provide an Address, a Lat/Lng
// pair, or a PageToken from a previous page.
type SearchParams struct {
	Address   string
	Lat, Lng  *float64
	Radius    int
	Keyword   string
	PageToken string
}

// Search fetches one page of nearby restaurants and makes it the session's
// current candidate batch.
func (c *Client) Search(ctx context.Context, p SearchParams) (SearchPage, error) {
	q := url.Values{}
	if p.Address != "" {
		q.Set("address", p.Address)
	}
	if p.Lat != nil && p.Lng != nil {
		q.Set("lat", strconv.FormatFloat(*p.Lat, 'f', -1, 64))
		q.Set("lng", strconv.FormatFloat(*p.Lng, 'f', -1, 64))
	}
	if p.Radius > 0 {
		q.Set("radius", strconv.Itoa(p.Radius))
	}
	if p.Keyword != "" {
		q.Set("keyword", p.Keyword)
	}
	if p.PageToken != "" {
		q.Set("page_token", p.PageToken)
	}

	var page SearchPage
	err := c.do(ctx, http.MethodGet, "/search?"+q.Encode(), nil, &page)
	return page, err
}

// Geolocate estimates the caller's coordinates from the server's network
// position.
func (c *Client) Geolocate(ctx context.Context) (LatLng, error) {
	var loc LatLng
	err := c.do(ctx, http.MethodGet, "/geolocate", nil, &loc)
	return loc, err
}

type feedbackRequest struct {
	PlaceID string `json:"place_id"`
	Action  string `json:"action"`
}

// Like records a positive judgment for a venue.
func (c *Client) Like(ctx context.Context, placeID string) error {
	return c.feedback(ctx, placeID, "like")
}

// Dislike records a negative judgment for a venue.
func (c *Client) Dislike(ctx context.Context, placeID string) error {
	return c.feedback(ctx, placeID, "dislike")
}

// ClearFeedback removes any judgment for a venue.
func (c *Client) ClearFeedback(ctx context.Context, placeID string) error {
	return c.feedback(ctx, placeID, "clear")
}

func (c *Client) feedback(ctx context.Context, placeID, action string) error {
	return c.do(ctx, http.MethodPost, "/feedback", feedbackRequest{PlaceID: placeID, Action: action}, nil)
}

// RecommendParams tunes a recommendation request. K overrides the cluster
// count; Fresh selects the single-reference mode used right after the first
// few likes.
type RecommendParams struct {
	K     int
	Fresh bool
}

type recommendationsResponse struct {
	Recommendations []Recommendation `json:"recommendations"`
}

// Recommendations ranks the session's current candidate batch against its
// feedback history.
func (c *Client) Recommendations(ctx context.Context, p RecommendParams) ([]Recommendation, error) {
	q := url.Values{}
	if p.K > 0 {
		q.Set("k", strconv.Itoa(p.K))
	}
	if p.Fresh {
		q.Set("fresh", "1")
	}
	path := "/recommendations"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var resp recommendationsResponse
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Recommendations, nil
}

// Health returns the service health summary. A degraded service answers
// 503 with a valid report body, so that case is a report, not an error.
func (c *Client) Health(ctx context.Context) (HealthReport, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return HealthReport{}, fmt.Errorf("sdk: build request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return HealthReport{}, fmt.Errorf("sdk: GET /health: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusServiceUnavailable {
		return HealthReport{}, decodeAPIError(resp)
	}

	var report HealthReport
	if err := json.NewDecoder(resp.Body).Decode(&report); err != nil {
		return HealthReport{}, fmt.Errorf("sdk: decode response: %w", err)
	}
	return report, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("sdk: encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("sdk: build request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if id := c.SessionID(); id != "" {
		req.Header.Set(sessionHeader, id)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("sdk: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return decodeAPIError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("sdk: decode response: %w", err)
	}
	return nil
}

func decodeAPIError(resp *http.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode}

	var body struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err == nil && body.Code != "" {
		apiErr.Code = body.Code
		apiErr.Message = body.Message
	} else {
		apiErr.Message = http.StatusText(resp.StatusCode)
	}
	return apiErr
}
