// Package chi exposes the tablematch HTTP API.
package chi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	chiv5 "github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/tablematch/tablematch/internal/domain"
	domhist "github.com/tablematch/tablematch/internal/domain/history"
	"github.com/tablematch/tablematch/internal/domain/place"
	"github.com/tablematch/tablematch/internal/usecase/cluster"
	healthuc "github.com/tablematch/tablematch/internal/usecase/health"
	placesuc "github.com/tablematch/tablematch/internal/usecase/places"
	recommenduc "github.com/tablematch/tablematch/internal/usecase/recommend"
	sessionuc "github.com/tablematch/tablematch/internal/usecase/session"
)

// SessionCookie carries the session id between requests. The X-Session-ID
// header takes precedence for non-browser clients.
const (
	SessionCookie = "tm_session"
	SessionHeader = "X-Session-ID"
)

// errorCode is the machine-readable error discriminator on error responses.
type errorCode string

const (
	codeBadRequest        errorCode = "bad_request"
	codeValidationFailed  errorCode = "validation_failed"
	codeSessionNotFound   errorCode = "session_not_found"
	codeNotFound          errorCode = "not_found"
	codeNoResults         errorCode = "no_results"
	codeInvalidPageToken  errorCode = "invalid_page_token"
	codeInsufficientData  errorCode = "insufficient_data"
	codeGeocodeFailed     errorCode = "geocode_failed"
	codeEmbeddingProvider errorCode = "embedding_provider_error"
	codeInternalError     errorCode = "internal_error"
)

// errorResponse is the JSON body of every non-2xx response.
type errorResponse struct {
	Code    errorCode `json:"code"`
	Message string    `json:"message"`
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// HistoryRepo records and loads per-session feedback (ISP).
type HistoryRepo interface {
	Like(ctx context.Context, sessionID, placeID string) error
	Dislike(ctx context.Context, sessionID, placeID string) error
	Clear(ctx context.Context, sessionID, placeID string) error
	Load(ctx context.Context, sessionID string) (domhist.History, error)
}

// SnapshotRepo persists the per-session candidate batch and its clustering (ISP).
type SnapshotRepo interface {
	SavePlaces(ctx context.Context, sessionID string, records []place.Record) error
	LoadPlaces(ctx context.Context, sessionID string) ([]place.Record, error)
	SaveClusters(ctx context.Context, sessionID string, table cluster.Table) error
	LoadClusters(ctx context.Context, sessionID string) (cluster.Table, error)
}

// Server wires the HTTP routes to the use-case layer.
type Server struct {
	sessions  *sessionuc.Service
	places    *placesuc.Service
	recommend *recommenduc.Service
	history   HistoryRepo
	snapshots SnapshotRepo
	health    *healthuc.Service
	clusters  int
	logger    *zap.Logger

	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server. clusters is the default cluster
// count for recommendation requests that do not override it.
func NewServer(
	sessions *sessionuc.Service,
	places *placesuc.Service,
	recommend *recommenduc.Service,
	history HistoryRepo,
	snapshots SnapshotRepo,
	health *healthuc.Service,
	clusters int,
	logger *zap.Logger,
) *Server {
	s := &Server{
		sessions:  sessions,
		places:    places,
		recommend: recommend,
		history:   history,
		snapshots: snapshots,
		health:    health,
		clusters:  clusters,
		logger:    logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrSessionNotFound, http.StatusUnauthorized, codeSessionNotFound),
		sentinelHandler(domain.ErrNotFound, http.StatusNotFound, codeNotFound),
		sentinelHandler(domain.ErrNoResults, http.StatusNotFound, codeNoResults),
		sentinelHandler(domain.ErrLocationRequired, http.StatusBadRequest, codeValidationFailed),
		sentinelHandler(domain.ErrRadiusTooLarge, http.StatusBadRequest, codeValidationFailed),
		sentinelHandler(domain.ErrInvalidPageToken, http.StatusBadRequest, codeInvalidPageToken),
		sentinelHandler(domain.ErrEncoding, http.StatusUnprocessableEntity, codeValidationFailed),
		sentinelHandler(domain.ErrInsufficientData, http.StatusUnprocessableEntity, codeInsufficientData),
		sentinelHandler(domain.ErrGeocodeFailed, http.StatusBadGateway, codeGeocodeFailed),
		sentinelHandler(domain.ErrEmbeddingProvider, http.StatusBadGateway, codeEmbeddingProvider),
	}
	return s
}

// Routes mounts every API route on the router.
func (s *Server) Routes(r chiv5.Router) {
	r.Post("/sessions", s.CreateSession)
	r.Delete("/sessions", s.DeleteSession)
	r.Get("/search", s.SearchPlaces)
	r.Get("/geolocate", s.Geolocate)
	r.Post("/feedback", s.Feedback)
	r.Get("/recommendations", s.Recommendations)
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)
}

type sessionResponse struct {
	SessionID string `json:"session_id"`
}

// CreateSession handles POST /sessions.
func (s *Server) CreateSession(w http.ResponseWriter, r *http.Request) {
	id, err := s.sessions.Start(r.Context())
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusCreated, sessionResponse{SessionID: id})
}

// DeleteSession handles DELETE /sessions. Ending an already-expired
// session succeeds: the state it would drop is gone either way.
func (s *Server) DeleteSession(w http.ResponseWriter, r *http.Request) {
	id := sessionID(r)
	if id == "" {
		writeError(w, http.StatusUnauthorized, codeSessionNotFound, domain.ErrSessionNotFound.Error())
		return
	}

	if err := s.sessions.End(r.Context(), id); err != nil {
		s.handleDomainError(w, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	w.WriteHeader(http.StatusNoContent)
}

type searchResponse struct {
	Places    []place.Record `json:"places"`
	PageToken string         `json:"page_token,omitempty"`
}

// SearchPlaces handles GET /search. The returned batch replaces the
// session's candidate snapshot, so /recommendations always ranks the most
// recently fetched page.
func (s *Server) SearchPlaces(w http.ResponseWriter, r *http.Request) {
	id, ok := s.requireSession(w, r)
	if !ok {
		return
	}

	req, err := searchRequestFromQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeValidationFailed, err.Error())
		return
	}

	res, err := s.places.Search(r.Context(), req)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	if err := s.snapshots.SavePlaces(r.Context(), id, res.Records); err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, searchResponse{
		Places:    res.Records,
		PageToken: res.PageToken,
	})
}

func searchRequestFromQuery(r *http.Request) (placesuc.SearchRequest, error) {
	q := r.URL.Query()
	req := placesuc.SearchRequest{
		Address:   q.Get("address"),
		Keyword:   q.Get("keyword"),
		PageToken: q.Get("page_token"),
	}

	latStr, lngStr := q.Get("lat"), q.Get("lng")
	if (latStr == "") != (lngStr == "") {
		return placesuc.SearchRequest{}, errors.New("lat and lng must be provided together")
	}
	if latStr != "" {
		lat, err := strconv.ParseFloat(latStr, 64)
		if err != nil {
			return placesuc.SearchRequest{}, errors.New("lat must be a number")
		}
		lng, err := strconv.ParseFloat(lngStr, 64)
		if err != nil {
			return placesuc.SearchRequest{}, errors.New("lng must be a number")
		}
		req.Location = &place.LatLng{Lat: lat, Lng: lng}
	}

	if radiusStr := q.Get("radius"); radiusStr != "" {
		radius, err := strconv.Atoi(radiusStr)
		if err != nil || radius <= 0 {
			return placesuc.SearchRequest{}, errors.New("radius must be a positive integer")
		}
		req.Radius = radius
	}

	return req, nil
}

// Geolocate handles GET /geolocate.
func (s *Server) Geolocate(w http.ResponseWriter, r *http.Request) {
	loc, err := s.places.Geolocate(r.Context())
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, loc)
}

type feedbackRequest struct {
	PlaceID string `json:"place_id"`
	Action  string `json:"action"`
}

// Feedback handles POST /feedback.
func (s *Server) Feedback(w http.ResponseWriter, r *http.Request) {
	id, ok := s.requireSession(w, r)
	if !ok {
		return
	}

	var req feedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if req.PlaceID == "" {
		writeError(w, http.StatusBadRequest, codeValidationFailed, "place_id is required")
		return
	}

	var err error
	switch req.Action {
	case "like":
		err = s.history.Like(r.Context(), id, req.PlaceID)
	case "dislike":
		err = s.history.Dislike(r.Context(), id, req.PlaceID)
	case "clear":
		err = s.history.Clear(r.Context(), id, req.PlaceID)
	default:
		writeError(w, http.StatusBadRequest, codeValidationFailed, "action must be like, dislike or clear")
		return
	}
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// recommendationItem is one ranked venue joined back to its snapshot record.
type recommendationItem struct {
	place.Record
	Cluster            int     `json:"cluster"`
	PositiveSimilarity float64 `json:"positive_similarity"`
	NegativeSimilarity float64 `json:"negative_similarity"`
	FinalScore         float64 `json:"final_score"`
}

type recommendationsResponse struct {
	Recommendations []recommendationItem `json:"recommendations"`
}

// Recommendations handles GET /recommendations. ?k= overrides the cluster
// count; ?fresh=1 selects the single-reference mode used right after the
// first few likes.
func (s *Server) Recommendations(w http.ResponseWriter, r *http.Request) {
	id, ok := s.requireSession(w, r)
	if !ok {
		return
	}

	k := s.clusters
	if kStr := r.URL.Query().Get("k"); kStr != "" {
		parsed, err := strconv.Atoi(kStr)
		if err != nil || parsed <= 0 {
			writeError(w, http.StatusBadRequest, codeValidationFailed, "k must be a positive integer")
			return
		}
		k = parsed
	}

	records, err := s.snapshots.LoadPlaces(r.Context(), id)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	hist, err := s.history.Load(r.Context(), id)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	clustered, err := s.clusteredTable(r.Context(), id, records, k)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	var ranked []recommenduc.Ranked
	if r.URL.Query().Get("fresh") == "1" {
		liked := make([]string, 0, len(hist.Liked))
		for placeID := range hist.Liked {
			liked = append(liked, placeID)
		}
		ranked = s.recommend.RecommendFresh(r.Context(), &clustered, liked)
	} else {
		ranked = s.recommend.RecommendClustered(r.Context(), &clustered, hist)
	}

	byID := make(map[string]*place.Record, len(records))
	for i := range records {
		byID[records[i].PlaceID] = &records[i]
	}

	items := make([]recommendationItem, 0, len(ranked))
	for _, rk := range ranked {
		rec, found := byID[rk.PlaceID]
		if !found {
			continue
		}
		items = append(items, recommendationItem{
			Record:             *rec,
			Cluster:            rk.Cluster,
			PositiveSimilarity: rk.PositiveSimilarity,
			NegativeSimilarity: rk.NegativeSimilarity,
			FinalScore:         rk.FinalScore,
		})
	}

	writeJSON(w, http.StatusOK, recommendationsResponse{Recommendations: items})
}

// clusteredTable returns the cached clustering for the session's current
// batch, recomputing when the cache is missing, stale or sized for a
// different k. Cache write failures are logged, not surfaced: the table is
// already in hand.
func (s *Server) clusteredTable(
	ctx context.Context, sessionID string, records []place.Record, k int,
) (cluster.Table, error) {
	cached, err := s.snapshots.LoadClusters(ctx, sessionID)
	if err == nil && cached.K == k && snapshotMatches(&cached, records) {
		return cached, nil
	}
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		s.logger.Warn("cluster snapshot load failed, reclustering",
			zap.String("session_id", sessionID), zap.Error(err))
	}

	clustered, err := s.recommend.Cluster(records, k)
	if err != nil {
		return cluster.Table{}, err
	}

	if err := s.snapshots.SaveClusters(ctx, sessionID, clustered); err != nil {
		s.logger.Warn("cluster snapshot save failed",
			zap.String("session_id", sessionID), zap.Error(err))
	}
	return clustered, nil
}

// snapshotMatches reports whether the clustered table covers exactly the
// snapshot batch, in order. A /search since the last clustering breaks the
// match and forces a recluster.
func snapshotMatches(table *cluster.Table, records []place.Record) bool {
	ids := table.Features.IDs()
	if len(ids) != len(records) {
		return false
	}
	for i := range ids {
		if ids[i] != records[i].PlaceID {
			return false
		}
	}
	return true
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, report)
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

// requireSession resolves the caller's session id and slides its idle
// timeout. On failure the error response is already written.
func (s *Server) requireSession(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := sessionID(r)
	if id == "" {
		writeError(w, http.StatusUnauthorized, codeSessionNotFound, domain.ErrSessionNotFound.Error())
		return "", false
	}
	if err := s.sessions.Touch(r.Context(), id); err != nil {
		s.handleDomainError(w, err)
		return "", false
	}
	return id, true
}

func sessionID(r *http.Request) string {
	if id := r.Header.Get(SessionHeader); id != "" {
		return id
	}
	if c, err := r.Cookie(SessionCookie); err == nil {
		return c.Value
	}
	return ""
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code errorCode, message string) {
	writeJSON(w, status, errorResponse{
		Code:    code,
		Message: message,
	})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrSessionNotFound,
		domain.ErrNotFound,
		domain.ErrNoResults,
		domain.ErrLocationRequired,
		domain.ErrRadiusTooLarge,
		domain.ErrInvalidPageToken,
		domain.ErrEncoding,
		domain.ErrInsufficientData,
		domain.ErrGeocodeFailed,
		domain.ErrEmbeddingProvider,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code errorCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
}
