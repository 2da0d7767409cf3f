package chi

import (
	"context"
	"errors"
	"testing"

	chiv5 "github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/tablematch/tablematch/internal/domain"
	"github.com/tablematch/tablematch/internal/domain/feature"
	domhist "github.com/tablematch/tablematch/internal/domain/history"
	"github.com/tablematch/tablematch/internal/domain/place"
	"github.com/tablematch/tablematch/internal/usecase/cluster"
	healthuc "github.com/tablematch/tablematch/internal/usecase/health"
	placesuc "github.com/tablematch/tablematch/internal/usecase/places"
	recommenduc "github.com/tablematch/tablematch/internal/usecase/recommend"
	sessionuc "github.com/tablematch/tablematch/internal/usecase/session"
)

// --- Mocks ---

type mockSessionRepo struct {
	sessions map[string]bool
}

func newMockSessionRepo() *mockSessionRepo {
	return &mockSessionRepo{sessions: make(map[string]bool)}
}

func (m *mockSessionRepo) Create(_ context.Context, id string) error {
	m.sessions[id] = true
	return nil
}

func (m *mockSessionRepo) Touch(_ context.Context, id string) error {
	if !m.sessions[id] {
		return domain.ErrSessionNotFound
	}
	return nil
}

func (m *mockSessionRepo) Delete(_ context.Context, id string) error {
	delete(m.sessions, id)
	return nil
}

type mockProvider struct {
	hits      []place.NearbyHit
	nextToken string
	details   map[string]place.Record
	geocode   place.LatLng
	geoloc    place.LatLng

	nearbyErr error
	geolocErr error
}

func (m *mockProvider) Nearby(
	_ context.Context, _ place.LatLng, _ int, _, _ string,
) ([]place.NearbyHit, string, error) {
	if m.nearbyErr != nil {
		return nil, "", m.nearbyErr
	}
	return m.hits, m.nextToken, nil
}

func (m *mockProvider) Details(_ context.Context, placeID string) (place.Record, error) {
	rec, ok := m.details[placeID]
	if !ok {
		return place.Record{}, domain.ErrNotFound
	}
	return rec, nil
}

func (m *mockProvider) Geocode(_ context.Context, _ string) (place.LatLng, error) {
	return m.geocode, nil
}

func (m *mockProvider) Geolocate(_ context.Context) (place.LatLng, error) {
	if m.geolocErr != nil {
		return place.LatLng{}, m.geolocErr
	}
	return m.geoloc, nil
}

type memHistory struct {
	liked    map[string]map[string]bool
	disliked map[string]map[string]bool
	loadErr  error
}

func newMemHistory() *memHistory {
	return &memHistory{
		liked:    make(map[string]map[string]bool),
		disliked: make(map[string]map[string]bool),
	}
}

func (m *memHistory) set(sets map[string]map[string]bool, sessionID, placeID string, on bool) {
	if sets[sessionID] == nil {
		sets[sessionID] = make(map[string]bool)
	}
	if on {
		sets[sessionID][placeID] = true
	} else {
		delete(sets[sessionID], placeID)
	}
}

func (m *memHistory) Like(_ context.Context, sessionID, placeID string) error {
	m.set(m.disliked, sessionID, placeID, false)
	m.set(m.liked, sessionID, placeID, true)
	return nil
}

func (m *memHistory) Dislike(_ context.Context, sessionID, placeID string) error {
	m.set(m.liked, sessionID, placeID, false)
	m.set(m.disliked, sessionID, placeID, true)
	return nil
}

func (m *memHistory) Clear(_ context.Context, sessionID, placeID string) error {
	m.set(m.liked, sessionID, placeID, false)
	m.set(m.disliked, sessionID, placeID, false)
	return nil
}

func (m *memHistory) Load(_ context.Context, sessionID string) (domhist.History, error) {
	if m.loadErr != nil {
		return domhist.History{}, m.loadErr
	}
	h := domhist.New()
	for id := range m.liked[sessionID] {
		h.Liked[id] = true
	}
	for id := range m.disliked[sessionID] {
		h.Disliked[id] = true
	}
	return h, nil
}

type memSnapshots struct {
	places   map[string][]place.Record
	clusters map[string]cluster.Table

	clusterSaves  int
	savePlacesErr error
}

func newMemSnapshots() *memSnapshots {
	return &memSnapshots{
		places:   make(map[string][]place.Record),
		clusters: make(map[string]cluster.Table),
	}
}

func (m *memSnapshots) SavePlaces(_ context.Context, sessionID string, records []place.Record) error {
	if m.savePlacesErr != nil {
		return m.savePlacesErr
	}
	m.places[sessionID] = records
	return nil
}

func (m *memSnapshots) LoadPlaces(_ context.Context, sessionID string) ([]place.Record, error) {
	records, ok := m.places[sessionID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return records, nil
}

func (m *memSnapshots) SaveClusters(_ context.Context, sessionID string, table cluster.Table) error {
	m.clusterSaves++
	m.clusters[sessionID] = table
	return nil
}

func (m *memSnapshots) LoadClusters(_ context.Context, sessionID string) (cluster.Table, error) {
	table, ok := m.clusters[sessionID]
	if !ok {
		return cluster.Table{}, domain.ErrNotFound
	}
	return table, nil
}

type mockEmbedder struct {
	err error
}

func (m *mockEmbedder) Embed(_ context.Context, _ string) (domain.EmbeddingResult, error) {
	if m.err != nil {
		return domain.EmbeddingResult{}, m.err
	}
	return domain.EmbeddingResult{Embedding: []float32{0, 1}}, nil
}

type mockDBPinger struct {
	err error
}

func (m *mockDBPinger) Ping(_ context.Context) error { return m.err }

// --- Fixtures ---

type fixtures struct {
	sessions  *mockSessionRepo
	provider  *mockProvider
	history   *memHistory
	snapshots *memSnapshots
	db        *mockDBPinger
	router    chiv5.Router
}

const testClusters = 2

func newTestServer(t *testing.T) *fixtures {
	t.Helper()

	f := &fixtures{
		sessions:  newMockSessionRepo(),
		provider:  &mockProvider{details: make(map[string]place.Record)},
		history:   newMemHistory(),
		snapshots: newMemSnapshots(),
		db:        &mockDBPinger{},
	}

	logger := zap.NewNop()
	sessions := sessionuc.New(f.sessions, logger)
	places := placesuc.New(f.provider, logger)
	recommend := recommenduc.New(&mockEmbedder{}, logger).WithClustering(1, 20)
	health := healthuc.New(f.db, nil)

	srv := NewServer(sessions, places, recommend, f.history, f.snapshots, health, testClusters, logger)
	f.router = chiv5.NewRouter()
	srv.Routes(f.router)
	return f
}

// startSession registers a session directly in the repo.
func (f *fixtures) startSession(id string) {
	f.sessions.sessions[id] = true
}

// sampleRecords returns encodable venues with enough feature spread to
// cluster into two groups.
func sampleRecords() []place.Record {
	return []place.Record{
		{
			PlaceID:    "p1",
			Name:       "Luigi's",
			Location:   &place.LatLng{Lat: 38.8, Lng: -77.3},
			PriceLevel: 1,
			Rating:     4.5,
			Types:      []string{"restaurant", "food"},
			Amenities:  map[string]bool{"delivery": true},
			Reviews:    []string{"great pasta"},
		},
		{
			PlaceID:    "p2",
			Name:       "Thai Garden",
			Location:   &place.LatLng{Lat: 38.9, Lng: -77.2},
			PriceLevel: 1,
			Rating:     4.4,
			Types:      []string{"restaurant", "food"},
			Amenities:  map[string]bool{"delivery": true},
			Reviews:    []string{"spicy curries"},
		},
		{
			PlaceID:    "p3",
			Name:       "Steak House",
			Location:   &place.LatLng{Lat: 40.1, Lng: -75.0},
			PriceLevel: 4,
			Rating:     3.9,
			Types:      []string{"restaurant", "bar"},
			Amenities:  map[string]bool{"dine_in": true},
			Reviews:    []string{"big portions"},
		},
		{
			PlaceID:    "p4",
			Name:       "Oyster Bar",
			Location:   &place.LatLng{Lat: 40.2, Lng: -75.1},
			PriceLevel: 4,
			Rating:     4.1,
			Types:      []string{"restaurant", "bar"},
			Amenities:  map[string]bool{"dine_in": true},
			Reviews:    []string{"fresh seafood"},
		},
	}
}

// handClustered builds a clustering of the sample batch with a known
// partition: {p1,p2} and {p3,p4}. Only the fields the ranker reads are set.
func handClustered() cluster.Table {
	records := sampleRecords()
	rows := make([]feature.Row, len(records))
	for i, rec := range records {
		rows[i] = feature.Row{PlaceID: rec.PlaceID, Text: rec.Reviews[0]}
	}
	return cluster.Table{
		Features: feature.Table{Rows: rows},
		Labels:   []int{0, 0, 1, 1},
		K:        testClusters,
	}
}

var errBoom = errors.New("boom")
