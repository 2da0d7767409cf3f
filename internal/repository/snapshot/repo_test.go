package snapshot

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/tablematch/tablematch/internal/db"
	"github.com/tablematch/tablematch/internal/domain"
	"github.com/tablematch/tablematch/internal/domain/feature"
	"github.com/tablematch/tablematch/internal/domain/place"
	"github.com/tablematch/tablematch/internal/usecase/cluster"
)

// memStore is an in-memory KV store for tests.
type memStore struct {
	kv     map[string][]byte
	ttls   map[string]time.Duration
	getErr error
	setErr error
}

func newMemStore() *memStore {
	return &memStore{kv: make(map[string][]byte), ttls: make(map[string]time.Duration)}
}

func (m *memStore) Get(_ context.Context, key string) ([]byte, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	data, ok := m.kv[key]
	if !ok {
		return nil, db.ErrKeyNotFound
	}
	return data, nil
}

func (m *memStore) SetWithTTL(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if m.setErr != nil {
		return m.setErr
	}
	m.kv[key] = value
	m.ttls[key] = ttl
	return nil
}

func (m *memStore) Del(_ context.Context, key string) error {
	delete(m.kv, key)
	delete(m.ttls, key)
	return nil
}

func sampleRecords() []place.Record {
	return []place.Record{
		{
			PlaceID:    "p1",
			Name:       "Green Basil",
			Location:   &place.LatLng{Lat: 49.1, Lng: -122.8},
			PriceLevel: 2,
			Rating:     4.5,
			Types:      []string{"restaurant", "thai"},
			Amenities:  map[string]bool{"delivery": true},
			Reviews:    []string{"best broth"},
		},
		{
			PlaceID:    "p2",
			Name:       "Dimsum House",
			Location:   &place.LatLng{Lat: 49.2, Lng: -122.9},
			PriceLevel: place.PriceLevelUnknown,
			Rating:     3.9,
		},
	}
}

func TestSaveAndLoadPlaces(t *testing.T) {
	store := newMemStore()
	repo := New(store, time.Hour)
	ctx := context.Background()

	records := sampleRecords()
	if err := repo.SavePlaces(ctx, "sess", records); err != nil {
		t.Fatalf("SavePlaces failed: %v", err)
	}

	got, err := repo.LoadPlaces(ctx, "sess")
	if err != nil {
		t.Fatalf("LoadPlaces failed: %v", err)
	}
	if !reflect.DeepEqual(got, records) {
		t.Errorf("round-trip mismatch:\ngot  %+v\nwant %+v", got, records)
	}
}

func TestSavePlacesAppliesTTL(t *testing.T) {
	store := newMemStore()
	repo := New(store, 30*time.Minute)

	if err := repo.SavePlaces(context.Background(), "sess", sampleRecords()); err != nil {
		t.Fatalf("SavePlaces failed: %v", err)
	}

	for key, ttl := range store.ttls {
		if ttl != 30*time.Minute {
			t.Errorf("key %s: expected TTL 30m, got %v", key, ttl)
		}
	}
	if len(store.ttls) == 0 {
		t.Fatal("expected a TTL to be recorded")
	}
}

func TestLoadPlacesMissing(t *testing.T) {
	repo := New(newMemStore(), time.Hour)

	_, err := repo.LoadPlaces(context.Background(), "sess")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestSaveAndLoadClusters(t *testing.T) {
	store := newMemStore()
	repo := New(store, time.Hour)
	ctx := context.Background()

	table := cluster.Table{
		Features: feature.Table{
			Rows: []feature.Row{
				{PlaceID: "p1", Numeric: []float64{2, 4.5, 10, 49.1, -122.8}, Categorical: []uint8{1, 0}, Text: "thai place"},
				{PlaceID: "p2", Numeric: []float64{3, 3.9, 0, 49.2, -122.9}, Categorical: []uint8{0, 1}, Text: ""},
			},
			TagColumns: []string{"restaurant", "thai"},
		},
		Labels: []int{0, 1},
		K:      2,
	}

	if err := repo.SaveClusters(ctx, "sess", table); err != nil {
		t.Fatalf("SaveClusters failed: %v", err)
	}

	got, err := repo.LoadClusters(ctx, "sess")
	if err != nil {
		t.Fatalf("LoadClusters failed: %v", err)
	}
	if !reflect.DeepEqual(got, table) {
		t.Errorf("round-trip mismatch:\ngot  %+v\nwant %+v", got, table)
	}
}

func TestLoadClustersMissing(t *testing.T) {
	repo := New(newMemStore(), time.Hour)

	_, err := repo.LoadClusters(context.Background(), "sess")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestDropRemovesBothBlobs(t *testing.T) {
	store := newMemStore()
	repo := New(store, time.Hour)
	ctx := context.Background()

	if err := repo.SavePlaces(ctx, "sess", sampleRecords()); err != nil {
		t.Fatalf("SavePlaces failed: %v", err)
	}
	if err := repo.SaveClusters(ctx, "sess", cluster.Table{K: 1, Labels: []int{0}}); err != nil {
		t.Fatalf("SaveClusters failed: %v", err)
	}

	if err := repo.Drop(ctx, "sess"); err != nil {
		t.Fatalf("Drop failed: %v", err)
	}

	if _, err := repo.LoadPlaces(ctx, "sess"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected places gone, got %v", err)
	}
	if _, err := repo.LoadClusters(ctx, "sess"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected clusters gone, got %v", err)
	}
}

func TestStoreErrorsAreWrapped(t *testing.T) {
	store := newMemStore()
	store.getErr = errors.New("boom")
	repo := New(store, time.Hour)

	if _, err := repo.LoadPlaces(context.Background(), "sess"); err == nil {
		t.Error("expected error from failing store")
	}
	if _, err := repo.LoadClusters(context.Background(), "sess"); err == nil {
		t.Error("expected error from failing store")
	}
}
