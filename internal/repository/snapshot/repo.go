// Package snapshot persists the most recent candidate batch and its
// clustering per session, so feedback and recommendation requests operate
// on the same rows the user saw.
package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/tablematch/tablematch/internal/db"
	"github.com/tablematch/tablematch/internal/domain"
	"github.com/tablematch/tablematch/internal/domain/place"
	"github.com/tablematch/tablematch/internal/usecase/cluster"
)

// store is the consumer interface for snapshots (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Del(ctx context.Context, key string) error
}

// Repo stores snapshot blobs as JSON with a shared TTL.
type Repo struct {
	store store
	ttl   time.Duration
}

// New creates a snapshot repository. ttl bounds how long a stale batch can
// serve recommendations.
func New(s store, ttl time.Duration) *Repo {
	return &Repo{store: s, ttl: ttl}
}

// SavePlaces stores the candidate batch shown to the user.
func (r *Repo) SavePlaces(ctx context.Context, sessionID string, records []place.Record) error {
	data, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("marshal places: %w", err)
	}
	if err := r.store.SetWithTTL(ctx, placesKey(sessionID), data, r.ttl); err != nil {
		return fmt.Errorf("save places: %w", err)
	}
	return nil
}

// LoadPlaces returns the stored candidate batch.
// Returns domain.ErrNotFound when no batch exists for the session.
func (r *Repo) LoadPlaces(ctx context.Context, sessionID string) ([]place.Record, error) {
	data, err := r.store.Get(ctx, placesKey(sessionID))
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("load places: %w", err)
	}

	var records []place.Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("unmarshal places: %w", err)
	}
	return records, nil
}

// SaveClusters stores the clustered feature table for the current batch.
func (r *Repo) SaveClusters(ctx context.Context, sessionID string, table cluster.Table) error {
	data, err := json.Marshal(table)
	if err != nil {
		return fmt.Errorf("marshal clusters: %w", err)
	}
	if err := r.store.SetWithTTL(ctx, clustersKey(sessionID), data, r.ttl); err != nil {
		return fmt.Errorf("save clusters: %w", err)
	}
	return nil
}

// LoadClusters returns the stored clustered table.
// Returns domain.ErrNotFound when the session has no clustering yet.
func (r *Repo) LoadClusters(ctx context.Context, sessionID string) (cluster.Table, error) {
	data, err := r.store.Get(ctx, clustersKey(sessionID))
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return cluster.Table{}, domain.ErrNotFound
		}
		return cluster.Table{}, fmt.Errorf("load clusters: %w", err)
	}

	var table cluster.Table
	if err := json.Unmarshal(data, &table); err != nil {
		return cluster.Table{}, fmt.Errorf("unmarshal clusters: %w", err)
	}
	return table, nil
}

// Drop deletes all snapshot state for a session.
func (r *Repo) Drop(ctx context.Context, sessionID string) error {
	if err := r.store.Del(ctx, placesKey(sessionID)); err != nil {
		return fmt.Errorf("drop places: %w", err)
	}
	if err := r.store.Del(ctx, clustersKey(sessionID)); err != nil {
		return fmt.Errorf("drop clusters: %w", err)
	}
	return nil
}

func placesKey(sessionID string) string {
	return fmt.Sprintf("%ssnapshot:%s:places", domain.KeyPrefix, sessionID)
}

func clustersKey(sessionID string) string {
	return fmt.Sprintf("%ssnapshot:%s:clusters", domain.KeyPrefix, sessionID)
}
