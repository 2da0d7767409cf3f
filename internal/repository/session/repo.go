// Package session persists session liveness markers with a sliding TTL.
package session

import (
	"context"
	"fmt"
	"time"

	"github.com/tablematch/tablematch/internal/domain"
)

// store is the consumer interface for session markers (ISP).
type store interface {
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Exists(ctx context.Context, key string) (bool, error)
	Expire(ctx context.Context, key string, ttl time.Duration) error
	Del(ctx context.Context, key string) error
}

// Repo stores one marker key per live session.
type Repo struct {
	store store
	ttl   time.Duration
}

// New creates a session repository. ttl is the idle timeout; every Touch
// resets it.
func New(s store, ttl time.Duration) *Repo {
	return &Repo{store: s, ttl: ttl}
}

// Create registers a new session ID.
func (r *Repo) Create(ctx context.Context, id string) error {
	if err := r.store.SetWithTTL(ctx, sessionKey(id), []byte("1"), r.ttl); err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

// Touch extends a live session's TTL.
// Returns domain.ErrSessionNotFound for expired or unknown sessions.
func (r *Repo) Touch(ctx context.Context, id string) error {
	exists, err := r.store.Exists(ctx, sessionKey(id))
	if err != nil {
		return fmt.Errorf("check session: %w", err)
	}
	if !exists {
		return domain.ErrSessionNotFound
	}
	if err := r.store.Expire(ctx, sessionKey(id), r.ttl); err != nil {
		return fmt.Errorf("extend session: %w", err)
	}
	return nil
}

// Delete removes a session marker.
func (r *Repo) Delete(ctx context.Context, id string) error {
	if err := r.store.Del(ctx, sessionKey(id)); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func sessionKey(id string) string {
	return domain.KeyPrefix + "session:" + id
}
