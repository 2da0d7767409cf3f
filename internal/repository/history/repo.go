// Package history persists per-session like/dislike feedback as store sets.
package history

import (
	"context"
	"fmt"

	"github.com/tablematch/tablematch/internal/domain"
	domhist "github.com/tablematch/tablematch/internal/domain/history"
)

// store is the consumer interface for feedback sets (ISP).
type store interface {
	SAdd(ctx context.Context, key string, members ...string) error
	SRem(ctx context.Context, key string, members ...string) error
	SMembers(ctx context.Context, key string) ([]string, error)
	Del(ctx context.Context, key string) error
}

// Repo implements usecase feedback storage on two sets per session.
type Repo struct {
	store store
}

// New creates a feedback history repository.
func New(s store) *Repo {
	return &Repo{store: s}
}

// Like marks a place as liked. A prior dislike for the same place is removed
// so the two sets stay disjoint.
func (r *Repo) Like(ctx context.Context, sessionID, placeID string) error {
	if err := r.store.SRem(ctx, dislikedKey(sessionID), placeID); err != nil {
		return fmt.Errorf("clear dislike %s: %w", placeID, err)
	}
	if err := r.store.SAdd(ctx, likedKey(sessionID), placeID); err != nil {
		return fmt.Errorf("add like %s: %w", placeID, err)
	}
	return nil
}

// Dislike marks a place as disliked, removing any prior like.
func (r *Repo) Dislike(ctx context.Context, sessionID, placeID string) error {
	if err := r.store.SRem(ctx, likedKey(sessionID), placeID); err != nil {
		return fmt.Errorf("clear like %s: %w", placeID, err)
	}
	if err := r.store.SAdd(ctx, dislikedKey(sessionID), placeID); err != nil {
		return fmt.Errorf("add dislike %s: %w", placeID, err)
	}
	return nil
}

// Clear removes any feedback for a single place.
func (r *Repo) Clear(ctx context.Context, sessionID, placeID string) error {
	if err := r.store.SRem(ctx, likedKey(sessionID), placeID); err != nil {
		return fmt.Errorf("clear like %s: %w", placeID, err)
	}
	if err := r.store.SRem(ctx, dislikedKey(sessionID), placeID); err != nil {
		return fmt.Errorf("clear dislike %s: %w", placeID, err)
	}
	return nil
}

// Load returns the full feedback history for a session.
func (r *Repo) Load(ctx context.Context, sessionID string) (domhist.History, error) {
	liked, err := r.store.SMembers(ctx, likedKey(sessionID))
	if err != nil {
		return domhist.History{}, fmt.Errorf("load liked: %w", err)
	}
	disliked, err := r.store.SMembers(ctx, dislikedKey(sessionID))
	if err != nil {
		return domhist.History{}, fmt.Errorf("load disliked: %w", err)
	}
	return domhist.FromSets(liked, disliked), nil
}

// Drop deletes all feedback for a session.
func (r *Repo) Drop(ctx context.Context, sessionID string) error {
	if err := r.store.Del(ctx, likedKey(sessionID)); err != nil {
		return fmt.Errorf("drop liked: %w", err)
	}
	if err := r.store.Del(ctx, dislikedKey(sessionID)); err != nil {
		return fmt.Errorf("drop disliked: %w", err)
	}
	return nil
}

func likedKey(sessionID string) string {
	return fmt.Sprintf("%shistory:%s:liked", domain.KeyPrefix, sessionID)
}

func dislikedKey(sessionID string) string {
	return fmt.Sprintf("%shistory:%s:disliked", domain.KeyPrefix, sessionID)
}
