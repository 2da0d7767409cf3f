// Package session manages session lifecycle: creation, sliding-TTL renewal
// and teardown of all per-session state.
package session

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Repository persists session liveness markers.
type Repository interface {
	Create(ctx context.Context, id string) error
	Touch(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
}

// StateDropper removes per-session state (feedback sets, snapshots) on teardown.
type StateDropper interface {
	Drop(ctx context.Context, sessionID string) error
}

// Service orchestrates session lifecycle.
type Service struct {
	repo     Repository
	droppers []StateDropper
	logger   *zap.Logger
}

// New creates a session service. droppers are invoked on End to clean up
// whatever state the session accumulated.
func New(repo Repository, logger *zap.Logger, droppers ...StateDropper) *Service {
	return &Service{repo: repo, droppers: droppers, logger: logger}
}

// Start creates a new session and returns its ID.
func (s *Service) Start(ctx context.Context) (string, error) {
	id := uuid.NewString()
	if err := s.repo.Create(ctx, id); err != nil {
		return "", fmt.Errorf("start session: %w", err)
	}
	s.logger.Info("Session started", zap.String("session_id", id))
	return id, nil
}

// Touch extends the session's idle timeout.
func (s *Service) Touch(ctx context.Context, id string) error {
	return s.repo.Touch(ctx, id)
}

// End deletes the session and all state attached to it. Cleanup failures
// are logged but do not abort teardown.
func (s *Service) End(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("end session: %w", err)
	}
	for _, d := range s.droppers {
		if err := d.Drop(ctx, id); err != nil {
			s.logger.Warn("Failed to drop session state",
				zap.String("session_id", id), zap.Error(err))
		}
	}
	s.logger.Info("Session ended", zap.String("session_id", id))
	return nil
}
