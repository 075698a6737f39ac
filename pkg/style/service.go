package style

import (
	"context"
	"errors"

	"github.com/jordanlanch/replykit/pkg/store"
)

// Service manages per-user message style preferences.
type Service struct {
	store store.Store
}

// NewService creates a style service
func NewService(st store.Store) *Service {
	return &Service{store: st}
}

// Get returns the user's style settings, creating the defaults on first
// read if registration never wrote them.
func (s *Service) Get(ctx context.Context, userID string) (*store.StyleSettings, error) {
	settings, err := s.store.StyleByUser(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return s.store.UpsertStyle(ctx, userID, store.StyleInput{})
	}
	return settings, err
}

// Update applies a partial style update and returns the result.
func (s *Service) Update(ctx context.Context, userID string, in store.StyleInput) (*store.StyleSettings, error) {
	return s.store.UpsertStyle(ctx, userID, in)
}

// CreateDefaults writes the default style row for a new user.
func (s *Service) CreateDefaults(ctx context.Context, userID string) error {
	_, err := s.store.UpsertStyle(ctx, userID, store.StyleInput{})
	return err
}
