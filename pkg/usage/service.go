package usage

import (
	"context"
	"time"

	"github.com/jordanlanch/replykit/pkg/store"
)

// Limits holds the per-plan daily request quotas.
type Limits struct {
	Pro     int
	Default int
}

// Service meters per-user daily request counts against plan quotas.
// Days are bucketed at UTC midnight.
type Service struct {
	store  store.Store
	limits Limits

	// Now returns wall-clock time. Tests override it.
	Now func() time.Time
}

// NewService creates a usage meter
func NewService(st store.Store, limits Limits) *Service {
	return &Service{store: st, limits: limits, Now: time.Now}
}

// LimitFor returns the daily quota for a plan type.
func (s *Service) LimitFor(planType string) int {
	if planType == "pro" {
		return s.limits.Pro
	}
	return s.limits.Default
}

// Exceeded reports whether the user has already used up today's quota.
// The check and the later increment are separate store operations, so
// concurrent in-flight requests can each pass before either increments;
// that transient overshoot matches the system this replaces.
func (s *Service) Exceeded(ctx context.Context, userID, planType string) (bool, error) {
	requests, err := s.store.UsageFor(ctx, userID, s.Now())
	if err != nil {
		return false, err
	}
	return requests >= s.LimitFor(planType), nil
}

// Increment records one metered request in today's bucket. The upsert
// is atomic, so same-day concurrent increments never lose counts.
func (s *Service) Increment(ctx context.Context, userID string) error {
	return s.store.IncrementUsage(ctx, userID, s.Now())
}

// Today returns the user's request count for the current day.
func (s *Service) Today(ctx context.Context, userID string) (int, error) {
	return s.store.UsageFor(ctx, userID, s.Now())
}
