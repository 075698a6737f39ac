package subscriptions

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jordanlanch/replykit/pkg/store"
)

// Service owns subscription lifecycle: trial creation, lazy expiry on
// evaluation, and plan upgrades.
type Service struct {
	store     store.Store
	trialDays int

	// Now returns wall-clock time. Tests override it.
	Now func() time.Time
}

// NewService creates a subscription service
func NewService(st store.Store, trialDays int) *Service {
	return &Service{
		store:     st,
		trialDays: trialDays,
		Now:       time.Now,
	}
}

// CreateTrial starts the trial for a freshly registered user. If a
// subscription already exists the call is a no-op: an expired trial is
// not reset by re-registering a device or logging in again.
func (s *Service) CreateTrial(ctx context.Context, userID string) error {
	trialEndsAt := s.Now().Add(time.Duration(s.trialDays) * 24 * time.Hour)

	return s.store.CreateSubscription(ctx, &store.Subscription{
		UserID:      userID,
		PlanType:    store.PlanTrial,
		Status:      store.StatusActive,
		TrialEndsAt: &trialEndsAt,
	})
}

// Get returns the user's subscription, or nil if none exists.
func (s *Service) Get(ctx context.Context, userID string) (*store.Subscription, error) {
	sub, err := s.store.SubscriptionByUser(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	return sub, err
}

// Evaluate decides entitlement for a subscription at a given instant.
// It is pure: the returned expired flag tells the caller whether the
// record's status must be persisted as expired. Trial and period checks
// are independent; a trial with a period end is held to both.
func Evaluate(sub *store.Subscription, now time.Time) (expired, entitled bool) {
	if sub == nil {
		return false, false
	}

	if sub.PlanType == store.PlanTrial && sub.TrialEndsAt != nil &&
		now.After(*sub.TrialEndsAt) && sub.Status == store.StatusActive {
		expired = true
	}
	if sub.CurrentPeriodEnd != nil &&
		now.After(*sub.CurrentPeriodEnd) && sub.Status == store.StatusActive {
		expired = true
	}

	return expired, !expired && sub.Status == store.StatusActive
}

// Entitled reports whether the user may use metered features right now.
// An overdue active subscription is transitioned to expired as a side
// effect of the read.
func (s *Service) Entitled(ctx context.Context, userID string) (bool, error) {
	sub, err := s.Get(ctx, userID)
	if err != nil {
		return false, err
	}

	expired, entitled := Evaluate(sub, s.Now())
	if expired {
		if err := s.store.SetSubscriptionStatus(ctx, userID, store.StatusExpired); err != nil {
			return false, fmt.Errorf("failed to expire subscription: %w", err)
		}
	}

	return entitled, nil
}

// Upgrade overwrites the user's plan, status and period end. Monthly
// plans run one calendar month from now, yearly plans one year. No
// proration, no history.
func (s *Service) Upgrade(ctx context.Context, userID, planType, status string) (*store.Subscription, error) {
	var currentPeriodEnd *time.Time
	switch planType {
	case store.PlanMonthly:
		end := s.Now().AddDate(0, 1, 0)
		currentPeriodEnd = &end
	case store.PlanYearly:
		end := s.Now().AddDate(1, 0, 0)
		currentPeriodEnd = &end
	}

	sub := &store.Subscription{
		UserID:           userID,
		PlanType:         planType,
		Status:           status,
		CurrentPeriodEnd: currentPeriodEnd,
	}
	if err := s.store.SaveSubscription(ctx, sub); err != nil {
		return nil, err
	}
	return sub, nil
}

// ExpireOverdue sweeps every active subscription whose end date has
// passed. Used by the cron job; the lazy transition in Entitled remains
// the authority for request-time decisions.
func (s *Service) ExpireOverdue(ctx context.Context) (int, error) {
	return s.store.ExpireOverdueSubscriptions(ctx, s.Now())
}
