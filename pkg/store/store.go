package store

import (
	"context"
	"errors"
	"time"
)

// Sentinel errors returned by every Store implementation.
var (
	ErrNotFound       = errors.New("record not found")
	ErrDuplicateEmail = errors.New("email already registered")
)

// User is a registered account.
type User struct {
	ID           string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

// Device is one physical device bound to a user. (UserID, DeviceID) is
// unique; Platform is fixed at first sight.
type Device struct {
	ID         string
	UserID     string
	DeviceID   string
	Platform   string
	Model      string
	OSVersion  string
	CreatedAt  time.Time
	LastSeenAt time.Time
}

// DeviceInput carries the client-reported device attributes for an upsert.
type DeviceInput struct {
	DeviceID  string
	Platform  string
	Model     string
	OSVersion string
}

// Session is one outstanding refresh credential. Sessions are never
// deleted; revocation sets RevokedAt.
type Session struct {
	ID               string
	UserID           string
	DeviceID         string // internal device row id, may be empty
	RefreshTokenHash string
	ExpiresAt        time.Time
	RevokedAt        *time.Time
	CreatedAt        time.Time
}

// Subscription plan types and statuses.
const (
	PlanTrial   = "trial"
	PlanMonthly = "monthly"
	PlanYearly  = "yearly"

	StatusActive  = "active"
	StatusExpired = "expired"
)

// Subscription is the single entitlement record per user.
type Subscription struct {
	UserID           string
	PlanType         string
	Status           string
	TrialEndsAt      *time.Time
	CurrentPeriodEnd *time.Time
}

// StyleSettings are per-user message style preferences, consumed by
// prompt assembly.
type StyleSettings struct {
	UserID      string
	Tone        string
	EmojiLevel  string
	LengthPref  string
	ProfanityOk bool
}

// StyleInput carries a partial style update; nil fields are left as-is.
type StyleInput struct {
	Tone        *string
	EmojiLevel  *string
	LengthPref  *string
	ProfanityOk *bool
}

// MessageGeneration is the append-only audit record of one generation.
type MessageGeneration struct {
	ID            string
	UserID        string
	InputSnippet  string
	StyleSnapshot map[string]interface{}
	Suggestions   []string
	Provider      string
	CreatedAt     time.Time
}

// Store is the durable record store behind the session & entitlement
// engine. All operations are individually atomic; multi-step flows commit
// each step independently.
type Store interface {
	// Users
	CreateUser(ctx context.Context, email, passwordHash string) (*User, error)
	UserByEmail(ctx context.Context, email string) (*User, error)
	UserByID(ctx context.Context, id string) (*User, error)

	// Devices
	UpsertDevice(ctx context.Context, userID string, in DeviceInput, now time.Time) (*Device, error)
	DevicesByUser(ctx context.Context, userID string) ([]*Device, error)

	// Sessions
	CreateSession(ctx context.Context, s *Session) error
	LiveSessions(ctx context.Context, now time.Time) ([]*Session, error)
	// RevokeSession sets revoked_at only if the session is still
	// unrevoked. Returns false when another caller got there first.
	RevokeSession(ctx context.Context, id string, at time.Time) (bool, error)

	// Subscriptions
	SubscriptionByUser(ctx context.Context, userID string) (*Subscription, error)
	// CreateSubscription inserts the record only if none exists for the
	// user; an existing record is left untouched.
	CreateSubscription(ctx context.Context, sub *Subscription) error
	// SaveSubscription upserts plan/status/period end unconditionally.
	SaveSubscription(ctx context.Context, sub *Subscription) error
	SetSubscriptionStatus(ctx context.Context, userID, status string) error
	// ExpireOverdueSubscriptions flips status to expired for every active
	// subscription whose trial or period end has passed. Returns the
	// number of rows changed.
	ExpireOverdueSubscriptions(ctx context.Context, now time.Time) (int, error)

	// Usage
	UsageFor(ctx context.Context, userID string, day time.Time) (int, error)
	IncrementUsage(ctx context.Context, userID string, day time.Time) error

	// Style settings
	StyleByUser(ctx context.Context, userID string) (*StyleSettings, error)
	UpsertStyle(ctx context.Context, userID string, in StyleInput) (*StyleSettings, error)

	// Generations
	CreateGeneration(ctx context.Context, g *MessageGeneration) error

	Ping(ctx context.Context) error
	Close()
}

// Day truncates t to its UTC calendar day. Both the usage check and the
// usage increment must bucket with the same function.
func Day(t time.Time) time.Time {
	return t.UTC().Truncate(24 * time.Hour)
}
