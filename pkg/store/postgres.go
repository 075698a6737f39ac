package store

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed schema.sql
var schemaSQL string

// Postgres implements Store on a pgx connection pool.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres creates the pool and applies the schema. The pool connects
// lazily, so an unreachable database does not fail here; the error shows
// up on first use (and on Ping, which the health endpoint reports).
func NewPostgres(ctx context.Context, databaseURL string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed parsing database URL: %w", err)
	}

	if _, err := pool.Exec(ctx, schemaSQL); err != nil {
		// Deferred: the service starts and reports unhealthy instead of
		// crash-looping while the database is down.
		log.Printf("⚠️  Schema apply deferred, database unreachable: %v", err)
	}

	return &Postgres{pool: pool}, nil
}

func (p *Postgres) Close() {
	p.pool.Close()
}

func (p *Postgres) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// Users

func (p *Postgres) CreateUser(ctx context.Context, email, passwordHash string) (*User, error) {
	u := &User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now().UTC(),
	}

	_, err := p.pool.Exec(ctx,
		`INSERT INTO users (id, email, password_hash, created_at) VALUES ($1, $2, $3, $4)`,
		u.ID, u.Email, u.PasswordHash, u.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateEmail
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return u, nil
}

func (p *Postgres) UserByEmail(ctx context.Context, email string) (*User, error) {
	return p.scanUser(p.pool.QueryRow(ctx,
		`SELECT id, email, password_hash, created_at FROM users WHERE email = $1`, email))
}

func (p *Postgres) UserByID(ctx context.Context, id string) (*User, error) {
	return p.scanUser(p.pool.QueryRow(ctx,
		`SELECT id, email, password_hash, created_at FROM users WHERE id = $1`, id))
}

func (p *Postgres) scanUser(row pgx.Row) (*User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// Devices

func (p *Postgres) UpsertDevice(ctx context.Context, userID string, in DeviceInput, now time.Time) (*Device, error) {
	var d Device
	// Platform is deliberately absent from the conflict update: it is an
	// identity attribute fixed at first sight.
	err := p.pool.QueryRow(ctx, `
		INSERT INTO devices (id, user_id, device_id, platform, model, os_version, created_at, last_seen_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
		ON CONFLICT (user_id, device_id) DO UPDATE
		SET model = EXCLUDED.model, os_version = EXCLUDED.os_version, last_seen_at = EXCLUDED.last_seen_at
		RETURNING id, user_id, device_id, platform, model, os_version, created_at, last_seen_at`,
		uuid.NewString(), userID, in.DeviceID, in.Platform, in.Model, in.OSVersion, now.UTC()).
		Scan(&d.ID, &d.UserID, &d.DeviceID, &d.Platform, &d.Model, &d.OSVersion, &d.CreatedAt, &d.LastSeenAt)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert device: %w", err)
	}
	return &d, nil
}

func (p *Postgres) DevicesByUser(ctx context.Context, userID string) ([]*Device, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT id, user_id, device_id, platform, model, os_version, created_at, last_seen_at
		FROM devices WHERE user_id = $1 ORDER BY created_at`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var devices []*Device
	for rows.Next() {
		var d Device
		if err := rows.Scan(&d.ID, &d.UserID, &d.DeviceID, &d.Platform, &d.Model, &d.OSVersion, &d.CreatedAt, &d.LastSeenAt); err != nil {
			return nil, err
		}
		devices = append(devices, &d)
	}
	return devices, rows.Err()
}

// Sessions

func (p *Postgres) CreateSession(ctx context.Context, s *Session) error {
	var deviceID *string
	if s.DeviceID != "" {
		deviceID = &s.DeviceID
	}
	_, err := p.pool.Exec(ctx, `
		INSERT INTO sessions (id, user_id, device_id, refresh_token_hash, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		s.ID, s.UserID, deviceID, s.RefreshTokenHash, s.ExpiresAt, s.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

func (p *Postgres) LiveSessions(ctx context.Context, now time.Time) ([]*Session, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT id, user_id, device_id, refresh_token_hash, expires_at, revoked_at, created_at
		FROM sessions WHERE revoked_at IS NULL AND expires_at > $1
		ORDER BY created_at`, now.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []*Session
	for rows.Next() {
		var (
			s        Session
			deviceID *string
		)
		if err := rows.Scan(&s.ID, &s.UserID, &deviceID, &s.RefreshTokenHash, &s.ExpiresAt, &s.RevokedAt, &s.CreatedAt); err != nil {
			return nil, err
		}
		if deviceID != nil {
			s.DeviceID = *deviceID
		}
		sessions = append(sessions, &s)
	}
	return sessions, rows.Err()
}

func (p *Postgres) RevokeSession(ctx context.Context, id string, at time.Time) (bool, error) {
	tag, err := p.pool.Exec(ctx,
		`UPDATE sessions SET revoked_at = $1 WHERE id = $2 AND revoked_at IS NULL`, at.UTC(), id)
	if err != nil {
		return false, fmt.Errorf("failed to revoke session: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// Subscriptions

func (p *Postgres) SubscriptionByUser(ctx context.Context, userID string) (*Subscription, error) {
	var s Subscription
	err := p.pool.QueryRow(ctx, `
		SELECT user_id, plan_type, status, trial_ends_at, current_period_end
		FROM subscriptions WHERE user_id = $1`, userID).
		Scan(&s.UserID, &s.PlanType, &s.Status, &s.TrialEndsAt, &s.CurrentPeriodEnd)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (p *Postgres) CreateSubscription(ctx context.Context, sub *Subscription) error {
	_, err := p.pool.Exec(ctx, `
		INSERT INTO subscriptions (user_id, plan_type, status, trial_ends_at, current_period_end)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id) DO NOTHING`,
		sub.UserID, sub.PlanType, sub.Status, sub.TrialEndsAt, sub.CurrentPeriodEnd)
	if err != nil {
		return fmt.Errorf("failed to create subscription: %w", err)
	}
	return nil
}

func (p *Postgres) SaveSubscription(ctx context.Context, sub *Subscription) error {
	_, err := p.pool.Exec(ctx, `
		INSERT INTO subscriptions (user_id, plan_type, status, trial_ends_at, current_period_end)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id) DO UPDATE
		SET plan_type = EXCLUDED.plan_type, status = EXCLUDED.status, current_period_end = EXCLUDED.current_period_end`,
		sub.UserID, sub.PlanType, sub.Status, sub.TrialEndsAt, sub.CurrentPeriodEnd)
	if err != nil {
		return fmt.Errorf("failed to save subscription: %w", err)
	}
	return nil
}

func (p *Postgres) SetSubscriptionStatus(ctx context.Context, userID, status string) error {
	_, err := p.pool.Exec(ctx,
		`UPDATE subscriptions SET status = $1 WHERE user_id = $2`, status, userID)
	return err
}

func (p *Postgres) ExpireOverdueSubscriptions(ctx context.Context, now time.Time) (int, error) {
	tag, err := p.pool.Exec(ctx, `
		UPDATE subscriptions SET status = $1
		WHERE status = $2
		  AND ((plan_type = $3 AND trial_ends_at IS NOT NULL AND trial_ends_at < $4)
		    OR (current_period_end IS NOT NULL AND current_period_end < $4))`,
		StatusExpired, StatusActive, PlanTrial, now.UTC())
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

// Usage

func (p *Postgres) UsageFor(ctx context.Context, userID string, day time.Time) (int, error) {
	var requests int
	err := p.pool.QueryRow(ctx,
		`SELECT requests FROM usage_daily_totals WHERE user_id = $1 AND date = $2`,
		userID, Day(day)).Scan(&requests)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return requests, nil
}

func (p *Postgres) IncrementUsage(ctx context.Context, userID string, day time.Time) error {
	// Single-statement upsert: safe under concurrent increments for the
	// same (user, day).
	_, err := p.pool.Exec(ctx, `
		INSERT INTO usage_daily_totals (user_id, date, requests) VALUES ($1, $2, 1)
		ON CONFLICT (user_id, date) DO UPDATE
		SET requests = usage_daily_totals.requests + 1`,
		userID, Day(day))
	if err != nil {
		return fmt.Errorf("failed to increment usage: %w", err)
	}
	return nil
}

// Style settings

func (p *Postgres) StyleByUser(ctx context.Context, userID string) (*StyleSettings, error) {
	var s StyleSettings
	err := p.pool.QueryRow(ctx, `
		SELECT user_id, tone, emoji_level, length_pref, profanity_ok
		FROM style_settings WHERE user_id = $1`, userID).
		Scan(&s.UserID, &s.Tone, &s.EmojiLevel, &s.LengthPref, &s.ProfanityOk)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (p *Postgres) UpsertStyle(ctx context.Context, userID string, in StyleInput) (*StyleSettings, error) {
	var s StyleSettings
	err := p.pool.QueryRow(ctx, `
		INSERT INTO style_settings (user_id, tone, emoji_level, length_pref, profanity_ok)
		VALUES ($1, COALESCE($2, 'casual'), COALESCE($3, 'normal'), COALESCE($4, 'short'), COALESCE($5, false))
		ON CONFLICT (user_id) DO UPDATE
		SET tone         = COALESCE($2, style_settings.tone),
		    emoji_level  = COALESCE($3, style_settings.emoji_level),
		    length_pref  = COALESCE($4, style_settings.length_pref),
		    profanity_ok = COALESCE($5, style_settings.profanity_ok)
		RETURNING user_id, tone, emoji_level, length_pref, profanity_ok`,
		userID, in.Tone, in.EmojiLevel, in.LengthPref, in.ProfanityOk).
		Scan(&s.UserID, &s.Tone, &s.EmojiLevel, &s.LengthPref, &s.ProfanityOk)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert style settings: %w", err)
	}
	return &s, nil
}

// Generations

func (p *Postgres) CreateGeneration(ctx context.Context, g *MessageGeneration) error {
	styleJSON, err := json.Marshal(g.StyleSnapshot)
	if err != nil {
		return err
	}
	suggestionsJSON, err := json.Marshal(g.Suggestions)
	if err != nil {
		return err
	}

	_, err = p.pool.Exec(ctx, `
		INSERT INTO message_generations (id, user_id, input_snippet, style_snapshot, suggestions, provider, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		g.ID, g.UserID, g.InputSnippet, styleJSON, suggestionsJSON, g.Provider, g.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to store generation: %w", err)
	}
	return nil
}
