package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/jordanlanch/replykit/pkg/auth"
	"github.com/jordanlanch/replykit/pkg/store"
)

// ErrInvalidRefreshToken is returned whenever a presented refresh token
// matches no live session. Callers cannot tell a missing token from an
// expired or revoked one.
var ErrInvalidRefreshToken = errors.New("invalid refresh token")

// TokenPair is one issued access/refresh credential pair.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// Manager owns refresh-token issuance, rotation and revocation. A
// session's validity is decided by its stored expires_at/revoked_at, not
// by the signed token's exp claim; the signer stamps refresh tokens with
// the same TTL so the two never diverge.
type Manager struct {
	store      store.Store
	signer     *auth.Signer
	sessionTTL time.Duration

	// Now returns wall-clock time. Tests override it.
	Now func() time.Time
}

// NewManager creates a session manager. sessionTTL is the absolute
// lifetime stamped on every new session record.
func NewManager(st store.Store, signer *auth.Signer, sessionTTL time.Duration) *Manager {
	return &Manager{
		store:      st,
		signer:     signer,
		sessionTTL: sessionTTL,
		Now:        time.Now,
	}
}

// Start issues an access/refresh pair and persists a new session holding
// the bcrypt digest of the refresh token. Existing sessions for the same
// user or device are left alone; concurrent sessions are permitted.
func (m *Manager) Start(ctx context.Context, userID, deviceID string) (*TokenPair, error) {
	accessToken, err := m.signer.IssueAccess(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to issue access token: %w", err)
	}

	refreshToken, err := m.signer.IssueRefresh(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to issue refresh token: %w", err)
	}

	// bcrypt caps input at 72 bytes, so the digest covers the SHA256 of
	// the token rather than the token itself.
	hash, err := bcrypt.GenerateFromPassword([]byte(auth.HashToken(refreshToken)), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash refresh token: %w", err)
	}

	now := m.Now()
	err = m.store.CreateSession(ctx, &store.Session{
		ID:               uuid.NewString(),
		UserID:           userID,
		DeviceID:         deviceID,
		RefreshTokenHash: string(hash),
		ExpiresAt:        now.Add(m.sessionTTL),
		CreatedAt:        now,
	})
	if err != nil {
		return nil, err
	}

	return &TokenPair{AccessToken: accessToken, RefreshToken: refreshToken}, nil
}

// Rotate exchanges a live refresh token for a fresh pair. The presented
// token is matched against every live session by hashed comparison; the
// matched session is revoked before the replacement is minted, so each
// refresh token rotates at most once. Losing a concurrent rotation of
// the same token fails exactly like presenting an unknown token.
func (m *Manager) Rotate(ctx context.Context, refreshToken string) (*TokenPair, error) {
	matched, err := m.findLive(ctx, refreshToken)
	if err != nil {
		return nil, err
	}
	if matched == nil {
		return nil, ErrInvalidRefreshToken
	}

	revoked, err := m.store.RevokeSession(ctx, matched.ID, m.Now())
	if err != nil {
		return nil, err
	}
	if !revoked {
		return nil, ErrInvalidRefreshToken
	}

	return m.Start(ctx, matched.UserID, matched.DeviceID)
}

// End revokes the session matching the presented refresh token. Logout
// never errors: an unknown, expired or already-revoked token is a no-op.
func (m *Manager) End(ctx context.Context, refreshToken string) error {
	matched, err := m.findLive(ctx, refreshToken)
	if err != nil || matched == nil {
		return err
	}

	_, err = m.store.RevokeSession(ctx, matched.ID, m.Now())
	return err
}

// findLive scans the live session set for the session whose stored hash
// matches the presented token, stopping at the first match. The digest
// is one-way, so this is a linear scan by construction.
func (m *Manager) findLive(ctx context.Context, refreshToken string) (*store.Session, error) {
	sessions, err := m.store.LiveSessions(ctx, m.Now())
	if err != nil {
		return nil, err
	}

	presented := []byte(auth.HashToken(refreshToken))
	for _, s := range sessions {
		if bcrypt.CompareHashAndPassword([]byte(s.RefreshTokenHash), presented) == nil {
			return s, nil
		}
	}
	return nil, nil
}
