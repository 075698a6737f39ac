package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Memory is an in-process Store used by tests and local development. It
// mirrors the Postgres implementation's semantics, including conditional
// session revocation and atomic usage increments.
type Memory struct {
	mu            sync.Mutex
	users         map[string]*User // by id
	usersByEmail  map[string]string
	devices       []*Device
	sessions      []*Session
	subscriptions map[string]*Subscription
	usage         map[string]int // userID + "|" + day
	styles        map[string]*StyleSettings
	generations   []*MessageGeneration
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		users:         make(map[string]*User),
		usersByEmail:  make(map[string]string),
		subscriptions: make(map[string]*Subscription),
		usage:         make(map[string]int),
		styles:        make(map[string]*StyleSettings),
	}
}

func (m *Memory) Close()                         {}
func (m *Memory) Ping(ctx context.Context) error { return nil }

// Users

func (m *Memory) CreateUser(ctx context.Context, email, passwordHash string) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.usersByEmail[email]; exists {
		return nil, ErrDuplicateEmail
	}

	u := &User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now().UTC(),
	}
	m.users[u.ID] = u
	m.usersByEmail[email] = u.ID

	cp := *u
	return &cp, nil
}

func (m *Memory) UserByEmail(ctx context.Context, email string) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id, ok := m.usersByEmail[email]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *m.users[id]
	return &cp, nil
}

func (m *Memory) UserByID(ctx context.Context, id string) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *u
	return &cp, nil
}

// Devices

func (m *Memory) UpsertDevice(ctx context.Context, userID string, in DeviceInput, now time.Time) (*Device, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, d := range m.devices {
		if d.UserID == userID && d.DeviceID == in.DeviceID {
			// Platform stays as first reported.
			d.Model = in.Model
			d.OSVersion = in.OSVersion
			d.LastSeenAt = now.UTC()
			cp := *d
			return &cp, nil
		}
	}

	d := &Device{
		ID:         uuid.NewString(),
		UserID:     userID,
		DeviceID:   in.DeviceID,
		Platform:   in.Platform,
		Model:      in.Model,
		OSVersion:  in.OSVersion,
		CreatedAt:  now.UTC(),
		LastSeenAt: now.UTC(),
	}
	m.devices = append(m.devices, d)

	cp := *d
	return &cp, nil
}

func (m *Memory) DevicesByUser(ctx context.Context, userID string) ([]*Device, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*Device
	for _, d := range m.devices {
		if d.UserID == userID {
			cp := *d
			out = append(out, &cp)
		}
	}
	return out, nil
}

// Sessions

func (m *Memory) CreateSession(ctx context.Context, s *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *s
	m.sessions = append(m.sessions, &cp)
	return nil
}

func (m *Memory) LiveSessions(ctx context.Context, now time.Time) ([]*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*Session
	for _, s := range m.sessions {
		if s.RevokedAt == nil && s.ExpiresAt.After(now) {
			cp := *s
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *Memory) RevokeSession(ctx context.Context, id string, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, s := range m.sessions {
		if s.ID == id {
			if s.RevokedAt != nil {
				return false, nil
			}
			t := at.UTC()
			s.RevokedAt = &t
			return true, nil
		}
	}
	return false, nil
}

// Subscriptions

func (m *Memory) SubscriptionByUser(ctx context.Context, userID string) (*Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.subscriptions[userID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *Memory) CreateSubscription(ctx context.Context, sub *Subscription) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.subscriptions[sub.UserID]; exists {
		return nil
	}
	cp := *sub
	m.subscriptions[sub.UserID] = &cp
	return nil
}

func (m *Memory) SaveSubscription(ctx context.Context, sub *Subscription) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.subscriptions[sub.UserID]; ok {
		existing.PlanType = sub.PlanType
		existing.Status = sub.Status
		existing.CurrentPeriodEnd = sub.CurrentPeriodEnd
		return nil
	}
	cp := *sub
	m.subscriptions[sub.UserID] = &cp
	return nil
}

func (m *Memory) SetSubscriptionStatus(ctx context.Context, userID, status string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s, ok := m.subscriptions[userID]; ok {
		s.Status = status
	}
	return nil
}

func (m *Memory) ExpireOverdueSubscriptions(ctx context.Context, now time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	count := 0
	for _, s := range m.subscriptions {
		if s.Status != StatusActive {
			continue
		}
		trialOver := s.PlanType == PlanTrial && s.TrialEndsAt != nil && now.After(*s.TrialEndsAt)
		periodOver := s.CurrentPeriodEnd != nil && now.After(*s.CurrentPeriodEnd)
		if trialOver || periodOver {
			s.Status = StatusExpired
			count++
		}
	}
	return count, nil
}

// Usage

func usageKey(userID string, day time.Time) string {
	return userID + "|" + Day(day).Format("2006-01-02")
}

func (m *Memory) UsageFor(ctx context.Context, userID string, day time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.usage[usageKey(userID, day)], nil
}

func (m *Memory) IncrementUsage(ctx context.Context, userID string, day time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.usage[usageKey(userID, day)]++
	return nil
}

// Style settings

func (m *Memory) StyleByUser(ctx context.Context, userID string) (*StyleSettings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.styles[userID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *Memory) UpsertStyle(ctx context.Context, userID string, in StyleInput) (*StyleSettings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.styles[userID]
	if !ok {
		s = &StyleSettings{
			UserID:     userID,
			Tone:       "casual",
			EmojiLevel: "normal",
			LengthPref: "short",
		}
		m.styles[userID] = s
	}

	if in.Tone != nil {
		s.Tone = *in.Tone
	}
	if in.EmojiLevel != nil {
		s.EmojiLevel = *in.EmojiLevel
	}
	if in.LengthPref != nil {
		s.LengthPref = *in.LengthPref
	}
	if in.ProfanityOk != nil {
		s.ProfanityOk = *in.ProfanityOk
	}

	cp := *s
	return &cp, nil
}

// Generations

func (m *Memory) CreateGeneration(ctx context.Context, g *MessageGeneration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *g
	m.generations = append(m.generations, &cp)
	return nil
}

// Generations returns the stored generation records. Test helper.
func (m *Memory) Generations() []*MessageGeneration {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]*MessageGeneration, len(m.generations))
	copy(out, m.generations)
	return out
}
