package messages

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jordanlanch/replykit/pkg/ai/llm"
	"github.com/jordanlanch/replykit/pkg/models"
	"github.com/jordanlanch/replykit/pkg/store"
	"github.com/jordanlanch/replykit/pkg/style"
	"github.com/jordanlanch/replykit/pkg/subscriptions"
	"github.com/jordanlanch/replykit/pkg/usage"
)

const (
	maxContextChars     = 5000
	snippetChars        = 200
	defaultNSuggestions = 3
)

// Gate and validation failures surfaced to the HTTP layer.
var (
	ErrSubscriptionExpired = errors.New("subscription expired or inactive")
	ErrDailyLimitReached   = errors.New("daily usage limit exceeded")
	ErrContextTooLong      = errors.New("total message context exceeds 5000 characters")
)

// Service runs the metered generation flow: entitlement gate, quota
// gate, prompt assembly, gateway call, audit record, usage increment.
type Service struct {
	store   store.Store
	styles  *style.Service
	subs    *subscriptions.Service
	meter   *usage.Service
	gateway llm.Client

	// Now returns wall-clock time. Tests override it.
	Now func() time.Time
}

// NewService creates a message generation service
func NewService(st store.Store, styles *style.Service, subs *subscriptions.Service, meter *usage.Service, gateway llm.Client) *Service {
	return &Service{
		store:   st,
		styles:  styles,
		subs:    subs,
		meter:   meter,
		gateway: gateway,
		Now:     time.Now,
	}
}

// Generate produces reply suggestions for the user's conversation
// context. The quota check runs before the gateway call and the
// increment after it; the steps commit independently.
func (s *Service) Generate(ctx context.Context, userID string, req *models.GenerateMessageRequest) (*models.GenerateMessageResponse, error) {
	entitled, err := s.subs.Entitled(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !entitled {
		return nil, ErrSubscriptionExpired
	}

	sub, err := s.subs.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	planType := ""
	if sub != nil {
		planType = sub.PlanType
	}

	exceeded, err := s.meter.Exceeded(ctx, userID, planType)
	if err != nil {
		return nil, err
	}
	if exceeded {
		return nil, ErrDailyLimitReached
	}

	total := 0
	for _, msg := range req.IncomingMessages {
		total += len(msg.Text)
	}
	if total > maxContextChars {
		return nil, ErrContextTooLong
	}

	settings, err := s.styles.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	final := mergeStyle(settings, req.StyleOverride)

	n := req.NSuggestions
	if n == 0 {
		n = defaultNSuggestions
	}

	prompt := buildPrompt(req.IncomingMessages, final, n)

	suggestions, err := s.gateway.Suggest(ctx, prompt, n)
	if err != nil {
		return nil, fmt.Errorf("generation gateway: %w", err)
	}

	if err := s.store.CreateGeneration(ctx, &store.MessageGeneration{
		ID:           uuid.NewString(),
		UserID:       userID,
		InputSnippet: snippet(req.IncomingMessages),
		StyleSnapshot: map[string]interface{}{
			"tone":         final.Tone,
			"emoji_level":  final.EmojiLevel,
			"length_pref":  final.LengthPref,
			"profanity_ok": final.ProfanityOk,
		},
		Suggestions: suggestions,
		Provider:    s.gateway.Provider(),
		CreatedAt:   s.Now(),
	}); err != nil {
		return nil, err
	}

	if err := s.meter.Increment(ctx, userID); err != nil {
		return nil, err
	}

	resp := &models.GenerateMessageResponse{Suggestions: make([]models.Suggestion, 0, len(suggestions))}
	for i, text := range suggestions {
		resp.Suggestions = append(resp.Suggestions, models.Suggestion{
			ID:   fmt.Sprintf("s%d", i+1),
			Text: text,
			Tone: final.Tone,
		})
	}
	return resp, nil
}

// mergeStyle overlays a per-request override on the stored settings.
// ProfanityOk cannot be overridden per request.
func mergeStyle(settings *store.StyleSettings, override *models.StyleOverride) *store.StyleSettings {
	final := *settings
	if override == nil {
		return &final
	}
	if override.Tone != "" {
		final.Tone = override.Tone
	}
	if override.EmojiLevel != "" {
		final.EmojiLevel = override.EmojiLevel
	}
	if override.LengthPref != "" {
		final.LengthPref = override.LengthPref
	}
	return &final
}

// snippet keeps the first 200 characters of the concatenated inbound
// text for the audit record.
func snippet(msgs []models.IncomingMessage) string {
	joined := ""
	for i, m := range msgs {
		if i > 0 {
			joined += " "
		}
		joined += m.Text
	}
	// Cut on rune boundaries; a byte slice could split a multi-byte
	// character and the resulting invalid UTF-8 is rejected by Postgres.
	runes := []rune(joined)
	if len(runes) > snippetChars {
		return string(runes[:snippetChars])
	}
	return joined
}
