package messages

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"

	"github.com/jordanlanch/replykit/pkg/models"
	"github.com/jordanlanch/replykit/pkg/store"
)

func TestBuildPrompt(t *testing.T) {
	msgs := []models.IncomingMessage{
		{FromMe: false, Text: "Lunch today?"},
		{FromMe: true, Text: "Maybe, where?"},
		{FromMe: false, Text: "The usual place"},
	}
	settings := &store.StyleSettings{Tone: "formal", EmojiLevel: "none", LengthPref: "long"}

	prompt := buildPrompt(msgs, settings, 3)

	assert.Contains(t, prompt, "Them: Lunch today?")
	assert.Contains(t, prompt, "You: Maybe, where?")
	assert.Contains(t, prompt, "Them: The usual place")
	assert.Contains(t, prompt, "3 different reply suggestions")
	assert.Contains(t, prompt, "professional and formal")
	assert.Contains(t, prompt, "Do not use emojis")
	assert.Contains(t, prompt, "Responses can be longer if needed")
}

func TestBuildPromptUnknownStyleFallsBack(t *testing.T) {
	msgs := []models.IncomingMessage{{Text: "hi"}}
	settings := &store.StyleSettings{Tone: "sarcastic", EmojiLevel: "max", LengthPref: "epic"}

	prompt := buildPrompt(msgs, settings, 1)

	assert.Contains(t, prompt, "casual and friendly")
	assert.Contains(t, prompt, "Use emojis when appropriate")
	assert.Contains(t, prompt, "brief (1-2 sentences)")
}

func TestMergeStyleProfanityNotOverridable(t *testing.T) {
	settings := &store.StyleSettings{Tone: "casual", EmojiLevel: "normal", LengthPref: "short", ProfanityOk: false}

	merged := mergeStyle(settings, &models.StyleOverride{Tone: "neutral", EmojiLevel: "high"})

	assert.Equal(t, "neutral", merged.Tone)
	assert.Equal(t, "high", merged.EmojiLevel)
	assert.Equal(t, "short", merged.LengthPref)
	assert.False(t, merged.ProfanityOk)

	// The stored settings are untouched.
	assert.Equal(t, "casual", settings.Tone)
}

func TestSnippet(t *testing.T) {
	short := snippet([]models.IncomingMessage{{Text: "one"}, {Text: "two"}})
	assert.Equal(t, "one two", short)

	long := snippet([]models.IncomingMessage{{Text: strings.Repeat("z", 500)}})
	assert.Len(t, long, 200)

	// Truncation counts runes, never splitting a multi-byte character.
	wide := snippet([]models.IncomingMessage{{Text: strings.Repeat("é", 250)}})
	assert.True(t, utf8.ValidString(wide))
	assert.Equal(t, 200, utf8.RuneCountInString(wide))
}
