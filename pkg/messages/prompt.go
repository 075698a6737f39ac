package messages

import (
	"fmt"
	"strings"

	"github.com/jordanlanch/replykit/pkg/models"
	"github.com/jordanlanch/replykit/pkg/store"
)

var toneDescriptions = map[string]string{
	"casual":  "casual and friendly",
	"neutral": "neutral and balanced",
	"formal":  "professional and formal",
}

var lengthDescriptions = map[string]string{
	"short":  "Keep responses brief (1-2 sentences)",
	"medium": "Keep responses moderate (2-4 sentences)",
	"long":   "Responses can be longer if needed",
}

var emojiDescriptions = map[string]string{
	"none":   "Do not use emojis",
	"low":    "Use emojis sparingly",
	"normal": "Use emojis when appropriate",
	"high":   "Use emojis frequently",
}

// buildPrompt renders the conversation context and style constraints
// into the instruction sent to the generation gateway.
func buildPrompt(msgs []models.IncomingMessage, style *store.StyleSettings, n int) string {
	lines := make([]string, 0, len(msgs))
	for _, m := range msgs {
		speaker := "Them"
		if m.FromMe {
			speaker = "You"
		}
		lines = append(lines, fmt.Sprintf("%s: %s", speaker, m.Text))
	}
	context := strings.Join(lines, "\n")

	tone := toneDescriptions[style.Tone]
	if tone == "" {
		tone = toneDescriptions["casual"]
	}
	length := lengthDescriptions[style.LengthPref]
	if length == "" {
		length = lengthDescriptions["short"]
	}
	emoji := emojiDescriptions[style.EmojiLevel]
	if emoji == "" {
		emoji = emojiDescriptions["normal"]
	}

	return fmt.Sprintf(`You are a helpful message assistant. Generate %d different reply suggestions based on this conversation:

%s

Requirements:
- Tone: %s
- %s
- %s
- Make each suggestion distinct and natural
- Return only the message text, no explanations

Generate %d suggestions, one per line:`, n, context, tone, length, emoji, n)
}
