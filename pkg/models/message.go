package models

// IncomingMessage is one message of conversation context
type IncomingMessage struct {
	FromMe    bool   `json:"from_me"`
	Text      string `json:"text" validate:"required,max=2000"`
	Timestamp string `json:"timestamp"`
}

// StyleOverride adjusts style for a single generation
type StyleOverride struct {
	Tone       string `json:"tone,omitempty" validate:"omitempty,oneof=casual neutral formal"`
	EmojiLevel string `json:"emoji_level,omitempty" validate:"omitempty,oneof=none low normal high"`
	LengthPref string `json:"length_pref,omitempty" validate:"omitempty,oneof=short medium long"`
}

// GenerateMessageRequest represents a generation request
type GenerateMessageRequest struct {
	IncomingMessages []IncomingMessage `json:"incoming_messages" validate:"required,min=1,max=20,dive"`
	StyleOverride    *StyleOverride    `json:"style_override,omitempty"`
	NSuggestions     int               `json:"n_suggestions,omitempty" validate:"omitempty,min=1,max=4"`
}

// Suggestion is one generated reply
type Suggestion struct {
	ID   string `json:"id"`
	Text string `json:"text"`
	Tone string `json:"tone"`
}

// GenerateMessageResponse represents a generation response
type GenerateMessageResponse struct {
	Suggestions []Suggestion `json:"suggestions"`
}
