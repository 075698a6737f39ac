package models

// UpdateStyleRequest is a partial style-preference update
type UpdateStyleRequest struct {
	Tone        *string `json:"tone,omitempty" validate:"omitempty,oneof=casual neutral formal"`
	EmojiLevel  *string `json:"emoji_level,omitempty" validate:"omitempty,oneof=none low normal high"`
	LengthPref  *string `json:"length_pref,omitempty" validate:"omitempty,oneof=short medium long"`
	ProfanityOk *bool   `json:"profanity_ok,omitempty"`
}

// StyleResponse represents style preferences in responses
type StyleResponse struct {
	Tone        string `json:"tone"`
	EmojiLevel  string `json:"emoji_level"`
	LengthPref  string `json:"length_pref"`
	ProfanityOk bool   `json:"profanity_ok"`
}
