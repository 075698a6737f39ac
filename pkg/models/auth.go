package models

// RegisterRequest represents a registration request
type RegisterRequest struct {
	Email    string        `json:"email" validate:"required,email"`
	Password string        `json:"password" validate:"required,min=8"`
	Device   DevicePayload `json:"device" validate:"required"`
}

// LoginRequest represents a login request
type LoginRequest struct {
	Email    string        `json:"email" validate:"required,email"`
	Password string        `json:"password" validate:"required"`
	Device   DevicePayload `json:"device" validate:"required"`
}

// RefreshRequest carries the refresh token to rotate
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// LogoutRequest carries the refresh token to revoke
type LogoutRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// UserInfo represents user identity in auth responses
type UserInfo struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// AuthResponse represents an authentication response
type AuthResponse struct {
	User         *UserInfo `json:"user,omitempty"`
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
}

// MeResponse represents the current-user profile
type MeResponse struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	Plan      string `json:"plan"`
	CreatedAt string `json:"created_at"`
}
