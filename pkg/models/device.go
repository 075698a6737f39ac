package models

// DevicePayload is the client-reported device identity
type DevicePayload struct {
	DeviceID  string `json:"device_id" validate:"required"`
	Platform  string `json:"platform" validate:"required"`
	Model     string `json:"model,omitempty"`
	OSVersion string `json:"os_version,omitempty"`
}

// DeviceResponse represents a registered device
type DeviceResponse struct {
	ID         string `json:"id"`
	DeviceID   string `json:"device_id"`
	Platform   string `json:"platform"`
	Model      string `json:"model,omitempty"`
	OSVersion  string `json:"os_version,omitempty"`
	CreatedAt  string `json:"created_at"`
	LastSeenAt string `json:"last_seen_at"`
}
