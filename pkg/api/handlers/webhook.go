package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// WebhookHandler acknowledges payment-provider webhooks. Event
// processing is handled out of band; this endpoint only confirms
// receipt so the provider stops retrying.
type WebhookHandler struct{}

// NewWebhookHandler creates a new webhook handler
func NewWebhookHandler() *WebhookHandler {
	return &WebhookHandler{}
}

// Stripe godoc
// @Summary Stripe webhook endpoint
// @Tags Webhooks
// @Accept json
// @Produce json
// @Success 200 {object} map[string]bool "Acknowledged"
// @Router /v1/webhooks/stripe [post]
func (h *WebhookHandler) Stripe(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]bool{"received": true})
}
