package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	apierrors "github.com/jordanlanch/replykit/pkg/api/errors"
	"github.com/jordanlanch/replykit/pkg/api/middleware"
	"github.com/jordanlanch/replykit/pkg/messages"
	"github.com/jordanlanch/replykit/pkg/metrics"
	"github.com/jordanlanch/replykit/pkg/models"
)

// MessageHandler handles message generation endpoints
type MessageHandler struct {
	messages  *messages.Service
	provider  string
	metrics   *metrics.Metrics
	validator *validator.Validate
}

// NewMessageHandler creates a new message handler
func NewMessageHandler(messageSvc *messages.Service, provider string, m *metrics.Metrics) *MessageHandler {
	return &MessageHandler{
		messages:  messageSvc,
		provider:  provider,
		metrics:   m,
		validator: validator.New(),
	}
}

// Generate godoc
// @Summary Generate reply suggestions
// @Description Gate on subscription and daily quota, then produce suggestions for the conversation context
// @Tags Messages
// @Accept json
// @Produce json
// @Param request body models.GenerateMessageRequest true "Conversation context"
// @Success 200 {object} models.GenerateMessageResponse "Suggestions"
// @Failure 400 {object} models.ErrorResponse "Invalid request"
// @Failure 401 {object} models.ErrorResponse "Unauthorized"
// @Failure 403 {object} models.ErrorResponse "Subscription expired"
// @Failure 429 {object} models.ErrorResponse "Daily limit reached"
// @Failure 500 {object} models.ErrorResponse "Generation failed"
// @Router /v1/messages/generate [post]
func (h *MessageHandler) Generate(c echo.Context) error {
	userID, _ := c.Get(middleware.ContextUserID).(string)

	var req models.GenerateMessageRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid request body",
		})
	}

	if err := h.validator.Struct(req); err != nil {
		return apierrors.ValidationError(c, err)
	}

	// The generation round trip dominates this budget; the store calls
	// around it are cheap.
	ctx, cancel := context.WithTimeout(c.Request().Context(), 60*time.Second)
	defer cancel()

	resp, err := h.messages.Generate(ctx, userID, &req)
	if err != nil {
		switch {
		case errors.Is(err, messages.ErrSubscriptionExpired):
			return apierrors.ForbiddenError(c, "subscription expired or inactive")
		case errors.Is(err, messages.ErrDailyLimitReached):
			h.metrics.RecordQuotaRejection()
			return apierrors.RateLimitedError(c, "Daily usage limit exceeded")
		case errors.Is(err, messages.ErrContextTooLong):
			return apierrors.ValidationError(c, err)
		default:
			return apierrors.InternalError(c, err)
		}
	}

	h.metrics.RecordGeneration(h.provider)

	return c.JSON(http.StatusOK, resp)
}
