package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	apierrors "github.com/jordanlanch/replykit/pkg/api/errors"
	"github.com/jordanlanch/replykit/pkg/api/middleware"
	"github.com/jordanlanch/replykit/pkg/models"
	"github.com/jordanlanch/replykit/pkg/subscriptions"
)

// SubscriptionHandler handles subscription state endpoints
type SubscriptionHandler struct {
	subs *subscriptions.Service
}

// NewSubscriptionHandler creates a new subscription handler
func NewSubscriptionHandler(subs *subscriptions.Service) *SubscriptionHandler {
	return &SubscriptionHandler{subs: subs}
}

// Me godoc
// @Summary Get current subscription state
// @Description Returns the subscription after the lazy expiry evaluation has run
// @Tags Subscriptions
// @Produce json
// @Success 200 {object} models.SubscriptionResponse "Subscription state"
// @Failure 401 {object} models.ErrorResponse "Unauthorized"
// @Failure 404 {object} models.ErrorResponse "No subscription"
// @Router /v1/subscriptions/me [get]
func (h *SubscriptionHandler) Me(c echo.Context) error {
	userID, _ := c.Get(middleware.ContextUserID).(string)

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	// Entitled runs the lazy expiry transition before we read the state.
	if _, err := h.subs.Entitled(ctx, userID); err != nil {
		return apierrors.DatabaseError(c, err)
	}

	sub, err := h.subs.Get(ctx, userID)
	if err != nil {
		return apierrors.DatabaseError(c, err)
	}
	if sub == nil {
		return c.JSON(http.StatusNotFound, models.ErrorResponse{
			Error:   "not_found",
			Message: "No subscription for this user",
		})
	}

	resp := models.SubscriptionResponse{
		PlanType: sub.PlanType,
		Status:   sub.Status,
	}
	if sub.TrialEndsAt != nil {
		resp.TrialEndsAt = sub.TrialEndsAt.Format(time.RFC3339)
	}
	if sub.CurrentPeriodEnd != nil {
		resp.CurrentPeriodEnd = sub.CurrentPeriodEnd.Format(time.RFC3339)
	}
	return c.JSON(http.StatusOK, resp)
}
