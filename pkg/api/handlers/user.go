package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	apierrors "github.com/jordanlanch/replykit/pkg/api/errors"
	"github.com/jordanlanch/replykit/pkg/api/middleware"
	"github.com/jordanlanch/replykit/pkg/models"
	"github.com/jordanlanch/replykit/pkg/store"
	"github.com/jordanlanch/replykit/pkg/subscriptions"
)

// UserHandler handles current-user endpoints
type UserHandler struct {
	store store.Store
	subs  *subscriptions.Service
}

// NewUserHandler creates a new user handler
func NewUserHandler(st store.Store, subs *subscriptions.Service) *UserHandler {
	return &UserHandler{store: st, subs: subs}
}

// Me godoc
// @Summary Get current user profile
// @Tags Users
// @Produce json
// @Success 200 {object} models.MeResponse "User profile"
// @Failure 401 {object} models.ErrorResponse "Unauthorized"
// @Router /v1/me [get]
func (h *UserHandler) Me(c echo.Context) error {
	userID, _ := c.Get(middleware.ContextUserID).(string)

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	user, err := h.store.UserByID(ctx, userID)
	if err != nil {
		return apierrors.UnauthorizedError(c, "user not found")
	}

	plan := "none"
	if sub, err := h.subs.Get(ctx, userID); err == nil && sub != nil {
		plan = sub.PlanType
	}

	return c.JSON(http.StatusOK, models.MeResponse{
		ID:        user.ID,
		Email:     user.Email,
		Plan:      plan,
		CreatedAt: user.CreatedAt.Format(time.RFC3339),
	})
}
