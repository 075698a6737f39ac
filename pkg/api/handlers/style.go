package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	apierrors "github.com/jordanlanch/replykit/pkg/api/errors"
	"github.com/jordanlanch/replykit/pkg/api/middleware"
	"github.com/jordanlanch/replykit/pkg/models"
	"github.com/jordanlanch/replykit/pkg/store"
	"github.com/jordanlanch/replykit/pkg/style"
)

// StyleHandler handles style-preference endpoints
type StyleHandler struct {
	styles    *style.Service
	validator *validator.Validate
}

// NewStyleHandler creates a new style handler
func NewStyleHandler(styles *style.Service) *StyleHandler {
	return &StyleHandler{styles: styles, validator: validator.New()}
}

// Get godoc
// @Summary Get style preferences
// @Tags Style
// @Produce json
// @Success 200 {object} models.StyleResponse "Style preferences"
// @Failure 401 {object} models.ErrorResponse "Unauthorized"
// @Router /v1/style [get]
func (h *StyleHandler) Get(c echo.Context) error {
	userID, _ := c.Get(middleware.ContextUserID).(string)

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	settings, err := h.styles.Get(ctx, userID)
	if err != nil {
		return apierrors.DatabaseError(c, err)
	}

	return c.JSON(http.StatusOK, styleResponse(settings))
}

// Update godoc
// @Summary Update style preferences
// @Tags Style
// @Accept json
// @Produce json
// @Param request body models.UpdateStyleRequest true "Partial update"
// @Success 200 {object} models.StyleResponse "Updated preferences"
// @Failure 400 {object} models.ErrorResponse "Invalid request"
// @Failure 401 {object} models.ErrorResponse "Unauthorized"
// @Router /v1/style [put]
func (h *StyleHandler) Update(c echo.Context) error {
	userID, _ := c.Get(middleware.ContextUserID).(string)

	var req models.UpdateStyleRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid request body",
		})
	}

	if err := h.validator.Struct(req); err != nil {
		return apierrors.ValidationError(c, err)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	settings, err := h.styles.Update(ctx, userID, store.StyleInput{
		Tone:        req.Tone,
		EmojiLevel:  req.EmojiLevel,
		LengthPref:  req.LengthPref,
		ProfanityOk: req.ProfanityOk,
	})
	if err != nil {
		return apierrors.DatabaseError(c, err)
	}

	return c.JSON(http.StatusOK, styleResponse(settings))
}

func styleResponse(s *store.StyleSettings) models.StyleResponse {
	return models.StyleResponse{
		Tone:        s.Tone,
		EmojiLevel:  s.EmojiLevel,
		LengthPref:  s.LengthPref,
		ProfanityOk: s.ProfanityOk,
	}
}
