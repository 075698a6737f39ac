package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	apierrors "github.com/jordanlanch/replykit/pkg/api/errors"
	"github.com/jordanlanch/replykit/pkg/api/middleware"
	"github.com/jordanlanch/replykit/pkg/devices"
	"github.com/jordanlanch/replykit/pkg/models"
	"github.com/jordanlanch/replykit/pkg/store"
)

// DeviceHandler handles device registry endpoints
type DeviceHandler struct {
	devices   *devices.Service
	validator *validator.Validate
}

// NewDeviceHandler creates a new device handler
func NewDeviceHandler(deviceSvc *devices.Service) *DeviceHandler {
	return &DeviceHandler{devices: deviceSvc, validator: validator.New()}
}

// Register godoc
// @Summary Register or refresh a device
// @Tags Devices
// @Accept json
// @Produce json
// @Param request body models.DevicePayload true "Device attributes"
// @Success 200 {object} models.DeviceResponse "Device record"
// @Failure 400 {object} models.ErrorResponse "Invalid request"
// @Failure 401 {object} models.ErrorResponse "Unauthorized"
// @Router /v1/devices/register [post]
func (h *DeviceHandler) Register(c echo.Context) error {
	userID, _ := c.Get(middleware.ContextUserID).(string)

	var req models.DevicePayload
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

	device, err := h.devices.Register(ctx, userID, store.DeviceInput{
		DeviceID:  req.DeviceID,
		Platform:  req.Platform,
		Model:     req.Model,
		OSVersion: req.OSVersion,
	})
	if err != nil {
		return apierrors.DatabaseError(c, err)
	}

	return c.JSON(http.StatusOK, deviceResponse(device))
}

// List godoc
// @Summary List the user's devices
// @Tags Devices
// @Produce json
// @Success 200 {array} models.DeviceResponse "Devices in creation order"
// @Failure 401 {object} models.ErrorResponse "Unauthorized"
// @Router /v1/devices [get]
func (h *DeviceHandler) List(c echo.Context) error {
	userID, _ := c.Get(middleware.ContextUserID).(string)

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	list, err := h.devices.List(ctx, userID)
	if err != nil {
		return apierrors.DatabaseError(c, err)
	}

	out := make([]models.DeviceResponse, 0, len(list))
	for _, d := range list {
		out = append(out, deviceResponse(d))
	}
	return c.JSON(http.StatusOK, out)
}

func deviceResponse(d *store.Device) models.DeviceResponse {
	return models.DeviceResponse{
		ID:         d.ID,
		DeviceID:   d.DeviceID,
		Platform:   d.Platform,
		Model:      d.Model,
		OSVersion:  d.OSVersion,
		CreatedAt:  d.CreatedAt.Format(time.RFC3339),
		LastSeenAt: d.LastSeenAt.Format(time.RFC3339),
	}
}
