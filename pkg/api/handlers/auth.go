package handlers

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/jordanlanch/replykit/config"
	apierrors "github.com/jordanlanch/replykit/pkg/api/errors"
	"github.com/jordanlanch/replykit/pkg/auth"
	"github.com/jordanlanch/replykit/pkg/devices"
	"github.com/jordanlanch/replykit/pkg/metrics"
	"github.com/jordanlanch/replykit/pkg/models"
	"github.com/jordanlanch/replykit/pkg/session"
	"github.com/jordanlanch/replykit/pkg/store"
	"github.com/jordanlanch/replykit/pkg/style"
	"github.com/jordanlanch/replykit/pkg/subscriptions"
)

// AuthHandler handles authentication endpoints
type AuthHandler struct {
	store     store.Store
	config    *config.Config
	sessions  *session.Manager
	devices   *devices.Service
	subs      *subscriptions.Service
	styles    *style.Service
	blacklist *auth.TokenBlacklist
	metrics   *metrics.Metrics
	validator *validator.Validate
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(st store.Store, cfg *config.Config, sessions *session.Manager, deviceSvc *devices.Service, subs *subscriptions.Service, styles *style.Service, blacklist *auth.TokenBlacklist, m *metrics.Metrics) *AuthHandler {
	return &AuthHandler{
		store:     st,
		config:    cfg,
		sessions:  sessions,
		devices:   deviceSvc,
		subs:      subs,
		styles:    styles,
		blacklist: blacklist,
		metrics:   m,
		validator: validator.New(),
	}
}

// Register godoc
// @Summary Register a new user
// @Description Create an account, start the trial, bind the device and issue tokens
// @Tags Authentication
// @Accept json
// @Produce json
// @Param request body models.RegisterRequest true "Registration data"
// @Success 201 {object} models.AuthResponse "User registered successfully"
// @Failure 400 {object} models.ErrorResponse "Invalid request"
// @Failure 409 {object} models.ErrorResponse "User already exists"
// @Failure 500 {object} models.ErrorResponse "Internal server error"
// @Router /v1/auth/register [post]
func (h *AuthHandler) Register(c echo.Context) error {
	var req models.RegisterRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid request body",
		})
	}

	if err := h.validator.Struct(req); err != nil {
		return apierrors.ValidationError(c, err)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	passwordHash, err := auth.HashPassword(req.Password)
	if err != nil {
		return apierrors.InternalError(c, err)
	}

	user, err := h.store.CreateUser(ctx, req.Email, passwordHash)
	if err != nil {
		if errors.Is(err, store.ErrDuplicateEmail) {
			return apierrors.ConflictError(c, "User with this email already exists")
		}
		return apierrors.DatabaseError(c, err)
	}

	if err := h.styles.CreateDefaults(ctx, user.ID); err != nil {
		return apierrors.DatabaseError(c, err)
	}

	if err := h.subs.CreateTrial(ctx, user.ID); err != nil {
		return apierrors.DatabaseError(c, err)
	}

	device, err := h.devices.Register(ctx, user.ID, store.DeviceInput{
		DeviceID:  req.Device.DeviceID,
		Platform:  req.Device.Platform,
		Model:     req.Device.Model,
		OSVersion: req.Device.OSVersion,
	})
	if err != nil {
		return apierrors.DatabaseError(c, err)
	}

	tokens, err := h.sessions.Start(ctx, user.ID, device.ID)
	if err != nil {
		return apierrors.InternalError(c, err)
	}

	h.metrics.RecordUserRegistered()

	return c.JSON(http.StatusCreated, models.AuthResponse{
		User:         &models.UserInfo{ID: user.ID, Email: user.Email},
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
	})
}

// Login godoc
// @Summary Login user
// @Description Authenticate with email and password, bind the device and issue tokens
// @Tags Authentication
// @Accept json
// @Produce json
// @Param request body models.LoginRequest true "Login credentials"
// @Success 200 {object} models.AuthResponse "Login successful"
// @Failure 400 {object} models.ErrorResponse "Invalid request"
// @Failure 401 {object} models.ErrorResponse "Invalid credentials"
// @Failure 500 {object} models.ErrorResponse "Internal server error"
// @Router /v1/auth/login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	var req models.LoginRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid request body",
		})
	}

	if err := h.validator.Struct(req); err != nil {
		return apierrors.ValidationError(c, err)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	// Unknown email and wrong password produce the same response.
	user, err := h.store.UserByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			h.metrics.RecordLoginAttempt(false)
			return apierrors.UnauthorizedError(c, "unknown email")
		}
		return apierrors.DatabaseError(c, err)
	}

	if !auth.CheckPassword(user.PasswordHash, req.Password) {
		h.metrics.RecordLoginAttempt(false)
		return apierrors.UnauthorizedError(c, "wrong password")
	}

	device, err := h.devices.Register(ctx, user.ID, store.DeviceInput{
		DeviceID:  req.Device.DeviceID,
		Platform:  req.Device.Platform,
		Model:     req.Device.Model,
		OSVersion: req.Device.OSVersion,
	})
	if err != nil {
		return apierrors.DatabaseError(c, err)
	}

	tokens, err := h.sessions.Start(ctx, user.ID, device.ID)
	if err != nil {
		return apierrors.InternalError(c, err)
	}

	h.metrics.RecordLoginAttempt(true)

	return c.JSON(http.StatusOK, models.AuthResponse{
		User:         &models.UserInfo{ID: user.ID, Email: user.Email},
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
	})
}

// Refresh godoc
// @Summary Rotate a refresh token
// @Description Exchange a live refresh token for a new access/refresh pair
// @Tags Authentication
// @Accept json
// @Produce json
// @Param request body models.RefreshRequest true "Refresh token"
// @Success 200 {object} models.AuthResponse "Tokens rotated"
// @Failure 400 {object} models.ErrorResponse "Invalid request"
// @Failure 401 {object} models.ErrorResponse "Invalid refresh token"
// @Router /v1/auth/refresh [post]
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req models.RefreshRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid request body",
		})
	}

	if err := h.validator.Struct(req); err != nil {
		return apierrors.ValidationError(c, err)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	tokens, err := h.sessions.Rotate(ctx, req.RefreshToken)
	if err != nil {
		// Only a rejected credential is a failed rotation; store errors
		// would skew the metric.
		if errors.Is(err, session.ErrInvalidRefreshToken) {
			h.metrics.RecordTokenRotation(false)
			return apierrors.UnauthorizedError(c, "refresh token matched no live session")
		}
		return apierrors.InternalError(c, err)
	}

	h.metrics.RecordTokenRotation(true)

	return c.JSON(http.StatusOK, models.AuthResponse{
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
	})
}

// Logout godoc
// @Summary Logout
// @Description Revoke the session for a refresh token; succeeds whether or not it matches
// @Tags Authentication
// @Accept json
// @Produce json
// @Param request body models.LogoutRequest true "Refresh token"
// @Success 200 {object} models.SuccessResponse "Logged out"
// @Router /v1/auth/logout [post]
func (h *AuthHandler) Logout(c echo.Context) error {
	var req models.LogoutRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid request body",
		})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	if req.RefreshToken != "" {
		if err := h.sessions.End(ctx, req.RefreshToken); err != nil {
			// Logout never errors; the failed revocation is only logged.
			log.Printf("[LOGOUT] session revocation failed: %v", err)
		}
	}

	// Blacklist the presented access token so the pair dies together.
	if authHeader := c.Request().Header.Get("Authorization"); h.blacklist != nil {
		if parts := strings.Split(authHeader, " "); len(parts) == 2 && parts[0] == "Bearer" {
			_ = h.blacklist.Add(ctx, parts[1], h.config.AccessTokenTTL)
		}
	}

	return c.JSON(http.StatusOK, models.SuccessResponse{Success: true, Message: "Logged out"})
}
