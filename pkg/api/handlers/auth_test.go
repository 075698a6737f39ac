package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jordanlanch/replykit/config"
	"github.com/jordanlanch/replykit/pkg/auth"
	"github.com/jordanlanch/replykit/pkg/devices"
	"github.com/jordanlanch/replykit/pkg/models"
	"github.com/jordanlanch/replykit/pkg/session"
	"github.com/jordanlanch/replykit/pkg/store"
	"github.com/jordanlanch/replykit/pkg/style"
	"github.com/jordanlanch/replykit/pkg/subscriptions"
)

func TestRegister(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.register(t, "alice@example.com")
	assert.NotEmpty(t, resp.User.ID)
	assert.Equal(t, "alice@example.com", resp.User.Email)
	assert.NotEmpty(t, resp.AccessToken)
	assert.NotEmpty(t, resp.RefreshToken)
	assert.NotEqual(t, resp.AccessToken, resp.RefreshToken)

	// Registration starts the trial and binds the device.
	sub, err := ts.subs.Get(context.Background(), resp.User.ID)
	require.NoError(t, err)
	require.NotNil(t, sub)
	assert.Equal(t, store.PlanTrial, sub.PlanType)

	devices, err := ts.store.DevicesByUser(context.Background(), resp.User.ID)
	require.NoError(t, err)
	assert.Len(t, devices, 1)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	ts := newTestServer(t)
	ts.register(t, "alice@example.com")

	rec := ts.request(t, http.MethodPost, "/v1/auth/register", "", registerRequest("alice@example.com"))
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestRegisterValidation(t *testing.T) {
	ts := newTestServer(t)

	short := registerRequest("bob@example.com")
	short.Password = "short"
	rec := ts.request(t, http.MethodPost, "/v1/auth/register", "", short)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	bad := registerRequest("not-an-email")
	rec = ts.request(t, http.MethodPost, "/v1/auth/register", "", bad)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLogin(t *testing.T) {
	ts := newTestServer(t)
	ts.register(t, "alice@example.com")

	login := models.LoginRequest{
		Email:    "alice@example.com",
		Password: "longpass1",
		Device:   models.DevicePayload{DeviceID: "iphone-abc", Platform: "ios"},
	}
	rec := ts.request(t, http.MethodPost, "/v1/auth/login", "", login)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	resp := decode[models.AuthResponse](t, rec)
	assert.NotEmpty(t, resp.AccessToken)
	assert.NotEmpty(t, resp.RefreshToken)
}

func TestLoginFailuresLookAlike(t *testing.T) {
	ts := newTestServer(t)
	ts.register(t, "alice@example.com")

	device := models.DevicePayload{DeviceID: "d", Platform: "ios"}

	wrongPass := ts.request(t, http.MethodPost, "/v1/auth/login", "", models.LoginRequest{
		Email: "alice@example.com", Password: "wrongpass1", Device: device,
	})
	unknownEmail := ts.request(t, http.MethodPost, "/v1/auth/login", "", models.LoginRequest{
		Email: "nobody@example.com", Password: "longpass1", Device: device,
	})

	assert.Equal(t, http.StatusUnauthorized, wrongPass.Code)
	assert.Equal(t, http.StatusUnauthorized, unknownEmail.Code)

	// Same body for both, so callers cannot probe for accounts.
	assert.JSONEq(t, wrongPass.Body.String(), unknownEmail.Body.String())
}

func TestRefreshRotatesOnce(t *testing.T) {
	ts := newTestServer(t)
	first := ts.register(t, "alice@example.com")

	rec := ts.request(t, http.MethodPost, "/v1/auth/refresh", "", models.RefreshRequest{RefreshToken: first.RefreshToken})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	second := decode[models.AuthResponse](t, rec)
	assert.NotEqual(t, first.RefreshToken, second.RefreshToken)

	// Replaying the spent token fails.
	rec = ts.request(t, http.MethodPost, "/v1/auth/refresh", "", models.RefreshRequest{RefreshToken: first.RefreshToken})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// The replacement works.
	rec = ts.request(t, http.MethodPost, "/v1/auth/refresh", "", models.RefreshRequest{RefreshToken: second.RefreshToken})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRefreshUnknownToken(t *testing.T) {
	ts := newTestServer(t)

	before := testutil.ToFloat64(testMetrics.TokenRotations.WithLabelValues("failed"))

	rec := ts.request(t, http.MethodPost, "/v1/auth/refresh", "", models.RefreshRequest{RefreshToken: "bogus"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// A rejected credential counts as a failed rotation.
	after := testutil.ToFloat64(testMetrics.TokenRotations.WithLabelValues("failed"))
	assert.Equal(t, before+1, after)
}

// brokenSessionStore fails the live-session scan the way a dropped
// database connection would.
type brokenSessionStore struct {
	*store.Memory
}

func (brokenSessionStore) LiveSessions(ctx context.Context, now time.Time) ([]*store.Session, error) {
	return nil, errors.New("connection reset by peer")
}

func TestRefreshStoreErrorIsNotAFailedRotation(t *testing.T) {
	st := brokenSessionStore{store.NewMemory()}
	signer := auth.NewSigner("test-secret-key-minimum-32-characters-long", 15*time.Minute, 90*24*time.Hour)
	sessions := session.NewManager(st, signer, 90*24*time.Hour)
	h := NewAuthHandler(st, &config.Config{AccessTokenTTL: 15 * time.Minute}, sessions,
		devices.NewService(st), subscriptions.NewService(st, 3), style.NewService(st), nil, testMetrics)

	e := echo.New()
	e.POST("/v1/auth/refresh", h.Refresh)

	before := testutil.ToFloat64(testMetrics.TokenRotations.WithLabelValues("failed"))

	body, err := json.Marshal(models.RefreshRequest{RefreshToken: "any-token"})
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/v1/auth/refresh", bytes.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	// Infrastructure failures stay out of the rotation metric.
	after := testutil.ToFloat64(testMetrics.TokenRotations.WithLabelValues("failed"))
	assert.Equal(t, before, after)
}

func TestLogoutIsIdempotent(t *testing.T) {
	ts := newTestServer(t)
	resp := ts.register(t, "alice@example.com")

	body := models.LogoutRequest{RefreshToken: resp.RefreshToken}

	rec := ts.request(t, http.MethodPost, "/v1/auth/logout", resp.AccessToken, body)
	assert.Equal(t, http.StatusOK, rec.Code)

	// Logging out again, or with garbage, still succeeds.
	rec = ts.request(t, http.MethodPost, "/v1/auth/logout", resp.AccessToken, body)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = ts.request(t, http.MethodPost, "/v1/auth/logout", "", models.LogoutRequest{RefreshToken: "bogus"})
	assert.Equal(t, http.StatusOK, rec.Code)

	// The revoked refresh token cannot rotate.
	rec = ts.request(t, http.MethodPost, "/v1/auth/refresh", "", models.RefreshRequest{RefreshToken: resp.RefreshToken})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestReRegisterAfterTrialDoesNotResetIt(t *testing.T) {
	ts := newTestServer(t)
	resp := ts.register(t, "alice@example.com")

	ts.subs.Now = func() time.Time { return time.Now().Add(4 * 24 * time.Hour) }

	entitled, err := ts.subs.Entitled(context.Background(), resp.User.ID)
	require.NoError(t, err)
	assert.False(t, entitled)

	// Logging in again does not revive the expired trial.
	login := models.LoginRequest{
		Email: "alice@example.com", Password: "longpass1",
		Device: models.DevicePayload{DeviceID: "other", Platform: "android"},
	}
	rec := ts.request(t, http.MethodPost, "/v1/auth/login", "", login)
	require.Equal(t, http.StatusOK, rec.Code)

	entitled, err = ts.subs.Entitled(context.Background(), resp.User.ID)
	require.NoError(t, err)
	assert.False(t, entitled)
}
