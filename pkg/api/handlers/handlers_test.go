package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"github.com/jordanlanch/replykit/config"
	"github.com/jordanlanch/replykit/pkg/ai/llm"
	"github.com/jordanlanch/replykit/pkg/api/middleware"
	"github.com/jordanlanch/replykit/pkg/auth"
	"github.com/jordanlanch/replykit/pkg/devices"
	"github.com/jordanlanch/replykit/pkg/messages"
	"github.com/jordanlanch/replykit/pkg/metrics"
	"github.com/jordanlanch/replykit/pkg/models"
	"github.com/jordanlanch/replykit/pkg/session"
	"github.com/jordanlanch/replykit/pkg/store"
	"github.com/jordanlanch/replykit/pkg/style"
	"github.com/jordanlanch/replykit/pkg/subscriptions"
	"github.com/jordanlanch/replykit/pkg/usage"
)

// Prometheus collectors register against the default registry, so the
// test binary shares one Metrics instance.
var testMetrics = metrics.New()

type testServer struct {
	echo     *echo.Echo
	store    *store.Memory
	sessions *session.Manager
	subs     *subscriptions.Service
	meter    *usage.Service
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	cfg := &config.Config{
		JWTSecret:       "test-secret-key-minimum-32-characters-long",
		AccessTokenTTL:  15 * time.Minute,
		RefreshTokenTTL: 90 * 24 * time.Hour,
		TrialDays:       3,
		ProDailyLimit:   10000,
		FreeDailyLimit:  100,
	}

	st := store.NewMemory()
	signer := auth.NewSigner(cfg.JWTSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
	sessions := session.NewManager(st, signer, cfg.RefreshTokenTTL)
	deviceSvc := devices.NewService(st)
	subs := subscriptions.NewService(st, cfg.TrialDays)
	styles := style.NewService(st)
	meter := usage.NewService(st, usage.Limits{Pro: cfg.ProDailyLimit, Default: cfg.FreeDailyLimit})
	messageSvc := messages.NewService(st, styles, subs, meter, llm.MockClient{})

	authHandler := NewAuthHandler(st, cfg, sessions, deviceSvc, subs, styles, nil, testMetrics)
	userHandler := NewUserHandler(st, subs)
	deviceHandler := NewDeviceHandler(deviceSvc)
	styleHandler := NewStyleHandler(styles)
	subHandler := NewSubscriptionHandler(subs)
	messageHandler := NewMessageHandler(messageSvc, "mock", testMetrics)
	healthHandler := NewHealthHandler(st)

	e := echo.New()
	e.GET("/health", healthHandler.Health)
	e.POST("/v1/auth/register", authHandler.Register)
	e.POST("/v1/auth/login", authHandler.Login)
	e.POST("/v1/auth/refresh", authHandler.Refresh)
	e.POST("/v1/auth/logout", authHandler.Logout)

	protected := e.Group("/v1", middleware.JWTMiddleware(signer))
	protected.GET("/me", userHandler.Me)
	protected.GET("/devices", deviceHandler.List)
	protected.POST("/devices/register", deviceHandler.Register)
	protected.GET("/style", styleHandler.Get)
	protected.PUT("/style", styleHandler.Update)
	protected.GET("/subscriptions/me", subHandler.Me)
	protected.POST("/messages/generate", messageHandler.Generate)

	return &testServer{echo: e, store: st, sessions: sessions, subs: subs, meter: meter}
}

func (ts *testServer) request(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	ts.echo.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()

	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func registerRequest(email string) models.RegisterRequest {
	return models.RegisterRequest{
		Email:    email,
		Password: "longpass1",
		Device: models.DevicePayload{
			DeviceID:  "iphone-abc",
			Platform:  "ios",
			Model:     "iPhone 15",
			OSVersion: "17.4",
		},
	}
}

// register creates an account and returns the issued token pair.
func (ts *testServer) register(t *testing.T, email string) models.AuthResponse {
	t.Helper()

	rec := ts.request(t, http.MethodPost, "/v1/auth/register", "", registerRequest(email))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[models.AuthResponse](t, rec)
}
