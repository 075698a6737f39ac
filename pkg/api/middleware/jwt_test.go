package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jordanlanch/replykit/pkg/auth"
	"github.com/jordanlanch/replykit/pkg/cache"
)

const testSecret = "test-secret-key-minimum-32-characters-long"

func runProtected(t *testing.T, mw echo.MiddlewareFunc, authHeader string) (*httptest.ResponseRecorder, string) {
	t.Helper()

	e := echo.New()
	var gotUserID string
	e.GET("/protected", mw(func(c echo.Context) error {
		gotUserID, _ = c.Get(ContextUserID).(string)
		return c.NoContent(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec, gotUserID
}

func TestJWTMiddlewareValidToken(t *testing.T) {
	signer := auth.NewSigner(testSecret, 15*time.Minute, 90*24*time.Hour)
	token, err := signer.IssueAccess("user-42")
	require.NoError(t, err)

	rec, userID := runProtected(t, JWTMiddleware(signer), "Bearer "+token)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "user-42", userID)
}

func TestJWTMiddlewareMissingHeader(t *testing.T) {
	signer := auth.NewSigner(testSecret, 15*time.Minute, 90*24*time.Hour)

	rec, _ := runProtected(t, JWTMiddleware(signer), "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "missing_token")
}

func TestJWTMiddlewareBadFormat(t *testing.T) {
	signer := auth.NewSigner(testSecret, 15*time.Minute, 90*24*time.Hour)

	rec, _ := runProtected(t, JWTMiddleware(signer), "Basic dXNlcjpwYXNz")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid_token_format")
}

func TestJWTMiddlewareInvalidToken(t *testing.T) {
	signer := auth.NewSigner(testSecret, 15*time.Minute, 90*24*time.Hour)

	rec, _ := runProtected(t, JWTMiddleware(signer), "Bearer not.a.token")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestJWTMiddlewareExpiredToken(t *testing.T) {
	expired := auth.NewSigner(testSecret, -time.Minute, 90*24*time.Hour)
	token, err := expired.IssueAccess("user-42")
	require.NoError(t, err)

	signer := auth.NewSigner(testSecret, 15*time.Minute, 90*24*time.Hour)
	rec, _ := runProtected(t, JWTMiddleware(signer), "Bearer "+token)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestJWTMiddlewareBlacklistedToken(t *testing.T) {
	mr := miniredis.RunT(t)
	client := &cache.Client{Redis: redis.NewClient(&redis.Options{Addr: mr.Addr()})}
	blacklist := auth.NewTokenBlacklist(client)

	signer := auth.NewSigner(testSecret, 15*time.Minute, 90*24*time.Hour)
	token, err := signer.IssueAccess("user-42")
	require.NoError(t, err)

	mw := JWTMiddlewareWithBlacklist(signer, blacklist)

	rec, _ := runProtected(t, mw, "Bearer "+token)
	assert.Equal(t, http.StatusOK, rec.Code)

	require.NoError(t, blacklist.Add(context.Background(), token, time.Hour))

	rec, _ = runProtected(t, mw, "Bearer "+token)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
