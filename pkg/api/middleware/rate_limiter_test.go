package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
)

func hitOnce(e *echo.Echo, ip string) int {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Real-IP", ip)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec.Code
}

func TestRateLimitBurstThenReject(t *testing.T) {
	rl := NewRateLimiter(60, 3)

	e := echo.New()
	e.GET("/", func(c echo.Context) error { return c.NoContent(http.StatusOK) }, rl.RateLimitMiddleware())

	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, hitOnce(e, "10.0.0.1"), "request %d within burst", i+1)
	}

	assert.Equal(t, http.StatusTooManyRequests, hitOnce(e, "10.0.0.1"))
}

func TestRateLimitPerIP(t *testing.T) {
	rl := NewRateLimiter(60, 1)

	e := echo.New()
	e.GET("/", func(c echo.Context) error { return c.NoContent(http.StatusOK) }, rl.RateLimitMiddleware())

	assert.Equal(t, http.StatusOK, hitOnce(e, "10.0.0.1"))
	assert.Equal(t, http.StatusTooManyRequests, hitOnce(e, "10.0.0.1"))

	// A different client has its own bucket.
	assert.Equal(t, http.StatusOK, hitOnce(e, "10.0.0.2"))
}
