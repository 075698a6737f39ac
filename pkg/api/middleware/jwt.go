package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/jordanlanch/replykit/pkg/auth"
	"github.com/jordanlanch/replykit/pkg/models"
)

// Context keys set by the JWT middleware.
const (
	ContextUserID = "user_id"
	ContextToken  = "token"
)

// JWTMiddleware creates a bearer-token authentication middleware
func JWTMiddleware(signer *auth.Signer) echo.MiddlewareFunc {
	return JWTMiddlewareWithBlacklist(signer, nil)
}

// JWTMiddlewareWithBlacklist creates a bearer-token authentication
// middleware that also rejects blacklisted (logged-out) access tokens.
func JWTMiddlewareWithBlacklist(signer *auth.Signer, blacklist *auth.TokenBlacklist) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				return c.JSON(http.StatusUnauthorized, models.ErrorResponse{
					Error:   "missing_token",
					Message: "Authorization header is required",
				})
			}

			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				return c.JSON(http.StatusUnauthorized, models.ErrorResponse{
					Error:   "invalid_token_format",
					Message: "Authorization header must be 'Bearer {token}'",
				})
			}
			token := parts[1]

			claims, err := signer.Verify(token)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, models.ErrorResponse{
					Error:   "invalid_token",
					Message: "Token is invalid or expired",
				})
			}

			if blacklist != nil {
				ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
				defer cancel()

				revoked, err := blacklist.IsBlacklisted(ctx, token)
				if err != nil || revoked {
					return c.JSON(http.StatusUnauthorized, models.ErrorResponse{
						Error:   "invalid_token",
						Message: "Token is invalid or expired",
					})
				}
			}

			// Store token in context for potential logout
			c.Set(ContextToken, token)
			c.Set(ContextUserID, claims.Subject)

			return next(c)
		}
	}
}
