package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/storefront/cartsync/internal/core/domain"
	"github.com/storefront/cartsync/internal/core/ports"
)

// Context keys set by Auth.
const (
	KeyClaims   = "claims"
	KeyUserID   = "user_id"
	KeyUsername = "username"
	KeyRole     = "role"
)

// TokenVerifier checks a bearer token.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (*ports.TokenClaims, error)
}

// Auth validates the bearer token and injects its claims into the context.
func Auth(verifier TokenVerifier) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing authorization header")
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid authorization header")
			}

			claims, err := verifier.Verify(c.Request().Context(), parts[1])
			if errors.Is(err, domain.ErrUnauthorized) {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}
			if err != nil {
				return err
			}

			c.Set(KeyClaims, *claims)
			c.Set(KeyUserID, claims.UserID)
			c.Set(KeyUsername, claims.Username)
			c.Set(KeyRole, claims.Role)

			return next(c)
		}
	}
}
