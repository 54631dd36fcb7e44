package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/storefront/cartsync/internal/api/middleware"
	"github.com/storefront/cartsync/internal/core/ports"
)

// ctxClaims extracts the claims injected by the Auth middleware. A missing
// subject means the middleware did not run, which is treated as 401.
func ctxClaims(c echo.Context) (ports.TokenClaims, error) {
	claims, ok := c.Get(middleware.KeyClaims).(ports.TokenClaims)
	if !ok || claims.UserID == "" {
		return ports.TokenClaims{}, echo.NewHTTPError(http.StatusUnauthorized, "missing authentication claims")
	}
	return claims, nil
}
