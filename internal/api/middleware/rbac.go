package middleware

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// RBAC admits callers holding one of roles. It must run after Auth; a
// request without claims is treated as unauthenticated, not forbidden.
// Denials are logged with the caller so catalog edits can be audited.
func RBAC(log zerolog.Logger, roles ...string) echo.MiddlewareFunc {
	allowed := make(map[string]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	denied := fmt.Sprintf("requires role %s", strings.Join(roles, " or "))

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			role, ok := c.Get(KeyRole).(string)
			if !ok {
				return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
			}
			if _, ok := allowed[role]; !ok {
				userID, _ := c.Get(KeyUserID).(string)
				log.Warn().
					Str("user_id", userID).
					Str("role", role).
					Str("path", c.Path()).
					Msg("role denied")
				return echo.NewHTTPError(http.StatusForbidden, denied)
			}
			return next(c)
		}
	}
}
