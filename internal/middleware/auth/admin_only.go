package auth

import (
	"net/http"
	"slices"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/optica/internal/logging"
	"github.com/Skotchmaster/optica/internal/models"
)

// RequireRole must run after RequireAuth.
func RequireRole(roles ...models.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			p, ok := CurrentPrincipal(c)
			if !ok {
				return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
			}
			if !slices.Contains(roles, p.Role) {
				logging.FromContext(c.Request().Context()).Warn("access_denied",
					"status", 403, "user_id", p.SubjectID, "role", p.Role, "path", c.Path())
				return echo.NewHTTPError(http.StatusForbidden, "you don't have enough rights")
			}
			return next(c)
		}
	}
}

func AdminOnly() echo.MiddlewareFunc { return RequireRole(models.RoleAdmin) }
