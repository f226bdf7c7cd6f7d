package auth

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/optica/internal/logging"
	"github.com/Skotchmaster/optica/internal/models"
)

// RequireAuth rejects requests without a valid bearer token and attaches the principal.
func RequireAuth(parser TokenParser) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			l := logging.FromContext(c.Request().Context()).With("mw", "require_auth")

			raw := bearerToken(c)
			if raw == "" {
				l.Warn("auth_failed", "status", 401, "reason", "missing bearer token")
				return echo.NewHTTPError(http.StatusUnauthorized, "missing access token")
			}

			claims, err := parser.Parse(raw)
			if err != nil {
				l.Warn("auth_failed", "status", 401, "reason", "invalid token", "error", err)
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid or expired token")
			}

			sub, err := uuid.Parse(claims.Subject)
			if err != nil {
				l.Warn("auth_failed", "status", 401, "reason", "bad subject", "error", err)
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid or expired token")
			}

			c.Set(ctxClaims, claims)
			c.Set(ctxPrincipal, Principal{
				SubjectID: sub,
				Email:     claims.Email,
				Role:      models.Role(claims.Role),
			})
			return next(c)
		}
	}
}
