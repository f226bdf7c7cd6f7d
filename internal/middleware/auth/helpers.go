package auth

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/optica/internal/models"
	"github.com/Skotchmaster/optica/internal/tokens"
)

const (
	ctxPrincipal = "principal"
	ctxClaims    = "claims"
)

// Principal is the authenticated caller attached to the request.
type Principal struct {
	SubjectID uuid.UUID
	Email     string
	Role      models.Role
}

func (p Principal) IsAdmin() bool { return p.Role == models.RoleAdmin }

// TokenParser verifies a raw bearer token.
type TokenParser interface {
	Parse(raw string) (*tokens.AccessClaims, error)
}

func CurrentPrincipal(c echo.Context) (Principal, bool) {
	p, ok := c.Get(ctxPrincipal).(Principal)
	return p, ok
}

// MustPrincipal is for handlers mounted behind RequireAuth.
func MustPrincipal(c echo.Context) (Principal, error) {
	p, ok := CurrentPrincipal(c)
	if !ok {
		return Principal{}, echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}
	return p, nil
}

func CurrentClaims(c echo.Context) (*tokens.AccessClaims, bool) {
	claims, ok := c.Get(ctxClaims).(*tokens.AccessClaims)
	return claims, ok && claims != nil
}

func bearerToken(c echo.Context) string {
	h := strings.TrimSpace(c.Request().Header.Get(echo.HeaderAuthorization))
	if len(h) < 7 || !strings.EqualFold(h[:7], "bearer ") {
		return ""
	}
	return strings.TrimSpace(h[7:])
}
