package httpserver

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/optica/internal/logging"
	authmw "github.com/Skotchmaster/optica/internal/middleware/auth"
	"github.com/Skotchmaster/optica/internal/service"
	"github.com/Skotchmaster/optica/internal/transport"
)

type AuthHTTP struct {
	Svc *service.AuthService
}

func authResponse(res *service.LoginResult) transport.AuthResponse {
	return transport.AuthResponse{
		AccessToken: res.AccessToken,
		ExpiresIn:   time.Until(res.ExpiresAt).Milliseconds(),
		User:        res.User,
	}
}

func (h *AuthHTTP) Login(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.login")

	var req transport.LoginRequest
	if err := bind(c, l, "login", &req); err != nil {
		return err
	}

	res, err := h.Svc.Login(ctx, req.Email, req.Password)
	if err != nil {
		return fail(l, "login", err)
	}

	l.Info("login_success", "user_id", res.User.ID)
	return c.JSON(http.StatusOK, authResponse(res))
}

func (h *AuthHTTP) Register(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.register")

	p, err := authmw.MustPrincipal(c)
	if err != nil {
		return err
	}

	var req transport.RegisterRequest
	if err := bind(c, l, "register", &req); err != nil {
		return err
	}

	user, err := h.Svc.Register(ctx, req, p.Email)
	if err != nil {
		return fail(l, "register", err)
	}

	l.Info("register_success", "user_id", user.ID, "role", user.Role)
	return c.JSON(http.StatusCreated, user)
}

func (h *AuthHTTP) Profile(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.profile")

	p, err := authmw.MustPrincipal(c)
	if err != nil {
		return err
	}

	user, err := h.Svc.Profile(ctx, p.SubjectID)
	if err != nil {
		return fail(l, "profile", err)
	}
	return c.JSON(http.StatusOK, user)
}

func (h *AuthHTTP) Refresh(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.refresh")

	p, err := authmw.MustPrincipal(c)
	if err != nil {
		return err
	}

	res, err := h.Svc.Refresh(ctx, p.SubjectID)
	if err != nil {
		return fail(l, "refresh", err)
	}

	l.Info("refresh_success", "user_id", p.SubjectID)
	return c.JSON(http.StatusOK, authResponse(res))
}

// TokenInfo reports the remaining lifetime of the presented token in milliseconds.
func (h *AuthHTTP) TokenInfo(c echo.Context) error {
	claims, ok := authmw.CurrentClaims(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}
	return c.JSON(http.StatusOK, transport.TokenInfoResponse{
		ExpiresIn: h.Svc.Tokens.ExpiresIn(claims).Milliseconds(),
	})
}
