package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/optica/internal/logging"
	authmw "github.com/Skotchmaster/optica/internal/middleware/auth"
	"github.com/Skotchmaster/optica/internal/service"
	"github.com/Skotchmaster/optica/internal/transport"
)

type UsersHTTP struct {
	Svc *service.UserService
}

func (h *UsersHTTP) List(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "users.list")

	users, err := h.Svc.List(ctx)
	if err != nil {
		return fail(l, "list_users", err)
	}
	return respondList(c, users)
}

func (h *UsersHTTP) Get(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "users.get")

	id, err := pathID(c, l, "get_user")
	if err != nil {
		return err
	}
	user, err := h.Svc.Get(ctx, id)
	if err != nil {
		return fail(l, "get_user", err)
	}
	return c.JSON(http.StatusOK, user)
}

func (h *UsersHTTP) Patch(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "users.patch")

	p, err := authmw.MustPrincipal(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, l, "patch_user")
	if err != nil {
		return err
	}

	var req transport.PatchUserRequest
	if err := bind(c, l, "patch_user", &req); err != nil {
		return err
	}

	user, err := h.Svc.Patch(ctx, id, req, p.Email)
	if err != nil {
		return fail(l, "patch_user", err)
	}

	l.Info("patch_user_success", "user_id", id)
	return c.JSON(http.StatusOK, user)
}
