package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/optica/internal/logging"
	authmw "github.com/Skotchmaster/optica/internal/middleware/auth"
	"github.com/Skotchmaster/optica/internal/repo"
	"github.com/Skotchmaster/optica/internal/service"
	"github.com/Skotchmaster/optica/internal/transport"
)

type ClientsHTTP struct {
	Svc *service.ClientService
}

func (h *ClientsHTTP) Create(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "clients.create")

	p, err := authmw.MustPrincipal(c)
	if err != nil {
		return err
	}

	var req transport.CreateClientRequest
	if err := bind(c, l, "create_client", &req); err != nil {
		return err
	}

	client, err := h.Svc.Create(ctx, req, p.SubjectID)
	if err != nil {
		return fail(l, "create_client", err)
	}

	l.Info("create_client_success", "client_id", client.ID)
	return c.JSON(http.StatusCreated, client)
}

func (h *ClientsHTTP) FindOrCreate(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "clients.find_or_create")

	p, err := authmw.MustPrincipal(c)
	if err != nil {
		return err
	}

	var req transport.CreateClientRequest
	if err := bind(c, l, "find_or_create_client", &req); err != nil {
		return err
	}

	client, created, err := h.Svc.FindOrCreate(ctx, req, p.SubjectID)
	if err != nil {
		return fail(l, "find_or_create_client", err)
	}
	if created {
		return c.JSON(http.StatusCreated, client)
	}
	return c.JSON(http.StatusOK, client)
}

func (h *ClientsHTTP) List(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "clients.list")

	clients, err := h.Svc.List(ctx)
	if err != nil {
		return fail(l, "list_clients", err)
	}
	return respondList(c, clients)
}

func (h *ClientsHTTP) Search(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "clients.search")

	clients, err := h.Svc.Search(ctx, c.QueryParam("q"), repo.ClientFilter{
		NationalID: c.QueryParam("national_id"),
		Name:       c.QueryParam("name"),
		Email:      c.QueryParam("email"),
	})
	if err != nil {
		return fail(l, "search_clients", err)
	}
	return respondList(c, clients)
}

func (h *ClientsHTTP) GetByNationalID(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "clients.by_national_id")

	client, err := h.Svc.GetByNationalID(ctx, c.Param("national_id"))
	if err != nil {
		return fail(l, "get_client", err)
	}
	return c.JSON(http.StatusOK, client)
}

func (h *ClientsHTTP) Get(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "clients.get")

	id, err := pathID(c, l, "get_client")
	if err != nil {
		return err
	}
	client, err := h.Svc.Get(ctx, id)
	if err != nil {
		return fail(l, "get_client", err)
	}
	return c.JSON(http.StatusOK, client)
}

func (h *ClientsHTTP) Patch(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "clients.patch")

	p, err := authmw.MustPrincipal(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, l, "patch_client")
	if err != nil {
		return err
	}

	var req transport.PatchClientRequest
	if err := bind(c, l, "patch_client", &req); err != nil {
		return err
	}

	client, err := h.Svc.Patch(ctx, id, req, p.SubjectID)
	if err != nil {
		return fail(l, "patch_client", err)
	}

	l.Info("patch_client_success", "client_id", id)
	return c.JSON(http.StatusOK, client)
}

func (h *ClientsHTTP) Delete(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "clients.delete")

	p, err := authmw.MustPrincipal(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, l, "delete_client")
	if err != nil {
		return err
	}

	if err := h.Svc.Delete(ctx, id, p.SubjectID); err != nil {
		return fail(l, "delete_client", err)
	}

	l.Info("delete_client_success", "client_id", id)
	return c.NoContent(http.StatusNoContent)
}
