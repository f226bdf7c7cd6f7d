package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/optica/internal/logging"
	"github.com/Skotchmaster/optica/internal/metrics"
	authmw "github.com/Skotchmaster/optica/internal/middleware/auth"
	"github.com/Skotchmaster/optica/internal/service"
	"github.com/Skotchmaster/optica/internal/transport"
)

type WorkOrdersHTTP struct {
	Svc     *service.WorkOrderService
	Metrics *metrics.Metrics
}

func (h *WorkOrdersHTTP) Create(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "work_orders.create")

	p, err := authmw.MustPrincipal(c)
	if err != nil {
		return err
	}

	var req transport.CreateWorkOrderRequest
	if err := bind(c, l, "create_work_order", &req); err != nil {
		return err
	}

	w, err := h.Svc.Create(ctx, req, p.SubjectID)
	if err != nil {
		return fail(l, "create_work_order", err)
	}

	h.Metrics.RecordWrite("work_order", "created")
	l.Info("create_work_order_success", "work_order_id", w.ID, "order_number", w.OrderNumber)
	return c.JSON(http.StatusCreated, w)
}

func (h *WorkOrdersHTTP) List(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "work_orders.list")

	out, err := h.Svc.List(ctx)
	if err != nil {
		return fail(l, "list_work_orders", err)
	}
	return respondList(c, out)
}

func (h *WorkOrdersHTTP) ByNationalID(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "work_orders.by_national_id")

	out, err := h.Svc.ListByClient(ctx, c.QueryParam("national_id"))
	if err != nil {
		return fail(l, "list_client_work_orders", err)
	}
	return respondList(c, out)
}

func (h *WorkOrdersHTTP) ByNumber(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "work_orders.by_number")

	n, err := parseOrderNumber(c.Param("order_number"))
	if err != nil {
		l.Warn("get_work_order_failed", "status", 400, "reason", "bad order number", "error", err)
		return err
	}
	w, err := h.Svc.GetByNumber(ctx, n)
	if err != nil {
		return fail(l, "get_work_order", err)
	}
	return c.JSON(http.StatusOK, w)
}

func (h *WorkOrdersHTTP) Get(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "work_orders.get")

	id, err := pathID(c, l, "get_work_order")
	if err != nil {
		return err
	}
	w, err := h.Svc.Get(ctx, id)
	if err != nil {
		return fail(l, "get_work_order", err)
	}
	return c.JSON(http.StatusOK, w)
}

func (h *WorkOrdersHTTP) Patch(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "work_orders.patch")

	p, err := authmw.MustPrincipal(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, l, "patch_work_order")
	if err != nil {
		return err
	}

	var req transport.PatchWorkOrderRequest
	if err := bind(c, l, "patch_work_order", &req); err != nil {
		return err
	}

	w, err := h.Svc.Patch(ctx, id, req, p.SubjectID)
	if err != nil {
		return fail(l, "patch_work_order", err)
	}

	l.Info("patch_work_order_success", "work_order_id", id)
	return c.JSON(http.StatusOK, w)
}

func (h *WorkOrdersHTTP) Delete(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "work_orders.delete")

	p, err := authmw.MustPrincipal(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, l, "delete_work_order")
	if err != nil {
		return err
	}

	if err := h.Svc.Delete(ctx, id, p.SubjectID); err != nil {
		return fail(l, "delete_work_order", err)
	}

	l.Info("delete_work_order_success", "work_order_id", id)
	return c.NoContent(http.StatusNoContent)
}
