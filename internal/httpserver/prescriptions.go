package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/optica/internal/logging"
	"github.com/Skotchmaster/optica/internal/metrics"
	authmw "github.com/Skotchmaster/optica/internal/middleware/auth"
	"github.com/Skotchmaster/optica/internal/models"
	"github.com/Skotchmaster/optica/internal/repo"
	"github.com/Skotchmaster/optica/internal/service"
	"github.com/Skotchmaster/optica/internal/transport"
)

type PrescriptionsHTTP struct {
	Svc     *service.PrescriptionService
	Metrics *metrics.Metrics
}

// Create answers 201 for a new record and 200 when the latest one already had these readings.
func (h *PrescriptionsHTTP) Create(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "prescriptions.create")

	p, err := authmw.MustPrincipal(c)
	if err != nil {
		return err
	}

	var req transport.CreatePrescriptionRequest
	if err := bind(c, l, "create_prescription", &req); err != nil {
		return err
	}

	res, err := h.Svc.Create(ctx, req, p.SubjectID)
	if err != nil {
		return fail(l, "create_prescription", err)
	}

	if !res.IsNew {
		h.Metrics.RecordWrite("prescription", "deduplicated")
		l.Info("create_prescription_deduplicated", "prescription_id", res.Prescription.ID)
		return c.JSON(http.StatusOK, res)
	}
	h.Metrics.RecordWrite("prescription", "created")
	l.Info("create_prescription_success", "prescription_id", res.Prescription.ID)
	return c.JSON(http.StatusCreated, res)
}

func (h *PrescriptionsHTTP) List(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "prescriptions.list")

	out, err := h.Svc.List(ctx)
	if err != nil {
		return fail(l, "list_prescriptions", err)
	}
	return respondList(c, out)
}

func (h *PrescriptionsHTTP) Search(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "prescriptions.search")

	from, err := parseDay(c.QueryParam("from"), false)
	if err != nil {
		l.Warn("search_prescriptions_failed", "status", 400, "reason", "bad from date", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "from must be YYYY-MM-DD")
	}
	to, err := parseDay(c.QueryParam("to"), true)
	if err != nil {
		l.Warn("search_prescriptions_failed", "status", 400, "reason", "bad to date", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "to must be YYYY-MM-DD")
	}

	out, err := h.Svc.Search(ctx, repo.PrescriptionFilter{
		NationalID: c.QueryParam("national_id"),
		Name:       c.QueryParam("name"),
		From:       from,
		To:         to,
	})
	if err != nil {
		return fail(l, "search_prescriptions", err)
	}
	return respondList(c, out)
}

func (h *PrescriptionsHTTP) ByNationalID(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "prescriptions.by_national_id")

	out, err := h.Svc.ListByClient(ctx, c.QueryParam("national_id"), models.PrescriptionType(c.QueryParam("type")))
	if err != nil {
		return fail(l, "list_client_prescriptions", err)
	}
	return respondList(c, out)
}

// ByNationalIDAndType is ByNationalID with the type made mandatory.
func (h *PrescriptionsHTTP) ByNationalIDAndType(c echo.Context) error {
	if c.QueryParam("type") == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "type is required")
	}
	return h.ByNationalID(c)
}

func (h *PrescriptionsHTTP) Latest(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "prescriptions.latest")

	p, err := h.Svc.Latest(ctx, c.QueryParam("national_id"), models.PrescriptionType(c.QueryParam("type")))
	if err != nil {
		return fail(l, "latest_prescription", err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *PrescriptionsHTTP) LatestByType(c echo.Context) error {
	if c.QueryParam("type") == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "type is required")
	}
	return h.Latest(c)
}

func (h *PrescriptionsHTTP) Get(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "prescriptions.get")

	id, err := pathID(c, l, "get_prescription")
	if err != nil {
		return err
	}
	p, err := h.Svc.Get(ctx, id)
	if err != nil {
		return fail(l, "get_prescription", err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *PrescriptionsHTTP) Patch(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "prescriptions.patch")

	p, err := authmw.MustPrincipal(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, l, "patch_prescription")
	if err != nil {
		return err
	}

	var req transport.PatchPrescriptionRequest
	if err := bind(c, l, "patch_prescription", &req); err != nil {
		return err
	}

	out, err := h.Svc.Patch(ctx, id, req, p.SubjectID)
	if err != nil {
		return fail(l, "patch_prescription", err)
	}

	h.Metrics.RecordWrite("prescription", "patched")
	l.Info("patch_prescription_success", "prescription_id", id)
	return c.JSON(http.StatusOK, out)
}

func (h *PrescriptionsHTTP) Delete(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "prescriptions.delete")

	p, err := authmw.MustPrincipal(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, l, "delete_prescription")
	if err != nil {
		return err
	}

	if err := h.Svc.Delete(ctx, id, p.SubjectID); err != nil {
		return fail(l, "delete_prescription", err)
	}

	l.Info("delete_prescription_success", "prescription_id", id)
	return c.NoContent(http.StatusNoContent)
}
