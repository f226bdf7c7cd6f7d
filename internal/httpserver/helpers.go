package httpserver

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/optica/internal/util"
)

const dateLayout = "2006-01-02"

func bind(c echo.Context, l *slog.Logger, op string, req any) error {
	if err := c.Bind(req); err != nil {
		l.Warn(op+"_failed", "status", 400, "reason", "invalid body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if err := c.Validate(req); err != nil {
		l.Warn(op+"_failed", "status", 400, "reason", "validation", "error", err)
		return err
	}
	return nil
}

func pathID(c echo.Context, l *slog.Logger, op string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		l.Warn(op+"_failed", "status", 400, "reason", "id is not uuid", "error", err)
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "id is not uuid")
	}
	return id, nil
}

// respondList returns the raw array unless the caller asked for a page.
func respondList[T any](c echo.Context, items []T) error {
	if items == nil {
		items = []T{}
	}
	if c.QueryParam("page") == "" {
		return c.JSON(http.StatusOK, items)
	}
	page := util.ParseIntDefault(c.QueryParam("page"), 1)
	size := util.ParseIntDefault(c.QueryParam("size"), util.DefaultPageSize)
	data, meta := util.Paginate(items, page, size)
	return c.JSON(http.StatusOK, echo.Map{"data": data, "meta": meta})
}

// parseDay accepts YYYY-MM-DD or RFC 3339. A bare date used as an upper bound covers the whole day.
func parseDay(s string, endOfDay bool) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return &t, nil
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return nil, err
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return &t, nil
}

func parseOrderNumber(s string) (int64, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || n <= 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "order number must be a positive integer")
	}
	return n, nil
}
