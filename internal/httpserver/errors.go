package httpserver

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/optica/internal/service"
)

// fail logs a service error and converts it into the HTTP error the client sees.
func fail(l *slog.Logger, op string, err error) error {
	status, msg := statusOf(err)
	if status >= http.StatusInternalServerError {
		l.Error(op+"_failed", "status", status, "error", err)
	} else {
		l.Warn(op+"_failed", "status", status, "reason", msg, "error", err)
	}
	return echo.NewHTTPError(status, msg)
}

func statusOf(err error) (int, string) {
	switch {
	case errors.Is(err, service.ErrValidation):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, service.ErrInvalidCredentials):
		return http.StatusUnauthorized, "invalid email or password"
	case errors.Is(err, service.ErrUnauthorized):
		return http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden, "you don't have enough rights"
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, service.ErrConflict):
		return http.StatusConflict, err.Error()
	default:
		return http.StatusInternalServerError, "internal error"
	}
}
