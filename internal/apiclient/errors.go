package apiclient

import (
	"errors"
	"fmt"
	"net/http"
)

var ErrInvalidCredentials = errors.New("invalid email or password")

// APIError is any non-2xx answer from the server.
type APIError struct {
	Status  int
	Message string
	Fields  map[string]string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api error: status %d", e.Status)
	}
	return fmt.Sprintf("api error: status %d: %s", e.Status, e.Message)
}

func statusIs(err error, code int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == code
}

func IsUnauthorized(err error) bool { return statusIs(err, http.StatusUnauthorized) }
func IsForbidden(err error) bool    { return statusIs(err, http.StatusForbidden) }
func IsNotFound(err error) bool     { return statusIs(err, http.StatusNotFound) }
func IsConflict(err error) bool     { return statusIs(err, http.StatusConflict) }
func IsValidation(err error) bool   { return statusIs(err, http.StatusBadRequest) }
