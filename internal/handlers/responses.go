package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/nfrund/profilesync/internal/domain"
	"github.com/nfrund/profilesync/internal/middleware"
)

// ErrorResponse is the standard format for API error responses.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// WriteError answers with an ErrorResponse whose status follows the domain
// sentinel err matches.
func WriteError(c echo.Context, err error) error {
	status, code := http.StatusInternalServerError, "internal_error"
	msg := "An unexpected error occurred"
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		status, code, msg = http.StatusBadRequest, "invalid_input", domain.MessageOf(err)
	case errors.Is(err, domain.ErrNotFound):
		status, code, msg = http.StatusNotFound, "not_found", "User not found"
	case errors.Is(err, domain.ErrForbidden):
		status, code, msg = http.StatusForbidden, "forbidden", "Not allowed to access this user"
	case errors.Is(err, domain.ErrAuth):
		status, code, msg = http.StatusUnauthorized, "unauthorized", "Authentication required"
	}
	return c.JSON(status, ErrorResponse{Code: code, Message: msg})
}

// InvalidInput answers 400 for a request body that failed validation. The
// validator's diagnostics are logged; the client only sees the field names.
func InvalidInput(c echo.Context, err error) error {
	middleware.FromContext(c.Request().Context()).Info("Request failed validation",
		"event", "request_invalid", "path", c.Path(), "error", err)
	verr := &domain.ValidationError{Err: err}
	return c.JSON(http.StatusBadRequest, ErrorResponse{Code: "invalid_input", Message: verr.Message()})
}
