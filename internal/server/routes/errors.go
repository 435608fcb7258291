package routes

import (
	"errors"
	"net/http"

	"github.com/kgtext/backend/pkg/common"
	"github.com/kgtext/backend/pkg/logger"

	"github.com/labstack/echo/v4"
)

type messageResponse struct {
	Message string `json:"message"`
}

// StatusFromError maps the error taxonomy onto HTTP status codes.
func StatusFromError(err error) int {
	switch {
	case errors.Is(err, common.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, common.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, common.ErrExtraction):
		return http.StatusBadGateway
	case errors.Is(err, common.ErrStoreConnection):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// errorJSON reports user-correctable errors verbatim and hides the details
// of system faults.
func errorJSON(c echo.Context, err error) error {
	status := StatusFromError(err)

	msg := "Internal server error"
	switch status {
	case http.StatusBadRequest, http.StatusNotFound:
		msg = err.Error()
	case http.StatusBadGateway:
		msg = "Graph extraction failed"
	case http.StatusServiceUnavailable:
		msg = "Graph store unavailable"
	}
	if status >= http.StatusInternalServerError {
		logger.Error("[HTTP] Request failed", "path", c.Path(), "status", status, "err", err)
	}

	return c.JSON(status, messageResponse{Message: msg})
}
