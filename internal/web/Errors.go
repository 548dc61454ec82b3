package web

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/mflix/webserver/internal/models/dberr"
	"github.com/mflix/webserver/internal/services"
)

// statusFor translates service and database errors into HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, services.ErrInvalidCredentials),
		errors.Is(err, services.ErrInvalidToken),
		errors.Is(err, services.ErrSessionRevoked):
		return http.StatusUnauthorized
	case errors.Is(err, dberr.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, dberr.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, dberr.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, dberr.ErrTransient):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// publicMessage hides store internals from clients.
func publicMessage(err error, status int) string {
	switch status {
	case http.StatusUnauthorized, http.StatusBadRequest:
		return err.Error()
	case http.StatusConflict:
		return "already exists"
	case http.StatusNotFound:
		return "not found"
	case http.StatusServiceUnavailable:
		return "service temporarily unavailable"
	default:
		return "internal server error"
	}
}

func (s *WebServer) sendError(c *fiber.Ctx, err error) error {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Errorf("%s %s failed: %v", c.Method(), c.Path(), err)
	} else {
		s.logger.Infof("%s %s rejected: %v", c.Method(), c.Path(), err)
	}
	return c.Status(status).JSON(fiber.Map{"error": publicMessage(err, status)})
}
