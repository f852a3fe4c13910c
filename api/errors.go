package api

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/chataize/semantic-index/pkg/semantic"
	"github.com/chataize/semantic-index/pkg/vector"
)

// ErrorResponse is the body of every non-2xx answer.
type ErrorResponse struct {
	Error string `json:"error"`
}

// statusFor maps a store error onto an HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, semantic.ErrAlreadyExists):
		return fiber.StatusConflict
	case errors.Is(err, semantic.ErrValidation):
		return fiber.StatusBadRequest
	case errors.Is(err, vector.ErrEmbedding):
		return fiber.StatusBadGateway
	default:
		return fiber.StatusInternalServerError
	}
}

func (s *Server) fail(c *fiber.Ctx, err error) error {
	status := statusFor(err)
	if status >= fiber.StatusInternalServerError {
		s.logger.Error("request failed", "path", c.Path(), "status", status, "error", err)
	}
	return c.Status(status).JSON(ErrorResponse{Error: err.Error()})
}

func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: msg})
}
