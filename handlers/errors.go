// handlers/errors.go
package handlers

import (
	"errors"

	"game-session-backend/apperr"
	"game-session-backend/logger"

	"github.com/gofiber/fiber/v2"
)

// StatusFor maps an error kind onto its HTTP status.
func StatusFor(kind apperr.Kind) int {
	switch kind {
	case apperr.KindValidation, apperr.KindConflict, apperr.KindVeto:
		return fiber.StatusBadRequest
	case apperr.KindUnauthorized:
		return fiber.StatusUnauthorized
	case apperr.KindNotFound:
		return fiber.StatusNotFound
	default:
		return fiber.StatusInternalServerError
	}
}

// ErrorHandler is the only place errors become responses. Route handlers
// just return what the services gave them.
func ErrorHandler(log *logger.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var fe *fiber.Error
		if errors.As(err, &fe) {
			return c.Status(fe.Code).JSON(fiber.Map{"message": fe.Message})
		}

		kind := apperr.KindOf(err)
		status := StatusFor(kind)
		if status == fiber.StatusInternalServerError {
			log.Error("request failed", "method", c.Method(), "path", c.Path(), "error", err)
			return c.Status(status).JSON(fiber.Map{"message": "internal server error"})
		}

		var ae *apperr.Error
		errors.As(err, &ae)
		if kind == apperr.KindVeto && ae.Details != nil {
			log.Warn("request vetoed", "path", c.Path())
			return c.Status(status).JSON(ae.Details)
		}
		return c.Status(status).JSON(fiber.Map{"message": ae.Message})
	}
}

func parseBody(c *fiber.Ctx, dst any) error {
	if len(c.Body()) == 0 {
		return nil
	}
	if err := c.BodyParser(dst); err != nil {
		return apperr.Validation("invalid request body")
	}
	return nil
}
