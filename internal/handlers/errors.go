package handlers

import (
	"errors"

	"catalog/internal/apperrors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

const validationMessage = "The given data was invalid."

// writeError maps an API error kind onto its HTTP response. action names
// the failed operation in 500 responses.
func (h *ProductHandler) writeError(c *fiber.Ctx, err error, action string) error {
	var verr *apperrors.ValidationError
	switch {
	case errors.As(err, &verr):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"message": validationMessage,
			"errors":  verr.Fields,
		})
	case errors.Is(err, apperrors.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"message": "Product not found",
		})
	default:
		h.log.Error("product request failed",
			zap.String("action", action),
			zap.String("path", c.Path()),
			zap.Error(err),
		)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Could not " + action + " product",
		})
	}
}

func writeBadBody(c *fiber.Ctx, err error) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"message": "Invalid request body",
		"error":   err.Error(),
	})
}

// ErrorHandler renders errors that escape route handlers, such as unknown
// routes or recovered panics, as JSON.
func ErrorHandler(log *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		message := "Internal Server Error"

		var fe *fiber.Error
		if errors.As(err, &fe) {
			code = fe.Code
			message = fe.Message
		} else {
			log.Error("unhandled error", zap.String("path", c.Path()), zap.Error(err))
		}

		return c.Status(code).JSON(fiber.Map{
			"message": message,
		})
	}
}
