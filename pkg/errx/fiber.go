package errx

import (
	"errors"

	"github.com/gofiber/fiber/v2"
)

// FiberHandler is a fiber.ErrorHandler that renders *Error values with their
// code and suggested status. Anything else becomes a 500 (or the status of a
// *fiber.Error).
func FiberHandler(c *fiber.Ctx, err error) error {
	var e *Error
	if errors.As(err, &e) {
		return c.Status(e.HTTPStatus).JSON(fiber.Map{
			"code":    e.Code,
			"message": e.Message,
			"type":    e.Type,
			"details": e.Details,
		})
	}

	status := fiber.StatusInternalServerError
	var fe *fiber.Error
	if errors.As(err, &fe) {
		status = fe.Code
	}
	return c.Status(status).JSON(fiber.Map{
		"code":    string(TypeInternal),
		"message": err.Error(),
		"type":    TypeInternal,
	})
}
