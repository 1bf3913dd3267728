package apperr

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"
)

// ErrorHandler returns a Fiber error handler that renders every error as a
// JSON body of the form {"error": "<message>"} with the status mapped from
// the error kind. Internal causes are logged and never echoed to the caller.
func ErrorHandler(logger *slog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		if ae, ok := As(err); ok {
			if ae.Kind == KindInternal {
				logger.Error("request failed",
					slog.String("method", c.Method()),
					slog.String("path", c.Path()),
					slog.Any("error", ae),
				)
			}
			return c.Status(ae.Status()).JSON(fiber.Map{"error": ae.PublicMessage()})
		}

		if fe, ok := err.(*fiber.Error); ok {
			return c.Status(fe.Code).JSON(fiber.Map{"error": fe.Message})
		}

		logger.Error("unhandled error",
			slog.String("method", c.Method()),
			slog.String("path", c.Path()),
			slog.Any("error", err),
		)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": scrubbedMessage})
	}
}
