package handler

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
)

// ErrorHandler renders unhandled errors (unknown routes, failed upgrades,
// oversized bodies) as an HTML page.
func ErrorHandler(logger zerolog.Logger) fiber.ErrorHandler {
	logger = logger.With().Str("component", "error_handler").Logger()

	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		var fiberErr *fiber.Error
		if errors.As(err, &fiberErr) {
			code = fiberErr.Code
		}
		if code >= fiber.StatusInternalServerError {
			requestLogger(logger, c).Error().Err(err).Str("path", c.Path()).Msg("unhandled error")
		}

		title := http.StatusText(code)
		if code == fiber.StatusRequestEntityTooLarge {
			title = "That file is too large to upload"
		}
		if renderErr := renderError(c, code, title); renderErr != nil {
			return c.Status(code).SendString(title)
		}
		return nil
	}
}
