package handler

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-tutor-web/internal/middleware"
	"github.com/noah-isme/gema-tutor-web/internal/service"
	"github.com/noah-isme/gema-tutor-web/internal/view"
)

const busyMessage = "Still working on your previous request. Please wait for it to finish."

// ThemeCookie stores the light/dark preference.
const ThemeCookie = "theme"

type pageMeta struct {
	template string
	title    string
	active   string
}

func render(c *fiber.Ctx, status int, meta pageMeta, data interface{}, flash, notice string) error {
	return c.Status(status).Render(meta.template, view.Page{
		Title:  meta.title,
		Active: meta.active,
		Theme:  themeFromCookie(c),
		Flash:  flash,
		Notice: notice,
		Data:   data,
	})
}

func renderError(c *fiber.Ctx, status int, title string) error {
	return render(c, status, pageMeta{template: "error", title: title}, nil, "", "")
}

// actionStatus maps a service error onto the status and inline message of the
// re-rendered page. ok is false for errors no page can explain.
func actionStatus(err error) (status int, flash string, ok bool) {
	if err == nil {
		return fiber.StatusOK, "", true
	}

	var validationErr *service.ValidationError
	switch {
	case errors.As(err, &validationErr):
		status = fiber.StatusUnprocessableEntity
		if errors.Is(err, service.ErrUploadTooLarge) {
			status = fiber.StatusRequestEntityTooLarge
		} else if errors.Is(err, service.ErrUploadTypeNotAllowed) {
			status = fiber.StatusUnsupportedMediaType
		}
		return status, validationErr.Message, true
	case errors.Is(err, service.ErrActionInFlight):
		return fiber.StatusConflict, busyMessage, true
	case errors.Is(err, service.ErrBackendFailed):
		// the page state already carries the message
		return fiber.StatusBadGateway, "", true
	}
	return fiber.StatusInternalServerError, "", false
}

// respond renders the outcome of a page action.
func respond(c *fiber.Ctx, logger zerolog.Logger, meta pageMeta, data interface{}, err error) error {
	status, flash, ok := actionStatus(err)
	if !ok {
		requestLogger(logger, c).Error().Err(err).Str("page", meta.active).Msg("page action failed")
		return renderError(c, status, "Something went wrong")
	}
	return render(c, status, meta, data, flash, "")
}

func themeFromCookie(c *fiber.Ctx) string {
	if strings.EqualFold(c.Cookies(ThemeCookie), "dark") {
		return "dark"
	}
	return "light"
}

func requestLogger(base zerolog.Logger, c *fiber.Ctx) *zerolog.Logger {
	logger := base
	if c != nil {
		if correlation := middleware.GetCorrelationID(c); correlation != "" {
			logger = base.With().Str("correlation_id", correlation).Logger()
		}
		if sessionID := middleware.SessionID(c); sessionID != "" {
			logger = logger.With().Str("session_id", sessionID).Logger()
		}
	}
	return &logger
}
