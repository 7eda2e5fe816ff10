package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-tutor-web/internal/dto"
	"github.com/noah-isme/gema-tutor-web/internal/middleware"
	"github.com/noah-isme/gema-tutor-web/internal/service"
)

var loginPage = pageMeta{template: "login", title: "Sign in", active: "login"}

// LoginHandler serves the login stub.
type LoginHandler struct {
	service service.LoginService
	logger  zerolog.Logger
}

// NewLoginHandler constructs a login handler.
func NewLoginHandler(service service.LoginService, logger zerolog.Logger) *LoginHandler {
	return &LoginHandler{
		service: service,
		logger:  logger.With().Str("component", "login_handler").Logger(),
	}
}

// Register binds the login routes.
func (h *LoginHandler) Register(router fiber.Router) {
	router.Get("", h.page)
	router.Post("", h.submit)
}

func (h *LoginHandler) page(c *fiber.Ctx) error {
	return render(c, fiber.StatusOK, loginPage, dto.LoginForm{}, "", "")
}

func (h *LoginHandler) submit(c *fiber.Ctx) error {
	var form dto.LoginForm
	if err := c.BodyParser(&form); err != nil {
		return render(c, fiber.StatusBadRequest, loginPage, dto.LoginForm{}, "Invalid form submission.", "")
	}

	notice, err := h.service.Attempt(middleware.RequestContext(c), form)
	// never echo the password back
	form.Password = ""
	if err != nil {
		return respond(c, h.logger, loginPage, form, err)
	}
	return render(c, fiber.StatusOK, loginPage, form, "", notice)
}
