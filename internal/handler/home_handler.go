package handler

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
)

// HomeHandler serves the start page and the theme toggle.
type HomeHandler struct {
	secureCookies bool
}

// NewHomeHandler constructs the home handler.
func NewHomeHandler(secureCookies bool) *HomeHandler {
	return &HomeHandler{secureCookies: secureCookies}
}

// Register binds the start page and theme routes.
func (h *HomeHandler) Register(router fiber.Router) {
	router.Get("/", h.home)
	router.Post("/theme", h.toggleTheme)
}

func (h *HomeHandler) home(c *fiber.Ctx) error {
	return render(c, fiber.StatusOK, pageMeta{template: "home", title: "Home", active: "home"}, nil, "", "")
}

func (h *HomeHandler) toggleTheme(c *fiber.Ctx) error {
	next := "dark"
	if themeFromCookie(c) == "dark" {
		next = "light"
	}
	c.Cookie(&fiber.Cookie{
		Name:     ThemeCookie,
		Value:    next,
		Path:     "/",
		Expires:  time.Now().Add(365 * 24 * time.Hour),
		Secure:   h.secureCookies,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
	return c.Redirect(backTarget(c), fiber.StatusSeeOther)
}

// backTarget returns the same-origin page the request came from.
func backTarget(c *fiber.Ctx) string {
	path, ok := strings.CutPrefix(c.Get(fiber.HeaderReferer), c.BaseURL())
	if !ok || !strings.HasPrefix(path, "/") || strings.HasPrefix(path, "//") {
		return "/"
	}
	return path
}
