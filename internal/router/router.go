package router

import (
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/filesystem"

	"github.com/noah-isme/gema-tutor-web/internal/config"
	"github.com/noah-isme/gema-tutor-web/internal/handler"
	"github.com/noah-isme/gema-tutor-web/internal/middleware"
	"github.com/noah-isme/gema-tutor-web/internal/observability"
	"github.com/noah-isme/gema-tutor-web/internal/view"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	HomeHandler     *handler.HomeHandler
	LoginHandler    *handler.LoginHandler
	TeacherHandler  *handler.TeacherHandler
	ChatHandler     *handler.ChatHandler
	UploadHandler   *handler.UploadHandler
	HomeworkHandler *handler.HomeworkHandler
	ExamHandler     *handler.ExamHandler
	LearningHandler *handler.LearningHandler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	app.Use("/static", filesystem.New(filesystem.Config{
		Root:   http.FS(view.Static()),
		MaxAge: 3600,
	}))
	app.Get("/healthz", handler.HealthCheck(cfg))
	app.Get("/metrics", observability.MetricsHandler())

	// page actions are throttled per session; GETs pass through
	limit := middleware.RateLimit("actions", cfg.RateLimitMax, cfg.RateLimitWindow)
	tag := func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	}

	if deps.HomeHandler != nil {
		deps.HomeHandler.Register(app.Group("", tag))
	}
	if deps.LoginHandler != nil {
		deps.LoginHandler.Register(app.Group("/login", tag, limit))
	}
	if deps.TeacherHandler != nil {
		deps.TeacherHandler.Register(app.Group("/teacher", tag, limit))
	}
	if deps.ChatHandler != nil {
		deps.ChatHandler.Register(app.Group("/student", tag, limit))
	}
	if deps.UploadHandler != nil {
		deps.UploadHandler.Register(app.Group("/upload", tag, limit))
	}
	if deps.HomeworkHandler != nil {
		deps.HomeworkHandler.Register(app.Group("/homework", tag, limit))
	}
	if deps.ExamHandler != nil {
		deps.ExamHandler.Register(app.Group("/exam", tag, limit))
		app.Get("/exam-prep", func(c *fiber.Ctx) error {
			return c.Redirect("/exam", fiber.StatusMovedPermanently)
		})
	}
	if deps.LearningHandler != nil {
		deps.LearningHandler.Register(app.Group("/adaptive", tag, limit))
	}
}
