package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-tutor-web/internal/dto"
	"github.com/noah-isme/gema-tutor-web/internal/middleware"
	"github.com/noah-isme/gema-tutor-web/internal/models"
	"github.com/noah-isme/gema-tutor-web/internal/service"
)

var learningPage = pageMeta{template: "adaptive", title: "Adaptive Learning", active: "adaptive"}

// LearningHandler serves recommendations and personalized lessons.
type LearningHandler struct {
	service service.LearningService
	logger  zerolog.Logger
}

// NewLearningHandler constructs an adaptive learning handler.
func NewLearningHandler(service service.LearningService, logger zerolog.Logger) *LearningHandler {
	return &LearningHandler{
		service: service,
		logger:  logger.With().Str("component", "learning_handler").Logger(),
	}
}

// Register binds the adaptive learning routes.
func (h *LearningHandler) Register(router fiber.Router) {
	router.Get("", h.page)
	router.Post("/lesson", h.lesson)
}

func (h *LearningHandler) page(c *fiber.Ctx) error {
	page, err := h.service.Mount(middleware.RequestContext(c), middleware.SessionID(c))
	return respond(c, h.logger, learningPage, page, err)
}

func (h *LearningHandler) lesson(c *fiber.Ctx) error {
	var form dto.LessonForm
	if err := c.BodyParser(&form); err != nil {
		return render(c, fiber.StatusBadRequest, learningPage, models.LearningPage{}, "Invalid form submission.", "")
	}

	page, err := h.service.GenerateLesson(middleware.RequestContext(c), middleware.SessionID(c), form.Topic)
	return respond(c, h.logger, learningPage, page, err)
}
