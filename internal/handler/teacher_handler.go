package handler

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-tutor-web/internal/middleware"
	"github.com/noah-isme/gema-tutor-web/internal/models"
	"github.com/noah-isme/gema-tutor-web/internal/service"
)

var teacherPage = pageMeta{template: "teacher", title: "Teacher Dashboard", active: "teacher"}

type teacherData struct {
	Page   models.TeacherPage
	Accept string
}

// TeacherHandler serves the teacher upload dashboard.
type TeacherHandler struct {
	service service.TeacherService
	logger  zerolog.Logger
}

// NewTeacherHandler constructs a teacher dashboard handler.
func NewTeacherHandler(service service.TeacherService, logger zerolog.Logger) *TeacherHandler {
	return &TeacherHandler{
		service: service,
		logger:  logger.With().Str("component", "teacher_handler").Logger(),
	}
}

// Register binds the dashboard routes.
func (h *TeacherHandler) Register(router fiber.Router) {
	router.Get("", h.page)
	router.Post("/upload", h.upload)
}

func (h *TeacherHandler) page(c *fiber.Ctx) error {
	page, err := h.service.Page(middleware.RequestContext(c), middleware.SessionID(c))
	if err != nil {
		return respond(c, h.logger, teacherPage, nil, err)
	}
	return render(c, fiber.StatusOK, teacherPage, h.data(page), "", "")
}

func (h *TeacherHandler) upload(c *fiber.Ctx) error {
	// a missing file is reported by the service like any other invalid upload
	file, _ := c.FormFile("file")

	page, err := h.service.Upload(middleware.RequestContext(c), middleware.SessionID(c), file)
	return respond(c, h.logger, teacherPage, h.data(page), err)
}

func (h *TeacherHandler) data(page models.TeacherPage) teacherData {
	return teacherData{Page: page, Accept: strings.Join(service.AcceptedExtensions(), ",")}
}
