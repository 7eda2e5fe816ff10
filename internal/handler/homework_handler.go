package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-tutor-web/internal/dto"
	"github.com/noah-isme/gema-tutor-web/internal/middleware"
	"github.com/noah-isme/gema-tutor-web/internal/models"
	"github.com/noah-isme/gema-tutor-web/internal/service"
)

var homeworkPage = pageMeta{template: "homework", title: "Homework Help", active: "homework"}

// HomeworkHandler serves homework help with progressive hints.
type HomeworkHandler struct {
	service service.HomeworkService
	logger  zerolog.Logger
}

// NewHomeworkHandler constructs a homework handler.
func NewHomeworkHandler(service service.HomeworkService, logger zerolog.Logger) *HomeworkHandler {
	return &HomeworkHandler{
		service: service,
		logger:  logger.With().Str("component", "homework_handler").Logger(),
	}
}

// Register binds the homework routes.
func (h *HomeworkHandler) Register(router fiber.Router) {
	router.Get("", h.page)
	router.Post("/solve", h.solve)
	router.Post("/messages/:index/hint", h.nextHint)
	router.Post("/messages/:index/solution", h.showSolution)
	router.Post("/new", h.newProblem)
}

func (h *HomeworkHandler) page(c *fiber.Ctx) error {
	page, err := h.service.Mount(middleware.RequestContext(c), middleware.SessionID(c))
	return respond(c, h.logger, homeworkPage, page, err)
}

func (h *HomeworkHandler) solve(c *fiber.Ctx) error {
	var form dto.HomeworkForm
	if err := c.BodyParser(&form); err != nil {
		return render(c, fiber.StatusBadRequest, homeworkPage, models.HomeworkPage{}, "Invalid form submission.", "")
	}

	page, err := h.service.Solve(middleware.RequestContext(c), middleware.SessionID(c), form.Problem)
	return respond(c, h.logger, homeworkPage, page, err)
}

func (h *HomeworkHandler) nextHint(c *fiber.Ctx) error {
	index, err := c.ParamsInt("index")
	if err != nil {
		return renderError(c, fiber.StatusNotFound, "Message not found")
	}

	page, err := h.service.NextHint(middleware.RequestContext(c), middleware.SessionID(c), index)
	return respond(c, h.logger, homeworkPage, page, err)
}

func (h *HomeworkHandler) showSolution(c *fiber.Ctx) error {
	index, err := c.ParamsInt("index")
	if err != nil {
		return renderError(c, fiber.StatusNotFound, "Message not found")
	}

	page, err := h.service.ShowSolution(middleware.RequestContext(c), middleware.SessionID(c), index)
	return respond(c, h.logger, homeworkPage, page, err)
}

// newProblem starts over; history entries post their problem text here.
func (h *HomeworkHandler) newProblem(c *fiber.Ctx) error {
	var form dto.HomeworkNewProblemForm
	if err := c.BodyParser(&form); err != nil {
		return render(c, fiber.StatusBadRequest, homeworkPage, models.HomeworkPage{}, "Invalid form submission.", "")
	}

	page, err := h.service.NewProblem(middleware.RequestContext(c), middleware.SessionID(c), form.Problem)
	return respond(c, h.logger, homeworkPage, page, err)
}
