package handler

import (
	"sort"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-tutor-web/internal/dto"
	"github.com/noah-isme/gema-tutor-web/internal/middleware"
	"github.com/noah-isme/gema-tutor-web/internal/service"
	"github.com/noah-isme/gema-tutor-web/internal/utils"
)

var examPage = pageMeta{template: "exam", title: "Exam Prep", active: "exam"}

const answerFieldPrefix = "q_"

// ExamHandler serves quiz generation, answering and grading.
type ExamHandler struct {
	service service.ExamService
	logger  zerolog.Logger
}

// NewExamHandler constructs an exam prep handler.
func NewExamHandler(service service.ExamService, logger zerolog.Logger) *ExamHandler {
	return &ExamHandler{
		service: service,
		logger:  logger.With().Str("component", "exam_handler").Logger(),
	}
}

// Register binds the exam prep routes.
func (h *ExamHandler) Register(router fiber.Router) {
	router.Get("", h.page)
	router.Post("/generate", h.generate)
	router.Post("/select", h.selectOption)
	router.Post("/submit", h.submit)
	router.Post("/reset", h.startOver)
}

func (h *ExamHandler) page(c *fiber.Ctx) error {
	view, err := h.service.Mount(middleware.RequestContext(c), middleware.SessionID(c))
	return respond(c, h.logger, examPage, view, err)
}

func (h *ExamHandler) generate(c *fiber.Ctx) error {
	var form dto.QuizGenerateForm
	if err := c.BodyParser(&form); err != nil {
		return render(c, fiber.StatusBadRequest, examPage, service.ExamView{}, "Invalid form submission.", "")
	}

	view, err := h.service.Generate(middleware.RequestContext(c), middleware.SessionID(c), form.Topic)
	return respond(c, h.logger, examPage, view, err)
}

// selectOption records one choice; the quiz page calls it as the learner clicks.
func (h *ExamHandler) selectOption(c *fiber.Ctx) error {
	var form dto.QuizSelectForm
	if err := c.BodyParser(&form); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid selection")
	}

	view, err := h.service.Select(middleware.RequestContext(c), middleware.SessionID(c), form.QuestionID, form.Option)
	status, message, ok := actionStatus(err)
	switch {
	case !ok:
		requestLogger(h.logger, c).Error().Err(err).Msg("select answer")
		return utils.SendError(c, fiber.StatusInternalServerError, "could not record answer")
	case err != nil:
		return utils.SendError(c, status, message)
	}
	return utils.SendSuccess(c, "answer recorded", fiber.Map{"answered": view.Page.AnsweredCount()})
}

// submit applies the selections posted with the form, then grades the quiz.
func (h *ExamHandler) submit(c *fiber.Ctx) error {
	ctx := middleware.RequestContext(c)
	sessionID := middleware.SessionID(c)

	for _, answer := range postedAnswers(c) {
		if view, err := h.service.Select(ctx, sessionID, answer.QuestionID, answer.Answer); err != nil {
			return respond(c, h.logger, examPage, view, err)
		}
	}

	view, err := h.service.Submit(ctx, sessionID)
	return respond(c, h.logger, examPage, view, err)
}

func (h *ExamHandler) startOver(c *fiber.Ctx) error {
	view, err := h.service.StartOver(middleware.RequestContext(c), middleware.SessionID(c))
	return respond(c, h.logger, examPage, view, err)
}

func postedAnswers(c *fiber.Ctx) []dto.QuizAnswer {
	var answers []dto.QuizAnswer
	c.Request().PostArgs().VisitAll(func(key, value []byte) {
		name := string(key)
		if !strings.HasPrefix(name, answerFieldPrefix) {
			return
		}
		id, err := strconv.Atoi(strings.TrimPrefix(name, answerFieldPrefix))
		if err != nil {
			return
		}
		answers = append(answers, dto.QuizAnswer{QuestionID: id, Answer: string(value)})
	})
	sort.Slice(answers, func(i, j int) bool { return answers[i].QuestionID < answers[j].QuestionID })
	return answers
}
