package handler

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-tutor-web/internal/middleware"
	"github.com/noah-isme/gema-tutor-web/internal/service"
	"github.com/noah-isme/gema-tutor-web/internal/utils"
)

var uploadPage = pageMeta{template: "upload", title: "Upload", active: "upload"}

type uploadData struct {
	service.UploadView
	Accept      string
	AcceptLabel string
	MaxSizeMB   int
}

// UploadHandler serves the student upload and summary page.
type UploadHandler struct {
	service   service.UploadService
	maxSizeMB int
	logger    zerolog.Logger
}

// NewUploadHandler constructs an upload handler.
func NewUploadHandler(service service.UploadService, maxSizeMB int, logger zerolog.Logger) *UploadHandler {
	return &UploadHandler{
		service:   service,
		maxSizeMB: maxSizeMB,
		logger:    logger.With().Str("component", "upload_handler").Logger(),
	}
}

// Register wires upload routes.
func (h *UploadHandler) Register(router fiber.Router) {
	router.Get("", h.page)
	router.Post("", h.upload)
	router.Get("/status", h.status)
}

func (h *UploadHandler) page(c *fiber.Ctx) error {
	view, err := h.service.Page(middleware.RequestContext(c), middleware.SessionID(c))
	if err != nil {
		return respond(c, h.logger, uploadPage, nil, err)
	}
	return render(c, fiber.StatusOK, uploadPage, h.data(view), "", "")
}

func (h *UploadHandler) upload(c *fiber.Ctx) error {
	file, _ := c.FormFile("file")

	view, err := h.service.Upload(middleware.RequestContext(c), middleware.SessionID(c), file)
	if err != nil {
		requestLogger(h.logger, c).Debug().Err(err).Msg("upload did not complete")
	}
	return respond(c, h.logger, uploadPage, h.data(view), err)
}

func (h *UploadHandler) status(c *fiber.Ctx) error {
	status, err := h.service.Status(middleware.RequestContext(c), middleware.SessionID(c))
	if err != nil {
		requestLogger(h.logger, c).Error().Err(err).Msg("load upload status")
		return utils.SendError(c, fiber.StatusInternalServerError, "status unavailable")
	}
	return utils.SendSuccess(c, "upload status", status)
}

func (h *UploadHandler) data(view service.UploadView) uploadData {
	extensions := service.AcceptedExtensions()
	return uploadData{
		UploadView:  view,
		Accept:      strings.Join(extensions, ","),
		AcceptLabel: strings.Join(extensions, ", "),
		MaxSizeMB:   h.maxSizeMB,
	}
}
