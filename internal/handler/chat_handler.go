package handler

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-tutor-web/internal/dto"
	"github.com/noah-isme/gema-tutor-web/internal/middleware"
	"github.com/noah-isme/gema-tutor-web/internal/observability"
	"github.com/noah-isme/gema-tutor-web/internal/service"
)

var chatPage = pageMeta{template: "chat", title: "Chat", active: "chat"}

// ChatHandler wires the chat page, its form post and the websocket upgrade.
type ChatHandler struct {
	service service.ChatService
	logger  zerolog.Logger
}

// NewChatHandler creates a chat handler instance.
func NewChatHandler(service service.ChatService, logger zerolog.Logger) *ChatHandler {
	return &ChatHandler{
		service: service,
		logger:  logger.With().Str("component", "chat_handler").Logger(),
	}
}

// Register binds chat routes under the provided router group.
func (h *ChatHandler) Register(router fiber.Router) {
	router.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			c.Locals("request_ctx", middleware.RequestContext(c))
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	router.Get("", h.page)
	router.Post("/messages", h.send)
	router.Get("/ws", websocket.New(h.handleConnection))
}

func (h *ChatHandler) page(c *fiber.Ctx) error {
	view, err := h.service.Mount(middleware.RequestContext(c), middleware.SessionID(c))
	return respond(c, h.logger, chatPage, view, err)
}

func (h *ChatHandler) send(c *fiber.Ctx) error {
	var form dto.ChatSendForm
	if err := c.BodyParser(&form); err != nil {
		return render(c, fiber.StatusBadRequest, chatPage, service.ChatView{}, "Invalid form submission.", "")
	}

	view, err := h.service.Send(middleware.RequestContext(c), middleware.SessionID(c), form.Message)
	return respond(c, h.logger, chatPage, view, err)
}

func (h *ChatHandler) handleConnection(conn *websocket.Conn) {
	sessionID, _ := conn.Locals("session_id").(string)
	ctx, _ := conn.Locals("request_ctx").(context.Context)
	if ctx == nil {
		ctx = context.Background()
	}
	logger := h.logger.With().Str("session_id", sessionID).Str("correlation_id", middleware.CorrelationIDFromContext(ctx)).Logger()

	if sessionID == "" {
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "session missing"))
		_ = conn.Close()
		return
	}

	observability.ChatSockets().Inc()
	defer observability.ChatSockets().Dec()
	logger.Info().Msg("chat websocket connected")
	defer logger.Info().Msg("chat websocket disconnected")

	view, err := h.service.Mount(ctx, sessionID)
	if err != nil {
		logger.Error().Err(err).Msg("mount chat over websocket")
		_ = conn.WriteJSON(dto.ChatFrame{Type: "error", Error: "Could not load the conversation."})
		return
	}
	history := dto.ChatFrame{Type: "history", History: view.Page.Messages, Error: view.HistoryError}
	if err := conn.WriteJSON(history); err != nil {
		return
	}

	for {
		var form dto.ChatSendForm
		if err := conn.ReadJSON(&form); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Warn().Err(err).Msg("chat websocket read failed")
			}
			return
		}

		view, err := h.service.Send(ctx, sessionID, form.Message)
		for _, frame := range chatFrames(view, err) {
			if err := conn.WriteJSON(frame); err != nil {
				return
			}
		}
		if _, _, ok := actionStatus(err); !ok {
			logger.Error().Err(err).Msg("chat send failed")
		}
	}
}

// chatFrames turns a send outcome into the frames pushed to the socket.
func chatFrames(view service.ChatView, err error) []dto.ChatFrame {
	if err == nil {
		messages := view.Page.Messages
		if len(messages) > 2 {
			messages = messages[len(messages)-2:]
		}
		frames := make([]dto.ChatFrame, 0, len(messages))
		for i := range messages {
			message := messages[i]
			frames = append(frames, dto.ChatFrame{Type: "message", Message: &message})
		}
		return frames
	}

	var validationErr *service.ValidationError
	switch {
	case errors.As(err, &validationErr):
		return []dto.ChatFrame{{Type: "error", Error: validationErr.Message}}
	case errors.Is(err, service.ErrActionInFlight):
		return []dto.ChatFrame{{Type: "error", Error: busyMessage}}
	case errors.Is(err, service.ErrBackendFailed):
		return []dto.ChatFrame{{Type: "error", Error: view.Page.Message}}
	}
	return []dto.ChatFrame{{Type: "error", Error: "Something went wrong. Please try again."}}
}
