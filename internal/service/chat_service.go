package service

import (
	"context"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/gema-tutor-web/internal/dto"
	"github.com/noah-isme/gema-tutor-web/internal/models"
	"github.com/noah-isme/gema-tutor-web/internal/observability"
)

// ChatGateway is the slice of the backend used by the chat page.
type ChatGateway interface {
	Chat(ctx context.Context, req dto.ChatRequest) (dto.ChatAnswer, error)
	ChatHistory(ctx context.Context, userID string) ([]dto.ChatMessage, error)
}

// ChatView is what the chat page renders.
type ChatView struct {
	Page         models.ChatPage
	HistoryError string
}

// ChatService drives the chat tutoring page.
type ChatService interface {
	Mount(ctx context.Context, sessionID string) (ChatView, error)
	Send(ctx context.Context, sessionID, message string) (ChatView, error)
}

type chatService struct {
	gateway  ChatGateway
	pages    *SessionPages
	activity ActivityPublisher
	identity Identity
	validate *validator.Validate
	logger   zerolog.Logger
	tracer   trace.Tracer
}

var chatFormMessages = map[string]string{
	"required": "Please type a message first.",
	"max":      "That message is too long.",
}

// NewChatService constructs the chat service.
func NewChatService(gateway ChatGateway, pages *SessionPages, activity ActivityPublisher, identity Identity, validate *validator.Validate, logger zerolog.Logger) ChatService {
	return &chatService{
		gateway:  gateway,
		pages:    pages,
		activity: activityOrNop(activity),
		identity: identity,
		validate: validatorOrDefault(validate),
		logger:   logger.With().Str("component", "chat_service").Logger(),
		tracer:   otel.Tracer("github.com/noah-isme/gema-tutor-web/internal/service/chat"),
	}
}

// Mount replaces the transcript with the backend history unless a send is in flight.
func (s *chatService) Mount(ctx context.Context, sessionID string) (ChatView, error) {
	release, locked, err := s.pages.tryLock(ctx, sessionID, keyChat)
	if err != nil {
		return ChatView{}, err
	}

	var view ChatView
	if err := s.pages.load(ctx, sessionID, keyChat, &view.Page); err != nil {
		if locked {
			release()
		}
		return ChatView{}, err
	}
	if !locked {
		return view, nil
	}
	defer release()

	view.Page.Interrupt()
	history, err := s.gateway.ChatHistory(ctx, s.identity.student())
	if err != nil {
		s.logger.Warn().Err(err).Str("session_id", sessionID).Msg("load chat history")
		view.HistoryError = "Could not load earlier messages: " + failureMessage(err)
		return view, nil
	}

	view.Page.ReplaceHistory(history)
	if err := s.pages.save(ctx, sessionID, keyChat, view.Page); err != nil {
		return ChatView{}, err
	}
	return view, nil
}

func (s *chatService) Send(ctx context.Context, sessionID, message string) (ChatView, error) {
	ctx, span := s.tracer.Start(ctx, "chat.send")
	defer span.End()

	form := dto.ChatSendForm{Message: strings.TrimSpace(message)}
	if err := s.validate.StructCtx(ctx, form); err != nil {
		observability.PageActions().WithLabelValues("chat", "send", "invalid").Inc()
		view, loadErr := s.current(ctx, sessionID)
		if loadErr != nil {
			return ChatView{}, loadErr
		}
		return view, fromValidatorTags(err, chatFormMessages, "Please check your message.")
	}
	message = form.Message
	span.SetAttributes(attribute.Int("chat.message_length", len(message)))

	release, err := s.pages.lock(ctx, sessionID, keyChat)
	if err != nil {
		if errors.Is(err, ErrActionInFlight) {
			observability.PageActions().WithLabelValues("chat", "send", "busy").Inc()
			view, loadErr := s.current(ctx, sessionID)
			if loadErr != nil {
				return ChatView{}, loadErr
			}
			return view, err
		}
		return ChatView{}, err
	}
	defer release()

	var page models.ChatPage
	if err := s.pages.load(ctx, sessionID, keyChat, &page); err != nil {
		return ChatView{}, err
	}
	page.Interrupt()
	now := s.pages.now()
	if err := page.Start(now); err != nil {
		return ChatView{}, err
	}
	page.Append(dto.RoleUser, message, now)
	if err := s.pages.save(ctx, sessionID, keyChat, page); err != nil {
		return ChatView{}, err
	}

	answer, err := s.gateway.Chat(ctx, dto.ChatRequest{UserID: s.identity.student(), Message: message})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "chat failed")
		observability.PageActions().WithLabelValues("chat", "send", "error").Inc()
		s.logger.Warn().Err(err).Str("session_id", sessionID).Msg("chat request failed")

		page.Fail("Could not reach the AI Tutor: " + failureMessage(err))
		if saveErr := s.pages.save(ctx, sessionID, keyChat, page); saveErr != nil {
			return ChatView{}, saveErr
		}
		return ChatView{Page: page}, backendFailure(err)
	}

	page.Append(dto.RoleAI, answer.Answer, s.pages.now())
	page.Succeed("")
	if err := s.pages.save(ctx, sessionID, keyChat, page); err != nil {
		return ChatView{}, err
	}

	observability.PageActions().WithLabelValues("chat", "send", "success").Inc()
	s.activity.Publish(ctx, ActivityEvent{
		Kind:      ActivityChatted,
		SessionID: sessionID,
		UserID:    s.identity.student(),
		Attrs:     map[string]string{"messages": itoa(len(page.Messages))},
	})
	span.SetStatus(codes.Ok, "answered")
	return ChatView{Page: page}, nil
}

func (s *chatService) current(ctx context.Context, sessionID string) (ChatView, error) {
	var view ChatView
	err := s.pages.load(ctx, sessionID, keyChat, &view.Page)
	return view, err
}
