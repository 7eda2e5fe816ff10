package service

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/gema-tutor-web/internal/dto"
	"github.com/noah-isme/gema-tutor-web/internal/models"
	"github.com/noah-isme/gema-tutor-web/internal/observability"
	"github.com/noah-isme/gema-tutor-web/pkg/backend"
)

// LearningGateway is the slice of the backend used by adaptive learning.
type LearningGateway interface {
	Recommendations(ctx context.Context, userID string) (dto.Recommendations, error)
	Lesson(ctx context.Context, req dto.LessonRequest) (dto.Lesson, error)
}

// LearningService drives the adaptive learning page.
type LearningService interface {
	Mount(ctx context.Context, sessionID string) (models.LearningPage, error)
	GenerateLesson(ctx context.Context, sessionID, topic string) (models.LearningPage, error)
}

type learningService struct {
	gateway  LearningGateway
	pages    *SessionPages
	activity ActivityPublisher
	identity Identity
	validate *validator.Validate
	logger   zerolog.Logger
	tracer   trace.Tracer
}

// NewLearningService constructs the adaptive learning service.
func NewLearningService(gateway LearningGateway, pages *SessionPages, activity ActivityPublisher, identity Identity, validate *validator.Validate, logger zerolog.Logger) LearningService {
	return &learningService{
		gateway:  gateway,
		pages:    pages,
		activity: activityOrNop(activity),
		identity: identity,
		validate: validatorOrDefault(validate),
		logger:   logger.With().Str("component", "learning_service").Logger(),
		tracer:   otel.Tracer("github.com/noah-isme/gema-tutor-web/internal/service/learning"),
	}
}

// Mount fetches recommendations on every visit. A 404 or an empty payload is
// the onboarding state; any other failure is an error.
func (s *learningService) Mount(ctx context.Context, sessionID string) (models.LearningPage, error) {
	ctx, span := s.tracer.Start(ctx, "learning.recommendations")
	defer span.End()

	release, locked, err := s.pages.tryLock(ctx, sessionID, keyLearning)
	if err != nil {
		return models.LearningPage{}, err
	}
	if locked {
		defer release()
	}

	var page models.LearningPage
	if err := s.pages.load(ctx, sessionID, keyLearning, &page); err != nil {
		return models.LearningPage{}, err
	}
	if locked {
		page.Lesson.Interrupt()
	}

	recs, err := s.gateway.Recommendations(ctx, s.identity.student())
	switch {
	case err == nil:
		page.Loaded(recs)
	case backend.IsStatus(err, http.StatusNotFound):
		page.NoData()
	default:
		span.RecordError(err)
		span.SetStatus(codes.Error, "recommendations failed")
		s.logger.Warn().Err(err).Str("session_id", sessionID).Msg("load recommendations")
		page.LoadFailed("Could not load your recommendations: " + failureMessage(err))
	}

	// while a lesson is being generated the lesson request owns the document
	if locked {
		if err := s.pages.save(ctx, sessionID, keyLearning, page); err != nil {
			return models.LearningPage{}, err
		}
	}
	return page, nil
}

func (s *learningService) GenerateLesson(ctx context.Context, sessionID, topic string) (models.LearningPage, error) {
	ctx, span := s.tracer.Start(ctx, "learning.lesson")
	defer span.End()

	form := dto.LessonForm{Topic: strings.TrimSpace(topic)}
	if err := s.validate.StructCtx(ctx, form); err != nil {
		observability.PageActions().WithLabelValues("learning", "lesson", "invalid").Inc()
		page, loadErr := s.current(ctx, sessionID)
		if loadErr != nil {
			return models.LearningPage{}, loadErr
		}
		return page, fromValidator(err, "Please use a shorter topic.")
	}
	topic = form.Topic

	release, err := s.pages.lock(ctx, sessionID, keyLearning)
	if err != nil {
		if errors.Is(err, ErrActionInFlight) {
			observability.PageActions().WithLabelValues("learning", "lesson", "busy").Inc()
			page, loadErr := s.current(ctx, sessionID)
			if loadErr != nil {
				return models.LearningPage{}, loadErr
			}
			return page, err
		}
		return models.LearningPage{}, err
	}
	defer release()

	page, err := s.current(ctx, sessionID)
	if err != nil {
		return models.LearningPage{}, err
	}
	page.Lesson.Interrupt()
	if err := page.BeginLesson(topic, s.pages.now()); err != nil {
		return page, err
	}
	if err := s.pages.save(ctx, sessionID, keyLearning, page); err != nil {
		return models.LearningPage{}, err
	}

	lesson, err := s.gateway.Lesson(ctx, dto.LessonRequest{UserID: s.identity.student(), Topic: topic})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "lesson failed")
		observability.PageActions().WithLabelValues("learning", "lesson", "error").Inc()
		s.logger.Warn().Err(err).Str("session_id", sessionID).Msg("lesson generation failed")

		page.FailLesson("Failed to generate lesson: " + failureMessage(err) + " Make sure course materials have been uploaded.")
		if saveErr := s.pages.save(ctx, sessionID, keyLearning, page); saveErr != nil {
			return models.LearningPage{}, saveErr
		}
		return page, backendFailure(err)
	}

	page.CompleteLesson(lesson)
	if err := s.pages.save(ctx, sessionID, keyLearning, page); err != nil {
		return models.LearningPage{}, err
	}

	observability.PageActions().WithLabelValues("learning", "lesson", "success").Inc()
	s.activity.Publish(ctx, ActivityEvent{
		Kind:      ActivityLessonCreated,
		SessionID: sessionID,
		UserID:    s.identity.student(),
		Attrs:     map[string]string{"topic": lesson.Topic, "performance_level": lesson.PerformanceLevel},
	})
	span.SetStatus(codes.Ok, "generated")
	return page, nil
}

func (s *learningService) current(ctx context.Context, sessionID string) (models.LearningPage, error) {
	var page models.LearningPage
	err := s.pages.load(ctx, sessionID, keyLearning, &page)
	return page, err
}
