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

// DefaultQuizTopic is used when neither the form nor the shared state names a topic.
const DefaultQuizTopic = "General"

// ExamGateway is the slice of the backend used by exam prep.
type ExamGateway interface {
	GenerateQuiz(ctx context.Context, req dto.QuizRequest) (dto.Quiz, error)
	SubmitQuiz(ctx context.Context, req dto.QuizSubmission) (dto.QuizResult, error)
	QuizHistory(ctx context.Context, userID string) ([]dto.QuizHistoryItem, error)
}

// ExamView is what the exam prep page renders.
type ExamView struct {
	Page         models.ExamPage
	App          models.AppState
	HistoryError string
}

// SuggestedTopic is prefilled into the topic field.
func (v ExamView) SuggestedTopic() string {
	return v.App.Topic
}

// ExamService drives the exam prep page.
type ExamService interface {
	Mount(ctx context.Context, sessionID string) (ExamView, error)
	Generate(ctx context.Context, sessionID, topic string) (ExamView, error)
	Select(ctx context.Context, sessionID string, questionID int, option string) (ExamView, error)
	Submit(ctx context.Context, sessionID string) (ExamView, error)
	StartOver(ctx context.Context, sessionID string) (ExamView, error)
}

type examService struct {
	gateway      ExamGateway
	pages        *SessionPages
	activity     ActivityPublisher
	identity     Identity
	numQuestions int
	validate     *validator.Validate
	logger       zerolog.Logger
	tracer       trace.Tracer
}

// NewExamService constructs the exam prep service.
func NewExamService(gateway ExamGateway, pages *SessionPages, activity ActivityPublisher, identity Identity, numQuestions int, validate *validator.Validate, logger zerolog.Logger) ExamService {
	if numQuestions <= 0 {
		numQuestions = 5
	}
	return &examService{
		gateway:      gateway,
		pages:        pages,
		activity:     activityOrNop(activity),
		identity:     identity,
		numQuestions: numQuestions,
		validate:     validatorOrDefault(validate),
		logger:       logger.With().Str("component", "exam_service").Logger(),
		tracer:       otel.Tracer("github.com/noah-isme/gema-tutor-web/internal/service/exam"),
	}
}

// Mount loads the page and, while idle, refreshes the quiz history.
func (s *examService) Mount(ctx context.Context, sessionID string) (ExamView, error) {
	release, locked, err := s.pages.tryLock(ctx, sessionID, keyExam)
	if err != nil {
		return ExamView{}, err
	}
	if locked {
		defer release()
	}

	view, err := s.current(ctx, sessionID)
	if err != nil || !locked {
		return view, err
	}

	view.Page.Interrupt()
	if view.Page.Current() != models.ExamIdle {
		return view, nil
	}

	history, err := s.gateway.QuizHistory(ctx, s.identity.student())
	if err != nil {
		s.logger.Warn().Err(err).Str("session_id", sessionID).Msg("load quiz history")
		view.HistoryError = failureMessage(err)
		return view, nil
	}
	view.Page.History = history
	if err := s.pages.save(ctx, sessionID, keyExam, view.Page); err != nil {
		return ExamView{}, err
	}
	return view, nil
}

func (s *examService) Generate(ctx context.Context, sessionID, topic string) (ExamView, error) {
	ctx, span := s.tracer.Start(ctx, "exam.generate")
	defer span.End()

	form := dto.QuizGenerateForm{Topic: strings.TrimSpace(topic)}
	if err := s.validate.StructCtx(ctx, form); err != nil {
		observability.PageActions().WithLabelValues("exam", "generate", "invalid").Inc()
		view, loadErr := s.current(ctx, sessionID)
		if loadErr != nil {
			return ExamView{}, loadErr
		}
		return view, fromValidator(err, "Please use a shorter topic.")
	}

	release, err := s.pages.lock(ctx, sessionID, keyExam)
	if err != nil {
		return s.busy(ctx, sessionID, "generate", err)
	}
	defer release()

	view, err := s.current(ctx, sessionID)
	if err != nil {
		return ExamView{}, err
	}
	page := &view.Page
	page.Interrupt()

	resolved := resolveTopic(form.Topic, view.App)
	span.SetAttributes(attribute.String("exam.topic", resolved), attribute.Int("exam.num_questions", s.numQuestions))
	if err := page.BeginGenerate(resolved, s.pages.now()); err != nil {
		return view, err
	}
	if err := s.pages.save(ctx, sessionID, keyExam, *page); err != nil {
		return ExamView{}, err
	}

	quiz, err := s.gateway.GenerateQuiz(ctx, dto.QuizRequest{
		Topic:        resolved,
		FileID:       view.App.FileID(),
		NumQuestions: s.numQuestions,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "generate failed")
		observability.PageActions().WithLabelValues("exam", "generate", "error").Inc()
		s.logger.Warn().Err(err).Str("session_id", sessionID).Msg("quiz generation failed")

		page.FailGenerate("Failed to generate quiz: " + failureMessage(err))
		if saveErr := s.pages.save(ctx, sessionID, keyExam, *page); saveErr != nil {
			return ExamView{}, saveErr
		}
		return view, backendFailure(err)
	}
	if len(quiz.Questions) == 0 {
		page.FailGenerate("The tutor returned a quiz without questions. Please try another topic.")
		if err := s.pages.save(ctx, sessionID, keyExam, *page); err != nil {
			return ExamView{}, err
		}
		return view, backendFailure(errors.New("quiz has no questions"))
	}

	page.CompleteGenerate(quiz)
	if err := s.pages.save(ctx, sessionID, keyExam, *page); err != nil {
		return ExamView{}, err
	}

	observability.PageActions().WithLabelValues("exam", "generate", "success").Inc()
	s.activity.Publish(ctx, ActivityEvent{
		Kind:      ActivityQuizGenerated,
		SessionID: sessionID,
		UserID:    s.identity.student(),
		Attrs:     map[string]string{"quiz_id": itoa(int(quiz.QuizID)), "topic": resolved},
	})
	span.SetStatus(codes.Ok, "generated")
	return view, nil
}

func (s *examService) Select(ctx context.Context, sessionID string, questionID int, option string) (ExamView, error) {
	form := dto.QuizSelectForm{QuestionID: questionID, Option: option}
	if err := s.validate.StructCtx(ctx, form); err != nil {
		observability.PageActions().WithLabelValues("exam", "select", "invalid").Inc()
		view, loadErr := s.current(ctx, sessionID)
		if loadErr != nil {
			return ExamView{}, loadErr
		}
		return view, fromValidator(err, "Please choose an answer for that question.")
	}

	release, err := s.pages.lock(ctx, sessionID, keyExam)
	if err != nil {
		return s.busy(ctx, sessionID, "select", err)
	}
	defer release()

	view, err := s.current(ctx, sessionID)
	if err != nil {
		return ExamView{}, err
	}
	view.Page.Interrupt()

	if err := view.Page.Select(questionID, option); err != nil {
		observability.PageActions().WithLabelValues("exam", "select", "invalid").Inc()
		return view, examError(err)
	}
	if err := s.pages.save(ctx, sessionID, keyExam, view.Page); err != nil {
		return ExamView{}, err
	}
	return view, nil
}

func (s *examService) Submit(ctx context.Context, sessionID string) (ExamView, error) {
	ctx, span := s.tracer.Start(ctx, "exam.submit")
	defer span.End()

	release, err := s.pages.lock(ctx, sessionID, keyExam)
	if err != nil {
		return s.busy(ctx, sessionID, "submit", err)
	}
	defer release()

	view, err := s.current(ctx, sessionID)
	if err != nil {
		return ExamView{}, err
	}
	page := &view.Page
	page.Interrupt()

	answers, err := page.BeginSubmit(s.pages.now())
	if err != nil {
		observability.PageActions().WithLabelValues("exam", "submit", "invalid").Inc()
		return view, examError(err)
	}
	if err := s.pages.save(ctx, sessionID, keyExam, *page); err != nil {
		return ExamView{}, err
	}
	span.SetAttributes(attribute.Int64("exam.quiz_id", page.Quiz.QuizID), attribute.Int("exam.answers", len(answers)))

	result, err := s.gateway.SubmitQuiz(ctx, dto.QuizSubmission{
		UserID:  s.identity.student(),
		QuizID:  page.Quiz.QuizID,
		Answers: answers,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "submit failed")
		observability.PageActions().WithLabelValues("exam", "submit", "error").Inc()
		s.logger.Warn().Err(err).Str("session_id", sessionID).Msg("quiz submission failed")

		page.FailSubmit("Failed to submit quiz: " + failureMessage(err))
		if saveErr := s.pages.save(ctx, sessionID, keyExam, *page); saveErr != nil {
			return ExamView{}, saveErr
		}
		return view, backendFailure(err)
	}

	page.CompleteSubmit(result)
	if err := s.pages.save(ctx, sessionID, keyExam, *page); err != nil {
		return ExamView{}, err
	}

	observability.PageActions().WithLabelValues("exam", "submit", "success").Inc()
	s.activity.Publish(ctx, ActivityEvent{
		Kind:      ActivityQuizGraded,
		SessionID: sessionID,
		UserID:    s.identity.student(),
		Attrs: map[string]string{
			"quiz_id":           itoa(int(result.QuizID)),
			"percentage":        result.Percentage,
			"performance_level": result.PerformanceLevel,
		},
	})
	span.SetStatus(codes.Ok, "graded")
	return view, nil
}

func (s *examService) StartOver(ctx context.Context, sessionID string) (ExamView, error) {
	release, err := s.pages.lock(ctx, sessionID, keyExam)
	if err != nil {
		return s.busy(ctx, sessionID, "start_over", err)
	}
	defer release()

	view, err := s.current(ctx, sessionID)
	if err != nil {
		return ExamView{}, err
	}
	view.Page.Interrupt()
	if err := view.Page.StartOver(); err != nil {
		return view, err
	}
	if err := s.pages.save(ctx, sessionID, keyExam, view.Page); err != nil {
		return ExamView{}, err
	}
	return view, nil
}

func (s *examService) busy(ctx context.Context, sessionID, action string, err error) (ExamView, error) {
	if !errors.Is(err, ErrActionInFlight) {
		return ExamView{}, err
	}
	observability.PageActions().WithLabelValues("exam", action, "busy").Inc()
	view, loadErr := s.current(ctx, sessionID)
	if loadErr != nil {
		return ExamView{}, loadErr
	}
	return view, err
}

func (s *examService) current(ctx context.Context, sessionID string) (ExamView, error) {
	var view ExamView
	if err := s.pages.load(ctx, sessionID, keyExam, &view.Page); err != nil {
		return ExamView{}, err
	}
	app, err := s.pages.AppState(ctx, sessionID)
	if err != nil {
		return ExamView{}, err
	}
	view.App = app
	return view, nil
}

func resolveTopic(topic string, app models.AppState) string {
	if trimmed := strings.TrimSpace(topic); trimmed != "" {
		return trimmed
	}
	if app.Topic != "" {
		return app.Topic
	}
	return DefaultQuizTopic
}

func examError(err error) error {
	switch {
	case errors.Is(err, models.ErrNoAnswers):
		return &ValidationError{Message: "Please answer at least one question before submitting.", Cause: err}
	case errors.Is(err, models.ErrUnknownQuestion), errors.Is(err, models.ErrUnknownOption):
		return &ValidationError{Message: "That choice does not belong to this quiz.", Cause: err}
	case errors.Is(err, models.ErrInvalidTransition):
		return &ValidationError{Message: "This quiz can no longer be changed.", Cause: err}
	}
	return err
}
