package service

import (
	"context"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/gema-tutor-web/internal/dto"
	"github.com/noah-isme/gema-tutor-web/internal/models"
	"github.com/noah-isme/gema-tutor-web/internal/observability"
)

// HomeworkGateway is the slice of the backend used by homework help.
type HomeworkGateway interface {
	SolveHomework(ctx context.Context, req dto.HomeworkRequest) (dto.HomeworkSolution, error)
	HomeworkHistory(ctx context.Context, userID string) ([]dto.HomeworkHistoryItem, error)
}

// HomeworkService drives the homework help page.
type HomeworkService interface {
	Mount(ctx context.Context, sessionID string) (models.HomeworkPage, error)
	Solve(ctx context.Context, sessionID, problem string) (models.HomeworkPage, error)
	NextHint(ctx context.Context, sessionID string, messageIndex int) (models.HomeworkPage, error)
	ShowSolution(ctx context.Context, sessionID string, messageIndex int) (models.HomeworkPage, error)
	NewProblem(ctx context.Context, sessionID, prefill string) (models.HomeworkPage, error)
}

type homeworkService struct {
	gateway  HomeworkGateway
	pages    *SessionPages
	activity ActivityPublisher
	identity Identity
	validate *validator.Validate
	logger   zerolog.Logger
	tracer   trace.Tracer
}

var homeworkFormMessages = map[string]string{
	"required": "Please describe the problem you need help with.",
	"max":      "That problem is too long. Please shorten it to 8000 characters.",
}

// NewHomeworkService constructs the homework help service.
func NewHomeworkService(gateway HomeworkGateway, pages *SessionPages, activity ActivityPublisher, identity Identity, validate *validator.Validate, logger zerolog.Logger) HomeworkService {
	return &homeworkService{
		gateway:  gateway,
		pages:    pages,
		activity: activityOrNop(activity),
		identity: identity,
		validate: validatorOrDefault(validate),
		logger:   logger.With().Str("component", "homework_service").Logger(),
		tracer:   otel.Tracer("github.com/noah-isme/gema-tutor-web/internal/service/homework"),
	}
}

// Mount refreshes the history sidebar.
func (s *homeworkService) Mount(ctx context.Context, sessionID string) (models.HomeworkPage, error) {
	release, locked, err := s.pages.tryLock(ctx, sessionID, keyHomework)
	if err != nil {
		return models.HomeworkPage{}, err
	}
	if locked {
		defer release()
	}

	var page models.HomeworkPage
	if err := s.pages.load(ctx, sessionID, keyHomework, &page); err != nil {
		return models.HomeworkPage{}, err
	}
	if !locked {
		return page, nil
	}

	page.Interrupt()
	history, err := s.gateway.HomeworkHistory(ctx, s.identity.student())
	if err != nil {
		s.logger.Warn().Err(err).Str("session_id", sessionID).Msg("load homework history")
		page.HistoryError = failureMessage(err)
	} else {
		page.History = history
		page.HistoryError = ""
	}

	if err := s.pages.save(ctx, sessionID, keyHomework, page); err != nil {
		return models.HomeworkPage{}, err
	}
	return page, nil
}

func (s *homeworkService) Solve(ctx context.Context, sessionID, problem string) (models.HomeworkPage, error) {
	ctx, span := s.tracer.Start(ctx, "homework.solve")
	defer span.End()

	form := dto.HomeworkForm{Problem: strings.TrimSpace(problem)}
	if err := s.validate.StructCtx(ctx, form); err != nil {
		observability.PageActions().WithLabelValues("homework", "solve", "invalid").Inc()
		page, loadErr := s.current(ctx, sessionID)
		if loadErr != nil {
			return models.HomeworkPage{}, loadErr
		}
		return page, fromValidatorTags(err, homeworkFormMessages, "Please check your problem description.")
	}
	problem = form.Problem

	release, err := s.pages.lock(ctx, sessionID, keyHomework)
	if err != nil {
		return s.busy(ctx, sessionID, "solve", err)
	}
	defer release()

	var page models.HomeworkPage
	if err := s.pages.load(ctx, sessionID, keyHomework, &page); err != nil {
		return models.HomeworkPage{}, err
	}
	page.Interrupt()
	now := s.pages.now()
	if err := page.Start(now); err != nil {
		return models.HomeworkPage{}, err
	}
	page.AppendProblem(problem, now)
	if err := s.pages.save(ctx, sessionID, keyHomework, page); err != nil {
		return models.HomeworkPage{}, err
	}

	solution, err := s.gateway.SolveHomework(ctx, dto.HomeworkRequest{UserID: s.identity.student(), Problem: problem})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "solve failed")
		observability.PageActions().WithLabelValues("homework", "solve", "error").Inc()
		s.logger.Warn().Err(err).Str("session_id", sessionID).Msg("homework solve failed")

		page.Fail("Sorry, I couldn't process that: " + failureMessage(err))
		if saveErr := s.pages.save(ctx, sessionID, keyHomework, page); saveErr != nil {
			return models.HomeworkPage{}, saveErr
		}
		return page, backendFailure(err)
	}

	page.AppendSolution(solution, s.pages.now())
	page.Succeed("")
	if err := s.pages.save(ctx, sessionID, keyHomework, page); err != nil {
		return models.HomeworkPage{}, err
	}

	observability.PageActions().WithLabelValues("homework", "solve", "success").Inc()
	s.activity.Publish(ctx, ActivityEvent{
		Kind:      ActivityHomeworkSolved,
		SessionID: sessionID,
		UserID:    s.identity.student(),
		Attrs: map[string]string{
			"backend_session_id": itoa(int(solution.SessionID)),
			"hints":              itoa(len(solution.Hints)),
		},
	})
	span.SetStatus(codes.Ok, "solved")
	return page, nil
}

func (s *homeworkService) NextHint(ctx context.Context, sessionID string, messageIndex int) (models.HomeworkPage, error) {
	return s.reveal(ctx, sessionID, "next_hint", func(page *models.HomeworkPage) (string, error) {
		if err := page.NextHint(messageIndex, s.pages.now()); err != nil {
			return "", err
		}
		return ActivityHintRevealed, nil
	})
}

func (s *homeworkService) ShowSolution(ctx context.Context, sessionID string, messageIndex int) (models.HomeworkPage, error) {
	return s.reveal(ctx, sessionID, "show_solution", func(page *models.HomeworkPage) (string, error) {
		shown, err := page.ShowSolution(messageIndex, s.pages.now())
		if err != nil || !shown {
			return "", err
		}
		return ActivitySolutionShown, nil
	})
}

// NewProblem clears the transcript and hint cursors, leaving prefill in the
// problem field.
func (s *homeworkService) NewProblem(ctx context.Context, sessionID, prefill string) (models.HomeworkPage, error) {
	form := dto.HomeworkNewProblemForm{Problem: strings.TrimSpace(prefill)}
	if err := s.validate.StructCtx(ctx, form); err != nil {
		observability.PageActions().WithLabelValues("homework", "new_problem", "invalid").Inc()
		page, loadErr := s.current(ctx, sessionID)
		if loadErr != nil {
			return models.HomeworkPage{}, loadErr
		}
		return page, fromValidatorTags(err, homeworkFormMessages, "Please check your problem description.")
	}

	release, err := s.pages.lock(ctx, sessionID, keyHomework)
	if err != nil {
		return s.busy(ctx, sessionID, "new_problem", err)
	}
	defer release()

	page, err := s.current(ctx, sessionID)
	if err != nil {
		return models.HomeworkPage{}, err
	}
	page.NewProblem(form.Problem)
	if err := s.pages.save(ctx, sessionID, keyHomework, page); err != nil {
		return models.HomeworkPage{}, err
	}
	observability.PageActions().WithLabelValues("homework", "new_problem", "success").Inc()
	return page, nil
}

// reveal runs a local transcript mutation under the page lock.
func (s *homeworkService) reveal(ctx context.Context, sessionID, action string, apply func(page *models.HomeworkPage) (string, error)) (models.HomeworkPage, error) {
	release, err := s.pages.lock(ctx, sessionID, keyHomework)
	if err != nil {
		return s.busy(ctx, sessionID, action, err)
	}
	defer release()

	var page models.HomeworkPage
	if err := s.pages.load(ctx, sessionID, keyHomework, &page); err != nil {
		return models.HomeworkPage{}, err
	}
	page.Interrupt()

	kind, err := apply(&page)
	if err != nil {
		observability.PageActions().WithLabelValues("homework", action, "invalid").Inc()
		return page, revealError(err)
	}
	if kind == "" {
		return page, nil
	}

	if err := s.pages.save(ctx, sessionID, keyHomework, page); err != nil {
		return models.HomeworkPage{}, err
	}
	observability.PageActions().WithLabelValues("homework", action, "success").Inc()
	s.activity.Publish(ctx, ActivityEvent{Kind: kind, SessionID: sessionID, UserID: s.identity.student()})
	return page, nil
}

func (s *homeworkService) busy(ctx context.Context, sessionID, action string, err error) (models.HomeworkPage, error) {
	if !errors.Is(err, ErrActionInFlight) {
		return models.HomeworkPage{}, err
	}
	observability.PageActions().WithLabelValues("homework", action, "busy").Inc()
	page, loadErr := s.current(ctx, sessionID)
	if loadErr != nil {
		return models.HomeworkPage{}, loadErr
	}
	return page, err
}

func (s *homeworkService) current(ctx context.Context, sessionID string) (models.HomeworkPage, error) {
	var page models.HomeworkPage
	err := s.pages.load(ctx, sessionID, keyHomework, &page)
	return page, err
}

func revealError(err error) error {
	switch {
	case errors.Is(err, models.ErrHintsExhausted):
		return &ValidationError{Message: "All hints for this problem have been shown.", Cause: err}
	case errors.Is(err, models.ErrNoSolution):
		return &ValidationError{Message: "No solution is available for this problem.", Cause: err}
	case errors.Is(err, models.ErrNoHints), errors.Is(err, models.ErrMessageNotFound):
		return &ValidationError{Message: "That message has no hints to reveal.", Cause: err}
	}
	return err
}
