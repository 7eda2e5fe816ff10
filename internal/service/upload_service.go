package service

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/gema-tutor-web/internal/dto"
	"github.com/noah-isme/gema-tutor-web/internal/models"
	"github.com/noah-isme/gema-tutor-web/internal/observability"
	"github.com/noah-isme/gema-tutor-web/pkg/backend"
)

// ContentGateway is the slice of the backend used for uploads and summaries.
type ContentGateway interface {
	Upload(ctx context.Context, input dto.UploadInput) (dto.UploadedFileRef, error)
	Summarize(ctx context.Context, req dto.SummarizeRequest) (dto.Summary, error)
}

// UploadView is what the upload page renders.
type UploadView struct {
	Page        models.UploadPage
	App         models.AppState
	SecondsLeft int
}

// UploadStatus is polled by the upload page while a summary is being generated.
type UploadStatus struct {
	Phase       models.Phase       `json:"phase"`
	Stage       models.UploadStage `json:"stage,omitempty"`
	SecondsLeft int                `json:"seconds_left"`
	Message     string             `json:"message,omitempty"`
}

// UploadOptions configures the upload flow.
type UploadOptions struct {
	MaxSizeMB        int
	SummaryMaxLength int
	SummarizeTimeout time.Duration
	Identity         Identity
}

// UploadService chains upload and summarize for the student upload page.
type UploadService interface {
	Page(ctx context.Context, sessionID string) (UploadView, error)
	Status(ctx context.Context, sessionID string) (UploadStatus, error)
	Upload(ctx context.Context, sessionID string, file *multipart.FileHeader) (UploadView, error)
}

type uploadService struct {
	gateway  ContentGateway
	pages    *SessionPages
	activity ActivityPublisher
	checker  uploadChecker
	opts     UploadOptions
	logger   zerolog.Logger
	tracer   trace.Tracer
}

// NewUploadService constructs the upload service.
func NewUploadService(gateway ContentGateway, pages *SessionPages, activity ActivityPublisher, opts UploadOptions, logger zerolog.Logger) UploadService {
	if opts.SummaryMaxLength <= 0 {
		opts.SummaryMaxLength = 500
	}
	if opts.SummarizeTimeout <= 0 {
		opts.SummarizeTimeout = 60 * time.Second
	}
	if opts.MaxSizeMB <= 0 {
		opts.MaxSizeMB = 25
	}
	return &uploadService{
		gateway:  gateway,
		pages:    pages,
		activity: activityOrNop(activity),
		checker:  newUploadChecker(opts.MaxSizeMB),
		opts:     opts,
		logger:   logger.With().Str("component", "upload_service").Logger(),
		tracer:   otel.Tracer("github.com/noah-isme/gema-tutor-web/internal/service/upload"),
	}
}

func (s *uploadService) Page(ctx context.Context, sessionID string) (UploadView, error) {
	var page models.UploadPage
	if err := s.pages.load(ctx, sessionID, keyUpload, &page); err != nil {
		return UploadView{}, err
	}
	app, err := s.pages.AppState(ctx, sessionID)
	if err != nil {
		return UploadView{}, err
	}
	return UploadView{Page: page, App: app, SecondsLeft: page.SecondsLeft(s.pages.now())}, nil
}

func (s *uploadService) Status(ctx context.Context, sessionID string) (UploadStatus, error) {
	var page models.UploadPage
	if err := s.pages.load(ctx, sessionID, keyUpload, &page); err != nil {
		return UploadStatus{}, err
	}
	return UploadStatus{
		Phase:       page.Current(),
		Stage:       page.Stage,
		SecondsLeft: page.SecondsLeft(s.pages.now()),
		Message:     page.Message,
	}, nil
}

func (s *uploadService) Upload(ctx context.Context, sessionID string, file *multipart.FileHeader) (UploadView, error) {
	ctx, span := s.tracer.Start(ctx, "upload.summarize_chain")
	defer span.End()

	checked, err := s.checker.check(file)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "validation failed")
		observability.PageActions().WithLabelValues("upload", "upload", "invalid").Inc()
		view, loadErr := s.Page(ctx, sessionID)
		if loadErr != nil {
			return UploadView{}, loadErr
		}
		return view, rejectUpload(err, s.opts.MaxSizeMB)
	}
	span.SetAttributes(
		attribute.String("upload.name", checked.Name),
		attribute.String("upload.mime", checked.MimeType),
		attribute.Int("upload.size_bytes", len(checked.Content)),
	)

	release, err := s.pages.lock(ctx, sessionID, keyUpload)
	if err != nil {
		if errors.Is(err, ErrActionInFlight) {
			observability.PageActions().WithLabelValues("upload", "upload", "busy").Inc()
			view, loadErr := s.Page(ctx, sessionID)
			if loadErr != nil {
				return UploadView{}, loadErr
			}
			return view, err
		}
		return UploadView{}, err
	}
	defer release()

	var page models.UploadPage
	if err := s.pages.load(ctx, sessionID, keyUpload, &page); err != nil {
		return UploadView{}, err
	}
	page.Interrupt()
	if err := page.BeginUpload(checked.Name, s.pages.now()); err != nil {
		return UploadView{}, err
	}
	if err := s.pages.save(ctx, sessionID, keyUpload, page); err != nil {
		return UploadView{}, err
	}

	ref, err := s.gateway.Upload(ctx, dto.UploadInput{
		FileName: checked.Name,
		Content:  checked.Content,
		UserID:   s.opts.Identity.student(),
		UserRole: "student",
	})
	if err != nil {
		return s.abort(ctx, sessionID, &page, span, "upload", err, failureMessage(err))
	}

	app, err := s.pages.AppState(ctx, sessionID)
	if err != nil {
		return UploadView{}, err
	}
	app.SetUploadedFile(ref)
	if err := s.pages.saveAppState(ctx, sessionID, app); err != nil {
		return UploadView{}, err
	}
	s.activity.Publish(ctx, ActivityEvent{
		Kind:      ActivityUploaded,
		SessionID: sessionID,
		UserID:    s.opts.Identity.student(),
		Attrs:     map[string]string{"file_id": ref.FileID, "file_name": ref.OriginalFilename},
	})

	deadline := s.pages.now().Add(s.opts.SummarizeTimeout)
	page.BeginSummarize(deadline, s.opts.SummarizeTimeout)
	if err := s.pages.save(ctx, sessionID, keyUpload, page); err != nil {
		return UploadView{}, err
	}

	summarizeCtx, cancel := context.WithTimeout(ctx, s.opts.SummarizeTimeout)
	defer cancel()
	summary, err := s.gateway.Summarize(summarizeCtx, dto.SummarizeRequest{
		FileID:    ref.FileID,
		MaxLength: s.opts.SummaryMaxLength,
	})
	if err != nil {
		return s.abort(ctx, sessionID, &page, span, "summarize", err, s.summarizeFailure(err))
	}

	app.SetSummary(summary)
	if err := s.pages.saveAppState(ctx, sessionID, app); err != nil {
		return UploadView{}, err
	}
	page.Finish(fmt.Sprintf("%s uploaded and summarized.", ref.OriginalFilename))
	if err := s.pages.save(ctx, sessionID, keyUpload, page); err != nil {
		return UploadView{}, err
	}

	observability.PageActions().WithLabelValues("upload", "summarize", "success").Inc()
	s.activity.Publish(ctx, ActivityEvent{
		Kind:      ActivitySummarized,
		SessionID: sessionID,
		UserID:    s.opts.Identity.student(),
		Attrs:     map[string]string{"file_id": ref.FileID, "topic": app.Topic},
	})
	span.SetStatus(codes.Ok, "summarized")

	return UploadView{Page: page, App: app}, nil
}

func (s *uploadService) summarizeFailure(err error) string {
	switch {
	case backend.IsStatus(err, http.StatusRequestEntityTooLarge):
		return "The document is too large to summarize right now. Please wait a minute and try again, or upload a shorter file."
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Sprintf("Summarizing took longer than %d seconds and was cancelled. Please try again.", int(s.opts.SummarizeTimeout.Seconds()))
	}
	return "Summary failed: " + failureMessage(err)
}

func (s *uploadService) abort(ctx context.Context, sessionID string, page *models.UploadPage, span trace.Span, step string, cause error, message string) (UploadView, error) {
	span.RecordError(cause)
	span.SetStatus(codes.Error, step+" failed")
	observability.PageActions().WithLabelValues("upload", step, "error").Inc()
	s.logger.Warn().Err(cause).Str("session_id", sessionID).Str("step", step).Msg("upload flow failed")

	page.Abort(message)
	if err := s.pages.save(ctx, sessionID, keyUpload, *page); err != nil {
		return UploadView{}, err
	}
	app, err := s.pages.AppState(ctx, sessionID)
	if err != nil {
		return UploadView{}, err
	}
	return UploadView{Page: *page, App: app}, backendFailure(cause)
}
