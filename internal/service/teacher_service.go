package service

import (
	"context"
	"errors"
	"mime/multipart"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/gema-tutor-web/internal/dto"
	"github.com/noah-isme/gema-tutor-web/internal/models"
	"github.com/noah-isme/gema-tutor-web/internal/observability"
)

// TeacherGateway uploads course material on behalf of the teacher.
type TeacherGateway interface {
	Upload(ctx context.Context, input dto.UploadInput) (dto.UploadedFileRef, error)
}

// TeacherService drives the teacher dashboard. It never reads or writes the
// shared student state.
type TeacherService interface {
	Page(ctx context.Context, sessionID string) (models.TeacherPage, error)
	Upload(ctx context.Context, sessionID string, file *multipart.FileHeader) (models.TeacherPage, error)
}

type teacherService struct {
	gateway   TeacherGateway
	pages     *SessionPages
	activity  ActivityPublisher
	checker   uploadChecker
	identity  Identity
	maxSizeMB int
	logger    zerolog.Logger
	tracer    trace.Tracer
}

// NewTeacherService constructs the teacher dashboard service.
func NewTeacherService(gateway TeacherGateway, pages *SessionPages, activity ActivityPublisher, identity Identity, maxSizeMB int, logger zerolog.Logger) TeacherService {
	if maxSizeMB <= 0 {
		maxSizeMB = 25
	}
	return &teacherService{
		gateway:   gateway,
		pages:     pages,
		activity:  activityOrNop(activity),
		checker:   newUploadChecker(maxSizeMB),
		identity:  identity,
		maxSizeMB: maxSizeMB,
		logger:    logger.With().Str("component", "teacher_service").Logger(),
		tracer:    otel.Tracer("github.com/noah-isme/gema-tutor-web/internal/service/teacher"),
	}
}

func (s *teacherService) Page(ctx context.Context, sessionID string) (models.TeacherPage, error) {
	var page models.TeacherPage
	err := s.pages.load(ctx, sessionID, keyTeacher, &page)
	return page, err
}

func (s *teacherService) Upload(ctx context.Context, sessionID string, file *multipart.FileHeader) (models.TeacherPage, error) {
	ctx, span := s.tracer.Start(ctx, "teacher.upload")
	defer span.End()

	checked, err := s.checker.check(file)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "validation failed")
		observability.PageActions().WithLabelValues("teacher", "upload", "invalid").Inc()
		page, loadErr := s.Page(ctx, sessionID)
		if loadErr != nil {
			return models.TeacherPage{}, loadErr
		}
		return page, rejectUpload(err, s.maxSizeMB)
	}
	span.SetAttributes(
		attribute.String("upload.name", checked.Name),
		attribute.String("upload.mime", checked.MimeType),
	)

	release, err := s.pages.lock(ctx, sessionID, keyTeacher)
	if err != nil {
		if errors.Is(err, ErrActionInFlight) {
			observability.PageActions().WithLabelValues("teacher", "upload", "busy").Inc()
			page, loadErr := s.Page(ctx, sessionID)
			if loadErr != nil {
				return models.TeacherPage{}, loadErr
			}
			return page, err
		}
		return models.TeacherPage{}, err
	}
	defer release()

	page, err := s.Page(ctx, sessionID)
	if err != nil {
		return models.TeacherPage{}, err
	}
	page.Interrupt()
	if err := page.Start(s.pages.now()); err != nil {
		return page, err
	}
	page.Receipt = nil
	if err := s.pages.save(ctx, sessionID, keyTeacher, page); err != nil {
		return models.TeacherPage{}, err
	}

	teacherID := s.identity.teacher()
	ref, err := s.gateway.Upload(ctx, dto.UploadInput{
		FileName: checked.Name,
		Content:  checked.Content,
		UserID:   teacherID,
		UserRole: "teacher",
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "upload failed")
		observability.PageActions().WithLabelValues("teacher", "upload", "error").Inc()
		s.logger.Warn().Err(err).Str("session_id", sessionID).Msg("teacher upload failed")

		page.Fail("Upload failed: " + failureMessage(err))
		if saveErr := s.pages.save(ctx, sessionID, keyTeacher, page); saveErr != nil {
			return models.TeacherPage{}, saveErr
		}
		return page, backendFailure(err)
	}

	page.Receipt = &dto.UploadReceipt{
		File:       ref,
		UserID:     teacherID,
		UserRole:   "teacher",
		DetectedAs: checked.MimeType,
	}
	page.Succeed("File uploaded successfully.")
	if err := s.pages.save(ctx, sessionID, keyTeacher, page); err != nil {
		return models.TeacherPage{}, err
	}

	observability.PageActions().WithLabelValues("teacher", "upload", "success").Inc()
	s.activity.Publish(ctx, ActivityEvent{
		Kind:      ActivityTeacherUpload,
		SessionID: sessionID,
		UserID:    teacherID,
		Attrs:     map[string]string{"file_id": ref.FileID, "file_name": ref.OriginalFilename},
	})
	span.SetStatus(codes.Ok, "uploaded")
	return page, nil
}
