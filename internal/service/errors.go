package service

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/gema-tutor-web/internal/models"
	"github.com/noah-isme/gema-tutor-web/pkg/backend"
)

var (
	// ErrValidation marks input rejected before any backend request was sent.
	ErrValidation = errors.New("validation failed")
	// ErrActionInFlight indicates the same page action is already running for this session.
	ErrActionInFlight = models.ErrActionInFlight
	// ErrBackendFailed marks an action whose backend request failed. The page
	// state carries the message to show.
	ErrBackendFailed = errors.New("backend request failed")
)

// ValidationError carries a message meant for inline display.
type ValidationError struct {
	Message string
	Cause   error
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Is lets errors.Is match ErrValidation.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func (e *ValidationError) Unwrap() error {
	return e.Cause
}

func invalid(message string) error {
	return &ValidationError{Message: message}
}

// fromValidator turns validator errors into a single readable message.
func fromValidator(err error, fallback string) error {
	return fromValidatorTags(err, nil, fallback)
}

// fromValidatorTags picks the message registered for the first failed tag.
func fromValidatorTags(err error, messages map[string]string, fallback string) error {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		if message, ok := messages[validationErrors[0].Tag()]; ok {
			return invalid(message)
		}
		return invalid(fallback)
	}
	return err
}

func validatorOrDefault(validate *validator.Validate) *validator.Validate {
	if validate == nil {
		return validator.New(validator.WithRequiredStructEnabled())
	}
	return validate
}

func backendFailure(err error) error {
	return errors.Join(ErrBackendFailed, err)
}

// failureMessage converts a backend error into text for the page.
func failureMessage(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "The request took too long. Please try again."
	case errors.Is(err, backend.ErrInvalidPayload):
		return "The tutor returned an unexpected response. Please try again."
	case backend.IsStatus(err, http.StatusTooManyRequests):
		return "The tutor is busy right now. Please wait a moment and try again."
	}
	if msg := backend.ErrorMessage(err); msg != "" {
		return msg
	}
	return "Something went wrong. Please try again."
}
