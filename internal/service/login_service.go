package service

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-tutor-web/internal/dto"
)

// LoginNotice is shown after a well-formed login attempt.
const LoginNotice = "Sign-in is not available yet. Use the navigation to continue as the demo student or teacher."

// LoginService validates the login form. Authentication is not wired; no
// credentials ever leave this process.
type LoginService interface {
	Attempt(ctx context.Context, form dto.LoginForm) (string, error)
}

type loginService struct {
	validate *validator.Validate
	logger   zerolog.Logger
}

// NewLoginService constructs the login stub.
func NewLoginService(validate *validator.Validate, logger zerolog.Logger) LoginService {
	return &loginService{
		validate: validatorOrDefault(validate),
		logger:   logger.With().Str("component", "login_service").Logger(),
	}
}

func (s *loginService) Attempt(ctx context.Context, form dto.LoginForm) (string, error) {
	form.Email = strings.TrimSpace(form.Email)
	if err := s.validate.StructCtx(ctx, form); err != nil {
		return "", fromValidator(err, "Enter a valid email address and a password of at least 4 characters.")
	}
	s.logger.Info().Str("email_domain", emailDomain(form.Email)).Msg("login attempted while authentication is disabled")
	return LoginNotice, nil
}

func emailDomain(email string) string {
	if at := strings.LastIndex(email, "@"); at >= 0 {
		return email[at+1:]
	}
	return ""
}
