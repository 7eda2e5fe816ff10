package middleware

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	sessionLocalKey = "session_id"
	sessionIssuer   = "gema-tutor-web"
)

// ErrInvalidSession indicates the session cookie could not be verified.
var ErrInvalidSession = errors.New("invalid session token")

// SessionConfig customises the session cookie.
type SessionConfig struct {
	Secret     string
	CookieName string
	TTL        time.Duration
	Secure     bool
	Now        func() time.Time
}

// Session binds every request to a browser session. The session id travels in
// an HS256-signed cookie; a missing or invalid cookie starts a new session.
func Session(cfg SessionConfig) fiber.Handler {
	if cfg.CookieName == "" {
		cfg.CookieName = "tutor_session"
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 24 * time.Hour
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	return func(c *fiber.Ctx) error {
		now := cfg.Now()
		sessionID, expiresAt, err := ParseSessionToken(cfg.Secret, c.Cookies(cfg.CookieName))
		refresh := err != nil || expiresAt.Sub(now) < cfg.TTL/2
		if err != nil {
			sessionID = uuid.NewString()
		}

		if refresh {
			token, err := IssueSessionToken(cfg.Secret, sessionID, now, cfg.TTL)
			if err != nil {
				return fmt.Errorf("issue session token: %w", err)
			}
			c.Cookie(&fiber.Cookie{
				Name:     cfg.CookieName,
				Value:    token,
				Path:     "/",
				Expires:  now.Add(cfg.TTL),
				HTTPOnly: true,
				Secure:   cfg.Secure,
				SameSite: fiber.CookieSameSiteLaxMode,
			})
		}

		c.Locals(sessionLocalKey, sessionID)
		return c.Next()
	}
}

// SessionID returns the session bound to the active request.
func SessionID(c *fiber.Ctx) string {
	if c == nil {
		return ""
	}
	if id, ok := c.Locals(sessionLocalKey).(string); ok {
		return id
	}
	return ""
}

// IssueSessionToken signs a session id.
func IssueSessionToken(secret, sessionID string, now time.Time, ttl time.Duration) (string, error) {
	claims := jwt.RegisteredClaims{
		Subject:   sessionID,
		Issuer:    sessionIssuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// ParseSessionToken verifies a session token and returns its session id and expiry.
func ParseSessionToken(secret, tokenString string) (string, time.Time, error) {
	tokenString = strings.TrimSpace(tokenString)
	if tokenString == "" {
		return "", time.Time{}, ErrInvalidSession
	}

	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithIssuer(sessionIssuer), jwt.WithExpirationRequired())
	if err != nil || !token.Valid {
		return "", time.Time{}, ErrInvalidSession
	}
	if _, err := uuid.Parse(claims.Subject); err != nil {
		return "", time.Time{}, ErrInvalidSession
	}

	return claims.Subject, claims.ExpiresAt.Time, nil
}
