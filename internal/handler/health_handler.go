package handler

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/gema-tutor-web/internal/config"
	"github.com/noah-isme/gema-tutor-web/internal/utils"
)

// HealthResponse represents the payload returned by the health endpoint.
type HealthResponse struct {
	Status      string    `json:"status"`
	Timestamp   time.Time `json:"timestamp"`
	Service     string    `json:"service"`
	Environment string    `json:"environment"`
	Backend     string    `json:"backend"`
	Sessions    string    `json:"sessions"`
}

// HealthCheck reports liveness of the web front end itself. The tutoring
// backend is not contacted; use the doctor command for that.
func HealthCheck(cfg config.Config) fiber.Handler {
	sessions := "memory"
	if cfg.RedisURL != "" {
		sessions = "redis"
	}

	return func(c *fiber.Ctx) error {
		payload := HealthResponse{
			Status:      "ok",
			Timestamp:   time.Now().UTC(),
			Service:     cfg.AppName,
			Environment: cfg.AppEnv,
			Backend:     cfg.BackendBaseURL,
			Sessions:    sessions,
		}

		return utils.SendSuccess(c, "service healthy", payload)
	}
}
