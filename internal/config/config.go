package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds runtime configuration values for the tutor web front end.
type Config struct {
	AppName          string
	AppEnv           string
	AppPort          string
	BackendBaseURL   string
	SummarizeTimeout time.Duration
	RedisURL         string
	SessionSecret    string
	SessionTTL       time.Duration
	SessionCookie    string
	NATSURL          string
	ChannelBase      string
	UploadMaxSizeMB  int
	SummaryMaxLength int
	ExamNumQuestions int
	StudentID        string
	TeacherID        string
	ActionLockTTL    time.Duration
	RateLimitMax     int
	RateLimitWindow  time.Duration
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// IsProduction reports whether the app runs in production mode.
func (c Config) IsProduction() bool {
	return strings.EqualFold(c.AppEnv, "production")
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("TUTOR")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "GEMA Tutor")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "3000")
	v.SetDefault("backend.base_url", "http://127.0.0.1:8000")
	v.SetDefault("backend.summarize_timeout", "60s")
	v.SetDefault("session.ttl", "24h")
	v.SetDefault("session.cookie", "tutor_session")
	v.SetDefault("channel.base", "tutor")
	v.SetDefault("upload.max_size_mb", 25)
	v.SetDefault("summary.max_length", 500)
	v.SetDefault("exam.num_questions", 5)
	v.SetDefault("identity.student_id", "student_demo")
	v.SetDefault("identity.teacher_id", "teacher_demo")
	v.SetDefault("action.lock_ttl", "2m")
	v.SetDefault("rate_limit.max", 30)
	v.SetDefault("rate_limit.window", "1m")

	summarizeTimeout, err := parseDuration(v, "backend.summarize_timeout")
	if err != nil {
		return Config{}, err
	}
	sessionTTL, err := parseDuration(v, "session.ttl")
	if err != nil {
		return Config{}, err
	}
	lockTTL, err := parseDuration(v, "action.lock_ttl")
	if err != nil {
		return Config{}, err
	}
	rateWindow, err := parseDuration(v, "rate_limit.window")
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		AppName:          v.GetString("app.name"),
		AppEnv:           v.GetString("app.env"),
		AppPort:          v.GetString("app.port"),
		BackendBaseURL:   strings.TrimRight(v.GetString("backend.base_url"), "/"),
		SummarizeTimeout: summarizeTimeout,
		RedisURL:         v.GetString("redis.url"),
		SessionSecret:    v.GetString("session.secret"),
		SessionTTL:       sessionTTL,
		SessionCookie:    v.GetString("session.cookie"),
		NATSURL:          v.GetString("nats.url"),
		ChannelBase:      v.GetString("channel.base"),
		UploadMaxSizeMB:  v.GetInt("upload.max_size_mb"),
		SummaryMaxLength: v.GetInt("summary.max_length"),
		ExamNumQuestions: v.GetInt("exam.num_questions"),
		StudentID:        v.GetString("identity.student_id"),
		TeacherID:        v.GetString("identity.teacher_id"),
		ActionLockTTL:    lockTTL,
		RateLimitMax:     v.GetInt("rate_limit.max"),
		RateLimitWindow:  rateWindow,
	}

	if cfg.SessionSecret == "" {
		if cfg.IsProduction() {
			return Config{}, fmt.Errorf("session secret must be provided")
		}
		cfg.SessionSecret = "development-session-secret"
	}

	if cfg.SummarizeTimeout <= 0 {
		return Config{}, fmt.Errorf("summarize timeout must be positive")
	}

	if cfg.UploadMaxSizeMB <= 0 {
		cfg.UploadMaxSizeMB = 25
	}

	if cfg.SummaryMaxLength <= 0 {
		cfg.SummaryMaxLength = 500
	}

	if cfg.ExamNumQuestions <= 0 {
		cfg.ExamNumQuestions = 5
	}

	// held locks are refreshed every third of the TTL
	if cfg.ActionLockTTL < minActionLockTTL {
		cfg.ActionLockTTL = minActionLockTTL
	}

	return cfg, nil
}

const minActionLockTTL = 3 * time.Second

func parseDuration(v *viper.Viper, key string) (time.Duration, error) {
	raw := strings.TrimSpace(v.GetString(key))
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
