package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("TUTOR_APP_ENV", "development")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "http://127.0.0.1:8000", cfg.BackendBaseURL)
	require.Equal(t, 60*time.Second, cfg.SummarizeTimeout)
	require.Equal(t, 500, cfg.SummaryMaxLength)
	require.Equal(t, 5, cfg.ExamNumQuestions)
	require.Equal(t, "student_demo", cfg.StudentID)
	require.Equal(t, "teacher_demo", cfg.TeacherID)
	require.Equal(t, ":3000", cfg.HTTPAddress())
	require.NotEmpty(t, cfg.SessionSecret)
	require.Equal(t, 2*time.Minute, cfg.ActionLockTTL)
}

func TestLoadClampsActionLockTTL(t *testing.T) {
	t.Setenv("TUTOR_ACTION_LOCK_TTL", "1s")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, minActionLockTTL, cfg.ActionLockTTL)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("TUTOR_APP_PORT", ":9090")
	t.Setenv("TUTOR_BACKEND_BASE_URL", "http://backend:8000/")
	t.Setenv("TUTOR_BACKEND_SUMMARIZE_TIMEOUT", "90s")
	t.Setenv("TUTOR_EXAM_NUM_QUESTIONS", "10")
	t.Setenv("TUTOR_SESSION_SECRET", "s3cret")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, ":9090", cfg.HTTPAddress())
	require.Equal(t, "http://backend:8000", cfg.BackendBaseURL)
	require.Equal(t, 90*time.Second, cfg.SummarizeTimeout)
	require.Equal(t, 10, cfg.ExamNumQuestions)
	require.Equal(t, "s3cret", cfg.SessionSecret)
}

func TestLoadRejectsBadDuration(t *testing.T) {
	t.Setenv("TUTOR_SESSION_TTL", "forever")

	_, err := Load()
	require.Error(t, err)
}

func TestLoadRequiresSecretInProduction(t *testing.T) {
	t.Setenv("TUTOR_APP_ENV", "production")
	t.Setenv("TUTOR_SESSION_SECRET", "")

	_, err := Load()
	require.Error(t, err)
}
