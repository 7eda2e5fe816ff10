package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gema-tutor-web/internal/dto"
	"github.com/noah-isme/gema-tutor-web/internal/models"
	"github.com/noah-isme/gema-tutor-web/internal/service"
)

type stubLearningService struct {
	page   models.LearningPage
	topics []string
	err    error
}

func (s *stubLearningService) Mount(context.Context, string) (models.LearningPage, error) {
	return s.page, nil
}

func (s *stubLearningService) GenerateLesson(_ context.Context, _ string, topic string) (models.LearningPage, error) {
	s.topics = append(s.topics, topic)
	return s.page, s.err
}

func TestLearningHandlerStates(t *testing.T) {
	empty := models.LearningPage{}
	empty.NoData()
	failed := models.LearningPage{}
	failed.LoadFailed("Could not load your recommendations: backend unavailable")

	cases := []struct {
		name string
		page models.LearningPage
		want string
	}{
		{name: "empty", page: empty, want: "No learning data yet"},
		{name: "error", page: failed, want: "backend unavailable"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			app := newTestApp(t)
			NewLearningHandler(&stubLearningService{page: tc.page}, testLogger()).Register(app.Group("/adaptive"))

			resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/adaptive", nil), -1)
			require.NoError(t, err)
			require.Equal(t, http.StatusOK, resp.StatusCode)
			require.Contains(t, readBody(t, resp), tc.want)
		})
	}
}

func TestLearningHandlerLesson(t *testing.T) {
	page := models.LearningPage{}
	page.NoData()
	page.CompleteLesson(dto.Lesson{Topic: "Photosynthesis", Lesson: "Plants turn light into sugar.", PerformanceLevel: "beginner"})
	stub := &stubLearningService{page: page}
	app := newTestApp(t)
	NewLearningHandler(stub, testLogger()).Register(app.Group("/adaptive"))

	resp, err := app.Test(formRequest(http.MethodPost, "/adaptive/lesson", url.Values{"topic": {"Photosynthesis"}}), -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := readBody(t, resp)
	require.Contains(t, body, "Plants turn light into sugar.")
	require.Contains(t, body, "No learning data yet")
	require.Equal(t, []string{"Photosynthesis"}, stub.topics)
}

func TestLearningHandlerLessonBusy(t *testing.T) {
	stub := &stubLearningService{err: service.ErrActionInFlight}
	app := newTestApp(t)
	NewLearningHandler(stub, testLogger()).Register(app.Group("/adaptive"))

	resp, err := app.Test(formRequest(http.MethodPost, "/adaptive/lesson", url.Values{}), -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusConflict, resp.StatusCode)
}
