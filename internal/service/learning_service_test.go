package service

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gema-tutor-web/internal/dto"
	"github.com/noah-isme/gema-tutor-web/internal/models"
	"github.com/noah-isme/gema-tutor-web/pkg/backend"
)

func TestLearningServiceMountStates(t *testing.T) {
	cases := []struct {
		name  string
		recs  dto.Recommendations
		err   error
		state models.RecommendationState
	}{
		{
			name:  "ready",
			recs:  dto.Recommendations{PerformanceLevel: dto.LevelAverage, AvgScore: 72.5, Recommendations: []string{"Review chapter 2"}},
			state: models.RecommendationsReady,
		},
		{
			name:  "not found is empty",
			err:   &backend.StatusError{Verb: "Recommendations", StatusCode: http.StatusNotFound, Body: `{"detail":"User not found"}`},
			state: models.RecommendationsEmpty,
		},
		{
			name:  "empty payload",
			recs:  dto.Recommendations{},
			state: models.RecommendationsEmpty,
		},
		{
			name:  "server error",
			err:   &backend.StatusError{Verb: "Recommendations", StatusCode: http.StatusInternalServerError, Body: "boom"},
			state: models.RecommendationsError,
		},
		{
			name:  "transport error",
			err:   errors.New("connection reset"),
			state: models.RecommendationsError,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			fake := &fakeBackend{
				recommendations: func(ctx context.Context, userID string) (dto.Recommendations, error) {
					return tc.recs, tc.err
				},
			}
			svc := NewLearningService(fake, newTestPages(t), nil, Identity{}, nil, testLogger())

			page, err := svc.Mount(context.Background(), "s1")
			require.NoError(t, err)
			require.Equal(t, tc.state, page.State)
			if tc.state == models.RecommendationsError {
				require.NotEmpty(t, page.StateMessage)
			}
		})
	}
}

func TestLearningServiceLessonIndependentOfRecommendations(t *testing.T) {
	var got dto.LessonRequest
	fake := &fakeBackend{
		recommendations: func(ctx context.Context, userID string) (dto.Recommendations, error) {
			return dto.Recommendations{}, &backend.StatusError{Verb: "Recommendations", StatusCode: http.StatusNotFound}
		},
		lesson: func(ctx context.Context, req dto.LessonRequest) (dto.Lesson, error) {
			got = req
			return dto.Lesson{Topic: req.Topic, PerformanceLevel: dto.LevelStruggling, Lesson: "Start with the basics."}, nil
		},
	}
	activity := &recordingActivity{}
	svc := NewLearningService(fake, newTestPages(t), activity, Identity{}, nil, testLogger())
	ctx := context.Background()

	_, err := svc.Mount(ctx, "s1")
	require.NoError(t, err)

	page, err := svc.GenerateLesson(ctx, "s1", " Fractions ")
	require.NoError(t, err)
	require.Equal(t, dto.LessonRequest{UserID: DefaultStudentID, Topic: "Fractions"}, got)
	require.Equal(t, models.RecommendationsEmpty, page.State)
	require.Equal(t, models.PhaseSuccess, page.Lesson.Current())
	require.Equal(t, "Start with the basics.", page.LessonResult.Lesson)
	require.Equal(t, []string{ActivityLessonCreated}, activity.kinds())
}

func TestLearningServiceLessonFailure(t *testing.T) {
	fake := &fakeBackend{
		lesson: func(ctx context.Context, req dto.LessonRequest) (dto.Lesson, error) {
			return dto.Lesson{}, &backend.StatusError{
				Verb:       "Lesson",
				StatusCode: http.StatusBadRequest,
				Body:       `{"detail":"No course materials found. Please upload PDFs first."}`,
			}
		},
	}
	svc := NewLearningService(fake, newTestPages(t), nil, Identity{}, nil, testLogger())

	page, err := svc.GenerateLesson(context.Background(), "s1", "")
	require.ErrorIs(t, err, ErrBackendFailed)
	require.Equal(t, models.PhaseError, page.Lesson.Current())
	require.Contains(t, page.Lesson.Message, "No course materials found")
	require.Nil(t, page.LessonResult)
}

func TestLearningServiceRejectsOverlongTopic(t *testing.T) {
	fake := &fakeBackend{}
	svc := NewLearningService(fake, newTestPages(t), nil, Identity{}, nil, testLogger())

	page, err := svc.GenerateLesson(context.Background(), "s1", strings.Repeat("t", 201))
	require.ErrorIs(t, err, ErrValidation)
	require.Equal(t, models.PhaseIdle, page.Lesson.Current())
	require.Zero(t, fake.count("lesson"))
}
