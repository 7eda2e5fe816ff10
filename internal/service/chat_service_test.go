package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gema-tutor-web/internal/dto"
	"github.com/noah-isme/gema-tutor-web/internal/models"
)

func TestChatServiceMountReplacesHistory(t *testing.T) {
	history := []dto.ChatMessage{
		{ID: 1, Role: dto.RoleUser, Content: "What is osmosis?", Timestamp: dto.NewTimestamp(time.Now())},
		{ID: 2, Role: dto.RoleAI, Content: "Movement of water across a membrane."},
	}
	var gotUser string
	fake := &fakeBackend{
		chatHistory: func(ctx context.Context, userID string) ([]dto.ChatMessage, error) {
			gotUser = userID
			return history, nil
		},
		chat: func(ctx context.Context, req dto.ChatRequest) (dto.ChatAnswer, error) {
			return dto.ChatAnswer{Answer: "local"}, nil
		},
	}
	svc := NewChatService(fake, newTestPages(t), nil, Identity{}, nil, testLogger())

	_, err := svc.Send(context.Background(), "s1", "hello")
	require.NoError(t, err)

	view, err := svc.Mount(context.Background(), "s1")
	require.NoError(t, err)
	require.Equal(t, DefaultStudentID, gotUser)
	require.Equal(t, history, view.Page.Messages)
}

func TestChatServiceMountHistoryFailureKeepsTranscript(t *testing.T) {
	fake := &fakeBackend{
		chatHistory: func(ctx context.Context, userID string) ([]dto.ChatMessage, error) {
			return nil, errors.New("dial tcp: connection refused")
		},
	}
	svc := NewChatService(fake, newTestPages(t), nil, Identity{}, nil, testLogger())

	view, err := svc.Mount(context.Background(), "s1")
	require.NoError(t, err)
	require.Contains(t, view.HistoryError, "connection refused")
	require.Empty(t, view.Page.Messages)
}

func TestChatServiceSendAppendsBothMessages(t *testing.T) {
	var got dto.ChatRequest
	fake := &fakeBackend{
		chat: func(ctx context.Context, req dto.ChatRequest) (dto.ChatAnswer, error) {
			got = req
			return dto.ChatAnswer{Answer: "Photosynthesis converts light into chemical energy."}, nil
		},
	}
	activity := &recordingActivity{}
	svc := NewChatService(fake, newTestPages(t), activity, Identity{StudentID: "learner_1"}, nil, testLogger())

	view, err := svc.Send(context.Background(), "s1", "  explain photosynthesis ")
	require.NoError(t, err)
	require.Equal(t, dto.ChatRequest{UserID: "learner_1", Message: "explain photosynthesis"}, got)
	require.Len(t, view.Page.Messages, 2)
	require.Equal(t, dto.RoleUser, view.Page.Messages[0].Role)
	require.Equal(t, dto.RoleAI, view.Page.Messages[1].Role)
	require.Equal(t, models.PhaseSuccess, view.Page.Current())
	require.Equal(t, []string{ActivityChatted}, activity.kinds())
}

func TestChatServiceRejectsBlankMessage(t *testing.T) {
	fake := &fakeBackend{}
	svc := NewChatService(fake, newTestPages(t), nil, Identity{}, nil, testLogger())

	_, err := svc.Send(context.Background(), "s1", "   ")
	require.ErrorIs(t, err, ErrValidation)
	require.Zero(t, fake.count("chat"))
}

func TestChatServiceSendFailureKeepsUserMessage(t *testing.T) {
	fake := &fakeBackend{
		chat: func(ctx context.Context, req dto.ChatRequest) (dto.ChatAnswer, error) {
			return dto.ChatAnswer{}, errors.New("backend down")
		},
	}
	svc := NewChatService(fake, newTestPages(t), nil, Identity{}, nil, testLogger())

	view, err := svc.Send(context.Background(), "s1", "hi")
	require.ErrorIs(t, err, ErrBackendFailed)
	require.Len(t, view.Page.Messages, 1)
	require.Equal(t, models.PhaseError, view.Page.Current())
	require.Contains(t, view.Page.Message, "backend down")
}

func TestChatServiceRejectsOverlongMessage(t *testing.T) {
	fake := &fakeBackend{}
	svc := NewChatService(fake, newTestPages(t), nil, Identity{}, nil, testLogger())

	_, err := svc.Send(context.Background(), "s1", strings.Repeat("a", 4001))
	require.ErrorIs(t, err, ErrValidation)
	require.EqualError(t, err, "That message is too long.")
	require.Zero(t, fake.count("chat"))
}
