package service

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/textproto"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gema-tutor-web/internal/dto"
	"github.com/noah-isme/gema-tutor-web/internal/repository"
)

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}

func newTestPages(t *testing.T) *SessionPages {
	t.Helper()
	now := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	return NewSessionPages(repository.NewMemorySessionStore(time.Hour), time.Minute).WithClock(func() time.Time {
		return now
	})
}

// fakeBackend implements every gateway; unset funcs fail the call.
type fakeBackend struct {
	mu    sync.Mutex
	calls map[string]int

	upload          func(ctx context.Context, input dto.UploadInput) (dto.UploadedFileRef, error)
	summarize       func(ctx context.Context, req dto.SummarizeRequest) (dto.Summary, error)
	chat            func(ctx context.Context, req dto.ChatRequest) (dto.ChatAnswer, error)
	chatHistory     func(ctx context.Context, userID string) ([]dto.ChatMessage, error)
	solve           func(ctx context.Context, req dto.HomeworkRequest) (dto.HomeworkSolution, error)
	homeworkHistory func(ctx context.Context, userID string) ([]dto.HomeworkHistoryItem, error)
	generateQuiz    func(ctx context.Context, req dto.QuizRequest) (dto.Quiz, error)
	submitQuiz      func(ctx context.Context, req dto.QuizSubmission) (dto.QuizResult, error)
	quizHistory     func(ctx context.Context, userID string) ([]dto.QuizHistoryItem, error)
	recommendations func(ctx context.Context, userID string) (dto.Recommendations, error)
	lesson          func(ctx context.Context, req dto.LessonRequest) (dto.Lesson, error)
}

func (f *fakeBackend) count(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

func (f *fakeBackend) hit(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.calls == nil {
		f.calls = make(map[string]int)
	}
	f.calls[name]++
}

func (f *fakeBackend) Upload(ctx context.Context, input dto.UploadInput) (dto.UploadedFileRef, error) {
	f.hit("upload")
	return f.upload(ctx, input)
}

func (f *fakeBackend) Summarize(ctx context.Context, req dto.SummarizeRequest) (dto.Summary, error) {
	f.hit("summarize")
	return f.summarize(ctx, req)
}

func (f *fakeBackend) Chat(ctx context.Context, req dto.ChatRequest) (dto.ChatAnswer, error) {
	f.hit("chat")
	return f.chat(ctx, req)
}

func (f *fakeBackend) ChatHistory(ctx context.Context, userID string) ([]dto.ChatMessage, error) {
	f.hit("chat_history")
	return f.chatHistory(ctx, userID)
}

func (f *fakeBackend) SolveHomework(ctx context.Context, req dto.HomeworkRequest) (dto.HomeworkSolution, error) {
	f.hit("solve")
	return f.solve(ctx, req)
}

func (f *fakeBackend) HomeworkHistory(ctx context.Context, userID string) ([]dto.HomeworkHistoryItem, error) {
	f.hit("homework_history")
	return f.homeworkHistory(ctx, userID)
}

func (f *fakeBackend) GenerateQuiz(ctx context.Context, req dto.QuizRequest) (dto.Quiz, error) {
	f.hit("generate_quiz")
	return f.generateQuiz(ctx, req)
}

func (f *fakeBackend) SubmitQuiz(ctx context.Context, req dto.QuizSubmission) (dto.QuizResult, error) {
	f.hit("submit_quiz")
	return f.submitQuiz(ctx, req)
}

func (f *fakeBackend) QuizHistory(ctx context.Context, userID string) ([]dto.QuizHistoryItem, error) {
	f.hit("quiz_history")
	if f.quizHistory == nil {
		return nil, nil
	}
	return f.quizHistory(ctx, userID)
}

func (f *fakeBackend) Recommendations(ctx context.Context, userID string) (dto.Recommendations, error) {
	f.hit("recommendations")
	return f.recommendations(ctx, userID)
}

func (f *fakeBackend) Lesson(ctx context.Context, req dto.LessonRequest) (dto.Lesson, error) {
	f.hit("lesson")
	return f.lesson(ctx, req)
}

type recordingActivity struct {
	mu     sync.Mutex
	events []ActivityEvent
}

func (r *recordingActivity) Publish(_ context.Context, event ActivityEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *recordingActivity) kinds() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	kinds := make([]string, 0, len(r.events))
	for _, event := range r.events {
		kinds = append(kinds, event.Kind)
	}
	return kinds
}

func buildFileHeader(t *testing.T, filename string, content []byte) *multipart.FileHeader {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreatePart(textproto.MIMEHeader{
		"Content-Disposition": {"form-data; name=\"file\"; filename=\"" + filename + "\""},
		"Content-Type":        {"application/octet-stream"},
	})
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	reader := multipart.NewReader(body, writer.Boundary())
	form, err := reader.ReadForm(int64(len(content) + 1024))
	require.NoError(t, err)
	files := form.File["file"]
	require.Len(t, files, 1)
	return files[0]
}

func samplePDF() []byte {
	return []byte("%PDF-1.4\n1 0 obj\n<< /Type /Catalog >>\nendobj\ntrailer\n<< /Root 1 0 R >>\n%%EOF\n")
}
