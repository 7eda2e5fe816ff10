package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/gema-tutor-web/internal/dto"
)

// DefaultBaseURL is the address the tutoring backend listens on in development.
const DefaultBaseURL = "http://127.0.0.1:8000"

// Config defines the options for a backend client.
type Config struct {
	BaseURL    string
	HTTPClient *http.Client
	Logger     zerolog.Logger
	// Correlation returns the request correlation id to forward, if any.
	Correlation func(ctx context.Context) string
}

// Client talks to the tutoring backend. Every call is a single request: no
// retries, no caching. Deadlines come from the caller's context only.
type Client struct {
	baseURL     string
	http        *http.Client
	logger      zerolog.Logger
	tracer      trace.Tracer
	schemas     contractSchemas
	correlation func(ctx context.Context) string
}

// New builds a backend client.
func New(cfg Config) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		base = DefaultBaseURL
	}
	if _, err := url.ParseRequestURI(base); err != nil {
		return nil, fmt.Errorf("invalid backend base url: %w", err)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}

	schemas, err := compileSchemas()
	if err != nil {
		return nil, fmt.Errorf("compile contract schemas: %w", err)
	}

	return &Client{
		baseURL:     base,
		http:        httpClient,
		logger:      cfg.Logger.With().Str("component", "backend_client").Logger(),
		tracer:      otel.Tracer("github.com/noah-isme/gema-tutor-web/pkg/backend"),
		schemas:     schemas,
		correlation: cfg.Correlation,
	}, nil
}

// BaseURL returns the configured backend address.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Upload sends a file as multipart form data.
func (c *Client) Upload(ctx context.Context, input dto.UploadInput) (dto.UploadedFileRef, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile("file", filepath.Base(input.FileName))
	if err != nil {
		return dto.UploadedFileRef{}, err
	}
	if _, err := part.Write(input.Content); err != nil {
		return dto.UploadedFileRef{}, err
	}
	if input.UserID != "" {
		if err := writer.WriteField("user_id", input.UserID); err != nil {
			return dto.UploadedFileRef{}, err
		}
	}
	if input.UserRole != "" {
		if err := writer.WriteField("user_role", input.UserRole); err != nil {
			return dto.UploadedFileRef{}, err
		}
	}
	if err := writer.Close(); err != nil {
		return dto.UploadedFileRef{}, err
	}

	var ref dto.UploadedFileRef
	err = c.do(ctx, call{
		verb:        "Upload",
		endpoint:    "content_upload",
		method:      http.MethodPost,
		path:        "/api/content/upload",
		body:        body.Bytes(),
		contentType: writer.FormDataContentType(),
	}, &ref)
	if err != nil {
		return dto.UploadedFileRef{}, err
	}
	if ref.FileID == "" {
		return dto.UploadedFileRef{}, fmt.Errorf("%w: upload response has no file_id", ErrInvalidPayload)
	}
	return ref, nil
}

// Summarize requests a summary for an uploaded file and normalizes the reply.
func (c *Client) Summarize(ctx context.Context, req dto.SummarizeRequest) (dto.Summary, error) {
	var payload dto.SummaryPayload
	if err := c.postJSON(ctx, "Summarize", "content_summarize", "/api/content/summarize", req, &payload, c.schemas.summary); err != nil {
		return dto.Summary{}, err
	}
	summary := payload.Normalize()
	if summary.FileID == "" {
		summary.FileID = req.FileID
	}
	return summary, nil
}

// Chat sends one learner message.
func (c *Client) Chat(ctx context.Context, req dto.ChatRequest) (dto.ChatAnswer, error) {
	var answer dto.ChatAnswer
	err := c.postJSON(ctx, "Chat", "chat", "/api/chat", req, &answer, nil)
	return answer, err
}

// ChatHistory returns the stored conversation for a user, oldest first.
func (c *Client) ChatHistory(ctx context.Context, userID string) ([]dto.ChatMessage, error) {
	var messages []dto.ChatMessage
	err := c.getJSON(ctx, "Chat history", "chat_history", "/api/chat/history", url.Values{"user_id": {userID}}, &messages)
	return messages, err
}

// SolveHomework asks for progressive hints and a full solution.
func (c *Client) SolveHomework(ctx context.Context, req dto.HomeworkRequest) (dto.HomeworkSolution, error) {
	var solution dto.HomeworkSolution
	err := c.postJSON(ctx, "Homework solve", "homework_solve", "/api/homework/solve", req, &solution, nil)
	return solution, err
}

// HomeworkHistory lists previous homework sessions.
func (c *Client) HomeworkHistory(ctx context.Context, userID string) ([]dto.HomeworkHistoryItem, error) {
	var items []dto.HomeworkHistoryItem
	err := c.getJSON(ctx, "Homework history", "homework_history", "/api/homework/history", url.Values{"user_id": {userID}}, &items)
	return items, err
}

// GenerateQuiz creates a quiz from uploaded material.
func (c *Client) GenerateQuiz(ctx context.Context, req dto.QuizRequest) (dto.Quiz, error) {
	var quiz dto.Quiz
	if err := c.postJSON(ctx, "Quiz generation", "exam_generate", "/api/exam/generate", req, &quiz, c.schemas.quiz); err != nil {
		return dto.Quiz{}, err
	}
	if quiz.TotalQuestions == 0 {
		quiz.TotalQuestions = len(quiz.Questions)
	}
	return quiz, nil
}

// SubmitQuiz grades a set of answers.
func (c *Client) SubmitQuiz(ctx context.Context, req dto.QuizSubmission) (dto.QuizResult, error) {
	var result dto.QuizResult
	err := c.postJSON(ctx, "Quiz submission", "exam_submit", "/api/exam/submit", req, &result, nil)
	return result, err
}

// QuizHistory lists previous quiz attempts, newest first.
func (c *Client) QuizHistory(ctx context.Context, userID string) ([]dto.QuizHistoryItem, error) {
	var items []dto.QuizHistoryItem
	err := c.getJSON(ctx, "Quiz history", "exam_history", "/api/exam/history", url.Values{"user_id": {userID}}, &items)
	return items, err
}

// Recommendations fetches the adaptive learning profile for a user.
func (c *Client) Recommendations(ctx context.Context, userID string) (dto.Recommendations, error) {
	var recs dto.Recommendations
	path := "/api/learning/recommendations/" + url.PathEscape(userID)
	err := c.getJSON(ctx, "Recommendations", "learning_recommendations", path, nil, &recs)
	return recs, err
}

// Lesson generates a lesson tailored to the user's level.
func (c *Client) Lesson(ctx context.Context, req dto.LessonRequest) (dto.Lesson, error) {
	var lesson dto.Lesson
	err := c.postJSON(ctx, "Lesson", "learning_lesson", "/api/learning/lesson", req, &lesson, nil)
	return lesson, err
}

// PingResult describes one raw GET against the backend.
type PingResult struct {
	Path       string
	StatusCode int
	Latency    time.Duration
	Err        error
}

// OK reports whether the request reached the backend and got a 2xx.
func (p PingResult) OK() bool {
	return p.Err == nil && p.StatusCode >= 200 && p.StatusCode < 300
}

// Ping issues a GET and reports the outcome without decoding.
func (c *Client) Ping(ctx context.Context, path string) PingResult {
	result := PingResult{Path: path}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		result.Err = err
		return result
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	result.Latency = time.Since(start)
	if err != nil {
		result.Err = err
		return result
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	result.StatusCode = resp.StatusCode
	return result
}

type call struct {
	verb        string
	endpoint    string
	method      string
	path        string
	query       url.Values
	body        []byte
	contentType string
	schema      *jsonschema.Schema
}

func (c *Client) postJSON(ctx context.Context, verb, endpoint, path string, in, out interface{}, schema *jsonschema.Schema) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("encode %s request: %w", strings.ToLower(verb), err)
	}
	return c.do(ctx, call{
		verb:        verb,
		endpoint:    endpoint,
		method:      http.MethodPost,
		path:        path,
		body:        payload,
		contentType: "application/json",
		schema:      schema,
	}, out)
}

func (c *Client) getJSON(ctx context.Context, verb, endpoint, path string, query url.Values, out interface{}) error {
	return c.do(ctx, call{
		verb:     verb,
		endpoint: endpoint,
		method:   http.MethodGet,
		path:     path,
		query:    query,
	}, out)
}

func (c *Client) do(parent context.Context, cl call, out interface{}) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, span := c.tracer.Start(parent, "backend."+cl.endpoint, trace.WithAttributes(
		attribute.String("http.method", cl.method),
		attribute.String("backend.path", cl.path),
	))
	defer span.End()

	target := c.baseURL + cl.path
	if len(cl.query) > 0 {
		target += "?" + cl.query.Encode()
	}

	var reader io.Reader
	if cl.body != nil {
		reader = bytes.NewReader(cl.body)
	}
	req, err := http.NewRequestWithContext(ctx, cl.method, target, reader)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "build request failed")
		return err
	}
	req.Header.Set("Accept", "application/json")
	if cl.contentType != "" {
		req.Header.Set("Content-Type", cl.contentType)
	}

	logger := c.logger.With().Str("endpoint", cl.endpoint).Logger()
	if c.correlation != nil {
		if id := c.correlation(parent); id != "" {
			req.Header.Set("X-Correlation-ID", id)
			logger = logger.With().Str("correlation_id", id).Logger()
		}
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	duration := time.Since(start)
	callDuration.WithLabelValues(cl.endpoint).Observe(duration.Seconds())
	if err != nil {
		callFailures.WithLabelValues(cl.endpoint, "transport").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "transport failed")
		logger.Warn().Err(err).Dur("latency", duration).Msg("backend request failed")
		return err
	}
	defer resp.Body.Close()

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		callFailures.WithLabelValues(cl.endpoint, "read").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "read body failed")
		return err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		statusErr := &StatusError{Verb: cl.verb, StatusCode: resp.StatusCode, Body: string(raw)}
		callFailures.WithLabelValues(cl.endpoint, "status").Inc()
		span.RecordError(statusErr)
		span.SetStatus(codes.Error, resp.Status)
		logger.Warn().Int("status", resp.StatusCode).Dur("latency", duration).Msg("backend returned error status")
		return statusErr
	}

	if err := validatePayload(cl.schema, raw); err != nil {
		callFailures.WithLabelValues(cl.endpoint, "contract").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "contract violation")
		logger.Warn().Err(err).Msg("backend payload rejected")
		return err
	}

	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			callFailures.WithLabelValues(cl.endpoint, "decode").Inc()
			span.RecordError(err)
			span.SetStatus(codes.Error, "decode failed")
			return fmt.Errorf("%w: %v", ErrInvalidPayload, err)
		}
	}

	logger.Debug().Int("status", resp.StatusCode).Dur("latency", duration).Msg("backend request completed")
	span.SetStatus(codes.Ok, "completed")
	return nil
}
