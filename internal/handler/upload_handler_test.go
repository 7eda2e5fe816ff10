package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gema-tutor-web/internal/models"
	"github.com/noah-isme/gema-tutor-web/internal/service"
)

type stubUploadService struct {
	view   service.UploadView
	status service.UploadStatus
	err    error
	got    *multipart.FileHeader
}

func (s *stubUploadService) Page(context.Context, string) (service.UploadView, error) {
	return s.view, nil
}

func (s *stubUploadService) Status(context.Context, string) (service.UploadStatus, error) {
	return s.status, nil
}

func (s *stubUploadService) Upload(_ context.Context, _ string, file *multipart.FileHeader) (service.UploadView, error) {
	s.got = file
	return s.view, s.err
}

func multipartUpload(t *testing.T, name string, content []byte) *http.Request {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", name)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func TestUploadHandlerStatusCodes(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		flash  string
	}{
		{name: "success", status: http.StatusOK},
		{name: "too large", err: &service.ValidationError{Message: "The file is larger than 25 MB.", Cause: service.ErrUploadTooLarge}, status: http.StatusRequestEntityTooLarge, flash: "larger than 25 MB"},
		{name: "type", err: &service.ValidationError{Message: "This file type is not supported.", Cause: service.ErrUploadTypeNotAllowed}, status: http.StatusUnsupportedMediaType, flash: "not supported"},
		{name: "busy", err: service.ErrActionInFlight, status: http.StatusConflict, flash: "Still working"},
		{name: "backend", err: service.ErrBackendFailed, status: http.StatusBadGateway},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			stub := &stubUploadService{err: tc.err}
			app := newTestApp(t)
			NewUploadHandler(stub, 25, testLogger()).Register(app.Group("/upload"))

			resp, err := app.Test(multipartUpload(t, "notes.pdf", []byte("%PDF-1.4")), -1)
			require.NoError(t, err)
			require.Equal(t, tc.status, resp.StatusCode)
			body := readBody(t, resp)
			if tc.flash != "" {
				require.Contains(t, body, tc.flash)
			}
			require.NotNil(t, stub.got)
			require.Equal(t, "notes.pdf", stub.got.Filename)
		})
	}
}

func TestUploadHandlerRendersSummary(t *testing.T) {
	stub := &stubUploadService{}
	stub.view.App.Topic = "Cell"
	stub.view.Page.Phase = models.PhaseSuccess
	stub.view.Page.Message = "bio.pdf uploaded and summarized."
	app := newTestApp(t)
	NewUploadHandler(stub, 25, testLogger()).Register(app.Group("/upload"))

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/upload", nil), -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, readBody(t, resp), "bio.pdf uploaded and summarized.")
}

func TestUploadHandlerStatusJSON(t *testing.T) {
	stub := &stubUploadService{status: service.UploadStatus{
		Phase:       models.PhaseLoading,
		Stage:       models.StageSummarizing,
		SecondsLeft: 42,
	}}
	app := newTestApp(t)
	NewUploadHandler(stub, 25, testLogger()).Register(app.Group("/upload"))

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/upload/status", nil), -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var payload struct {
		Success bool                 `json:"success"`
		Data    service.UploadStatus `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	require.True(t, payload.Success)
	require.Equal(t, 42, payload.Data.SecondsLeft)
	require.Equal(t, models.StageSummarizing, payload.Data.Stage)
}
