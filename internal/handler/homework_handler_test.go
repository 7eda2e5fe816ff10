package handler

import (
	"context"
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gema-tutor-web/internal/models"
	"github.com/noah-isme/gema-tutor-web/internal/service"
)

type stubHomeworkService struct {
	hints     []int
	solutions []int
	problems  []string
	drafts    []string
	err       error
}

func (s *stubHomeworkService) Mount(context.Context, string) (models.HomeworkPage, error) {
	return models.HomeworkPage{}, nil
}

func (s *stubHomeworkService) Solve(_ context.Context, _ string, problem string) (models.HomeworkPage, error) {
	s.problems = append(s.problems, problem)
	return models.HomeworkPage{}, s.err
}

func (s *stubHomeworkService) NextHint(_ context.Context, _ string, index int) (models.HomeworkPage, error) {
	s.hints = append(s.hints, index)
	return models.HomeworkPage{}, s.err
}

func (s *stubHomeworkService) ShowSolution(_ context.Context, _ string, index int) (models.HomeworkPage, error) {
	s.solutions = append(s.solutions, index)
	return models.HomeworkPage{}, s.err
}

func (s *stubHomeworkService) NewProblem(_ context.Context, _ string, prefill string) (models.HomeworkPage, error) {
	s.drafts = append(s.drafts, prefill)
	return models.HomeworkPage{Draft: prefill}, s.err
}

func TestHomeworkHandlerNewProblemPrefillsDraft(t *testing.T) {
	stub := &stubHomeworkService{}
	app := newTestApp(t)
	NewHomeworkHandler(stub, testLogger()).Register(app.Group("/homework"))

	resp, err := app.Test(formRequest(http.MethodPost, "/homework/new", url.Values{"problem": {"2x = 8"}}), -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, readBody(t, resp), ">2x = 8</textarea>")
	require.Equal(t, []string{"2x = 8"}, stub.drafts)
}

func TestHomeworkHandlerRoutesMessageIndex(t *testing.T) {
	stub := &stubHomeworkService{}
	app := newTestApp(t)
	NewHomeworkHandler(stub, testLogger()).Register(app.Group("/homework"))

	resp, err := app.Test(formRequest(http.MethodPost, "/homework/messages/3/hint", url.Values{}), -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = app.Test(formRequest(http.MethodPost, "/homework/messages/5/solution", url.Values{}), -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	require.Equal(t, []int{3}, stub.hints)
	require.Equal(t, []int{5}, stub.solutions)
}

func TestHomeworkHandlerBadIndexIsNotFound(t *testing.T) {
	stub := &stubHomeworkService{}
	app := newTestApp(t)
	NewHomeworkHandler(stub, testLogger()).Register(app.Group("/homework"))

	resp, err := app.Test(formRequest(http.MethodPost, "/homework/messages/abc/hint", url.Values{}), -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	require.Empty(t, stub.hints)
}

func TestHomeworkHandlerSolveValidation(t *testing.T) {
	stub := &stubHomeworkService{err: &service.ValidationError{Message: "Please describe your homework problem first."}}
	app := newTestApp(t)
	NewHomeworkHandler(stub, testLogger()).Register(app.Group("/homework"))

	resp, err := app.Test(formRequest(http.MethodPost, "/homework/solve", url.Values{"problem": {"  "}}), -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	require.Contains(t, readBody(t, resp), "describe your homework problem")
	require.Equal(t, []string{"  "}, stub.problems)
}

func TestHomeworkHandlerUnexpectedErrorRendersErrorPage(t *testing.T) {
	stub := &stubHomeworkService{err: context.Canceled}
	app := newTestApp(t)
	NewHomeworkHandler(stub, testLogger()).Register(app.Group("/homework"))

	resp, err := app.Test(formRequest(http.MethodPost, "/homework/solve", url.Values{"problem": {"2x=4"}}), -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	require.Contains(t, readBody(t, resp), "Something went wrong")
}
