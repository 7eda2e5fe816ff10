package models_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gema-tutor-web/internal/dto"
	"github.com/noah-isme/gema-tutor-web/internal/models"
)

func newSolvedPage(t *testing.T) (*models.HomeworkPage, int) {
	t.Helper()
	page := &models.HomeworkPage{}
	page.AppendProblem("2x + 3 = 7", time.Now())
	index := page.AppendSolution(dto.HomeworkSolution{
		SessionID: 1,
		Hints:     []string{"isolate x", "subtract 3", "divide by 2"},
		Solution:  "x = 2",
	}, time.Now())
	return page, index
}

func TestHomeworkHintCursor(t *testing.T) {
	page, index := newSolvedPage(t)
	before := len(page.Messages)

	require.NoError(t, page.NextHint(index, time.Now()))
	require.NoError(t, page.NextHint(index, time.Now()))

	require.Len(t, page.Messages, before+2)
	require.Equal(t, "💡 Hint 1: isolate x", page.Messages[before].Content)
	require.Equal(t, "💡 Hint 2: subtract 3", page.Messages[before+1].Content)
	require.Equal(t, 2, page.Reveal(index).Cursor)
	require.True(t, page.HasMoreHints(index))

	shown, err := page.ShowSolution(index, time.Now())
	require.NoError(t, err)
	require.True(t, shown)
	require.Len(t, page.Messages, before+3)
	require.Equal(t, "✅ Complete Solution:\n\nx = 2", page.Messages[before+2].Content)
	require.Equal(t, 3, page.Reveal(index).Cursor)
	require.False(t, page.HasMoreHints(index))
	require.ErrorIs(t, page.NextHint(index, time.Now()), models.ErrHintsExhausted)
}

func TestHomeworkShowSolutionFromStartAppendsOnce(t *testing.T) {
	page, index := newSolvedPage(t)
	before := len(page.Messages)

	shown, err := page.ShowSolution(index, time.Now())
	require.NoError(t, err)
	require.True(t, shown)

	shown, err = page.ShowSolution(index, time.Now())
	require.NoError(t, err)
	require.False(t, shown)

	require.Len(t, page.Messages, before+1)
	require.Equal(t, 3, page.Reveal(index).Cursor)
}

func TestHomeworkCursorsAreIndependentPerMessage(t *testing.T) {
	page, first := newSolvedPage(t)
	page.AppendProblem("3y = 9", time.Now())
	second := page.AppendSolution(dto.HomeworkSolution{Hints: []string{"divide"}, Solution: "y = 3"}, time.Now())

	require.NoError(t, page.NextHint(first, time.Now()))
	require.Equal(t, 1, page.Reveal(first).Cursor)
	require.Equal(t, 0, page.Reveal(second).Cursor)

	require.NoError(t, page.NextHint(second, time.Now()))
	require.ErrorIs(t, page.NextHint(second, time.Now()), models.ErrHintsExhausted)
	require.ErrorIs(t, page.NextHint(0, time.Now()), models.ErrMessageNotFound)
	require.ErrorIs(t, page.NextHint(99, time.Now()), models.ErrMessageNotFound)
}

func TestHomeworkNewProblemKeepsHistory(t *testing.T) {
	page, index := newSolvedPage(t)
	page.History = []dto.HomeworkHistoryItem{{ID: 1, Problem: "2x + 3 = 7"}}
	err := page.NextHint(index, time.Now())
	require.NoError(t, err)

	page.NewProblem("x - 1 = 0")
	require.Empty(t, page.Messages)
	require.Empty(t, page.Reveals)
	require.Equal(t, "x - 1 = 0", page.Draft)
	require.Len(t, page.History, 1)
	require.False(t, page.HasMoreHints(index))
}
