package models

import (
	"errors"
	"fmt"
	"time"

	"github.com/noah-isme/gema-tutor-web/internal/dto"
)

var (
	// ErrMessageNotFound indicates the referenced message index does not exist.
	ErrMessageNotFound = errors.New("message not found")
	// ErrNoHints indicates the message carries no hints.
	ErrNoHints = errors.New("message has no hints")
	// ErrHintsExhausted indicates every hint has been revealed.
	ErrHintsExhausted = errors.New("no more hints available")
	// ErrNoSolution indicates the message carries no solution.
	ErrNoSolution = errors.New("message has no solution")
)

// HintReveal is the per-message hint cursor.
type HintReveal struct {
	Cursor        int  `json:"cursor"`
	SolutionShown bool `json:"solution_shown"`
}

// HomeworkPage is the state of the homework help page.
type HomeworkPage struct {
	Machine
	Messages []dto.ChatMessage         `json:"messages"`
	Reveals  map[int]HintReveal        `json:"reveals,omitempty"`
	History  []dto.HomeworkHistoryItem `json:"history,omitempty"`
	// HistoryError is set when the sidebar history could not be loaded.
	HistoryError string `json:"history_error,omitempty"`
	// Draft prefills the problem field after starting over.
	Draft string `json:"draft,omitempty"`
}

// NewProblem clears the transcript and every hint cursor. The history sidebar
// is kept.
func (p *HomeworkPage) NewProblem(draft string) {
	p.Machine.Reset()
	p.Messages = nil
	p.Reveals = nil
	p.Draft = draft
}

// AppendProblem records the learner's problem.
func (p *HomeworkPage) AppendProblem(problem string, now time.Time) {
	p.Draft = ""
	p.Messages = append(p.Messages, dto.ChatMessage{
		Role:      dto.RoleUser,
		Content:   problem,
		Timestamp: dto.NewTimestamp(now),
	})
}

// AppendSolution records a solve response. Its hint cursor starts at 0.
func (p *HomeworkPage) AppendSolution(solution dto.HomeworkSolution, now time.Time) int {
	hints := append([]string(nil), solution.Hints...)
	p.Messages = append(p.Messages, dto.ChatMessage{
		Role:      dto.RoleAI,
		Content:   fmt.Sprintf("I can help you with that! I've prepared %d hints to guide you through this problem.", len(hints)),
		Timestamp: dto.NewTimestamp(now),
		Hints:     hints,
		Solution:  solution.Solution,
	})
	index := len(p.Messages) - 1
	if p.Reveals == nil {
		p.Reveals = make(map[int]HintReveal)
	}
	p.Reveals[index] = HintReveal{}
	return index
}

// Reveal returns the cursor for the message at index.
func (p HomeworkPage) Reveal(index int) HintReveal {
	return p.Reveals[index]
}

// HasMoreHints reports whether "next hint" is still offered for index.
func (p HomeworkPage) HasMoreHints(index int) bool {
	if index < 0 || index >= len(p.Messages) {
		return false
	}
	reveal := p.Reveals[index]
	return !reveal.SolutionShown && reveal.Cursor < len(p.Messages[index].Hints)
}

// CanShowSolution reports whether "show solution" is still offered for index.
func (p HomeworkPage) CanShowSolution(index int) bool {
	if index < 0 || index >= len(p.Messages) {
		return false
	}
	return p.Messages[index].Solution != "" && !p.Reveals[index].SolutionShown
}

// NextHint appends the next hint of the message at index and advances its cursor.
func (p *HomeworkPage) NextHint(index int, now time.Time) error {
	msg, err := p.hintSource(index)
	if err != nil {
		return err
	}
	if len(msg.Hints) == 0 {
		return ErrNoHints
	}

	reveal := p.Reveals[index]
	if reveal.SolutionShown || reveal.Cursor >= len(msg.Hints) {
		return ErrHintsExhausted
	}

	p.Messages = append(p.Messages, dto.ChatMessage{
		Role:      dto.RoleAI,
		Content:   fmt.Sprintf("💡 Hint %d: %s", reveal.Cursor+1, msg.Hints[reveal.Cursor]),
		Timestamp: dto.NewTimestamp(now),
	})
	reveal.Cursor++
	p.setReveal(index, reveal)
	return nil
}

// ShowSolution appends the full solution once and moves the cursor past the last hint.
// It returns false when the solution was already shown.
func (p *HomeworkPage) ShowSolution(index int, now time.Time) (bool, error) {
	msg, err := p.hintSource(index)
	if err != nil {
		return false, err
	}
	if msg.Solution == "" {
		return false, ErrNoSolution
	}

	reveal := p.Reveals[index]
	if reveal.SolutionShown {
		return false, nil
	}

	p.Messages = append(p.Messages, dto.ChatMessage{
		Role:      dto.RoleAI,
		Content:   "✅ Complete Solution:\n\n" + msg.Solution,
		Timestamp: dto.NewTimestamp(now),
	})
	reveal.Cursor = len(msg.Hints)
	reveal.SolutionShown = true
	p.setReveal(index, reveal)
	return true, nil
}

func (p *HomeworkPage) hintSource(index int) (dto.ChatMessage, error) {
	if index < 0 || index >= len(p.Messages) {
		return dto.ChatMessage{}, ErrMessageNotFound
	}
	msg := p.Messages[index]
	if msg.Role != dto.RoleAI || (len(msg.Hints) == 0 && msg.Solution == "") {
		return dto.ChatMessage{}, ErrMessageNotFound
	}
	return msg, nil
}

func (p *HomeworkPage) setReveal(index int, reveal HintReveal) {
	if p.Reveals == nil {
		p.Reveals = make(map[int]HintReveal)
	}
	p.Reveals[index] = reveal
}
