package models

import (
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/noah-isme/gema-tutor-web/internal/dto"
)

var (
	// ErrNoAnswers indicates a submit was attempted before answering anything.
	ErrNoAnswers = errors.New("please answer at least one question before submitting")
	// ErrUnknownQuestion indicates a selection referenced a question outside the quiz.
	ErrUnknownQuestion = errors.New("question does not belong to this quiz")
	// ErrUnknownOption indicates a selection referenced an option the question does not offer.
	ErrUnknownOption = errors.New("option does not belong to this question")
	// ErrInvalidTransition indicates the action is not allowed in the current exam phase.
	ErrInvalidTransition = errors.New("action not allowed at this stage of the quiz")
)

// ExamPhase is the exam prep sub-machine.
type ExamPhase string

const (
	ExamIdle       ExamPhase = "idle"
	ExamGenerating ExamPhase = "generating"
	ExamAnswering  ExamPhase = "answering"
	ExamSubmitting ExamPhase = "submitting"
	ExamGraded     ExamPhase = "graded"
)

// ExamPage is the state of the exam prep page.
type ExamPage struct {
	Phase     ExamPhase             `json:"phase"`
	Message   string                `json:"message,omitempty"`
	Topic     string                `json:"topic,omitempty"`
	Quiz      *dto.Quiz             `json:"quiz,omitempty"`
	Answers   map[int]string        `json:"answers,omitempty"`
	Result    *dto.QuizResult       `json:"result,omitempty"`
	StartedAt time.Time             `json:"started_at,omitempty"`
	History   []dto.QuizHistoryItem `json:"history,omitempty"`
}

// Current returns the phase, treating the zero value as idle.
func (p ExamPage) Current() ExamPhase {
	if p.Phase == "" {
		return ExamIdle
	}
	return p.Phase
}

// Busy reports whether a generate or submit request is in flight.
func (p ExamPage) Busy() bool {
	phase := p.Current()
	return phase == ExamGenerating || phase == ExamSubmitting
}

// BeginGenerate starts quiz generation. It discards any previous quiz.
func (p *ExamPage) BeginGenerate(topic string, now time.Time) error {
	if p.Busy() {
		return ErrActionInFlight
	}
	p.Phase = ExamGenerating
	p.Message = ""
	p.Topic = topic
	p.Quiz = nil
	p.Answers = nil
	p.Result = nil
	p.StartedAt = now.UTC()
	return nil
}

// CompleteGenerate loads a quiz for answering.
func (p *ExamPage) CompleteGenerate(quiz dto.Quiz) {
	loaded := quiz
	p.Phase = ExamAnswering
	p.Message = ""
	p.Quiz = &loaded
	p.Answers = make(map[int]string)
	p.StartedAt = time.Time{}
}

// FailGenerate returns to idle with an error message.
func (p *ExamPage) FailGenerate(message string) {
	p.Phase = ExamIdle
	p.Message = message
	p.StartedAt = time.Time{}
}

// Select records the chosen option for a question, replacing any earlier choice.
func (p *ExamPage) Select(questionID int, option string) error {
	if p.Current() != ExamAnswering || p.Quiz == nil {
		return ErrInvalidTransition
	}
	question, ok := p.question(questionID)
	if !ok {
		return ErrUnknownQuestion
	}
	if len(question.Options) > 0 {
		matched, ok := matchOption(question.Options, option)
		if !ok {
			return ErrUnknownOption
		}
		option = matched
	}
	if p.Answers == nil {
		p.Answers = make(map[int]string)
	}
	p.Answers[questionID] = option
	return nil
}

// Selected returns the option chosen for a question.
func (p ExamPage) Selected(questionID int) string {
	return p.Answers[questionID]
}

// AnsweredCount is the number of questions with a selection.
func (p ExamPage) AnsweredCount() int {
	return len(p.Answers)
}

// BeginSubmit validates the answers and moves to submitting. Answers are
// returned ordered by question id. With no answers the page is left untouched.
func (p *ExamPage) BeginSubmit(now time.Time) ([]dto.QuizAnswer, error) {
	if p.Busy() {
		return nil, ErrActionInFlight
	}
	if p.Current() != ExamAnswering || p.Quiz == nil {
		return nil, ErrInvalidTransition
	}
	if len(p.Answers) == 0 {
		return nil, ErrNoAnswers
	}

	answers := make([]dto.QuizAnswer, 0, len(p.Answers))
	for id, answer := range p.Answers {
		answers = append(answers, dto.QuizAnswer{QuestionID: id, Answer: answer})
	}
	sort.Slice(answers, func(i, j int) bool { return answers[i].QuestionID < answers[j].QuestionID })

	p.Phase = ExamSubmitting
	p.Message = ""
	p.StartedAt = now.UTC()
	return answers, nil
}

// CompleteSubmit stores the grade. The quiz instance is now terminal.
func (p *ExamPage) CompleteSubmit(result dto.QuizResult) {
	graded := result
	p.Phase = ExamGraded
	p.Message = ""
	p.Result = &graded
	p.StartedAt = time.Time{}
}

// FailSubmit returns to answering with an error message; selections are kept.
func (p *ExamPage) FailSubmit(message string) {
	p.Phase = ExamAnswering
	p.Message = message
	p.StartedAt = time.Time{}
}

// Interrupt recovers from a generate or submit that never finished.
func (p *ExamPage) Interrupt() {
	const message = "The previous request was interrupted. Please try again."
	switch p.Current() {
	case ExamGenerating:
		p.FailGenerate(message)
	case ExamSubmitting:
		p.FailSubmit(message)
	}
}

// StartOver discards the quiz and returns to idle.
func (p *ExamPage) StartOver() error {
	if p.Busy() {
		return ErrActionInFlight
	}
	history := p.History
	*p = ExamPage{Phase: ExamIdle, History: history}
	return nil
}

func (p ExamPage) question(id int) (dto.QuizQuestion, bool) {
	for _, question := range p.Quiz.Questions {
		if question.ID == id {
			return question, true
		}
	}
	return dto.QuizQuestion{}, false
}

// matchOption returns the offered option equal to option, ignoring surrounding
// whitespace. The offered text is what gets stored.
func matchOption(options []string, option string) (string, bool) {
	for _, candidate := range options {
		if candidate == option || strings.TrimSpace(candidate) == strings.TrimSpace(option) {
			return candidate, true
		}
	}
	return "", false
}
