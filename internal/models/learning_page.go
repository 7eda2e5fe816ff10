package models

import (
	"time"

	"github.com/noah-isme/gema-tutor-web/internal/dto"
)

// RecommendationState is the outcome of loading recommendations on mount.
type RecommendationState string

const (
	RecommendationsLoading RecommendationState = "loading"
	RecommendationsReady   RecommendationState = "ready"
	// RecommendationsEmpty means the learner has no quiz data yet.
	RecommendationsEmpty RecommendationState = "empty"
	RecommendationsError RecommendationState = "error"
)

// LearningPage is the state of the adaptive learning page. Recommendations and
// lesson generation are independent.
type LearningPage struct {
	State           RecommendationState  `json:"state"`
	StateMessage    string               `json:"state_message,omitempty"`
	Recommendations *dto.Recommendations `json:"recommendations,omitempty"`
	Lesson          Machine              `json:"lesson"`
	LessonTopic     string               `json:"lesson_topic,omitempty"`
	LessonResult    *dto.Lesson          `json:"lesson_result,omitempty"`
}

// Loaded records fetched recommendations. An empty payload is the empty state.
func (p *LearningPage) Loaded(recs dto.Recommendations) {
	if recs.IsEmpty() {
		p.NoData()
		return
	}
	loaded := recs
	p.State = RecommendationsReady
	p.StateMessage = ""
	p.Recommendations = &loaded
}

// NoData moves to the empty (onboarding) state.
func (p *LearningPage) NoData() {
	p.State = RecommendationsEmpty
	p.StateMessage = ""
	p.Recommendations = nil
}

// LoadFailed moves to the error state.
func (p *LearningPage) LoadFailed(message string) {
	p.State = RecommendationsError
	p.StateMessage = message
	p.Recommendations = nil
}

// BeginLesson starts lesson generation for topic.
func (p *LearningPage) BeginLesson(topic string, now time.Time) error {
	if err := p.Lesson.Start(now); err != nil {
		return err
	}
	p.LessonTopic = topic
	p.LessonResult = nil
	return nil
}

// CompleteLesson stores the generated lesson.
func (p *LearningPage) CompleteLesson(lesson dto.Lesson) {
	generated := lesson
	p.LessonResult = &generated
	p.Lesson.Succeed("")
}

// FailLesson records a lesson generation error.
func (p *LearningPage) FailLesson(message string) {
	p.Lesson.Fail(message)
}
