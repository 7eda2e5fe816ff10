package dto

// Performance levels computed by the backend.
const (
	LevelAdvanced   = "advanced"
	LevelAverage    = "average"
	LevelStruggling = "struggling"
)

// Recommendations is the reply of GET /api/learning/recommendations/{user_id}.
type Recommendations struct {
	PerformanceLevel string   `json:"performance_level"`
	AvgScore         float64  `json:"avg_score"`
	Recommendations  []string `json:"recommendations"`
	NextTopics       []string `json:"next_topics"`
}

// IsEmpty reports whether the payload carries nothing worth rendering.
func (r Recommendations) IsEmpty() bool {
	return r.PerformanceLevel == "" && len(r.Recommendations) == 0 && len(r.NextTopics) == 0
}

// LessonRequest is the body of POST /api/learning/lesson.
type LessonRequest struct {
	UserID string `json:"user_id"`
	// Topic is optional; the backend falls back to general course content.
	Topic string `json:"topic,omitempty"`
}

// Lesson is the reply of POST /api/learning/lesson.
type Lesson struct {
	Topic            string  `json:"topic"`
	PerformanceLevel string  `json:"performance_level"`
	AvgScore         float64 `json:"avg_score"`
	Lesson           string  `json:"lesson"`
}

// LessonForm is posted by the adaptive learning page.
type LessonForm struct {
	Topic string `form:"topic" validate:"max=200"`
}

// LoginForm is posted by the login page.
type LoginForm struct {
	Email    string `form:"email" validate:"required,email"`
	Password string `form:"password" validate:"required,min=4"`
}
