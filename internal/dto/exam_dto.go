package dto

// QuizRequest is the body of POST /api/exam/generate.
type QuizRequest struct {
	Topic        string `json:"topic"`
	FileID       string `json:"file_id,omitempty"`
	NumQuestions int    `json:"num_questions"`
}

// QuizQuestion is one generated question.
type QuizQuestion struct {
	ID          int      `json:"id"`
	Type        string   `json:"type,omitempty"`
	Question    string   `json:"question"`
	Options     []string `json:"options"`
	Explanation string   `json:"explanation,omitempty"`
}

// Quiz is the reply of POST /api/exam/generate.
type Quiz struct {
	QuizID         int64          `json:"quiz_id"`
	QuizTitle      string         `json:"quiz_title"`
	TotalQuestions int            `json:"total_questions"`
	Questions      []QuizQuestion `json:"questions"`
}

// HasQuestion reports whether id belongs to the quiz.
func (q Quiz) HasQuestion(id int) bool {
	for _, question := range q.Questions {
		if question.ID == id {
			return true
		}
	}
	return false
}

// QuizAnswer is one submitted answer.
type QuizAnswer struct {
	QuestionID int    `json:"question_id"`
	Answer     string `json:"answer"`
}

// QuizSubmission is the body of POST /api/exam/submit.
type QuizSubmission struct {
	UserID  string       `json:"user_id"`
	QuizID  int64        `json:"quiz_id"`
	Answers []QuizAnswer `json:"answers"`
}

// QuizResult is the reply of POST /api/exam/submit.
type QuizResult struct {
	QuizID           int64    `json:"quiz_id"`
	Score            float64  `json:"score"`
	CorrectAnswers   int      `json:"correct_answers"`
	TotalQuestions   int      `json:"total_questions"`
	Percentage       string   `json:"percentage"`
	PerformanceLevel string   `json:"performance_level,omitempty"`
	AvgScore         float64  `json:"avg_score,omitempty"`
	Recommendations  []string `json:"recommendations,omitempty"`
}

// QuizHistoryItem is one entry of GET /api/exam/history.
type QuizHistoryItem struct {
	ID             int64     `json:"id"`
	Score          float64   `json:"score"`
	TotalQuestions int       `json:"total_questions"`
	Percentage     string    `json:"percentage"`
	Timestamp      Timestamp `json:"timestamp"`
}

// QuizGenerateForm is posted by the exam page.
type QuizGenerateForm struct {
	Topic string `form:"topic" validate:"max=200"`
}

// QuizSelectForm records one option choice.
type QuizSelectForm struct {
	QuestionID int    `form:"question_id" validate:"required"`
	Option     string `form:"option" validate:"required"`
}
