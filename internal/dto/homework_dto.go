package dto

// HomeworkRequest is the body of POST /api/homework/solve.
type HomeworkRequest struct {
	UserID  string `json:"user_id"`
	Problem string `json:"problem"`
}

// HomeworkSolution is the reply of POST /api/homework/solve.
type HomeworkSolution struct {
	SessionID int64    `json:"session_id"`
	Hints     []string `json:"hints"`
	Solution  string   `json:"solution,omitempty"`
	HintCount int      `json:"hint_count,omitempty"`
}

// HomeworkHistoryItem is one entry of GET /api/homework/history.
type HomeworkHistoryItem struct {
	ID        int64     `json:"id"`
	Problem   string    `json:"problem"`
	HintCount int       `json:"hint_count"`
	Timestamp Timestamp `json:"timestamp"`
}

// HomeworkForm is posted by the homework page.
type HomeworkForm struct {
	Problem string `form:"problem" validate:"required,max=8000"`
}

// HomeworkNewProblemForm starts over, optionally prefilled from history.
type HomeworkNewProblemForm struct {
	Problem string `form:"problem" validate:"max=8000"`
}
