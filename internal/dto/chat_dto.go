package dto

// Message roles shared by Chat and Homework Help transcripts.
const (
	RoleUser = "user"
	RoleAI   = "ai"
)

// ChatRequest is the body of POST /api/chat.
type ChatRequest struct {
	UserID  string `json:"user_id"`
	Message string `json:"message"`
}

// ChatAnswer is the reply of POST /api/chat.
type ChatAnswer struct {
	Answer string `json:"answer"`
}

// ChatMessage is one transcript entry. Entries are never mutated after append.
type ChatMessage struct {
	ID        int64     `json:"id,omitempty"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp Timestamp `json:"timestamp"`
	Hints     []string  `json:"hints,omitempty"`
	Solution  string    `json:"solution,omitempty"`
}

// FromUser reports whether the entry was authored by the learner.
func (m ChatMessage) FromUser() bool {
	return m.Role == RoleUser
}

// ChatSendForm is the form posted by the chat page and the websocket frame payload.
type ChatSendForm struct {
	Message string `json:"message" form:"message" validate:"required,max=4000"`
}

// ChatFrame is pushed to websocket clients.
type ChatFrame struct {
	Type    string        `json:"type"`
	Message *ChatMessage  `json:"message,omitempty"`
	Error   string        `json:"error,omitempty"`
	History []ChatMessage `json:"history,omitempty"`
}
