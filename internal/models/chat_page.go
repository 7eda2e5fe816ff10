package models

import (
	"time"

	"github.com/noah-isme/gema-tutor-web/internal/dto"
)

// ChatPage is the state of the chat tutoring page.
type ChatPage struct {
	Machine
	Messages []dto.ChatMessage `json:"messages"`
}

// ReplaceHistory swaps the transcript for the backend's copy.
func (p *ChatPage) ReplaceHistory(messages []dto.ChatMessage) {
	p.Messages = append([]dto.ChatMessage(nil), messages...)
}

// Append adds one message at the end of the transcript.
func (p *ChatPage) Append(role, content string, now time.Time) dto.ChatMessage {
	msg := dto.ChatMessage{Role: role, Content: content, Timestamp: dto.NewTimestamp(now)}
	p.Messages = append(p.Messages, msg)
	return msg
}
