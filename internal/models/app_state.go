package models

import (
	"strings"

	"github.com/noah-isme/gema-tutor-web/internal/dto"
)

// FallbackTopic is used when neither a key point nor a file name is available.
const FallbackTopic = "Generated Topic"

// AppState is the cross-page state of one browser session.
type AppState struct {
	UploadedFile *dto.UploadedFileRef `json:"uploaded_file,omitempty"`
	Summary      *dto.Summary         `json:"summary,omitempty"`
	Topic        string               `json:"topic,omitempty"`
}

// SetUploadedFile records a new upload. Any summary and topic from a previous
// file are dropped.
func (s *AppState) SetUploadedFile(ref dto.UploadedFileRef) {
	file := ref
	s.UploadedFile = &file
	s.Summary = nil
	s.Topic = ""
}

// SetSummary stores a summary and derives the topic from it.
func (s *AppState) SetSummary(summary dto.Summary) {
	stored := summary
	s.Summary = &stored
	s.Topic = s.deriveTopic(summary)
}

// SetTopic overrides the derived topic.
func (s *AppState) SetTopic(topic string) {
	s.Topic = strings.TrimSpace(topic)
}

// FileID returns the current file id, if any.
func (s AppState) FileID() string {
	if s.UploadedFile == nil {
		return ""
	}
	return s.UploadedFile.FileID
}

// HasSummary reports whether a summary is available for display.
func (s AppState) HasSummary() bool {
	return s.Summary != nil
}

func (s AppState) deriveTopic(summary dto.Summary) string {
	if len(summary.KeyPoints) > 0 {
		if label := strings.TrimSpace(summary.KeyPoints[0].Label()); label != "" {
			return label
		}
	}
	if s.UploadedFile != nil {
		if name := strings.TrimSpace(s.UploadedFile.OriginalFilename); name != "" {
			return name
		}
	}
	return FallbackTopic
}
