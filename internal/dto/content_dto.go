package dto

import (
	"bytes"
	"encoding/json"
	"strings"
)

// UploadedFileRef is the opaque handle returned by the backend after an upload.
type UploadedFileRef struct {
	FileID           string `json:"file_id"`
	OriginalFilename string `json:"original_filename"`
	Size             int64  `json:"size,omitempty"`
}

// UnmarshalJSON accepts both `size` and the backend's `size_bytes`.
func (f *UploadedFileRef) UnmarshalJSON(data []byte) error {
	var raw struct {
		FileID           string `json:"file_id"`
		OriginalFilename string `json:"original_filename"`
		Size             *int64 `json:"size"`
		SizeBytes        *int64 `json:"size_bytes"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	f.FileID = raw.FileID
	f.OriginalFilename = raw.OriginalFilename
	f.Size = 0
	switch {
	case raw.Size != nil:
		f.Size = *raw.Size
	case raw.SizeBytes != nil:
		f.Size = *raw.SizeBytes
	}
	return nil
}

// UploadInput carries the multipart fields forwarded to the upload endpoint.
type UploadInput struct {
	FileName string
	Content  []byte
	UserID   string
	UserRole string
}

// UploadReceipt is what the teacher dashboard shows after an upload.
type UploadReceipt struct {
	File       UploadedFileRef `json:"file"`
	UserID     string          `json:"user_id"`
	UserRole   string          `json:"user_role"`
	DetectedAs string          `json:"detected_as"`
}

// SummarizeRequest is the summarize payload. Field set is part of the contract.
type SummarizeRequest struct {
	FileID    string `json:"file_id"`
	MaxLength int    `json:"max_length"`
}

// KeyPoint is either a plain statement or a term/explanation pair.
type KeyPoint struct {
	Term        string `json:"term,omitempty"`
	Explanation string `json:"explanation,omitempty"`
	Text        string `json:"text,omitempty"`
}

// UnmarshalJSON accepts a JSON string or a {term, explanation} object.
func (k *KeyPoint) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '"' {
		var text string
		if err := json.Unmarshal(trimmed, &text); err != nil {
			return err
		}
		*k = KeyPoint{Text: strings.TrimSpace(text)}
		return nil
	}

	var pair struct {
		Term        string `json:"term"`
		Explanation string `json:"explanation"`
		Text        string `json:"text"`
	}
	if err := json.Unmarshal(trimmed, &pair); err != nil {
		return err
	}
	*k = KeyPoint{
		Term:        strings.TrimSpace(pair.Term),
		Explanation: strings.TrimSpace(pair.Explanation),
		Text:        strings.TrimSpace(pair.Text),
	}
	return nil
}

// String renders the key point as a single bullet line.
func (k KeyPoint) String() string {
	switch {
	case k.Term != "" && k.Explanation != "":
		return k.Term + ": " + k.Explanation
	case k.Term != "":
		return k.Term
	case k.Text != "":
		return k.Text
	default:
		return k.Explanation
	}
}

// Label is the shortest meaningful form, used when deriving a topic.
func (k KeyPoint) Label() string {
	if k.Term != "" {
		return k.Term
	}
	return k.String()
}

// SummaryPayload is the wire shape of a summarize response. Older backends send
// `summary` as one string, newer ones `summary_paragraphs`.
type SummaryPayload struct {
	Topic             string     `json:"topic,omitempty"`
	Summary           string     `json:"summary,omitempty"`
	SummaryParagraphs []string   `json:"summary_paragraphs,omitempty"`
	KeyPoints         []KeyPoint `json:"key_points,omitempty"`
	FileID            string     `json:"file_id,omitempty"`
}

// Summary is the normalized form handed to rendering code.
type Summary struct {
	Topic      string     `json:"topic,omitempty"`
	Paragraphs []string   `json:"paragraphs"`
	KeyPoints  []KeyPoint `json:"key_points"`
	FileID     string     `json:"file_id,omitempty"`
}

// Normalize collapses both wire shapes into a Summary.
func (p SummaryPayload) Normalize() Summary {
	paragraphs := make([]string, 0, len(p.SummaryParagraphs))
	for _, paragraph := range p.SummaryParagraphs {
		if trimmed := strings.TrimSpace(paragraph); trimmed != "" {
			paragraphs = append(paragraphs, trimmed)
		}
	}
	if len(paragraphs) == 0 {
		paragraphs = splitParagraphs(p.Summary)
	}

	keyPoints := make([]KeyPoint, 0, len(p.KeyPoints))
	for _, kp := range p.KeyPoints {
		if kp.String() != "" {
			keyPoints = append(keyPoints, kp)
		}
	}

	return Summary{
		Topic:      strings.TrimSpace(p.Topic),
		Paragraphs: paragraphs,
		KeyPoints:  keyPoints,
		FileID:     p.FileID,
	}
}

// DisplayTopic is the heading shown above the summary.
func (s Summary) DisplayTopic() string {
	if s.Topic != "" {
		return s.Topic
	}
	return "Document Summary"
}

// KeyPointLines returns one bullet line per key point.
func (s Summary) KeyPointLines() []string {
	lines := make([]string, 0, len(s.KeyPoints))
	for _, kp := range s.KeyPoints {
		lines = append(lines, kp.String())
	}
	return lines
}

func splitParagraphs(text string) []string {
	normalized := strings.ReplaceAll(text, "\r\n", "\n")
	parts := strings.Split(normalized, "\n\n")
	paragraphs := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			paragraphs = append(paragraphs, trimmed)
		}
	}
	return paragraphs
}
