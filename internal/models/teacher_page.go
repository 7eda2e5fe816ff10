package models

import "github.com/noah-isme/gema-tutor-web/internal/dto"

// TeacherPage is the state of the teacher dashboard. It never touches AppState.
type TeacherPage struct {
	Machine
	Receipt *dto.UploadReceipt `json:"receipt,omitempty"`
}
