package models

import (
	"math"
	"time"
)

// UploadStage narrows the loading phase of the upload page.
type UploadStage string

const (
	StageNone        UploadStage = ""
	StageUploading   UploadStage = "uploading"
	StageSummarizing UploadStage = "summarizing"
)

// UploadPage is the state of the student upload page.
type UploadPage struct {
	Machine
	Stage    UploadStage `json:"stage,omitempty"`
	FileName string      `json:"file_name,omitempty"`
	// Deadline is when the summarize request is cancelled.
	Deadline time.Time `json:"deadline,omitempty"`
	// CountdownFrom is the full summarize budget in seconds.
	CountdownFrom int `json:"countdown_from,omitempty"`
}

// BeginUpload starts the upload step.
func (p *UploadPage) BeginUpload(fileName string, now time.Time) error {
	if err := p.Start(now); err != nil {
		return err
	}
	p.Stage = StageUploading
	p.FileName = fileName
	p.Deadline = time.Time{}
	p.CountdownFrom = 0
	return nil
}

// BeginSummarize moves from uploading to summarizing with a hard deadline.
func (p *UploadPage) BeginSummarize(deadline time.Time, budget time.Duration) {
	p.Stage = StageSummarizing
	p.Deadline = deadline.UTC()
	p.CountdownFrom = int(math.Ceil(budget.Seconds()))
}

// Finish ends the flow successfully.
func (p *UploadPage) Finish(message string) {
	p.Succeed(message)
	p.clearProgress()
}

// Abort ends the flow with an error.
func (p *UploadPage) Abort(message string) {
	p.Fail(message)
	p.clearProgress()
}

// SecondsLeft is the countdown shown while summarizing, one tick per second.
func (p UploadPage) SecondsLeft(now time.Time) int {
	if !p.Busy() || p.Stage != StageSummarizing || p.Deadline.IsZero() {
		return 0
	}
	left := int(math.Ceil(p.Deadline.Sub(now).Seconds()))
	if left < 0 {
		return 0
	}
	if p.CountdownFrom > 0 && left > p.CountdownFrom {
		return p.CountdownFrom
	}
	return left
}

func (p *UploadPage) clearProgress() {
	p.Stage = StageNone
	p.Deadline = time.Time{}
	p.CountdownFrom = 0
}
