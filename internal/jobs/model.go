package jobs

import (
	"encoding/json"
	"time"
)

// Kind distinguishes extraction jobs from comparison jobs.
type Kind string

const (
	KindExtraction Kind = "extraction"
	KindComparison Kind = "comparison"
)

const (
	StatusQueued    = "queued"
	StatusRunning   = "running"
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
	StatusRetrying  = "retrying"
)

// Job is a tracked unit of extraction or comparison work.
// Extraction jobs are unique per (analysis, file, file type); comparison jobs per analysis.
type Job struct {
	ID          string          `json:"id"`
	Kind        Kind            `json:"kind"`
	AnalysisID  string          `json:"analysisId"`
	FileID      string          `json:"fileId,omitempty"`
	FileType    string          `json:"fileType,omitempty"`
	Status      string          `json:"status"`
	Attempts    int             `json:"attempts"`
	LastError   *string         `json:"lastError,omitempty"`
	Result      json.RawMessage `json:"result,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
	CompletedAt *time.Time      `json:"completedAt,omitempty"`
	NotifiedAt  *time.Time      `json:"notifiedAt,omitempty"`
}

// Finished reports whether the job reached a terminal status.
func (j Job) Finished() bool {
	return j.Status == StatusSucceeded || j.Status == StatusFailed
}

// Claimable reports whether an attempt may start: the job is queued or retrying, or its
// running attempt was last touched before staleBefore.
func (j Job) Claimable(staleBefore time.Time) bool {
	switch j.Status {
	case StatusQueued, StatusRetrying:
		return true
	case StatusRunning:
		return j.UpdatedAt.Before(staleBefore)
	default:
		return false
	}
}

func validKind(kind Kind) bool {
	return kind == KindExtraction || kind == KindComparison
}
