package analyses

import "time"

// Analysis statuses, in pipeline order.
const (
	StatusProcessingFiles = "processing_files"
	StatusFilesUploaded   = "files_uploaded"
	StatusExtracting      = "extracting_data"
	StatusAnalyzing       = "analyzing_data"
	StatusReady           = "ready"
	StatusFailed          = "failed"
)

// Analysis tracks one tz/passport pair through the pipeline.
type Analysis struct {
	ID        string    `json:"id"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// StoredRow is a persisted comparison row. LLMResult is the model verdict;
// UserResult starts true and is owned by reviewers.
type StoredRow struct {
	ID             string  `json:"id"`
	AnalysisID     string  `json:"analysisId"`
	Position       int     `json:"position"`
	Characteristic string  `json:"characteristic"`
	TZValue        *string `json:"tzValue"`
	PassportValue  *string `json:"passportValue"`
	TZQuote        *string `json:"tzQuote"`
	PassportQuote  *string `json:"passportQuote"`
	LLMResult      bool    `json:"llmResult"`
	UserResult     bool    `json:"userResult"`
	Note           *string `json:"note"`
}

func validStatus(status string) bool {
	switch status {
	case StatusProcessingFiles, StatusFilesUploaded, StatusExtracting, StatusAnalyzing, StatusReady, StatusFailed:
		return true
	default:
		return false
	}
}
