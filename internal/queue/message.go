package queue

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
)

// MessageVersion is the current payload version.
const MessageVersion = 1

// Message kinds.
const (
	KindExtraction = "extraction"
	KindComparison = "comparison"
)

var (
	ErrUnknownKind  = errors.New("unknown message kind")
	ErrMissingField = errors.New("missing message field")
)

// Message is the payload exchanged between the API and the workers.
// Extraction messages carry the file to extract; comparison messages only the job and analysis.
type Message struct {
	Kind        string `json:"kind"`
	JobID       string `json:"jobId"`
	AnalysisID  string `json:"analysisId"`
	FileID      string `json:"fileId,omitempty"`
	FileType    string `json:"fileType,omitempty"`
	StoragePath string `json:"storagePath,omitempty"`
	StorageURL  string `json:"storageUrl,omitempty"`
	RequestID   string `json:"requestId,omitempty"`
	EnqueuedAt  string `json:"enqueuedAt"`
	Version     int    `json:"version"`
}

// Validate checks the fields required by the message kind.
func (m Message) Validate() error {
	switch m.Kind {
	case KindExtraction:
		if err := required(map[string]string{
			"jobId":      m.JobID,
			"analysisId": m.AnalysisID,
			"fileId":     m.FileID,
			"fileType":   m.FileType,
		}); err != nil {
			return err
		}
	case KindComparison:
		if err := required(map[string]string{
			"jobId":      m.JobID,
			"analysisId": m.AnalysisID,
		}); err != nil {
			return err
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownKind, m.Kind)
	}
	return nil
}

func required(fields map[string]string) error {
	var missing []string
	for name, value := range fields {
		if strings.TrimSpace(value) == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	sort.Strings(missing)
	return fmt.Errorf("%w: %s", ErrMissingField, strings.Join(missing, ", "))
}

// EncodeMessage returns the JSON representation of a message.
func EncodeMessage(msg Message) ([]byte, error) {
	return json.Marshal(msg)
}

// DecodeMessage parses a JSON payload into a Message.
func DecodeMessage(payload []byte) (Message, error) {
	var msg Message
	if err := json.Unmarshal(payload, &msg); err != nil {
		return Message{}, err
	}
	return msg, nil
}
