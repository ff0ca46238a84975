package extraction

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Sergey0107/verification-products/internal/analyses"
	"github.com/Sergey0107/verification-products/internal/extractor"
	"github.com/Sergey0107/verification-products/internal/jobs"
	"github.com/Sergey0107/verification-products/internal/products"
	"github.com/Sergey0107/verification-products/internal/prompts"
	"github.com/Sergey0107/verification-products/internal/queue"
	"github.com/Sergey0107/verification-products/internal/shared/storage/object"
	"github.com/Sergey0107/verification-products/internal/shared/telemetry"
)

var (
	ErrMissingFiles    = errors.New("both tz and passport files are required")
	ErrUnknownFileType = errors.New("unknown file type")
)

// Extractor runs the external extraction for one file.
type Extractor interface {
	Extract(ctx context.Context, in extractor.Request) (json.RawMessage, error)
}

// File is an uploaded document registered for extraction.
type File struct {
	ID          string `json:"file_id"`
	Type        string `json:"file_type"`
	StoragePath string `json:"storage_path"`
	StorageURL  string `json:"storage_url,omitempty"`
}

// Enqueued reports the extraction job of one file.
type Enqueued struct {
	JobID    string `json:"jobId"`
	FileID   string `json:"fileId"`
	FileType string `json:"fileType"`
	Created  bool   `json:"created"`
}

// Service creates extraction jobs and runs them.
type Service struct {
	Jobs      *jobs.Manager
	Results   ResultsRepo
	Prompts   prompts.Registry
	Extractor Extractor
	Files     object.URLResolver
	Queue     queue.Client
	Analyses  analyses.Repo
}

// Enqueue creates one extraction job per file and sends a message for each new job.
// Files already registered keep their existing job, which is sent again only while it is
// still queued, so a request repeated after a failed send recovers it.
func (s *Service) Enqueue(ctx context.Context, analysisID string, files []File, requestID string) ([]Enqueued, error) {
	seen := map[string]bool{}
	for i := range files {
		files[i].Type = prompts.NormalizeType(files[i].Type)
		if !extractable(files[i].Type) {
			return nil, fmt.Errorf("%w: %q", ErrUnknownFileType, files[i].Type)
		}
		seen[files[i].Type] = true
	}
	if !seen[prompts.TypeTZ] || !seen[prompts.TypePassport] {
		return nil, ErrMissingFiles
	}

	if s.Analyses != nil {
		if _, err := s.Analyses.Ensure(ctx, analysisID); err != nil {
			return nil, fmt.Errorf("ensure analysis: %w", err)
		}
	}

	out := make([]Enqueued, 0, len(files))
	for _, f := range files {
		jobID, created, err := s.Jobs.Repo.CreateExtraction(ctx, analysisID, f.ID, f.Type)
		if err != nil {
			return nil, fmt.Errorf("create extraction job: %w", err)
		}
		out = append(out, Enqueued{JobID: jobID, FileID: f.ID, FileType: f.Type, Created: created})
		if !created {
			pending, err := s.stillQueued(ctx, jobs.KindExtraction, jobID)
			if err != nil {
				return nil, fmt.Errorf("load extraction job: %w", err)
			}
			if !pending {
				continue
			}
			telemetry.Info("extraction.resend", map[string]any{
				"analysis_id": analysisID,
				"job_id":      jobID,
			})
		}
		msg := queue.Message{
			Kind:        queue.KindExtraction,
			JobID:       jobID,
			AnalysisID:  analysisID,
			FileID:      f.ID,
			FileType:    f.Type,
			StoragePath: f.StoragePath,
			StorageURL:  f.StorageURL,
			RequestID:   requestID,
			EnqueuedAt:  now().Format(time.RFC3339),
			Version:     queue.MessageVersion,
		}
		if err := s.Queue.Send(ctx, msg); err != nil {
			return nil, fmt.Errorf("enqueue extraction job %s: %w", jobID, err)
		}
	}

	s.setStatus(ctx, analysisID, analyses.StatusExtracting)
	telemetry.Info("extraction.enqueued", map[string]any{
		"analysis_id": analysisID,
		"request_id":  requestID,
		"files":       len(files),
	})
	return out, nil
}

// Process runs one attempt of the extraction job in msg. When the job has succeeded and both
// results exist, the comparison job is created and dispatched. A redelivered message of a
// finished job repeats the dispatch, and a dispatch failure is returned on its own so the
// message is kept.
func (s *Service) Process(ctx context.Context, msg queue.Message) error {
	err := s.Jobs.Execute(ctx, jobs.KindExtraction, msg.JobID, func(ctx context.Context) (json.RawMessage, error) {
		return nil, s.extract(ctx, msg)
	})

	var terminal *jobs.TerminalError
	switch {
	case err == nil, errors.Is(err, jobs.ErrAlreadyFinished):
		if trigErr := s.triggerComparison(ctx, msg.AnalysisID, msg.RequestID); trigErr != nil {
			return trigErr
		}
	case errors.As(err, &terminal):
		s.setStatus(ctx, msg.AnalysisID, analyses.StatusFailed)
	}
	return err
}

func (s *Service) extract(ctx context.Context, msg queue.Message) error {
	fileType := prompts.NormalizeType(msg.FileType)
	if !extractable(fileType) {
		return jobs.Fatal(fmt.Errorf("%w: %q", ErrUnknownFileType, msg.FileType))
	}

	fileURL, err := s.Files.FileURL(ctx, object.FileRef{
		FileID:      msg.FileID,
		StoragePath: msg.StoragePath,
		StorageURL:  msg.StorageURL,
	})
	if err != nil {
		if errors.Is(err, object.ErrMissingPath) || errors.Is(err, object.ErrMissingBucket) {
			return jobs.Fatal(err)
		}
		return fmt.Errorf("resolve file url: %w", err)
	}

	prompt, err := s.Prompts.Get(ctx, fileType)
	if err != nil {
		if errors.Is(err, prompts.ErrUnknownType) {
			return jobs.Fatal(err)
		}
		return fmt.Errorf("fetch %s prompt: %w", fileType, err)
	}

	payload, err := s.Extractor.Extract(ctx, extractor.Request{
		AnalysisID: msg.AnalysisID,
		FileID:     msg.FileID,
		FileType:   fileType,
		FileURL:    fileURL,
		Prompt:     prompt.Prompt,
		Schema:     prompt.Schema,
	})
	if err != nil {
		return err
	}

	payload = products.FlattenPages(payload)
	if err := s.Results.Upsert(ctx, msg.AnalysisID, fileType, payload); err != nil {
		return fmt.Errorf("store extraction result: %w", err)
	}
	return nil
}

func (s *Service) triggerComparison(ctx context.Context, analysisID, requestID string) error {
	results, err := s.Results.ListResults(ctx, analysisID)
	if err != nil {
		return fmt.Errorf("load extraction results: %w", err)
	}
	_, haveTZ := results[prompts.TypeTZ]
	_, havePassport := results[prompts.TypePassport]
	if !haveTZ || !havePassport {
		return nil
	}

	jobID, created, err := s.Jobs.Repo.CreateComparison(ctx, analysisID)
	if err != nil {
		return fmt.Errorf("create comparison job: %w", err)
	}
	if !created {
		pending, err := s.stillQueued(ctx, jobs.KindComparison, jobID)
		if err != nil {
			return fmt.Errorf("load comparison job: %w", err)
		}
		if !pending {
			return nil
		}
	}

	s.setStatus(ctx, analysisID, analyses.StatusAnalyzing)
	msg := queue.Message{
		Kind:       queue.KindComparison,
		JobID:      jobID,
		AnalysisID: analysisID,
		RequestID:  requestID,
		EnqueuedAt: now().Format(time.RFC3339),
		Version:    queue.MessageVersion,
	}
	if err := s.Queue.Send(ctx, msg); err != nil {
		return fmt.Errorf("enqueue comparison job %s: %w", jobID, err)
	}
	telemetry.Info("comparison.enqueued", map[string]any{
		"analysis_id": analysisID,
		"job_id":      jobID,
		"created":     created,
	})
	return nil
}

// stillQueued reports whether no attempt of the job has started. Such a job may never have
// reached the queue.
func (s *Service) stillQueued(ctx context.Context, kind jobs.Kind, id string) (bool, error) {
	job, err := s.Jobs.Repo.Get(ctx, kind, id)
	if err != nil {
		return false, err
	}
	return job.Status == jobs.StatusQueued, nil
}

func (s *Service) setStatus(ctx context.Context, analysisID, status string) {
	if s.Analyses == nil {
		return
	}
	if err := s.Analyses.SetStatus(ctx, analysisID, status); err != nil {
		telemetry.Warn("analysis.status_update_failed", map[string]any{
			"analysis_id": analysisID,
			"status":      status,
			"error":       err.Error(),
		})
	}
}

func extractable(fileType string) bool {
	return fileType == prompts.TypeTZ || fileType == prompts.TypePassport
}
