package callback

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"

	"github.com/Sergey0107/verification-products/internal/comparison"
	"github.com/Sergey0107/verification-products/internal/shared/metrics"
	"github.com/Sergey0107/verification-products/internal/shared/telemetry"
)

const (
	DefaultAttempts = 3
	DefaultDelay    = time.Second
	defaultTimeout  = 30 * time.Second
)

// Sender posts comparison notifications to the verdict consumer.
type Sender struct {
	URL        string
	Attempts   uint
	Delay      time.Duration
	HTTPClient *http.Client
}

// NewSender builds a Sender for url. An empty url disables delivery.
func NewSender(url string, attempts uint, timeout time.Duration) *Sender {
	if attempts == 0 {
		attempts = DefaultAttempts
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Sender{
		URL:        strings.TrimSpace(url),
		Attempts:   attempts,
		Delay:      DefaultDelay,
		HTTPClient: &http.Client{Timeout: timeout},
	}
}

// Notify delivers n, retrying network errors and 5xx answers. 4xx answers are not retried.
func (s *Sender) Notify(ctx context.Context, n comparison.Notification) error {
	if s.URL == "" {
		metrics.IncCallback("skipped")
		return nil
	}
	body, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("encode callback: %w", err)
	}

	err = retry.Do(
		func() error { return s.post(ctx, body) },
		retry.Context(ctx),
		retry.Attempts(s.Attempts),
		retry.Delay(s.Delay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(attempt uint, err error) {
			telemetry.Warn("callback.retry", map[string]any{
				"job_id":  n.JobID,
				"attempt": attempt + 1,
				"error":   err.Error(),
			})
		}),
	)
	if err != nil {
		metrics.IncCallback("failed")
		return fmt.Errorf("deliver callback for job %s: %w", n.JobID, err)
	}
	metrics.IncCallback("delivered")
	telemetry.Info("callback.delivered", map[string]any{
		"job_id":      n.JobID,
		"analysis_id": n.AnalysisID,
		"status":      n.Status,
	})
	return nil
}

func (s *Sender) post(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.URL, bytes.NewReader(body))
	if err != nil {
		return retry.Unrecoverable(err)
	}
	req.Header.Set("Content-Type", "application/json")

	client := s.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: defaultTimeout}
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 200))

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode <= 299:
		return nil
	case resp.StatusCode >= 500:
		return fmt.Errorf("callback http status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	default:
		return retry.Unrecoverable(fmt.Errorf("callback http status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet))))
	}
}

var _ comparison.Notifier = (*Sender)(nil)
