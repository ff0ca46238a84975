package extractor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// DefaultTimeout bounds a single extraction call.
const DefaultTimeout = 600 * time.Second

// ErrEmptyResponse is returned when the service answers 2xx without a body.
var ErrEmptyResponse = errors.New("extraction service returned an empty body")

// Request is the body of POST /extract.
type Request struct {
	AnalysisID string          `json:"analysis_id"`
	FileID     string          `json:"file_id"`
	FileType   string          `json:"file_type"`
	FileURL    string          `json:"file_url"`
	Prompt     string          `json:"prompt"`
	Schema     json.RawMessage `json:"schema"`
}

// Client calls the external document extraction service.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

// New builds a Client for baseURL.
func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		BaseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		HTTPClient: &http.Client{Timeout: timeout},
	}
}

// Extract sends the file reference and prompt to the service and returns its raw JSON payload.
func (c *Client) Extract(ctx context.Context, in Request) (json.RawMessage, error) {
	body, err := json.Marshal(in)
	if err != nil {
		return nil, fmt.Errorf("encode extract request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/extract", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	client := c.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: DefaultTimeout}
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("extraction request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("extraction read: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("extraction http status %d: %s", resp.StatusCode, snippet(data, 200))
	}
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, ErrEmptyResponse
	}
	if !json.Valid(data) {
		return nil, fmt.Errorf("extraction response is not JSON: %s", snippet(data, 200))
	}
	return json.RawMessage(data), nil
}

func snippet(b []byte, n int) string {
	s := strings.TrimSpace(string(b))
	if len(s) <= n {
		return s
	}
	return s[:n]
}
