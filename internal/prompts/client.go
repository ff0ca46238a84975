package prompts

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultTimeout = 30 * time.Second

// HTTPRegistry fetches prompts from a remote prompt registry.
type HTTPRegistry struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewHTTPRegistry builds a registry client for baseURL.
func NewHTTPRegistry(baseURL string, timeout time.Duration) *HTTPRegistry {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &HTTPRegistry{
		BaseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		HTTPClient: &http.Client{Timeout: timeout},
	}
}

// Get returns the prompt for fileType. Unknown types wrap ErrUnknownType.
func (r *HTTPRegistry) Get(ctx context.Context, fileType string) (Prompt, error) {
	fileType = NormalizeType(fileType)
	endpoint := r.BaseURL + "/prompts/" + url.PathEscape(fileType)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Prompt{}, err
	}
	client := r.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: defaultTimeout}
	}
	resp, err := client.Do(req)
	if err != nil {
		return Prompt{}, fmt.Errorf("prompt registry request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Prompt{}, fmt.Errorf("prompt registry read: %w", err)
	}
	if resp.StatusCode == http.StatusNotFound {
		return Prompt{}, fmt.Errorf("%w: %s", ErrUnknownType, fileType)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Prompt{}, fmt.Errorf("prompt registry http status %d: %s", resp.StatusCode, truncate(string(body), 200))
	}

	var p Prompt
	if err := json.Unmarshal(body, &p); err != nil {
		return Prompt{}, fmt.Errorf("prompt registry response parse: %w", err)
	}
	if p.Type == "" {
		p.Type = fileType
	}
	return p, nil
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[:n]
}

var _ Registry = (*HTTPRegistry)(nil)
