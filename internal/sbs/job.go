package sbs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Job describes one side-by-side rendering job handed to the encoder.
type Job struct {
	Profile   string            `json:"profile"`
	Priority  int               `json:"priority"`
	Language  string            `json:"language"`
	Path      string            `json:"path"`
	ObjectID  string            `json:"object_id"`
	Variables map[string]string `json:"vars,omitempty"`
	// SourceURLs carries the per-flavor delivery URLs of the source tracks.
	SourceURLs map[string]string `json:"source_urls,omitempty"`
}

// JobSubmitter hands rendering jobs to a downstream encoder.
type JobSubmitter interface {
	Submit(ctx context.Context, job Job) error
}

// HTTPSubmitter posts jobs as JSON to the encoder's job endpoint.
type HTTPSubmitter struct {
	endpoint   string
	httpClient *http.Client
}

// NewHTTPSubmitter creates a submitter for the given job endpoint.
func NewHTTPSubmitter(endpoint string) *HTTPSubmitter {
	return &HTTPSubmitter{
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Submit posts the job and requires a 2xx answer.
func (s *HTTPSubmitter) Submit(ctx context.Context, job Job) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build job request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("submit job: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("submit job: encoder returned status %d", resp.StatusCode)
	}
	return nil
}
