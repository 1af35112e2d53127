package stream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// RunRequest is the JSON body submitted to start an execution.
type RunRequest struct {
	Inputs map[string]any `json:"inputs"`
	// Credentials maps a step identity to its credential-type → id
	// selections. Omitted when empty.
	Credentials map[string]map[string]string `json:"credentials,omitempty"`
}

// ValidateRequest asks the service to parse and validate program source.
type ValidateRequest struct {
	Code string `json:"code"`
}

// Client talks to the workflow-execution service.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a client for the service at baseURL. The configured
// timeout applies to the initial response headers only; the streamed
// body is read until terminal event or cancellation.
func NewClient(baseURL string, headerTimeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		http: &http.Client{
			Transport: &http.Transport{
				ResponseHeaderTimeout: headerTimeout,
			},
		},
	}
}

// StatusError reports a non-2xx response from the service. Responses
// outside 2xx are fatal to the run and their body is never parsed as
// event frames.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("execution service returned status %d", e.Code)
}

// Execute submits a run request for the given flow and returns the raw
// streamed response body. The caller owns closing the body.
func (c *Client) Execute(ctx context.Context, flowID string, req RunRequest) (io.ReadCloser, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode run request: %w", err)
	}

	endpoint, err := url.JoinPath(c.baseURL, "flows", flowID, "execute")
	if err != nil {
		return nil, fmt.Errorf("build execute url: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build execute request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("execute flow %s: %w", flowID, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_ = resp.Body.Close()
		return nil, &StatusError{Code: resp.StatusCode}
	}
	return resp.Body, nil
}
