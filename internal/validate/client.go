// Package validate calls the validation service: given program source,
// it returns the flow's bubble map plus the credentials each step
// requires. It is invoked before a run whenever the source changed since
// the last validation.
package validate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/flowviz-labs/flowviz/internal/flow"
)

// Result is the validation service response.
type Result struct {
	Bubbles             flow.BubbleMap      `json:"bubbles"`
	RequiredCredentials map[string][]string `json:"requiredCredentials,omitempty"`
	Valid               bool                `json:"valid"`
	Errors              []string            `json:"errors,omitempty"`
}

// Client talks to the validation endpoint of the execution service.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a validation client.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
	}
}

// Validate submits program source and returns the parsed bubble map.
func (c *Client) Validate(ctx context.Context, code string) (*Result, error) {
	body, err := json.Marshal(map[string]string{"code": code})
	if err != nil {
		return nil, fmt.Errorf("encode validate request: %w", err)
	}

	endpoint, err := url.JoinPath(c.baseURL, "flows", "validate")
	if err != nil {
		return nil, fmt.Errorf("build validate url: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build validate request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("validate flow: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("validation service returned status %d", resp.StatusCode)
	}

	var result Result
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode validate response: %w", err)
	}
	return &result, nil
}
