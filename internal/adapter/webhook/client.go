// Package webhook provides an HTTP client for the remote chat webhook.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client is an HTTP client for a chat-trigger webhook.
type Client struct {
	url        string
	httpClient *http.Client
}

// NewClient creates a new webhook client. A zero timeout means the request
// may wait indefinitely.
func NewClient(url string, timeout time.Duration) *Client {
	return &Client{
		url: url,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// NewClientWithHTTP creates a client on top of an existing *http.Client.
func NewClientWithHTTP(url string, httpClient *http.Client) *Client {
	return &Client{url: url, httpClient: httpClient}
}

// URL returns the endpoint the client posts to.
func (c *Client) URL() string {
	return c.url
}

// SendRequest is the body posted for every user turn.
type SendRequest struct {
	Text      string `json:"text"`
	UserID    string `json:"userId"`
	SessionID string `json:"sessionId"`
}

// StatusError is returned when the webhook answers with a non-2xx status.
type StatusError struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("Network response was not ok: %s", e.Status)
}

// Send posts req to the webhook and returns the raw response body. Any
// network error or non-2xx status is returned as an error; interpreting the
// body is left to the caller.
func (c *Client) Send(ctx context.Context, req *SendRequest) (string, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("failed to marshal send request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("failed to reach webhook: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &StatusError{
			StatusCode: resp.StatusCode,
			Status:     statusText(resp),
			Body:       string(respBody),
		}
	}
	if err != nil {
		return "", fmt.Errorf("failed to read webhook response: %w", err)
	}

	return string(respBody), nil
}

func statusText(resp *http.Response) string {
	if resp.Status != "" {
		return resp.Status
	}
	return fmt.Sprintf("%d %s", resp.StatusCode, http.StatusText(resp.StatusCode))
}
