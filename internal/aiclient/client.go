package aiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"cs-portal/model"
)

const classifyPath = "/classify"

// Client talks to the classification service.
type Client struct {
	baseURL string
	httpCli *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		httpCli: &http.Client{
			Timeout: timeout,
		},
	}
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

// Classify issues exactly one POST /classify. A non-2xx reply is a
// *ServerError; anything that prevents a usable reply is a *TransportError.
func (c *Client) Classify(ctx context.Context, req model.ClassifyRequest) (*model.ClassificationResult, error) {
	bs, err := json.Marshal(req)
	if err != nil {
		return nil, &TransportError{Err: fmt.Errorf("encode request: %w", err)}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+classifyPath, bytes.NewReader(bs))
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.httpCli.Do(httpReq)
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// drain so the connection can be reused
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		return nil, &ServerError{StatusCode: resp.StatusCode}
	}

	var result model.ClassificationResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, &TransportError{Err: fmt.Errorf("decode response: %w", err)}
	}
	return &result, nil
}
