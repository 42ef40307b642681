// Package dealdeskctl implements the operator CLI for the dealdesk API.
package dealdeskctl

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Client is a thin JSON client over the dealdesk HTTP API.
type Client struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
}

func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		APIKey:     apiKey,
		HTTPClient: &http.Client{Timeout: timeout},
	}
}

type AskResult struct {
	TurnID      string   `json:"turn_id"`
	Question    string   `json:"question"`
	SQL         string   `json:"sql"`
	Columns     []string `json:"columns"`
	Rows        [][]any  `json:"rows"`
	RowCount    int      `json:"row_count"`
	Truncated   bool     `json:"row_count_truncated"`
	Status      string   `json:"status"`
	Attempts    int      `json:"attempts"`
	ErrorReason string   `json:"error_reason"`
	Summary     string   `json:"summary"`
	ElapsedMS   int64    `json:"elapsed_ms"`
}

type TurnRecord struct {
	TurnID      string    `json:"turn_id"`
	Question    string    `json:"question"`
	SQL         string    `json:"sql"`
	Status      string    `json:"status"`
	Attempts    int       `json:"attempts"`
	ErrorReason string    `json:"error_reason"`
	RowCount    int       `json:"row_count"`
	ElapsedMS   int64     `json:"elapsed_ms"`
	CreatedAt   time.Time `json:"created_at"`
}

func (c *Client) Ask(ctx context.Context, question string) (AskResult, error) {
	var result AskResult
	payload, err := json.Marshal(map[string]string{"question": question})
	if err != nil {
		return result, err
	}
	err = c.do(ctx, http.MethodPost, "/v1/ask", payload, &result)
	return result, err
}

func (c *Client) Health(ctx context.Context) (map[string]any, error) {
	var result map[string]any
	err := c.do(ctx, http.MethodGet, "/v1/health", nil, &result)
	return result, err
}

func (c *Client) Ready(ctx context.Context) (map[string]any, error) {
	var result map[string]any
	err := c.do(ctx, http.MethodGet, "/v1/ready", nil, &result)
	return result, err
}

func (c *Client) Schema(ctx context.Context) (json.RawMessage, error) {
	var result json.RawMessage
	err := c.do(ctx, http.MethodGet, "/v1/schema", nil, &result)
	return result, err
}

func (c *Client) RefreshSchema(ctx context.Context) (json.RawMessage, error) {
	var result json.RawMessage
	err := c.do(ctx, http.MethodPost, "/v1/schema/refresh", nil, &result)
	return result, err
}

func (c *Client) Turns(ctx context.Context, limit int) ([]TurnRecord, error) {
	var result struct {
		Turns []TurnRecord `json:"turns"`
	}
	path := fmt.Sprintf("/v1/turns?limit=%d", limit)
	if err := c.do(ctx, http.MethodGet, path, nil, &result); err != nil {
		return nil, err
	}
	return result.Turns, nil
}

func (c *Client) do(ctx context.Context, method, path string, payload []byte, out any) error {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if strings.TrimSpace(c.APIKey) != "" {
		req.Header.Set("X-API-Key", strings.TrimSpace(c.APIKey))
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 400 {
		return apiError(resp.StatusCode, raw)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func apiError(status int, body []byte) error {
	var payload struct {
		ErrorCode string `json:"error_code"`
		Message   string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.ErrorCode != "" {
		return fmt.Errorf("http %d %s: %s", status, payload.ErrorCode, payload.Message)
	}
	return fmt.Errorf("http %d: %s", status, strings.TrimSpace(string(body)))
}
