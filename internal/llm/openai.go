package llm

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

	"github.com/dealdesk/dealdesk/internal/prompt"
)

type OpenAIConfig struct {
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float64
	Timeout     time.Duration
}

type OpenAIClient struct {
	baseURL     string
	apiKey      string
	model       string
	temperature float64
	client      *http.Client
}

func NewOpenAIClient(cfg OpenAIConfig) (*OpenAIClient, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, fmt.Errorf("base URL is required")
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("api key is required")
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = "gpt-4o-mini"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &OpenAIClient{
		baseURL:     strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		apiKey:      strings.TrimSpace(cfg.APIKey),
		model:       model,
		temperature: cfg.Temperature,
		client:      &http.Client{Timeout: timeout},
	}, nil
}

func (c *OpenAIClient) Generate(ctx context.Context, p prompt.Context) (string, error) {
	content, err := c.complete(ctx, p.System, p.User)
	if err != nil {
		return "", err
	}
	sql, extractErr := ExtractStatement(content)
	if extractErr != nil {
		return "", extractErr
	}
	return sql, nil
}

const summarySystemPrompt = "You are a concise sales analyst. " +
	"Summarize the query result for the user's question in at most three sentences. " +
	"Mention concrete values from the data. Plain text only."

const summaryRowCap = 20

func (c *OpenAIClient) Summarize(ctx context.Context, question string, columns []string, rows [][]any) (string, error) {
	shown := rows
	if len(shown) > summaryRowCap {
		shown = shown[:summaryRowCap]
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Question: %s\n\nColumns: %s\nRows (%d of %d shown):\n", question, strings.Join(columns, ", "), len(shown), len(rows))
	for _, row := range shown {
		cells := make([]string, len(row))
		for i, cell := range row {
			cells[i] = fmt.Sprintf("%v", cell)
		}
		fmt.Fprintf(&b, "%s\n", strings.Join(cells, " | "))
	}

	content, err := c.complete(ctx, summarySystemPrompt, b.String())
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(content), nil
}

func (c *OpenAIClient) complete(ctx context.Context, system, user string) (string, error) {
	payload := map[string]any{
		"model": c.model,
		"messages": []map[string]string{
			{"role": "system", "content": system},
			{"role": "user", "content": user},
		},
		"temperature": c.temperature,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", &GenerationError{Reason: ReasonServiceError, Message: fmt.Sprintf("marshal chat payload: %v", err)}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", &GenerationError{Reason: ReasonServiceError, Message: fmt.Sprintf("build chat request: %v", err)}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		reason := ReasonServiceError
		if errors.Is(err, context.DeadlineExceeded) || isTimeout(err) {
			reason = ReasonTimeout
		}
		return "", &GenerationError{Reason: reason, Message: fmt.Sprintf("request chat completion: %v", err)}
	}
	defer func() { _ = resp.Body.Close() }()

	rawBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &GenerationError{Reason: ReasonServiceError, Message: fmt.Sprintf("read chat response body: %v", err)}
	}
	if resp.StatusCode == http.StatusTooManyRequests {
		return "", &GenerationError{Reason: ReasonRateLimited, Message: fmt.Sprintf("completion service rate limited: %s", truncateBody(rawBody))}
	}
	if resp.StatusCode >= 400 {
		return "", &GenerationError{Reason: ReasonServiceError, Message: fmt.Sprintf("completion failed status=%d body=%s", resp.StatusCode, truncateBody(rawBody))}
	}

	var parsed struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(rawBody, &parsed); err != nil {
		return "", &GenerationError{Reason: ReasonServiceError, Message: fmt.Sprintf("decode chat completion response: %v", err)}
	}
	if len(parsed.Choices) == 0 {
		return "", &GenerationError{Reason: ReasonEmptyResponse, Message: "empty chat completion choices"}
	}
	return parsed.Choices[0].Message.Content, nil
}

func isTimeout(err error) bool {
	var netErr interface{ Timeout() bool }
	return errors.As(err, &netErr) && netErr.Timeout()
}

func truncateBody(body []byte) string {
	const limit = 512
	if len(body) > limit {
		return string(body[:limit]) + "..."
	}
	return string(body)
}
