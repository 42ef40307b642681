package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dealdesk/dealdesk/internal/prompt"
)

func chatResponse(content string) map[string]any {
	return map[string]any{
		"choices": []map[string]any{
			{"message": map[string]any{"content": content}},
		},
	}
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *OpenAIClient {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	client, err := NewOpenAIClient(OpenAIConfig{BaseURL: server.URL, APIKey: "test-key", Model: "gpt-4o-mini"})
	if err != nil {
		t.Fatalf("NewOpenAIClient() error = %v", err)
	}
	return client
}

func TestGenerateExtractsSingleStatement(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Fatalf("path = %q", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Fatalf("Authorization = %q", got)
		}
		_ = json.NewEncoder(w).Encode(chatResponse("```sql\nSELECT account FROM accounts;\n```"))
	})

	sql, err := client.Generate(context.Background(), prompt.Context{System: "s", User: "u"})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if sql != "SELECT account FROM accounts" {
		t.Fatalf("Generate() = %q", sql)
	}
}

func TestGenerateMultipleStatementsIsUnparseable(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(chatResponse("SELECT 1; DROP TABLE accounts"))
	})

	_, err := client.Generate(context.Background(), prompt.Context{})
	var genErr *GenerationError
	if !errors.As(err, &genErr) {
		t.Fatalf("error = %v, want *GenerationError", err)
	}
	if genErr.Reason != ReasonUnparseable {
		t.Fatalf("reason = %q, want %q", genErr.Reason, ReasonUnparseable)
	}
}

func TestGenerateRateLimited(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})

	_, err := client.Generate(context.Background(), prompt.Context{})
	var genErr *GenerationError
	if !errors.As(err, &genErr) {
		t.Fatalf("error = %v, want *GenerationError", err)
	}
	if genErr.Reason != ReasonRateLimited {
		t.Fatalf("reason = %q, want %q", genErr.Reason, ReasonRateLimited)
	}
}

func TestGenerateServiceError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := client.Generate(context.Background(), prompt.Context{})
	var genErr *GenerationError
	if !errors.As(err, &genErr) {
		t.Fatalf("error = %v, want *GenerationError", err)
	}
	if genErr.Reason != ReasonServiceError {
		t.Fatalf("reason = %q, want %q", genErr.Reason, ReasonServiceError)
	}
}

func TestGenerateEmptyChoices(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"choices": []any{}})
	})

	_, err := client.Generate(context.Background(), prompt.Context{})
	var genErr *GenerationError
	if !errors.As(err, &genErr) {
		t.Fatalf("error = %v, want *GenerationError", err)
	}
	if genErr.Reason != ReasonEmptyResponse {
		t.Fatalf("reason = %q, want %q", genErr.Reason, ReasonEmptyResponse)
	}
}

func TestSummarizeCapsRows(t *testing.T) {
	var seenUser string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var payload struct {
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		_ = json.NewDecoder(r.Body).Decode(&payload)
		for _, msg := range payload.Messages {
			if msg.Role == "user" {
				seenUser = msg.Content
			}
		}
		_ = json.NewEncoder(w).Encode(chatResponse("There are 30 accounts."))
	})

	rows := make([][]any, 30)
	for i := range rows {
		rows[i] = []any{i}
	}
	summary, err := client.Summarize(context.Background(), "how many accounts?", []string{"n"}, rows)
	if err != nil {
		t.Fatalf("Summarize() error = %v", err)
	}
	if summary != "There are 30 accounts." {
		t.Fatalf("Summarize() = %q", summary)
	}
	if seenUser == "" {
		t.Fatal("user message not captured")
	}
	if want := "Rows (20 of 30 shown)"; !strings.Contains(seenUser, want) {
		t.Fatalf("user prompt missing %q:\n%s", want, seenUser)
	}
}
