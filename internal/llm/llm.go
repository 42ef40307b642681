// Package llm talks to an OpenAI-compatible completion service to draft SQL
// candidates and optional result summaries.
package llm

import (
	"context"
	"fmt"

	"github.com/dealdesk/dealdesk/internal/prompt"
)

// Generation failure reasons. Failures are retryable only through the
// orchestrator's outer retry budget.
const (
	ReasonServiceError  = "service-error"
	ReasonTimeout       = "timeout"
	ReasonRateLimited   = "rate-limited"
	ReasonEmptyResponse = "empty-response"
	ReasonUnparseable   = "unparseable-output"
)

type GenerationError struct {
	Reason  string
	Message string
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("sql generation failed (%s): %s", e.Reason, e.Message)
}

type Generator interface {
	// Generate returns exactly one SQL statement drafted for the prompt, or
	// a *GenerationError.
	Generate(ctx context.Context, p prompt.Context) (string, error)
}

type Summarizer interface {
	Summarize(ctx context.Context, question string, columns []string, rows [][]any) (string, error)
}
