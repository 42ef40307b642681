// Package agent orchestrates a question turn: draft SQL from the schema and
// domain context, validate it, execute it, and repair on failure within a
// bounded retry budget.
package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dealdesk/dealdesk/internal/engine"
	"github.com/dealdesk/dealdesk/internal/llm"
	"github.com/dealdesk/dealdesk/internal/observability"
	"github.com/dealdesk/dealdesk/internal/prompt"
	"github.com/dealdesk/dealdesk/internal/schema"
	"github.com/dealdesk/dealdesk/internal/sqlcheck"
)

// Terminal turn statuses.
const (
	StatusAnswered         = "answered"
	StatusExhaustedRetries = "exhausted-retries"
	StatusRejectedUnsafe   = "rejected-unsafe"
)

// ErrEmptyQuestion is returned before any model call when the question is
// blank.
var ErrEmptyQuestion = errors.New("question is empty")

// Turn is the full record of one question, terminal once Status is set.
// Attempts counts repairs, so a first-try answer reports zero.
type Turn struct {
	ID          string
	Question    string
	SQL         string
	Result      *engine.Result
	Attempts    int
	Status      string
	ErrorReason string
	Summary     string
	StartedAt   time.Time
	Elapsed     time.Duration
}

// Recorder persists completed turns. Recording is best-effort and never
// fails the turn itself.
type Recorder interface {
	Record(ctx context.Context, turn Turn) error
}

type Agent struct {
	Catalog    *schema.Catalog
	Builder    *prompt.Builder
	Generator  llm.Generator
	Validator  *sqlcheck.Validator
	Executor   engine.Executor
	Summarizer llm.Summarizer
	Recorder   Recorder
	Logger     *slog.Logger

	// MaxRetries is the repair budget after the initial draft. Zero means a
	// single generation with no repair.
	MaxRetries       int
	RowLimit         int
	ExecutionTimeout time.Duration
	// RetryBackoff is the base wait after a provider failure, scaled by the
	// attempt number. Zero disables waiting.
	RetryBackoff time.Duration
}

// failureKind distinguishes what ended an attempt, which decides the
// terminal status when the budget runs out.
type failureKind int

const (
	failureGeneration failureKind = iota
	failureValidation
	failureExecution
)

type attemptFailure struct {
	kind     failureKind
	reason   string
	message  string
	feedback *prompt.Feedback
}

// Answer runs the draft/validate/execute loop for one question. It returns
// an error only for preconditions (blank question, unreadable schema); every
// model or database failure is folded into the returned Turn instead.
func (a *Agent) Answer(ctx context.Context, question string) (*Turn, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, ErrEmptyQuestion
	}

	descriptor, err := a.Catalog.Describe(ctx)
	if err != nil {
		return nil, fmt.Errorf("describe schema: %w", err)
	}

	logger := a.logger()
	turn := &Turn{
		ID:        uuid.NewString(),
		Question:  question,
		StartedAt: time.Now(),
	}

	var last *attemptFailure
	for attempt := 0; attempt <= a.MaxRetries; attempt++ {
		turn.Attempts = attempt
		last = a.runAttempt(ctx, turn, descriptor, priorFeedback(last), logger, attempt)
		if last == nil {
			turn.Status = StatusAnswered
			break
		}
		if last.kind == failureGeneration && attempt < a.MaxRetries {
			if err := a.backoff(ctx, attempt); err != nil {
				break
			}
		}
	}

	if last != nil {
		if last.kind == failureValidation {
			turn.Status = StatusRejectedUnsafe
		} else {
			turn.Status = StatusExhaustedRetries
		}
		turn.ErrorReason = last.reason
	}

	turn.Elapsed = time.Since(turn.StartedAt)
	observability.RecordAgentTurn(turn.Status, turn.Attempts)
	logger.Info("turn complete",
		"turn_id", turn.ID,
		"status", turn.Status,
		"attempts", turn.Attempts,
		"elapsed_ms", turn.Elapsed.Milliseconds(),
	)

	a.summarize(ctx, turn, logger)
	a.record(ctx, turn, logger)
	return turn, nil
}

// runAttempt performs one draft/validate/execute pass. A nil return means
// the turn succeeded and turn.SQL and turn.Result are populated.
func (a *Agent) runAttempt(ctx context.Context, turn *Turn, descriptor schema.Descriptor, prior *prompt.Feedback, logger *slog.Logger, attempt int) *attemptFailure {
	promptCtx := a.Builder.Build(turn.Question, descriptor, prior)

	sqlText, err := a.Generator.Generate(ctx, promptCtx)
	if err != nil {
		reason := llm.ReasonServiceError
		var genErr *llm.GenerationError
		if errors.As(err, &genErr) {
			reason = genErr.Reason
		}
		observability.RecordGenerationFailure(reason)
		logger.Warn("generation failed", "turn_id", turn.ID, "attempt", attempt, "reason", reason, "error", err)
		return &attemptFailure{kind: failureGeneration, reason: reason, message: err.Error()}
	}
	turn.SQL = sqlText

	verdict := a.Validator.Validate(sqlText, descriptor)
	if !verdict.Accepted {
		observability.RecordValidationRejection(verdict.Reason)
		logger.Warn("candidate rejected", "turn_id", turn.ID, "attempt", attempt, "reason", verdict.Reason, "detail", verdict.Detail)
		return &attemptFailure{
			kind:     failureValidation,
			reason:   verdict.Reason,
			message:  verdict.Detail,
			feedback: &prompt.Feedback{SQL: sqlText, Error: fmt.Sprintf("rejected before execution (%s): %s", verdict.Reason, verdict.Detail)},
		}
	}

	result, failure := a.Executor.Execute(ctx, sqlText, a.RowLimit, a.ExecutionTimeout)
	if failure != nil {
		logger.Warn("execution failed", "turn_id", turn.ID, "attempt", attempt, "code", failure.Code, "error", failure.Message)
		return &attemptFailure{
			kind:     failureExecution,
			reason:   failure.Code,
			message:  failure.Message,
			feedback: &prompt.Feedback{SQL: sqlText, Error: failure.Message},
		}
	}

	observability.RecordQueryExecution(result.Duration, result.RowCount)
	turn.Result = result
	return nil
}

// backoff waits before re-drafting after a provider failure. The wait grows
// linearly with the attempt number and is cut short by context cancellation.
func (a *Agent) backoff(ctx context.Context, attempt int) error {
	if a.RetryBackoff <= 0 {
		return nil
	}
	timer := time.NewTimer(time.Duration(attempt+1) * a.RetryBackoff)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func priorFeedback(last *attemptFailure) *prompt.Feedback {
	if last == nil {
		return nil
	}
	return last.feedback
}

// summarize asks the model for a one-paragraph narrative of an answered
// turn. Summary failures are logged and swallowed, the rows stand alone.
func (a *Agent) summarize(ctx context.Context, turn *Turn, logger *slog.Logger) {
	if a.Summarizer == nil || turn.Status != StatusAnswered || turn.Result == nil {
		return
	}
	summary, err := a.Summarizer.Summarize(ctx, turn.Question, turn.Result.Columns, turn.Result.Rows)
	if err != nil {
		logger.Warn("summary failed", "turn_id", turn.ID, "error", err)
		return
	}
	turn.Summary = summary
}

func (a *Agent) record(ctx context.Context, turn *Turn, logger *slog.Logger) {
	if a.Recorder == nil {
		return
	}
	if err := a.Recorder.Record(ctx, *turn); err != nil {
		logger.Warn("turn record failed", "turn_id", turn.ID, "error", err)
	}
}

func (a *Agent) logger() *slog.Logger {
	if a.Logger != nil {
		return a.Logger
	}
	return slog.Default()
}
