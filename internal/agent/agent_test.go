package agent

import (
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/dealdesk/dealdesk/internal/engine"
	"github.com/dealdesk/dealdesk/internal/llm"
	"github.com/dealdesk/dealdesk/internal/prompt"
	"github.com/dealdesk/dealdesk/internal/schema"
	"github.com/dealdesk/dealdesk/internal/sqlcheck"
)

type staticIntrospector struct {
	descriptor schema.Descriptor
}

func (s *staticIntrospector) Introspect(ctx context.Context) (schema.Descriptor, error) {
	return s.descriptor, nil
}

// scriptedGenerator replays canned outputs in order, capturing every prompt
// it was handed.
type scriptedGenerator struct {
	outputs []string
	errs    []error
	prompts []prompt.Context
}

func (g *scriptedGenerator) Generate(ctx context.Context, p prompt.Context) (string, error) {
	g.prompts = append(g.prompts, p)
	call := len(g.prompts) - 1
	if call < len(g.errs) && g.errs[call] != nil {
		return "", g.errs[call]
	}
	if call < len(g.outputs) {
		return g.outputs[call], nil
	}
	return "", &llm.GenerationError{Reason: llm.ReasonEmptyResponse, Message: "script exhausted"}
}

type scriptedExecutor struct {
	calls    int
	failures []*engine.Failure
	result   *engine.Result
}

func (e *scriptedExecutor) Execute(ctx context.Context, sqlText string, rowLimit int, timeout time.Duration) (*engine.Result, *engine.Failure) {
	call := e.calls
	e.calls++
	if call < len(e.failures) && e.failures[call] != nil {
		return nil, e.failures[call]
	}
	if e.result != nil {
		return e.result, nil
	}
	return &engine.Result{Columns: []string{"c"}, Rows: [][]any{{int64(1)}}, RowCount: 1}, nil
}

type capturingRecorder struct {
	turns []Turn
}

func (r *capturingRecorder) Record(ctx context.Context, turn Turn) error {
	r.turns = append(r.turns, turn)
	return nil
}

func testAgent(gen *scriptedGenerator, exec *scriptedExecutor) *Agent {
	descriptor := schema.Descriptor{
		Objects: []schema.Object{
			{
				Name: "accounts",
				Kind: schema.KindTable,
				Columns: []schema.Column{
					{Name: "account"}, {Name: "sector"}, {Name: "revenue"},
				},
			},
		},
		CapturedAt: time.Now(),
	}
	return &Agent{
		Catalog:          schema.NewCatalog(&staticIntrospector{descriptor: descriptor}),
		Builder:          &prompt.Builder{},
		Generator:        gen,
		Validator:        &sqlcheck.Validator{MaxStatementChars: 4000},
		Executor:         exec,
		Logger:           slog.New(slog.DiscardHandler),
		MaxRetries:       2,
		RowLimit:         500,
		ExecutionTimeout: time.Second,
	}
}

func TestAnswerFirstTryReportsZeroAttempts(t *testing.T) {
	gen := &scriptedGenerator{outputs: []string{"SELECT account FROM accounts"}}
	exec := &scriptedExecutor{}
	a := testAgent(gen, exec)

	turn, err := a.Answer(context.Background(), "list the accounts")
	if err != nil {
		t.Fatalf("Answer() error = %v", err)
	}
	if turn.Status != StatusAnswered {
		t.Fatalf("status = %s, want %s", turn.Status, StatusAnswered)
	}
	if turn.Attempts != 0 {
		t.Fatalf("attempts = %d, want 0", turn.Attempts)
	}
	if turn.ID == "" {
		t.Fatal("turn has no id")
	}
	if len(gen.prompts) != 1 || exec.calls != 1 {
		t.Fatalf("generator calls = %d, executor calls = %d", len(gen.prompts), exec.calls)
	}
}

func TestAnswerRepairsAfterExecutionFailure(t *testing.T) {
	gen := &scriptedGenerator{outputs: []string{
		"SELECT account, SUM(revenue) FROM accounts WHERE sector = 'retail'",
		"SELECT account, SUM(revenue) FROM accounts WHERE sector = 'retail' GROUP BY account",
	}}
	exec := &scriptedExecutor{failures: []*engine.Failure{
		{Code: engine.CodeEngineError, Message: `Binder Error: column "account" must appear in the GROUP BY clause`},
	}}
	a := testAgent(gen, exec)

	turn, err := a.Answer(context.Background(), "revenue for retail accounts")
	if err != nil {
		t.Fatalf("Answer() error = %v", err)
	}
	if turn.Status != StatusAnswered {
		t.Fatalf("status = %s, want %s", turn.Status, StatusAnswered)
	}
	if turn.Attempts != 1 {
		t.Fatalf("attempts = %d, want 1", turn.Attempts)
	}
	if len(gen.prompts) != 2 {
		t.Fatalf("generator calls = %d, want 2", len(gen.prompts))
	}
	if !strings.Contains(gen.prompts[1].User, `Binder Error: column "account" must appear in the GROUP BY clause`) {
		t.Fatalf("repair prompt missing engine error text:\n%s", gen.prompts[1].User)
	}
	if !strings.Contains(gen.prompts[1].User, "SELECT account, SUM(revenue) FROM accounts WHERE sector = 'retail'") {
		t.Fatalf("repair prompt missing failed SQL:\n%s", gen.prompts[1].User)
	}
}

func TestAnswerRepairsAfterValidationRejection(t *testing.T) {
	gen := &scriptedGenerator{outputs: []string{
		"SELECT bogus_col FROM accounts",
		"SELECT account FROM accounts",
	}}
	exec := &scriptedExecutor{}
	a := testAgent(gen, exec)

	turn, err := a.Answer(context.Background(), "list the accounts")
	if err != nil {
		t.Fatalf("Answer() error = %v", err)
	}
	if turn.Status != StatusAnswered {
		t.Fatalf("status = %s, want %s", turn.Status, StatusAnswered)
	}
	if turn.Attempts != 1 {
		t.Fatalf("attempts = %d, want 1", turn.Attempts)
	}
	if exec.calls != 1 {
		t.Fatalf("executor calls = %d, rejected SQL must never execute", exec.calls)
	}
	if len(gen.prompts) != 2 {
		t.Fatalf("generator calls = %d, want 2", len(gen.prompts))
	}
	if !strings.Contains(gen.prompts[1].User, sqlcheck.ReasonUnknownObject) {
		t.Fatalf("repair prompt missing rejection reason:\n%s", gen.prompts[1].User)
	}
	if !strings.Contains(gen.prompts[1].User, "bogus_col") {
		t.Fatalf("repair prompt missing offending identifier:\n%s", gen.prompts[1].User)
	}
	if !strings.Contains(gen.prompts[1].User, "SELECT bogus_col FROM accounts") {
		t.Fatalf("repair prompt missing rejected SQL:\n%s", gen.prompts[1].User)
	}
}

func TestAnswerPersistentWriteAttemptsRejectedUnsafe(t *testing.T) {
	gen := &scriptedGenerator{outputs: []string{
		"DELETE FROM accounts",
		"DELETE FROM accounts",
		"DELETE FROM accounts",
	}}
	exec := &scriptedExecutor{}
	a := testAgent(gen, exec)

	turn, err := a.Answer(context.Background(), "remove all accounts")
	if err != nil {
		t.Fatalf("Answer() error = %v", err)
	}
	if turn.Status != StatusRejectedUnsafe {
		t.Fatalf("status = %s, want %s", turn.Status, StatusRejectedUnsafe)
	}
	if turn.Attempts != 2 {
		t.Fatalf("attempts = %d, want 2", turn.Attempts)
	}
	if turn.ErrorReason != sqlcheck.ReasonWriteForbidden {
		t.Fatalf("error reason = %s, want %s", turn.ErrorReason, sqlcheck.ReasonWriteForbidden)
	}
	if exec.calls != 0 {
		t.Fatalf("executor calls = %d, rejected SQL must never execute", exec.calls)
	}
	if len(gen.prompts) != 3 {
		t.Fatalf("generator calls = %d, want 3", len(gen.prompts))
	}
}

func TestAnswerExhaustedAfterRepeatedEngineErrors(t *testing.T) {
	gen := &scriptedGenerator{outputs: []string{
		"SELECT account FROM accounts",
		"SELECT account FROM accounts",
		"SELECT account FROM accounts",
	}}
	failure := &engine.Failure{Code: engine.CodeEngineError, Message: "out of memory"}
	exec := &scriptedExecutor{failures: []*engine.Failure{failure, failure, failure}}
	a := testAgent(gen, exec)

	turn, err := a.Answer(context.Background(), "list the accounts")
	if err != nil {
		t.Fatalf("Answer() error = %v", err)
	}
	if turn.Status != StatusExhaustedRetries {
		t.Fatalf("status = %s, want %s", turn.Status, StatusExhaustedRetries)
	}
	if turn.Attempts != 2 {
		t.Fatalf("attempts = %d, want 2", turn.Attempts)
	}
	if turn.ErrorReason != engine.CodeEngineError {
		t.Fatalf("error reason = %s", turn.ErrorReason)
	}
}

func TestAnswerGenerationFailureExhaustsBudget(t *testing.T) {
	rateLimited := &llm.GenerationError{Reason: llm.ReasonRateLimited, Message: "rate limit exceeded"}
	gen := &scriptedGenerator{errs: []error{rateLimited, rateLimited, rateLimited}}
	exec := &scriptedExecutor{}
	a := testAgent(gen, exec)
	a.RetryBackoff = time.Millisecond

	turn, err := a.Answer(context.Background(), "list the accounts")
	if err != nil {
		t.Fatalf("Answer() error = %v", err)
	}
	if turn.Status != StatusExhaustedRetries {
		t.Fatalf("status = %s, want %s", turn.Status, StatusExhaustedRetries)
	}
	if turn.ErrorReason != llm.ReasonRateLimited {
		t.Fatalf("error reason = %s, want %s", turn.ErrorReason, llm.ReasonRateLimited)
	}
	if exec.calls != 0 {
		t.Fatalf("executor calls = %d, want 0", exec.calls)
	}
}

func TestAnswerRejectsEmptyQuestion(t *testing.T) {
	gen := &scriptedGenerator{}
	a := testAgent(gen, &scriptedExecutor{})

	if _, err := a.Answer(context.Background(), "   "); err != ErrEmptyQuestion {
		t.Fatalf("Answer() error = %v, want ErrEmptyQuestion", err)
	}
	if len(gen.prompts) != 0 {
		t.Fatal("generator called for an empty question")
	}
}

func TestAnswerRecordsCompletedTurn(t *testing.T) {
	gen := &scriptedGenerator{outputs: []string{"SELECT account FROM accounts"}}
	recorder := &capturingRecorder{}
	a := testAgent(gen, &scriptedExecutor{})
	a.Recorder = recorder

	turn, err := a.Answer(context.Background(), "list the accounts")
	if err != nil {
		t.Fatalf("Answer() error = %v", err)
	}
	if len(recorder.turns) != 1 {
		t.Fatalf("recorded turns = %d, want 1", len(recorder.turns))
	}
	if recorder.turns[0].ID != turn.ID {
		t.Fatalf("recorded turn id = %s, want %s", recorder.turns[0].ID, turn.ID)
	}
}

type staticSummarizer struct {
	summary string
}

func (s *staticSummarizer) Summarize(ctx context.Context, question string, columns []string, rows [][]any) (string, error) {
	return s.summary, nil
}

func TestAnswerAttachesSummaryWhenEnabled(t *testing.T) {
	gen := &scriptedGenerator{outputs: []string{"SELECT account FROM accounts"}}
	a := testAgent(gen, &scriptedExecutor{})
	a.Summarizer = &staticSummarizer{summary: "one account matched."}

	turn, err := a.Answer(context.Background(), "list the accounts")
	if err != nil {
		t.Fatalf("Answer() error = %v", err)
	}
	if turn.Summary != "one account matched." {
		t.Fatalf("summary = %q", turn.Summary)
	}
}
