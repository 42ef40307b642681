package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dealdesk/dealdesk/internal/agent"
	"github.com/dealdesk/dealdesk/internal/auth"
	"github.com/dealdesk/dealdesk/internal/config"
	"github.com/dealdesk/dealdesk/internal/engine"
	"github.com/dealdesk/dealdesk/internal/history"
	"github.com/dealdesk/dealdesk/internal/schema"
)

type fakeAsker struct {
	turn *agent.Turn
	err  error
}

func (f *fakeAsker) Answer(ctx context.Context, question string) (*agent.Turn, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.turn, nil
}

type fakeCatalog struct {
	descriptor schema.Descriptor
	refreshes  int
	err        error
}

func (f *fakeCatalog) Describe(ctx context.Context) (schema.Descriptor, error) {
	return f.descriptor, f.err
}

func (f *fakeCatalog) Refresh(ctx context.Context) (schema.Descriptor, error) {
	f.refreshes++
	return f.descriptor, f.err
}

type fakeHistory struct {
	records []history.Record
	err     error
}

func (f *fakeHistory) Insert(ctx context.Context, record history.Record) error { return nil }

func (f *fakeHistory) Get(ctx context.Context, turnID string) (history.Record, error) {
	if f.err != nil {
		return history.Record{}, f.err
	}
	for _, record := range f.records {
		if record.TurnID == turnID {
			return record, nil
		}
	}
	return history.Record{}, history.ErrNotFound
}

func (f *fakeHistory) ListRecent(ctx context.Context, limit int) ([]history.Record, error) {
	if f.err != nil {
		return nil, f.err
	}
	if limit > len(f.records) {
		limit = len(f.records)
	}
	return f.records[:limit], nil
}

func testConfig() config.Config {
	cfg, err := config.Load("dealdesk-api", func(string) (string, bool) { return "", false })
	if err != nil {
		panic(err)
	}
	return cfg
}

func testDeps() Dependencies {
	return Dependencies{
		Logger: slog.New(slog.NewJSONHandler(io.Discard, nil)),
		Agent: &fakeAsker{turn: &agent.Turn{
			ID:       "turn-1",
			Question: "top accounts",
			SQL:      "SELECT account FROM accounts",
			Status:   agent.StatusAnswered,
			Result: &engine.Result{
				Columns:  []string{"account"},
				Rows:     [][]any{{"Acme Corp"}},
				RowCount: 1,
			},
			Elapsed: 120 * time.Millisecond,
		}},
		Catalog: &fakeCatalog{descriptor: schema.Descriptor{
			Objects: []schema.Object{{Name: "accounts", Kind: schema.KindTable}},
		}},
		History: &fakeHistory{records: []history.Record{
			{TurnID: "turn-1", Question: "top accounts", Status: "answered"},
		}},
	}
}

func TestHealthEndpoint(t *testing.T) {
	handler := NewHandler(testConfig(), testDeps())

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/health", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), `"ok"`) {
		t.Fatalf("body = %s", rr.Body.String())
	}
}

func TestReadyEndpointReportsFailure(t *testing.T) {
	deps := testDeps()
	deps.Readiness = func(ctx context.Context) error { return errors.New("history db unreachable") }
	handler := NewHandler(testConfig(), deps)

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/ready", nil))
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d", rr.Code)
	}
}

func TestAskReturnsTurn(t *testing.T) {
	handler := NewHandler(testConfig(), testDeps())

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/ask", strings.NewReader(`{"question":"top accounts"}`))
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rr.Code, rr.Body.String())
	}
	var resp askResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.TurnID != "turn-1" || resp.Status != "answered" {
		t.Fatalf("response = %+v", resp)
	}
	if resp.RowCount != 1 || len(resp.Rows) != 1 {
		t.Fatalf("rows = %+v", resp)
	}
}

func TestAskRejectsEmptyQuestion(t *testing.T) {
	deps := testDeps()
	deps.Agent = &fakeAsker{err: agent.ErrEmptyQuestion}
	handler := NewHandler(testConfig(), deps)

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/ask", strings.NewReader(`{"question":""}`))
	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "EMPTY_QUESTION") {
		t.Fatalf("body = %s", rr.Body.String())
	}
}

func TestAskRejectsMalformedBody(t *testing.T) {
	handler := NewHandler(testConfig(), testDeps())

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/ask", strings.NewReader("not json"))
	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rr.Code)
	}
}

func TestSchemaEndpointReturnsDescriptor(t *testing.T) {
	handler := NewHandler(testConfig(), testDeps())

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/schema", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "accounts") {
		t.Fatalf("body = %s", rr.Body.String())
	}
}

func TestSchemaRefreshRequiresAdminRole(t *testing.T) {
	cfg := testConfig()
	cfg.Auth.Required = true

	validator, err := auth.NewStaticAPIKeyValidator("ask-key:reps:asker,admin-key:ops:admin|asker")
	if err != nil {
		t.Fatalf("validator setup: %v", err)
	}
	deps := testDeps()
	deps.AuthMiddleware = auth.Middleware(nil, validator)
	handler := NewHandler(cfg, deps)

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/schema/refresh", nil)
	req.Header.Set("X-API-Key", "ask-key")
	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusForbidden {
		t.Fatalf("asker refresh status = %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/v1/schema/refresh", nil)
	req.Header.Set("X-API-Key", "admin-key")
	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("admin refresh status = %d, body = %s", rr.Code, rr.Body.String())
	}
}

func TestProtectedEndpointsRequireKeyWhenAuthEnabled(t *testing.T) {
	cfg := testConfig()
	cfg.Auth.Required = true

	validator, err := auth.NewStaticAPIKeyValidator("ask-key:reps:asker")
	if err != nil {
		t.Fatalf("validator setup: %v", err)
	}
	deps := testDeps()
	deps.AuthMiddleware = auth.Middleware(nil, validator)
	handler := NewHandler(cfg, deps)

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/ask", strings.NewReader(`{"question":"q"}`))
	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("unauthenticated ask status = %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/health", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("health must stay open, status = %d", rr.Code)
	}
}

func TestListTurns(t *testing.T) {
	handler := NewHandler(testConfig(), testDeps())

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/turns?limit=10", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "turn-1") {
		t.Fatalf("body = %s", rr.Body.String())
	}
}

func TestListTurnsRejectsBadLimit(t *testing.T) {
	handler := NewHandler(testConfig(), testDeps())

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/turns?limit=zero", nil))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rr.Code)
	}
}

func TestGetTurnNotFound(t *testing.T) {
	handler := NewHandler(testConfig(), testDeps())

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/turns/unknown", nil))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rr.Code)
	}
}

func TestMetricsEndpointServes(t *testing.T) {
	handler := NewHandler(testConfig(), testDeps())

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/metrics", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
}
