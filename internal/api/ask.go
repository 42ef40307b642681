package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dealdesk/dealdesk/internal/agent"
)

type askRequest struct {
	Question string `json:"question"`
}

type askResponse struct {
	TurnID      string   `json:"turn_id"`
	Question    string   `json:"question"`
	SQL         string   `json:"sql,omitempty"`
	Columns     []string `json:"columns,omitempty"`
	Rows        [][]any  `json:"rows,omitempty"`
	RowCount    int      `json:"row_count"`
	Truncated   bool     `json:"row_count_truncated"`
	Status      string   `json:"status"`
	Attempts    int      `json:"attempts"`
	ErrorReason string   `json:"error_reason,omitempty"`
	Summary     string   `json:"summary,omitempty"`
	ElapsedMS   int64    `json:"elapsed_ms"`
}

// handleAsk runs a full agent turn. Every terminal turn returns 200; the
// outcome is carried in the status field so clients see rejected and
// exhausted turns with the same shape as answered ones.
func handleAsk(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Agent == nil {
		writeError(r.Context(), w, http.StatusServiceUnavailable, "AGENT_UNAVAILABLE", "agent is not configured", true, nil)
		return
	}

	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_REQUEST", "request body must be JSON with a question field", false, nil)
		return
	}

	turn, err := deps.Agent.Answer(r.Context(), req.Question)
	if err != nil {
		if errors.Is(err, agent.ErrEmptyQuestion) {
			writeError(r.Context(), w, http.StatusBadRequest, "EMPTY_QUESTION", "question must not be empty", false, nil)
			return
		}
		writeError(r.Context(), w, http.StatusServiceUnavailable, "AGENT_FAILURE", err.Error(), true, nil)
		return
	}

	writeJSON(w, http.StatusOK, turnResponse(turn))
}

func turnResponse(turn *agent.Turn) askResponse {
	resp := askResponse{
		TurnID:      turn.ID,
		Question:    turn.Question,
		SQL:         turn.SQL,
		Status:      turn.Status,
		Attempts:    turn.Attempts,
		ErrorReason: turn.ErrorReason,
		Summary:     turn.Summary,
		ElapsedMS:   turn.Elapsed.Milliseconds(),
	}
	if turn.Result != nil {
		resp.Columns = turn.Result.Columns
		resp.Rows = turn.Result.Rows
		resp.RowCount = turn.Result.RowCount
		resp.Truncated = turn.Result.Truncated
	}
	return resp
}
