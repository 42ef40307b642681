package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/dealdesk/dealdesk/internal/history"
)

const defaultTurnListLimit = 50

func handleListTurns(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.History == nil {
		writeError(r.Context(), w, http.StatusServiceUnavailable, "HISTORY_UNAVAILABLE", "turn history is not configured", true, nil)
		return
	}

	limit := defaultTurnListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 || parsed > 500 {
			writeError(r.Context(), w, http.StatusBadRequest, "INVALID_LIMIT", "limit must be an integer between 1 and 500", false, nil)
			return
		}
		limit = parsed
	}

	records, err := deps.History.ListRecent(r.Context(), limit)
	if err != nil {
		writeError(r.Context(), w, http.StatusServiceUnavailable, "HISTORY_QUERY_FAILED", err.Error(), true, nil)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"turns": records})
}

func handleGetTurn(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.History == nil {
		writeError(r.Context(), w, http.StatusServiceUnavailable, "HISTORY_UNAVAILABLE", "turn history is not configured", true, nil)
		return
	}

	record, err := deps.History.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, history.ErrNotFound) {
			writeError(r.Context(), w, http.StatusNotFound, "TURN_NOT_FOUND", "no turn with that id", false, nil)
			return
		}
		writeError(r.Context(), w, http.StatusServiceUnavailable, "HISTORY_QUERY_FAILED", err.Error(), true, nil)
		return
	}
	writeJSON(w, http.StatusOK, record)
}
