package api

import (
	"net/http"

	"github.com/dealdesk/dealdesk/internal/auth"
)

func handleSchema(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Catalog == nil {
		writeError(r.Context(), w, http.StatusServiceUnavailable, "CATALOG_UNAVAILABLE", "schema catalog is not configured", true, nil)
		return
	}
	descriptor, err := deps.Catalog.Describe(r.Context())
	if err != nil {
		writeError(r.Context(), w, http.StatusServiceUnavailable, "SCHEMA_UNAVAILABLE", err.Error(), true, nil)
		return
	}
	writeJSON(w, http.StatusOK, descriptor)
}

// handleSchemaRefresh rebuilds the cached descriptor. Refresh changes what
// every subsequent turn sees, so it is restricted to the admin role when an
// identity is present.
func handleSchemaRefresh(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Catalog == nil {
		writeError(r.Context(), w, http.StatusServiceUnavailable, "CATALOG_UNAVAILABLE", "schema catalog is not configured", true, nil)
		return
	}
	if identity, ok := auth.IdentityFromContext(r.Context()); ok && !identity.HasRole("admin") {
		writeError(r.Context(), w, http.StatusForbidden, "FORBIDDEN", "schema refresh requires the admin role", false, nil)
		return
	}
	descriptor, err := deps.Catalog.Refresh(r.Context())
	if err != nil {
		writeError(r.Context(), w, http.StatusServiceUnavailable, "SCHEMA_REFRESH_FAILED", err.Error(), true, nil)
		return
	}
	writeJSON(w, http.StatusOK, descriptor)
}
