package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/inferahq/infera/internal/core"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeServiceError maps domain errors onto HTTP statuses. Unknown errors
// surface as 500 without leaking their text.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, core.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, core.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, core.ErrNoSourcesSelected):
		writeError(w, http.StatusBadRequest, "at least one source must be selected")
	case errors.Is(err, core.ErrUnsupportedContentType):
		writeError(w, http.StatusBadRequest, "unsupported file type")
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func userID(r *http.Request) (string, bool) {
	id, ok := r.Context().Value("user_id").(string)
	return id, ok
}
