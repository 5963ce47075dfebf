package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/mind-engage/mindengage-loader/internal/content"
	"github.com/mind-engage/mindengage-loader/internal/form"
	"github.com/mind-engage/mindengage-loader/internal/payload"
	"github.com/mind-engage/mindengage-loader/internal/session"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeErr maps domain errors onto status codes. An unfinished form is a
// conflict and carries the pending step in the body.
func writeErr(w http.ResponseWriter, err error) {
	var inc *form.Incomplete
	switch {
	case errors.As(err, &inc):
		writeJSON(w, http.StatusConflict, map[string]any{"error": "not ready", "pending": inc})
	case errors.Is(err, session.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, form.ErrStepLocked):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, payload.ErrSchemaViolation):
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
	case errors.Is(err, session.ErrWrongCategory),
		errors.Is(err, form.ErrUnknownSubsheet),
		errors.Is(err, form.ErrNegativeScore),
		errors.Is(err, content.ErrUnknownCategory),
		errors.Is(err, content.ErrUnknownEnvironment):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
