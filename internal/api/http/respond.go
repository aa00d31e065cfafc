package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/mind-engage/mindengage-learner/internal/backend"
	"github.com/mind-engage/mindengage-learner/internal/progress"
)

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// writeBackendError maps an LMS or validation failure onto a gateway status.
// Only a 401 from the LMS means the learner has to sign in again.
func writeBackendError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, progress.ErrInvalidParams):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, progress.ErrNoUser), errors.Is(err, backend.ErrUnauthorized):
		http.Error(w, "not signed in", http.StatusUnauthorized)
	case backend.StatusCode(err) == http.StatusNotFound:
		http.Error(w, "not found", http.StatusNotFound)
	case backend.StatusCode(err) == http.StatusForbidden:
		http.Error(w, "forbidden", http.StatusForbidden)
	default:
		log.Printf("lms: %v", err)
		http.Error(w, "lms unavailable", http.StatusBadGateway)
	}
}
