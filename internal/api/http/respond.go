package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/studyhall/studyhall-lms/internal/lms"
)

var validate = validator.New()

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps the service error taxonomy onto HTTP statuses. Anything
// outside the taxonomy is an internal fault and stays opaque to the client.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, lms.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, lms.ErrAttemptLimit):
		http.Error(w, "you have exceeded the maximum number of attempts for this quiz", http.StatusConflict)
	case errors.Is(err, lms.ErrCourseIncomplete):
		http.Error(w, "you must complete all lessons to receive a certificate", http.StatusConflict)
	case errors.Is(err, lms.ErrAccessDenied):
		http.Error(w, "access denied", http.StatusForbidden)
	case errors.Is(err, lms.ErrConflict):
		http.Error(w, "conflicting write, please retry", http.StatusConflict)
	default:
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

// decodeValid decodes a JSON body and runs struct validation on it.
func decodeValid(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return err
	}
	return validate.Struct(dst)
}
