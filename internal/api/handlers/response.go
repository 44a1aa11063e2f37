package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/bradleygolden/userapi/internal/services"
	"github.com/rs/zerolog/log"
)

type errorResponse struct {
	Error   string            `json:"error"`
	Details map[string]string `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// writeServiceError maps a service error to its HTTP status. Unexpected
// errors are logged and reported without detail.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error, msg string) {
	var verr *services.ValidationError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Invalid request", Details: verr.Fields})
	case errors.Is(err, services.ErrUsernameTaken):
		writeError(w, http.StatusBadRequest, "Username already exists")
	case errors.Is(err, services.ErrUserNotFound):
		writeError(w, http.StatusNotFound, "User not found")
	default:
		log.Error().Err(err).Str("path", r.URL.Path).Msg(msg)
		writeError(w, http.StatusInternalServerError, "Internal server error")
	}
}

// decodeParams fills dst from a JSON body when the request declares one,
// otherwise from the query string and form body using each field's json tag.
func decodeParams(r *http.Request, dst any, fromForm func(get func(string) string)) error {
	if strings.HasPrefix(strings.ToLower(r.Header.Get("Content-Type")), "application/json") {
		err := json.NewDecoder(r.Body).Decode(dst)
		if err != nil && !errors.Is(err, io.EOF) {
			return err
		}
		return nil
	}
	if err := r.ParseForm(); err != nil {
		return err
	}
	fromForm(r.Form.Get)
	return nil
}
