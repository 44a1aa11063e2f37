package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/bradleygolden/userapi/internal/auth"
	"github.com/bradleygolden/userapi/internal/models"
	"github.com/bradleygolden/userapi/internal/requestctx"
	"github.com/bradleygolden/userapi/internal/services"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

// TokenHandler issues and validates authentication tokens.
type TokenHandler struct {
	tokens *auth.TokenService
	gate   *auth.Gate
	events services.EventRecorder
}

// NewTokenHandler creates a new TokenHandler. events may be nil.
func NewTokenHandler(tokens *auth.TokenService, gate *auth.Gate, events services.EventRecorder) *TokenHandler {
	return &TokenHandler{tokens: tokens, gate: gate, events: events}
}

type tokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Issue returns a fresh token for the authenticated principal.
func (h *TokenHandler) Issue(w http.ResponseWriter, r *http.Request) {
	user, ok := requestctx.PrincipalFromContext(r.Context())
	if !ok {
		log.Error().Msg("Could not retrieve principal from context")
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	token, expiresAt, err := h.tokens.Issue(user.ID, h.tokens.TTL())
	if err != nil {
		log.Error().Err(err).Int64("user_id", user.ID).Msg("Failed to issue token")
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	if h.events != nil {
		msg := fmt.Sprintf("Token issued for %q", user.Username)
		if err := h.events.RecordEvent(r.Context(), models.EventTokenIssued, msg, &user.ID); err != nil {
			log.Warn().Err(err).Msg("Failed to record event")
		}
	}
	writeJSON(w, http.StatusOK, tokenResponse{Token: token, ExpiresAt: expiresAt.UTC()})
}

// Validate reports whether the token in the path is valid, optionally for a
// given username. It never fails.
func (h *TokenHandler) Validate(w http.ResponseWriter, r *http.Request) {
	var username *string
	if q := r.URL.Query(); q.Has("username") {
		name := q.Get("username")
		username = &name
	}
	valid := h.gate.TokenValid(r.Context(), chi.URLParam(r, "token"), username)
	writeJSON(w, http.StatusOK, map[string]bool{"is_valid": valid})
}
