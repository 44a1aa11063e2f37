package handlers

import (
	"net/http"
	"net/url"

	"github.com/bradleygolden/userapi/internal/models"
	"github.com/bradleygolden/userapi/internal/services"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

// UserHandler handles HTTP requests for user management.
type UserHandler struct {
	service services.UserServiceProvider
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(service services.UserServiceProvider) *UserHandler {
	return &UserHandler{service: service}
}

// List handles retrieving all users.
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.service.ListUsers(r.Context())
	if err != nil {
		writeServiceError(w, r, err, "Failed to list users")
		return
	}
	writeJSON(w, http.StatusOK, models.Views(users))
}

// Get handles retrieving a user by username.
func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	username, ok := usernameParam(w, r)
	if !ok {
		return
	}
	user, err := h.service.GetUserByUsername(r.Context(), username)
	if err != nil {
		writeServiceError(w, r, err, "Failed to get user")
		return
	}
	writeJSON(w, http.StatusOK, user.View())
}

// Create handles new user creation.
func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in services.CreateUserInput
	err := decodeParams(r, &in, func(get func(string) string) {
		in.Username = get("username")
		in.Password = get("password")
		in.Email = get("email")
		in.Avatar = get("avatar")
	})
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	user, err := h.service.CreateUser(r.Context(), in)
	if err != nil {
		writeServiceError(w, r, err, "Failed to create user")
		return
	}
	log.Info().Int64("user_id", user.ID).Str("username", user.Username).Msg("User created")
	writeJSON(w, http.StatusCreated, user.View())
}

// Update handles changing a user's username, password, email or avatar.
func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	username, ok := usernameParam(w, r)
	if !ok {
		return
	}

	var in services.UpdateUserInput
	err := decodeParams(r, &in, func(get func(string) string) {
		in.NewUsername = get("new_username")
		in.NewPassword = get("new_password")
		in.NewEmail = get("new_email")
		in.NewAvatar = get("new_avatar")
	})
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	user, err := h.service.UpdateUser(r.Context(), username, in)
	if err != nil {
		writeServiceError(w, r, err, "Failed to update user")
		return
	}
	writeJSON(w, http.StatusOK, user.View())
}

// Delete handles the permanent deletion of a user.
func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	username, ok := usernameParam(w, r)
	if !ok {
		return
	}
	if err := h.service.DeleteUser(r.Context(), username); err != nil {
		writeServiceError(w, r, err, "Failed to delete user")
		return
	}
	log.Info().Str("username", username).Msg("User deleted")
	writeJSON(w, http.StatusOK, struct{}{})
}

func usernameParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	username := chi.URLParam(r, "username")
	if r.URL.RawPath == "" {
		return username, true
	}

	// chi routes on RawPath when the client's escaping differs from the
	// default, so the segment is still escaped.
	username, err := url.PathUnescape(username)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid username")
		return "", false
	}
	return username, true
}
