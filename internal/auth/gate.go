package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/bradleygolden/userapi/internal/models"
	"github.com/bradleygolden/userapi/internal/requestctx"
	"github.com/bradleygolden/userapi/internal/services"
	"github.com/rs/zerolog/log"
)

// ErrUnauthenticated is returned when no valid principal can be resolved.
var ErrUnauthenticated = errors.New("unauthenticated")

// UserLookup is the read side of the credential store the gate depends on.
type UserLookup interface {
	GetUserByID(ctx context.Context, id int64) (models.User, error)
	GetUserByUsername(ctx context.Context, username string) (models.User, error)
}

// Credentials are the authentication inputs supplied with a request.
// Identifier is either a username or a token; Secret is the password that goes with a username.
type Credentials struct {
	Identifier string
	Secret     string
	QueryToken string
}

// Gate resolves the principal of an inbound request.
type Gate struct {
	users  UserLookup
	tokens *TokenService
	hasher *Hasher
}

// NewGate creates a new Gate.
func NewGate(users UserLookup, tokens *TokenService, hasher *Hasher) *Gate {
	return &Gate{users: users, tokens: tokens, hasher: hasher}
}

// Authenticate resolves credentials to a user. A token in the identifier slot
// wins; with no identifier at all the query token is tried; otherwise the
// identifier and secret are checked as a username and password.
// Any failure to resolve a principal returns ErrUnauthenticated.
func (g *Gate) Authenticate(ctx context.Context, c Credentials) (models.User, error) {
	if c.Identifier != "" {
		user, err := g.resolveToken(ctx, c.Identifier)
		if err == nil {
			return user, nil
		}
		if !isAuthFailure(err) {
			return models.User{}, err
		}
		return g.resolvePassword(ctx, c.Identifier, c.Secret)
	}

	if c.QueryToken != "" {
		user, err := g.resolveToken(ctx, c.QueryToken)
		if err == nil {
			return user, nil
		}
		if !isAuthFailure(err) {
			return models.User{}, err
		}
	}
	return models.User{}, ErrUnauthenticated
}

// TokenValid reports whether token verifies and belongs to an existing user.
// When username is non-nil the token's user must also carry that username.
func (g *Gate) TokenValid(ctx context.Context, token string, username *string) bool {
	user, err := g.resolveToken(ctx, token)
	if err != nil {
		if !isAuthFailure(err) {
			log.Error().Err(err).Msg("Failed to validate token")
		}
		return false
	}
	return username == nil || user.Username == *username
}

func (g *Gate) resolveToken(ctx context.Context, token string) (models.User, error) {
	userID, err := g.tokens.Verify(token)
	if err != nil {
		log.Debug().Err(err).Msg("Token rejected")
		return models.User{}, err
	}
	user, err := g.users.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			return models.User{}, ErrUnauthenticated
		}
		return models.User{}, fmt.Errorf("load token principal: %w", err)
	}
	return user, nil
}

func (g *Gate) resolvePassword(ctx context.Context, username, password string) (models.User, error) {
	user, err := g.users.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			return models.User{}, ErrUnauthenticated
		}
		return models.User{}, fmt.Errorf("load user %q: %w", username, err)
	}
	if !g.hasher.Verify(password, user.PasswordHash) {
		return models.User{}, ErrUnauthenticated
	}
	return user, nil
}

func isAuthFailure(err error) bool {
	return errors.Is(err, ErrTokenInvalid) || errors.Is(err, ErrUnauthenticated)
}

// CredentialsFromRequest extracts credentials from the Authorization header
// (Basic or Bearer) and the "token" query parameter.
func CredentialsFromRequest(r *http.Request) Credentials {
	c := Credentials{QueryToken: r.URL.Query().Get("token")}
	if username, password, ok := r.BasicAuth(); ok {
		c.Identifier = username
		c.Secret = password
		return c
	}

	header := strings.TrimSpace(r.Header.Get("Authorization"))
	const bearer = "bearer "
	if len(header) > len(bearer) && strings.EqualFold(header[:len(bearer)], bearer) {
		c.Identifier = strings.TrimSpace(header[len(bearer):])
	}
	return c
}

// Middleware protects a handler. The resolved principal is stored in the
// request context; unauthenticated requests never reach next.
func (g *Gate) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, err := g.Authenticate(r.Context(), CredentialsFromRequest(r))
		if err != nil {
			if errors.Is(err, ErrUnauthenticated) {
				log.Warn().Str("remote_addr", r.RemoteAddr).Str("path", r.URL.Path).Msg("Unauthenticated request")
				w.Header().Set("WWW-Authenticate", `Basic realm="Authentication Required"`)
				writeAuthError(w, http.StatusUnauthorized, "Unauthorized Access")
				return
			}
			log.Error().Err(err).Str("path", r.URL.Path).Msg("Failed to authenticate request")
			writeAuthError(w, http.StatusInternalServerError, "Internal server error")
			return
		}

		log.Debug().Int64("user_id", user.ID).Str("username", user.Username).Msg("Authenticated request")
		ctx := requestctx.WithPrincipal(r.Context(), user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func writeAuthError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(map[string]string{"error": message}); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}
