package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/bradleygolden/userapi/internal/database"
	"github.com/bradleygolden/userapi/internal/models"
	"github.com/bradleygolden/userapi/internal/requestctx"
	"github.com/rs/zerolog/log"
)

// PasswordHasher produces the stored form of a password.
type PasswordHasher interface {
	Hash(plain string) (string, error)
}

// EventRecorder receives activity events from the user service.
type EventRecorder interface {
	RecordEvent(ctx context.Context, eventType, message string, userID *int64) error
}

// UserServiceProvider defines the interface for user services.
type UserServiceProvider interface {
	ListUsers(ctx context.Context) ([]models.User, error)
	GetUserByID(ctx context.Context, id int64) (models.User, error)
	GetUserByUsername(ctx context.Context, username string) (models.User, error)
	CreateUser(ctx context.Context, in CreateUserInput) (models.User, error)
	UpdateUser(ctx context.Context, username string, in UpdateUserInput) (models.User, error)
	DeleteUser(ctx context.Context, username string) error
}

// CreateUserInput holds the fields accepted when creating a user.
type CreateUserInput struct {
	Username string `json:"username" validate:"required,username"`
	Password string `json:"password" validate:"required,pwd"`
	Email    string `json:"email" validate:"omitempty,email"`
	Avatar   string `json:"avatar" validate:"omitempty,url"`
}

// UpdateUserInput holds the fields accepted when updating a user.
// Empty fields are left untouched.
type UpdateUserInput struct {
	NewUsername string `json:"new_username" validate:"omitempty,username"`
	NewPassword string `json:"new_password" validate:"omitempty,pwd"`
	NewEmail    string `json:"new_email" validate:"omitempty,email"`
	NewAvatar   string `json:"new_avatar" validate:"omitempty,url"`
}

// UserService provides business logic for user management.
type UserService struct {
	db     *database.DB
	hasher PasswordHasher
	events EventRecorder
}

// NewUserService creates a new UserService. events may be nil.
func NewUserService(db *database.DB, hasher PasswordHasher, events EventRecorder) *UserService {
	return &UserService{db: db, hasher: hasher, events: events}
}

const selectUser = "SELECT id, username, email, password_hash, avatar FROM users"

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (models.User, error) {
	var user models.User
	var hash sql.NullString
	if err := row.Scan(&user.ID, &user.Username, &user.Email, &hash, &user.Avatar); err != nil {
		return models.User{}, err
	}
	user.PasswordHash = hash.String
	return user, nil
}

// ListUsers retrieves all users ordered by ID.
func (s *UserService) ListUsers(ctx context.Context) ([]models.User, error) {
	rows, err := s.db.QueryContext(ctx, selectUser+" ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	defer rows.Close()

	users := []models.User{}
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", err)
	}
	return users, nil
}

// GetUserByID retrieves a single user by their ID.
func (s *UserService) GetUserByID(ctx context.Context, id int64) (models.User, error) {
	row := s.db.QueryRowContext(ctx, s.db.Rebind(selectUser+" WHERE id = ?"), id)
	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.User{}, ErrUserNotFound
		}
		return models.User{}, fmt.Errorf("get user %d: %w", id, err)
	}
	return user, nil
}

// GetUserByUsername retrieves a single user by exact username, including the password hash.
func (s *UserService) GetUserByUsername(ctx context.Context, username string) (models.User, error) {
	row := s.db.QueryRowContext(ctx, s.db.Rebind(selectUser+" WHERE username = ?"), username)
	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.User{}, ErrUserNotFound
		}
		return models.User{}, fmt.Errorf("get user %q: %w", username, err)
	}
	return user, nil
}

// CreateUser validates the input, hashes the password and stores a new user.
// Username uniqueness is enforced by the schema.
func (s *UserService) CreateUser(ctx context.Context, in CreateUserInput) (models.User, error) {
	if err := validateInput(in); err != nil {
		return models.User{}, err
	}

	hashedPassword, err := s.hasher.Hash(in.Password)
	if err != nil {
		return models.User{}, fmt.Errorf("failed to hash password: %w", err)
	}

	user := models.User{
		Username:     in.Username,
		Email:        optional(in.Email),
		PasswordHash: hashedPassword,
		Avatar:       optional(in.Avatar),
	}

	query := s.db.Rebind("INSERT INTO users (username, email, password_hash, avatar) VALUES (?, ?, ?, ?) RETURNING id")
	err = s.db.QueryRowContext(ctx, query, user.Username, user.Email, user.PasswordHash, user.Avatar).Scan(&user.ID)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return models.User{}, ErrUsernameTaken
		}
		return models.User{}, fmt.Errorf("insert user: %w", err)
	}

	s.record(ctx, models.EventUserCreated, fmt.Sprintf("User %q created", user.Username))
	return user, nil
}

// UpdateUser applies the non-empty fields of in to the user named username.
// Renaming onto an existing username fails with ErrUsernameTaken.
func (s *UserService) UpdateUser(ctx context.Context, username string, in UpdateUserInput) (models.User, error) {
	if err := validateInput(in); err != nil {
		return models.User{}, err
	}

	user, err := s.GetUserByUsername(ctx, username)
	if err != nil {
		return models.User{}, err
	}

	if in.NewUsername != "" && in.NewUsername != user.Username {
		user.Username = in.NewUsername
	}
	if in.NewEmail != "" {
		user.Email = optional(in.NewEmail)
	}
	if in.NewAvatar != "" {
		user.Avatar = optional(in.NewAvatar)
	}
	if in.NewPassword != "" {
		hashedPassword, err := s.hasher.Hash(in.NewPassword)
		if err != nil {
			return models.User{}, fmt.Errorf("failed to hash new password: %w", err)
		}
		user.PasswordHash = hashedPassword
	}

	query := s.db.Rebind("UPDATE users SET username = ?, email = ?, password_hash = ?, avatar = ? WHERE id = ?")
	res, err := s.db.ExecContext(ctx, query, user.Username, user.Email, nullString(user.PasswordHash), user.Avatar, user.ID)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return models.User{}, ErrUsernameTaken
		}
		return models.User{}, fmt.Errorf("update user %d: %w", user.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return models.User{}, fmt.Errorf("update user %d: rows affected: %w", user.ID, err)
	}
	if n == 0 {
		return models.User{}, ErrUserNotFound
	}

	s.record(ctx, models.EventUserUpdated, fmt.Sprintf("User %q updated", user.Username))
	return user, nil
}

// DeleteUser permanently removes a user.
func (s *UserService) DeleteUser(ctx context.Context, username string) error {
	user, err := s.GetUserByUsername(ctx, username)
	if err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx, s.db.Rebind("DELETE FROM users WHERE id = ?"), user.ID)
	if err != nil {
		return fmt.Errorf("delete user %d: %w", user.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete user %d: rows affected: %w", user.ID, err)
	}
	if n == 0 {
		return ErrUserNotFound
	}

	s.record(ctx, models.EventUserDeleted, fmt.Sprintf("User %q deleted", user.Username))
	return nil
}

func (s *UserService) record(ctx context.Context, eventType, message string) {
	if s.events == nil {
		return
	}
	if err := s.events.RecordEvent(ctx, eventType, message, requestctx.PrincipalID(ctx)); err != nil {
		log.Warn().Err(err).Str("type", eventType).Msg("Failed to record event")
	}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

var _ UserServiceProvider = (*UserService)(nil)
