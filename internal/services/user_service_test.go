package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/bradleygolden/userapi/internal/models"
	"golang.org/x/crypto/bcrypt"
)

func newTestUserService(t *testing.T) (*UserService, *EventService) {
	t.Helper()
	db := newTestDB(t)
	events := NewEventService(db)
	return NewUserService(db, bcryptHasher{}, events), events
}

func mustCreate(t *testing.T, s *UserService, username, password string) models.User {
	t.Helper()
	user, err := s.CreateUser(context.Background(), CreateUserInput{Username: username, Password: password})
	if err != nil {
		t.Fatalf("CreateUser(%q): %v", username, err)
	}
	return user
}

func TestCreateUser(t *testing.T) {
	s, _ := newTestUserService(t)
	ctx := context.Background()

	user, err := s.CreateUser(ctx, CreateUserInput{
		Username: "alice",
		Password: "secret",
		Email:    "alice@example.com",
	})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if user.ID <= 0 {
		t.Fatalf("expected an assigned id, got %d", user.ID)
	}
	if user.Email == nil || *user.Email != "alice@example.com" {
		t.Fatalf("Email = %v", user.Email)
	}
	if user.Avatar != nil {
		t.Fatalf("Avatar = %v, want nil", *user.Avatar)
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("secret")) != nil {
		t.Fatal("stored hash does not match password")
	}

	got, err := s.GetUserByUsername(ctx, "alice")
	if err != nil {
		t.Fatalf("GetUserByUsername: %v", err)
	}
	if got.ID != user.ID || got.PasswordHash != user.PasswordHash {
		t.Fatalf("stored user = %+v, want %+v", got, user)
	}
	byID, err := s.GetUserByID(ctx, user.ID)
	if err != nil || byID.Username != "alice" {
		t.Fatalf("GetUserByID = %+v, %v", byID, err)
	}
}

func TestCreateUserDuplicateLeavesOriginal(t *testing.T) {
	s, _ := newTestUserService(t)
	ctx := context.Background()
	original := mustCreate(t, s, "alice", "secret")

	_, err := s.CreateUser(ctx, CreateUserInput{Username: "alice", Password: "other"})
	if !errors.Is(err, ErrUsernameTaken) {
		t.Fatalf("duplicate CreateUser = %v, want ErrUsernameTaken", err)
	}

	got, err := s.GetUserByUsername(ctx, "alice")
	if err != nil {
		t.Fatalf("GetUserByUsername: %v", err)
	}
	if got.PasswordHash != original.PasswordHash {
		t.Fatal("duplicate create changed the stored password")
	}
	users, _ := s.ListUsers(ctx)
	if len(users) != 1 {
		t.Fatalf("len(users) = %d, want 1", len(users))
	}
}

func TestCreateUserValidation(t *testing.T) {
	s, _ := newTestUserService(t)

	tests := []struct {
		name  string
		in    CreateUserInput
		field string
	}{
		{"missing username", CreateUserInput{Password: "secret"}, "username"},
		{"missing password", CreateUserInput{Username: "alice"}, "password"},
		{"bad email", CreateUserInput{Username: "alice", Password: "secret", Email: "nope"}, "email"},
		{"bad avatar", CreateUserInput{Username: "alice", Password: "secret", Avatar: "not a url"}, "avatar"},
		{"slash in username", CreateUserInput{Username: "a/b", Password: "secret"}, "username"},
		{"colon in username", CreateUserInput{Username: "a:b", Password: "secret"}, "username"},
		{"password over 72 bytes", CreateUserInput{Username: "alice", Password: strings.Repeat("é", 40)}, "password"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.CreateUser(context.Background(), tt.in)
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("err = %v, want *ValidationError", err)
			}
			if !errors.Is(err, ErrValidation) {
				t.Fatal("validation error should match ErrValidation")
			}
			if _, ok := verr.Fields[tt.field]; !ok {
				t.Fatalf("fields = %v, want %q", verr.Fields, tt.field)
			}
		})
	}
}

func TestCreateUserPasswordAtByteLimit(t *testing.T) {
	s, _ := newTestUserService(t)
	// 36 two-byte runes are exactly 72 bytes.
	if _, err := s.CreateUser(context.Background(), CreateUserInput{Username: "alice", Password: strings.Repeat("é", 36)}); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	_, err := s.UpdateUser(context.Background(), "alice", UpdateUserInput{NewPassword: strings.Repeat("é", 37)})
	var verr *ValidationError
	if !errors.As(err, &verr) || verr.Fields["new_password"] != "must be at most 72 bytes" {
		t.Fatalf("UpdateUser = %v, want new_password byte limit error", err)
	}
}

func TestUpdateUserOnlyEmail(t *testing.T) {
	s, _ := newTestUserService(t)
	ctx := context.Background()
	original := mustCreate(t, s, "alice", "secret")

	updated, err := s.UpdateUser(ctx, "alice", UpdateUserInput{NewEmail: "a@example.com"})
	if err != nil {
		t.Fatalf("UpdateUser: %v", err)
	}
	if updated.Username != "alice" {
		t.Fatalf("Username = %q, want alice", updated.Username)
	}

	got, _ := s.GetUserByUsername(ctx, "alice")
	if got.Email == nil || *got.Email != "a@example.com" {
		t.Fatalf("Email = %v", got.Email)
	}
	if got.PasswordHash != original.PasswordHash {
		t.Fatal("password hash changed without new_password")
	}
}

func TestUpdateUserRenameAndPassword(t *testing.T) {
	s, _ := newTestUserService(t)
	ctx := context.Background()
	original := mustCreate(t, s, "alice", "secret")

	_, err := s.UpdateUser(ctx, "alice", UpdateUserInput{NewUsername: "alicia", NewPassword: "changed"})
	if err != nil {
		t.Fatalf("UpdateUser: %v", err)
	}

	if _, err := s.GetUserByUsername(ctx, "alice"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("old username lookup = %v, want ErrUserNotFound", err)
	}
	got, err := s.GetUserByUsername(ctx, "alicia")
	if err != nil {
		t.Fatalf("GetUserByUsername: %v", err)
	}
	if got.ID != original.ID {
		t.Fatalf("ID changed from %d to %d", original.ID, got.ID)
	}
	if bcrypt.CompareHashAndPassword([]byte(got.PasswordHash), []byte("changed")) != nil {
		t.Fatal("new password does not verify")
	}
}

func TestUpdateUserRenameCollision(t *testing.T) {
	s, _ := newTestUserService(t)
	ctx := context.Background()
	mustCreate(t, s, "alice", "secret")
	mustCreate(t, s, "bob", "secret")

	_, err := s.UpdateUser(ctx, "bob", UpdateUserInput{NewUsername: "alice"})
	if !errors.Is(err, ErrUsernameTaken) {
		t.Fatalf("rename collision = %v, want ErrUsernameTaken", err)
	}
	if _, err := s.GetUserByUsername(ctx, "bob"); err != nil {
		t.Fatalf("bob should still exist: %v", err)
	}
}

func TestUpdateUserNotFound(t *testing.T) {
	s, _ := newTestUserService(t)
	_, err := s.UpdateUser(context.Background(), "ghost", UpdateUserInput{NewEmail: "g@example.com"})
	if !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("err = %v, want ErrUserNotFound", err)
	}
}

func TestDeleteUser(t *testing.T) {
	s, _ := newTestUserService(t)
	ctx := context.Background()
	mustCreate(t, s, "alice", "secret")

	if err := s.DeleteUser(ctx, "alice"); err != nil {
		t.Fatalf("DeleteUser: %v", err)
	}
	if _, err := s.GetUserByUsername(ctx, "alice"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("after delete = %v, want ErrUserNotFound", err)
	}
	if err := s.DeleteUser(ctx, "alice"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("second delete = %v, want ErrUserNotFound", err)
	}
}

func TestListUsersEmpty(t *testing.T) {
	s, _ := newTestUserService(t)
	users, err := s.ListUsers(context.Background())
	if err != nil {
		t.Fatalf("ListUsers: %v", err)
	}
	if users == nil || len(users) != 0 {
		t.Fatalf("users = %v, want empty non-nil slice", users)
	}
}

func TestLifecycleRecordsEvents(t *testing.T) {
	s, events := newTestUserService(t)
	ctx := context.Background()
	mustCreate(t, s, "alice", "secret")
	if _, err := s.UpdateUser(ctx, "alice", UpdateUserInput{NewEmail: "a@example.com"}); err != nil {
		t.Fatalf("UpdateUser: %v", err)
	}
	if err := s.DeleteUser(ctx, "alice"); err != nil {
		t.Fatalf("DeleteUser: %v", err)
	}

	got, err := events.GetRecentEvents(ctx, 0)
	if err != nil {
		t.Fatalf("GetRecentEvents: %v", err)
	}
	types := map[string]bool{}
	for _, e := range got {
		types[e.Type] = true
	}
	for _, want := range []string{models.EventUserCreated, models.EventUserUpdated, models.EventUserDeleted} {
		if !types[want] {
			t.Errorf("missing %s event in %v", want, got)
		}
	}
}

type failingRecorder struct{}

func (failingRecorder) RecordEvent(context.Context, string, string, *int64) error {
	return errors.New("events table unavailable")
}

func TestEventFailureDoesNotFailLifecycle(t *testing.T) {
	s := NewUserService(newTestDB(t), bcryptHasher{}, failingRecorder{})
	if _, err := s.CreateUser(context.Background(), CreateUserInput{Username: "alice", Password: "secret"}); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
}
