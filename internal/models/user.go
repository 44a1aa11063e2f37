package models

// User represents a user account in the system.
type User struct {
	ID           int64   `json:"id"`
	Username     string  `json:"username"`
	Email        *string `json:"email"`
	PasswordHash string  `json:"-"` // Never expose this to the client
	Avatar       *string `json:"avatar"`
}

// UserView is the public representation of a User.
// Fields are listed explicitly so the password hash can never leak into a response.
type UserView struct {
	ID       int64   `json:"id"`
	Username string  `json:"username"`
	Email    *string `json:"email"`
	Avatar   *string `json:"avatar"`
}

// View projects the user onto its public representation.
func (u User) View() UserView {
	return UserView{
		ID:       u.ID,
		Username: u.Username,
		Email:    u.Email,
		Avatar:   u.Avatar,
	}
}

// Views projects a slice of users. It never returns nil so an empty list encodes as [].
func Views(users []User) []UserView {
	out := make([]UserView, 0, len(users))
	for _, u := range users {
		out = append(out, u.View())
	}
	return out
}
