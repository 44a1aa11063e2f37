package models

import "time"

// Event types recorded by the activity log.
const (
	EventUserCreated = "user.created"
	EventUserUpdated = "user.updated"
	EventUserDeleted = "user.deleted"
	EventTokenIssued = "token.issued"
)

// Event represents a loggable action in the system.
type Event struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"` // e.g., "user.created", "token.issued"
	Message   string    `json:"message"`
	UserID    *int64    `json:"userId,omitempty"` // Acting principal, nil for system events
	CreatedAt time.Time `json:"createdAt"`
}
