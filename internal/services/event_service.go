package services

import (
	"context"
	"fmt"
	"time"

	"github.com/bradleygolden/userapi/internal/database"
	"github.com/bradleygolden/userapi/internal/models"
	"github.com/google/uuid"
)

const (
	defaultEventLimit = 20
	maxEventLimit     = 100
)

// EventServiceProvider defines the interface for event services.
type EventServiceProvider interface {
	RecordEvent(ctx context.Context, eventType, message string, userID *int64) error
	GetRecentEvents(ctx context.Context, limit int) ([]models.Event, error)
}

// EventService provides business logic for event management.
type EventService struct {
	db  *database.DB
	now func() time.Time
}

// NewEventService creates a new EventService.
func NewEventService(db *database.DB) *EventService {
	return &EventService{db: db, now: time.Now}
}

// RecordEvent logs a new event to the database.
func (s *EventService) RecordEvent(ctx context.Context, eventType, message string, userID *int64) error {
	event := models.Event{
		ID:        uuid.New().String(),
		Type:      eventType,
		Message:   message,
		UserID:    userID,
		CreatedAt: s.now().UTC(),
	}

	query := s.db.Rebind("INSERT INTO events (id, type, message, user_id, created_at) VALUES (?, ?, ?, ?, ?)")
	if _, err := s.db.ExecContext(ctx, query, event.ID, event.Type, event.Message, event.UserID, event.CreatedAt.UnixMilli()); err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

// GetRecentEvents retrieves the most recent events, newest first.
// Non-positive limits use the default; large limits are capped.
func (s *EventService) GetRecentEvents(ctx context.Context, limit int) ([]models.Event, error) {
	if limit <= 0 {
		limit = defaultEventLimit
	}
	if limit > maxEventLimit {
		limit = maxEventLimit
	}

	query := s.db.Rebind("SELECT id, type, message, user_id, created_at FROM events ORDER BY created_at DESC, id LIMIT ?")
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	events := []models.Event{}
	for rows.Next() {
		var event models.Event
		var createdAt int64
		if err := rows.Scan(&event.ID, &event.Type, &event.Message, &event.UserID, &createdAt); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		event.CreatedAt = time.UnixMilli(createdAt).UTC()
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return events, nil
}

var _ EventServiceProvider = (*EventService)(nil)
