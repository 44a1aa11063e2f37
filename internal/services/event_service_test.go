package services

import (
	"context"
	"fmt"
	"testing"
	"time"
)

func TestEventServiceRecentOrderAndLimit(t *testing.T) {
	s := NewEventService(newTestDB(t))
	ctx := context.Background()

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 25; i++ {
		at := base.Add(time.Duration(i) * time.Second)
		s.now = func() time.Time { return at }
		if err := s.RecordEvent(ctx, "test", fmt.Sprintf("event %d", i), nil); err != nil {
			t.Fatalf("RecordEvent: %v", err)
		}
	}

	got, err := s.GetRecentEvents(ctx, 0)
	if err != nil {
		t.Fatalf("GetRecentEvents: %v", err)
	}
	if len(got) != defaultEventLimit {
		t.Fatalf("len = %d, want %d", len(got), defaultEventLimit)
	}
	if got[0].Message != "event 24" {
		t.Fatalf("newest = %q, want event 24", got[0].Message)
	}
	if !got[0].CreatedAt.Equal(base.Add(24 * time.Second)) {
		t.Fatalf("CreatedAt = %s", got[0].CreatedAt)
	}

	got, _ = s.GetRecentEvents(ctx, 3)
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
	got, _ = s.GetRecentEvents(ctx, 1000)
	if len(got) != 25 {
		t.Fatalf("len = %d, want 25", len(got))
	}
}

func TestEventServiceUserID(t *testing.T) {
	s := NewEventService(newTestDB(t))
	ctx := context.Background()
	id := int64(7)

	if err := s.RecordEvent(ctx, "token.issued", "issued", &id); err != nil {
		t.Fatalf("RecordEvent: %v", err)
	}
	got, err := s.GetRecentEvents(ctx, 1)
	if err != nil {
		t.Fatalf("GetRecentEvents: %v", err)
	}
	if len(got) != 1 || got[0].UserID == nil || *got[0].UserID != 7 {
		t.Fatalf("events = %+v", got)
	}
	if got[0].ID == "" {
		t.Fatal("expected a generated id")
	}
}
