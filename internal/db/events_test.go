package db

import (
	"context"
	"testing"
)

func TestCalendarEventRoundTrip(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	ev, err := db.GetCalendarEvent(ctx, "task-abc")
	if err != nil {
		t.Fatalf("Failed to get missing event: %v", err)
	}
	if ev != nil {
		t.Errorf("Expected nil for missing event, got %+v", ev)
	}

	if err := db.SaveCalendarEvent(ctx, "task-abc", "google", "evt-1"); err != nil {
		t.Fatalf("Failed to save event: %v", err)
	}

	ev, err = db.GetCalendarEvent(ctx, "task-abc")
	if err != nil {
		t.Fatalf("Failed to get event: %v", err)
	}
	if ev == nil || ev.Provider != "google" || ev.EventID != "evt-1" {
		t.Errorf("Unexpected event: %+v", ev)
	}

	// Re-syncing the same task replaces the mapping.
	if err := db.SaveCalendarEvent(ctx, "task-abc", "google", "evt-2"); err != nil {
		t.Fatalf("Failed to replace event: %v", err)
	}
	ev, _ = db.GetCalendarEvent(ctx, "task-abc")
	if ev.EventID != "evt-2" {
		t.Errorf("Expected replaced event id, got %s", ev.EventID)
	}

	if err := db.DeleteCalendarEvent(ctx, "task-abc"); err != nil {
		t.Fatalf("Failed to delete event: %v", err)
	}
	ev, _ = db.GetCalendarEvent(ctx, "task-abc")
	if ev != nil {
		t.Errorf("Expected nil after delete, got %+v", ev)
	}
}
