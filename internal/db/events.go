package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// CalendarEvent maps a task to the external calendar event created for it.
type CalendarEvent struct {
	TaskID   string `json:"task_id"`
	Provider string `json:"provider"`
	EventID  string `json:"event_id"`
}

// SaveCalendarEvent records the external event created for a task.
func (db *DB) SaveCalendarEvent(ctx context.Context, taskID, provider, eventID string) error {
	query := `INSERT OR REPLACE INTO calendar_events (task_id, provider, event_id, created_at) VALUES (?, ?, ?, ?)`
	_, err := db.ExecContext(ctx, query, taskID, provider, eventID, time.Now().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to save calendar event for %s: %w", taskID, err)
	}

	db.triggerChange(ctx)
	return nil
}

// GetCalendarEvent returns the event mapping for a task, or nil, nil
// when the task has no synced event.
func (db *DB) GetCalendarEvent(ctx context.Context, taskID string) (*CalendarEvent, error) {
	ev := &CalendarEvent{TaskID: taskID}
	err := db.QueryRowContext(ctx,
		`SELECT provider, event_id FROM calendar_events WHERE task_id = ?`, taskID,
	).Scan(&ev.Provider, &ev.EventID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get calendar event for %s: %w", taskID, err)
	}
	return ev, nil
}

// DeleteCalendarEvent removes the event mapping for a task.
func (db *DB) DeleteCalendarEvent(ctx context.Context, taskID string) error {
	_, err := db.ExecContext(ctx, `DELETE FROM calendar_events WHERE task_id = ?`, taskID)
	if err != nil {
		return fmt.Errorf("failed to delete calendar event for %s: %w", taskID, err)
	}

	db.triggerChange(ctx)
	return nil
}
