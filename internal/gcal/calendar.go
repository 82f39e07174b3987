package gcal

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/ldi/pwoa/pkg/models"
)

// taskIDProperty is the private extended property used to find the
// calendar event belonging to a task.
const taskIDProperty = "pwoa_task_id"

// Client is a Google Calendar client that mirrors scheduled tasks as
// calendar events.
type Client struct {
	srv        *calendar.Service
	calendarID string
}

// NewClient creates a calendar client. calendarID is usually "primary".
func NewClient(srv *calendar.Service, calendarID string) *Client {
	return &Client{srv: srv, calendarID: calendarID}
}

// NewService builds an authenticated Calendar service from the OAuth
// client credentials and a previously stored token.
func NewService(ctx context.Context, credentialsJSON, tokenJSON []byte) (*calendar.Service, error) {
	config, err := google.ConfigFromJSON(credentialsJSON, calendar.CalendarEventsScope)
	if err != nil {
		return nil, fmt.Errorf("unable to parse client credentials: %w", err)
	}

	tok := &oauth2.Token{}
	if err := json.Unmarshal(tokenJSON, tok); err != nil {
		return nil, fmt.Errorf("unable to decode stored token: %w", err)
	}

	// config.Client refreshes the access token transparently.
	srv, err := calendar.NewService(ctx, option.WithHTTPClient(config.Client(ctx, tok)))
	if err != nil {
		return nil, fmt.Errorf("unable to create calendar service: %w", err)
	}
	return srv, nil
}

// SyncTask creates or updates the calendar event for a task and returns
// the event id. The event window starts at the scheduled date (or the
// deadline when unscheduled) and lasts the task's estimated time.
func (c *Client) SyncTask(ctx context.Context, task *models.Task) (string, error) {
	event, err := EventForTask(task)
	if err != nil {
		return "", err
	}

	existing, err := c.getEventByTaskID(ctx, task.ID)
	if err != nil {
		return "", fmt.Errorf("error searching for event: %w", err)
	}

	if existing != nil {
		updated, err := c.srv.Events.Patch(c.calendarID, existing.Id, event).Context(ctx).Do()
		if err != nil {
			return "", fmt.Errorf("unable to update event for task %s: %w", task.ID, err)
		}
		return updated.Id, nil
	}

	created, err := c.srv.Events.Insert(c.calendarID, event).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("unable to create event for task %s: %w", task.ID, err)
	}
	return created.Id, nil
}

// DeleteEvent deletes an event from the calendar.
func (c *Client) DeleteEvent(ctx context.Context, eventID string) error {
	return c.srv.Events.Delete(c.calendarID, eventID).Context(ctx).Do()
}

func (c *Client) getEventByTaskID(ctx context.Context, taskID string) (*calendar.Event, error) {
	events, err := c.srv.Events.List(c.calendarID).
		PrivateExtendedProperty(fmt.Sprintf("%s=%s", taskIDProperty, taskID)).
		Context(ctx).
		Do()
	if err != nil {
		return nil, err
	}
	if len(events.Items) > 0 {
		return events.Items[0], nil
	}
	return nil, nil
}

// EventForTask converts a task into a calendar event. The task needs a
// scheduled date or a deadline to anchor the event.
func EventForTask(task *models.Task) (*calendar.Event, error) {
	when := task.ScheduledDate
	if when == nil {
		when = task.Deadline
	}
	if when == nil {
		return nil, fmt.Errorf("task %s has no scheduled date or deadline", task.ID)
	}

	end := when.Add(time.Duration(task.EstimatedTimeMinutes) * time.Minute)

	return &calendar.Event{
		Summary: fmt.Sprintf("Task: %s", task.Description),
		Start:   &calendar.EventDateTime{DateTime: when.Format(time.RFC3339)},
		End:     &calendar.EventDateTime{DateTime: end.Format(time.RFC3339)},
		Reminders: &calendar.EventReminders{
			UseDefault:      true,
			ForceSendFields: []string{"UseDefault"},
		},
		ExtendedProperties: &calendar.EventExtendedProperties{
			Private: map[string]string{taskIDProperty: task.ID},
		},
	}, nil
}
