package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusScheduled  TaskStatus = "scheduled"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusCancelled  TaskStatus = "cancelled"
)

type TaskPriority string

const (
	TaskPriorityCritical TaskPriority = "critical"
	TaskPriorityHigh     TaskPriority = "high"
	TaskPriorityMedium   TaskPriority = "medium"
	TaskPriorityLow      TaskPriority = "low"
)

type TaskCategory string

const (
	TaskCategoryWork     TaskCategory = "work"
	TaskCategoryPersonal TaskCategory = "personal"
	TaskCategoryLearning TaskCategory = "learning"
	TaskCategoryFitness  TaskCategory = "fitness"
	TaskCategoryFinance  TaskCategory = "finance"
	TaskCategoryMisc     TaskCategory = "misc"
)

type TaskSource string

const (
	TaskSourceText   TaskSource = "text"
	TaskSourceEmail  TaskSource = "email"
	TaskSourceUpload TaskSource = "upload"
	TaskSourceManual TaskSource = "manual"
)

// Task is a single actionable item with the metadata needed to
// prioritize and schedule it.
type Task struct {
	ID          string     `json:"id"`
	Description string     `json:"description"`
	Source      TaskSource `json:"source"`
	Context     string     `json:"context,omitempty"`

	Priority      TaskPriority `json:"priority"`
	PriorityScore int          `json:"priority_score"`
	Category      TaskCategory `json:"category"`

	Deadline             *time.Time `json:"deadline"`
	ScheduledDate        *time.Time `json:"scheduled_date"`
	EstimatedTimeMinutes int        `json:"estimated_time_minutes"`
	ActualTimeMinutes    *int       `json:"actual_time_minutes"`

	Status      TaskStatus `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	CompletedAt *time.Time `json:"completed_at"`

	Tags         []string `json:"tags"`
	Notes        string   `json:"notes,omitempty"`
	ReminderSent bool     `json:"reminder_sent"`
}

// NewTask creates a task with defaults applied. The id is assigned here
// and never changes afterwards.
func NewTask(description string, source TaskSource) *Task {
	now := time.Now()
	return &Task{
		ID:                   fmt.Sprintf("task-%s", uuid.New().String()[:8]),
		Description:          description,
		Source:               source,
		Priority:             TaskPriorityMedium,
		Category:             TaskCategoryMisc,
		EstimatedTimeMinutes: 30,
		Status:               TaskStatusPending,
		CreatedAt:            now,
		UpdatedAt:            now,
		Tags:                 []string{},
	}
}

// MarkComplete sets the task to completed. An actualMinutes of 0 leaves
// the recorded actual time untouched.
func (t *Task) MarkComplete(actualMinutes int) {
	now := time.Now()
	t.Status = TaskStatusCompleted
	t.CompletedAt = &now
	t.UpdatedAt = now
	if actualMinutes > 0 {
		t.ActualTimeMinutes = &actualMinutes
	}
}

// Cancel sets the task to cancelled. Transitions are not validated;
// callers may cancel from any state.
func (t *Task) Cancel() {
	t.Status = TaskStatusCancelled
	t.UpdatedAt = time.Now()
}

// Schedule marks the task as scheduled for the given date.
func (t *Task) Schedule(date time.Time) {
	t.ScheduledDate = &date
	t.Status = TaskStatusScheduled
	t.UpdatedAt = time.Now()
}

func (t *Task) HasTag(tag string) bool {
	for _, have := range t.Tags {
		if have == tag {
			return true
		}
	}
	return false
}

// ValidCategory reports whether c is one of the known task categories.
func ValidCategory(c TaskCategory) bool {
	switch c {
	case TaskCategoryWork, TaskCategoryPersonal, TaskCategoryLearning,
		TaskCategoryFitness, TaskCategoryFinance, TaskCategoryMisc:
		return true
	}
	return false
}
