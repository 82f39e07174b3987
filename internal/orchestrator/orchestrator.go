package orchestrator

import (
	"context"
	"fmt"

	"github.com/ldi/pwoa/internal/comms"
	"github.com/ldi/pwoa/internal/db"
	"github.com/ldi/pwoa/internal/extract"
	"github.com/ldi/pwoa/internal/insights"
	"github.com/ldi/pwoa/internal/log"
	"github.com/ldi/pwoa/internal/scheduling"
	"github.com/ldi/pwoa/internal/scoring"
	"github.com/ldi/pwoa/pkg/models"
)

// CalendarTag opts a task into external calendar sync.
const CalendarTag = "calendar"

// Store is the persistence surface the orchestrator needs. *db.DB
// implements it.
type Store interface {
	SaveTask(ctx context.Context, t *models.Task) error
	SaveTasks(ctx context.Context, tasks []*models.Task) error
	GetTask(ctx context.Context, id string) (*models.Task, error)
	ListTasks(ctx context.Context, status *models.TaskStatus, category *models.TaskCategory) ([]*models.Task, error)
	DeleteTask(ctx context.Context, id string) error
	SaveCalendarEvent(ctx context.Context, taskID, provider, eventID string) error
	GetStats(ctx context.Context) (*db.Stats, error)
}

// CalendarSync mirrors a scheduled task to an external calendar and
// returns the created or updated event id.
type CalendarSync interface {
	SyncTask(ctx context.Context, task *models.Task) (string, error)
}

// Orchestrator sequences the extraction and scheduling workflows:
// extract -> score -> save, and load pending -> schedule -> save. All
// collaborators are injected; there is no hidden shared state.
type Orchestrator struct {
	store     Store
	extractor *extract.Extractor
	scorer    *scoring.Scorer
	scheduler *scheduling.Scheduler
	drafter   *comms.Drafter
	calendar  CalendarSync
}

func NewOrchestrator(store Store, extractor *extract.Extractor, scorer *scoring.Scorer, scheduler *scheduling.Scheduler, drafter *comms.Drafter) *Orchestrator {
	return &Orchestrator{
		store:     store,
		extractor: extractor,
		scorer:    scorer,
		scheduler: scheduler,
		drafter:   drafter,
	}
}

// SetCalendar enables calendar sync for tasks tagged with CalendarTag.
func (o *Orchestrator) SetCalendar(c CalendarSync) {
	o.calendar = c
}

// ExtractionInput carries the raw text inputs for one extraction run.
// Uploads hold text already pulled out of documents upstream.
type ExtractionInput struct {
	Text    string
	Emails  []string
	Uploads []string
}

// RunExtraction extracts tasks from the inputs, scores them, and saves
// them. It always returns the scored tasks, even when every augmenter
// call failed.
func (o *Orchestrator) RunExtraction(ctx context.Context, input ExtractionInput) ([]*models.Task, error) {
	var tasks []*models.Task

	if input.Text != "" {
		tasks = append(tasks, o.extractor.FromText(ctx, input.Text)...)
	}
	for _, body := range input.Emails {
		tasks = append(tasks, o.extractor.FromEmail(ctx, body)...)
	}
	for _, text := range input.Uploads {
		tasks = append(tasks, o.extractor.FromUpload(ctx, text)...)
	}

	if len(tasks) == 0 {
		return nil, nil
	}

	o.scorer.AssignPriority(ctx, tasks)

	if err := o.store.SaveTasks(ctx, tasks); err != nil {
		return nil, fmt.Errorf("failed to save extracted tasks: %w", err)
	}

	log.GetLogger().Infof("extraction workflow added %d tasks", len(tasks))
	return tasks, nil
}

// AddTask scores and saves a single manually created task.
func (o *Orchestrator) AddTask(ctx context.Context, task *models.Task) error {
	o.scorer.AssignPriority(ctx, []*models.Task{task})
	if err := o.store.SaveTask(ctx, task); err != nil {
		return fmt.Errorf("failed to save task: %w", err)
	}
	return nil
}

// RunScheduling plans all pending tasks, marks the placed ones as
// scheduled, persists them, and best-effort syncs calendar-tagged tasks.
func (o *Orchestrator) RunScheduling(ctx context.Context) (*models.Plan, error) {
	status := models.TaskStatusPending
	pending, err := o.store.ListTasks(ctx, &status, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to load pending tasks: %w", err)
	}

	plan := o.scheduler.ScheduleTasks(pending)

	buckets := []struct {
		bucket models.Bucket
		tasks  []*models.Task
	}{
		{models.BucketToday, plan.Today},
		{models.BucketTomorrow, plan.Tomorrow},
		{models.BucketThisWeek, plan.ThisWeek},
	}

	for _, b := range buckets {
		date := o.scheduler.BucketDate(plan.Date, b.bucket)
		for _, task := range b.tasks {
			task.Schedule(date)
		}
	}

	scheduled := plan.Scheduled()
	if len(scheduled) > 0 {
		if err := o.store.SaveTasks(ctx, scheduled); err != nil {
			return nil, fmt.Errorf("failed to save scheduled tasks: %w", err)
		}
	}

	o.syncCalendar(ctx, scheduled)

	log.GetLogger().Infof("scheduling workflow placed %d tasks (%d dropped)", len(scheduled), len(plan.Dropped))
	return plan, nil
}

// syncCalendar mirrors calendar-tagged tasks to the external calendar.
// Sync failures are logged and swallowed; scheduling already succeeded.
func (o *Orchestrator) syncCalendar(ctx context.Context, tasks []*models.Task) {
	if o.calendar == nil {
		return
	}

	for _, task := range tasks {
		if !task.HasTag(CalendarTag) {
			continue
		}

		eventID, err := o.calendar.SyncTask(ctx, task)
		if err != nil {
			log.GetLogger().Warnf("could not create calendar event for %s: %v", task.ID, err)
			continue
		}
		if err := o.store.SaveCalendarEvent(ctx, task.ID, "google", eventID); err != nil {
			log.GetLogger().Warnf("could not record calendar event for %s: %v", task.ID, err)
		}
	}
}

// GetAllTasks returns tasks, optionally filtered by status.
func (o *Orchestrator) GetAllTasks(ctx context.Context, status *models.TaskStatus) ([]*models.Task, error) {
	return o.store.ListTasks(ctx, status, nil)
}

// GetTask returns a task by id, or nil when it does not exist.
func (o *Orchestrator) GetTask(ctx context.Context, id string) (*models.Task, error) {
	return o.store.GetTask(ctx, id)
}

// UpdateTask persists changes to an existing task.
func (o *Orchestrator) UpdateTask(ctx context.Context, task *models.Task) error {
	return o.store.SaveTask(ctx, task)
}

// DeleteTask removes a task.
func (o *Orchestrator) DeleteTask(ctx context.Context, id string) error {
	return o.store.DeleteTask(ctx, id)
}

// CompleteTask marks a task completed, recording the actual time spent
// when actualMinutes is positive.
func (o *Orchestrator) CompleteTask(ctx context.Context, id string, actualMinutes int) (*models.Task, error) {
	task, err := o.store.GetTask(ctx, id)
	if err != nil {
		return nil, err
	}
	if task == nil {
		return nil, fmt.Errorf("task not found: %s", id)
	}

	task.MarkComplete(actualMinutes)
	if err := o.store.SaveTask(ctx, task); err != nil {
		return nil, fmt.Errorf("failed to save completed task: %w", err)
	}
	return task, nil
}

// CancelTask marks a task cancelled.
func (o *Orchestrator) CancelTask(ctx context.Context, id string) (*models.Task, error) {
	task, err := o.store.GetTask(ctx, id)
	if err != nil {
		return nil, err
	}
	if task == nil {
		return nil, fmt.Errorf("task not found: %s", id)
	}

	task.Cancel()
	if err := o.store.SaveTask(ctx, task); err != nil {
		return nil, fmt.Errorf("failed to save cancelled task: %w", err)
	}
	return task, nil
}

// DraftEmail generates an email draft for a task.
func (o *Orchestrator) DraftEmail(ctx context.Context, id string, action comms.EmailAction) (string, error) {
	task, err := o.store.GetTask(ctx, id)
	if err != nil {
		return "", err
	}
	if task == nil {
		return "", fmt.Errorf("task not found: %s", id)
	}
	return o.drafter.DraftEmail(ctx, task, action), nil
}

// CompletionReport analyzes completed tasks for estimate drift.
func (o *Orchestrator) CompletionReport(ctx context.Context) (*insights.Report, error) {
	status := models.TaskStatusCompleted
	completed, err := o.store.ListTasks(ctx, &status, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to load completed tasks: %w", err)
	}
	return insights.AnalyzeCompletions(completed), nil
}

// Stats returns store-wide task counts.
func (o *Orchestrator) Stats(ctx context.Context) (*db.Stats, error) {
	return o.store.GetStats(ctx)
}
