package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/ldi/pwoa/pkg/models"
)

type executor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

const taskColumns = `id, description, source, context, priority, priority_score,
	category, deadline, scheduled_date, estimated_time_minutes,
	actual_time_minutes, status, created_at, updated_at,
	completed_at, tags, notes, reminder_sent`

// SaveTask inserts or replaces a task. If t.ID is empty a new id is
// generated; zero created/updated timestamps are set to now.
func (db *DB) SaveTask(ctx context.Context, t *models.Task) error {
	if err := db.saveTask(ctx, db.DB, t); err != nil {
		return err
	}

	db.triggerChange(ctx)
	return nil
}

// SaveTasks saves a batch of tasks in a single transaction.
func (db *DB) SaveTasks(ctx context.Context, tasks []*models.Task) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, t := range tasks {
		if err := db.saveTask(ctx, tx, t); err != nil {
			return fmt.Errorf("failed to save task %s: %w", t.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	db.triggerChange(ctx)
	return nil
}

func (db *DB) saveTask(ctx context.Context, exec executor, t *models.Task) error {
	if t.ID == "" {
		t.ID = fmt.Sprintf("task-%s", uuid.New().String()[:8])
	}
	now := time.Now()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	if t.UpdatedAt.IsZero() {
		t.UpdatedAt = now
	}

	tags, err := json.Marshal(t.Tags)
	if err != nil {
		return fmt.Errorf("failed to encode tags: %w", err)
	}

	reminderSent := 0
	if t.ReminderSent {
		reminderSent = 1
	}

	query := `
		INSERT OR REPLACE INTO tasks (` + taskColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = exec.ExecContext(ctx, query,
		t.ID, t.Description, t.Source, t.Context, t.Priority, t.PriorityScore,
		t.Category, formatTime(t.Deadline), formatTime(t.ScheduledDate), t.EstimatedTimeMinutes,
		t.ActualTimeMinutes, t.Status, t.CreatedAt.Format(time.RFC3339), t.UpdatedAt.Format(time.RFC3339),
		formatTime(t.CompletedAt), string(tags), t.Notes, reminderSent,
	)
	if err != nil {
		return fmt.Errorf("failed to save task: %w", err)
	}
	return nil
}

// GetTask retrieves a task by its ID. Returns nil, nil when not found.
func (db *DB) GetTask(ctx context.Context, id string) (*models.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = ?`
	t, err := scanTask(db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get task: %w", err)
	}
	return t, nil
}

// ListTasks returns tasks ordered by priority score, optionally filtered
// by status or category.
func (db *DB) ListTasks(ctx context.Context, status *models.TaskStatus, category *models.TaskCategory) ([]*models.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE 1=1`
	args := []any{}

	if status != nil {
		query += " AND status = ?"
		args = append(args, *status)
	}

	if category != nil {
		query += " AND category = ?"
		args = append(args, *category)
	}

	query += " ORDER BY priority_score DESC, created_at ASC"

	return db.queryTasks(ctx, query, args...)
}

// GetTasksByDate returns tasks scheduled for the given calendar date.
func (db *DB) GetTasksByDate(ctx context.Context, date time.Time) ([]*models.Task, error) {
	query := `
		SELECT ` + taskColumns + `
		FROM tasks
		WHERE DATE(scheduled_date) = ?
		ORDER BY priority_score DESC
	`
	return db.queryTasks(ctx, query, date.Format("2006-01-02"))
}

func (db *DB) queryTasks(ctx context.Context, query string, args ...any) ([]*models.Task, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tasks []*models.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		tasks = append(tasks, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return tasks, nil
}

// UpdateTaskStatus sets a task's status. Transitions are deliberately
// not validated; callers may move a task to any status.
func (db *DB) UpdateTaskStatus(ctx context.Context, id string, status models.TaskStatus) error {
	now := time.Now().Format(time.RFC3339)

	var res sql.Result
	var err error
	if status == models.TaskStatusCompleted {
		res, err = db.ExecContext(ctx,
			`UPDATE tasks SET status = ?, updated_at = ?, completed_at = ? WHERE id = ?`,
			status, now, now, id)
	} else {
		res, err = db.ExecContext(ctx,
			`UPDATE tasks SET status = ?, updated_at = ? WHERE id = ?`,
			status, now, id)
	}
	if err != nil {
		return fmt.Errorf("failed to update task status: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("task not found: %s", id)
	}

	db.triggerChange(ctx)
	return nil
}

// DeleteTask deletes a task by its ID.
func (db *DB) DeleteTask(ctx context.Context, id string) error {
	res, err := db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("task not found: %s", id)
	}

	db.triggerChange(ctx)
	return nil
}

// Stats summarizes the task table for dashboards and the status command.
type Stats struct {
	Total      int                         `json:"total"`
	ByStatus   map[models.TaskStatus]int   `json:"by_status"`
	ByPriority map[models.TaskPriority]int `json:"by_priority"`
	ByCategory map[models.TaskCategory]int `json:"by_category"`
}

func (db *DB) GetStats(ctx context.Context) (*Stats, error) {
	stats := &Stats{
		ByStatus:   make(map[models.TaskStatus]int),
		ByPriority: make(map[models.TaskPriority]int),
		ByCategory: make(map[models.TaskCategory]int),
	}

	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM tasks`).Scan(&stats.Total); err != nil {
		return nil, fmt.Errorf("failed to count tasks: %w", err)
	}

	rows, err := db.QueryContext(ctx, `SELECT status, priority, category FROM tasks`)
	if err != nil {
		return nil, fmt.Errorf("failed to query stats: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var status models.TaskStatus
		var priority models.TaskPriority
		var category models.TaskCategory
		if err := rows.Scan(&status, &priority, &category); err != nil {
			return nil, fmt.Errorf("failed to scan stats row: %w", err)
		}
		stats.ByStatus[status]++
		stats.ByPriority[priority]++
		stats.ByCategory[category]++
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return stats, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (*models.Task, error) {
	t := &models.Task{}
	var (
		contextText  sql.NullString
		deadline     sql.NullString
		scheduled    sql.NullString
		actual       sql.NullInt64
		createdAt    string
		updatedAt    string
		completedAt  sql.NullString
		tags         sql.NullString
		notes        sql.NullString
		reminderSent int
	)

	err := row.Scan(
		&t.ID, &t.Description, &t.Source, &contextText, &t.Priority, &t.PriorityScore,
		&t.Category, &deadline, &scheduled, &t.EstimatedTimeMinutes,
		&actual, &t.Status, &createdAt, &updatedAt,
		&completedAt, &tags, &notes, &reminderSent,
	)
	if err != nil {
		return nil, err
	}

	t.Context = contextText.String
	t.Notes = notes.String
	t.ReminderSent = reminderSent == 1

	if actual.Valid {
		v := int(actual.Int64)
		t.ActualTimeMinutes = &v
	}

	if t.Deadline, err = parseNullTime(deadline); err != nil {
		return nil, fmt.Errorf("bad deadline for task %s: %w", t.ID, err)
	}
	if t.ScheduledDate, err = parseNullTime(scheduled); err != nil {
		return nil, fmt.Errorf("bad scheduled_date for task %s: %w", t.ID, err)
	}
	if t.CompletedAt, err = parseNullTime(completedAt); err != nil {
		return nil, fmt.Errorf("bad completed_at for task %s: %w", t.ID, err)
	}
	if t.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
		return nil, fmt.Errorf("bad created_at for task %s: %w", t.ID, err)
	}
	if t.UpdatedAt, err = time.Parse(time.RFC3339, updatedAt); err != nil {
		return nil, fmt.Errorf("bad updated_at for task %s: %w", t.ID, err)
	}

	t.Tags = []string{}
	if tags.Valid && tags.String != "" {
		if err := json.Unmarshal([]byte(tags.String), &t.Tags); err != nil {
			return nil, fmt.Errorf("bad tags for task %s: %w", t.ID, err)
		}
	}

	return t, nil
}

func formatTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.Format(time.RFC3339)
}

func parseNullTime(s sql.NullString) (*time.Time, error) {
	if !s.Valid || s.String == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, s.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
