package mcp

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/ldi/pwoa/internal/comms"
	"github.com/ldi/pwoa/internal/db"
	"github.com/ldi/pwoa/internal/extract"
	"github.com/ldi/pwoa/internal/orchestrator"
	"github.com/ldi/pwoa/internal/scheduling"
	"github.com/ldi/pwoa/internal/scoring"
	"github.com/ldi/pwoa/pkg/models"
)

func setupTest(t *testing.T) (*db.DB, *orchestrator.Orchestrator) {
	t.Helper()

	database, err := db.Open(":memory:")
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	ctx := context.Background()
	if err := database.Init(ctx); err != nil {
		t.Fatalf("Failed to initialize database: %v", err)
	}

	orch := orchestrator.NewOrchestrator(
		database,
		extract.NewExtractor(nil),
		scoring.NewScorer(nil),
		scheduling.NewScheduler(),
		comms.NewDrafter(nil),
	)
	return database, orch
}

func TestToolHandlers(t *testing.T) {
	database, orch := setupTest(t)
	s := NewServer(orch)
	ctx := context.Background()

	call := func(t *testing.T, name string, args map[string]interface{}) *mcp.CallToolResult {
		t.Helper()

		tool := s.GetTool(name)
		if tool == nil {
			t.Fatalf("Tool %s not found", name)
		}

		req := mcp.CallToolRequest{}
		req.Params.Name = name
		req.Params.Arguments = args

		result, err := tool.Handler(ctx, req)
		if err != nil {
			t.Fatalf("Handler failed: %v", err)
		}
		return result
	}

	text := func(t *testing.T, result *mcp.CallToolResult) string {
		t.Helper()
		if len(result.Content) == 0 {
			t.Fatal("Result has no content")
		}
		return result.Content[0].(mcp.TextContent).Text
	}

	var taskID string

	t.Run("add_task", func(t *testing.T) {
		result := call(t, "add_task", map[string]interface{}{
			"description":            "Prepare the urgent client report",
			"deadline":               "2030-01-02T15:00:00Z",
			"estimated_time_minutes": 60.0,
			"notes":                  "include revenue numbers",
		})
		if result.IsError {
			t.Fatalf("Tool returned error: %v", result.Content[0])
		}

		tasks, err := database.ListTasks(ctx, nil, nil)
		if err != nil {
			t.Fatalf("Failed to list tasks: %v", err)
		}
		if len(tasks) != 1 {
			t.Fatalf("Expected 1 task in DB, got %d", len(tasks))
		}
		taskID = tasks[0].ID
		if tasks[0].EstimatedTimeMinutes != 60 {
			t.Errorf("Expected estimate 60, got %d", tasks[0].EstimatedTimeMinutes)
		}
		// Scoring ran on the way in.
		if tasks[0].PriorityScore < 75 {
			t.Errorf("Expected scored task, got %d", tasks[0].PriorityScore)
		}
	})

	t.Run("add_task_requires_description", func(t *testing.T) {
		result := call(t, "add_task", map[string]interface{}{})
		if !result.IsError {
			t.Error("Expected error for missing description")
		}
	})

	t.Run("get_task", func(t *testing.T) {
		result := call(t, "get_task", map[string]interface{}{"id": taskID})
		if result.IsError {
			t.Fatalf("Tool returned error: %v", result.Content[0])
		}

		task := &models.Task{}
		if err := json.Unmarshal([]byte(text(t, result)), task); err != nil {
			t.Fatalf("Failed to unmarshal task: %v", err)
		}
		if task.ID != taskID {
			t.Errorf("Expected task %s, got %s", taskID, task.ID)
		}

		result = call(t, "get_task", map[string]interface{}{"id": "task-missing"})
		if !result.IsError {
			t.Error("Expected error for missing task")
		}
	})

	t.Run("list_tasks", func(t *testing.T) {
		result := call(t, "list_tasks", map[string]interface{}{})
		if result.IsError {
			t.Fatalf("Tool returned error: %v", result.Content[0])
		}

		var resp struct {
			Tasks []interface{} `json:"tasks"`
		}
		if err := json.Unmarshal([]byte(text(t, result)), &resp); err != nil {
			t.Fatalf("Failed to unmarshal response: %v", err)
		}
		if len(resp.Tasks) != 1 {
			t.Errorf("Expected 1 task, got %d", len(resp.Tasks))
		}
	})

	t.Run("extract_tasks", func(t *testing.T) {
		result := call(t, "extract_tasks", map[string]interface{}{
			"text":   "Review the pull request\nUpdate the deployment docs",
			"source": "text",
		})
		if result.IsError {
			t.Fatalf("Tool returned error: %v", result.Content[0])
		}

		var resp struct {
			Tasks []interface{} `json:"tasks"`
		}
		if err := json.Unmarshal([]byte(text(t, result)), &resp); err != nil {
			t.Fatalf("Failed to unmarshal response: %v", err)
		}
		if len(resp.Tasks) != 2 {
			t.Errorf("Expected 2 extracted tasks, got %d", len(resp.Tasks))
		}
	})

	t.Run("schedule_tasks", func(t *testing.T) {
		result := call(t, "schedule_tasks", map[string]interface{}{})
		if result.IsError {
			t.Fatalf("Tool returned error: %v", result.Content[0])
		}

		plan := &models.Plan{}
		if err := json.Unmarshal([]byte(text(t, result)), plan); err != nil {
			t.Fatalf("Failed to unmarshal plan: %v", err)
		}
		if len(plan.Scheduled()) != 3 {
			t.Errorf("Expected 3 scheduled tasks, got %d", len(plan.Scheduled()))
		}
	})

	t.Run("draft_email", func(t *testing.T) {
		result := call(t, "draft_email", map[string]interface{}{
			"id":     taskID,
			"action": "follow_up",
		})
		if result.IsError {
			t.Fatalf("Tool returned error: %v", result.Content[0])
		}
		if !strings.Contains(text(t, result), "Subject:") {
			t.Errorf("Expected a subject line in draft, got %q", text(t, result))
		}
	})

	t.Run("complete_task", func(t *testing.T) {
		result := call(t, "complete_task", map[string]interface{}{
			"id":                  taskID,
			"actual_time_minutes": 45.0,
		})
		if result.IsError {
			t.Fatalf("Tool returned error: %v", result.Content[0])
		}

		task, err := database.GetTask(ctx, taskID)
		if err != nil {
			t.Fatalf("Failed to get task: %v", err)
		}
		if task.Status != models.TaskStatusCompleted {
			t.Errorf("Expected completed, got %s", task.Status)
		}
		if task.ActualTimeMinutes == nil || *task.ActualTimeMinutes != 45 {
			t.Errorf("Expected actual time 45, got %v", task.ActualTimeMinutes)
		}
	})

	t.Run("get_stats", func(t *testing.T) {
		result := call(t, "get_stats", map[string]interface{}{})
		if result.IsError {
			t.Fatalf("Tool returned error: %v", result.Content[0])
		}

		stats := &db.Stats{}
		if err := json.Unmarshal([]byte(text(t, result)), stats); err != nil {
			t.Fatalf("Failed to unmarshal stats: %v", err)
		}
		if stats.Total != 3 {
			t.Errorf("Expected 3 tasks total, got %d", stats.Total)
		}
	})

	t.Run("cancel_task", func(t *testing.T) {
		tasks, _ := database.ListTasks(ctx, nil, nil)
		var target string
		for _, task := range tasks {
			if task.Status != models.TaskStatusCompleted {
				target = task.ID
				break
			}
		}
		if target == "" {
			t.Fatal("No cancellable task found")
		}

		result := call(t, "cancel_task", map[string]interface{}{"id": target})
		if result.IsError {
			t.Fatalf("Tool returned error: %v", result.Content[0])
		}

		task, _ := database.GetTask(ctx, target)
		if task.Status != models.TaskStatusCancelled {
			t.Errorf("Expected cancelled, got %s", task.Status)
		}
	})

	t.Run("delete_task", func(t *testing.T) {
		result := call(t, "delete_task", map[string]interface{}{"id": taskID})
		if result.IsError {
			t.Fatalf("Tool returned error: %v", result.Content[0])
		}

		task, err := database.GetTask(ctx, taskID)
		if err != nil {
			t.Fatalf("Failed to check deletion: %v", err)
		}
		if task != nil {
			t.Error("Task still exists after deletion")
		}

		result = call(t, "delete_task", map[string]interface{}{"id": taskID})
		if !result.IsError {
			t.Error("Expected error deleting twice")
		}
	})
}
