package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/ldi/pwoa/internal/comms"
	"github.com/ldi/pwoa/internal/orchestrator"
	"github.com/ldi/pwoa/pkg/models"
)

// NewServer creates an MCP server exposing the assistant's task tools.
func NewServer(orch *orchestrator.Orchestrator) *server.MCPServer {
	s := server.NewMCPServer("PWOA", "0.1.0")

	// Task Management
	s.AddTool(mcp.NewTool("add_task",
		mcp.WithDescription("Add a single task. It is scored and saved immediately."),
		mcp.WithString("description", mcp.Description("What needs to be done"), mcp.Required()),
		mcp.WithString("deadline", mcp.Description("Deadline as RFC3339 timestamp (optional)")),
		mcp.WithNumber("estimated_time_minutes", mcp.Description("Estimated time in minutes (default 30)")),
		mcp.WithString("category", mcp.Description("One of work|personal|learning|fitness|finance|misc")),
		mcp.WithString("notes", mcp.Description("Free-form notes")),
	), addTaskHandler(orch))

	s.AddTool(mcp.NewTool("list_tasks",
		mcp.WithDescription("List tasks, optionally filtered by status."),
		mcp.WithString("status", mcp.Description("Filter by status (pending|scheduled|in_progress|completed|cancelled)")),
	), listTasksHandler(orch))

	s.AddTool(mcp.NewTool("get_task",
		mcp.WithDescription("Get a single task by id."),
		mcp.WithString("id", mcp.Description("Task id"), mcp.Required()),
	), getTaskHandler(orch))

	s.AddTool(mcp.NewTool("complete_task",
		mcp.WithDescription("Mark a task as completed."),
		mcp.WithString("id", mcp.Description("Task id"), mcp.Required()),
		mcp.WithNumber("actual_time_minutes", mcp.Description("Actual time spent in minutes")),
	), completeTaskHandler(orch))

	s.AddTool(mcp.NewTool("cancel_task",
		mcp.WithDescription("Cancel a task."),
		mcp.WithString("id", mcp.Description("Task id"), mcp.Required()),
	), cancelTaskHandler(orch))

	s.AddTool(mcp.NewTool("delete_task",
		mcp.WithDescription("Delete a task permanently."),
		mcp.WithString("id", mcp.Description("Task id"), mcp.Required()),
	), deleteTaskHandler(orch))

	// Workflows
	s.AddTool(mcp.NewTool("extract_tasks",
		mcp.WithDescription("Extract, score, and save tasks from unstructured text."),
		mcp.WithString("text", mcp.Description("Raw note or email text"), mcp.Required()),
		mcp.WithString("source", mcp.Description("Where the text came from (text|email|upload), defaults to text")),
	), extractTasksHandler(orch))

	s.AddTool(mcp.NewTool("schedule_tasks",
		mcp.WithDescription("Plan all pending tasks into today/tomorrow/this_week buckets."),
	), scheduleTasksHandler(orch))

	s.AddTool(mcp.NewTool("draft_email",
		mcp.WithDescription("Draft an email related to a task."),
		mcp.WithString("id", mcp.Description("Task id"), mcp.Required()),
		mcp.WithString("action", mcp.Description("One of follow_up|request_meeting|summary|completion_notice")),
	), draftEmailHandler(orch))

	s.AddTool(mcp.NewTool("get_stats",
		mcp.WithDescription("Get task counts by status, priority, and category."),
	), getStatsHandler(orch))

	return s
}

// Serve starts the MCP server on stdio.
func Serve(s *server.MCPServer) error {
	return server.ServeStdio(s)
}

func addTaskHandler(orch *orchestrator.Orchestrator) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		description := mcp.ParseString(request, "description", "")
		if description == "" {
			return mcp.NewToolResultError("description is required"), nil
		}

		task := models.NewTask(description, models.TaskSourceManual)
		task.Notes = mcp.ParseString(request, "notes", "")

		if category := models.TaskCategory(mcp.ParseString(request, "category", "")); models.ValidCategory(category) {
			task.Category = category
		}
		if est := mcp.ParseInt(request, "estimated_time_minutes", 0); est > 0 {
			task.EstimatedTimeMinutes = est
		}
		if deadlineText := mcp.ParseString(request, "deadline", ""); deadlineText != "" {
			deadline, err := time.Parse(time.RFC3339, deadlineText)
			if err != nil {
				return mcp.NewToolResultError(fmt.Sprintf("invalid deadline: %v", err)), nil
			}
			task.Deadline = &deadline
		}

		if err := orch.AddTask(ctx, task); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		return mcp.NewToolResultText(fmt.Sprintf("Task '%s' added with priority %s (score %d).", task.ID, task.Priority, task.PriorityScore)), nil
	}
}

func listTasksHandler(orch *orchestrator.Orchestrator) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var status *models.TaskStatus
		if v := mcp.ParseString(request, "status", ""); v != "" {
			st := models.TaskStatus(v)
			status = &st
		}

		tasks, err := orch.GetAllTasks(ctx, status)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		data, err := json.Marshal(map[string]any{"tasks": tasks})
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		return mcp.NewToolResultText(string(data)), nil
	}
}

func getTaskHandler(orch *orchestrator.Orchestrator) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id := mcp.ParseString(request, "id", "")

		task, err := orch.GetTask(ctx, id)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if task == nil {
			return mcp.NewToolResultError(fmt.Sprintf("Task with id '%s' not found", id)), nil
		}

		data, err := json.Marshal(task)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		return mcp.NewToolResultText(string(data)), nil
	}
}

func completeTaskHandler(orch *orchestrator.Orchestrator) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id := mcp.ParseString(request, "id", "")
		actual := mcp.ParseInt(request, "actual_time_minutes", 0)

		task, err := orch.CompleteTask(ctx, id, actual)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		return mcp.NewToolResultText(fmt.Sprintf("Task '%s' completed.", task.ID)), nil
	}
}

func cancelTaskHandler(orch *orchestrator.Orchestrator) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id := mcp.ParseString(request, "id", "")

		task, err := orch.CancelTask(ctx, id)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		return mcp.NewToolResultText(fmt.Sprintf("Task '%s' cancelled.", task.ID)), nil
	}
}

func deleteTaskHandler(orch *orchestrator.Orchestrator) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id := mcp.ParseString(request, "id", "")

		if err := orch.DeleteTask(ctx, id); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		return mcp.NewToolResultText("Task deleted successfully"), nil
	}
}

func extractTasksHandler(orch *orchestrator.Orchestrator) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		text := mcp.ParseString(request, "text", "")
		source := mcp.ParseString(request, "source", "text")

		input := orchestrator.ExtractionInput{}
		switch source {
		case "email":
			input.Emails = []string{text}
		case "upload":
			input.Uploads = []string{text}
		default:
			input.Text = text
		}

		tasks, err := orch.RunExtraction(ctx, input)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		data, err := json.Marshal(map[string]any{"tasks": tasks})
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		return mcp.NewToolResultText(string(data)), nil
	}
}

func scheduleTasksHandler(orch *orchestrator.Orchestrator) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		plan, err := orch.RunScheduling(ctx)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		data, err := json.Marshal(plan)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		return mcp.NewToolResultText(string(data)), nil
	}
}

func draftEmailHandler(orch *orchestrator.Orchestrator) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id := mcp.ParseString(request, "id", "")
		action := mcp.ParseString(request, "action", string(comms.ActionFollowUp))

		draft, err := orch.DraftEmail(ctx, id, comms.EmailAction(action))
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		return mcp.NewToolResultText(draft), nil
	}
}

func getStatsHandler(orch *orchestrator.Orchestrator) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		stats, err := orch.Stats(ctx)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		data, err := json.Marshal(stats)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		return mcp.NewToolResultText(string(data)), nil
	}
}
