package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ldi/pwoa/internal/comms"
	"github.com/ldi/pwoa/internal/db"
	"github.com/ldi/pwoa/internal/extract"
	"github.com/ldi/pwoa/internal/orchestrator"
	"github.com/ldi/pwoa/internal/scheduling"
	"github.com/ldi/pwoa/internal/scoring"
	"github.com/ldi/pwoa/pkg/models"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()

	database, err := db.Open(":memory:")
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	if err := database.Init(context.Background()); err != nil {
		t.Fatalf("Failed to init database: %v", err)
	}

	orch := orchestrator.NewOrchestrator(
		database,
		extract.NewExtractor(nil),
		scoring.NewScorer(nil),
		scheduling.NewScheduler(),
		comms.NewDrafter(nil),
	)
	return NewServer(orch)
}

func doJSON(t *testing.T, handler http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("Failed to encode body: %v", err)
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func createTask(t *testing.T, handler http.Handler, description string) *models.Task {
	t.Helper()

	rec := doJSON(t, handler, http.MethodPost, "/api/tasks", map[string]any{
		"description": description,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	task := &models.Task{}
	if err := json.Unmarshal(rec.Body.Bytes(), task); err != nil {
		t.Fatalf("Failed to decode task: %v", err)
	}
	return task
}

func TestCreateAndGetTask(t *testing.T) {
	handler := newTestServer(t).Handler()

	rec := doJSON(t, handler, http.MethodPost, "/api/tasks", map[string]any{
		"description":            "Prepare the urgent client report",
		"deadline":               "2030-01-02T15:00:00Z",
		"estimated_time_minutes": 60,
		"tags":                   []string{"calendar"},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	created := &models.Task{}
	if err := json.Unmarshal(rec.Body.Bytes(), created); err != nil {
		t.Fatalf("Failed to decode created task: %v", err)
	}
	if created.ID == "" {
		t.Fatal("Expected an id on the created task")
	}
	// Scoring runs on create: urgency keyword alone is 75 points.
	if created.PriorityScore < 75 {
		t.Errorf("Expected scored task, got %d", created.PriorityScore)
	}
	if created.Category != models.TaskCategoryWork {
		t.Errorf("Expected work category, got %s", created.Category)
	}

	rec = doJSON(t, handler, http.MethodGet, "/api/tasks/"+created.ID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	fetched := &models.Task{}
	if err := json.Unmarshal(rec.Body.Bytes(), fetched); err != nil {
		t.Fatalf("Failed to decode task: %v", err)
	}
	if fetched.Description != created.Description {
		t.Errorf("Expected %q, got %q", created.Description, fetched.Description)
	}
}

func TestCreateTaskValidation(t *testing.T) {
	handler := newTestServer(t).Handler()

	rec := doJSON(t, handler, http.MethodPost, "/api/tasks", map[string]any{})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for missing description, got %d", rec.Code)
	}

	rec = doJSON(t, handler, http.MethodPost, "/api/tasks", map[string]any{
		"description": "bad deadline",
		"deadline":    "next tuesday",
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for bad deadline, got %d", rec.Code)
	}
}

func TestGetTaskNotFound(t *testing.T) {
	handler := newTestServer(t).Handler()

	rec := doJSON(t, handler, http.MethodGet, "/api/tasks/task-missing", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", rec.Code)
	}
}

func TestListTasksWithStatusFilter(t *testing.T) {
	handler := newTestServer(t).Handler()

	a := createTask(t, handler, "first task here")
	createTask(t, handler, "second task here")

	rec := doJSON(t, handler, http.MethodPost, "/api/tasks/"+a.ID+"/complete", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200 completing task, got %d", rec.Code)
	}

	rec = doJSON(t, handler, http.MethodGet, "/api/tasks?status=pending", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	var tasks []*models.Task
	if err := json.Unmarshal(rec.Body.Bytes(), &tasks); err != nil {
		t.Fatalf("Failed to decode tasks: %v", err)
	}
	if len(tasks) != 1 {
		t.Errorf("Expected 1 pending task, got %d", len(tasks))
	}
}

func TestCompleteTaskRecordsActualTime(t *testing.T) {
	handler := newTestServer(t).Handler()

	task := createTask(t, handler, "time this task")

	rec := doJSON(t, handler, http.MethodPost, "/api/tasks/"+task.ID+"/complete", map[string]any{
		"actual_time_minutes": 55,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	completed := &models.Task{}
	if err := json.Unmarshal(rec.Body.Bytes(), completed); err != nil {
		t.Fatalf("Failed to decode task: %v", err)
	}
	if completed.Status != models.TaskStatusCompleted {
		t.Errorf("Expected completed, got %s", completed.Status)
	}
	if completed.ActualTimeMinutes == nil || *completed.ActualTimeMinutes != 55 {
		t.Errorf("Expected actual time 55, got %v", completed.ActualTimeMinutes)
	}
}

func TestCancelAndDeleteTask(t *testing.T) {
	handler := newTestServer(t).Handler()

	task := createTask(t, handler, "short-lived task")

	rec := doJSON(t, handler, http.MethodPost, "/api/tasks/"+task.ID+"/cancel", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}

	rec = doJSON(t, handler, http.MethodDelete, "/api/tasks/"+task.ID, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("Expected 204, got %d", rec.Code)
	}

	rec = doJSON(t, handler, http.MethodDelete, "/api/tasks/"+task.ID, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404 on second delete, got %d", rec.Code)
	}
}

func TestExtractEndpoint(t *testing.T) {
	handler := newTestServer(t).Handler()

	rec := doJSON(t, handler, http.MethodPost, "/api/extract", map[string]any{
		"text":   "Review the pull request\nUpdate the deployment docs",
		"emails": []string{"Please schedule the quarterly review meeting"},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var tasks []*models.Task
	if err := json.Unmarshal(rec.Body.Bytes(), &tasks); err != nil {
		t.Fatalf("Failed to decode tasks: %v", err)
	}
	if len(tasks) != 3 {
		t.Errorf("Expected 3 extracted tasks, got %d", len(tasks))
	}
}

func TestScheduleEndpoint(t *testing.T) {
	handler := newTestServer(t).Handler()

	for i := 0; i < 3; i++ {
		createTask(t, handler, fmt.Sprintf("schedulable task %d", i))
	}

	rec := doJSON(t, handler, http.MethodPost, "/api/schedule", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	plan := &models.Plan{}
	if err := json.Unmarshal(rec.Body.Bytes(), plan); err != nil {
		t.Fatalf("Failed to decode plan: %v", err)
	}
	if len(plan.Today) != 3 {
		t.Errorf("Expected 3 tasks today, got %d", len(plan.Today))
	}
	if len(plan.Dropped) != 0 {
		t.Errorf("Expected no dropped tasks, got %v", plan.Dropped)
	}
}

func TestStatsEndpoint(t *testing.T) {
	handler := newTestServer(t).Handler()

	createTask(t, handler, "count this task")

	rec := doJSON(t, handler, http.MethodGet, "/api/stats", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}

	stats := &db.Stats{}
	if err := json.Unmarshal(rec.Body.Bytes(), stats); err != nil {
		t.Fatalf("Failed to decode stats: %v", err)
	}
	if stats.Total != 1 {
		t.Errorf("Expected total 1, got %d", stats.Total)
	}
}

func TestDraftEndpoint(t *testing.T) {
	handler := newTestServer(t).Handler()

	task := createTask(t, handler, "chase the missing invoice")

	rec := doJSON(t, handler, http.MethodPost, "/api/tasks/"+task.ID+"/draft", map[string]any{
		"action": "follow_up",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("Failed to decode draft: %v", err)
	}
	if body["draft"] == "" {
		t.Error("Expected a non-empty draft")
	}
}

func TestInsightsEndpoint(t *testing.T) {
	handler := newTestServer(t).Handler()

	task := createTask(t, handler, "finish and measure")
	rec := doJSON(t, handler, http.MethodPost, "/api/tasks/"+task.ID+"/complete", map[string]any{
		"actual_time_minutes": 45,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}

	rec = doJSON(t, handler, http.MethodGet, "/api/insights", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	var report struct {
		Completed int `json:"completed"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &report); err != nil {
		t.Fatalf("Failed to decode report: %v", err)
	}
	if report.Completed != 1 {
		t.Errorf("Expected 1 completed, got %d", report.Completed)
	}
}
