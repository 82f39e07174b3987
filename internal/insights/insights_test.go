package insights

import (
	"strings"
	"testing"

	"github.com/ldi/pwoa/pkg/models"
)

func completedTask(category models.TaskCategory, estimated, actual int) *models.Task {
	t := models.NewTask("done", models.TaskSourceText)
	t.Category = category
	t.EstimatedTimeMinutes = estimated
	t.MarkComplete(actual)
	return t
}

func TestAnalyzeCompletionsEmpty(t *testing.T) {
	report := AnalyzeCompletions(nil)

	if report.Completed != 0 {
		t.Errorf("expected 0 completed, got %d", report.Completed)
	}
	if !strings.Contains(report.Feedback, "No tasks completed yet") {
		t.Errorf("unexpected feedback: %q", report.Feedback)
	}
}

func TestAnalyzeCompletionsIgnoresUnfinished(t *testing.T) {
	pending := models.NewTask("still open", models.TaskSourceText)

	report := AnalyzeCompletions([]*models.Task{pending, completedTask(models.TaskCategoryWork, 30, 30)})

	if report.Completed != 1 {
		t.Errorf("expected 1 completed, got %d", report.Completed)
	}
	if report.ByCategory[models.TaskCategoryWork] != 1 {
		t.Errorf("expected 1 work task, got %d", report.ByCategory[models.TaskCategoryWork])
	}
}

func TestAnalyzeCompletionsDrift(t *testing.T) {
	tasks := []*models.Task{
		// Work runs 50% over estimate.
		completedTask(models.TaskCategoryWork, 60, 90),
		completedTask(models.TaskCategoryWork, 40, 60),
		// Fitness is on target.
		completedTask(models.TaskCategoryFitness, 30, 30),
	}

	report := AnalyzeCompletions(tasks)

	if report.Completed != 3 {
		t.Fatalf("expected 3 completed, got %d", report.Completed)
	}
	if report.TotalEstimatedMins != 130 {
		t.Errorf("expected 130 estimated minutes, got %d", report.TotalEstimatedMins)
	}
	if report.TotalActualMins != 180 {
		t.Errorf("expected 180 actual minutes, got %d", report.TotalActualMins)
	}

	ratio, ok := report.Adjustments[models.TaskCategoryWork]
	if !ok {
		t.Fatal("expected a work adjustment")
	}
	if ratio < 1.49 || ratio > 1.51 {
		t.Errorf("expected ratio ~1.5, got %v", ratio)
	}

	if _, ok := report.Adjustments[models.TaskCategoryFitness]; ok {
		t.Error("did not expect an adjustment for an on-target category")
	}
}

func TestAnalyzeCompletionsNoActualTime(t *testing.T) {
	// Completed without a recorded actual time contributes no drift.
	task := models.NewTask("no timer", models.TaskSourceText)
	task.EstimatedTimeMinutes = 45
	task.MarkComplete(0)

	report := AnalyzeCompletions([]*models.Task{task})

	if report.Completed != 1 {
		t.Errorf("expected 1 completed, got %d", report.Completed)
	}
	if report.TotalActualMins != 0 {
		t.Errorf("expected 0 actual minutes, got %d", report.TotalActualMins)
	}
	if len(report.Adjustments) != 0 {
		t.Errorf("expected no adjustments, got %v", report.Adjustments)
	}
}
