package db

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ldi/pwoa/pkg/models"
)

func TestSnapshotRoundTrip(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	a := models.NewTask("export me", models.TaskSourceText)
	a.PriorityScore = 50
	a.Tags = []string{"calendar"}
	b := models.NewTask("me too", models.TaskSourceEmail)

	if err := db.SaveTasks(ctx, []*models.Task{a, b}); err != nil {
		t.Fatalf("Failed to save tasks: %v", err)
	}

	path := filepath.Join(t.TempDir(), "snapshot.jsonl")
	if err := db.ExportSnapshot(ctx, path); err != nil {
		t.Fatalf("Failed to export snapshot: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read snapshot: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 2 {
		t.Fatalf("Expected 2 snapshot lines, got %d", len(lines))
	}

	// Import into a fresh database.
	db2 := openTestDB(t)
	if err := db2.ImportSnapshot(ctx, path); err != nil {
		t.Fatalf("Failed to import snapshot: %v", err)
	}

	restored, err := db2.GetTask(ctx, a.ID)
	if err != nil {
		t.Fatalf("Failed to get restored task: %v", err)
	}
	if restored == nil {
		t.Fatal("Restored task not found")
	}
	if restored.Description != a.Description {
		t.Errorf("Expected description %q, got %q", a.Description, restored.Description)
	}
	if restored.PriorityScore != 50 {
		t.Errorf("Expected score 50, got %d", restored.PriorityScore)
	}
	if len(restored.Tags) != 1 || restored.Tags[0] != "calendar" {
		t.Errorf("Expected tags [calendar], got %v", restored.Tags)
	}
}

func TestImportSnapshotEmptyFile(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	path := filepath.Join(t.TempDir(), "empty.jsonl")
	if err := os.WriteFile(path, []byte(""), 0644); err != nil {
		t.Fatalf("Failed to write empty snapshot: %v", err)
	}

	if err := db.ImportSnapshot(ctx, path); err != nil {
		t.Fatalf("Expected empty snapshot to import cleanly: %v", err)
	}
}

func TestImportSnapshotBadLine(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	path := filepath.Join(t.TempDir(), "bad.jsonl")
	if err := os.WriteFile(path, []byte("{not json}\n"), 0644); err != nil {
		t.Fatalf("Failed to write snapshot: %v", err)
	}

	err := db.ImportSnapshot(ctx, path)
	if err == nil {
		t.Fatal("Expected error importing malformed snapshot")
	}
	if !strings.Contains(err.Error(), "line 1") {
		t.Errorf("Expected line number in error, got %v", err)
	}
}

func TestEnableAutoSnapshot(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	path := filepath.Join(t.TempDir(), "auto.jsonl")
	db.EnableAutoSnapshot(path)

	task := models.NewTask("auto snapshot", models.TaskSourceText)
	if err := db.SaveTask(ctx, task); err != nil {
		t.Fatalf("Failed to save task: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Expected snapshot after write: %v", err)
	}
	if !strings.Contains(string(data), task.ID) {
		t.Errorf("Expected snapshot to contain task %s", task.ID)
	}
}
