package db

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ldi/pwoa/pkg/models"
)

// EnableAutoSnapshot sets up a hook that exports a snapshot to the given
// path after every successful write. Export errors are swallowed so a
// failing backup never fails the original write.
func (db *DB) EnableAutoSnapshot(path string) {
	db.SetOnChange(func(ctx context.Context) {
		_ = db.ExportSnapshot(ctx, path)
	})
}

// ExportSnapshot writes every task as one JSON line, atomically via a
// temporary file.
func (db *DB) ExportSnapshot(ctx context.Context, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create snapshot directory: %w", err)
	}

	tempFile, err := os.CreateTemp(dir, "snapshot-*.jsonl")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer func() {
		if tempFile != nil {
			tempFile.Close()
			os.Remove(tempFile.Name())
		}
	}()

	tasks, err := db.queryTasks(ctx, `SELECT `+taskColumns+` FROM tasks ORDER BY created_at ASC, id ASC`)
	if err != nil {
		return fmt.Errorf("failed to query tasks for snapshot: %w", err)
	}

	for _, t := range tasks {
		line, err := json.Marshal(t)
		if err != nil {
			return fmt.Errorf("failed to encode task %s: %w", t.ID, err)
		}
		if _, err := tempFile.Write(append(line, '\n')); err != nil {
			return fmt.Errorf("failed to write snapshot line: %w", err)
		}
	}

	if err := tempFile.Sync(); err != nil {
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	filename := tempFile.Name()
	tempFile = nil // Prevent defer from removing it

	if err := os.Rename(filename, path); err != nil {
		return fmt.Errorf("failed to move snapshot into place: %w", err)
	}
	return nil
}

// ImportSnapshot loads tasks from a JSONL snapshot file into the store.
// Existing tasks with the same id are replaced.
func (db *DB) ImportSnapshot(ctx context.Context, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open snapshot: %w", err)
	}
	defer f.Close()

	var tasks []*models.Task
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		t := &models.Task{}
		if err := json.Unmarshal(line, t); err != nil {
			return fmt.Errorf("bad snapshot line %d: %w", lineNum, err)
		}
		tasks = append(tasks, t)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read snapshot: %w", err)
	}

	if len(tasks) == 0 {
		return nil
	}
	return db.SaveTasks(ctx, tasks)
}
