package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/ldi/pwoa/internal/llm"
	"github.com/ldi/pwoa/internal/log"
	"github.com/ldi/pwoa/pkg/models"
)

const systemPrompt = "You are a task extraction assistant. Return only valid JSON arrays."

// extractedTask is the JSON contract the model is asked to follow.
type extractedTask struct {
	Description          string `json:"description"`
	Deadline             string `json:"deadline"`
	EstimatedTimeMinutes int    `json:"estimated_time_minutes"`
	Category             string `json:"category"`
	Notes                string `json:"notes"`
}

// Extractor turns unstructured text into task records. With no LLM
// client (or on any LLM failure) it degrades to a line-based parser, so
// extraction always yields something.
type Extractor struct {
	client *llm.Client
}

// NewExtractor creates an extractor. client may be nil.
func NewExtractor(client *llm.Client) *Extractor {
	return &Extractor{client: client}
}

// FromText extracts tasks from free-form note text.
func (e *Extractor) FromText(ctx context.Context, text string) []*models.Task {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	return e.parse(ctx, text, models.TaskSourceText)
}

// FromEmail extracts tasks from an email body.
func (e *Extractor) FromEmail(ctx context.Context, body string) []*models.Task {
	if strings.TrimSpace(body) == "" {
		return nil
	}
	return e.parse(ctx, body, models.TaskSourceEmail)
}

// FromUpload extracts tasks from text already pulled out of an uploaded
// document. File parsing and OCR happen upstream.
func (e *Extractor) FromUpload(ctx context.Context, text string) []*models.Task {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	return e.parse(ctx, text, models.TaskSourceUpload)
}

func (e *Extractor) parse(ctx context.Context, text string, source models.TaskSource) []*models.Task {
	if e.client == nil {
		return SimpleParse(text, source)
	}

	tasks, err := e.parseWithLLM(ctx, text, source)
	if err != nil {
		log.GetLogger().Warnf("LLM extraction failed, using simple parser: %v", err)
		return SimpleParse(text, source)
	}
	return tasks
}

func (e *Extractor) parseWithLLM(ctx context.Context, text string, source models.TaskSource) ([]*models.Task, error) {
	prompt := fmt.Sprintf(`Given a piece of text (email, note, or document), extract every actionable task.

Requirements:
- Return ONLY a JSON array (no surrounding text).
- Each item must be an object with these keys: description (short imperative sentence), deadline (ISO date or null), estimated_time_minutes (int or null), category (one of work, personal, learning, fitness, finance, misc), notes (string, optional).

Parsing rules:
- Convert informal deadlines to an ISO date if possible (e.g. 'tomorrow', 'next Tuesday', 'by Friday evening'). If you cannot determine a precise date, use null.
- If duration is not mentioned, set estimated_time_minutes to 30.
- Normalize description into a concise action (start with a verb).

Text to analyze:
%s`, text)

	raw, err := e.client.Complete(ctx, systemPrompt, prompt, 1000)
	if err != nil {
		return nil, fmt.Errorf("completion failed: %w", err)
	}

	var extracted []extractedTask
	if err := json.Unmarshal([]byte(llm.StripCodeFence(raw)), &extracted); err != nil {
		return nil, fmt.Errorf("malformed extraction response: %w", err)
	}

	tasks := make([]*models.Task, 0, len(extracted))
	for _, et := range extracted {
		description := et.Description
		if description == "" {
			description = "Untitled task"
		}

		t := models.NewTask(description, source)
		t.Context = text
		t.Notes = et.Notes
		if et.EstimatedTimeMinutes > 0 {
			t.EstimatedTimeMinutes = et.EstimatedTimeMinutes
		}
		if models.ValidCategory(models.TaskCategory(et.Category)) {
			t.Category = models.TaskCategory(et.Category)
		}
		if et.Deadline != "" && et.Deadline != "null" {
			if deadline, err := parseDeadline(et.Deadline); err == nil {
				t.Deadline = &deadline
			}
		}
		tasks = append(tasks, t)
	}

	return tasks, nil
}

// SimpleParse is the no-LLM fallback: one task per line, very short
// lines skipped, descriptions capped at 200 characters.
func SimpleParse(text string, source models.TaskSource) []*models.Task {
	lines := strings.Split(text, "\n")

	var tasks []*models.Task
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if len(line) < 5 {
			continue
		}
		if len(line) > 200 {
			line = line[:200]
		}

		t := models.NewTask(line, source)
		t.Context = text
		tasks = append(tasks, t)
	}

	if tasks == nil {
		trimmed := strings.TrimSpace(text)
		if len(trimmed) >= 5 {
			t := models.NewTask(trimmed, source)
			t.Context = text
			tasks = append(tasks, t)
		}
	}

	return tasks
}

func parseDeadline(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.ParseInLocation("2006-01-02", s, time.Local)
}
