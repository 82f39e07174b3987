package scoring

import (
	"context"
	"strings"
	"time"

	"github.com/ldi/pwoa/internal/log"
	"github.com/ldi/pwoa/pkg/models"
)

// Augmentation is the partial scoring result an Augmenter may return.
// Zero-valued fields are ignored.
type Augmentation struct {
	UrgencyBoost         int                 `json:"urgency_boost"`
	ImportanceBoost      int                 `json:"importance_boost"`
	Category             models.TaskCategory `json:"category"`
	EstimatedTimeMinutes int                 `json:"estimated_time_minutes"`
}

// Augmenter adjusts a rule-based score for a single task. Implementations
// are treated as unreliable: any error, timeout, or malformed result makes
// the scorer fall back to the rule-based score for that task.
type Augmenter interface {
	Score(ctx context.Context, description, context string, deadline *time.Time) (*Augmentation, error)
}

// maxContextChars limits how much of the original source text is handed
// to the augmenter.
const maxContextChars = 200

var urgencyKeywords = []string{"urgent", "asap", "now", "immediately", "critical", "emergency"}

// Scorer assigns numeric priority scores and coarse labels to tasks.
type Scorer struct {
	augmenter Augmenter
	now       func() time.Time
}

// NewScorer creates a scorer. augmenter may be nil, in which case only
// the rule-based scoring runs.
func NewScorer(augmenter Augmenter) *Scorer {
	return &Scorer{
		augmenter: augmenter,
		now:       time.Now,
	}
}

// AssignPriority computes a priority score, label, and (when unset)
// category for each task. Tasks are mutated in place and returned in
// input order. No augmenter failure escapes this method.
func (s *Scorer) AssignPriority(ctx context.Context, tasks []*models.Task) []*models.Task {
	// Read the clock once so relative-day math is consistent across the batch.
	now := s.now()

	for _, task := range tasks {
		score := s.baseScore(task, now)

		if s.augmenter != nil && task.Description != "" {
			if aug, err := s.augment(ctx, task); err != nil {
				log.GetLogger().Warnf("augmenter failed for task %s, keeping rule-based score: %v", task.ID, err)
			} else {
				score += float64(clampBoost(aug.UrgencyBoost))
				score += float64(clampBoost(aug.ImportanceBoost))
				if aug.Category != "" && models.ValidCategory(aug.Category) {
					task.Category = aug.Category
				}
				if aug.EstimatedTimeMinutes > 0 {
					task.EstimatedTimeMinutes = aug.EstimatedTimeMinutes
				}
			}
		}

		task.PriorityScore = int(score)
		task.Priority = labelFor(score)

		if task.Category == models.TaskCategoryMisc {
			task.Category = Categorize(task.Description)
		}
	}

	return tasks
}

func (s *Scorer) baseScore(task *models.Task, now time.Time) float64 {
	var score float64

	// Rule 1: deadline proximity.
	if task.Deadline != nil {
		days := int(task.Deadline.Sub(now).Hours() / 24)
		switch {
		case days < 1:
			score += 100
		case days < 3:
			score += 50
		case days < 7:
			score += 20
		}
	}

	// Rule 2: urgency keywords. Flat boost, not cumulative per keyword.
	desc := strings.ToLower(task.Description)
	for _, kw := range urgencyKeywords {
		if strings.Contains(desc, kw) {
			score += 75
			break
		}
	}

	// Rule 3: complexity, 10 points per estimated hour.
	score += float64(task.EstimatedTimeMinutes) / 6

	// Rule 4: emails tend to carry external commitments.
	if task.Source == models.TaskSourceEmail {
		score += 10
	}

	return score
}

func (s *Scorer) augment(ctx context.Context, task *models.Task) (*Augmentation, error) {
	taskContext := task.Context
	if len(taskContext) > maxContextChars {
		taskContext = taskContext[:maxContextChars]
	}
	return s.augmenter.Score(ctx, task.Description, taskContext, task.Deadline)
}

func labelFor(score float64) models.TaskPriority {
	switch {
	case score > 150:
		return models.TaskPriorityCritical
	case score > 80:
		return models.TaskPriorityHigh
	case score > 30:
		return models.TaskPriorityMedium
	default:
		return models.TaskPriorityLow
	}
}

func clampBoost(v int) int {
	if v < 0 {
		return 0
	}
	if v > 50 {
		return 50
	}
	return v
}
