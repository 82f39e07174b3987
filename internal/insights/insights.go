package insights

import (
	"fmt"

	"github.com/ldi/pwoa/pkg/models"
)

// Report summarizes completion patterns over finished tasks.
type Report struct {
	Completed          int                         `json:"completed"`
	TotalEstimatedMins int                         `json:"total_estimated_minutes"`
	TotalActualMins    int                         `json:"total_actual_minutes"`
	ByCategory         map[models.TaskCategory]int `json:"by_category"`
	// Adjustments are per-category multipliers to apply to future
	// estimates, derived from estimate vs. actual drift.
	Adjustments map[models.TaskCategory]float64 `json:"adjustments"`
	Feedback    string                          `json:"feedback"`
}

// AnalyzeCompletions inspects completed tasks for patterns worth
// feeding back into future estimates. Tasks that are not completed are
// ignored.
func AnalyzeCompletions(tasks []*models.Task) *Report {
	report := &Report{
		ByCategory:  make(map[models.TaskCategory]int),
		Adjustments: make(map[models.TaskCategory]float64),
	}

	estByCategory := make(map[models.TaskCategory]int)
	actByCategory := make(map[models.TaskCategory]int)

	for _, t := range tasks {
		if t.Status != models.TaskStatusCompleted {
			continue
		}
		report.Completed++
		report.TotalEstimatedMins += t.EstimatedTimeMinutes
		report.ByCategory[t.Category]++
		if t.ActualTimeMinutes != nil {
			report.TotalActualMins += *t.ActualTimeMinutes
			estByCategory[t.Category] += t.EstimatedTimeMinutes
			actByCategory[t.Category] += *t.ActualTimeMinutes
		}
	}

	if report.Completed == 0 {
		report.Feedback = "No tasks completed yet to analyze."
		return report
	}

	for category, est := range estByCategory {
		if est == 0 {
			continue
		}
		ratio := float64(actByCategory[category]) / float64(est)
		// Only flag categories with meaningful drift.
		if ratio > 1.05 || ratio < 0.95 {
			report.Adjustments[category] = ratio
		}
	}

	report.Feedback = fmt.Sprintf("You completed %d tasks with a total estimated time of %d minutes.",
		report.Completed, report.TotalEstimatedMins)
	if len(report.Adjustments) > 0 {
		report.Feedback += " Some categories drift from their estimates; future estimates should be scaled accordingly."
	}

	return report
}
