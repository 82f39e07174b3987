package comms

import (
	"context"
	"fmt"
	"strings"

	"github.com/ldi/pwoa/internal/llm"
	"github.com/ldi/pwoa/internal/log"
	"github.com/ldi/pwoa/pkg/models"
)

// EmailAction selects what kind of draft to generate for a task.
type EmailAction string

const (
	ActionFollowUp         EmailAction = "follow_up"
	ActionRequestMeeting   EmailAction = "request_meeting"
	ActionSummary          EmailAction = "summary"
	ActionCompletionNotice EmailAction = "completion_notice"
)

const maxContextChars = 1000

// Drafter generates follow-up emails and plan summaries. It never
// fails: without an LLM client (or when the call errors) it returns a
// deterministic template draft.
type Drafter struct {
	client *llm.Client
}

// NewDrafter creates a drafter. client may be nil.
func NewDrafter(client *llm.Client) *Drafter {
	return &Drafter{client: client}
}

// DraftEmail generates a draft email for the given task and action.
func (d *Drafter) DraftEmail(ctx context.Context, task *models.Task, action EmailAction) string {
	if d.client == nil {
		return templateDraft(task)
	}

	taskContext := task.Context
	if len(taskContext) > maxContextChars {
		taskContext = taskContext[:maxContextChars]
	}

	prompt := fmt.Sprintf(`Action: %s
Task: %s
Context: %s
Constraints: Keep it concise (~3 short paragraphs). Include a clear call-to-action if relevant. Use a friendly professional tone.`,
		action, task.Description, taskContext)

	draft, err := d.client.Complete(ctx, "You draft concise professional emails on behalf of a user.", prompt, 500)
	if err != nil {
		log.GetLogger().Warnf("email draft failed for task %s, using template: %v", task.ID, err)
		return templateDraft(task)
	}
	return draft
}

func templateDraft(task *models.Task) string {
	return fmt.Sprintf("Subject: RE: %s\n\nHello,\n\nThis is a draft email regarding the task: '%s'.\n\n[Your content here]\n\nBest,\n\nPWOA (on behalf of User)",
		task.Description, task.Description)
}

// DailySummary renders a plain-text summary of the plan's today bucket.
func DailySummary(plan *models.Plan) string {
	var b strings.Builder
	b.WriteString("Here is your plan for today:\n\n")

	for i, task := range plan.Today {
		fmt.Fprintf(&b, "%d. %s (Est: %d min)\n", i+1, task.Description, task.EstimatedTimeMinutes)
	}
	if len(plan.Today) == 0 {
		b.WriteString("No tasks scheduled for today. Time to add some!\n")
	}

	b.WriteString("\nLet's have a productive day!")
	return b.String()
}
