package augment

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ldi/pwoa/internal/llm"
	"github.com/ldi/pwoa/internal/scoring"
)

const defaultTimeout = 15 * time.Second

const systemPrompt = "You are a task prioritization assistant. Return only valid JSON."

// OpenAIAugmenter implements scoring.Augmenter on top of the OpenAI
// chat API. It is expected to fail: timeouts, malformed JSON, and API
// errors all surface as errors and the scorer degrades to rules.
type OpenAIAugmenter struct {
	client  *llm.Client
	timeout time.Duration
}

func NewOpenAIAugmenter(client *llm.Client) *OpenAIAugmenter {
	return &OpenAIAugmenter{
		client:  client,
		timeout: defaultTimeout,
	}
}

func (a *OpenAIAugmenter) Score(ctx context.Context, description, taskContext string, deadline *time.Time) (*scoring.Augmentation, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	deadlineText := "None"
	if deadline != nil {
		deadlineText = deadline.Format(time.RFC3339)
	}
	contextText := taskContext
	if contextText == "" {
		contextText = "None"
	}

	prompt := fmt.Sprintf(`Analyze this task and provide:
1. urgency_boost: Additional priority points (0-50) based on urgency
2. importance_boost: Additional priority points (0-50) based on importance
3. category: One of: work, personal, learning, fitness, finance, misc
4. estimated_time_minutes: Estimated time to complete (in minutes)

Task: %s
Context: %s
Current deadline: %s

Return ONLY a JSON object with these fields. No other text.`, description, contextText, deadlineText)

	raw, err := a.client.Complete(ctx, systemPrompt, prompt, 200)
	if err != nil {
		return nil, fmt.Errorf("completion failed: %w", err)
	}

	return ParseAugmentation(raw)
}

// ParseAugmentation decodes a model response into an Augmentation,
// tolerating a surrounding markdown fence.
func ParseAugmentation(raw string) (*scoring.Augmentation, error) {
	aug := &scoring.Augmentation{}
	if err := json.Unmarshal([]byte(llm.StripCodeFence(raw)), aug); err != nil {
		return nil, fmt.Errorf("malformed augmentation response: %w", err)
	}
	return aug, nil
}
