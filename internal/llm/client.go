package llm

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// Client is a thin wrapper around the OpenAI chat completions API used
// by the augmenter, extractor, and communication helpers.
type Client struct {
	c     *openai.Client
	model openai.ChatModel
}

func NewClient(apiKey string) *Client {
	client := openai.NewClient(option.WithAPIKey(apiKey))
	return &Client{
		c:     &client,
		model: openai.ChatModelGPT4_1Mini,
	}
}

// NewClientFromEnv returns a client configured from OPENAI_API_KEY, or
// nil when the key is unset. A nil client means every LLM-backed path
// falls back to its rule-based behavior.
func NewClientFromEnv() *Client {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return nil
	}
	return NewClient(apiKey)
}

// Complete sends a system+user prompt pair and returns the assistant text.
func (c *Client) Complete(ctx context.Context, system, user string, maxTokens int64) (string, error) {
	res, err := c.c.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: c.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(user),
		},
		Temperature: openai.Float(0.3),
		MaxTokens:   openai.Int(maxTokens),
	})
	if err != nil {
		return "", err
	}
	if len(res.Choices) == 0 {
		return "", fmt.Errorf("no choices in completion response")
	}
	return strings.TrimSpace(res.Choices[0].Message.Content), nil
}

// StripCodeFence removes a surrounding markdown code fence from a model
// response, including an optional "json" language tag. Models return
// fenced JSON often enough that every JSON-parsing caller wants this.
func StripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	parts := strings.SplitN(s, "```", 3)
	if len(parts) < 2 {
		return s
	}
	s = strings.TrimPrefix(parts[1], "json")
	return strings.TrimSpace(s)
}
