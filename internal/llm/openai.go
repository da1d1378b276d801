package llm

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// Request is one text-generation call. System may be empty; MaxTokens bounds
// the reply so prompt templates can keep cost predictable.
type Request struct {
	System      string
	User        string
	MaxTokens   int
	Temperature float32
	TopP        float32
}

// ErrEmptyReply indicates the service answered with no usable candidates.
// Callers treat it like any other transient failure.
var ErrEmptyReply = errors.New("llm: empty reply")

// Client is the boundary to the remote text-generation service. Failures are
// returned as typed errors, never panics.
type Client interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// OpenAIClient calls the OpenAI chat completion API. API credentials and the
// model name are loaded from environment variables.
type OpenAIClient struct {
	client *openai.Client
	model  string
}

// NewOpenAIClient constructs an OpenAI-backed client. It reads the API key and
// model name from the environment and falls back to a sensible default model.
func NewOpenAIClient() *OpenAIClient {
	apiKey := os.Getenv("OPENAI_API_KEY")
	c := openai.NewClient(apiKey)

	model := os.Getenv("OPENAI_MODEL_CHAT")
	if model == "" {
		model = "gpt-4o-mini"
	}

	return &OpenAIClient{client: c, model: model}
}

// Complete sends the request to the chat completion API and returns the first
// candidate's text, trimmed.
func (c *OpenAIClient) Complete(ctx context.Context, req Request) (string, error) {
	if c.client == nil {
		return "", errors.New("llm: openai client not initialized")
	}

	msgs := make([]openai.ChatCompletionMessage, 0, 2)
	if req.System != "" {
		msgs = append(msgs, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.System,
		})
	}
	msgs = append(msgs, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: req.User,
	})

	temperature := req.Temperature
	if temperature == 0 {
		temperature = 0.2
	}

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    msgs,
		MaxTokens:   req.MaxTokens,
		Temperature: temperature,
		TopP:        req.TopP,
	})
	if err != nil {
		return "", fmt.Errorf("llm: completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyReply
	}
	out := strings.TrimSpace(resp.Choices[0].Message.Content)
	if out == "" {
		return "", ErrEmptyReply
	}
	return out, nil
}
