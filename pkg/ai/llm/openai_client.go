package llm

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/sashabaranov/go-openai"
)

// OpenAIClient wraps the OpenAI API client
type OpenAIClient struct {
	client      *openai.Client
	model       string
	temperature float32
	logger      *log.Logger
}

// Config for OpenAI client
type Config struct {
	APIKey      string
	Model       string  // default: gpt-4o-mini
	Temperature float32 // default: 0.8
}

// NewOpenAIClient creates a new OpenAI client
func NewOpenAIClient(cfg Config, logger *log.Logger) *OpenAIClient {
	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = 0.8
	}
	if logger == nil {
		logger = log.Default()
	}

	return &OpenAIClient{
		client:      openai.NewClient(cfg.APIKey),
		model:       cfg.Model,
		temperature: cfg.Temperature,
		logger:      logger,
	}
}

func (c *OpenAIClient) Provider() string { return "openai" }

// Suggest requests n completions for the prompt and returns one
// suggestion per non-empty choice.
func (c *OpenAIClient) Suggest(ctx context.Context, prompt string, n int) ([]string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: "You are a helpful message assistant. Generate natural, contextually appropriate message suggestions.",
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
		N:           n,
		Temperature: c.temperature,
	})
	if err != nil {
		c.logger.Printf("❌ OpenAI request failed: %v", err)
		return nil, fmt.Errorf("chat completion failed: %w", err)
	}

	var suggestions []string
	for _, choice := range resp.Choices {
		if text := strings.TrimSpace(choice.Message.Content); text != "" {
			suggestions = append(suggestions, text)
		}
	}
	return suggestions, nil
}
