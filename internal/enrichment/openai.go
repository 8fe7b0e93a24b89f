package enrichment

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/mmynk/shoeshelf/internal/models"
)

const systemPrompt = "You are a footwear expert. For each shoe, give two or three sentences " +
	"on what it is, who it suits, and whether the listed price is fair. Plain text, no markdown."

// OpenAIDescriber asks a chat completion model for shoe details.
type OpenAIDescriber struct {
	client *openai.Client
	model  string
}

// NewOpenAIDescriber creates a describer. baseURL may be empty for the default API.
func NewOpenAIDescriber(apiKey, baseURL, model string, httpClient *http.Client) *OpenAIDescriber {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if httpClient != nil {
		cfg.HTTPClient = httpClient
	}
	return &OpenAIDescriber{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
	}
}

// Describe sends the list as a single user message.
func (d *OpenAIDescriber) Describe(ctx context.Context, items []models.Item) (string, error) {
	var prompt strings.Builder
	prompt.WriteString("Describe these shoes:\n")
	for _, item := range items {
		fmt.Fprintf(&prompt, "- %s (%s)\n", item.Name, models.FormatPrice(item.Price))
	}

	resp, err := d.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: d.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt.String()},
		},
	})
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("chat completion returned no choices")
	}

	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
