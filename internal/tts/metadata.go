package tts

import (
	"context"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// MetadataGenerator produces a title and short summary for a rendered
// digest via an auxiliary LLM call. It is best-effort: callers fall back
// to a deterministic title on any error (§4.6 "Metadata generation").
type MetadataGenerator struct {
	client *openai.Client
	model  string
}

func NewMetadataGenerator(apiKey, baseURL, model string) *MetadataGenerator {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &MetadataGenerator{client: openai.NewClientWithConfig(cfg), model: model}
}

// Generate returns (title, summary) bounded by maxTitleTokens/maxSummaryTokens.
func (m *MetadataGenerator) Generate(ctx context.Context, topic, script string, maxTitleTokens, maxSummaryTokens int) (string, string, error) {
	title, err := m.complete(ctx, fmt.Sprintf(
		"Write a short, compelling episode title (no quotes) for this %s digest script:\n\n%s", topic, script,
	), maxTitleTokens)
	if err != nil {
		return "", "", err
	}
	summary, err := m.complete(ctx, fmt.Sprintf(
		"Write a one or two sentence summary for this %s digest script:\n\n%s", topic, script,
	), maxSummaryTokens)
	if err != nil {
		return "", "", err
	}
	return title, summary, nil
}

func (m *MetadataGenerator) complete(ctx context.Context, prompt string, maxTokens int) (string, error) {
	resp, err := m.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     m.model,
		Messages:  []openai.ChatCompletionMessage{{Role: openai.ChatMessageRoleUser, Content: prompt}},
		MaxTokens: maxTokens,
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("metadata completion returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

// FallbackTitle returns the deterministic title used when metadata
// generation fails (§4.6): "{Topic} Daily Digest - {Month DD, YYYY}".
func FallbackTitle(topic string, digestDate time.Time) string {
	return fmt.Sprintf("%s Daily Digest - %s", topic, digestDate.Format("January 2, 2006"))
}
