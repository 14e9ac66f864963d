package digest

import (
	"context"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/geraldfingburke/dailydigest/internal/taxonomy"
)

// Generator calls the LLM to synthesize a topic-scoped digest script from
// a set of qualifying episode transcripts, grounded on the teacher's
// multi-step prompt-construction philosophy but built against go-openai.
type Generator struct {
	client *openai.Client
	model  string
}

func NewGenerator(apiKey, baseURL, model string) *Generator {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &Generator{client: openai.NewClientWithConfig(cfg), model: model}
}

// Transcript pairs an episode's trimmed text with its title, for prompt
// attribution.
type Transcript struct {
	EpisodeTitle string
	Text         string
}

// GenerateScript calls the LLM with instructionsMD and the supplied
// transcripts (already truncated to fit maxInputTokens by the caller —
// §4.5 step 4's "retain earliest characters up to limit" truncation
// policy), bounding the response to roughly maxOutputTokens.
func (g *Generator) GenerateScript(ctx context.Context, topic, instructionsMD string, transcripts []Transcript, maxOutputTokens int) (string, error) {
	var sb strings.Builder
	for i, t := range transcripts {
		fmt.Fprintf(&sb, "### Episode %d: %s\n%s\n\n", i+1, t.EpisodeTitle, t.Text)
	}

	systemPrompt := fmt.Sprintf(
		"You write a spoken-word daily digest script for the topic %q.\nFollow these instructions exactly:\n%s",
		topic, instructionsMD,
	)

	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: sb.String()},
		},
		MaxTokens: maxOutputTokens,
	})
	if err != nil {
		return "", taxonomy.NewTransient("llm script generation call", err)
	}
	if len(resp.Choices) == 0 {
		return "", taxonomy.NewInputInvalid("llm script generation response had no choices", nil)
	}
	return resp.Choices[0].Message.Content, nil
}

// GenerateNoContentScript produces a short acknowledgment script when no
// episodes qualify for a topic on a given day (§4.5 step 3), without an LLM
// round trip — it is a fixed template, not a generation task.
func GenerateNoContentScript(topic string) string {
	return fmt.Sprintf(
		"There's no new %s content that met today's bar for inclusion. We'll be back tomorrow with the next qualifying episodes.",
		topic,
	)
}

// TruncateToLimit retains the earliest maxChars characters of text — the
// truncation policy §4.5 step 4 specifies explicitly ("retain earliest
// characters up to limit").
func TruncateToLimit(text string, maxChars int) string {
	if maxChars <= 0 || len(text) <= maxChars {
		return text
	}
	return text[:maxChars]
}
