// Package scoring implements the Scorer collaborator (§4.4 step 3): an LLM
// call that returns a relevance score in [0,1] for each active topic given
// a trimmed transcript. Grounded on the teacher's ai.go prompt-construction
// and strict-response-validation philosophy, but built against
// sashabaranov/go-openai (present, unused, in the teacher's own go.mod)
// rather than a raw Ollama HTTP call, since the model/base URL are
// Settings-Store-driven and an OpenAI-compatible gateway is the common
// denominator across self-hosted and cloud LLM providers.
package scoring

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/geraldfingburke/dailydigest/internal/models"
	"github.com/geraldfingburke/dailydigest/internal/taxonomy"
)

// Service scores transcripts against the active topic set.
type Service struct {
	client    *openai.Client
	model     string
	maxTokens int
}

// NewService constructs a scoring Service against an OpenAI-compatible
// endpoint. baseURL may point at a self-hosted gateway; apiKey is still
// required even for such gateways that ignore it, since go-openai rejects
// an empty key. maxTokens bounds the completion (ai_content_scoring.max_tokens).
func NewService(apiKey, baseURL, model string, maxTokens int) *Service {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &Service{client: openai.NewClientWithConfig(cfg), model: model, maxTokens: maxTokens}
}

const systemPrompt = `You score a podcast transcript against a fixed set of topics.
For each topic name given, respond with a relevance score between 0.0 and 1.0.
Respond with ONLY a JSON object mapping each topic name to its numeric score. No other text.`

// Score calls the LLM with transcript and the active topic names and
// validates the response: keys that are not in activeTopics are dropped, so
// the returned keys are always a subset of the active topic set (§3 Episode
// invariant), and any value outside [0,1] fails the call.
func (s *Service) Score(ctx context.Context, transcript string, activeTopics []string) (models.TopicScores, error) {
	if len(activeTopics) == 0 {
		return models.TopicScores{}, nil
	}

	userPrompt := fmt.Sprintf("Topics: %s\n\nTranscript:\n%s", strings.Join(activeTopics, ", "), transcript)

	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: s.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject},
		Temperature:    0,
		MaxTokens:      s.maxTokens,
	})
	if err != nil {
		return nil, taxonomy.NewTransient("llm scoring call", err)
	}
	if len(resp.Choices) == 0 {
		return nil, taxonomy.NewInputInvalid("llm scoring response had no choices", nil)
	}

	raw := resp.Choices[0].Message.Content
	var parsed map[string]float64
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return nil, taxonomy.NewInputInvalid("llm scoring response was not valid JSON: "+raw, err)
	}

	allowed := make(map[string]bool, len(activeTopics))
	for _, t := range activeTopics {
		allowed[t] = true
	}

	out := make(models.TopicScores, len(parsed))
	for topic, score := range parsed {
		if !allowed[topic] {
			continue // schema violation on this key; drop rather than fail the whole episode
		}
		if score < 0 || score > 1 {
			return nil, taxonomy.NewInputInvalid(fmt.Sprintf("llm scoring returned out-of-range score %f for topic %s", score, topic), nil)
		}
		out[topic] = score
	}
	return out, nil
}
