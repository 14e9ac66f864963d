// Package tts implements the TTS phase's atomic write protocol (§4.6):
// render to a temporary file, probe it, rename into place, and commit the
// DB row in one step — so a crash or provider error between any two steps
// never leaves a Digest row pointing at a missing or corrupt file.
package tts

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/geraldfingburke/dailydigest/internal/taxonomy"
)

// Synthesizer renders script text to an MP3 file at destPath using the
// voice bound to the digest's topic.
type Synthesizer interface {
	Synthesize(ctx context.Context, text, voiceID, destPath string) error
}

// HTTPSynthesizer calls a self-hosted or OpenAI-compatible TTS HTTP
// endpoint, streaming the response body straight to disk — the same
// streaming-to-disk shape as the Audio phase's Downloader, so neither path
// holds a whole MP3 in memory.
type HTTPSynthesizer struct {
	Client  *http.Client
	BaseURL string
	APIKey  string
	Model   string
}

func NewHTTPSynthesizer(baseURL, apiKey, model string) *HTTPSynthesizer {
	return &HTTPSynthesizer{Client: &http.Client{Timeout: 3 * time.Minute}, BaseURL: baseURL, APIKey: apiKey, Model: model}
}

type synthesizeRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
	Voice string `json:"voice"`
}

func (s *HTTPSynthesizer) Synthesize(ctx context.Context, text, voiceID, destPath string) error {
	body, err := jsonMarshal(synthesizeRequest{Model: s.Model, Input: text, Voice: voiceID})
	if err != nil {
		return fmt.Errorf("marshal tts request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.BaseURL+"/audio/speech", body)
	if err != nil {
		return fmt.Errorf("build tts request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.APIKey)
	}

	resp, err := s.Client.Do(req)
	if err != nil {
		return taxonomy.NewTransient("tts synthesis", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
		return taxonomy.NewTransient("tts synthesis", fmt.Errorf("status %d", resp.StatusCode))
	}
	if resp.StatusCode != http.StatusOK {
		return taxonomy.NewInputInvalid(fmt.Sprintf("tts service returned status %d", resp.StatusCode), nil)
	}

	out, err := os.Create(destPath)
	if err != nil {
		return fmt.Errorf("create temp mp3 %s: %w", destPath, err)
	}
	defer out.Close()

	if _, err := io.Copy(out, resp.Body); err != nil {
		return fmt.Errorf("write mp3 to %s: %w", destPath, err)
	}
	return nil
}
