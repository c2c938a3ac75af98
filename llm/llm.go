// Package llm wraps the generative text APIs the pipeline prompts for
// narration, animation code and upload metadata.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"learntube-pipeline/config"
)

// ErrNotConfigured is returned when the selected provider has no API key.
var ErrNotConfigured = errors.New("llm provider is not configured")

// Generator turns a prompt into text.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// New builds the generator for the configured provider.
func New(ctx context.Context, cfg *config.Config) (Generator, error) {
	timeout := time.Duration(cfg.LLM.TimeoutSec) * time.Second
	switch cfg.LLM.Provider {
	case "groq":
		if cfg.LLM.GroqAPIKey == "" {
			return nil, fmt.Errorf("%w: GROQ_API_KEY not set", ErrNotConfigured)
		}
		return NewGroq(cfg.LLM.GroqAPIKey, cfg.LLM.GroqModel, cfg.LLM.Temperature, timeout), nil
	case "gemini", "":
		if cfg.LLM.GeminiAPIKey == "" {
			return nil, fmt.Errorf("%w: GEMINI_API_KEY not set", ErrNotConfigured)
		}
		return NewGemini(ctx, cfg.LLM.GeminiModel, timeout, WithAPIKey(cfg.LLM.GeminiAPIKey))
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.LLM.Provider)
	}
}

// CleanFence strips a markdown code fence if the model wrapped its answer in one.
// langs lists the info strings to accept after the opening fence.
func CleanFence(s string, langs ...string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	for _, lang := range langs {
		if strings.HasPrefix(s, lang+"\n") || strings.HasPrefix(s, lang+"\r\n") {
			s = strings.TrimPrefix(s, lang)
			break
		}
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// Truncate shortens s to n bytes for log and error excerpts.
func Truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
