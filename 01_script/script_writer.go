package script

import (
	"context"
	"fmt"
	"log"
	"strings"

	"learntube-pipeline/config"
	"learntube-pipeline/llm"
)

const promptTemplate = `You are an expert scriptwriter for educational YouTube videos.
Create a clear, concise, and engaging narration script for a %d-%d minute video about "%s".
Divide the script into paragraphs. Each paragraph will become a separate scene/voiceover block in the animation.
Return only the narration paragraphs: no headings, no stage directions, no markdown.`

// Writer generates narration scripts with the configured text model
type Writer struct {
	cfg *config.Config
	gen llm.Generator
}

// New creates a new script Writer
func New(cfg *config.Config, gen llm.Generator) *Writer {
	return &Writer{cfg: cfg, gen: gen}
}

// Run writes the narration for topic, one paragraph per scene
func (w *Writer) Run(ctx context.Context, topic string) (string, error) {
	log.Printf("[script] Generating educational narration script for topic: %q", topic)

	text, err := w.gen.Generate(ctx, BuildPrompt(topic, w.cfg.Script.TargetDurationMin, w.cfg.Script.TargetDurationMax))
	if err != nil {
		return "", fmt.Errorf("failed to generate narration script: %w", err)
	}

	narration := llm.CleanFence(text, "text", "markdown")
	if narration == "" {
		return "", fmt.Errorf("failed to generate narration script: model returned empty text")
	}

	log.Printf("[script] ✅ Narration ready: %d paragraphs, %d words", len(Paragraphs(narration)), len(strings.Fields(narration)))
	return narration, nil
}

// BuildPrompt renders the narration prompt for topic
func BuildPrompt(topic string, minMinutes, maxMinutes int) string {
	if minMinutes <= 0 {
		minMinutes = 2
	}
	if maxMinutes < minMinutes {
		maxMinutes = minMinutes
	}
	return fmt.Sprintf(promptTemplate, minMinutes, maxMinutes, topic)
}

// Paragraphs splits narration on blank lines, dropping empty blocks
func Paragraphs(narration string) []string {
	normalized := strings.ReplaceAll(narration, "\r\n", "\n")
	var out []string
	for _, block := range strings.Split(normalized, "\n\n") {
		if block = strings.TrimSpace(block); block != "" {
			out = append(out, block)
		}
	}
	return out
}
