package publish

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"learntube-pipeline/01_script"
	"learntube-pipeline/config"
	"learntube-pipeline/llm"
	"learntube-pipeline/types"
)

const metadataPrompt = `You are a YouTube SEO strategist for an educational animation channel.
Generate metadata for a short animated explainer video.

You MUST respond with ONLY valid JSON, no markdown, no explanation, with exactly these fields:
- "title": string (max %d chars, clear and curiosity-driven, no clickbait)
- "description": string (~150 words: what the viewer will learn, then a subscribe CTA)
- "tags": array of up to %d strings (mix of broad and specific tags)

TOPIC: %s

NARRATION (first paragraphs):
%s`

// MetadataWriter creates YouTube metadata via the text model
type MetadataWriter struct {
	cfg *config.Config
	gen llm.Generator
}

// NewMetadataWriter creates a new MetadataWriter
func NewMetadataWriter(cfg *config.Config, gen llm.Generator) *MetadataWriter {
	return &MetadataWriter{cfg: cfg, gen: gen}
}

type metadataJSON struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
}

// Run generates upload metadata. A model or parse failure falls back to
// metadata derived from the topic so publishing can still proceed.
func (m *MetadataWriter) Run(ctx context.Context, topic, narration string) *types.VideoMetadata {
	log.Println("[publish] Generating YouTube metadata...")

	var raw metadataJSON
	text, err := m.gen.Generate(ctx, m.buildPrompt(topic, narration))
	if err == nil {
		content := llm.CleanFence(text, "json")
		if jsonErr := json.Unmarshal([]byte(content), &raw); jsonErr != nil {
			err = fmt.Errorf("parse metadata JSON: %w (content: %s)", jsonErr, llm.Truncate(content, 200))
		}
	}
	if err != nil || strings.TrimSpace(raw.Title) == "" {
		log.Printf("[publish] Warning: metadata generation failed (%v), using topic", err)
		raw = metadataJSON{Title: topic, Description: narration}
	}

	meta := &types.VideoMetadata{
		Title:       clip(strings.TrimSpace(raw.Title), m.cfg.Upload.TitleMaxChars),
		Description: clip(strings.TrimSpace(raw.Description), 5000),
		Tags:        raw.Tags,
		CategoryID:  m.cfg.Upload.CategoryID,
		Visibility:  m.cfg.Upload.Visibility,
	}
	if n := m.cfg.Upload.TagsCount; n > 0 && len(meta.Tags) > n {
		meta.Tags = meta.Tags[:n]
	}

	log.Printf("[publish] Title: %q, %d tags", meta.Title, len(meta.Tags))
	return meta
}

func (m *MetadataWriter) buildPrompt(topic, narration string) string {
	paragraphs := script.Paragraphs(narration)
	if len(paragraphs) > 3 {
		paragraphs = paragraphs[:3]
	}
	return fmt.Sprintf(metadataPrompt, m.cfg.Upload.TitleMaxChars, m.cfg.Upload.TagsCount, topic, strings.Join(paragraphs, "\n\n"))
}

// clip cuts s to at most n runes, ending in "..." when shortened.
func clip(s string, n int) string {
	runes := []rune(s)
	if n <= 3 || len(runes) <= n {
		return s
	}
	return string(runes[:n-3]) + "..."
}
