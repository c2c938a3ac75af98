package artifact

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"strings"

	"learntube-pipeline/03_render"
	"learntube-pipeline/config"
	"learntube-pipeline/types"
)

// Burner renders an artifact's subtitle track into its video frames with ffmpeg
type Burner struct {
	cfg    *config.Config
	runner render.CommandRunner
}

// NewBurner creates a new Burner
func NewBurner(cfg *config.Config, runner render.CommandRunner) *Burner {
	if runner == nil {
		runner = &render.ExecRunner{}
	}
	return &Burner{cfg: cfg, runner: runner}
}

// Run burns art.Subtitles into art.Path in place and returns the updated artifact.
func (b *Burner) Run(ctx context.Context, art types.Artifact) (types.Artifact, error) {
	if art.Subtitles == "" {
		return art, nil
	}
	log.Println("[artifact] Burning subtitles into video...")

	tmp := strings.TrimSuffix(art.Path, ".mp4") + ".subtitled.mp4"
	res, err := b.runner.Run(ctx, b.cfg.Subtitles.FFmpeg, BurnArgs(b.cfg.Subtitles, art.Path, art.Subtitles, tmp)...)
	if err != nil {
		_ = os.Remove(tmp)
		return art, fmt.Errorf("ffmpeg subtitle burn: %w: %s", err, lastLine(res.Stderr))
	}
	if err := os.Rename(tmp, art.Path); err != nil {
		_ = os.Remove(tmp)
		return art, fmt.Errorf("replace video with subtitled copy: %w", err)
	}
	if info, err := os.Stat(art.Path); err == nil {
		art.Size = info.Size()
	}

	log.Printf("[artifact] ✅ Subtitles burned: %s", art.Path)
	return art, nil
}

// BurnArgs assembles the ffmpeg arguments for a styled subtitles filter.
func BurnArgs(sc config.SubtitlesConfig, video, srt, out string) []string {
	filter := fmt.Sprintf(
		"subtitles=%s:force_style='FontName=%s,FontSize=%d,PrimaryColour=&H00FFFFFF,OutlineColour=&H00000000,Outline=2,Alignment=2,MarginV=%d'",
		escapeSubtitlePath(srt),
		sc.Font,
		sc.FontSize,
		sc.MarginBottom,
	)
	return []string{"-y",
		"-i", video,
		"-vf", filter,
		"-c:v", "libx264",
		"-preset", "fast",
		"-crf", "20",
		"-c:a", "copy",
		out,
	}
}

// ValidateSRT checks that the SRT file holds at least one cue
func ValidateSRT(srtFile string) error {
	f, err := os.Open(srtFile)
	if err != nil {
		return err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	lineCount := 0
	for scanner.Scan() {
		if strings.TrimSpace(scanner.Text()) != "" {
			lineCount++
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}

	// index, timing, text
	if lineCount < 3 {
		return fmt.Errorf("SRT file appears empty or malformed (%d lines)", lineCount)
	}
	return nil
}

func escapeSubtitlePath(path string) string {
	// The subtitles filter needs escaped colons and forward slashes
	path = strings.ReplaceAll(path, "\\", "/")
	path = strings.ReplaceAll(path, ":", "\\:")
	return path
}

func lastLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.LastIndex(s, "\n"); i >= 0 {
		return s[i+1:]
	}
	return s
}
