package artifact

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"learntube-pipeline/config"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	root := t.TempDir()
	cfg := config.Default()
	cfg.Paths.Scripts = filepath.Join(root, "scripts")
	cfg.Paths.Media = filepath.Join(root, "media")
	cfg.Paths.Videos = filepath.Join(root, "videos")
	return cfg
}

func mustWriteFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestResolveScriptNamedLayout(t *testing.T) {
	cfg := testConfig(t)
	want := filepath.Join(cfg.Paths.Media, "videos", "abc", "480p15", "abc.mp4")
	mustWriteFile(t, want, "video")

	got, err := New(cfg).Resolve("abc", "GravityScene")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if got != want {
		t.Fatalf("path = %q, want %q", got, want)
	}
}

func TestResolveClassNamedFallbackQuality(t *testing.T) {
	cfg := testConfig(t)
	want := filepath.Join(cfg.Paths.Media, "videos", "GravityScene", "720p30", "abc.mp4")
	mustWriteFile(t, want, "video")

	got, err := New(cfg).Resolve("abc", "GravityScene")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if got != want {
		t.Fatalf("path = %q, want %q", got, want)
	}
}

func TestResolvePrefersConfiguredQuality(t *testing.T) {
	cfg := testConfig(t)
	cfg.Render.Quality = "h"
	low := filepath.Join(cfg.Paths.Media, "videos", "abc", "480p15", "abc.mp4")
	high := filepath.Join(cfg.Paths.Media, "videos", "abc", "1080p60", "abc.mp4")
	mustWriteFile(t, low, "low")
	mustWriteFile(t, high, "high")

	got, err := New(cfg).Resolve("abc", "S")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if got != high {
		t.Fatalf("path = %q, want %q", got, high)
	}
}

func TestResolveSearchesUnexpectedLayout(t *testing.T) {
	cfg := testConfig(t)
	mustWriteFile(t, filepath.Join(cfg.Paths.Media, "videos", "abc", "partial_movie_files", "S", "abc.mp4"), "partial")
	want := filepath.Join(cfg.Paths.Media, "videos", "renamed", "custom", "abc.mp4")
	mustWriteFile(t, want, "video")

	got, err := New(cfg).Resolve("abc", "S")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if got != want {
		t.Fatalf("path = %q, want %q", got, want)
	}
}

func TestResolveNotFound(t *testing.T) {
	cfg := testConfig(t)
	mustWriteFile(t, filepath.Join(cfg.Paths.Media, "videos", "other", "480p15", "other.mp4"), "x")

	if _, err := New(cfg).Resolve("abc", "S"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("error = %v, want ErrNotFound", err)
	}
}

func TestResolveMissingMediaDir(t *testing.T) {
	cfg := testConfig(t)
	if _, err := New(cfg).Resolve("abc", "S"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("error = %v, want ErrNotFound", err)
	}
}

func TestCollectCopiesToVideosDir(t *testing.T) {
	cfg := testConfig(t)
	mustWriteFile(t, filepath.Join(cfg.Paths.Media, "videos", "abc", "480p15", "abc.mp4"), "video-bytes")

	art, err := New(cfg).Collect("abc", "S")
	if err != nil {
		t.Fatalf("Collect() error = %v", err)
	}
	wantPath := filepath.Join(cfg.Paths.Videos, "abc.mp4")
	if art.Path != wantPath || art.Size != int64(len("video-bytes")) {
		t.Fatalf("artifact = %+v", art)
	}
	data, err := os.ReadFile(wantPath)
	if err != nil || string(data) != "video-bytes" {
		t.Fatalf("copied content = %q, err = %v", data, err)
	}
	entries, _ := os.ReadDir(cfg.Paths.Videos)
	if len(entries) != 1 {
		t.Fatalf("videos dir has %d entries, temp file left behind", len(entries))
	}
}

func TestCollectCopiesSubtitleSidecar(t *testing.T) {
	cfg := testConfig(t)
	dir := filepath.Join(cfg.Paths.Media, "videos", "abc", "480p15")
	mustWriteFile(t, filepath.Join(dir, "abc.mp4"), "video-bytes")
	mustWriteFile(t, filepath.Join(dir, "abc.srt"), sampleSRT)

	art, err := New(cfg).Collect("abc", "S")
	if err != nil {
		t.Fatalf("Collect() error = %v", err)
	}
	want := filepath.Join(cfg.Paths.Videos, "abc.srt")
	if art.Subtitles != want {
		t.Fatalf("subtitles = %q, want %q", art.Subtitles, want)
	}
	data, err := os.ReadFile(want)
	if err != nil || string(data) != sampleSRT {
		t.Fatalf("copied subtitles = %q, err = %v", data, err)
	}
}

func TestCollectIgnoresMalformedSidecar(t *testing.T) {
	cfg := testConfig(t)
	dir := filepath.Join(cfg.Paths.Media, "videos", "abc", "480p15")
	mustWriteFile(t, filepath.Join(dir, "abc.mp4"), "video-bytes")
	mustWriteFile(t, filepath.Join(dir, "abc.srt"), "\n\n1\n")

	art, err := New(cfg).Collect("abc", "S")
	if err != nil {
		t.Fatalf("Collect() error = %v", err)
	}
	if art.Subtitles != "" {
		t.Fatalf("subtitles = %q, want none", art.Subtitles)
	}
	if _, err := os.Stat(filepath.Join(cfg.Paths.Videos, "abc.srt")); !os.IsNotExist(err) {
		t.Fatalf("malformed sidecar was copied: %v", err)
	}
}
