package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Addr != ":8000" {
		t.Fatalf("addr = %q, want :8000", cfg.Server.Addr)
	}
	if cfg.Render.QualityDir() != "480p15" {
		t.Fatalf("quality dir = %q, want 480p15", cfg.Render.QualityDir())
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
}

func TestLoadOverlaysFileOnDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yamlText := "render:\n  quality: m\n  timeout_sec: 60\nllm:\n  provider: groq\n"
	if err := os.WriteFile(path, []byte(yamlText), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Render.QualityDir() != "720p30" {
		t.Fatalf("quality dir = %q, want 720p30", cfg.Render.QualityDir())
	}
	if cfg.Render.TimeoutSec != 60 {
		t.Fatalf("timeout = %d, want 60", cfg.Render.TimeoutSec)
	}
	if cfg.Render.Python != "python3" {
		t.Fatalf("python = %q, default should survive", cfg.Render.Python)
	}
	if cfg.LLM.Provider != "groq" {
		t.Fatalf("provider = %q, want groq", cfg.LLM.Provider)
	}
}

func TestLoadRejectsInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("render: [\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "gem-key")
	t.Setenv("PORT", "9090")
	t.Setenv("LISTEN_ADDR", "")
	t.Setenv("LLM_PROVIDER", "GEMINI")
	t.Setenv("MANIM_PYTHON", "/opt/venv/bin/python")

	cfg := Default()
	cfg.ApplyEnv()

	if cfg.Server.Addr != ":9090" {
		t.Fatalf("addr = %q, want :9090", cfg.Server.Addr)
	}
	if !cfg.LLMConfigured() {
		t.Fatal("expected gemini to be configured")
	}
	if cfg.LLM.Provider != "gemini" {
		t.Fatalf("provider = %q", cfg.LLM.Provider)
	}
	if cfg.Render.Python != "/opt/venv/bin/python" {
		t.Fatalf("python = %q", cfg.Render.Python)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown quality", func(c *Config) { c.Render.Quality = "x" }},
		{"unknown provider", func(c *Config) { c.LLM.Provider = "openai" }},
		{"zero timeout", func(c *Config) { c.Render.TimeoutSec = 0 }},
		{"zero rate limit", func(c *Config) { c.Server.RateLimit.Requests = 0 }},
		{"negative workers", func(c *Config) { c.Pipeline.Workers = -1 }},
		{"empty media path", func(c *Config) { c.Paths.Media = " " }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestEnsureDirs(t *testing.T) {
	root := t.TempDir()
	cfg := Default()
	cfg.Paths = PathsConfig{
		Scripts: filepath.Join(root, "scripts"),
		Media:   filepath.Join(root, "media"),
		Videos:  filepath.Join(root, "videos"),
	}
	if err := cfg.EnsureDirs(); err != nil {
		t.Fatalf("EnsureDirs() error = %v", err)
	}
	for _, dir := range []string{cfg.Paths.Scripts, cfg.Paths.Media, cfg.Paths.Videos} {
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			t.Fatalf("dir %s missing: %v", dir, err)
		}
	}
}
