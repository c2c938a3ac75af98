package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	LLM       LLMConfig       `yaml:"llm"`
	Script    ScriptConfig    `yaml:"script"`
	Voiceover VoiceoverConfig `yaml:"voiceover"`
	Render    RenderConfig    `yaml:"render"`
	Subtitles SubtitlesConfig `yaml:"subtitles"`
	Pipeline  PipelineConfig  `yaml:"pipeline"`
	Upload    UploadConfig    `yaml:"upload"`
	Topics    TopicsConfig    `yaml:"topics"`
	Paths     PathsConfig     `yaml:"paths"`
}

type ServerConfig struct {
	Addr          string          `yaml:"addr"`
	StaticDir     string          `yaml:"static_dir"`
	CORSOrigins   []string        `yaml:"cors_origins"`
	MaxTopicChars int             `yaml:"max_topic_chars"`
	RateLimit     RateLimitConfig `yaml:"rate_limit"`
}

type RateLimitConfig struct {
	Requests  int `yaml:"requests"`
	WindowSec int `yaml:"window_sec"`
}

type LLMConfig struct {
	Provider    string  `yaml:"provider"` // gemini | groq
	GeminiModel string  `yaml:"gemini_model"`
	GroqModel   string  `yaml:"groq_model"`
	Temperature float64 `yaml:"temperature"`
	TimeoutSec  int     `yaml:"timeout_sec"`

	// Secrets come from the environment only.
	GeminiAPIKey string `yaml:"-"`
	GroqAPIKey   string `yaml:"-"`
}

type ScriptConfig struct {
	TargetDurationMin int `yaml:"target_duration_min"`
	TargetDurationMax int `yaml:"target_duration_max"`
}

type VoiceoverConfig struct {
	Service    string `yaml:"service"` // coqui | gtts | azure
	CoquiModel string `yaml:"coqui_model"`
	AzureVoice string `yaml:"azure_voice"`
	Background string `yaml:"background"`
}

type RenderConfig struct {
	Python         string `yaml:"python"`
	Quality        string `yaml:"quality"` // l | m | h | p | k
	Preview        bool   `yaml:"preview"`
	DisableCaching bool   `yaml:"disable_caching"`
	TimeoutSec     int    `yaml:"timeout_sec"`
}

// SubtitlesConfig controls burning manim's subcaption track into the video.
type SubtitlesConfig struct {
	Burn         bool   `yaml:"burn"`
	FFmpeg       string `yaml:"ffmpeg"`
	Font         string `yaml:"font"`
	FontSize     int    `yaml:"font_size"`
	MarginBottom int    `yaml:"margin_bottom"`
}

type PipelineConfig struct {
	Workers   int  `yaml:"workers"`
	QueueSize int  `yaml:"queue_size"`
	SaveState bool `yaml:"save_state"`
}

type UploadConfig struct {
	Enabled           bool   `yaml:"enabled"`
	Visibility        string `yaml:"visibility"`
	CategoryID        string `yaml:"category_id"`
	DefaultLanguage   string `yaml:"default_language"`
	MadeForKids       bool   `yaml:"made_for_kids"`
	NotifySubscribers bool   `yaml:"notify_subscribers"`
	TitleMaxChars     int    `yaml:"title_max_chars"`
	TagsCount         int    `yaml:"tags_count"`

	ClientID     string `yaml:"-"`
	ClientSecret string `yaml:"-"`
	RefreshToken string `yaml:"-"`
}

type TopicsConfig struct {
	Enabled    bool     `yaml:"enabled"`
	Subreddits []string `yaml:"subreddits"`
	MinScore   int      `yaml:"min_score"`
	Limit      int      `yaml:"limit"`
}

type PathsConfig struct {
	Scripts string `yaml:"scripts"`
	Media   string `yaml:"media"`
	Videos  string `yaml:"videos"`
}

// qualityDirs maps manim's -q flag to the directory it renders into.
var qualityDirs = map[string]string{
	"l": "480p15",
	"m": "720p30",
	"h": "1080p60",
	"p": "1440p60",
	"k": "2160p60",
}

// QualityDir returns the media subdirectory manim uses for the configured quality.
func (r RenderConfig) QualityDir() string {
	return qualityDirs[r.Quality]
}

// Load reads config.yaml on top of the defaults. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

// ApplyEnv copies secrets and deployment overrides from the environment.
func (c *Config) ApplyEnv() {
	c.LLM.GeminiAPIKey = os.Getenv("GEMINI_API_KEY")
	c.LLM.GroqAPIKey = os.Getenv("GROQ_API_KEY")
	if p := os.Getenv("LLM_PROVIDER"); p != "" {
		c.LLM.Provider = strings.ToLower(p)
	}
	if addr := os.Getenv("LISTEN_ADDR"); addr != "" {
		c.Server.Addr = addr
	} else if port := os.Getenv("PORT"); port != "" {
		c.Server.Addr = ":" + port
	}
	if py := os.Getenv("MANIM_PYTHON"); py != "" {
		c.Render.Python = py
	}
	c.Upload.ClientID = os.Getenv("YOUTUBE_CLIENT_ID")
	c.Upload.ClientSecret = os.Getenv("YOUTUBE_CLIENT_SECRET")
	c.Upload.RefreshToken = os.Getenv("YOUTUBE_REFRESH_TOKEN")
}

// Validate rejects settings the pipeline cannot run with.
func (c *Config) Validate() error {
	switch c.LLM.Provider {
	case "gemini", "groq":
	default:
		return fmt.Errorf("unknown llm provider %q", c.LLM.Provider)
	}
	if _, ok := qualityDirs[c.Render.Quality]; !ok {
		return fmt.Errorf("unknown render quality %q (want one of l, m, h, p, k)", c.Render.Quality)
	}
	if c.Render.TimeoutSec <= 0 {
		return fmt.Errorf("render timeout must be positive")
	}
	if c.Server.RateLimit.Requests <= 0 || c.Server.RateLimit.WindowSec <= 0 {
		return fmt.Errorf("rate limit requests and window must be positive")
	}
	if c.Server.MaxTopicChars <= 0 {
		return fmt.Errorf("max_topic_chars must be positive")
	}
	if c.Pipeline.Workers < 0 {
		return fmt.Errorf("pipeline workers cannot be negative")
	}
	for name, p := range map[string]string{
		"scripts": c.Paths.Scripts,
		"media":   c.Paths.Media,
		"videos":  c.Paths.Videos,
	} {
		if strings.TrimSpace(p) == "" {
			return fmt.Errorf("paths.%s is required", name)
		}
	}
	return nil
}

// EnsureDirs creates the working directories the pipeline writes into.
func (c *Config) EnsureDirs() error {
	for _, dir := range []string{c.Paths.Scripts, c.Paths.Media, c.Paths.Videos} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create dir %s: %w", dir, err)
		}
	}
	return nil
}

// LLMConfigured reports whether the selected provider has credentials.
func (c *Config) LLMConfigured() bool {
	switch c.LLM.Provider {
	case "groq":
		return c.LLM.GroqAPIKey != ""
	default:
		return c.LLM.GeminiAPIKey != ""
	}
}
