package config

// Default returns the settings used when config.yaml omits a value.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:          ":8000",
			StaticDir:     "static",
			CORSOrigins:   []string{"*"},
			MaxTopicChars: 500,
			RateLimit:     RateLimitConfig{Requests: 5, WindowSec: 60},
		},
		LLM: LLMConfig{
			Provider:    "gemini",
			GeminiModel: "gemini-2.0-flash",
			GroqModel:   "llama-3.3-70b-versatile",
			Temperature: 0.7,
			TimeoutSec:  120,
		},
		Script: ScriptConfig{
			TargetDurationMin: 2,
			TargetDurationMax: 3,
		},
		Voiceover: VoiceoverConfig{
			Service:    "coqui",
			CoquiModel: "tts_models/en/ljspeech/tacotron2-DDC",
			AzureVoice: "en-US-AriaNeural",
			Background: "WHITE",
		},
		Render: RenderConfig{
			Python:         "python3",
			Quality:        "l",
			DisableCaching: true,
			TimeoutSec:     300,
		},
		Subtitles: SubtitlesConfig{
			FFmpeg:       "ffmpeg",
			Font:         "Arial",
			FontSize:     18,
			MarginBottom: 30,
		},
		Pipeline: PipelineConfig{
			Workers:   0,
			QueueSize: 100,
			SaveState: true,
		},
		Upload: UploadConfig{
			Visibility:      "private",
			CategoryID:      "27", // Education
			DefaultLanguage: "en",
			TitleMaxChars:   100,
			TagsCount:       30,
		},
		Topics: TopicsConfig{
			Enabled:    true,
			Subreddits: []string{"explainlikeimfive", "askscience"},
			MinScore:   50,
			Limit:      10,
		},
		Paths: PathsConfig{
			Scripts: "manim_scripts",
			Media:   "manim_media",
			Videos:  "generated_videos",
		},
	}
}
