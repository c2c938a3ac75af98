package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"learntube-pipeline/01_script"
	"learntube-pipeline/02_animation"
	"learntube-pipeline/03_render"
	"learntube-pipeline/04_artifact"
	"learntube-pipeline/05_publish"
	"learntube-pipeline/config"
	"learntube-pipeline/llm"
	"learntube-pipeline/pipeline"
	"learntube-pipeline/server"
	"learntube-pipeline/tasks"
	"learntube-pipeline/topics"
	"learntube-pipeline/voiceover"
	"learntube-pipeline/workerpool"

	"github.com/joho/godotenv"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config.yaml")
	flag.Parse()

	// Load .env (local dev only)
	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	cfg.ApplyEnv()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}
	if err := cfg.EnsureDirs(); err != nil {
		log.Fatalf("Failed to prepare working dirs: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Printf("🎬 LearnTube AI v%s starting (llm: %s, voiceover: %s, quality: %s)",
		server.Version, cfg.LLM.Provider, cfg.Voiceover.Service, cfg.Render.QualityDir())

	gen, err := llm.New(ctx, cfg)
	if err != nil {
		if !errors.Is(err, llm.ErrNotConfigured) {
			log.Fatalf("Failed to create %s client: %v", cfg.LLM.Provider, err)
		}
		log.Printf("❌ %v. Video generation will be refused until a key is set.", err)
	}

	svc, err := voiceover.FromConfig(cfg.Voiceover)
	if err != nil {
		log.Fatalf("Invalid voiceover config: %v", err)
	}
	if svc.Name == "coqui" {
		log.Println("⚠️  Coqui TTS requires PyTorch. Install with: pip install \"manim-voiceover[coqui]\"")
	}
	log.Println("⚠️  Ensure ffmpeg is installed and on PATH for manim.")

	execRunner := &render.ExecRunner{}
	stages := pipeline.Stages{
		Script:    script.New(cfg, gen),
		Animation: animation.New(cfg, gen, svc),
		Render:    render.New(cfg, execRunner),
		Artifact:  artifact.New(cfg),
	}
	if cfg.Subtitles.Burn {
		stages.Subtitles = artifact.NewBurner(cfg, execRunner)
	}
	if cfg.Upload.Enabled {
		stages.Metadata = publish.NewMetadataWriter(cfg, gen)
		stages.Upload = publish.New(cfg)
		log.Printf("📤 YouTube publishing enabled (%s)", cfg.Upload.Visibility)
	}

	var pool *workerpool.WorkerPool
	if cfg.Pipeline.Workers > 0 {
		pool = workerpool.New(cfg.Pipeline.Workers, cfg.Pipeline.QueueSize)
		log.Printf("⚙️  Worker pool: %d workers, queue %d", cfg.Pipeline.Workers, cfg.Pipeline.QueueSize)
	}

	events := tasks.NewEventBus(1000)
	store := tasks.NewStore(events)
	runner := pipeline.New(ctx, cfg, store, stages, pool)

	opts := []server.Option{
		server.WithHealthCheck(func(ctx context.Context) voiceover.Status {
			return voiceover.Check(ctx, execRunner, cfg.Render.Python, svc)
		}),
	}
	if cfg.Topics.Enabled {
		suggester, err := topics.New(cfg.Topics)
		if err != nil {
			log.Printf("⚠️  Topic suggestions disabled: %v", err)
		} else {
			opts = append(opts, server.WithSuggester(suggester))
		}
	}

	srv := server.New(cfg, store, events, runner, opts...)
	if err := srv.Run(ctx); err != nil {
		log.Printf("❌ Server error: %v", err)
	}

	// In-flight renders observe ctx and stop; wait for them to record their state.
	stop()
	if pool != nil {
		pool.StopWait()
	}
	runner.Wait()
	log.Println("✅ Shutdown complete")
}
