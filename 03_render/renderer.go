package render

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"learntube-pipeline/config"
	"learntube-pipeline/types"
)

// maxErrorOutput caps how much manim stderr is carried in a task error.
const maxErrorOutput = 4000

// Renderer compiles a generated Manim script into a video with the manim CLI
type Renderer struct {
	cfg    *config.Config
	runner CommandRunner
}

// Result describes a finished render
type Result struct {
	ScriptPath string
	ClassName  string
	OutputName string
	Log        CommandLog
}

// New creates a new Renderer
func New(cfg *config.Config, runner CommandRunner) *Renderer {
	if runner == nil {
		runner = &ExecRunner{}
	}
	return &Renderer{cfg: cfg, runner: runner}
}

// Run saves the script as <scripts>/<taskID>.py and renders its scene class.
// The video lands somewhere under the media dir; 04_artifact finds it.
func (r *Renderer) Run(ctx context.Context, taskID string, script *types.AnimationScript) (*Result, error) {
	if script == nil || strings.TrimSpace(script.Code) == "" {
		return nil, fmt.Errorf("manim rendering failed: empty script")
	}

	scriptPath := filepath.Join(r.cfg.Paths.Scripts, taskID+".py")
	log.Printf("[render] Saving generated Manim script to: %s", scriptPath)
	if err := os.MkdirAll(r.cfg.Paths.Scripts, 0o755); err != nil {
		return nil, fmt.Errorf("create scripts dir: %w", err)
	}
	if err := os.WriteFile(scriptPath, []byte(script.Code), 0o644); err != nil {
		return nil, fmt.Errorf("save manim script: %w", err)
	}

	outputName := taskID + ".mp4"
	args := BuildArgs(r.cfg.Render, r.cfg.Paths.Media, scriptPath, script.ClassName, outputName)
	timeout := time.Duration(r.cfg.Render.TimeoutSec) * time.Second

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmdLog := CommandLog{Command: r.cfg.Render.Python, Args: args}
	log.Printf("[render] Executing Manim render command: %s", cmdLog)

	res, err := r.runner.Run(runCtx, r.cfg.Render.Python, args...)
	cmdLog.ExitCode = res.ExitCode
	cmdLog.Stdout = res.Stdout
	cmdLog.Stderr = res.Stderr

	if err != nil {
		if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			log.Printf("[render] Manim rendering timed out for %s after %s", taskID, timeout)
			return nil, newCommandError("manim rendering timed out after %s", cmdLog, err, timeout)
		}
		log.Printf("[render] Manim rendering failed for %s (exit %d)", taskID, res.ExitCode)
		return nil, newCommandError("manim rendering failed: %s", cmdLog, err, tail(firstOutput(res.Stderr, err.Error()), maxErrorOutput))
	}

	log.Printf("[render] ✅ Manim rendering successful for %s", taskID)
	return &Result{
		ScriptPath: scriptPath,
		ClassName:  script.ClassName,
		OutputName: outputName,
		Log:        cmdLog,
	}, nil
}

// BuildArgs assembles the `python -m manim` argument list.
func BuildArgs(rc config.RenderConfig, mediaDir, scriptPath, className, outputName string) []string {
	quality := "-q" + rc.Quality
	if rc.Preview {
		quality = "-pq" + rc.Quality
	}
	args := []string{
		"-m", "manim",
		scriptPath,
		className,
		quality,
		"--media_dir", mediaDir,
		"--output_file", outputName,
		"--progress_bar", "none",
	}
	if rc.DisableCaching {
		args = append(args, "--disable_caching")
	}
	return args
}

func firstOutput(stderr, fallback string) string {
	if s := strings.TrimSpace(stderr); s != "" {
		return s
	}
	return fallback
}

// tail keeps the last n bytes, where manim prints the traceback. The cut
// moves forward to a rune boundary.
func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	i := len(s) - n
	for i < len(s) && !utf8.RuneStart(s[i]) {
		i++
	}
	return "..." + s[i:]
}
