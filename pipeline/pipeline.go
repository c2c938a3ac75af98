// Package pipeline sequences the video stages for one task and records
// progress in the task store.
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"learntube-pipeline/03_render"
	"learntube-pipeline/config"
	"learntube-pipeline/tasks"
	"learntube-pipeline/types"
	"learntube-pipeline/workerpool"
)

// ScriptWriter produces narration for a topic.
type ScriptWriter interface {
	Run(ctx context.Context, topic string) (string, error)
}

// AnimationCoder produces Manim source for a narration.
type AnimationCoder interface {
	Run(ctx context.Context, topic, narration string) (*types.AnimationScript, error)
}

// VideoRenderer compiles Manim source into a video.
type VideoRenderer interface {
	Run(ctx context.Context, taskID string, script *types.AnimationScript) (*render.Result, error)
}

// ArtifactCollector locates the rendered file and moves it to its stable path.
type ArtifactCollector interface {
	Collect(taskID, className string) (types.Artifact, error)
}

// SubtitleBurner renders an artifact's subtitle track into the video.
type SubtitleBurner interface {
	Run(ctx context.Context, art types.Artifact) (types.Artifact, error)
}

// MetadataWriter produces upload metadata.
type MetadataWriter interface {
	Run(ctx context.Context, topic, narration string) *types.VideoMetadata
}

// Uploader publishes a finished video.
type Uploader interface {
	Run(ctx context.Context, videoFile string, metadata *types.VideoMetadata) (string, string, error)
}

// Stages bundles the collaborators of one run. Subtitles, Metadata and
// Upload are optional; publishing is skipped unless both Metadata and
// Upload are set.
type Stages struct {
	Script    ScriptWriter
	Animation AnimationCoder
	Render    VideoRenderer
	Artifact  ArtifactCollector
	Subtitles SubtitleBurner
	Metadata  MetadataWriter
	Upload    Uploader
}

// Runner launches and executes pipeline runs.
type Runner struct {
	cfg    *config.Config
	store  *tasks.Store
	stages Stages
	pool   *workerpool.WorkerPool
	ctx    context.Context
	wg     sync.WaitGroup
}

// New creates a Runner. Background runs derive from ctx, so cancelling it
// stops in-flight renders. With a nil pool each run gets its own goroutine.
func New(ctx context.Context, cfg *config.Config, store *tasks.Store, stages Stages, pool *workerpool.WorkerPool) *Runner {
	return &Runner{cfg: cfg, store: store, stages: stages, pool: pool, ctx: ctx}
}

// Submit records a queued task for topic and schedules it in the background.
func (r *Runner) Submit(topic string) (types.Task, error) {
	task := r.store.Create(topic)
	log.Printf("[pipeline] Queued %s for topic %q", task.ID, topic)

	job := func() error {
		defer r.wg.Done()
		r.Process(r.ctx, task.ID, topic)
		return nil
	}

	r.wg.Add(1)
	if r.pool == nil {
		go job()
		return task, nil
	}
	if err := r.pool.Submit(job); err != nil {
		r.wg.Done()
		_ = r.store.Fail(task.ID, string(types.StatusQueued), err)
		return task, err
	}
	return task, nil
}

// Wait blocks until every submitted run has returned.
func (r *Runner) Wait() {
	r.wg.Wait()
}

// runRecord is written next to the video for post-mortem inspection.
type runRecord struct {
	Task       types.Task         `json:"task"`
	Narration  string             `json:"narration,omitempty"`
	ClassName  string             `json:"class_name,omitempty"`
	ScriptPath string             `json:"script_path,omitempty"`
	Render     *render.CommandLog `json:"render,omitempty"`
	FinishedAt time.Time          `json:"finished_at"`
}

// Process runs every stage for one task. A stage failure marks the task
// failed with the raw error string; nothing is retried.
func (r *Runner) Process(ctx context.Context, id, topic string) {
	record := &runRecord{}
	defer func() {
		if rec := recover(); rec != nil {
			stage := types.StatusQueued
			if task, ok := r.store.Get(id); ok {
				stage = task.Status
			}
			r.fail(id, string(stage), fmt.Errorf("pipeline panic: %v", rec))
		}
		r.saveState(id, record)
	}()

	// ─────────────────────────────────────────────
	// STAGE 1: Narration script
	// ─────────────────────────────────────────────
	if !r.enter(id, types.StatusGeneratingScript) {
		return
	}
	narration, err := r.stages.Script.Run(ctx, topic)
	if err != nil {
		r.fail(id, string(types.StatusGeneratingScript), err)
		return
	}
	record.Narration = narration
	r.store.Log(id, fmt.Sprintf("narration ready (%d chars)", len(narration)))

	// ─────────────────────────────────────────────
	// STAGE 2: Animation code
	// ─────────────────────────────────────────────
	if !r.enter(id, types.StatusGeneratingManimCode) {
		return
	}
	animation, err := r.stages.Animation.Run(ctx, topic, narration)
	if err != nil {
		r.fail(id, string(types.StatusGeneratingManimCode), err)
		return
	}
	record.ClassName = animation.ClassName
	r.store.Log(id, fmt.Sprintf("manim scene %s generated", animation.ClassName))

	// ─────────────────────────────────────────────
	// STAGE 3: Render
	// ─────────────────────────────────────────────
	if !r.enter(id, types.StatusRenderingVideo) {
		return
	}
	result, err := r.stages.Render.Run(ctx, id, animation)
	if err != nil {
		var cmdErr *render.CommandError
		if errors.As(err, &cmdErr) {
			record.Render = &cmdErr.Log
		}
		r.fail(id, string(types.StatusRenderingVideo), err)
		return
	}
	record.ScriptPath = result.ScriptPath
	record.Render = &result.Log

	// ─────────────────────────────────────────────
	// STAGE 4: Artifact resolution
	// ─────────────────────────────────────────────
	art, err := r.stages.Artifact.Collect(id, animation.ClassName)
	if err != nil {
		r.fail(id, string(types.StatusRenderingVideo), err)
		return
	}
	if r.stages.Subtitles != nil && art.Subtitles != "" {
		burned, err := r.stages.Subtitles.Run(ctx, art)
		if err != nil {
			log.Printf("[pipeline] ⚠️  Subtitle burn failed for %s: %v, using video without burned subtitles", id, err)
			r.store.Log(id, "subtitle burn failed: "+err.Error())
		} else {
			art = burned
		}
	}

	// ─────────────────────────────────────────────
	// STAGE 5: Publish (optional)
	// ─────────────────────────────────────────────
	if r.stages.Upload != nil && r.stages.Metadata != nil {
		if !r.enter(id, types.StatusPublishing) {
			return
		}
		meta := r.stages.Metadata.Run(ctx, topic, narration)
		ytID, ytURL, err := r.stages.Upload.Run(ctx, art.Path, meta)
		if err != nil {
			// The video exists locally; a failed upload does not fail the task.
			log.Printf("[pipeline] ⚠️  Publish failed for %s: %v", id, err)
			r.store.Log(id, "publish failed: "+err.Error())
		} else {
			_ = r.store.SetPublished(id, ytID, ytURL)
		}
	}

	if err := r.store.Complete(id, art, VideoURL(id)); err != nil {
		log.Printf("[pipeline] Could not complete %s: %v", id, err)
		return
	}
	log.Printf("[pipeline] ✅ Successfully completed video generation for ID: %s", id)
}

// VideoURL is the download path served for a completed task.
func VideoURL(id string) string {
	return "/videos/" + id
}

func (r *Runner) enter(id string, status types.Status) bool {
	if err := r.store.Transition(id, status); err != nil {
		log.Printf("[pipeline] %s: %v", id, err)
		return false
	}
	log.Printf("[pipeline] %s → %s", id, status)
	return true
}

func (r *Runner) fail(id, stage string, err error) {
	log.Printf("[pipeline] ❌ Video generation pipeline failed for ID %s at %s: %v", id, stage, err)
	if ferr := r.store.Fail(id, stage, err); ferr != nil {
		log.Printf("[pipeline] %s: %v", id, ferr)
	}
}

func (r *Runner) saveState(id string, record *runRecord) {
	if !r.cfg.Pipeline.SaveState {
		return
	}
	task, ok := r.store.Get(id)
	if !ok {
		return
	}
	record.Task = task
	record.FinishedAt = time.Now().UTC()
	saveJSON(filepath.Join(r.cfg.Paths.Videos, id+".json"), record)
}

func saveJSON(path string, v interface{}) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		log.Printf("[pipeline] Warning: could not marshal JSON for %s: %v", path, err)
		return
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		log.Printf("[pipeline] Warning: could not create %s: %v", filepath.Dir(path), err)
		return
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		log.Printf("[pipeline] Warning: could not save %s: %v", path, err)
	}
}
