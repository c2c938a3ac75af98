package artifact

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"

	"learntube-pipeline/config"
	"learntube-pipeline/types"
)

// ErrNotFound is returned when manim exited cleanly but no video can be located.
var ErrNotFound = errors.New("rendered video file not found after manim process completion")

// fallbackQualityDirs are probed when the configured quality dir is empty.
var fallbackQualityDirs = []string{"480p15", "720p30"}

// Resolver finds the rendered file under the media dir and copies it to the videos dir
type Resolver struct {
	cfg *config.Config
}

// New creates a new Resolver
func New(cfg *config.Config) *Resolver {
	return &Resolver{cfg: cfg}
}

// Candidates lists the conventional locations manim may have written to, in probe order.
func (r *Resolver) Candidates(taskID, className string) []string {
	fileName := taskID + ".mp4"
	videosRoot := filepath.Join(r.cfg.Paths.Media, "videos")

	qualityDirs := []string{}
	if q := r.cfg.Render.QualityDir(); q != "" {
		qualityDirs = append(qualityDirs, q)
	}
	for _, q := range fallbackQualityDirs {
		if q != r.cfg.Render.QualityDir() {
			qualityDirs = append(qualityDirs, q)
		}
	}

	// manim names the folder after the script file; older setups used the class name.
	var out []string
	for _, q := range qualityDirs {
		out = append(out,
			filepath.Join(videosRoot, taskID, q, fileName),
			filepath.Join(videosRoot, className, q, fileName),
		)
	}
	return out
}

// Resolve returns the path of the rendered video for taskID.
func (r *Resolver) Resolve(taskID, className string) (string, error) {
	for _, p := range r.Candidates(taskID, className) {
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			return p, nil
		}
	}

	log.Printf("[artifact] %s.mp4 not at expected paths, searching %s", taskID, r.cfg.Paths.Media)
	found, err := r.search(taskID + ".mp4")
	if err != nil {
		return "", err
	}
	if found == "" {
		return "", ErrNotFound
	}
	return found, nil
}

// search walks the media dir for fileName, skipping partial movie files.
func (r *Resolver) search(fileName string) (string, error) {
	var found string
	err := filepath.WalkDir(r.cfg.Paths.Media, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return fs.SkipDir
			}
			return err
		}
		if d.IsDir() {
			if d.Name() == "partial_movie_files" {
				return fs.SkipDir
			}
			return nil
		}
		if d.Name() == fileName {
			found = path
			return fs.SkipAll
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("search media dir: %w", err)
	}
	return found, nil
}

// Collect resolves the render output and copies it to <videos>/<taskID>.mp4.
func (r *Resolver) Collect(taskID, className string) (types.Artifact, error) {
	src, err := r.Resolve(taskID, className)
	if err != nil {
		return types.Artifact{}, err
	}

	dst := filepath.Join(r.cfg.Paths.Videos, taskID+".mp4")
	size, err := copyFile(src, dst)
	if err != nil {
		return types.Artifact{}, fmt.Errorf("copy rendered video: %w", err)
	}

	log.Printf("[artifact] ✅ Copied final video to: %s (%.1f MB)", dst, float64(size)/1024/1024)
	art := types.Artifact{Path: dst, Size: size}

	// manim-voiceover writes its subcaptions beside the video.
	if srt := Sidecar(src); srt != "" {
		if err := ValidateSRT(srt); err != nil {
			log.Printf("[artifact] ⚠️  Ignoring subtitles %s: %v", srt, err)
		} else if _, err := copyFile(srt, filepath.Join(r.cfg.Paths.Videos, taskID+".srt")); err != nil {
			log.Printf("[artifact] ⚠️  Could not copy subtitles: %v", err)
		} else {
			art.Subtitles = filepath.Join(r.cfg.Paths.Videos, taskID+".srt")
		}
	}
	return art, nil
}

// Sidecar returns the .srt written next to video, or "" when there is none.
func Sidecar(video string) string {
	srt := strings.TrimSuffix(video, filepath.Ext(video)) + ".srt"
	if info, err := os.Stat(srt); err == nil && !info.IsDir() {
		return srt
	}
	return ""
}

// copyFile writes src to a temp file beside dst and renames it into place.
func copyFile(src, dst string) (int64, error) {
	in, err := os.Open(src)
	if err != nil {
		return 0, err
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return 0, err
	}
	tmp, err := os.CreateTemp(filepath.Dir(dst), ".partial-*.mp4")
	if err != nil {
		return 0, err
	}
	tmpName := tmp.Name()

	size, err := io.Copy(tmp, in)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(tmpName)
		return 0, err
	}
	if err := os.Rename(tmpName, dst); err != nil {
		_ = os.Remove(tmpName)
		return 0, err
	}
	return size, nil
}
