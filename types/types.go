package types

import "time"

// Status is the lifecycle position of one video task.
type Status string

const (
	StatusQueued              Status = "queued"
	StatusGeneratingScript    Status = "generating_script"
	StatusGeneratingManimCode Status = "generating_manim_code"
	StatusRenderingVideo      Status = "rendering_video"
	StatusPublishing          Status = "publishing"
	StatusCompleted           Status = "completed"
	StatusFailed              Status = "failed"
)

// rank orders the non-failed statuses; a task only ever moves forward.
var rank = map[Status]int{
	StatusQueued:              0,
	StatusGeneratingScript:    1,
	StatusGeneratingManimCode: 2,
	StatusRenderingVideo:      3,
	StatusPublishing:          4,
	StatusCompleted:           5,
}

// Terminal reports whether no further transition is allowed.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// CanAdvanceTo reports whether moving from s to next keeps progression monotonic.
func (s Status) CanAdvanceTo(next Status) bool {
	if s.Terminal() {
		return false
	}
	if next == StatusFailed {
		return true
	}
	from, okFrom := rank[s]
	to, okTo := rank[next]
	return okFrom && okTo && to > from
}

// Progress is the rough completion percentage shown to clients.
func (s Status) Progress() int {
	switch s {
	case StatusQueued:
		return 10
	case StatusGeneratingScript:
		return 40
	case StatusGeneratingManimCode:
		return 60
	case StatusRenderingVideo:
		return 80
	case StatusPublishing:
		return 90
	case StatusCompleted:
		return 100
	default:
		return 0
	}
}

// Task is the mutable record kept for every submitted topic
type Task struct {
	ID          string    `json:"video_id"`
	Status      Status    `json:"status"`
	Topic       string    `json:"topic"`
	VideoURL    string    `json:"video_url,omitempty"`
	OutputPath  string    `json:"-"`
	Subtitles   string    `json:"-"`
	FileSize    int64     `json:"file_size,omitempty"`
	Error       string    `json:"error,omitempty"`
	FailedStage string    `json:"failed_stage,omitempty"`
	YouTubeID   string    `json:"youtube_id,omitempty"`
	YouTubeURL  string    `json:"youtube_url,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	CompletedAt time.Time `json:"completed_at,omitempty"`
}

// HistoryEntry is one finished video in the gallery list
type HistoryEntry struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	Topic      string    `json:"topic"`
	VideoURL   string    `json:"video_url"`
	FileSize   int64     `json:"file_size"`
	YouTubeURL string    `json:"youtube_url,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// AnimationScript is the generated Manim source for one task
type AnimationScript struct {
	ClassName string `json:"class_name"`
	Code      string `json:"code"`
}

// Artifact is the final video copied to its stable location
type Artifact struct {
	Path      string `json:"path"`
	Size      int64  `json:"size"`
	Subtitles string `json:"subtitles,omitempty"` // .srt beside Path, when the render produced one
}

// VideoMetadata holds YouTube upload metadata
type VideoMetadata struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
	CategoryID  string   `json:"category_id"`
	Visibility  string   `json:"visibility"`
}
