package tasks

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"learntube-pipeline/types"
)

// ErrNotFound is returned for unknown task or history ids.
var ErrNotFound = errors.New("video id not found")

// ErrInvalidTransition is returned when a status change would move a task backwards.
var ErrInvalidTransition = errors.New("invalid status transition")

const historyTitleChars = 50

// Store keeps every task for the lifetime of the process.
type Store struct {
	mu      sync.RWMutex
	tasks   map[string]*types.Task
	history map[string]types.HistoryEntry
	events  *EventBus
	now     func() time.Time
	newID   func() string
}

// NewStore creates an empty store publishing status changes to events (may be nil).
func NewStore(events *EventBus) *Store {
	return &Store{
		tasks:   make(map[string]*types.Task),
		history: make(map[string]types.HistoryEntry),
		events:  events,
		now:     func() time.Time { return time.Now().UTC() },
		newID:   uuid.NewString,
	}
}

// Create registers a queued task for topic.
func (s *Store) Create(topic string) types.Task {
	s.mu.Lock()
	now := s.now()
	t := &types.Task{
		ID:        s.newID(),
		Status:    types.StatusQueued,
		Topic:     topic,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.tasks[t.ID] = t
	snapshot := *t
	s.mu.Unlock()

	s.publish(Event{JobID: t.ID, Type: EventTypeStatus, Status: t.Status, Message: "queued"})
	return snapshot
}

// Get returns a snapshot of the task.
func (s *Store) Get(id string) (types.Task, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tasks[id]
	if !ok {
		return types.Task{}, false
	}
	return *t, true
}

// Len returns the number of tasks ever created.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tasks)
}

// Transition moves a task forward to status. Setting the current status again is a no-op.
func (s *Store) Transition(id string, status types.Status) error {
	if status == types.StatusCompleted || status == types.StatusFailed {
		return fmt.Errorf("%w: use Complete or Fail for %s", ErrInvalidTransition, status)
	}

	s.mu.Lock()
	t, ok := s.tasks[id]
	if !ok {
		s.mu.Unlock()
		return ErrNotFound
	}
	if t.Status == status {
		s.mu.Unlock()
		return nil
	}
	if !t.Status.CanAdvanceTo(status) {
		from := t.Status
		s.mu.Unlock()
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, status)
	}
	t.Status = status
	t.UpdatedAt = s.now()
	s.mu.Unlock()

	s.publish(Event{JobID: id, Type: EventTypeStatus, Status: status})
	return nil
}

// Complete marks the task completed, records the artifact and adds it to history.
func (s *Store) Complete(id string, art types.Artifact, videoURL string) error {
	s.mu.Lock()
	t, ok := s.tasks[id]
	if !ok {
		s.mu.Unlock()
		return ErrNotFound
	}
	if !t.Status.CanAdvanceTo(types.StatusCompleted) {
		from := t.Status
		s.mu.Unlock()
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, types.StatusCompleted)
	}
	now := s.now()
	t.Status = types.StatusCompleted
	t.OutputPath = art.Path
	t.Subtitles = art.Subtitles
	t.FileSize = art.Size
	t.VideoURL = videoURL
	t.UpdatedAt = now
	t.CompletedAt = now
	s.history[id] = types.HistoryEntry{
		ID:         id,
		Title:      historyTitle(t.Topic),
		Topic:      t.Topic,
		VideoURL:   videoURL,
		FileSize:   art.Size,
		YouTubeURL: t.YouTubeURL,
		CreatedAt:  now,
	}
	s.mu.Unlock()

	s.publish(Event{JobID: id, Type: EventTypeResult, Status: types.StatusCompleted, Path: art.Path, Message: videoURL})
	return nil
}

// Fail marks the task failed with the raw error string of the stage that broke.
func (s *Store) Fail(id, stage string, cause error) error {
	msg := "unknown error"
	if cause != nil {
		msg = cause.Error()
	}

	s.mu.Lock()
	t, ok := s.tasks[id]
	if !ok {
		s.mu.Unlock()
		return ErrNotFound
	}
	if t.Status.Terminal() {
		from := t.Status
		s.mu.Unlock()
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, types.StatusFailed)
	}
	t.Status = types.StatusFailed
	t.Error = msg
	t.FailedStage = stage
	t.UpdatedAt = s.now()
	s.mu.Unlock()

	s.publish(Event{JobID: id, Type: EventTypeError, Status: types.StatusFailed, Message: msg})
	return nil
}

// SetPublished records where the video was uploaded.
func (s *Store) SetPublished(id, youtubeID, youtubeURL string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok {
		return ErrNotFound
	}
	t.YouTubeID = youtubeID
	t.YouTubeURL = youtubeURL
	t.UpdatedAt = s.now()
	return nil
}

// Log publishes a free-form progress line for a task.
func (s *Store) Log(id, message string) {
	s.publish(Event{JobID: id, Type: EventTypeLog, Message: message})
}

// HistoryPage is one page of finished videos, newest first.
type HistoryPage struct {
	Videos  []types.HistoryEntry `json:"videos"`
	Page    int                  `json:"page"`
	Limit   int                  `json:"limit"`
	Total   int                  `json:"total"`
	HasMore bool                 `json:"has_more"`
}

// History returns page (1-based) of at most limit entries.
func (s *Store) History(page, limit int) HistoryPage {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 1
	}

	s.mu.RLock()
	all := make([]types.HistoryEntry, 0, len(s.history))
	for _, e := range s.history {
		all = append(all, e)
	}
	s.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool {
		if all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].ID < all[j].ID
		}
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})

	start := len(all)
	if page-1 < len(all)/limit+1 {
		start = (page - 1) * limit
	}
	end := start + min(limit, len(all)-start)
	return HistoryPage{
		Videos:  all[start:end],
		Page:    page,
		Limit:   limit,
		Total:   len(all),
		HasMore: end < len(all),
	}
}

// DeleteHistory removes a video from history. The task record is kept.
func (s *Store) DeleteHistory(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.history[id]; !ok {
		return ErrNotFound
	}
	delete(s.history, id)
	return nil
}

func (s *Store) publish(e Event) {
	if s.events != nil {
		s.events.Publish(e)
	}
}

func historyTitle(topic string) string {
	runes := []rune(topic)
	if len(runes) <= historyTitleChars {
		return topic
	}
	return string(runes[:historyTitleChars]) + "..."
}
