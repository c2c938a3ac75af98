package tasks

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"testing"
	"time"

	"learntube-pipeline/types"
)

func newTestStore() (*Store, *EventBus) {
	bus := NewEventBus(100)
	s := NewStore(bus)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	var tick int
	var mu sync.Mutex
	s.now = func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	}
	return s, bus
}

// TestStoreLifecycle verifies normal progression to completed.
func TestStoreLifecycle(t *testing.T) {
	s, bus := newTestStore()
	task := s.Create("Photosynthesis")
	if task.Status != types.StatusQueued || task.ID == "" {
		t.Fatalf("created task = %+v", task)
	}

	for _, status := range []types.Status{
		types.StatusGeneratingScript,
		types.StatusGeneratingManimCode,
		types.StatusRenderingVideo,
	} {
		if err := s.Transition(task.ID, status); err != nil {
			t.Fatalf("transition to %s: %v", status, err)
		}
	}
	if err := s.Complete(task.ID, types.Artifact{Path: "/v/x.mp4", Size: 42}, "/videos/"+task.ID); err != nil {
		t.Fatalf("complete: %v", err)
	}

	got, ok := s.Get(task.ID)
	if !ok {
		t.Fatal("task missing")
	}
	if got.Status != types.StatusCompleted || got.VideoURL != "/videos/"+task.ID || got.FileSize != 42 {
		t.Fatalf("completed task = %+v", got)
	}
	if got.CompletedAt.IsZero() {
		t.Fatal("completed_at not set")
	}

	events := bus.ForTask(task.ID, 0)
	if len(events) != 5 {
		t.Fatalf("events = %d, want 5", len(events))
	}
	if events[len(events)-1].Type != EventTypeResult {
		t.Fatalf("last event = %+v", events[len(events)-1])
	}
}

// TestStoreRejectsBackwardTransition checks monotonic progression.
func TestStoreRejectsBackwardTransition(t *testing.T) {
	s, _ := newTestStore()
	task := s.Create("x")
	if err := s.Transition(task.ID, types.StatusRenderingVideo); err != nil {
		t.Fatalf("transition: %v", err)
	}
	if err := s.Transition(task.ID, types.StatusGeneratingScript); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("error = %v, want ErrInvalidTransition", err)
	}
	if err := s.Transition(task.ID, types.StatusRenderingVideo); err != nil {
		t.Fatalf("same status should be a no-op, got %v", err)
	}
	if err := s.Transition(task.ID, types.StatusCompleted); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("completed via Transition error = %v", err)
	}
}

func TestStoreFail(t *testing.T) {
	s, _ := newTestStore()
	task := s.Create("x")
	_ = s.Transition(task.ID, types.StatusGeneratingScript)

	if err := s.Fail(task.ID, "generating_script", errors.New("quota exceeded")); err != nil {
		t.Fatalf("fail: %v", err)
	}
	got, _ := s.Get(task.ID)
	if got.Status != types.StatusFailed || got.Error != "quota exceeded" || got.FailedStage != "generating_script" {
		t.Fatalf("failed task = %+v", got)
	}

	if err := s.Transition(task.ID, types.StatusRenderingVideo); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("transition after fail error = %v", err)
	}
	if err := s.Fail(task.ID, "x", errors.New("again")); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("second fail error = %v", err)
	}
	if err := s.Complete(task.ID, types.Artifact{}, ""); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("complete after fail error = %v", err)
	}
}

func TestStoreUnknownID(t *testing.T) {
	s, _ := newTestStore()
	if _, ok := s.Get("nope"); ok {
		t.Fatal("unexpected task")
	}
	if err := s.Transition("nope", types.StatusGeneratingScript); !errors.Is(err, ErrNotFound) {
		t.Fatalf("error = %v", err)
	}
	if err := s.Fail("nope", "x", nil); !errors.Is(err, ErrNotFound) {
		t.Fatalf("error = %v", err)
	}
	if err := s.DeleteHistory("nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("error = %v", err)
	}
}

func TestStoreHistoryPaging(t *testing.T) {
	s, _ := newTestStore()
	var ids []string
	for i := 0; i < 5; i++ {
		task := s.Create(fmt.Sprintf("topic %d", i))
		ids = append(ids, task.ID)
		if err := s.Complete(task.ID, types.Artifact{Size: int64(i)}, "/videos/"+task.ID); err != nil {
			t.Fatalf("complete: %v", err)
		}
	}

	page := s.History(1, 2)
	if page.Total != 5 || len(page.Videos) != 2 || !page.HasMore {
		t.Fatalf("page 1 = %+v", page)
	}
	if page.Videos[0].ID != ids[4] {
		t.Fatalf("newest first: got %s, want %s", page.Videos[0].ID, ids[4])
	}

	last := s.History(3, 2)
	if len(last.Videos) != 1 || last.HasMore || last.Videos[0].ID != ids[0] {
		t.Fatalf("page 3 = %+v", last)
	}

	beyond := s.History(10, 2)
	if len(beyond.Videos) != 0 || beyond.HasMore {
		t.Fatalf("page 10 = %+v", beyond)
	}

	clamped := s.History(0, 0)
	if clamped.Page != 1 || clamped.Limit != 1 {
		t.Fatalf("clamped = %+v", clamped)
	}

	if err := s.DeleteHistory(ids[2]); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if s.History(1, 10).Total != 4 {
		t.Fatal("history entry not deleted")
	}
	if _, ok := s.Get(ids[2]); !ok {
		t.Fatal("task record must survive history deletion")
	}
}

func TestStoreHistoryHugePage(t *testing.T) {
	s, _ := newTestStore()
	task := s.Create("tides")
	if err := s.Complete(task.ID, types.Artifact{}, "/videos/"+task.ID); err != nil {
		t.Fatalf("complete: %v", err)
	}

	for _, tt := range []struct{ page, limit int }{
		{100000000000000001, 100},
		{math.MaxInt, 1},
		{2, math.MaxInt},
		{1, math.MaxInt},
	} {
		page := s.History(tt.page, tt.limit)
		want := 0
		if tt.page == 1 {
			want = 1
		}
		if len(page.Videos) != want || page.HasMore || page.Total != 1 {
			t.Fatalf("History(%d, %d) = %+v", tt.page, tt.limit, page)
		}
	}
}

func TestHistoryTitleTruncates(t *testing.T) {
	long := strings.Repeat("a", 60)
	if got := historyTitle(long); got != strings.Repeat("a", 50)+"..." {
		t.Fatalf("title = %q", got)
	}
	if got := historyTitle("short"); got != "short" {
		t.Fatalf("title = %q", got)
	}
}

func TestStoreConcurrentAccess(t *testing.T) {
	s, _ := newTestStore()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			task := s.Create("t")
			_ = s.Transition(task.ID, types.StatusGeneratingScript)
			_, _ = s.Get(task.ID)
			_ = s.History(1, 5)
		}()
	}
	wg.Wait()
	if s.Len() != 20 {
		t.Fatalf("len = %d, want 20", s.Len())
	}
}
