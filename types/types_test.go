package types

import "testing"

func TestStatusCanAdvanceTo(t *testing.T) {
	tests := []struct {
		from, to Status
		want     bool
	}{
		{StatusQueued, StatusGeneratingScript, true},
		{StatusGeneratingScript, StatusGeneratingManimCode, true},
		{StatusGeneratingManimCode, StatusRenderingVideo, true},
		{StatusRenderingVideo, StatusCompleted, true},
		{StatusRenderingVideo, StatusPublishing, true},
		{StatusPublishing, StatusCompleted, true},
		{StatusQueued, StatusFailed, true},
		{StatusRenderingVideo, StatusFailed, true},
		{StatusRenderingVideo, StatusGeneratingScript, false},
		{StatusGeneratingScript, StatusGeneratingScript, false},
		{StatusCompleted, StatusFailed, false},
		{StatusFailed, StatusQueued, false},
		{StatusQueued, Status("bogus"), false},
	}
	for _, tt := range tests {
		if got := tt.from.CanAdvanceTo(tt.to); got != tt.want {
			t.Errorf("%s -> %s = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestStatusProgress(t *testing.T) {
	if StatusCompleted.Progress() != 100 {
		t.Fatalf("completed progress = %d", StatusCompleted.Progress())
	}
	if StatusFailed.Progress() != 0 {
		t.Fatalf("failed progress = %d", StatusFailed.Progress())
	}
	if StatusGeneratingScript.Progress() >= StatusRenderingVideo.Progress() {
		t.Fatal("progress should grow with the pipeline")
	}
}
