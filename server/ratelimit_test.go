package server

import (
	"testing"
	"time"
)

func TestRateLimiterWindow(t *testing.T) {
	l := newRateLimiter(2, time.Minute)
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	ok, remaining, reset := l.allow("a", start)
	if !ok || remaining != 1 || !reset.Equal(start.Add(time.Minute)) {
		t.Fatalf("first = %v %d %v", ok, remaining, reset)
	}
	if ok, remaining, _ := l.allow("a", start.Add(time.Second)); !ok || remaining != 0 {
		t.Fatalf("second = %v %d", ok, remaining)
	}
	if ok, remaining, _ := l.allow("a", start.Add(2*time.Second)); ok || remaining != 0 {
		t.Fatalf("third should be rejected, got %v %d", ok, remaining)
	}
	if ok, _, _ := l.allow("b", start.Add(2*time.Second)); !ok {
		t.Fatal("other key should be allowed")
	}
	if ok, _, reset := l.allow("a", start.Add(time.Minute)); !ok || !reset.Equal(start.Add(2*time.Minute)) {
		t.Fatalf("new window = %v %v", ok, reset)
	}
}

func TestRateLimiterSweepsExpiredClients(t *testing.T) {
	l := newRateLimiter(1, time.Minute)
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	l.allow("a", start)
	l.allow("b", start.Add(2*time.Minute))
	if _, ok := l.clients["a"]; ok {
		t.Fatal("expired client should be swept")
	}
}
