package server

import (
	"sync"
	"time"
)

// rateLimiter allows a fixed number of requests per client per window.
type rateLimiter struct {
	mu      sync.Mutex
	limit   int
	window  time.Duration
	clients map[string]*windowCount
}

type windowCount struct {
	start time.Time
	count int
}

func newRateLimiter(limit int, window time.Duration) *rateLimiter {
	return &rateLimiter{
		limit:   limit,
		window:  window,
		clients: make(map[string]*windowCount),
	}
}

// allow records one request for key and reports whether it is within the
// limit, how many requests remain and when the current window resets.
func (l *rateLimiter) allow(key string, now time.Time) (bool, int, time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()

	wc, ok := l.clients[key]
	if !ok || now.Sub(wc.start) >= l.window {
		wc = &windowCount{start: now}
		l.clients[key] = wc
		l.sweep(now)
	}
	reset := wc.start.Add(l.window)
	if wc.count >= l.limit {
		return false, 0, reset
	}
	wc.count++
	return true, l.limit - wc.count, reset
}

// sweep drops expired windows so idle clients do not accumulate.
func (l *rateLimiter) sweep(now time.Time) {
	for key, wc := range l.clients {
		if now.Sub(wc.start) >= l.window {
			delete(l.clients, key)
		}
	}
}
