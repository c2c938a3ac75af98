// Package server exposes the video pipeline over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"time"

	"learntube-pipeline/config"
	"learntube-pipeline/tasks"
	"learntube-pipeline/topics"
	"learntube-pipeline/types"
	"learntube-pipeline/voiceover"
)

const (
	serviceName = "LearnTube AI"
	Version     = "2.2.0"
)

// Submitter schedules a pipeline run for a topic.
type Submitter interface {
	Submit(topic string) (types.Task, error)
}

// TopicSuggester lists candidate topics.
type TopicSuggester interface {
	Run(ctx context.Context, limit int) ([]topics.Suggestion, error)
}

// HealthCheck reports whether manim and the voiceover plugin are usable.
type HealthCheck func(ctx context.Context) voiceover.Status

// Server wires HTTP endpoints to the task store and pipeline runner.
type Server struct {
	cfg       *config.Config
	store     *tasks.Store
	events    *tasks.EventBus
	runner    Submitter
	suggester TopicSuggester
	health    HealthCheck
	limiter   *rateLimiter
	clock     func() time.Time
	mux       *http.ServeMux
}

// Option customizes server construction.
type Option func(*Server)

// WithSuggester enables /topics/suggestions.
func WithSuggester(s TopicSuggester) Option {
	return func(srv *Server) {
		if s != nil {
			srv.suggester = s
		}
	}
}

// WithHealthCheck overrides the toolchain probe used by /health.
func WithHealthCheck(h HealthCheck) Option {
	return func(srv *Server) {
		if h != nil {
			srv.health = h
		}
	}
}

// WithClock allows tests to control timestamps and rate-limit windows.
func WithClock(clock func() time.Time) Option {
	return func(srv *Server) {
		if clock != nil {
			srv.clock = clock
		}
	}
}

// New prepares the server and its routes.
func New(cfg *config.Config, store *tasks.Store, events *tasks.EventBus, runner Submitter, opts ...Option) *Server {
	s := &Server{
		cfg:     cfg,
		store:   store,
		events:  events,
		runner:  runner,
		health:  func(context.Context) voiceover.Status { return voiceover.Status{} },
		limiter: newRateLimiter(cfg.Server.RateLimit.Requests, time.Duration(cfg.Server.RateLimit.WindowSec)*time.Second),
		clock:   func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleRoot)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("POST /generate-video", s.handleGenerate)
	mux.HandleFunc("GET /video-status/{id}", s.handleStatus)
	mux.HandleFunc("GET /video-events/{id}", s.handleEvents)
	mux.HandleFunc("GET /videos/{id}", s.handleVideo)
	mux.HandleFunc("GET /videos/{id}/subtitles", s.handleSubtitles)
	mux.HandleFunc("GET /history", s.handleHistory)
	mux.HandleFunc("DELETE /history/{id}", s.handleDeleteHistory)
	mux.HandleFunc("GET /topics/suggestions", s.handleSuggestions)

	if dir := cfg.Server.StaticDir; dir != "" {
		if fi, err := os.Stat(dir); err == nil && fi.IsDir() {
			mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(http.Dir(dir))))
			log.Printf("[server] Serving static UI files from %s", dir)
		} else {
			log.Printf("[server] Static UI directory %q not found", dir)
		}
	}
	s.mux = mux
	return s
}

// Handler returns the routed handler with CORS applied.
func (s *Server) Handler() http.Handler {
	return s.cors(s.mux)
}

// Run serves until ctx is cancelled, then drains in-flight requests.
func (s *Server) Run(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.cfg.Server.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.cfg.Server.Addr, err)
	}
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("[server] Listening on http://%s", listener.Addr())
		errCh <- srv.Serve(listener)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.Println("[server] Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func (s *Server) now() time.Time {
	return s.clock().UTC()
}
