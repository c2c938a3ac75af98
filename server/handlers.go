package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"learntube-pipeline/tasks"
	"learntube-pipeline/types"
	"learntube-pipeline/voiceover"
	"learntube-pipeline/workerpool"
)

const (
	maxBodyBytes     = 64 << 10
	defaultPageLimit = 20
	maxPageLimit     = 100
)

type generateRequest struct {
	Topic string `json:"topic"`
}

type generateResponse struct {
	VideoID string       `json:"video_id"`
	Status  types.Status `json:"status"`
	Message string       `json:"message"`
}

type statusResponse struct {
	VideoID     string       `json:"video_id"`
	Status      types.Status `json:"status"`
	Progress    int          `json:"progress"`
	Topic       string       `json:"topic"`
	VideoURL    *string      `json:"video_url"`
	Error       *string      `json:"error"`
	FailedStage string       `json:"failed_stage,omitempty"`
	YouTubeURL  string       `json:"youtube_url,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
	CompletedAt *time.Time   `json:"completed_at,omitempty"`
}

type eventsResponse struct {
	VideoID   string        `json:"video_id"`
	Events    []tasks.Event `json:"events"`
	NextSince int64         `json:"next_since"`
	Status    types.Status  `json:"status"`
}

type healthResponse struct {
	Status        string           `json:"status"`
	Service       string           `json:"service"`
	Version       string           `json:"version"`
	LLMProvider   string           `json:"llm_provider"`
	LLMConfigured bool             `json:"llm_configured"`
	Toolchain     voiceover.Status `json:"toolchain"`
	Timestamp     time.Time        `json:"timestamp"`
}

type errorResponse struct {
	Detail string `json:"detail"`
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	ok, remaining, reset := s.limiter.allow(clientKey(r), s.now())
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(s.cfg.Server.RateLimit.Requests))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(reset.Unix(), 10))
	if !ok {
		retry := int(reset.Sub(s.now()).Seconds()) + 1
		w.Header().Set("Retry-After", strconv.Itoa(retry))
		writeError(w, http.StatusTooManyRequests, "Rate limit exceeded. Try again later.")
		return
	}

	var req generateRequest
	reader := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	defer reader.Close()
	if err := json.NewDecoder(reader).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if !s.cfg.LLMConfigured() {
		writeError(w, http.StatusServiceUnavailable, "AI Service is not configured. Missing API key for provider "+s.cfg.LLM.Provider+".")
		return
	}

	topic := normalizeTopic(req.Topic, s.cfg.Server.MaxTopicChars)
	if topic == "" {
		writeError(w, http.StatusBadRequest, "topic is required")
		return
	}

	task, err := s.runner.Submit(topic)
	if err != nil {
		if errors.Is(err, workerpool.ErrQueueFull) || errors.Is(err, workerpool.ErrStopped) {
			writeError(w, http.StatusServiceUnavailable, "Video generation queue is full. Try again later.")
			return
		}
		log.Printf("[server] submit failed: %v", err)
		writeError(w, http.StatusInternalServerError, "could not queue video generation")
		return
	}

	writeJSON(w, http.StatusAccepted, generateResponse{
		VideoID: task.ID,
		Status:  task.Status,
		Message: "Video generation has been queued. Check the status endpoint for updates.",
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	task, ok := s.store.Get(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, "Video ID not found.")
		return
	}
	writeJSON(w, http.StatusOK, newStatusResponse(task))
}

func newStatusResponse(t types.Task) statusResponse {
	resp := statusResponse{
		VideoID:     t.ID,
		Status:      t.Status,
		Progress:    t.Status.Progress(),
		Topic:       t.Topic,
		FailedStage: t.FailedStage,
		YouTubeURL:  t.YouTubeURL,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
	if t.VideoURL != "" {
		resp.VideoURL = &t.VideoURL
	}
	if t.Error != "" {
		resp.Error = &t.Error
	}
	if !t.CompletedAt.IsZero() {
		resp.CompletedAt = &t.CompletedAt
	}
	return resp
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	task, ok := s.store.Get(id)
	if !ok {
		writeError(w, http.StatusNotFound, "Video ID not found.")
		return
	}

	var since int64
	if raw := r.URL.Query().Get("since"); raw != "" {
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || v < 0 {
			writeError(w, http.StatusBadRequest, "since must be a non-negative integer")
			return
		}
		since = v
	}

	events := s.events.ForTask(id, since)
	next := since
	if len(events) > 0 {
		next = events[len(events)-1].Seq
	}
	writeJSON(w, http.StatusOK, eventsResponse{VideoID: id, Events: events, NextSince: next, Status: task.Status})
}

func (s *Server) handleVideo(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	task, ok := s.store.Get(id)
	if !ok {
		writeError(w, http.StatusNotFound, "Video ID not found.")
		return
	}
	if task.Status != types.StatusCompleted {
		writeError(w, http.StatusBadRequest, "Video is not ready. Current status: "+string(task.Status))
		return
	}

	path := task.OutputPath
	if path == "" {
		path = filepath.Join(s.cfg.Paths.Videos, id+".mp4")
	}
	f, err := os.Open(path)
	if err != nil {
		log.Printf("[server] Completed video file not found on disk for ID %s: %v", id, err)
		writeError(w, http.StatusInternalServerError, "Video file is missing despite completed status.")
		return
	}
	defer f.Close()
	fi, err := f.Stat()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Video file is missing despite completed status.")
		return
	}

	w.Header().Set("Content-Type", "video/mp4")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": task.Topic + ".mp4"}))
	http.ServeContent(w, r, filepath.Base(path), fi.ModTime(), f)
}

func (s *Server) handleSubtitles(w http.ResponseWriter, r *http.Request) {
	task, ok := s.store.Get(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, "Video ID not found.")
		return
	}
	if task.Status != types.StatusCompleted {
		writeError(w, http.StatusBadRequest, "Video is not ready. Current status: "+string(task.Status))
		return
	}
	if task.Subtitles == "" {
		writeError(w, http.StatusNotFound, "No subtitles were produced for this video.")
		return
	}
	data, err := os.ReadFile(task.Subtitles)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Subtitle file is missing despite completed status.")
		return
	}
	w.Header().Set("Content-Type", "application/x-subrip")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": task.Topic + ".srt"}))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	page, err := intParam(r, "page", 1)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	limit, err := intParam(r, "limit", defaultPageLimit)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}
	writeJSON(w, http.StatusOK, s.store.History(page, limit))
}

func (s *Server) handleDeleteHistory(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.store.DeleteHistory(id); err != nil {
		if errors.Is(err, tasks.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Video not found in history.")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Video removed from history", "video_id": id})
}

func (s *Server) handleSuggestions(w http.ResponseWriter, r *http.Request) {
	if s.suggester == nil || !s.cfg.Topics.Enabled {
		writeError(w, http.StatusServiceUnavailable, "Topic suggestions are disabled.")
		return
	}
	limit, err := intParam(r, "limit", s.cfg.Topics.Limit)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()
	suggestions, err := s.suggester.Run(ctx, limit)
	if err != nil {
		log.Printf("[server] topic suggestions failed: %v", err)
		writeError(w, http.StatusBadGateway, "Could not fetch topic suggestions: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"topics": suggestions})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()
	writeJSON(w, http.StatusOK, healthResponse{
		Status:        "healthy",
		Service:       serviceName,
		Version:       Version,
		LLMProvider:   s.cfg.LLM.Provider,
		LLMConfigured: s.cfg.LLMConfigured(),
		Toolchain:     s.health(ctx),
		Timestamp:     s.now(),
	})
}

// handleRoot serves the bundled UI, or the README when there is none.
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if dir := s.cfg.Server.StaticDir; dir != "" {
		index := filepath.Join(dir, "index.html")
		if _, err := os.Stat(index); err == nil {
			http.ServeFile(w, r, index)
			return
		}
	}
	data, err := os.ReadFile("README.md")
	if err != nil {
		writeJSON(w, http.StatusOK, map[string]string{"service": serviceName, "version": Version})
		return
	}
	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// normalizeTopic trims the topic and caps it at max runes.
func normalizeTopic(topic string, max int) string {
	topic = strings.TrimSpace(topic)
	if runes := []rune(topic); max > 0 && len(runes) > max {
		topic = strings.TrimSpace(string(runes[:max]))
	}
	return topic
}

func intParam(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 1 {
		return 0, errors.New(name + " must be a positive integer")
	}
	return v, nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, errorResponse{Detail: detail})
}
