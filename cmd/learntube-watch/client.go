package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// apiClient talks to the learntube HTTP API.
type apiClient struct {
	baseURL string
	http    *http.Client
}

func newAPIClient(baseURL string) *apiClient {
	return &apiClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

type videoStatus struct {
	VideoID     string  `json:"video_id"`
	Status      string  `json:"status"`
	Progress    int     `json:"progress"`
	Topic       string  `json:"topic"`
	VideoURL    *string `json:"video_url"`
	Error       *string `json:"error"`
	FailedStage string  `json:"failed_stage"`
	YouTubeURL  string  `json:"youtube_url"`
}

func (s videoStatus) finished() bool {
	return s.Status == "completed" || s.Status == "failed"
}

type videoEvent struct {
	Seq     int64  `json:"seq"`
	Type    string `json:"type"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

type eventsPage struct {
	Events    []videoEvent `json:"events"`
	NextSince int64        `json:"next_since"`
}

// apiError is a non-2xx response with its {"detail"} body.
type apiError struct {
	StatusCode int
	Detail     string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Detail)
}

func (c *apiClient) submit(ctx context.Context, topic string) (string, error) {
	body, _ := json.Marshal(map[string]string{"topic": topic})
	var resp struct {
		VideoID string `json:"video_id"`
	}
	if err := c.do(ctx, http.MethodPost, "/generate-video", bytes.NewReader(body), &resp); err != nil {
		return "", err
	}
	return resp.VideoID, nil
}

func (c *apiClient) status(ctx context.Context, id string) (videoStatus, error) {
	var st videoStatus
	err := c.do(ctx, http.MethodGet, "/video-status/"+url.PathEscape(id), nil, &st)
	return st, err
}

func (c *apiClient) events(ctx context.Context, id string, since int64) (eventsPage, error) {
	var page eventsPage
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/video-events/%s?since=%d", url.PathEscape(id), since), nil, &page)
	return page, err
}

// download saves the finished video to out and returns the bytes written.
func (c *apiClient) download(ctx context.Context, id, out string) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/videos/"+url.PathEscape(id), nil)
	if err != nil {
		return 0, err
	}
	// Large renders outlive the default client timeout.
	resp, err := (&http.Client{}).Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return 0, decodeError(resp)
	}

	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return 0, err
	}
	f, err := os.Create(out)
	if err != nil {
		return 0, err
	}
	n, err := io.Copy(f, resp.Body)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	return n, err
}

func (c *apiClient) do(ctx context.Context, method, path string, body io.Reader, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func decodeError(resp *http.Response) error {
	var e struct {
		Detail string `json:"detail"`
	}
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 8<<10))
	if json.Unmarshal(data, &e) != nil || e.Detail == "" {
		e.Detail = strings.TrimSpace(string(data))
	}
	return &apiError{StatusCode: resp.StatusCode, Detail: e.Detail}
}
