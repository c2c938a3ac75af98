package topics

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/vartanbeno/go-reddit/v2/reddit"

	"learntube-pipeline/config"
)

func listing(posts ...string) string {
	children := make([]string, len(posts))
	for i, p := range posts {
		children[i] = `{"kind":"t3","data":` + p + `}`
	}
	return `{"kind":"Listing","data":{"after":"","before":"","children":[` + strings.Join(children, ",") + `]}}`
}

func post(id, title string, score int, extra string) string {
	return fmt.Sprintf(`{"id":%q,"name":"t3_%s","title":%q,"score":%d,"num_comments":10,"permalink":"/r/x/comments/%s/"%s}`, id, id, title, score, id, extra)
}

func newTestSuggester(t *testing.T, handler http.HandlerFunc, subs ...string) *Suggester {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	s, err := New(config.TopicsConfig{Enabled: true, Subreddits: subs, MinScore: 50, Limit: 10}, reddit.WithBaseURL(srv.URL+"/"))
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestSuggesterRun(t *testing.T) {
	s := newTestSuggester(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case strings.Contains(r.URL.Path, "/r/explainlikeimfive/hot"):
			fmt.Fprint(w, listing(
				post("a", "ELI5: How do tides work?", 500, ""),
				post("b", "Rules thread", 9000, `,"stickied":true`),
				post("c", "Low effort", 10, ""),
			))
		case strings.Contains(r.URL.Path, "/r/askscience/hot"):
			fmt.Fprint(w, listing(
				post("d", "How do tides work?", 300, ""),
				post("e", "Why is the sky blue?", 200, ""),
			))
		default:
			http.NotFound(w, r)
		}
	}, "explainlikeimfive", "askscience")

	got, err := s.Run(context.Background(), 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d suggestions: %+v", len(got), got)
	}
	if got[0].Topic != "How do tides work?" || got[0].Subreddit != "explainlikeimfive" {
		t.Fatalf("first = %+v", got[0])
	}
	if got[1].Topic != "Why is the sky blue?" {
		t.Fatalf("second = %+v", got[1])
	}
}

func TestSuggesterAllSubredditsFail(t *testing.T) {
	s := newTestSuggester(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusInternalServerError)
	}, "askscience")

	if _, err := s.Run(context.Background(), 3); err == nil {
		t.Fatal("expected error when every subreddit fails")
	}
}

func TestCleanTitle(t *testing.T) {
	tests := map[string]string{
		"ELI5: why do we dream?":  "why do we dream?",
		"eli5 - what is   entropy": "what is entropy",
		"  Plain title ":           "Plain title",
		strings.Repeat("x", 201):   "",
	}
	for in, want := range tests {
		if got := CleanTitle(in); got != want {
			t.Errorf("CleanTitle(%q) = %q, want %q", in, got, want)
		}
	}
}
