// Package topics suggests video topics from popular Reddit questions.
package topics

import (
	"context"
	"fmt"
	"log"
	"regexp"
	"sort"
	"strings"

	"github.com/vartanbeno/go-reddit/v2/reddit"

	"learntube-pipeline/config"
)

const userAgent = "learntube-pipeline/1.0 (topic suggestions)"

// hookKeywords boost a post's score when present in its title
var hookKeywords = []string{
	"how", "why", "what happens", "explain", "work", "difference",
	"actually", "possible", "math", "physics", "space", "energy",
	"light", "gravity", "infinity", "probability", "algorithm",
}

// eli5Prefix matches the tag explainlikeimfive puts in front of titles.
var eli5Prefix = regexp.MustCompile(`(?i)^\s*eli5\s*[:\-–]?\s*`)

// Suggestion is one candidate topic.
type Suggestion struct {
	Topic     string `json:"topic"`
	Subreddit string `json:"subreddit"`
	Score     int    `json:"score"`
	Comments  int    `json:"comments"`
	URL       string `json:"url"`
}

// Suggester ranks hot posts from the configured subreddits.
type Suggester struct {
	cfg    config.TopicsConfig
	client *reddit.Client
}

// New creates a Suggester with a read-only Reddit client. Extra options
// (e.g. reddit.WithBaseURL) are applied after the defaults.
func New(cfg config.TopicsConfig, opts ...reddit.Opt) (*Suggester, error) {
	opts = append([]reddit.Opt{reddit.WithUserAgent(userAgent)}, opts...)
	client, err := reddit.NewReadonlyClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("reddit client: %w", err)
	}
	return &Suggester{cfg: cfg, client: client}, nil
}

// Run fetches, scores, deduplicates and returns at most limit suggestions.
// A failing subreddit is skipped; it is an error only when all of them fail.
func (s *Suggester) Run(ctx context.Context, limit int) ([]Suggestion, error) {
	if limit <= 0 {
		limit = s.cfg.Limit
	}

	var candidates []Suggestion
	failures := 0
	for _, sub := range s.cfg.Subreddits {
		posts, _, err := s.client.Subreddit.HotPosts(ctx, sub, &reddit.ListOptions{Limit: 25})
		if err != nil {
			log.Printf("[topics] Reddit r/%s error: %v", sub, err)
			failures++
			continue
		}
		for _, post := range posts {
			if post.NSFW || post.Stickied || post.Score < s.cfg.MinScore {
				continue
			}
			topic := CleanTitle(post.Title)
			if topic == "" {
				continue
			}
			candidates = append(candidates, Suggestion{
				Topic:     topic,
				Subreddit: sub,
				Score:     scorePost(topic, post.Score, post.NumberOfComments),
				Comments:  post.NumberOfComments,
				URL:       "https://reddit.com" + post.Permalink,
			})
		}
	}
	if len(s.cfg.Subreddits) > 0 && failures == len(s.cfg.Subreddits) {
		return nil, fmt.Errorf("no topics found from any subreddit")
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})

	seen := make(map[string]bool)
	out := make([]Suggestion, 0, limit)
	for _, c := range candidates {
		key := strings.ToLower(c.Topic)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, c)
		if len(out) == limit {
			break
		}
	}
	log.Printf("[topics] ✅ %d suggestions from %d candidates", len(out), len(candidates))
	return out, nil
}

// CleanTitle strips subreddit tags and surrounding noise from a post title.
func CleanTitle(title string) string {
	t := eli5Prefix.ReplaceAllString(strings.TrimSpace(title), "")
	t = strings.Join(strings.Fields(t), " ")
	if len([]rune(t)) > 200 {
		return ""
	}
	return t
}

func scorePost(title string, upvotes, comments int) int {
	score := upvotes + comments/2

	lower := strings.ToLower(title)
	for _, kw := range hookKeywords {
		if strings.Contains(lower, kw) {
			score += 50
		}
	}
	// Questions make better explainers
	if strings.HasSuffix(lower, "?") {
		score += 100
	}
	return score
}
