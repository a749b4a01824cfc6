package reddit

import (
	"context"
	"fmt"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/timmy/veris/internal/source"
)

const (
	SourceID       = "reddit"
	defaultBaseURL = "https://www.reddit.com"
	maxPageSize    = 100
)

var imageExtensions = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".webp": true,
}

// Config holds Reddit adapter settings.
type Config struct {
	Subreddits []string
	UserAgent  string
	BaseURL    string
	Timeout    time.Duration
}

// Adapter reads the hot listing of one or more subreddits.
type Adapter struct {
	client     *resty.Client
	subreddits []string
}

// NewAdapter creates a Reddit adapter.
func NewAdapter(cfg *Config) *Adapter {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	client := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(timeout).
		SetHeader("User-Agent", cfg.UserAgent).
		SetRetryCount(2).
		SetRetryWaitTime(2 * time.Second).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err == nil && r.StatusCode() == http.StatusTooManyRequests
		})

	return &Adapter{client: client, subreddits: cfg.Subreddits}
}

// GetSourceID returns the unique identifier for this source.
func (a *Adapter) GetSourceID() string {
	return SourceID
}

// GetDisplayName returns a human-readable name for this source.
func (a *Adapter) GetDisplayName() string {
	return "Reddit (r/" + strings.Join(a.subreddits, "+") + ")"
}

// SupportsIncremental returns true; listings page by Reddit's "after" token.
func (a *Adapter) SupportsIncremental() bool {
	return true
}

type listing struct {
	Data struct {
		After    string `json:"after"`
		Children []struct {
			Kind string `json:"kind"`
			Data post   `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

type post struct {
	ID        string `json:"id"`
	Subreddit string `json:"subreddit"`
	Title     string `json:"title"`
	SelfText  string `json:"selftext"`
	URL       string `json:"url"`
	Permalink string `json:"permalink"`
	IsSelf    bool   `json:"is_self"`
	IsVideo   bool   `json:"is_video"`
	PostHint  string `json:"post_hint"`
	Over18    bool   `json:"over_18"`
	Author    string `json:"author"`
}

// FetchBatch fetches one listing page.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - cursor: Reddit "after" token, empty for the first page.
//   - limit: page size, capped at 100.
// Returns:
//   - []source.Item: usable posts on the page.
//   - string: next "after" token or empty when the listing ends.
//   - error: non-nil on HTTP or decode failure.
func (a *Adapter) FetchBatch(ctx context.Context, cursor string, limit int) ([]source.Item, string, error) {
	if len(a.subreddits) == 0 {
		return nil, "", fmt.Errorf("no subreddits configured")
	}
	if limit <= 0 || limit > maxPageSize {
		limit = maxPageSize
	}

	req := a.client.R().
		SetContext(ctx).
		SetQueryParam("limit", fmt.Sprint(limit)).
		SetQueryParam("raw_json", "1")
	if cursor != "" {
		req.SetQueryParam("after", cursor)
	}

	var result listing
	resp, err := req.SetResult(&result).
		Get("/r/" + strings.Join(a.subreddits, "+") + "/hot.json")
	if err != nil {
		return nil, "", fmt.Errorf("failed to fetch listing: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, "", fmt.Errorf("reddit API error: status %d", resp.StatusCode())
	}

	items := make([]source.Item, 0, len(result.Data.Children))
	for _, child := range result.Data.Children {
		if child.Kind != "t3" {
			continue
		}
		if item, ok := toItem(&child.Data); ok {
			items = append(items, item)
		}
	}
	return items, result.Data.After, nil
}

// toItem maps a post onto a crawl item. NSFW posts, link-less self posts
// and videos are skipped.
func toItem(p *post) (source.Item, bool) {
	if p.Over18 || p.IsVideo {
		return source.Item{}, false
	}

	item := source.Item{
		SourceID:    p.ID,
		OriginLabel: "reddit/r/" + p.Subreddit,
		OriginURL:   defaultBaseURL + p.Permalink,
		Tags:        []string{p.Subreddit},
		Metadata: map[string]string{
			"title":  p.Title,
			"author": p.Author,
		},
	}

	switch {
	case p.IsSelf:
		text := strings.TrimSpace(p.Title + "\n\n" + p.SelfText)
		if strings.TrimSpace(p.SelfText) == "" {
			return item, false
		}
		item.Kind = source.ItemText
		item.Text = text
	case p.PostHint == "image" || imageExtensions[strings.ToLower(path.Ext(p.URL))]:
		item.Kind = source.ItemMediaURL
		item.URL = p.URL
		item.MediaKind = "image"
	case strings.HasPrefix(p.URL, "http"):
		item.Kind = source.ItemPage
		item.URL = p.URL
	default:
		return item, false
	}
	return item, true
}
