package fetch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	readability "github.com/go-shiori/go-readability"
	"golang.org/x/net/html/charset"

	"github.com/timmy/veris/internal/logger"
)

var (
	// ErrDisallowed is returned when robots.txt forbids the page.
	ErrDisallowed = errors.New("fetch disallowed by robots.txt")
	// ErrEmptyArticle is returned when no readable text could be extracted.
	ErrEmptyArticle = errors.New("no readable article text")
)

var (
	whitespaceRe = regexp.MustCompile(`\s+`)
	blockTagRe   = regexp.MustCompile(`(?i)</?(div|p|br|li|td|tr|h[1-6])[^>]*>`)
)

// Article is the readable part of a web page.
type Article struct {
	URL     string
	Title   string
	Excerpt string
	Text    string
}

// Config holds fetcher settings.
type Config struct {
	UserAgent      string
	Timeout        time.Duration
	RespectRobots  bool
	RequestsPerSec float64
	MaxBodyBytes   int64
}

// ArticleFetcher downloads pages and reduces them to article text.
type ArticleFetcher struct {
	client   *resty.Client
	robots   *RobotsChecker
	limiter  *HostLimiter
	maxBytes int64
}

// NewArticleFetcher creates a fetcher.
func NewArticleFetcher(cfg *Config) *ArticleFetcher {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	maxBytes := cfg.MaxBodyBytes
	if maxBytes <= 0 {
		maxBytes = 5 << 20
	}

	f := &ArticleFetcher{
		client: resty.New().
			SetTimeout(timeout).
			SetHeader("User-Agent", cfg.UserAgent).
			SetHeader("Accept", "text/html,application/xhtml+xml"),
		limiter:  NewHostLimiter(cfg.RequestsPerSec, 1),
		maxBytes: maxBytes,
	}
	if cfg.RespectRobots {
		f.robots = NewRobotsChecker(cfg.UserAgent, timeout)
	}
	return f
}

// Fetch downloads pageURL and extracts its article.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - pageURL: absolute http(s) URL.
// Returns:
//   - *Article: readable content with normalized whitespace.
//   - error: ErrDisallowed, ErrEmptyArticle, or a transport error.
func (f *ArticleFetcher) Fetch(ctx context.Context, pageURL string) (*Article, error) {
	parsed, err := url.Parse(pageURL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return nil, fmt.Errorf("invalid page URL %q", pageURL)
	}

	if f.robots != nil {
		allowed, delay, _ := f.robots.CanFetch(ctx, pageURL)
		if !allowed {
			return nil, ErrDisallowed
		}
		if delay > 0 {
			logger.CtxDebug(ctx, "robots.txt crawl delay %s for %s", delay, parsed.Host)
		}
	}
	if err := f.limiter.Wait(ctx, pageURL); err != nil {
		return nil, err
	}

	start := time.Now()
	body, err := f.download(ctx, pageURL)
	if err != nil {
		return nil, err
	}

	article, err := parseArticle(body, parsed)
	if err != nil {
		return nil, err
	}

	logger.With(logger.Fields{
		"url":            pageURL,
		logger.FieldSize: len(article.Text),
	}).Since(start).Debug(ctx, "article fetched")
	return article, nil
}

func (f *ArticleFetcher) download(ctx context.Context, pageURL string) ([]byte, error) {
	resp, err := f.client.R().
		SetContext(ctx).
		SetDoNotParseResponse(true).
		Get(pageURL)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch page: %w", err)
	}
	raw := resp.RawBody()
	defer raw.Close()

	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("fetch page: HTTP %d", resp.StatusCode())
	}

	utf8Reader, err := charset.NewReader(io.LimitReader(raw, f.maxBytes), resp.Header().Get("Content-Type"))
	if err != nil {
		return nil, fmt.Errorf("failed to decode page charset: %w", err)
	}
	body, err := io.ReadAll(utf8Reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read page: %w", err)
	}
	return body, nil
}

// parseArticle runs readability over html and flattens the result to text.
func parseArticle(html []byte, pageURL *url.URL) (*Article, error) {
	article, err := readability.FromReader(bytes.NewReader(html), pageURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse article: %w", err)
	}

	spaced := blockTagRe.ReplaceAllStringFunc(article.Content, func(tag string) string {
		return " " + tag + " "
	})
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(spaced))
	if err != nil {
		return nil, fmt.Errorf("failed to parse article html: %w", err)
	}

	text := normalizeText(doc.Text())
	if text == "" {
		return nil, ErrEmptyArticle
	}

	return &Article{
		URL:     pageURL.String(),
		Title:   normalizeText(article.Title),
		Excerpt: normalizeText(article.Excerpt),
		Text:    text,
	}, nil
}

func normalizeText(s string) string {
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(s, " "))
}

// SubmissionText renders the article as the text payload of a submission.
func (a *Article) SubmissionText() string {
	var b strings.Builder
	if a.Title != "" {
		b.WriteString(a.Title)
		b.WriteString("\n\n")
	}
	b.WriteString(a.Text)
	return b.String()
}
