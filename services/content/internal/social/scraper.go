package social

import (
	"context"
	"fmt"
	"html"
	"regexp"
	"time"

	"github.com/civicms/pkg/utils"
	"github.com/valyala/fasthttp"
)

// Post is one social feed item.
type Post struct {
	ID        string    `json:"id"`
	Message   string    `json:"message"`
	Permalink string    `json:"permalink"`
	Image     string    `json:"image"`
	PostedAt  time.Time `json:"postedAt"`
}

// Scraper pulls og-tags off the municipality's public social page.
// This is best effort: the page markup changes without notice, and
// callers must be ready for errors.
type Scraper struct {
	client  *fasthttp.Client
	pageURL string
}

// NewScraper creates a scraper for the page URL.
func NewScraper(pageURL string) *Scraper {
	return &Scraper{
		client: &fasthttp.Client{
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
		},
		pageURL: pageURL,
	}
}

var (
	ogTitlePattern = regexp.MustCompile(`<meta\s+property="og:title"\s+content="([^"]*)"`)
	ogDescPattern  = regexp.MustCompile(`<meta\s+property="og:description"\s+content="([^"]*)"`)
	ogImagePattern = regexp.MustCompile(`<meta\s+property="og:image"\s+content="([^"]*)"`)
	ogURLPattern   = regexp.MustCompile(`<meta\s+property="og:url"\s+content="([^"]*)"`)
)

// Fetch scrapes the page and returns what it could extract. The
// og-tags describe the page itself, so one post comes back per fetch.
func (s *Scraper) Fetch(ctx context.Context) ([]Post, error) {
	if s.pageURL == "" {
		return nil, fmt.Errorf("no social page configured")
	}

	deadline, ok := ctx.Deadline()
	timeout := 15 * time.Second
	if ok {
		timeout = time.Until(deadline)
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(s.pageURL)
	req.Header.SetMethod(fasthttp.MethodGet)
	req.Header.SetUserAgent("civicms-feed/1.0")

	if err := s.client.DoTimeout(req, resp, timeout); err != nil {
		return nil, fmt.Errorf("fetch social page: %w", err)
	}
	if resp.StatusCode() != fasthttp.StatusOK {
		return nil, fmt.Errorf("social page returned status %d", resp.StatusCode())
	}

	body := string(resp.Body())

	post := Post{PostedAt: time.Now()}
	if m := ogTitlePattern.FindStringSubmatch(body); m != nil {
		post.Message = html.UnescapeString(m[1])
	}
	if m := ogDescPattern.FindStringSubmatch(body); m != nil && m[1] != "" {
		if post.Message != "" {
			post.Message += ": "
		}
		post.Message += html.UnescapeString(m[1])
	}
	if m := ogImagePattern.FindStringSubmatch(body); m != nil {
		post.Image = m[1]
	}
	if m := ogURLPattern.FindStringSubmatch(body); m != nil {
		post.Permalink = m[1]
	} else {
		post.Permalink = s.pageURL
	}

	if post.Message == "" {
		return nil, fmt.Errorf("no og-tags found on social page")
	}

	post.ID = "scraped-" + utils.MD5(post.Permalink+post.Message)[:12]

	return []Post{post}, nil
}
