package social

import (
	"context"
	"sync"
	"time"

	"github.com/civicms/pkg/cache"
	"github.com/civicms/pkg/lifecycle"
	"github.com/civicms/pkg/logger"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// fallbackPosts are served when the scraper has never succeeded, so
// the homepage widget is never empty.
var fallbackPosts = []Post{
	{
		ID:        "fallback-1",
		Message:   "Follow the official municipal page for announcements, advisories and events.",
		Permalink: "",
		PostedAt:  time.Time{},
	},
	{
		ID:        "fallback-2",
		Message:   "Office hours: Monday to Friday, 8:00 AM to 5:00 PM.",
		Permalink: "",
		PostedAt:  time.Time{},
	},
}

// Feed holds the latest scraped posts. Refreshes happen on a cron
// schedule; failures keep the previous posts, or the fallback when
// nothing was ever scraped.
type Feed struct {
	scraper *Scraper
	sc      *lifecycle.ServiceContext

	mu    sync.RWMutex
	posts []Post

	seen *cache.SetCache
}

// NewFeed creates a feed over the scraper. sc may be nil in tests.
func NewFeed(scraper *Scraper, sc *lifecycle.ServiceContext) *Feed {
	return &Feed{
		scraper: scraper,
		sc:      sc,
		seen:    cache.NewSetCache(cache.Global(), "social:seen"),
	}
}

// Posts returns the current feed, falling back to the static posts
// when empty.
func (f *Feed) Posts() []Post {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if len(f.posts) == 0 {
		return fallbackPosts
	}

	out := make([]Post, len(f.posts))
	copy(out, f.posts)
	return out
}

// Refresh scrapes once, merging unseen posts in front of the current
// list. Errors leave the feed untouched.
func (f *Feed) Refresh(ctx context.Context) {
	posts, err := f.scraper.Fetch(ctx)
	if err != nil {
		logger.Warn("social feed refresh failed, keeping current posts", zap.Error(err))
		return
	}

	fresh := make([]Post, 0, len(posts))
	for _, post := range posts {
		if f.seen.Has(post.ID) {
			continue
		}
		f.seen.Add(post.ID)
		fresh = append(fresh, post)
	}

	if len(fresh) == 0 {
		return
	}

	f.mu.Lock()
	f.posts = append(fresh, f.posts...)
	if len(f.posts) > 20 {
		f.posts = f.posts[:20]
	}
	f.mu.Unlock()

	logger.Info("social feed refreshed", zap.Int("newPosts", len(fresh)))

	if f.sc != nil {
		if err := f.sc.Broadcast(lifecycle.ModuleContent, lifecycle.KeySocialFeed, len(fresh)); err != nil {
			logger.Warn("failed to broadcast social feed update", zap.Error(err))
		}
	}
}

// Schedule registers the hourly refresh job and runs one immediate
// refresh in the background.
func (f *Feed) Schedule(c *cron.Cron) error {
	if _, err := c.AddFunc("@every 1h", func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		f.Refresh(ctx)
	}); err != nil {
		return err
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		f.Refresh(ctx)
	}()

	return nil
}
