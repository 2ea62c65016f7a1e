package social

import (
	"github.com/civicms/pkg/response"
	"github.com/gofiber/fiber/v2"
)

// Controller serves the public social feed widget.
type Controller struct {
	feed *Feed
}

// NewController creates a social feed controller.
func NewController(feed *Feed) *Controller {
	return &Controller{feed: feed}
}

// RegisterRoutes mounts the feed route.
func (c *Controller) RegisterRoutes(r fiber.Router) {
	r.Get("/social/feed", c.GetFeed)
}

// GetFeed returns the cached posts; never errors, never empty.
func (c *Controller) GetFeed(ctx *fiber.Ctx) error {
	return response.Success(ctx, c.feed.Posts())
}
