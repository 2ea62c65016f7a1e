package setting

import (
	"context"

	"github.com/civicms/pkg/cache"
	"github.com/civicms/pkg/auth"
	"github.com/civicms/pkg/dal"
	"github.com/civicms/pkg/lifecycle"
	"github.com/civicms/pkg/logger"
	"github.com/civicms/pkg/middleware"
	"github.com/civicms/pkg/response"
	"github.com/civicms/services/content/internal/model"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Controller serves the site settings. The public map is held in an
// in-process hash cache and refilled on demand.
type Controller struct {
	repo   Repository
	public *cache.HashCache
	sc     *lifecycle.ServiceContext
}

// NewController creates a settings controller. sc may be nil in
// tests.
func NewController(repo Repository, sc *lifecycle.ServiceContext) *Controller {
	return &Controller{
		repo:   repo,
		public: cache.NewHashCache(cache.Global(), "settings:public"),
		sc:     sc,
	}
}

// BindBroadcasts drops the cached map when another node changes a
// setting.
func (c *Controller) BindBroadcasts(cb *lifecycle.CacheBroadcaster) {
	cb.Subscribe(lifecycle.ModuleContent, func(msg *lifecycle.CacheMessage) {
		if msg.Key != lifecycle.KeySettings {
			return
		}
		c.public.Clear()
	})
}

// RegisterRoutes mounts the settings routes; writes are admin-only.
func (c *Controller) RegisterRoutes(r fiber.Router, jwtMiddleware fiber.Handler) {
	r.Get("/settings", c.PublicMap)

	admin := r.Group("/admin/settings", jwtMiddleware, middleware.RequireRoles(auth.RoleAdmin))
	admin.Get("", c.List)
	admin.Put("/:key", c.Put)
	admin.Delete("/:id", c.Delete)
}

// PublicMap returns the public settings as a flat map.
func (c *Controller) PublicMap(ctx *fiber.Ctx) error {
	if cached := c.public.HGetAll(); len(cached) > 0 {
		return response.Success(ctx, cached)
	}

	settings, err := c.repo.PublicMap(ctx.UserContext())
	if err != nil {
		return response.ServerError(ctx, err.Error())
	}

	values := make(map[string]any, len(settings))
	for k, v := range settings {
		values[k] = v
	}
	c.public.HSetAll(values)

	return response.Success(ctx, values)
}

// List lists every setting row for the admin panel.
func (c *Controller) List(ctx *fiber.Ctx) error {
	params, err := dal.BindQuery(ctx)
	if err != nil {
		return response.ValidateError(ctx, err.Error())
	}

	collection := dal.NewCollection[model.Setting](c.repo.DB()).
		WithAllowedFields([]string{"key", "public"}).
		WithDefaultSort("+key")

	result, err := collection.GetList(ctx.UserContext(), params)
	if err != nil {
		return response.ServerError(ctx, err.Error())
	}

	return response.Success(ctx, result)
}

// Put upserts one setting value.
func (c *Controller) Put(ctx *fiber.Ctx) error {
	key := ctx.Params("key")
	if key == "" {
		return response.BadRequest(ctx, "missing setting key")
	}

	var req struct {
		Value  string `json:"value"`
		Label  string `json:"label"`
		Public *bool  `json:"public"`
	}
	if err := ctx.BodyParser(&req); err != nil {
		return response.ValidateError(ctx, err.Error())
	}

	s, err := c.repo.Upsert(ctx.UserContext(), key, req.Value)
	if err != nil {
		return response.ServerError(ctx, err.Error())
	}

	changed := false
	if req.Label != "" && req.Label != s.Label {
		s.Label = req.Label
		changed = true
	}
	if req.Public != nil && *req.Public != s.Public {
		s.Public = *req.Public
		changed = true
	}
	if changed {
		if err := c.repo.Update(ctx.UserContext(), s); err != nil {
			return response.ServerError(ctx, err.Error())
		}
	}

	c.invalidate(ctx.UserContext())
	return response.Success(ctx, s)
}

// Delete removes a setting row.
func (c *Controller) Delete(ctx *fiber.Ctx) error {
	id, err := dal.GetIDParam(ctx)
	if err != nil {
		return response.BadRequest(ctx, "invalid setting id")
	}

	if err := c.repo.Delete(ctx.UserContext(), id); err != nil {
		return response.ServerError(ctx, err.Error())
	}

	c.invalidate(ctx.UserContext())
	return response.Success(ctx, nil)
}

func (c *Controller) invalidate(ctx context.Context) {
	c.public.Clear()

	if c.sc == nil {
		return
	}
	if err := c.sc.BroadcastDelete(lifecycle.ModuleContent, lifecycle.KeySettings); err != nil {
		logger.Warn("failed to broadcast settings invalidation", zap.Error(err))
	}
}
