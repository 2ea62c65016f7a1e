package nav

import (
	"context"
	"time"

	"github.com/civicms/pkg/cache"
	"github.com/civicms/pkg/auth"
	"github.com/civicms/pkg/dal"
	"github.com/civicms/pkg/lifecycle"
	"github.com/civicms/pkg/logger"
	"github.com/civicms/pkg/middleware"
	"github.com/civicms/pkg/response"
	"github.com/civicms/services/navigation/internal/model"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

const treeCacheTTL = 5 * time.Minute

// Controller serves the public menu trees and the admin entry CRUD.
type Controller struct {
	repo  Repository
	crud  *dal.BaseController[model.NavEntry]
	trees *cache.PrefixedCache
	sc    *lifecycle.ServiceContext
}

// NewController creates a nav controller. sc may be nil in tests; the
// cache broadcasts are skipped then.
func NewController(repo Repository, sc *lifecycle.ServiceContext) *Controller {
	c := &Controller{
		repo:  repo,
		trees: cache.NewPrefixedCache(cache.Global(), "nav:tree"),
		sc:    sc,
	}

	c.crud = dal.NewBaseController(dal.BaseControllerConfig[model.NavEntry]{
		Collection: dal.NewCollection[model.NavEntry](repo.DB()).
			WithAllowedFields([]string{"menu_group", "active", "label"}).
			WithDefaultSort("+sort"),
		Repository:   repo,
		ResourceName: "nav entry",
		EnableList:   true,
		EnableGet:    true,
		EnableCreate: true,
		EnableUpdate: true,
		EnableDelete: true,
		EnableGetAll: true,
		OnMutate:     c.invalidate,
	})

	return c
}

// BindBroadcasts clears the local tree cache when another node
// mutates entries.
func (c *Controller) BindBroadcasts(cb *lifecycle.CacheBroadcaster) {
	cb.Subscribe(lifecycle.ModuleNav, func(msg *lifecycle.CacheMessage) {
		if msg.Key != lifecycle.KeyNavTree {
			return
		}
		c.trees.Clear()
		logger.Debug("nav tree cache cleared by broadcast",
			zap.String("origin", msg.Origin),
		)
	})
}

// RegisterRoutes mounts the public and admin nav routes.
func (c *Controller) RegisterRoutes(r fiber.Router, jwtMiddleware fiber.Handler) {
	menus := r.Group("/menus")
	menus.Get("", c.ListGroups)
	menus.Get("/:group/tree", c.Tree)

	entries := r.Group("/entries", jwtMiddleware, middleware.RequireRoles(auth.RoleAdmin, auth.RoleModerator))
	c.crud.RegisterCRUDRoutes(entries)
}

// Tree returns the rendered menu of a group, cached until the next
// mutation broadcast.
func (c *Controller) Tree(ctx *fiber.Ctx) error {
	group := ctx.Params("group")
	if group == "" {
		return response.BadRequest(ctx, "missing menu group")
	}

	if raw, ok := c.trees.GetRaw(group); ok {
		if tree, ok := raw.([]*TreeNode); ok {
			return response.Success(ctx, tree)
		}
	}

	entries, err := c.repo.ActiveByGroup(ctx.UserContext(), group)
	if err != nil {
		return response.ServerError(ctx, err.Error())
	}

	tree := BuildTree(entries)
	c.trees.Set(group, tree, treeCacheTTL)

	return response.Success(ctx, tree)
}

// ListGroups lists the known menu groups.
func (c *Controller) ListGroups(ctx *fiber.Ctx) error {
	groups, err := c.repo.Groups(ctx.UserContext())
	if err != nil {
		return response.ServerError(ctx, err.Error())
	}
	return response.Success(ctx, groups)
}

// invalidate drops cached trees and tells sibling nodes to do the
// same.
func (c *Controller) invalidate(ctx context.Context) {
	c.trees.Clear()

	if c.sc != nil {
		if err := c.sc.BroadcastDelete(lifecycle.ModuleNav, lifecycle.KeyNavTree); err != nil {
			logger.Warn("failed to broadcast nav invalidation", zap.Error(err))
		}
	}
}
