package category

import (
	"context"

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

// Controller serves the category dictionary.
type Controller struct {
	repo Repository
	crud *dal.BaseController[model.Category]
	sc   *lifecycle.ServiceContext
}

// NewController creates a category controller. sc may be nil in
// tests.
func NewController(repo Repository, sc *lifecycle.ServiceContext) *Controller {
	c := &Controller{repo: repo, sc: sc}

	c.crud = dal.NewBaseController(dal.BaseControllerConfig[model.Category]{
		Collection: dal.NewCollection[model.Category](repo.DB()).
			WithAllowedFields([]string{"slug", "active", "name"}).
			WithDefaultSort("+sort"),
		Repository:   repo,
		ResourceName: "category",
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

// RegisterRoutes mounts the category routes; writes are admin-only.
func (c *Controller) RegisterRoutes(r fiber.Router, jwtMiddleware fiber.Handler) {
	r.Get("/categories", c.PublicList)

	admin := r.Group("/admin/categories", jwtMiddleware, middleware.RequireRoles(auth.RoleAdmin))
	c.crud.RegisterCRUDRoutes(admin)
}

// PublicList lists the active categories.
func (c *Controller) PublicList(ctx *fiber.Ctx) error {
	categories, err := c.repo.Active(ctx.UserContext())
	if err != nil {
		return response.ServerError(ctx, err.Error())
	}
	return response.Success(ctx, categories)
}

func (c *Controller) invalidate(ctx context.Context) {
	if c.sc == nil {
		return
	}
	if err := c.sc.BroadcastDelete(lifecycle.ModuleContent, "categories"); err != nil {
		logger.Warn("failed to broadcast category invalidation", zap.Error(err))
	}
}
