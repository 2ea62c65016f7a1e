package event

import (
	"context"
	"time"

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

// Controller serves the public event calendar and the admin CRUD.
type Controller struct {
	repo Repository
	crud *dal.BaseController[model.Event]
	sc   *lifecycle.ServiceContext
}

// NewController creates an event controller. sc may be nil in tests.
func NewController(repo Repository, sc *lifecycle.ServiceContext) *Controller {
	c := &Controller{repo: repo, sc: sc}

	c.crud = dal.NewBaseController(dal.BaseControllerConfig[model.Event]{
		Collection: dal.NewCollection[model.Event](repo.DB()).
			WithAllowedFields([]string{"published", "venue", "title"}).
			WithDefaultSort("-starts_at"),
		Repository:     repo,
		ResourceName:   "event",
		EnableList:     true,
		EnableGet:      true,
		EnableCreate:   true,
		EnableUpdate:   true,
		EnableDelete:   true,
		EnableBatchDel: true,
		OnMutate:       c.invalidate,
	})

	return c
}

// RegisterRoutes mounts the event routes.
func (c *Controller) RegisterRoutes(r fiber.Router, jwtMiddleware fiber.Handler) {
	events := r.Group("/events")
	events.Get("/upcoming", c.Upcoming)

	admin := r.Group("/admin/events", jwtMiddleware, middleware.RequireRoles(auth.RoleAdmin, auth.RoleModerator))
	c.crud.RegisterCRUDRoutes(admin)
}

// Upcoming lists the next published events.
func (c *Controller) Upcoming(ctx *fiber.Ctx) error {
	limit := ctx.QueryInt("limit", 20)

	events, err := c.repo.Upcoming(ctx.UserContext(), time.Now(), limit)
	if err != nil {
		return response.ServerError(ctx, err.Error())
	}

	return response.Success(ctx, events)
}

func (c *Controller) invalidate(ctx context.Context) {
	if c.sc == nil {
		return
	}
	if err := c.sc.BroadcastDelete(lifecycle.ModuleContent, "events"); err != nil {
		logger.Warn("failed to broadcast event invalidation", zap.Error(err))
	}
}
