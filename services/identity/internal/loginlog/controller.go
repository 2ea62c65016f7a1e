package loginlog

import (
	"github.com/civicms/pkg/auth"
	"github.com/civicms/pkg/dal"
	"github.com/civicms/pkg/middleware"
	"github.com/civicms/pkg/response"
	"github.com/civicms/services/identity/internal/model"
	"github.com/gofiber/fiber/v2"
)

// Controller serves the sign-in audit trail to admins.
type Controller struct {
	repo Repository
}

// NewController creates a login log controller.
func NewController(repo Repository) *Controller {
	return &Controller{repo: repo}
}

// RegisterRoutes mounts the login log routes.
func (c *Controller) RegisterRoutes(r fiber.Router, jwtMiddleware fiber.Handler) {
	logs := r.Group("/login-logs", jwtMiddleware, middleware.RequireRoles(auth.RoleAdmin))
	logs.Get("", c.List)
	logs.Delete("/purge", c.Purge)
}

// List lists login attempts, newest first.
func (c *Controller) List(ctx *fiber.Ctx) error {
	params, err := dal.BindQuery(ctx)
	if err != nil {
		return response.ValidateError(ctx, err.Error())
	}

	collection := dal.NewCollection[model.LoginLog](c.repo.DB()).
		WithAllowedFields([]string{"username", "user_id", "success", "ip"}).
		WithDefaultSort("-id")

	result, err := collection.GetList(ctx.UserContext(), params)
	if err != nil {
		return response.ServerError(ctx, err.Error())
	}

	return response.Success(ctx, result)
}

// Purge removes entries older than the days query parameter
// (default 90).
func (c *Controller) Purge(ctx *fiber.Ctx) error {
	days := ctx.QueryInt("days", 90)
	if days < 1 {
		return response.BadRequest(ctx, "days must be positive")
	}

	removed, err := c.repo.PurgeBefore(ctx.UserContext(), days)
	if err != nil {
		return response.ServerError(ctx, err.Error())
	}

	return response.Success(ctx, fiber.Map{"removed": removed})
}
