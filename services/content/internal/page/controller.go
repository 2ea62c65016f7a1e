package page

import (
	"context"

	"github.com/civicms/pkg/auth"
	"github.com/civicms/pkg/dal"
	"github.com/civicms/pkg/lifecycle"
	"github.com/civicms/pkg/logger"
	"github.com/civicms/pkg/middleware"
	"github.com/civicms/pkg/response"
	"github.com/civicms/pkg/utils"
	"github.com/civicms/services/content/internal/model"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// SaveRequest creates or updates a page.
type SaveRequest struct {
	Title     string `json:"title"`
	Slug      string `json:"slug"`
	Body      string `json:"body"`
	Published *bool  `json:"published"`
}

// Controller serves slug-addressed static pages.
type Controller struct {
	repo Repository
	sc   *lifecycle.ServiceContext
}

// NewController creates a page controller. sc may be nil in tests.
func NewController(repo Repository, sc *lifecycle.ServiceContext) *Controller {
	return &Controller{repo: repo, sc: sc}
}

// RegisterRoutes mounts the page routes.
func (c *Controller) RegisterRoutes(r fiber.Router, jwtMiddleware fiber.Handler) {
	pages := r.Group("/pages")
	pages.Get("/:slug", c.PublicGet)

	admin := r.Group("/admin/pages", jwtMiddleware, middleware.RequireRoles(auth.RoleAdmin, auth.RoleModerator))
	admin.Get("", c.List)
	admin.Post("", c.Create)
	admin.Put("/:id", c.Update)
	admin.Delete("/:id", c.Delete)
}

// PublicGet returns one published page by slug.
func (c *Controller) PublicGet(ctx *fiber.Ctx) error {
	page, err := c.repo.FindBySlug(ctx.UserContext(), ctx.Params("slug"))
	if err != nil {
		return response.ServerError(ctx, err.Error())
	}
	if page == nil || !page.Published {
		return response.NotFound(ctx, "page not found")
	}
	return response.Success(ctx, page)
}

// List lists every page for the admin panel.
func (c *Controller) List(ctx *fiber.Ctx) error {
	params, err := dal.BindQuery(ctx)
	if err != nil {
		return response.ValidateError(ctx, err.Error())
	}

	collection := dal.NewCollection[model.Page](c.repo.DB()).
		WithAllowedFields([]string{"slug", "published", "title"}).
		WithDefaultSort("+slug")

	result, err := collection.GetList(ctx.UserContext(), params)
	if err != nil {
		return response.ServerError(ctx, err.Error())
	}

	return response.Success(ctx, result)
}

// Create creates a page, generating the slug from the title when
// absent.
func (c *Controller) Create(ctx *fiber.Ctx) error {
	var req SaveRequest
	if err := ctx.BodyParser(&req); err != nil {
		return response.ValidateError(ctx, err.Error())
	}
	if req.Title == "" {
		return response.BadRequest(ctx, "title is required")
	}

	slug := req.Slug
	if slug == "" {
		slug = utils.Slugify(req.Title)
	}

	taken, err := c.repo.SlugTaken(ctx.UserContext(), slug, 0)
	if err != nil {
		return response.ServerError(ctx, err.Error())
	}
	if taken {
		return response.Error(ctx, 409, "slug already in use")
	}

	page := &model.Page{
		Title:     req.Title,
		Slug:      slug,
		Body:      req.Body,
		Published: req.Published == nil || *req.Published,
	}
	page.CreatedBy = middleware.GetUserID(ctx)
	page.UpdatedBy = page.CreatedBy

	if err := c.repo.Create(ctx.UserContext(), page); err != nil {
		return response.ServerError(ctx, err.Error())
	}

	c.invalidate(ctx.UserContext())
	return response.Success(ctx, page)
}

// Update edits a page.
func (c *Controller) Update(ctx *fiber.Ctx) error {
	id, err := dal.GetIDParam(ctx)
	if err != nil {
		return response.BadRequest(ctx, "invalid page id")
	}

	var req SaveRequest
	if err := ctx.BodyParser(&req); err != nil {
		return response.ValidateError(ctx, err.Error())
	}

	page, err := c.repo.FindByID(ctx.UserContext(), id)
	if err != nil {
		return response.ServerError(ctx, err.Error())
	}
	if page == nil {
		return response.NotFound(ctx, "page not found")
	}

	if req.Title != "" {
		page.Title = req.Title
	}
	if req.Slug != "" && req.Slug != page.Slug {
		taken, err := c.repo.SlugTaken(ctx.UserContext(), req.Slug, id)
		if err != nil {
			return response.ServerError(ctx, err.Error())
		}
		if taken {
			return response.Error(ctx, 409, "slug already in use")
		}
		page.Slug = req.Slug
	}
	if req.Body != "" {
		page.Body = req.Body
	}
	if req.Published != nil {
		page.Published = *req.Published
	}
	page.UpdatedBy = middleware.GetUserID(ctx)

	if err := c.repo.Update(ctx.UserContext(), page); err != nil {
		return response.ServerError(ctx, err.Error())
	}

	c.invalidate(ctx.UserContext())
	return response.Success(ctx, page)
}

// Delete soft-deletes a page.
func (c *Controller) Delete(ctx *fiber.Ctx) error {
	id, err := dal.GetIDParam(ctx)
	if err != nil {
		return response.BadRequest(ctx, "invalid page id")
	}

	if err := c.repo.Delete(ctx.UserContext(), id); err != nil {
		return response.ServerError(ctx, err.Error())
	}

	c.invalidate(ctx.UserContext())
	return response.Success(ctx, nil)
}

func (c *Controller) invalidate(ctx context.Context) {
	if c.sc == nil {
		return
	}
	if err := c.sc.BroadcastDelete(lifecycle.ModuleContent, "pages"); err != nil {
		logger.Warn("failed to broadcast page invalidation", zap.Error(err))
	}
}
