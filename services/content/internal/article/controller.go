package article

import (
	"context"
	"time"

	"github.com/civicms/pkg/auth"
	"github.com/civicms/pkg/dal"
	"github.com/civicms/pkg/errors"
	"github.com/civicms/pkg/lifecycle"
	"github.com/civicms/pkg/logger"
	"github.com/civicms/pkg/middleware"
	"github.com/civicms/pkg/response"
	"github.com/civicms/pkg/utils"
	"github.com/civicms/services/content/internal/model"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// CreateRequest creates an article.
type CreateRequest struct {
	Title      string `json:"title"`
	Slug       string `json:"slug"`
	Summary    string `json:"summary"`
	Body       string `json:"body"`
	CoverImage string `json:"coverImage"`
	CategoryID int64  `json:"categoryId"`
	Publish    bool   `json:"publish"`
}

// UpdateRequest updates an article.
type UpdateRequest struct {
	Title      string `json:"title"`
	Slug       string `json:"slug"`
	Summary    string `json:"summary"`
	Body       string `json:"body"`
	CoverImage string `json:"coverImage"`
	CategoryID int64  `json:"categoryId"`
}

// Controller serves the public news feed and the admin article CRUD.
type Controller struct {
	repo Repository
	sc   *lifecycle.ServiceContext
}

// NewController creates an article controller. sc may be nil in
// tests.
func NewController(repo Repository, sc *lifecycle.ServiceContext) *Controller {
	return &Controller{repo: repo, sc: sc}
}

// RegisterRoutes mounts the article routes. The write surface allows
// moderators; drafts are scoped to their author for non-admins.
func (c *Controller) RegisterRoutes(r fiber.Router, jwtMiddleware fiber.Handler) {
	articles := r.Group("/articles")
	articles.Get("", c.PublicList)
	articles.Get("/:slug", c.PublicGet)

	admin := r.Group("/admin/articles", jwtMiddleware, middleware.RequireRoles(auth.RoleAdmin, auth.RoleModerator))
	admin.Get("", c.List)
	admin.Get("/:id", c.Get)
	admin.Post("", c.Create)
	admin.Put("/:id", c.Update)
	admin.Delete("/:id", c.Delete)
	admin.Put("/:id/publish", c.Publish)
	admin.Put("/:id/unpublish", c.Unpublish)
}

// PublicList lists published articles, newest first, optionally
// filtered by category.
func (c *Controller) PublicList(ctx *fiber.Ctx) error {
	params, err := dal.BindQuery(ctx)
	if err != nil {
		return response.ValidateError(ctx, err.Error())
	}

	page := dal.NewPagination(params.Page, params.PerPage)

	qb := dal.NewQueryBuilder[model.Article](c.repo.DB()).
		Where("status = ?", model.StatusPublished).
		Where("published_at <= ?", time.Now()).
		Preload("Category").
		Order("published_at DESC")

	if categoryID := ctx.QueryInt("categoryId", 0); categoryID > 0 {
		qb.Where("category_id = ?", categoryID)
	}

	result, err := qb.Paged(ctx.UserContext(), page)
	if err != nil {
		return response.ServerError(ctx, err.Error())
	}

	return response.SuccessPage(ctx, result.Items, result.Total, result.Page, result.PageSize)
}

// PublicGet returns one published article by slug.
func (c *Controller) PublicGet(ctx *fiber.Ctx) error {
	article, err := c.repo.FindBySlug(ctx.UserContext(), ctx.Params("slug"))
	if err != nil {
		return response.ServerError(ctx, err.Error())
	}
	if article == nil || !article.Published() {
		return response.NotFound(ctx, "article not found")
	}

	return response.Success(ctx, article)
}

// List lists articles for the admin panel. Moderators see published
// articles plus their own drafts; admins see everything.
func (c *Controller) List(ctx *fiber.Ctx) error {
	params, err := dal.BindQuery(ctx)
	if err != nil {
		return response.ValidateError(ctx, err.Error())
	}

	page := dal.NewPagination(params.Page, params.PerPage)

	qb := dal.NewQueryBuilder[model.Article](c.repo.DB()).
		Preload("Category").
		Order("id DESC")

	scope := c.scopeFor(ctx)
	if clause, args := scope.ToSQL(); clause != "" {
		qb.Where("status = ? OR "+clause, append([]interface{}{model.StatusPublished}, args...)...)
	}

	if status := ctx.Query("status"); status != "" {
		qb.Where("status = ?", status)
	}

	result, err := qb.Paged(ctx.UserContext(), page)
	if err != nil {
		return response.ServerError(ctx, err.Error())
	}

	return response.SuccessPage(ctx, result.Items, result.Total, result.Page, result.PageSize)
}

// Get returns one article for editing.
func (c *Controller) Get(ctx *fiber.Ctx) error {
	id, err := dal.GetIDParam(ctx)
	if err != nil {
		return response.BadRequest(ctx, "invalid article id")
	}

	article, err := c.repo.FindByID(ctx.UserContext(), id, dal.WithPreload("Category"))
	if err != nil {
		return response.ServerError(ctx, err.Error())
	}
	if article == nil {
		return response.NotFound(ctx, "article not found")
	}

	if !c.canEdit(ctx, article) {
		return response.Forbidden(ctx, "")
	}

	return response.Success(ctx, article)
}

// Create creates an article, generating the slug from the title when
// absent.
func (c *Controller) Create(ctx *fiber.Ctx) error {
	var req CreateRequest
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

	article := &model.Article{
		Title:      req.Title,
		Slug:       slug,
		Summary:    req.Summary,
		Body:       req.Body,
		CoverImage: req.CoverImage,
		CategoryID: req.CategoryID,
		Status:     model.StatusDraft,
	}
	article.CreatedBy = middleware.GetUserID(ctx)
	article.UpdatedBy = article.CreatedBy

	if req.Publish {
		now := time.Now()
		article.Status = model.StatusPublished
		article.PublishedAt = &now
	}

	if err := c.repo.Create(ctx.UserContext(), article); err != nil {
		return response.Error(ctx, errors.GetCode(err), errors.GetMessage(err))
	}

	c.invalidate(ctx.UserContext())
	return response.Success(ctx, article)
}

// Update updates an article's editable fields.
func (c *Controller) Update(ctx *fiber.Ctx) error {
	id, err := dal.GetIDParam(ctx)
	if err != nil {
		return response.BadRequest(ctx, "invalid article id")
	}

	var req UpdateRequest
	if err := ctx.BodyParser(&req); err != nil {
		return response.ValidateError(ctx, err.Error())
	}

	article, err := c.repo.FindByID(ctx.UserContext(), id)
	if err != nil {
		return response.ServerError(ctx, err.Error())
	}
	if article == nil {
		return response.NotFound(ctx, "article not found")
	}
	if !c.canEdit(ctx, article) {
		return response.Forbidden(ctx, "")
	}

	if req.Title != "" {
		article.Title = req.Title
	}
	if req.Slug != "" && req.Slug != article.Slug {
		taken, err := c.repo.SlugTaken(ctx.UserContext(), req.Slug, id)
		if err != nil {
			return response.ServerError(ctx, err.Error())
		}
		if taken {
			return response.Error(ctx, 409, "slug already in use")
		}
		article.Slug = req.Slug
	}
	if req.Summary != "" {
		article.Summary = req.Summary
	}
	if req.Body != "" {
		article.Body = req.Body
	}
	if req.CoverImage != "" {
		article.CoverImage = req.CoverImage
	}
	if req.CategoryID > 0 {
		article.CategoryID = req.CategoryID
	}
	article.UpdatedBy = middleware.GetUserID(ctx)

	if err := c.repo.Update(ctx.UserContext(), article); err != nil {
		return response.ServerError(ctx, err.Error())
	}

	c.invalidate(ctx.UserContext())
	return response.Success(ctx, article)
}

// Delete soft-deletes an article.
func (c *Controller) Delete(ctx *fiber.Ctx) error {
	id, err := dal.GetIDParam(ctx)
	if err != nil {
		return response.BadRequest(ctx, "invalid article id")
	}

	article, err := c.repo.FindByID(ctx.UserContext(), id)
	if err != nil {
		return response.ServerError(ctx, err.Error())
	}
	if article == nil {
		return response.NotFound(ctx, "article not found")
	}
	if !c.canEdit(ctx, article) {
		return response.Forbidden(ctx, "")
	}

	if err := c.repo.Delete(ctx.UserContext(), id); err != nil {
		return response.ServerError(ctx, err.Error())
	}

	c.invalidate(ctx.UserContext())
	return response.Success(ctx, nil)
}

// Publish marks an article published as of now.
func (c *Controller) Publish(ctx *fiber.Ctx) error {
	return c.setPublished(ctx, true)
}

// Unpublish returns an article to draft.
func (c *Controller) Unpublish(ctx *fiber.Ctx) error {
	return c.setPublished(ctx, false)
}

func (c *Controller) setPublished(ctx *fiber.Ctx, published bool) error {
	id, err := dal.GetIDParam(ctx)
	if err != nil {
		return response.BadRequest(ctx, "invalid article id")
	}

	article, err := c.repo.FindByID(ctx.UserContext(), id)
	if err != nil {
		return response.ServerError(ctx, err.Error())
	}
	if article == nil {
		return response.NotFound(ctx, "article not found")
	}
	if !c.canEdit(ctx, article) {
		return response.Forbidden(ctx, "")
	}

	if published {
		err = c.repo.Publish(ctx.UserContext(), id, time.Now())
	} else {
		err = c.repo.Unpublish(ctx.UserContext(), id)
	}
	if err != nil {
		return response.ServerError(ctx, err.Error())
	}

	c.invalidate(ctx.UserContext())
	return response.Success(ctx, nil)
}

// scopeFor restricts draft visibility: admins see all rows,
// moderators only their own.
func (c *Controller) scopeFor(ctx *fiber.Ctx) *auth.DataScopeInfo {
	if middleware.HasRole(ctx, auth.RoleAdmin) || middleware.HasRole(ctx, auth.RoleSuperAdmin) {
		return auth.NewDataScopeInfo(auth.DataScopeAll, middleware.GetUserID(ctx))
	}
	return auth.NewDataScopeInfo(auth.DataScopeSelf, middleware.GetUserID(ctx))
}

func (c *Controller) canEdit(ctx *fiber.Ctx, article *model.Article) bool {
	if middleware.HasRole(ctx, auth.RoleAdmin) || middleware.HasRole(ctx, auth.RoleSuperAdmin) {
		return true
	}
	// moderators may touch published articles and their own drafts
	return article.Status == model.StatusPublished ||
		article.CreatedBy == middleware.GetUserID(ctx)
}

func (c *Controller) invalidate(ctx context.Context) {
	if c.sc == nil {
		return
	}
	if err := c.sc.BroadcastDelete(lifecycle.ModuleContent, "articles"); err != nil {
		logger.Warn("failed to broadcast article invalidation", zap.Error(err))
	}
}
