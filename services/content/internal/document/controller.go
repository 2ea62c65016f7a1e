package document

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/civicms/pkg/config"
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

// Controller serves document metadata, uploads and downloads. BAC
// procurement documents are only visible to BAC and admin callers.
type Controller struct {
	repo    Repository
	storage *config.StorageConfig
	sc      *lifecycle.ServiceContext
}

// NewController creates a document controller. sc may be nil in
// tests.
func NewController(repo Repository, storage *config.StorageConfig, sc *lifecycle.ServiceContext) *Controller {
	return &Controller{repo: repo, storage: storage, sc: sc}
}

// RegisterRoutes mounts the document routes. The public list hides
// BAC documents; the admin surface requires moderator or better, and
// the bac flag itself requires BAC or admin. Downloads take an
// optional token so BAC members can fetch procurement files.
func (c *Controller) RegisterRoutes(r fiber.Router, jwtMiddleware, optionalJWT fiber.Handler) {
	docs := r.Group("/documents")
	docs.Get("", c.PublicList)
	docs.Get("/:id/download", optionalJWT, c.Download)

	admin := r.Group("/admin/documents", jwtMiddleware, middleware.RequireRoles(auth.RoleAdmin, auth.RoleModerator, auth.RoleBAC))
	admin.Get("", c.List)
	admin.Post("", c.Upload)
	admin.Put("/:id", c.Update)
	admin.Delete("/:id", c.Delete)

	// BAC listing needs a token but not the admin surface
	r.Get("/documents/bac", jwtMiddleware, middleware.RequireRoles(auth.RoleBAC), c.BACList)
}

// PublicList lists published non-BAC documents.
func (c *Controller) PublicList(ctx *fiber.Ctx) error {
	params, err := dal.BindQuery(ctx)
	if err != nil {
		return response.ValidateError(ctx, err.Error())
	}

	page := dal.NewPagination(params.Page, params.PerPage)

	qb := dal.NewQueryBuilder[model.Document](c.repo.DB()).
		Where("published = ?", true).
		Where("bac = ?", false).
		Order("id DESC")

	result, err := qb.Paged(ctx.UserContext(), page)
	if err != nil {
		return response.ServerError(ctx, err.Error())
	}

	return response.SuccessPage(ctx, result.Items, result.Total, result.Page, result.PageSize)
}

// BACList lists the procurement documents for BAC members.
func (c *Controller) BACList(ctx *fiber.Ctx) error {
	params, err := dal.BindQuery(ctx)
	if err != nil {
		return response.ValidateError(ctx, err.Error())
	}

	page := dal.NewPagination(params.Page, params.PerPage)

	qb := dal.NewQueryBuilder[model.Document](c.repo.DB()).
		Where("bac = ?", true).
		Order("id DESC")

	result, err := qb.Paged(ctx.UserContext(), page)
	if err != nil {
		return response.ServerError(ctx, err.Error())
	}

	return response.SuccessPage(ctx, result.Items, result.Total, result.Page, result.PageSize)
}

// List lists every document the caller may manage.
func (c *Controller) List(ctx *fiber.Ctx) error {
	params, err := dal.BindQuery(ctx)
	if err != nil {
		return response.ValidateError(ctx, err.Error())
	}

	page := dal.NewPagination(params.Page, params.PerPage)

	qb := dal.NewQueryBuilder[model.Document](c.repo.DB()).
		Order("id DESC")

	if !c.canSeeBAC(ctx) {
		qb.Where("bac = ?", false)
	}

	result, err := qb.Paged(ctx.UserContext(), page)
	if err != nil {
		return response.ServerError(ctx, err.Error())
	}

	return response.SuccessPage(ctx, result.Items, result.Total, result.Page, result.PageSize)
}

// Upload stores the file under a uuid name and records its metadata.
func (c *Controller) Upload(ctx *fiber.Ctx) error {
	file, err := ctx.FormFile("file")
	if err != nil {
		return response.BadRequest(ctx, "missing file field")
	}

	if c.storage.MaxUploadSize > 0 && file.Size > c.storage.MaxUploadSize {
		return response.BadRequest(ctx, "file exceeds the upload size limit")
	}

	bac := ctx.FormValue("bac") == "true"
	if bac && !c.canSeeBAC(ctx) {
		return response.Forbidden(ctx, "only BAC members may upload procurement documents")
	}

	storedName := utils.UUIDWithoutDash() + strings.ToLower(filepath.Ext(file.Filename))

	if err := os.MkdirAll(c.storage.UploadDir, 0o755); err != nil {
		return response.ServerError(ctx, err.Error())
	}
	if err := ctx.SaveFile(file, filepath.Join(c.storage.UploadDir, storedName)); err != nil {
		return response.ServerError(ctx, err.Error())
	}

	doc := &model.Document{
		Title:       ctx.FormValue("title", file.Filename),
		Description: ctx.FormValue("description"),
		FileName:    file.Filename,
		StoredName:  storedName,
		ContentType: file.Header.Get("Content-Type"),
		Size:        file.Size,
		BAC:         bac,
		Published:   ctx.FormValue("published", "true") != "false",
	}
	doc.CreatedBy = middleware.GetUserID(ctx)
	doc.UpdatedBy = doc.CreatedBy

	if err := c.repo.Create(ctx.UserContext(), doc); err != nil {
		// remove the orphaned file, the metadata write failed
		_ = os.Remove(filepath.Join(c.storage.UploadDir, storedName))
		return response.ServerError(ctx, err.Error())
	}

	c.invalidate(ctx.UserContext())
	return response.Success(ctx, doc)
}

// Update edits document metadata; the bac flag needs BAC or admin.
func (c *Controller) Update(ctx *fiber.Ctx) error {
	id, err := dal.GetIDParam(ctx)
	if err != nil {
		return response.BadRequest(ctx, "invalid document id")
	}

	var req struct {
		Title       string `json:"title"`
		Description string `json:"description"`
		BAC         *bool  `json:"bac"`
		Published   *bool  `json:"published"`
	}
	if err := ctx.BodyParser(&req); err != nil {
		return response.ValidateError(ctx, err.Error())
	}

	doc, err := c.repo.FindByID(ctx.UserContext(), id)
	if err != nil {
		return response.ServerError(ctx, err.Error())
	}
	if doc == nil {
		return response.NotFound(ctx, "document not found")
	}
	if doc.BAC && !c.canSeeBAC(ctx) {
		return response.Forbidden(ctx, "")
	}

	if req.Title != "" {
		doc.Title = req.Title
	}
	if req.Description != "" {
		doc.Description = req.Description
	}
	if req.BAC != nil {
		if !c.canSeeBAC(ctx) {
			return response.Forbidden(ctx, "only BAC members may change the bac flag")
		}
		doc.BAC = *req.BAC
	}
	if req.Published != nil {
		doc.Published = *req.Published
	}
	doc.UpdatedBy = middleware.GetUserID(ctx)

	if err := c.repo.Update(ctx.UserContext(), doc); err != nil {
		return response.ServerError(ctx, err.Error())
	}

	c.invalidate(ctx.UserContext())
	return response.Success(ctx, doc)
}

// Delete removes the metadata and the stored file.
func (c *Controller) Delete(ctx *fiber.Ctx) error {
	id, err := dal.GetIDParam(ctx)
	if err != nil {
		return response.BadRequest(ctx, "invalid document id")
	}

	doc, err := c.repo.FindByID(ctx.UserContext(), id)
	if err != nil {
		return response.ServerError(ctx, err.Error())
	}
	if doc == nil {
		return response.NotFound(ctx, "document not found")
	}
	if doc.BAC && !c.canSeeBAC(ctx) {
		return response.Forbidden(ctx, "")
	}

	if err := c.repo.Delete(ctx.UserContext(), id); err != nil {
		return response.ServerError(ctx, err.Error())
	}

	if err := os.Remove(filepath.Join(c.storage.UploadDir, doc.StoredName)); err != nil && !os.IsNotExist(err) {
		logger.Warn("failed to remove stored file",
			zap.String("file", doc.StoredName),
			zap.Error(err),
		)
	}

	c.invalidate(ctx.UserContext())
	return response.Success(ctx, nil)
}

// Download streams a document. BAC documents require a BAC or admin
// token.
func (c *Controller) Download(ctx *fiber.Ctx) error {
	id, err := dal.GetIDParam(ctx)
	if err != nil {
		return response.BadRequest(ctx, "invalid document id")
	}

	doc, err := c.repo.FindByID(ctx.UserContext(), id)
	if err != nil {
		return response.ServerError(ctx, err.Error())
	}
	if doc == nil || !doc.Published {
		return response.NotFound(ctx, "document not found")
	}

	if doc.BAC && !c.canSeeBAC(ctx) {
		return response.Forbidden(ctx, "")
	}

	path := filepath.Join(c.storage.UploadDir, doc.StoredName)
	if _, err := os.Stat(path); err != nil {
		return response.NotFound(ctx, "file missing from storage")
	}

	ctx.Set("Content-Disposition", `attachment; filename="`+doc.FileName+`"`)
	if doc.ContentType != "" {
		ctx.Set("Content-Type", doc.ContentType)
	}
	return ctx.SendFile(path)
}

// canSeeBAC allows BAC members and admins through; the public and
// plain moderators are excluded.
func (c *Controller) canSeeBAC(ctx *fiber.Ctx) bool {
	return middleware.HasRole(ctx, auth.RoleBAC) ||
		middleware.HasRole(ctx, auth.RoleAdmin) ||
		middleware.HasRole(ctx, auth.RoleSuperAdmin)
}

func (c *Controller) invalidate(ctx context.Context) {
	if c.sc == nil {
		return
	}
	if err := c.sc.BroadcastDelete(lifecycle.ModuleContent, "documents"); err != nil {
		logger.Warn("failed to broadcast document invalidation", zap.Error(err))
	}
}
