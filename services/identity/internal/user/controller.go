package user

import (
	"context"

	"github.com/civicms/pkg/auth"
	"github.com/civicms/pkg/dal"
	"github.com/civicms/pkg/errors"
	"github.com/civicms/pkg/middleware"
	"github.com/civicms/pkg/response"
	"github.com/civicms/services/identity/internal/model"
	"github.com/civicms/services/identity/internal/session"
	"github.com/gofiber/fiber/v2"
)

// Controller serves user admin CRUD, role assignment and the personal
// profile endpoints.
type Controller struct {
	repo   Repository
	casbin *auth.CasbinService
}

// NewController creates a user controller. casbinSvc may be nil in
// tests.
func NewController(repo Repository, casbinSvc *auth.CasbinService) *Controller {
	return &Controller{repo: repo, casbin: casbinSvc}
}

// Repo exposes the repository for sibling packages.
func (c *Controller) Repo() Repository {
	return c.repo
}

// RegisterRoutes mounts the user routes. Admin routes sit behind the
// jwt middleware plus the admin role guard.
func (c *Controller) RegisterRoutes(r fiber.Router, jwtMiddleware fiber.Handler) {
	users := r.Group("/users", jwtMiddleware, middleware.RequireRoles(auth.RoleAdmin))
	users.Get("", c.List)
	users.Get("/:id", c.Get)
	users.Post("", c.Create)
	users.Put("/:id", c.Update)
	users.Delete("/:id", c.Delete)
	users.Put("/:id/roles", c.SetRoles)
	users.Put("/:id/password/reset", c.ResetPassword)

	profile := r.Group("/profile", jwtMiddleware)
	profile.Get("", c.GetProfile)
	profile.Put("", c.UpdateProfile)
	profile.Put("/password", c.ChangePassword)
}

// List lists users with filter/sort/page parameters.
func (c *Controller) List(ctx *fiber.Ctx) error {
	params, err := dal.BindQuery(ctx)
	if err != nil {
		return response.ValidateError(ctx, err.Error())
	}

	collection := dal.NewCollection[model.User](c.repo.DB()).
		WithAllowedFields([]string{"username", "email", "status"}).
		WithDefaultSort("-id")

	result, err := collection.GetList(ctx.UserContext(), params)
	if err != nil {
		return response.ServerError(ctx, err.Error())
	}

	return response.Success(ctx, result)
}

// Get returns one user with their role assignments.
func (c *Controller) Get(ctx *fiber.Ctx) error {
	id, err := dal.GetIDParam(ctx)
	if err != nil {
		return response.BadRequest(ctx, "invalid user id")
	}

	u, err := c.repo.FindByID(ctx.UserContext(), id, dal.WithPreload("Assignments"))
	if err != nil {
		return response.ServerError(ctx, err.Error())
	}
	if u == nil {
		return response.NotFound(ctx, "user not found")
	}

	return response.Success(ctx, u)
}

// Create creates a user with optional initial roles.
func (c *Controller) Create(ctx *fiber.Ctx) error {
	var req CreateRequest
	if err := ctx.BodyParser(&req); err != nil {
		return response.ValidateError(ctx, err.Error())
	}

	u, err := c.create(ctx.UserContext(), &req)
	if err != nil {
		return response.Error(ctx, errors.GetCode(err), errors.GetMessage(err))
	}

	return response.Success(ctx, u)
}

func (c *Controller) create(ctx context.Context, req *CreateRequest) (*model.User, error) {
	if req.Username == "" || req.Email == "" || req.Password == "" {
		return nil, errors.BadRequest("username, email and password are required")
	}

	existing, err := c.repo.FindByUsername(ctx, req.Username)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, errors.Duplicate("username")
	}

	existing, err = c.repo.FindByEmail(ctx, req.Email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, errors.Duplicate("email")
	}

	hashed, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, errors.Wrap(err, 500, "failed to hash password")
	}

	u := &model.User{
		Username:    req.Username,
		Email:       req.Email,
		Password:    hashed,
		DisplayName: req.DisplayName,
		Avatar:      req.Avatar,
		Status:      req.Status,
	}
	if u.Status == 0 {
		u.Status = 1
	}

	if err := c.repo.Create(ctx, u); err != nil {
		return nil, err
	}

	if len(req.Roles) > 0 {
		if err := c.assignRoles(ctx, u.ID, req.Roles); err != nil {
			return nil, err
		}
	}

	return u, nil
}

// Update updates a user's mutable fields.
func (c *Controller) Update(ctx *fiber.Ctx) error {
	id, err := dal.GetIDParam(ctx)
	if err != nil {
		return response.BadRequest(ctx, "invalid user id")
	}

	var req UpdateRequest
	if err := ctx.BodyParser(&req); err != nil {
		return response.ValidateError(ctx, err.Error())
	}

	u, err := c.update(ctx.UserContext(), id, &req)
	if err != nil {
		return response.Error(ctx, errors.GetCode(err), errors.GetMessage(err))
	}

	return response.Success(ctx, u)
}

func (c *Controller) update(ctx context.Context, id int64, req *UpdateRequest) (*model.User, error) {
	u, err := c.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, errors.NotFound("user")
	}

	if req.Email != "" {
		u.Email = req.Email
	}
	if req.DisplayName != "" {
		u.DisplayName = req.DisplayName
	}
	if req.Avatar != "" {
		u.Avatar = req.Avatar
	}
	if req.Status > 0 {
		u.Status = req.Status
	}

	if err := c.repo.Update(ctx, u); err != nil {
		return nil, err
	}

	return u, nil
}

// Delete soft-deletes a user.
func (c *Controller) Delete(ctx *fiber.Ctx) error {
	id, err := dal.GetIDParam(ctx)
	if err != nil {
		return response.BadRequest(ctx, "invalid user id")
	}

	if id == middleware.GetUserID(ctx) {
		return response.BadRequest(ctx, "cannot delete your own account")
	}

	if err := c.repo.Delete(ctx.UserContext(), id); err != nil {
		return response.ServerError(ctx, err.Error())
	}

	return response.Success(ctx, nil)
}

// SetRoles replaces a user's role assignments.
func (c *Controller) SetRoles(ctx *fiber.Ctx) error {
	id, err := dal.GetIDParam(ctx)
	if err != nil {
		return response.BadRequest(ctx, "invalid user id")
	}

	var req SetRolesRequest
	if err := ctx.BodyParser(&req); err != nil {
		return response.ValidateError(ctx, err.Error())
	}

	for _, code := range req.Roles {
		if _, ok := session.ParseRole(code); !ok {
			return response.BadRequest(ctx, "unknown role: "+code)
		}
	}

	u, err := c.repo.FindByID(ctx.UserContext(), id)
	if err != nil {
		return response.ServerError(ctx, err.Error())
	}
	if u == nil {
		return response.NotFound(ctx, "user not found")
	}

	if err := c.assignRoles(ctx.UserContext(), id, req.Roles); err != nil {
		return response.ServerError(ctx, err.Error())
	}

	return response.Success(ctx, fiber.Map{"userId": id, "roles": req.Roles})
}

// assignRoles writes the assignment rows and mirrors them into the
// casbin grouping policy.
func (c *Controller) assignRoles(ctx context.Context, userID int64, roles []string) error {
	if err := c.repo.ReplaceRoles(ctx, userID, roles); err != nil {
		return err
	}

	if c.casbin != nil {
		if err := c.casbin.SetUserRoles(userID, roles); err != nil {
			return err
		}
	}

	return nil
}

// GetProfile returns the caller's own record.
func (c *Controller) GetProfile(ctx *fiber.Ctx) error {
	userID := middleware.GetUserID(ctx)
	if userID == 0 {
		return response.Unauthorized(ctx, "")
	}

	u, err := c.repo.FindByID(ctx.UserContext(), userID, dal.WithPreload("Assignments"))
	if err != nil {
		return response.ServerError(ctx, err.Error())
	}
	if u == nil {
		return response.NotFound(ctx, "user not found")
	}

	return response.Success(ctx, u)
}

// UpdateProfile updates the caller's own record; status changes are
// not allowed here.
func (c *Controller) UpdateProfile(ctx *fiber.Ctx) error {
	userID := middleware.GetUserID(ctx)
	if userID == 0 {
		return response.Unauthorized(ctx, "")
	}

	var req UpdateRequest
	if err := ctx.BodyParser(&req); err != nil {
		return response.ValidateError(ctx, err.Error())
	}
	req.Status = 0

	u, err := c.update(ctx.UserContext(), userID, &req)
	if err != nil {
		return response.Error(ctx, errors.GetCode(err), errors.GetMessage(err))
	}

	return response.Success(ctx, u)
}

// ChangePassword changes the caller's own password.
func (c *Controller) ChangePassword(ctx *fiber.Ctx) error {
	userID := middleware.GetUserID(ctx)
	if userID == 0 {
		return response.Unauthorized(ctx, "")
	}

	var req ChangePasswordRequest
	if err := ctx.BodyParser(&req); err != nil {
		return response.ValidateError(ctx, err.Error())
	}

	if err := c.changePassword(ctx.UserContext(), userID, &req); err != nil {
		return response.Error(ctx, errors.GetCode(err), errors.GetMessage(err))
	}

	return response.Success(ctx, nil)
}

func (c *Controller) changePassword(ctx context.Context, userID int64, req *ChangePasswordRequest) error {
	u, err := c.repo.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	if u == nil {
		return errors.NotFound("user")
	}

	if !auth.CheckPassword(req.OldPassword, u.Password) {
		return errors.BadRequest("old password is incorrect")
	}

	hashed, err := auth.HashPassword(req.NewPassword)
	if err != nil {
		return errors.Wrap(err, 500, "failed to hash password")
	}

	return c.repo.UpdatePassword(ctx, userID, hashed)
}

// ResetPassword sets a user's password to an admin-chosen value.
func (c *Controller) ResetPassword(ctx *fiber.Ctx) error {
	id, err := dal.GetIDParam(ctx)
	if err != nil {
		return response.BadRequest(ctx, "invalid user id")
	}

	var req ResetPasswordRequest
	if err := ctx.BodyParser(&req); err != nil {
		return response.ValidateError(ctx, err.Error())
	}
	if len(req.NewPassword) < 8 {
		return response.BadRequest(ctx, "password must be at least 8 characters")
	}

	hashed, err := auth.HashPassword(req.NewPassword)
	if err != nil {
		return response.ServerError(ctx, err.Error())
	}

	if err := c.repo.UpdatePassword(ctx.UserContext(), id, hashed); err != nil {
		return response.ServerError(ctx, err.Error())
	}

	return response.Success(ctx, nil)
}
