package dal

import (
	"context"
	"strconv"
	"strings"

	"github.com/civicms/pkg/errors"
	"github.com/civicms/pkg/response"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// IDType constrains the supported route-parameter id types.
type IDType interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 |
		~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 |
		~string
}

// ParseID parses a single id of the requested type.
func ParseID[T IDType](s string) (T, error) {
	var zero T
	s = strings.TrimSpace(s)
	if s == "" {
		return zero, errors.New(400, "id must not be empty")
	}

	switch any(zero).(type) {
	case int:
		v, err := strconv.ParseInt(s, 10, 64)
		return any(int(v)).(T), err
	case int8:
		v, err := strconv.ParseInt(s, 10, 8)
		return any(int8(v)).(T), err
	case int16:
		v, err := strconv.ParseInt(s, 10, 16)
		return any(int16(v)).(T), err
	case int32:
		v, err := strconv.ParseInt(s, 10, 32)
		return any(int32(v)).(T), err
	case int64:
		v, err := strconv.ParseInt(s, 10, 64)
		return any(v).(T), err
	case uint:
		v, err := strconv.ParseUint(s, 10, 64)
		return any(uint(v)).(T), err
	case uint8:
		v, err := strconv.ParseUint(s, 10, 8)
		return any(uint8(v)).(T), err
	case uint16:
		v, err := strconv.ParseUint(s, 10, 16)
		return any(uint16(v)).(T), err
	case uint32:
		v, err := strconv.ParseUint(s, 10, 32)
		return any(uint32(v)).(T), err
	case uint64:
		v, err := strconv.ParseUint(s, 10, 64)
		return any(v).(T), err
	case string:
		return any(s).(T), nil
	default:
		return zero, errors.New(400, "unsupported id type")
	}
}

// ParseIDs parses a comma-separated id list.
func ParseIDs[T IDType](s string) ([]T, error) {
	parts := strings.Split(s, ",")
	ids := make([]T, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		id, err := ParseID[T](p)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return nil, errors.New(400, "no valid ids")
	}
	return ids, nil
}

// ParseInt64ID parses an int64 id.
func ParseInt64ID(s string) (int64, error) {
	return ParseID[int64](s)
}

// ParseInt64IDs parses an int64 id list.
func ParseInt64IDs(s string) ([]int64, error) {
	return ParseIDs[int64](s)
}

// BaseControllerConfig selects which CRUD routes a controller exposes.
type BaseControllerConfig[T any] struct {
	Collection      *Collection[T]
	Repository      Repository[T]
	ResourceName    string
	EnableList      bool
	EnableGet       bool
	EnableCreate    bool
	EnableUpdate    bool
	EnableDelete    bool
	EnableBatchDel  bool
	EnableGetAll    bool
	CreateValidator func(*fiber.Ctx, *T) error
	UpdateValidator func(*fiber.Ctx, int64, map[string]interface{}) error
	OnMutate        func(ctx context.Context) // called after successful writes
}

// BaseController provides the common CRUD handlers for one entity type.
type BaseController[T any] struct {
	collection   *Collection[T]
	repo         Repository[T]
	resourceName string
	config       BaseControllerConfig[T]
}

// NewBaseController creates a CRUD controller.
func NewBaseController[T any](cfg BaseControllerConfig[T]) *BaseController[T] {
	if cfg.ResourceName == "" {
		cfg.ResourceName = "resource"
	}
	return &BaseController[T]{
		collection:   cfg.Collection,
		repo:         cfg.Repository,
		resourceName: cfg.ResourceName,
		config:       cfg,
	}
}

// Collection returns the list query executor.
func (c *BaseController[T]) Collection() *Collection[T] {
	return c.collection
}

// Repository returns the repository.
func (c *BaseController[T]) Repository() Repository[T] {
	return c.repo
}

// DB returns the database handle.
func (c *BaseController[T]) DB() *gorm.DB {
	return c.repo.DB()
}

// RegisterCRUDRoutes mounts the enabled handlers on g.
func (c *BaseController[T]) RegisterCRUDRoutes(g fiber.Router) {
	if c.config.EnableList {
		g.Get("", c.list)
	}
	if c.config.EnableGetAll {
		g.Get("/all", c.getAll)
	}
	if c.config.EnableGet {
		g.Get("/:id", c.get)
	}
	if c.config.EnableCreate {
		g.Post("", c.create)
	}
	if c.config.EnableUpdate {
		g.Put("/:id", c.update)
	}
	if c.config.EnableDelete {
		g.Delete("/:id", c.delete)
	}
	if c.config.EnableBatchDel {
		g.Delete("/batch/:ids", c.batchDelete)
	}
}

func (c *BaseController[T]) mutated(ctx context.Context) {
	if c.config.OnMutate != nil {
		c.config.OnMutate(ctx)
	}
}

func (c *BaseController[T]) list(ctx *fiber.Ctx) error {
	params, err := BindQuery(ctx)
	if err != nil {
		return response.ValidateError(ctx, err.Error())
	}
	result, err := c.collection.GetList(ctx.UserContext(), params)
	if err != nil {
		return response.Error(ctx, 500, err.Error())
	}
	return response.SuccessPage(ctx, result.Items, result.TotalItems, result.Page, result.PerPage)
}

func (c *BaseController[T]) getAll(ctx *fiber.Ctx) error {
	params, err := BindQuery(ctx)
	if err != nil {
		return response.ValidateError(ctx, err.Error())
	}
	items, err := c.collection.GetFullList(ctx.UserContext(), params)
	if err != nil {
		return response.Error(ctx, 500, err.Error())
	}
	return response.Success(ctx, items)
}

func (c *BaseController[T]) get(ctx *fiber.Ctx) error {
	id, err := ParseInt64ID(ctx.Params("id"))
	if err != nil {
		return response.BadRequest(ctx, "invalid "+c.resourceName+" id")
	}
	params, _ := BindQuery(ctx)
	entity, err := c.collection.GetOne(ctx.UserContext(), id, params)
	if err != nil {
		return response.Error(ctx, 500, err.Error())
	}
	if entity == nil {
		return response.NotFound(ctx, c.resourceName+" not found")
	}
	return response.Success(ctx, entity)
}

func (c *BaseController[T]) create(ctx *fiber.Ctx) error {
	var entity T
	if err := ctx.BodyParser(&entity); err != nil {
		return response.ValidateError(ctx, err.Error())
	}
	if c.config.CreateValidator != nil {
		if err := c.config.CreateValidator(ctx, &entity); err != nil {
			return response.ValidateError(ctx, err.Error())
		}
	}
	if err := c.repo.Create(ctx.UserContext(), &entity); err != nil {
		return response.Error(ctx, 500, err.Error())
	}
	c.mutated(ctx.UserContext())
	return response.Success(ctx, entity)
}

func (c *BaseController[T]) update(ctx *fiber.Ctx) error {
	id, err := ParseInt64ID(ctx.Params("id"))
	if err != nil {
		return response.BadRequest(ctx, "invalid "+c.resourceName+" id")
	}
	var fields map[string]interface{}
	if err := ctx.BodyParser(&fields); err != nil {
		return response.ValidateError(ctx, err.Error())
	}
	if c.config.UpdateValidator != nil {
		if err := c.config.UpdateValidator(ctx, id, fields); err != nil {
			return response.ValidateError(ctx, err.Error())
		}
	}
	// never let clients overwrite these
	delete(fields, "id")
	delete(fields, "createdAt")
	delete(fields, "created_at")
	delete(fields, "deletedAt")
	delete(fields, "deleted_at")

	if err := c.repo.UpdateFields(ctx.UserContext(), id, fields); err != nil {
		return response.Error(ctx, 500, err.Error())
	}
	c.mutated(ctx.UserContext())
	return response.Success(ctx, nil)
}

func (c *BaseController[T]) delete(ctx *fiber.Ctx) error {
	id, err := ParseInt64ID(ctx.Params("id"))
	if err != nil {
		return response.BadRequest(ctx, "invalid "+c.resourceName+" id")
	}
	if err := c.repo.Delete(ctx.UserContext(), id); err != nil {
		return response.Error(ctx, 500, err.Error())
	}
	c.mutated(ctx.UserContext())
	return response.Success(ctx, nil)
}

func (c *BaseController[T]) batchDelete(ctx *fiber.Ctx) error {
	ids, err := ParseInt64IDs(ctx.Params("ids"))
	if err != nil {
		return response.BadRequest(ctx, "invalid id list")
	}
	if err := c.repo.DeleteBatch(ctx.UserContext(), ids); err != nil {
		return response.Error(ctx, 500, err.Error())
	}
	c.mutated(ctx.UserContext())
	return response.Success(ctx, nil)
}

// CreateEntity inserts an entity on behalf of an embedding controller.
func (c *BaseController[T]) CreateEntity(ctx context.Context, entity *T) error {
	return c.repo.Create(ctx, entity)
}

// UpdateEntity saves an entity on behalf of an embedding controller.
func (c *BaseController[T]) UpdateEntity(ctx context.Context, entity *T) error {
	return c.repo.Update(ctx, entity)
}

// FindByID loads an entity on behalf of an embedding controller.
func (c *BaseController[T]) FindByID(ctx context.Context, id int64) (*T, error) {
	return c.repo.FindByID(ctx, id)
}

// GetIDParam parses the ":id" route parameter.
func GetIDParam(ctx *fiber.Ctx) (int64, error) {
	return ParseInt64ID(ctx.Params("id"))
}

// GetIDsParam parses the ":ids" route parameter as a comma-separated list.
func GetIDsParam(ctx *fiber.Ctx) ([]int64, error) {
	return ParseInt64IDs(ctx.Params("ids"))
}
