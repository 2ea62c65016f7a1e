package dal

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// ListParams are the query parameters accepted by list endpoints.
type ListParams struct {
	Filter    string `query:"filter"`    // exact-match pairs, e.g. status=published,category=news
	Fields    string `query:"fields"`    // returned columns, e.g. id,title,created_at
	Sort      string `query:"sort"`      // e.g. -published_at,title (- means descending)
	Page      int    `query:"page"`      // 1-based
	PerPage   int    `query:"perPage"`
	SkipTotal bool   `query:"skipTotal"` // skip the count query
	Expand    string `query:"expand"`    // association preloads, e.g. category
}

// ListResult is one page of a listing.
type ListResult[T any] struct {
	Page       int   `json:"page"`
	PerPage    int   `json:"perPage"`
	TotalItems int64 `json:"totalItems"`
	TotalPages int   `json:"totalPages"`
	Items      []T   `json:"items"`
}

// Collection executes list queries for one entity type. Filterable and
// sortable columns must be whitelisted; anything else in the request
// is ignored.
type Collection[T any] struct {
	db            *gorm.DB
	fieldAlias    map[string]string
	allowedFields []string
	defaultSort   string
	maxPerPage    int
}

// NewCollection creates a collection over db.
func NewCollection[T any](db *gorm.DB) *Collection[T] {
	return &Collection[T]{
		db:            db,
		fieldAlias:    make(map[string]string),
		allowedFields: []string{},
		defaultSort:   "-id",
		maxPerPage:    500,
	}
}

// WithFieldAlias maps request field names to database columns.
func (c *Collection[T]) WithFieldAlias(alias map[string]string) *Collection[T] {
	c.fieldAlias = alias
	return c
}

// WithAllowedFields whitelists filterable/selectable columns.
func (c *Collection[T]) WithAllowedFields(fields []string) *Collection[T] {
	c.allowedFields = fields
	return c
}

// WithDefaultSort sets the sort used when the request carries none.
func (c *Collection[T]) WithDefaultSort(sort string) *Collection[T] {
	c.defaultSort = sort
	return c
}

// WithMaxPerPage caps the page size.
func (c *Collection[T]) WithMaxPerPage(max int) *Collection[T] {
	c.maxPerPage = max
	return c
}

// BindQuery parses ListParams from the request.
func BindQuery(ctx *fiber.Ctx) (*ListParams, error) {
	params := &ListParams{
		Page:    1,
		PerPage: 20,
	}
	if err := ctx.QueryParser(params); err != nil {
		return nil, err
	}
	return params, nil
}

// GetList returns one page of the listing.
func (c *Collection[T]) GetList(ctx context.Context, params *ListParams) (*ListResult[T], error) {
	var items []T
	var totalItems int64

	if params.Page < 1 {
		params.Page = 1
	}
	if params.PerPage < 1 {
		params.PerPage = 20
	}
	if params.PerPage > c.maxPerPage {
		params.PerPage = c.maxPerPage
	}

	var entity T
	db := c.db.WithContext(ctx).Model(&entity)

	db = c.applyFilter(db, params.Filter)
	db = c.applyFields(db, params.Fields)
	db = c.applyExpand(db, params.Expand)

	if !params.SkipTotal {
		countDB := c.db.WithContext(ctx).Model(&entity)
		countDB = c.applyFilter(countDB, params.Filter)
		if err := countDB.Count(&totalItems).Error; err != nil {
			return nil, err
		}
	}

	db = c.applySort(db, params.Sort)

	offset := (params.Page - 1) * params.PerPage
	db = db.Offset(offset).Limit(params.PerPage)

	if err := db.Find(&items).Error; err != nil {
		return nil, err
	}

	totalPages := 0
	if !params.SkipTotal && params.PerPage > 0 {
		totalPages = int((totalItems + int64(params.PerPage) - 1) / int64(params.PerPage))
	}

	return &ListResult[T]{
		Page:       params.Page,
		PerPage:    params.PerPage,
		TotalItems: totalItems,
		TotalPages: totalPages,
		Items:      items,
	}, nil
}

// GetFullList returns all matches without pagination.
func (c *Collection[T]) GetFullList(ctx context.Context, params *ListParams) ([]T, error) {
	var items []T

	var entity T
	db := c.db.WithContext(ctx).Model(&entity)

	db = c.applyFilter(db, params.Filter)
	db = c.applyFields(db, params.Fields)
	db = c.applyExpand(db, params.Expand)
	db = c.applySort(db, params.Sort)

	if err := db.Find(&items).Error; err != nil {
		return nil, err
	}

	return items, nil
}

// GetFirstListItem returns the first match of filter or nil.
func (c *Collection[T]) GetFirstListItem(ctx context.Context, filter string, params *ListParams) (*T, error) {
	var entity T
	db := c.db.WithContext(ctx).Model(&entity)

	if filter != "" {
		db = c.applyFilter(db, filter)
	}
	if params != nil && params.Filter != "" {
		db = c.applyFilter(db, params.Filter)
	}

	if params != nil {
		db = c.applyFields(db, params.Fields)
		db = c.applyExpand(db, params.Expand)
		db = c.applySort(db, params.Sort)
	}

	if err := db.First(&entity).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}

	return &entity, nil
}

// GetOne fetches a record by id or nil.
func (c *Collection[T]) GetOne(ctx context.Context, id int64, params *ListParams) (*T, error) {
	var entity T
	db := c.db.WithContext(ctx).Model(&entity)

	if params != nil {
		db = c.applyFields(db, params.Fields)
		db = c.applyExpand(db, params.Expand)
	}

	if err := db.Where("id = ?", id).First(&entity).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}

	return &entity, nil
}

// Truncate deletes every row of the table.
func (c *Collection[T]) Truncate(ctx context.Context) error {
	var entity T
	return c.db.WithContext(ctx).Where("1 = 1").Delete(&entity).Error
}

// applyFilter parses "field=value" pairs separated by commas. Fields
// outside the whitelist are ignored rather than rejected.
func (c *Collection[T]) applyFilter(db *gorm.DB, filter string) *gorm.DB {
	if filter == "" {
		return db
	}

	for _, pair := range strings.Split(filter, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		parts := strings.SplitN(pair, "=", 2)
		if len(parts) != 2 {
			continue
		}
		field := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		if alias, ok := c.fieldAlias[field]; ok {
			field = alias
		}
		if !c.fieldAllowed(field) {
			continue
		}

		db = db.Where(map[string]interface{}{field: value})
	}

	return db
}

func (c *Collection[T]) fieldAllowed(field string) bool {
	if len(c.allowedFields) == 0 {
		return false
	}
	for _, af := range c.allowedFields {
		if field == af {
			return true
		}
	}
	return false
}

func (c *Collection[T]) applyFields(db *gorm.DB, fields string) *gorm.DB {
	if fields == "" {
		return db
	}

	fieldList := strings.Split(fields, ",")
	selectFields := make([]string, 0, len(fieldList))

	for _, f := range fieldList {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}

		if alias, ok := c.fieldAlias[f]; ok {
			f = alias
		}
		if !c.fieldAllowed(f) {
			continue
		}

		selectFields = append(selectFields, f)
	}

	if len(selectFields) > 0 {
		db = db.Select(selectFields)
	}

	return db
}

func (c *Collection[T]) applySort(db *gorm.DB, sort string) *gorm.DB {
	if sort == "" {
		sort = c.defaultSort
	}

	for _, s := range strings.Split(sort, ",") {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}

		order := "ASC"
		if strings.HasPrefix(s, "-") {
			order = "DESC"
			s = s[1:]
		} else if strings.HasPrefix(s, "+") {
			s = s[1:]
		}

		if alias, ok := c.fieldAlias[s]; ok {
			s = alias
		}
		if s != "id" && !c.fieldAllowed(s) {
			continue
		}

		db = db.Order(s + " " + order)
	}

	return db
}

func (c *Collection[T]) applyExpand(db *gorm.DB, expand string) *gorm.DB {
	if expand == "" {
		return db
	}

	for _, rel := range strings.Split(expand, ",") {
		rel = strings.TrimSpace(rel)
		if rel == "" {
			continue
		}
		db = db.Preload(rel)
	}

	return db
}

// Count counts the matches of filter.
func (c *Collection[T]) Count(ctx context.Context, filter string) (int64, error) {
	var count int64
	var entity T
	db := c.db.WithContext(ctx).Model(&entity)

	db = c.applyFilter(db, filter)

	if err := db.Count(&count).Error; err != nil {
		return 0, err
	}

	return count, nil
}
