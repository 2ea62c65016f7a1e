package dal

import (
	"context"

	"gorm.io/gorm"
)

// QueryBuilder assembles a gorm query fluently.
type QueryBuilder[T any] struct {
	db         *gorm.DB
	conditions []interface{}
	args       []interface{}
	orders     []string
	preloads   []string
	selects    []string
	omits      []string
	joins      []string
	groups     []string
	havings    []interface{}
	distinct   bool
	unscoped   bool
}

// NewQueryBuilder creates a builder over db.
func NewQueryBuilder[T any](db *gorm.DB) *QueryBuilder[T] {
	return &QueryBuilder[T]{
		db:         db,
		conditions: make([]interface{}, 0),
		args:       make([]interface{}, 0),
		orders:     make([]string, 0),
		preloads:   make([]string, 0),
		selects:    make([]string, 0),
		omits:      make([]string, 0),
		joins:      make([]string, 0),
		groups:     make([]string, 0),
		havings:    make([]interface{}, 0),
	}
}

// Where adds a condition.
func (qb *QueryBuilder[T]) Where(query interface{}, args ...interface{}) *QueryBuilder[T] {
	qb.conditions = append(qb.conditions, query)
	qb.args = append(qb.args, args...)
	return qb
}

// WhereMap adds exact-match conditions.
func (qb *QueryBuilder[T]) WhereMap(conditions map[string]interface{}) *QueryBuilder[T] {
	for k, v := range conditions {
		qb.conditions = append(qb.conditions, map[string]interface{}{k: v})
	}
	return qb
}

// WhereIf adds a condition only when cond is true.
func (qb *QueryBuilder[T]) WhereIf(cond bool, query interface{}, args ...interface{}) *QueryBuilder[T] {
	if cond {
		return qb.Where(query, args...)
	}
	return qb
}

// Order adds a raw order clause.
func (qb *QueryBuilder[T]) Order(order string) *QueryBuilder[T] {
	if order != "" {
		qb.orders = append(qb.orders, order)
	}
	return qb
}

// OrderBy adds an order clause from field and direction.
func (qb *QueryBuilder[T]) OrderBy(field string, order SortOrder) *QueryBuilder[T] {
	if field != "" {
		qb.orders = append(qb.orders, field+" "+string(order))
	}
	return qb
}

// Preload adds an association preload.
func (qb *QueryBuilder[T]) Preload(query string) *QueryBuilder[T] {
	qb.preloads = append(qb.preloads, query)
	return qb
}

// Select restricts the selected columns.
func (qb *QueryBuilder[T]) Select(fields ...string) *QueryBuilder[T] {
	qb.selects = append(qb.selects, fields...)
	return qb
}

// Omit excludes columns.
func (qb *QueryBuilder[T]) Omit(fields ...string) *QueryBuilder[T] {
	qb.omits = append(qb.omits, fields...)
	return qb
}

// Join adds a join clause.
func (qb *QueryBuilder[T]) Join(query string) *QueryBuilder[T] {
	qb.joins = append(qb.joins, query)
	return qb
}

// Group adds a group-by column.
func (qb *QueryBuilder[T]) Group(name string) *QueryBuilder[T] {
	qb.groups = append(qb.groups, name)
	return qb
}

// Having adds a having condition.
func (qb *QueryBuilder[T]) Having(query interface{}, args ...interface{}) *QueryBuilder[T] {
	qb.havings = append(qb.havings, query)
	qb.args = append(qb.args, args...)
	return qb
}

// Distinct deduplicates rows.
func (qb *QueryBuilder[T]) Distinct() *QueryBuilder[T] {
	qb.distinct = true
	return qb
}

// Unscoped includes soft-deleted rows.
func (qb *QueryBuilder[T]) Unscoped() *QueryBuilder[T] {
	qb.unscoped = true
	return qb
}

// Build materializes the gorm query.
func (qb *QueryBuilder[T]) Build(ctx context.Context) *gorm.DB {
	var entity T
	db := qb.db.WithContext(ctx).Model(&entity)

	if qb.unscoped {
		db = db.Unscoped()
	}

	if qb.distinct {
		db = db.Distinct()
	}

	if len(qb.selects) > 0 {
		db = db.Select(qb.selects)
	}

	if len(qb.omits) > 0 {
		db = db.Omit(qb.omits...)
	}

	for _, join := range qb.joins {
		db = db.Joins(join)
	}

	// string conditions consume their own placeholder args
	argIndex := 0
	for _, cond := range qb.conditions {
		switch c := cond.(type) {
		case string:
			argsNeeded := countPlaceholders(c)
			if argIndex+argsNeeded <= len(qb.args) {
				db = db.Where(c, qb.args[argIndex:argIndex+argsNeeded]...)
				argIndex += argsNeeded
			} else {
				db = db.Where(c)
			}
		case map[string]interface{}:
			db = db.Where(c)
		default:
			db = db.Where(cond)
		}
	}

	for _, group := range qb.groups {
		db = db.Group(group)
	}

	for _, having := range qb.havings {
		db = db.Having(having)
	}

	for _, preload := range qb.preloads {
		db = db.Preload(preload)
	}

	for _, order := range qb.orders {
		db = db.Order(order)
	}

	return db
}

func countPlaceholders(sql string) int {
	count := 0
	for _, c := range sql {
		if c == '?' {
			count++
		}
	}
	return count
}

// Find executes and returns all matches.
func (qb *QueryBuilder[T]) Find(ctx context.Context) ([]T, error) {
	var entities []T
	if err := qb.Build(ctx).Find(&entities).Error; err != nil {
		return nil, err
	}
	return entities, nil
}

// First executes and returns the first match or nil.
func (qb *QueryBuilder[T]) First(ctx context.Context) (*T, error) {
	var entity T
	if err := qb.Build(ctx).First(&entity).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &entity, nil
}

// Count executes a count.
func (qb *QueryBuilder[T]) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := qb.Build(ctx).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Paged executes a paginated query.
func (qb *QueryBuilder[T]) Paged(ctx context.Context, pagination *Pagination) (*PagedResult[T], error) {
	var entities []T
	var total int64

	db := qb.Build(ctx)

	if err := db.Count(&total).Error; err != nil {
		return nil, err
	}

	if err := db.Offset(pagination.Offset()).Limit(pagination.PageSize).Find(&entities).Error; err != nil {
		return nil, err
	}

	return NewPagedResult(entities, total, pagination), nil
}

// Update applies field updates to all matches.
func (qb *QueryBuilder[T]) Update(ctx context.Context, fields map[string]interface{}) error {
	return qb.Build(ctx).Updates(fields).Error
}

// Delete soft-deletes all matches.
func (qb *QueryBuilder[T]) Delete(ctx context.Context) error {
	var entity T
	return qb.Build(ctx).Delete(&entity).Error
}
