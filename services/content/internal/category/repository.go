package category

import (
	"context"

	"github.com/civicms/pkg/dal"
	"github.com/civicms/services/content/internal/model"
	"gorm.io/gorm"
)

// Repository is the category dictionary store.
type Repository interface {
	dal.Repository[model.Category]
	Active(ctx context.Context) ([]model.Category, error)
}

type repository struct {
	*dal.BaseRepository[model.Category]
}

// NewRepository creates a category repository on the default database.
func NewRepository() Repository {
	return &repository{
		BaseRepository: dal.NewBaseRepository[model.Category](),
	}
}

// NewRepositoryWithDB creates a category repository on an explicit
// database, for tests.
func NewRepositoryWithDB(db *gorm.DB) Repository {
	return &repository{
		BaseRepository: dal.NewBaseRepositoryWithDB[model.Category](db),
	}
}

// Active lists the active categories in display order.
func (r *repository) Active(ctx context.Context) ([]model.Category, error) {
	var categories []model.Category
	err := r.DB().WithContext(ctx).
		Where("active = ?", true).
		Order("sort ASC, id ASC").
		Find(&categories).Error
	return categories, err
}
