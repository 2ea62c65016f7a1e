package page

import (
	"context"

	"github.com/civicms/pkg/dal"
	"github.com/civicms/services/content/internal/model"
	"gorm.io/gorm"
)

// Repository is the static page store.
type Repository interface {
	dal.Repository[model.Page]
	FindBySlug(ctx context.Context, slug string) (*model.Page, error)
	SlugTaken(ctx context.Context, slug string, excludeID int64) (bool, error)
}

type repository struct {
	*dal.BaseRepository[model.Page]
}

// NewRepository creates a page repository on the default database.
func NewRepository() Repository {
	return &repository{
		BaseRepository: dal.NewBaseRepository[model.Page](),
	}
}

// NewRepositoryWithDB creates a page repository on an explicit
// database, for tests.
func NewRepositoryWithDB(db *gorm.DB) Repository {
	return &repository{
		BaseRepository: dal.NewBaseRepositoryWithDB[model.Page](db),
	}
}

func (r *repository) FindBySlug(ctx context.Context, slug string) (*model.Page, error) {
	return r.FindOne(ctx, map[string]interface{}{"slug": slug})
}

// SlugTaken reports whether another page already uses the slug.
func (r *repository) SlugTaken(ctx context.Context, slug string, excludeID int64) (bool, error) {
	var count int64
	err := r.DB().WithContext(ctx).
		Model(&model.Page{}).
		Where("slug = ? AND id <> ?", slug, excludeID).
		Count(&count).Error
	return count > 0, err
}
