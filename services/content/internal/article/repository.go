package article

import (
	"context"
	"time"

	"github.com/civicms/pkg/dal"
	"github.com/civicms/services/content/internal/model"
	"gorm.io/gorm"
)

// Repository is the article store.
type Repository interface {
	dal.Repository[model.Article]
	FindBySlug(ctx context.Context, slug string) (*model.Article, error)
	SlugTaken(ctx context.Context, slug string, excludeID int64) (bool, error)
	Publish(ctx context.Context, id int64, at time.Time) error
	Unpublish(ctx context.Context, id int64) error
}

type repository struct {
	*dal.BaseRepository[model.Article]
}

// NewRepository creates an article repository on the default database.
func NewRepository() Repository {
	return &repository{
		BaseRepository: dal.NewBaseRepository[model.Article](),
	}
}

// NewRepositoryWithDB creates an article repository on an explicit
// database, for tests.
func NewRepositoryWithDB(db *gorm.DB) Repository {
	return &repository{
		BaseRepository: dal.NewBaseRepositoryWithDB[model.Article](db),
	}
}

func (r *repository) FindBySlug(ctx context.Context, slug string) (*model.Article, error) {
	return r.FindOne(ctx, map[string]interface{}{"slug": slug}, dal.WithPreload("Category"))
}

// SlugTaken reports whether another article already uses the slug.
func (r *repository) SlugTaken(ctx context.Context, slug string, excludeID int64) (bool, error) {
	var count int64
	err := r.DB().WithContext(ctx).
		Model(&model.Article{}).
		Where("slug = ? AND id <> ?", slug, excludeID).
		Count(&count).Error
	return count > 0, err
}

func (r *repository) Publish(ctx context.Context, id int64, at time.Time) error {
	return r.UpdateFields(ctx, id, map[string]interface{}{
		"status":       model.StatusPublished,
		"published_at": at,
	})
}

func (r *repository) Unpublish(ctx context.Context, id int64) error {
	return r.UpdateFields(ctx, id, map[string]interface{}{
		"status":       model.StatusDraft,
		"published_at": nil,
	})
}
