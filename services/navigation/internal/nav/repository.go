package nav

import (
	"context"

	"github.com/civicms/pkg/dal"
	"github.com/civicms/services/navigation/internal/model"
	"gorm.io/gorm"
)

// Repository is the nav entry store.
type Repository interface {
	dal.Repository[model.NavEntry]
	ActiveByGroup(ctx context.Context, group string) ([]model.NavEntry, error)
	Groups(ctx context.Context) ([]string, error)
}

type repository struct {
	*dal.BaseRepository[model.NavEntry]
}

// NewRepository creates a nav repository on the default database.
func NewRepository() Repository {
	return &repository{
		BaseRepository: dal.NewBaseRepository[model.NavEntry](),
	}
}

// NewRepositoryWithDB creates a nav repository on an explicit
// database, for tests.
func NewRepositoryWithDB(db *gorm.DB) Repository {
	return &repository{
		BaseRepository: dal.NewBaseRepositoryWithDB[model.NavEntry](db),
	}
}

// ActiveByGroup lists the active entries of a menu group ordered by
// sort then id, which gives the tree builder its stable tie-break.
func (r *repository) ActiveByGroup(ctx context.Context, group string) ([]model.NavEntry, error) {
	var entries []model.NavEntry
	err := r.DB().WithContext(ctx).
		Where("menu_group = ? AND active = ?", group, true).
		Order("sort ASC, id ASC").
		Find(&entries).Error
	return entries, err
}

// Groups lists the distinct menu groups.
func (r *repository) Groups(ctx context.Context) ([]string, error) {
	var groups []string
	err := r.DB().WithContext(ctx).
		Model(&model.NavEntry{}).
		Distinct("menu_group").
		Order("menu_group ASC").
		Pluck("menu_group", &groups).Error
	return groups, err
}
