package setting

import (
	"context"

	"github.com/civicms/pkg/dal"
	"github.com/civicms/services/content/internal/model"
	"gorm.io/gorm"
)

// Repository is the site settings store.
type Repository interface {
	dal.Repository[model.Setting]
	FindByKey(ctx context.Context, key string) (*model.Setting, error)
	PublicMap(ctx context.Context) (map[string]string, error)
	Upsert(ctx context.Context, key, value string) (*model.Setting, error)
}

type repository struct {
	*dal.BaseRepository[model.Setting]
}

// NewRepository creates a settings repository on the default database.
func NewRepository() Repository {
	return &repository{
		BaseRepository: dal.NewBaseRepository[model.Setting](),
	}
}

// NewRepositoryWithDB creates a settings repository on an explicit
// database, for tests.
func NewRepositoryWithDB(db *gorm.DB) Repository {
	return &repository{
		BaseRepository: dal.NewBaseRepositoryWithDB[model.Setting](db),
	}
}

func (r *repository) FindByKey(ctx context.Context, key string) (*model.Setting, error) {
	return r.FindOne(ctx, map[string]interface{}{"key": key})
}

// PublicMap returns every public setting as key→value.
func (r *repository) PublicMap(ctx context.Context) (map[string]string, error) {
	var settings []model.Setting
	err := r.DB().WithContext(ctx).
		Where("public = ?", true).
		Find(&settings).Error
	if err != nil {
		return nil, err
	}

	out := make(map[string]string, len(settings))
	for _, s := range settings {
		out[s.Key] = s.Value
	}
	return out, nil
}

// Upsert writes a value, creating the key when absent.
func (r *repository) Upsert(ctx context.Context, key, value string) (*model.Setting, error) {
	existing, err := r.FindByKey(ctx, key)
	if err != nil {
		return nil, err
	}

	if existing == nil {
		s := &model.Setting{Key: key, Value: value, Public: true}
		if err := r.Create(ctx, s); err != nil {
			return nil, err
		}
		return s, nil
	}

	existing.Value = value
	if err := r.Update(ctx, existing); err != nil {
		return nil, err
	}
	return existing, nil
}
