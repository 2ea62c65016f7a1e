package loginlog

import (
	"context"
	"time"

	"github.com/civicms/pkg/dal"
	"github.com/civicms/services/identity/internal/model"
	"gorm.io/gorm"
)

// Repository is the login log store.
type Repository interface {
	dal.Repository[model.LoginLog]
	Record(entry *model.LoginLog) error
	PurgeBefore(ctx context.Context, days int) (int64, error)
}

type repository struct {
	*dal.BaseRepository[model.LoginLog]
}

// NewRepository creates a login log repository on the default database.
func NewRepository() Repository {
	return &repository{
		BaseRepository: dal.NewBaseRepository[model.LoginLog](),
	}
}

// NewRepositoryWithDB creates a login log repository on an explicit
// database, for tests.
func NewRepositoryWithDB(db *gorm.DB) Repository {
	return &repository{
		BaseRepository: dal.NewBaseRepositoryWithDB[model.LoginLog](db),
	}
}

// Record writes one attempt outside any request context.
func (r *repository) Record(entry *model.LoginLog) error {
	return r.DB().Create(entry).Error
}

// PurgeBefore hard-deletes entries older than the given days.
func (r *repository) PurgeBefore(ctx context.Context, days int) (int64, error) {
	cutoff := time.Now().AddDate(0, 0, -days)
	result := r.DB().WithContext(ctx).
		Where("created_at < ?", cutoff).
		Delete(&model.LoginLog{})
	return result.RowsAffected, result.Error
}
