package event

import (
	"context"
	"time"

	"github.com/civicms/pkg/dal"
	"github.com/civicms/services/content/internal/model"
	"gorm.io/gorm"
)

// Repository is the event store.
type Repository interface {
	dal.Repository[model.Event]
	Upcoming(ctx context.Context, from time.Time, limit int) ([]model.Event, error)
}

type repository struct {
	*dal.BaseRepository[model.Event]
}

// NewRepository creates an event repository on the default database.
func NewRepository() Repository {
	return &repository{
		BaseRepository: dal.NewBaseRepository[model.Event](),
	}
}

// NewRepositoryWithDB creates an event repository on an explicit
// database, for tests.
func NewRepositoryWithDB(db *gorm.DB) Repository {
	return &repository{
		BaseRepository: dal.NewBaseRepositoryWithDB[model.Event](db),
	}
}

// Upcoming lists published events that have not ended yet, soonest
// first.
func (r *repository) Upcoming(ctx context.Context, from time.Time, limit int) ([]model.Event, error) {
	if limit <= 0 {
		limit = 20
	}

	var events []model.Event
	err := r.DB().WithContext(ctx).
		Where("published = ?", true).
		Where("ends_at >= ? OR starts_at >= ?", from, from).
		Order("starts_at ASC").
		Limit(limit).
		Find(&events).Error
	return events, err
}
