package document

import (
	"context"

	"github.com/civicms/pkg/dal"
	"github.com/civicms/services/content/internal/model"
	"gorm.io/gorm"
)

// Repository is the document store.
type Repository interface {
	dal.Repository[model.Document]
	FindByStoredName(ctx context.Context, storedName string) (*model.Document, error)
}

type repository struct {
	*dal.BaseRepository[model.Document]
}

// NewRepository creates a document repository on the default database.
func NewRepository() Repository {
	return &repository{
		BaseRepository: dal.NewBaseRepository[model.Document](),
	}
}

// NewRepositoryWithDB creates a document repository on an explicit
// database, for tests.
func NewRepositoryWithDB(db *gorm.DB) Repository {
	return &repository{
		BaseRepository: dal.NewBaseRepositoryWithDB[model.Document](db),
	}
}

func (r *repository) FindByStoredName(ctx context.Context, storedName string) (*model.Document, error) {
	return r.FindOne(ctx, map[string]interface{}{"stored_name": storedName})
}
