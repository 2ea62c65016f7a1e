package user

import (
	"context"

	"github.com/civicms/pkg/dal"
	"github.com/civicms/services/identity/internal/model"
	"gorm.io/gorm"
)

// Repository is the user store.
type Repository interface {
	dal.Repository[model.User]
	FindByUsername(ctx context.Context, username string) (*model.User, error)
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	UpdatePassword(ctx context.Context, id int64, password string) error
	RolesOf(ctx context.Context, userID int64) ([]string, error)
	ReplaceRoles(ctx context.Context, userID int64, roles []string) error
}

type repository struct {
	*dal.BaseRepository[model.User]
}

// NewRepository creates a user repository on the default database.
func NewRepository() Repository {
	return &repository{
		BaseRepository: dal.NewBaseRepository[model.User](),
	}
}

// NewRepositoryWithDB creates a user repository on an explicit
// database, for tests.
func NewRepositoryWithDB(db *gorm.DB) Repository {
	return &repository{
		BaseRepository: dal.NewBaseRepositoryWithDB[model.User](db),
	}
}

func (r *repository) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	return r.FindOne(ctx, map[string]interface{}{"username": username})
}

func (r *repository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.FindOne(ctx, map[string]interface{}{"email": email})
}

func (r *repository) UpdatePassword(ctx context.Context, id int64, password string) error {
	return r.UpdateFields(ctx, id, map[string]interface{}{"password": password})
}

// RolesOf lists the role codes assigned to a user.
func (r *repository) RolesOf(ctx context.Context, userID int64) ([]string, error) {
	var codes []string
	err := r.DB().WithContext(ctx).
		Model(&model.RoleAssignment{}).
		Where("user_id = ?", userID).
		Order("id ASC").
		Pluck("role", &codes).Error
	return codes, err
}

// ReplaceRoles swaps a user's assignments in one transaction.
func (r *repository) ReplaceRoles(ctx context.Context, userID int64, roles []string) error {
	return r.DB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", userID).Delete(&model.RoleAssignment{}).Error; err != nil {
			return err
		}
		for _, role := range roles {
			if err := tx.Create(&model.RoleAssignment{UserID: userID, Role: role}).Error; err != nil {
				return err
			}
		}
		return nil
	})
}
