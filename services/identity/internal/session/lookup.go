package session

import (
	"context"

	"github.com/civicms/pkg/logger"
	"github.com/civicms/services/identity/internal/model"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// RoleLookup fetches the role codes of a user.
type RoleLookup interface {
	Roles(ctx context.Context, userID int64) ([]Role, error)
}

// ProfileLookup fetches the public profile of a user.
type ProfileLookup interface {
	Profile(ctx context.Context, userID int64) (*Profile, error)
}

// ProcRoleLookup reads roles through the list_user_roles server-side
// function. Deployments without the function fail here and fall
// through to the table lookup.
type ProcRoleLookup struct {
	db *gorm.DB
}

// NewProcRoleLookup creates a procedure-backed lookup.
func NewProcRoleLookup(db *gorm.DB) *ProcRoleLookup {
	return &ProcRoleLookup{db: db}
}

// Roles implements RoleLookup.
func (l *ProcRoleLookup) Roles(ctx context.Context, userID int64) ([]Role, error) {
	var codes []string
	err := l.db.WithContext(ctx).
		Raw("SELECT role FROM list_user_roles(?)", userID).
		Scan(&codes).Error
	if err != nil {
		return nil, err
	}
	return parseRoles(codes), nil
}

// TableRoleLookup reads roles straight from the role_assignment table.
type TableRoleLookup struct {
	db *gorm.DB
}

// NewTableRoleLookup creates a table-backed lookup.
func NewTableRoleLookup(db *gorm.DB) *TableRoleLookup {
	return &TableRoleLookup{db: db}
}

// Roles implements RoleLookup.
func (l *TableRoleLookup) Roles(ctx context.Context, userID int64) ([]Role, error) {
	var codes []string
	err := l.db.WithContext(ctx).
		Model(&model.RoleAssignment{}).
		Where("user_id = ?", userID).
		Order("id ASC").
		Pluck("role", &codes).Error
	if err != nil {
		return nil, err
	}
	return parseRoles(codes), nil
}

// fallbackLookup tries the primary and, on any error, the secondary.
type fallbackLookup struct {
	primary   RoleLookup
	secondary RoleLookup
}

// Fallback chains two lookups; the secondary only runs when the
// primary errors.
func Fallback(primary, secondary RoleLookup) RoleLookup {
	return &fallbackLookup{primary: primary, secondary: secondary}
}

// Roles implements RoleLookup.
func (l *fallbackLookup) Roles(ctx context.Context, userID int64) ([]Role, error) {
	roles, err := l.primary.Roles(ctx, userID)
	if err == nil {
		return roles, nil
	}

	logger.Debug("primary role lookup failed, trying fallback",
		zap.Int64("userId", userID),
		zap.Error(err),
	)

	return l.secondary.Roles(ctx, userID)
}

// TableProfileLookup reads the profile from the user table.
type TableProfileLookup struct {
	db *gorm.DB
}

// NewTableProfileLookup creates a table-backed profile lookup.
func NewTableProfileLookup(db *gorm.DB) *TableProfileLookup {
	return &TableProfileLookup{db: db}
}

// Profile implements ProfileLookup.
func (l *TableProfileLookup) Profile(ctx context.Context, userID int64) (*Profile, error) {
	var user model.User
	err := l.db.WithContext(ctx).
		Select("id", "email", "display_name").
		First(&user, userID).Error
	if err != nil {
		return nil, err
	}

	return &Profile{
		UserID:      user.ID,
		Email:       user.Email,
		DisplayName: user.DisplayName,
	}, nil
}

// parseRoles keeps only codes inside the closed role set.
func parseRoles(codes []string) []Role {
	roles := make([]Role, 0, len(codes))
	for _, code := range codes {
		role, ok := ParseRole(code)
		if !ok {
			logger.Warn("unknown role code ignored", zap.String("role", code))
			continue
		}
		roles = append(roles, role)
	}
	return roles
}
