package session

import (
	"context"
	"errors"
	"testing"

	"github.com/civicms/services/identity/internal/model"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		NamingStrategy: schema.NamingStrategy{SingularTable: true},
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&model.User{}, &model.RoleAssignment{}))
	return db
}

func TestTableRoleLookup(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, db.Create(&model.RoleAssignment{UserID: 1, Role: "moderator"}).Error)
	require.NoError(t, db.Create(&model.RoleAssignment{UserID: 1, Role: "bac"}).Error)
	require.NoError(t, db.Create(&model.RoleAssignment{UserID: 2, Role: "admin"}).Error)

	lookup := NewTableRoleLookup(db)

	roles, err := lookup.Roles(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, []Role{RoleModerator, RoleBAC}, roles)

	roles, err = lookup.Roles(context.Background(), 99)
	require.NoError(t, err)
	assert.Empty(t, roles)
}

func TestTableRoleLookupSkipsUnknownCodes(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, db.Create(&model.RoleAssignment{UserID: 1, Role: "moderator"}).Error)
	require.NoError(t, db.Create(&model.RoleAssignment{UserID: 1, Role: "wizard"}).Error)

	roles, err := NewTableRoleLookup(db).Roles(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, []Role{RoleModerator}, roles)
}

func TestTableProfileLookup(t *testing.T) {
	db := openTestDB(t)
	user := &model.User{
		Username:    "engineer",
		Email:       "engineer@lgu.gov.ph",
		Password:    "x",
		DisplayName: "Municipal Engineer",
	}
	require.NoError(t, db.Create(user).Error)

	lookup := NewTableProfileLookup(db)

	profile, err := lookup.Profile(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, user.ID, profile.UserID)
	assert.Equal(t, "engineer@lgu.gov.ph", profile.Email)
	assert.Equal(t, "Municipal Engineer", profile.DisplayName)

	_, err = lookup.Profile(context.Background(), 404)
	assert.Error(t, err)
}

type failingLookup struct {
	err error
}

func (f *failingLookup) Roles(ctx context.Context, userID int64) ([]Role, error) {
	return nil, f.err
}

func TestFallbackUsesSecondaryOnError(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, db.Create(&model.RoleAssignment{UserID: 1, Role: "bac"}).Error)

	primary := &failingLookup{err: errors.New("function list_user_roles does not exist")}
	lookup := Fallback(primary, NewTableRoleLookup(db))

	roles, err := lookup.Roles(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, []Role{RoleBAC}, roles)
}

func TestFallbackSkipsSecondaryOnSuccess(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, db.Create(&model.RoleAssignment{UserID: 1, Role: "admin"}).Error)

	secondary := &failingLookup{err: errors.New("should not be called")}
	lookup := Fallback(NewTableRoleLookup(db), secondary)

	roles, err := lookup.Roles(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, []Role{RoleAdmin}, roles)
}
