package user

import (
	"context"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"

	"github.com/civicms/pkg/auth"
	"github.com/civicms/services/identity/internal/model"
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

func createUser(t *testing.T, repo Repository, username, email string) *model.User {
	t.Helper()

	hash, err := auth.HashPassword("changeme123")
	require.NoError(t, err)

	u := &model.User{Username: username, Email: email, Password: hash, Status: 1}
	require.NoError(t, repo.Create(context.Background(), u))
	return u
}

func TestFindByUsernameAndEmail(t *testing.T) {
	repo := NewRepositoryWithDB(openTestDB(t))
	ctx := context.Background()

	created := createUser(t, repo, "jdelacruz", "jdelacruz@civicms.local")

	byName, err := repo.FindByUsername(ctx, "jdelacruz")
	require.NoError(t, err)
	require.NotNil(t, byName)
	assert.Equal(t, created.ID, byName.ID)

	byEmail, err := repo.FindByEmail(ctx, "jdelacruz@civicms.local")
	require.NoError(t, err)
	require.NotNil(t, byEmail)
	assert.Equal(t, created.ID, byEmail.ID)

	missing, err := repo.FindByUsername(ctx, "nobody")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestReplaceRolesSwapsAssignments(t *testing.T) {
	repo := NewRepositoryWithDB(openTestDB(t))
	ctx := context.Background()

	u := createUser(t, repo, "mod", "mod@civicms.local")

	require.NoError(t, repo.ReplaceRoles(ctx, u.ID, []string{"user", "moderator"}))

	roles, err := repo.RolesOf(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"user", "moderator"}, roles)

	require.NoError(t, repo.ReplaceRoles(ctx, u.ID, []string{"bac"}))

	roles, err = repo.RolesOf(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"bac"}, roles)
}

func TestReplaceRolesWithEmptySetClears(t *testing.T) {
	repo := NewRepositoryWithDB(openTestDB(t))
	ctx := context.Background()

	u := createUser(t, repo, "temp", "temp@civicms.local")
	require.NoError(t, repo.ReplaceRoles(ctx, u.ID, []string{"admin"}))
	require.NoError(t, repo.ReplaceRoles(ctx, u.ID, nil))

	roles, err := repo.RolesOf(ctx, u.ID)
	require.NoError(t, err)
	assert.Empty(t, roles)
}

func TestUpdatePassword(t *testing.T) {
	repo := NewRepositoryWithDB(openTestDB(t))
	ctx := context.Background()

	u := createUser(t, repo, "clerk", "clerk@civicms.local")

	hash, err := auth.HashPassword("newsecret456")
	require.NoError(t, err)
	require.NoError(t, repo.UpdatePassword(ctx, u.ID, hash))

	got, err := repo.FindByID(ctx, u.ID)
	require.NoError(t, err)
	assert.True(t, auth.CheckPassword(got.Password, "newsecret456"))
	assert.False(t, auth.CheckPassword(got.Password, "changeme123"))
}
