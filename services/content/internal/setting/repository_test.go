package setting

import (
	"context"
	"testing"

	"github.com/civicms/services/content/internal/model"
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
	require.NoError(t, db.AutoMigrate(&model.Setting{}))
	return db
}

func TestUpsertCreatesThenUpdates(t *testing.T) {
	db := openTestDB(t)
	repo := NewRepositoryWithDB(db)
	ctx := context.Background()

	s, err := repo.Upsert(ctx, "hotline", "123-4567")
	require.NoError(t, err)
	assert.Equal(t, "123-4567", s.Value)

	s, err = repo.Upsert(ctx, "hotline", "765-4321")
	require.NoError(t, err)
	assert.Equal(t, "765-4321", s.Value)

	var count int64
	require.NoError(t, db.Model(&model.Setting{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestPublicMapExcludesPrivate(t *testing.T) {
	db := openTestDB(t)
	repo := NewRepositoryWithDB(db)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &model.Setting{Key: "address", Value: "Municipal Hall", Public: true}))
	require.NoError(t, repo.Create(ctx, &model.Setting{Key: "smtp_password", Value: "secret", Public: false}))

	m, err := repo.PublicMap(ctx)
	require.NoError(t, err)

	assert.Equal(t, "Municipal Hall", m["address"])
	_, ok := m["smtp_password"]
	assert.False(t, ok)
}
