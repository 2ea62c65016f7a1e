package article

import (
	"context"
	"testing"
	"time"

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
	require.NoError(t, db.AutoMigrate(&model.Category{}, &model.Article{}))
	return db
}

func TestPublishAndUnpublish(t *testing.T) {
	db := openTestDB(t)
	repo := NewRepositoryWithDB(db)
	ctx := context.Background()

	a := &model.Article{Title: "Road Closure Advisory", Slug: "road-closure-advisory", Status: model.StatusDraft}
	require.NoError(t, repo.Create(ctx, a))
	assert.False(t, a.Published())

	require.NoError(t, repo.Publish(ctx, a.ID, time.Now().Add(-time.Minute)))

	got, err := repo.FindByID(ctx, a.ID)
	require.NoError(t, err)
	assert.True(t, got.Published())

	require.NoError(t, repo.Unpublish(ctx, a.ID))

	got, err = repo.FindByID(ctx, a.ID)
	require.NoError(t, err)
	assert.False(t, got.Published())
	assert.Nil(t, got.PublishedAt)
}

func TestFutureDatedArticleIsNotPublic(t *testing.T) {
	db := openTestDB(t)
	repo := NewRepositoryWithDB(db)
	ctx := context.Background()

	future := time.Now().Add(24 * time.Hour)
	a := &model.Article{
		Title:       "Fiesta Schedule",
		Slug:        "fiesta-schedule",
		Status:      model.StatusPublished,
		PublishedAt: &future,
	}
	require.NoError(t, repo.Create(ctx, a))

	got, err := repo.FindBySlug(ctx, "fiesta-schedule")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.False(t, got.Published())
}

func TestSlugTaken(t *testing.T) {
	db := openTestDB(t)
	repo := NewRepositoryWithDB(db)
	ctx := context.Background()

	a := &model.Article{Title: "Notice", Slug: "notice", Status: model.StatusDraft}
	require.NoError(t, repo.Create(ctx, a))

	taken, err := repo.SlugTaken(ctx, "notice", 0)
	require.NoError(t, err)
	assert.True(t, taken)

	// the article itself does not collide with its own slug
	taken, err = repo.SlugTaken(ctx, "notice", a.ID)
	require.NoError(t, err)
	assert.False(t, taken)

	taken, err = repo.SlugTaken(ctx, "other", 0)
	require.NoError(t, err)
	assert.False(t, taken)
}

func TestFindBySlugMissing(t *testing.T) {
	db := openTestDB(t)
	repo := NewRepositoryWithDB(db)

	got, err := repo.FindBySlug(context.Background(), "nope")
	require.NoError(t, err)
	assert.Nil(t, got)
}
