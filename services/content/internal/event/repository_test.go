package event

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
	require.NoError(t, db.AutoMigrate(&model.Event{}))
	return db
}

func TestUpcomingOrdersAndFilters(t *testing.T) {
	db := openTestDB(t)
	repo := NewRepositoryWithDB(db)
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, repo.Create(ctx, &model.Event{
		Title: "Past Cleanup Drive", StartsAt: now.Add(-48 * time.Hour), EndsAt: now.Add(-47 * time.Hour), Published: true,
	}))
	require.NoError(t, repo.Create(ctx, &model.Event{
		Title: "Next Week Job Fair", StartsAt: now.Add(7 * 24 * time.Hour), EndsAt: now.Add(7*24*time.Hour + time.Hour), Published: true,
	}))
	require.NoError(t, repo.Create(ctx, &model.Event{
		Title: "Tomorrow Vaccination", StartsAt: now.Add(24 * time.Hour), EndsAt: now.Add(25 * time.Hour), Published: true,
	}))
	require.NoError(t, repo.Create(ctx, &model.Event{
		Title: "Unpublished Meeting", StartsAt: now.Add(24 * time.Hour), EndsAt: now.Add(25 * time.Hour), Published: false,
	}))

	events, err := repo.Upcoming(ctx, now, 10)
	require.NoError(t, err)

	require.Len(t, events, 2)
	assert.Equal(t, "Tomorrow Vaccination", events[0].Title)
	assert.Equal(t, "Next Week Job Fair", events[1].Title)
}

func TestUpcomingLimit(t *testing.T) {
	db := openTestDB(t)
	repo := NewRepositoryWithDB(db)
	ctx := context.Background()
	now := time.Now()

	for i := 1; i <= 5; i++ {
		require.NoError(t, repo.Create(ctx, &model.Event{
			Title:     "Event",
			StartsAt:  now.Add(time.Duration(i) * time.Hour),
			EndsAt:    now.Add(time.Duration(i+1) * time.Hour),
			Published: true,
		}))
	}

	events, err := repo.Upcoming(ctx, now, 3)
	require.NoError(t, err)
	assert.Len(t, events, 3)
}
