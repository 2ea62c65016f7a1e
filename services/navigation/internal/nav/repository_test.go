package nav

import (
	"context"
	"testing"

	"github.com/civicms/services/navigation/internal/model"
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
	require.NoError(t, db.AutoMigrate(&model.NavEntry{}))
	return db
}

func TestActiveByGroupOrdersBySortThenID(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, db.Create(&[]model.NavEntry{
		{Label: "B", Href: "/b", MenuGroup: "main", Sort: 2, Active: true},
		{Label: "A", Href: "/a", MenuGroup: "main", Sort: 1, Active: true},
		{Label: "C", Href: "/c", MenuGroup: "main", Sort: 1, Active: true},
		{Label: "Hidden", Href: "/h", MenuGroup: "main", Sort: 0, Active: false},
		{Label: "Footer", Href: "/f", MenuGroup: "footer", Sort: 1, Active: true},
	}).Error)

	repo := NewRepositoryWithDB(db)

	entries, err := repo.ActiveByGroup(context.Background(), "main")
	require.NoError(t, err)

	require.Len(t, entries, 3)
	assert.Equal(t, "A", entries[0].Label) // sort 1, lower id than C
	assert.Equal(t, "C", entries[1].Label)
	assert.Equal(t, "B", entries[2].Label)
}

func TestGroups(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, Seed(db))

	repo := NewRepositoryWithDB(db)

	groups, err := repo.Groups(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"footer", "main"}, groups)
}

func TestSeedIsIdempotent(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, Seed(db))

	var first int64
	require.NoError(t, db.Model(&model.NavEntry{}).Count(&first).Error)

	require.NoError(t, Seed(db))

	var second int64
	require.NoError(t, db.Model(&model.NavEntry{}).Count(&second).Error)
	assert.Equal(t, first, second)
}

func TestSeededMainMenuBuildsTwoLevelTree(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, Seed(db))

	repo := NewRepositoryWithDB(db)
	entries, err := repo.ActiveByGroup(context.Background(), "main")
	require.NoError(t, err)

	tree := BuildTree(entries)
	require.NotEmpty(t, tree)
	assert.Equal(t, "Home", tree[0].Label)

	var services *TreeNode
	for _, node := range tree {
		if node.Label == "Services" {
			services = node
		}
	}
	require.NotNil(t, services)
	assert.Len(t, services.Children, 3)
	assert.Equal(t, "Business Permits", services.Children[0].Label)
}
