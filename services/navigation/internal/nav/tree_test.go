package nav

import (
	"testing"

	"github.com/civicms/pkg/dal"
	"github.com/civicms/services/navigation/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func entry(id int64, parent *int64, sortOrder int, label string) model.NavEntry {
	return model.NavEntry{
		Model:     dal.Model{ID: id},
		Label:     label,
		Href:      "/" + label,
		ParentID:  parent,
		MenuGroup: "main",
		Sort:      sortOrder,
		Active:    true,
	}
}

func ptr(v int64) *int64 { return &v }

func TestBuildTreeOrdersRootsAndAttachesChildren(t *testing.T) {
	entries := []model.NavEntry{
		entry(1, nil, 2, "Services"),
		entry(2, nil, 1, "Home"),
		entry(3, ptr(1), 1, "Permits"),
	}

	tree := BuildTree(entries)

	require.Len(t, tree, 2)
	assert.Equal(t, "Home", tree[0].Label)
	assert.Equal(t, "Services", tree[1].Label)
	require.Len(t, tree[1].Children, 1)
	assert.Equal(t, "Permits", tree[1].Children[0].Label)
	assert.Empty(t, tree[0].Children)
}

func TestBuildTreeDropsOrphans(t *testing.T) {
	entries := []model.NavEntry{
		entry(1, nil, 1, "Home"),
		entry(4, ptr(99), 1, "Orphan"),
	}

	tree := BuildTree(entries)

	require.Len(t, tree, 1)
	assert.Equal(t, "Home", tree[0].Label)
	for _, root := range tree {
		for _, child := range root.Children {
			assert.NotEqual(t, "Orphan", child.Label)
		}
	}
}

func TestBuildTreeCapsDepthAtTwoLevels(t *testing.T) {
	// 3 points at 2 which is itself a child: the chain is cut
	entries := []model.NavEntry{
		entry(1, nil, 1, "Root"),
		entry(2, ptr(1), 1, "Child"),
		entry(3, ptr(2), 1, "Grandchild"),
	}

	tree := BuildTree(entries)

	require.Len(t, tree, 1)
	require.Len(t, tree[0].Children, 1)
	assert.Equal(t, "Child", tree[0].Children[0].Label)
	assert.Empty(t, tree[0].Children[0].Children)
}

func TestBuildTreeIsIdempotent(t *testing.T) {
	entries := []model.NavEntry{
		entry(1, nil, 2, "Services"),
		entry(2, nil, 1, "Home"),
		entry(3, ptr(1), 2, "Permits"),
		entry(4, ptr(1), 1, "Licenses"),
	}

	first := BuildTree(entries)
	second := BuildTree(entries)

	assert.Equal(t, first, second)
}

func TestBuildTreeStableSortOnTies(t *testing.T) {
	// equal Sort keeps fetch order
	entries := []model.NavEntry{
		entry(10, nil, 1, "About"),
		entry(11, nil, 1, "Contact"),
		entry(12, nil, 1, "News"),
	}

	tree := BuildTree(entries)

	require.Len(t, tree, 3)
	assert.Equal(t, "About", tree[0].Label)
	assert.Equal(t, "Contact", tree[1].Label)
	assert.Equal(t, "News", tree[2].Label)
}

func TestBuildTreeEmptyInput(t *testing.T) {
	assert.Empty(t, BuildTree(nil))
	assert.Empty(t, BuildTree([]model.NavEntry{}))
}

func TestBuildTreeDoesNotMutateInput(t *testing.T) {
	entries := []model.NavEntry{
		entry(1, nil, 2, "Services"),
		entry(2, nil, 1, "Home"),
	}
	BuildTree(entries)

	assert.Equal(t, int64(1), entries[0].ID)
	assert.Equal(t, "Services", entries[0].Label)
	assert.Equal(t, int64(2), entries[1].ID)
}
