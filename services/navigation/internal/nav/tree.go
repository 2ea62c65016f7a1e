package nav

import (
	"sort"

	"github.com/civicms/services/navigation/internal/model"
)

// TreeNode is one rendered menu node. Depth is capped at two levels:
// children never carry children of their own.
type TreeNode struct {
	ID       int64       `json:"id"`
	Label    string      `json:"label"`
	Href     string      `json:"href"`
	NewTab   bool        `json:"newTab"`
	Sort     int         `json:"sort"`
	Children []*TreeNode `json:"children,omitempty"`
}

// BuildTree assembles a two-level menu from a flat entry list.
//
// Roots are entries without a parent; children attach to their root by
// ParentID. Both levels sort by Sort ascending, ties keeping the input
// order. Entries whose parent is absent from the list are dropped.
// The input is never mutated; calling twice yields identical trees.
func BuildTree(entries []model.NavEntry) []*TreeNode {
	if len(entries) == 0 {
		return []*TreeNode{}
	}

	roots := make([]*TreeNode, 0, len(entries))
	byID := make(map[int64]*TreeNode, len(entries))

	for _, entry := range entries {
		if entry.ParentID != nil {
			continue
		}
		node := &TreeNode{
			ID:     entry.ID,
			Label:  entry.Label,
			Href:   entry.Href,
			NewTab: entry.NewTab,
			Sort:   entry.Sort,
		}
		roots = append(roots, node)
		byID[entry.ID] = node
	}

	for _, entry := range entries {
		if entry.ParentID == nil {
			continue
		}
		parent, ok := byID[*entry.ParentID]
		if !ok {
			// orphan, or parent is itself a child: dropped either way
			continue
		}
		parent.Children = append(parent.Children, &TreeNode{
			ID:     entry.ID,
			Label:  entry.Label,
			Href:   entry.Href,
			NewTab: entry.NewTab,
			Sort:   entry.Sort,
		})
	}

	sort.SliceStable(roots, func(i, j int) bool {
		return roots[i].Sort < roots[j].Sort
	})
	for _, root := range roots {
		sort.SliceStable(root.Children, func(i, j int) bool {
			return root.Children[i].Sort < root.Children[j].Sort
		})
	}

	return roots
}
