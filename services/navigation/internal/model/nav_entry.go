package model

import "github.com/civicms/pkg/dal"

// NavEntry is one navigation menu item. ParentID nil means top-level;
// entries pointing at a missing parent are dropped by the tree
// builder.
type NavEntry struct {
	dal.Model
	Label     string `gorm:"size:128;not null" json:"label"`
	Href      string `gorm:"size:255;not null" json:"href"`
	ParentID  *int64 `gorm:"index" json:"parentId"`
	MenuGroup string `gorm:"size:64;index;not null;default:main" json:"menuGroup"`
	Sort      int    `gorm:"default:0" json:"sort"`
	Active    bool   `json:"active"`
	NewTab    bool   `gorm:"default:false" json:"newTab"`
}

// TableName returns the table name.
func (NavEntry) TableName() string {
	return "nav_entry"
}
