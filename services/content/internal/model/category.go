package model

import "github.com/civicms/pkg/dal"

// Category is a dictionary entry partitioning articles.
type Category struct {
	dal.Model
	Name   string `gorm:"size:128;not null" json:"name"`
	Slug   string `gorm:"size:128;uniqueIndex;not null" json:"slug"`
	Sort   int    `gorm:"default:0" json:"sort"`
	Active bool   `json:"active"`
}

// TableName returns the table name.
func (Category) TableName() string {
	return "category"
}
