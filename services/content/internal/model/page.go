package model

import "github.com/civicms/pkg/dal"

// Page is a slug-addressed static page (governance, tourism, about).
type Page struct {
	dal.ModelWithUser
	Title     string `gorm:"size:255;not null" json:"title"`
	Slug      string `gorm:"size:255;uniqueIndex;not null" json:"slug"`
	Body      string `gorm:"type:text" json:"body"`
	Published bool   `json:"published"`
}

// TableName returns the table name.
func (Page) TableName() string {
	return "page"
}
