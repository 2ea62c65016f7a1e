package model

import "github.com/civicms/pkg/dal"

// Document is a downloadable file: forms, ordinances, and the BAC
// procurement papers. BAC documents are only served to BAC and admin
// callers.
type Document struct {
	dal.ModelWithUser
	Title       string `gorm:"size:255;not null" json:"title"`
	Description string `gorm:"size:500" json:"description"`
	FileName    string `gorm:"size:255;not null" json:"fileName"` // original upload name
	StoredName  string `gorm:"size:64;uniqueIndex;not null" json:"-"` // uuid name on disk
	ContentType string `gorm:"size:128" json:"contentType"`
	Size        int64  `json:"size"`
	BAC         bool   `gorm:"column:bac;index;default:false" json:"bac"`
	Published   bool   `json:"published"`
}

// TableName returns the table name.
func (Document) TableName() string {
	return "document"
}
