package model

import "github.com/civicms/pkg/dal"

// Setting is one key/value site setting (office hours, hotline,
// address, social links).
type Setting struct {
	dal.Model
	Key    string `gorm:"size:128;uniqueIndex;not null" json:"key"`
	Value  string `gorm:"type:text" json:"value"`
	Label  string `gorm:"size:255" json:"label"`
	Public bool   `json:"public"` // served without auth
}

// TableName returns the table name.
func (Setting) TableName() string {
	return "setting"
}
