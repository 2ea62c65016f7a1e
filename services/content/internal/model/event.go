package model

import (
	"time"

	"github.com/civicms/pkg/dal"
)

// Event is a scheduled municipal activity.
type Event struct {
	dal.ModelWithUser
	Title       string    `gorm:"size:255;not null" json:"title"`
	Description string    `gorm:"type:text" json:"description"`
	Venue       string    `gorm:"size:255" json:"venue"`
	StartsAt    time.Time `gorm:"index;not null" json:"startsAt"`
	EndsAt      time.Time `json:"endsAt"`
	Published   bool      `json:"published"`
}

// TableName returns the table name.
func (Event) TableName() string {
	return "event"
}
