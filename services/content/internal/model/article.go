package model

import (
	"time"

	"github.com/civicms/pkg/dal"
)

// Article statuses.
const (
	StatusDraft     = "draft"
	StatusPublished = "published"
)

// Article is a news post or announcement.
type Article struct {
	dal.ModelWithUser
	Title       string     `gorm:"size:255;not null" json:"title"`
	Slug        string     `gorm:"size:255;uniqueIndex;not null" json:"slug"`
	Summary     string     `gorm:"size:500" json:"summary"`
	Body        string     `gorm:"type:text" json:"body"`
	CoverImage  string     `gorm:"size:255" json:"coverImage"`
	CategoryID  int64      `gorm:"index" json:"categoryId"`
	Status      string     `gorm:"size:16;index;default:draft" json:"status"`
	PublishedAt *time.Time `gorm:"index" json:"publishedAt"`

	Category *Category `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
}

// TableName returns the table name.
func (Article) TableName() string {
	return "article"
}

// Published reports whether the article is publicly visible.
func (a *Article) Published() bool {
	return a.Status == StatusPublished &&
		a.PublishedAt != nil &&
		!a.PublishedAt.After(time.Now())
}
