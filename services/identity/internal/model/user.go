package model

import (
	"time"

	"github.com/civicms/pkg/dal"
)

// User is a staff or citizen account.
type User struct {
	dal.Model
	Username    string `gorm:"size:64;uniqueIndex;not null" json:"username"`
	Email       string `gorm:"size:128;uniqueIndex;not null" json:"email"`
	Password    string `gorm:"size:128;not null" json:"-"`
	DisplayName string `gorm:"size:128" json:"displayName"`
	Avatar      string `gorm:"size:255" json:"avatar"`
	Status      int    `gorm:"default:1" json:"status"` // 1 active, 2 disabled

	Assignments []RoleAssignment `gorm:"foreignKey:UserID" json:"assignments,omitempty"`
}

// TableName returns the table name.
func (User) TableName() string {
	return "user"
}

// RoleAssignment links a user to one role code. A user with no rows is
// a plain user.
type RoleAssignment struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    int64     `gorm:"uniqueIndex:idx_user_role;not null" json:"userId"`
	Role      string    `gorm:"size:32;uniqueIndex:idx_user_role;not null" json:"role"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"createdAt"`
}

// TableName returns the table name.
func (RoleAssignment) TableName() string {
	return "role_assignment"
}
