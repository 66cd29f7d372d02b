package models

import (
	"time"

	"gorm.io/gorm"
)

// Role is the access level attached to a user account
type Role string

const (
	RoleAdmin     Role = "admin"
	RoleLibrarian Role = "librarian"
	RoleStudent   Role = "student"
)

// User represents anyone who can sign in: platform admins, librarians and students
type User struct {
	gorm.Model
	Name        string     `json:"name" gorm:"not null"`
	Email       string     `json:"email" gorm:"uniqueIndex;not null"`
	Password    string     `json:"-"`
	Role        Role       `json:"role" gorm:"type:varchar(20);not null;index"`
	Phone       string     `json:"phone"`
	LibraryID   *uint      `json:"library_id,omitempty" gorm:"index"`
	IsActive    bool       `json:"is_active" gorm:"default:true"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
}

// HasRole reports whether the user holds one of the given roles
func (u *User) HasRole(roles ...Role) bool {
	for _, r := range roles {
		if u.Role == r {
			return true
		}
	}
	return false
}
