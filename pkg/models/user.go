package models

import (
	"time"

	"gorm.io/gorm"
)

// UserRole represents a user's role in the CRM.
type UserRole string

const (
	RoleAdmin        UserRole = "admin"
	RoleSalesManager UserRole = "sales_manager"
	RoleSales        UserRole = "sales"
	RoleViewer       UserRole = "viewer"
)

// User represents a CRM user account.
type User struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	Email        string         `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash string         `gorm:"not null" json:"-"`
	Name         string         `gorm:"not null" json:"name"`
	Role         UserRole       `gorm:"type:varchar(32);default:'sales';index" json:"role"`
	IsActive     bool           `gorm:"default:true" json:"is_active"`
	LastLoginAt  *time.Time     `json:"last_login_at,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
}

// IsSalesRole reports whether the user participates in lead distribution.
func (u *User) IsSalesRole() bool {
	return u.Role == RoleSales || u.Role == RoleSalesManager
}
