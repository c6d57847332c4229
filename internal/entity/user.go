package entity

import (
	"time"
)

type Role string

const (
	RoleStudent         Role = "student"
	RoleDepartmentAdmin Role = "department-admin"
	RoleAdmin           Role = "admin"
)

func (r Role) IsValid() bool {
	switch r {
	case RoleStudent, RoleDepartmentAdmin, RoleAdmin:
		return true
	}
	return false
}

// User mirrors an identity owned by the external auth provider. ID is the
// provider's subject, not generated here.
type User struct {
	ID         string    `gorm:"size:255;primaryKey" json:"id"`
	Email      string    `gorm:"size:255;index" json:"email"`
	FirstName  string    `gorm:"size:255" json:"first_name"`
	LastName   string    `gorm:"size:255" json:"last_name"`
	Role       Role      `gorm:"size:30;not null;default:student;index:idx_users_role" json:"role"`
	Faculty    *Faculty  `gorm:"size:50" json:"faculty,omitempty"`
	Department *string   `gorm:"size:255" json:"department,omitempty"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// Actor is the authenticated caller as resolved by the identity layer.
type Actor struct {
	UserID     string
	Role       Role
	Faculty    Faculty
	Department string
}

func (a Actor) IsAuthenticated() bool {
	return a.UserID != "" && a.Role.IsValid()
}
