package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Roles that may edit site content.
const (
	RoleEditor = "editor"
	RoleAdmin  = "admin"
)

// User is an editor account. Site visitors never sign in.
type User struct {
	ID        uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Email     string         `gorm:"not null;size:255;uniqueIndex" json:"email"`
	Password  string         `gorm:"not null" json:"-"`
	Role      string         `gorm:"size:20;default:'editor'" json:"role"`
	CreatedBy *uuid.UUID     `gorm:"type:uuid" json:"created_by,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// CanEdit reports whether the account holds an editing role.
func (u *User) CanEdit() bool {
	return u.Role == RoleEditor || u.Role == RoleAdmin
}
