package models

import (
	"time"
)

type User struct {
	ID           uint      `json:"_id" gorm:"primaryKey"`
	Name         string    `json:"name" gorm:"not null"`
	Email        string    `json:"email" gorm:"uniqueIndex;not null"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role" gorm:"not null;default:'user'"` // user, admin
	IsActive     bool      `json:"isActive" gorm:"not null;default:true"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

type UserRole string

const (
	RoleAdmin UserRole = "admin"
	RoleUser  UserRole = "user"
)

func ValidRole(role string) bool {
	return role == string(RoleAdmin) || role == string(RoleUser)
}

func (u *User) IsAdmin() bool {
	return u.Role == string(RoleAdmin)
}

// HasPassword reports whether the setup link has been used.
func (u *User) HasPassword() bool {
	return u.PasswordHash != ""
}
