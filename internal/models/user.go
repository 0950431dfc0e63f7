package models

import (
	"strings"
	"time"
)

type UserRole string

const (
	RoleAdmin   UserRole = "admin"
	RoleManager UserRole = "manager"
	RoleSales   UserRole = "sales"
)

// DefaultRole is what NormalizeRole falls back to.
const DefaultRole = RoleSales

var Roles = []UserRole{RoleAdmin, RoleManager, RoleSales}

// NormalizeRole maps free-form input onto the closed role set. Anything outside it becomes
// DefaultRole; it is never rejected.
func NormalizeRole(raw string) UserRole {
	role := UserRole(strings.ToLower(strings.TrimSpace(raw)))
	for _, r := range Roles {
		if r == role {
			return role
		}
	}
	return DefaultRole
}

type User struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Username     string    `gorm:"uniqueIndex;size:50;not null;check:username = lower(trim(username))" json:"username"`
	PasswordHash string    `gorm:"not null" json:"-"`
	FullName     *string   `gorm:"size:255" json:"full_name"`
	Email        *string   `gorm:"uniqueIndex;size:255;check:email IS NULL OR email = lower(trim(email))" json:"email"`
	Role         UserRole  `gorm:"type:varchar(20);not null;default:'sales';check:role IN ('admin','manager','sales')" json:"role"`
	CreatedAt    time.Time `json:"created_at"`
}

// DisplayName is the full name when present, the username otherwise.
func (u User) DisplayName() string {
	if u.FullName != nil && *u.FullName != "" {
		return *u.FullName
	}
	return u.Username
}

// FoldIdentifier is the canonical stored form of usernames and user emails.
func FoldIdentifier(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
