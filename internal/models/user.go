package models

import "time"

// UserRole identifies the access level of an account.
type UserRole string

// UserRole constants define the supported roles.
const (
	// RoleAdmin grants access to the admin console.
	RoleAdmin UserRole = "admin"
	// RoleUser grants access to the end-user portal.
	RoleUser UserRole = "user"
)

// Valid reports whether the role is one of the supported values.
func (r UserRole) Valid() bool {
	return r == RoleAdmin || r == RoleUser
}

// User represents an account stored in the database.
type User struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	Name         string   `gorm:"type:varchar(100);not null"`             // Display name.
	Email        string   `gorm:"type:varchar(255);not null;uniqueIndex"` // Unique email address.
	PasswordHash string   `gorm:"type:varchar(255);not null"`             // Bcrypt password hash.
	Role         UserRole `gorm:"type:varchar(20);not null"`              // Account role.

	TOTPSecret string `gorm:"type:text"` // TOTP secret when MFA is enrolled (admins only).

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}
