package domain

import "time"

// Roles
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User Model
type User struct {
	ID           uint      `gorm:"primaryKey" json:"id"`                         // Primary key
	Username     string    `gorm:"uniqueIndex;size:64;not null" json:"username"` // Unique username
	Email        *string   `gorm:"uniqueIndex;size:255" json:"email"`            // Optional unique email
	Phone        string    `gorm:"size:32" json:"phone"`                         // Contact phone
	CitizenID    *string   `gorm:"uniqueIndex;size:13" json:"citizen_id"`        // Optional 13-digit citizen ID
	PasswordHash string    `gorm:"not null" json:"-"`                            // bcrypt hash, never serialized
	Role         string    `gorm:"size:16;default:user" json:"role"`             // Role: user or admin
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// IsAdmin reports whether the user holds the admin role
func (u *User) IsAdmin() bool { return u.Role == RoleAdmin }
