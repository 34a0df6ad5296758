package auth_models

import (
	"time"
)

// Roles understood by the access layer. Admins bypass per-sensor grant
// checks; regular users see only what they are granted.
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// User represents a user in the system
type User struct {
	UserID     string    `json:"user_id"`
	SecretHash string    `json:"-"` // bcrypt hash, never exposed
	Role       string    `json:"role"`
	CreatedAt  time.Time `json:"created_at"`
}

// NewUser creates a new User instance. The secret must already be hashed.
func NewUser(userID, secretHash, role string) *User {
	return &User{
		UserID:     userID,
		SecretHash: secretHash,
		Role:       role,
		CreatedAt:  time.Now(),
	}
}

// IsAdmin reports whether the user carries the admin role.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
