package models

import (
	"encoding/json"
	"strings"
	"time"
)

const (
	// AdminUserID is the ID assigned to the bootstrap admin account.
	AdminUserID = "admin"
	// AdminEmail is the email of the bootstrap admin account.
	AdminEmail = "admin@homestead.local"
)

// Role is the access level assigned to a user account.
type Role string

const (
	RoleUser      Role = "USER"
	RoleAdmin     Role = "ADMIN"
	RoleModerator Role = "MODERATOR"
	RoleAgent     Role = "AGENT"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAdmin, RoleModerator, RoleAgent:
		return true
	}
	return false
}

// CanManageListings reports whether the role may edit listings it does not own.
func (r Role) CanManageListings() bool {
	return r == RoleAdmin || r == RoleModerator
}

// User represents a marketplace account. Admins can manage all users and
// listings; agents publish listings on behalf of clients; regular users
// browse and manage their own listings.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Username     string    `json:"username"`
	FirstName    string    `json:"firstName,omitempty"`
	LastName     string    `json:"lastName,omitempty"`
	Role         Role      `json:"role"`
	IsActive     bool      `json:"isActive"`
	PasswordHash string    `json:"-"` // bcrypt hash, excluded from JSON API responses (security)
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// DisplayName returns the user's full name, falling back to the username.
func (u User) DisplayName() string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		return u.Username
	}
	return name
}

// MarshalJSON includes the computed displayName field in API responses.
func (u User) MarshalJSON() ([]byte, error) {
	type UserAlias User // prevent recursion
	return json.Marshal(&struct {
		UserAlias
		DisplayName string `json:"displayName"`
	}{
		UserAlias:   UserAlias(u),
		DisplayName: u.DisplayName(),
	})
}

// UserStorage is the internal representation used for file persistence.
// Unlike User, this includes the password hash.
type UserStorage struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Username     string    `json:"username"`
	FirstName    string    `json:"firstName,omitempty"`
	LastName     string    `json:"lastName,omitempty"`
	Role         Role      `json:"role"`
	IsActive     bool      `json:"isActive"`
	PasswordHash string    `json:"passwordHash"` // Included for storage only
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// ToStorage converts a User to UserStorage for persistence.
func (u User) ToStorage() UserStorage {
	return UserStorage{
		ID:           u.ID,
		Email:        u.Email,
		Username:     u.Username,
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		Role:         u.Role,
		IsActive:     u.IsActive,
		PasswordHash: u.PasswordHash,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

// ToUser converts a UserStorage back to User.
func (us UserStorage) ToUser() User {
	return User{
		ID:           us.ID,
		Email:        us.Email,
		Username:     us.Username,
		FirstName:    us.FirstName,
		LastName:     us.LastName,
		Role:         us.Role,
		IsActive:     us.IsActive,
		PasswordHash: us.PasswordHash,
		CreatedAt:    us.CreatedAt,
		UpdatedAt:    us.UpdatedAt,
	}
}
