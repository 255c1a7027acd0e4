package models

import "time"

// UserRole distinguishes the two sides of the marketplace.
type UserRole string

const (
	RoleStudent UserRole = "student"
	RoleTutor   UserRole = "tutor"
)

// ValidRole reports whether the role is one a user may register with.
func ValidRole(role UserRole) bool {
	return role == RoleStudent || role == RoleTutor
}

// User represents an account stored in the users table. The password hash and
// reset-token fields are write-only and never serialized.
type User struct {
	ID                string     `db:"id" json:"id"`
	Name              string     `db:"name" json:"name"`
	Email             string     `db:"email" json:"email"`
	PasswordHash      string     `db:"password_hash" json:"-"`
	Role              UserRole   `db:"role" json:"role"`
	Phone             string     `db:"phone" json:"phone,omitempty"`
	Bio               string     `db:"bio" json:"bio,omitempty"`
	AvatarURL         string     `db:"avatar_url" json:"avatar_url,omitempty"`
	AvatarKey         string     `db:"avatar_key" json:"-"`
	Active            bool       `db:"active" json:"active"`
	ResetTokenHash    *string    `db:"reset_token_hash" json:"-"`
	ResetTokenExpires *time.Time `db:"reset_token_expires" json:"-"`
	CreatedAt         time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time  `db:"updated_at" json:"updated_at"`
}

// Info returns the public view of the user embedded in auth responses.
func (u *User) Info() UserInfo {
	return UserInfo{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Role:      u.Role,
		AvatarURL: u.AvatarURL,
	}
}

// UserInfo describes a user in API responses.
type UserInfo struct {
	ID        string   `db:"id" json:"id"`
	Name      string   `db:"name" json:"name"`
	Email     string   `db:"email" json:"email"`
	Role      UserRole `db:"role" json:"role"`
	AvatarURL string   `db:"avatar_url" json:"avatar_url,omitempty"`
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
