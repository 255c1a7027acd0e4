package models

import "github.com/golang-jwt/jwt/v5"

// RegisterRequest holds the payload for creating an account.
type RegisterRequest struct {
	Name     string   `json:"name" validate:"required"`
	Email    string   `json:"email" validate:"required,email"`
	Password string   `json:"password" validate:"required,min=6"`
	Role     UserRole `json:"role" validate:"required,oneof=student tutor"`
}

// LoginRequest holds credentials for authenticating a user. Role is part of
// the lookup key: logging in with the wrong role is indistinguishable from
// wrong credentials.
type LoginRequest struct {
	Email    string   `json:"email" validate:"required,email"`
	Password string   `json:"password" validate:"required"`
	Role     UserRole `json:"role" validate:"required,oneof=student tutor"`
}

// AuthResponse returns the issued token alongside public user info.
type AuthResponse struct {
	Token string   `json:"-"`
	User  UserInfo `json:"user"`
}

// ChangePasswordRequest payload for updating the password in-session.
type ChangePasswordRequest struct {
	OldPassword string `json:"oldPassword" validate:"required"`
	NewPassword string `json:"newPassword" validate:"required,min=6"`
}

// ForgotPasswordRequest initiates the reset flow.
type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// ResetPasswordRequest completes the reset flow. The raw token travels in the
// URL path, not the body.
type ResetPasswordRequest struct {
	Password string `json:"password" validate:"required,min=6"`
}

// UpdateProfileRequest is a partial update restricted to an explicit
// allow-list of fields. Nil means "leave unchanged".
type UpdateProfileRequest struct {
	Name  *string `json:"name,omitempty"`
	Phone *string `json:"phone,omitempty"`
	Bio   *string `json:"bio,omitempty"`
}

// JWTClaims represents the JWT payload for session tokens.
type JWTClaims struct {
	UserID string   `json:"user_id"`
	Role   UserRole `json:"role"`
	Email  string   `json:"email"`
	Name   string   `json:"name"`
	jwt.RegisteredClaims
}
