package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// LoginRequest holds credentials for authenticating a user. Role, when set,
// must match the stored role.
type LoginRequest struct {
	Username  string   `json:"username" validate:"required"`
	Password  string   `json:"password" validate:"required"`
	Role      UserRole `json:"role,omitempty" validate:"omitempty,oneof=STUDENT EMPLOYEE ADMIN"`
	IP        string   `json:"-"`
	UserAgent string   `json:"-"`
}

// LoginResponse returns the issued token and user info.
type LoginResponse struct {
	AccessToken string    `json:"access_token"`
	ExpiresIn   int64     `json:"expires_in"`
	User        UserInfo  `json:"user"`
	IssuedAt    time.Time `json:"issued_at"`
}

// RegisterRequest creates a new account.
type RegisterRequest struct {
	Username string   `json:"username" validate:"required,min=3,max=50"`
	Password string   `json:"password" validate:"required,min=6"`
	Role     UserRole `json:"role" validate:"required,oneof=STUDENT EMPLOYEE ADMIN"`
	Profile  Profile  `json:"profile" validate:"required"`
}

// ChangePasswordRequest payload for updating password.
type ChangePasswordRequest struct {
	OldPassword string `json:"old_password" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,min=6"`
}

// UpdateProfileRequest replaces the caller's profile.
type UpdateProfileRequest struct {
	Profile Profile `json:"profile" validate:"required"`
}

// UserInfo describes the authenticated user in responses.
type UserInfo struct {
	ID       string   `json:"id"`
	Username string   `json:"username"`
	Role     UserRole `json:"role"`
	Profile  Profile  `json:"profile"`
}

// JWTClaims represents the JWT payload for access tokens.
type JWTClaims struct {
	UserID   string   `json:"user_id"`
	Username string   `json:"username"`
	Role     UserRole `json:"role"`
	jwt.RegisteredClaims
}
