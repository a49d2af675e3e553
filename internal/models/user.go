package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// UserRole represents the available roles for the RBAC system.
type UserRole string

const (
	RoleStudent  UserRole = "STUDENT"
	RoleEmployee UserRole = "EMPLOYEE"
	RoleAdmin    UserRole = "ADMIN"
)

// Valid reports whether the role is one of the known roles.
func (r UserRole) Valid() bool {
	switch r {
	case RoleStudent, RoleEmployee, RoleAdmin:
		return true
	default:
		return false
	}
}

// Profile carries personal and academic details persisted as JSONB.
type Profile struct {
	Name        string `json:"name" validate:"required,max=120"`
	Email       string `json:"email,omitempty" validate:"omitempty,email"`
	Contact     string `json:"contact,omitempty" validate:"omitempty,max=20"`
	RollNo      string `json:"rollNo,omitempty" validate:"omitempty,max=30"`
	Branch      string `json:"branch,omitempty" validate:"omitempty,max=60"`
	Section     string `json:"section,omitempty" validate:"omitempty,max=10"`
	Department  string `json:"department,omitempty" validate:"omitempty,max=60"`
	Designation string `json:"designation,omitempty" validate:"omitempty,max=60"`
}

// Value marshals the profile to JSON for persistence.
func (p Profile) Value() (driver.Value, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("marshal profile: %w", err)
	}
	return data, nil
}

// Scan unmarshals JSON payloads into the profile.
func (p *Profile) Scan(value interface{}) error {
	return scanJSON(value, p, "profile")
}

// User represents an application user stored in the users table.
type User struct {
	ID           string     `db:"id" json:"id"`
	Username     string     `db:"username" json:"username"`
	PasswordHash string     `db:"password_hash" json:"-"`
	Role         UserRole   `db:"role" json:"role"`
	Profile      Profile    `db:"profile" json:"profile"`
	Active       bool       `db:"active" json:"active"`
	LastLogin    *time.Time `db:"last_login" json:"last_login,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}

// DisplayName prefers the profile name and falls back to the username.
func (u *User) DisplayName() string {
	if u == nil {
		return ""
	}
	if u.Profile.Name != "" {
		return u.Profile.Name
	}
	return u.Username
}

// UserFilter captures filtering criteria for listing users.
type UserFilter struct {
	Role     *UserRole
	Active   *bool
	Page     int
	PageSize int
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}

func scanJSON(value interface{}, dest interface{}, name string) error {
	var data []byte
	switch v := value.(type) {
	case nil:
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported type %T for %s", value, name)
	}
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("unmarshal %s: %w", name, err)
	}
	return nil
}
