package domain

import (
	"errors"
	"strings"
	"time"
)

// Role is a platform role. Authorization always uses the role stored on the
// user row, never a role carried inside a token.
type Role string

const (
	RoleGod     Role = "god"
	RoleAdmin   Role = "admin"
	RoleStaff   Role = "staff"
	RoleTeacher Role = "teacher"
	RoleStudent Role = "student"
)

// ParseRole normalizes and validates a role name. Returns an error for unknown roles.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	switch r {
	case RoleGod, RoleAdmin, RoleStaff, RoleTeacher, RoleStudent:
		return r, nil
	}
	return "", errors.New("unknown role: " + s)
}

// User is the core user entity.
type User struct {
	ID        string
	Email     string
	Name      string
	Role      Role
	Status    UserStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}

type UserStatus string

const (
	UserStatusActive   UserStatus = "active"
	UserStatusDisabled UserStatus = "disabled"
)

// Active reports whether the user may hold a usable session.
func (u *User) Active() bool {
	return u.Status == UserStatusActive
}

// Validate validates the user for persistence. Returns an error describing the first validation failure.
func (u *User) Validate() error {
	if u.Email == "" {
		return errors.New("email is required")
	}
	if _, err := ParseRole(string(u.Role)); err != nil {
		return err
	}
	if u.Status == "" {
		u.Status = UserStatusActive
	}
	return nil
}
