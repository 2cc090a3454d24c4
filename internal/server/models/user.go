// Package models holds the flat records the identity core passes around.
package models

import (
	"fmt"
	"time"
)

// Role is the privilege level of an account. It is decided once, at
// registration, and never recomputed from the email afterwards.
type Role string

const (
	RoleReader Role = "reader"
	RoleAuthor Role = "author"
)

// ParseRole maps a stored or transmitted role name back to a Role.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleReader, RoleAuthor:
		return Role(s), nil
	default:
		return "", fmt.Errorf("unknown role %q", s)
	}
}

func (r Role) IsAuthor() bool { return r == RoleAuthor }

// User is the sole identity record. PasswordHash must never leave the
// process; it is excluded from JSON on purpose.
type User struct {
	ID           int64
	Email        string
	PasswordHash string `json:"-"`
	DisplayName  string
	Role         Role
	Active       bool
	CreatedAt    time.Time
}

func (u *User) IsAuthor() bool { return u != nil && u.Role.IsAuthor() }

// String omits the hash so users can be logged safely.
func (u User) String() string {
	return fmt.Sprintf("User{ID:%d Email:%s Role:%s Active:%t}", u.ID, u.Email, u.Role, u.Active)
}
