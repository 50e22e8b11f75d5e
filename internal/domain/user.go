// Package domain contains entity without logic, just meta-data
package domain

import (
	"errors"
	"strings"
)

const (
	MaxUserIDLen = 64
	MaxEmailLen  = 254
)

var (
	ErrUserIDEmpty   = errors.New("user id empty")
	ErrUserIDTooLong = errors.New("user id too long")
	ErrEmailTooLong  = errors.New("email too long")
	ErrUnknownRole   = errors.New("unknown role")
)

type UserID string

type Role string

const (
	RoleAdmin   Role = "admin"
	RoleManager Role = "manager"
	RoleTester  Role = "tester"
	RoleMember  Role = "member"
	RoleViewer  Role = "viewer"
)

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleManager, RoleTester, RoleMember, RoleViewer:
		return true
	}
	return false
}

// Identity is derived once per connection from a verified credential.
// It never changes for the lifetime of that connection.
type Identity struct {
	UserID UserID `json:"id"`
	Email  string `json:"email"`
	Role   Role   `json:"role"`
}

// NewIdentity keeps claim validation out of the verifier. An empty role
// falls back to RoleMember.
func NewIdentity(userID, email, role string) (Identity, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return Identity{}, ErrUserIDEmpty
	}
	if len(userID) > MaxUserIDLen {
		return Identity{}, ErrUserIDTooLong
	}
	email = strings.TrimSpace(email)
	if len(email) > MaxEmailLen {
		return Identity{}, ErrEmailTooLong
	}
	r := Role(strings.ToLower(strings.TrimSpace(role)))
	if r == "" {
		r = RoleMember
	}
	if !r.Valid() {
		return Identity{}, ErrUnknownRole
	}
	return Identity{UserID: UserID(userID), Email: email, Role: r}, nil
}

// Ref is the {id,email} shape other events embed.
func (i Identity) Ref() UserRef {
	return UserRef{ID: i.UserID, Email: i.Email}
}
