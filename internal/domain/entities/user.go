package entities

import (
	"fmt"
	"strings"
)

// Role is the workflow party a caller acts as
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleDoctor  Role = "doctor"
	RolePatient Role = "patient"
)

// ParseRole validates a role asserted by the caller
func ParseRole(s string) (Role, error) {
	switch Role(strings.ToLower(strings.TrimSpace(s))) {
	case RoleAdmin:
		return RoleAdmin, nil
	case RoleDoctor:
		return RoleDoctor, nil
	case RolePatient:
		return RolePatient, nil
	default:
		return "", fmt.Errorf("unknown role: %q", s)
	}
}

// Actor is an already-authenticated (role, user id) pair
type Actor struct {
	Role   Role   `json:"role"`
	UserID string `json:"user_id"`
}

// IsAdmin reports whether the actor is an admin
func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}

func (a Actor) String() string {
	return fmt.Sprintf("%s:%s", a.Role, a.UserID)
}
