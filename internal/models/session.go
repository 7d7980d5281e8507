package models

import (
	"fmt"
	"strings"
)

// Role selects which console a session opens.
type Role string

const (
	RoleAdmin Role = "ADMIN"
	RoleAgent Role = "AGENT"
)

// ParseRole accepts "admin"/"agent" in any case.
func ParseRole(value string) (Role, error) {
	switch Role(strings.ToUpper(strings.TrimSpace(value))) {
	case RoleAdmin:
		return RoleAdmin, nil
	case RoleAgent:
		return RoleAgent, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidRole, value)
	}
}

// Profile identifies the signed-in user.
type Profile struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Session is the signed-in role and profile.
type Session struct {
	Role    Role    `json:"role"`
	Profile Profile `json:"profile"`
}

// DemoProfile returns the fixed profile the login screen uses for role.
func DemoProfile(role Role) Profile {
	if role == RoleAdmin {
		return Profile{ID: "admin1", Name: "System Admin"}
	}
	return Profile{ID: "agent1", Name: "Alex Field"}
}
