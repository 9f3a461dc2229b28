package model

import (
	"strings"
	"time"
)

// Role is the access level of a user
type Role string

const (
	RoleCitizen   Role = "citizen"
	RoleModerator Role = "moderator"
	RoleOfficial  Role = "official"
	RoleAdmin     Role = "admin"
)

// Roles lists every assignable role
var Roles = []Role{RoleCitizen, RoleModerator, RoleOfficial, RoleAdmin}

// ParseRole returns the role named by s, or false if s is not a known role
func ParseRole(s string) (Role, bool) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Roles {
		if r == known {
			return r, true
		}
	}
	return "", false
}

// CanModerate reports whether the role may approve or reject pending reports
func (r Role) CanModerate() bool {
	return r == RoleModerator || r == RoleAdmin
}

// CanChangeStatus reports whether the role may drive an approved report's status
func (r Role) CanChangeStatus() bool {
	return r == RoleOfficial || r == RoleAdmin
}

// IsStaff is true for every role except citizen
func (r Role) IsStaff() bool {
	return r == RoleModerator || r == RoleOfficial || r == RoleAdmin
}

// User represents a messenger user known to the system
type User struct {
	ID           int64     `json:"id"` // messenger user id, also the chat id for direct messages
	Username     string    `json:"username,omitempty"`
	FirstName    string    `json:"first_name,omitempty"`
	LastName     string    `json:"last_name,omitempty"`
	Role         Role      `json:"role"`
	RegisteredAt time.Time `json:"registered_at"`
}

// Profile is the part of a user supplied by the messenger on each contact
type Profile struct {
	Username  string
	FirstName string
	LastName  string
}

// DisplayName joins first and last name, falling back to the username
func (u *User) DisplayName() string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name != "" {
		return name
	}
	return u.Username
}
