package domain

import (
	"strings"
	"time"
)

// UserRole determines eligibility as an assignment target.
type UserRole string

const (
	RoleUser      UserRole = "user"
	RoleModerator UserRole = "moderator"
	RoleAdmin     UserRole = "admin"
)

// User is the domain model for accounts that sign up and, depending on role,
// receive ticket assignments. Skills drive moderator selection.
type User struct {
	ID        string
	Email     string
	Role      UserRole
	Skills    []string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// HasSkill reports whether the user lists the given skill. Matching is
// case-insensitive whole-token equality: "python" matches "Python" but "go"
// does not match "mongo".
func (u *User) HasSkill(skill string) bool {
	for _, s := range u.Skills {
		if strings.EqualFold(s, skill) {
			return true
		}
	}
	return false
}

// HasAnySkill reports whether any of the given skills matches one of the
// user's skills.
func (u *User) HasAnySkill(skills []string) bool {
	for _, skill := range skills {
		if u.HasSkill(skill) {
			return true
		}
	}
	return false
}
