package users

import (
	"strings"
)

// GroupType is a permission group the API assigns to an account.
type GroupType string

const (
	GroupModerators GroupType = "Moderators"
	GroupEditors    GroupType = "Editors"
)

// Profile is the snapshot of the signed-in account returned by the login and /auth/me/ endpoints.
// A serialized copy is persisted next to the refresh credential so a restarted process can
// restore the session optimistically.
type Profile struct {
	ID        int64       `json:"id"`                   // Server-side identifier
	Email     string      `json:"email"`                // Login identifier
	FirstName string      `json:"first_name,omitempty"` // First name of the user
	LastName  string      `json:"last_name,omitempty"`  // Last name of the user
	IsActive  bool        `json:"is_active"`            // IsActive, accounts need external activation before use
	IsStaff   bool        `json:"is_staff"`             // IsStaff, administrator privileges
	Groups    []GroupType `json:"groups,omitempty"`     // Permission groups
}

// DisplayName returns "First Last", falling back to the email address.
func (p *Profile) DisplayName() string {
	name := strings.TrimSpace(p.FirstName + " " + p.LastName)
	if name == "" {
		return p.Email
	}
	return name
}

// HasGroup reports whether the profile belongs to the given permission group.
func (p *Profile) HasGroup(group GroupType) bool {
	for _, g := range p.Groups {
		if g == group {
			return true
		}
	}
	return false
}

func (p *Profile) IsModerator() bool {
	return p.HasGroup(GroupModerators)
}

// Clone returns a deep copy so callers cannot mutate stored state.
func (p *Profile) Clone() *Profile {
	if p == nil {
		return nil
	}
	c := *p
	c.Groups = append([]GroupType(nil), p.Groups...)
	return &c
}
