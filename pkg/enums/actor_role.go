package enums

import "fmt"

// ActorRole is the caller's role carried in the access token. Pricing
// managers submit and approve records; viewers only read.
type ActorRole string

const (
	ActorRoleAdmin          ActorRole = "admin"
	ActorRolePricingManager ActorRole = "pricing_manager"
	ActorRoleViewer         ActorRole = "viewer"
)

var validActorRoles = []ActorRole{
	ActorRoleAdmin,
	ActorRolePricingManager,
	ActorRoleViewer,
}

// String implements fmt.Stringer.
func (r ActorRole) String() string {
	return string(r)
}

// IsValid reports whether the value is a known ActorRole.
func (r ActorRole) IsValid() bool {
	for _, candidate := range validActorRoles {
		if candidate == r {
			return true
		}
	}
	return false
}

// CanWrite reports whether the role may submit or approve pricing records.
func (r ActorRole) CanWrite() bool {
	return r == ActorRoleAdmin || r == ActorRolePricingManager
}

// ParseActorRole converts raw input into an ActorRole.
func ParseActorRole(value string) (ActorRole, error) {
	for _, candidate := range validActorRoles {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid actor role %q", value)
}
