package model

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Role is one of the closed set of portal roles.
type Role uint8

const (
	RoleClient Role = iota + 1
	RoleAdmin
)

// rolePrefix is how the REST API and the persisted record spell role tags.
const rolePrefix = "ROLE_"

func (r Role) String() string {
	switch r {
	case RoleClient:
		return "CLIENT"
	case RoleAdmin:
		return "ADMIN"
	}
	return fmt.Sprintf("Role(%d)", uint8(r))
}

// Tag returns the wire spelling, e.g. "ROLE_ADMIN".
func (r Role) Tag() string {
	return rolePrefix + r.String()
}

// IsValid reports whether r is a known role.
func (r Role) IsValid() bool {
	return r == RoleClient || r == RoleAdmin
}

// ParseRole accepts "ROLE_ADMIN", "ADMIN" or "admin".
func ParseRole(s string) (Role, error) {
	name := strings.ToUpper(strings.TrimSpace(s))
	name = strings.TrimPrefix(name, rolePrefix)
	switch name {
	case "CLIENT":
		return RoleClient, nil
	case "ADMIN":
		return RoleAdmin, nil
	}
	return 0, fmt.Errorf("unknown role %q", s)
}

// Tier is the privilege ordinal used for access decisions.
type Tier int

const (
	TierAnonymous Tier = iota
	TierClient
	TierAdmin
)

func (t Tier) String() string {
	switch t {
	case TierAnonymous:
		return "anonymous"
	case TierClient:
		return "client"
	case TierAdmin:
		return "admin"
	}
	return fmt.Sprintf("Tier(%d)", int(t))
}

// AtLeast reports whether t grants at least the privilege of other.
func (t Tier) AtLeast(other Tier) bool {
	return t >= other
}

// RoleSet is a set of roles. The zero value is empty.
type RoleSet uint8

// NewRoleSet builds a set from the given roles, ignoring invalid ones.
func NewRoleSet(roles ...Role) RoleSet {
	var s RoleSet
	for _, r := range roles {
		s = s.With(r)
	}
	return s
}

// ParseRoleSet parses wire tags. Unrecognised tags are dropped; the set is
// closed, so a foreign tag never grants anything.
func ParseRoleSet(tags []string) RoleSet {
	var s RoleSet
	for _, tag := range tags {
		if r, err := ParseRole(tag); err == nil {
			s = s.With(r)
		}
	}
	return s
}

func (s RoleSet) With(r Role) RoleSet {
	if !r.IsValid() {
		return s
	}
	return s | 1<<r
}

func (s RoleSet) Has(r Role) bool {
	return r.IsValid() && s&(1<<r) != 0
}

// Roles lists the members in ascending order.
func (s RoleSet) Roles() []Role {
	var out []Role
	for _, r := range []Role{RoleClient, RoleAdmin} {
		if s.Has(r) {
			out = append(out, r)
		}
	}
	return out
}

// Tags lists the members in wire spelling.
func (s RoleSet) Tags() []string {
	roles := s.Roles()
	out := make([]string, len(roles))
	for i, r := range roles {
		out[i] = r.Tag()
	}
	return out
}

// Tier is the highest tier granted by the set. An empty set still belongs to
// an authenticated identity, so it maps to TierClient.
func (s RoleSet) Tier() Tier {
	if s.Has(RoleAdmin) {
		return TierAdmin
	}
	return TierClient
}

// Primary is the role shown in the navigation bar.
func (s RoleSet) Primary() Role {
	if s.Has(RoleAdmin) {
		return RoleAdmin
	}
	return RoleClient
}

func (s RoleSet) MarshalJSON() ([]byte, error) {
	tags := s.Tags()
	if tags == nil {
		tags = []string{}
	}
	return json.Marshal(tags)
}

func (s *RoleSet) UnmarshalJSON(data []byte) error {
	var tags []string
	if err := json.Unmarshal(data, &tags); err != nil {
		return fmt.Errorf("roles: %w", err)
	}
	*s = ParseRoleSet(tags)
	return nil
}
