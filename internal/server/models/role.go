package models

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Role is a coarse permission tier. The zero value is not a valid role;
// obtain roles from the constants or ParseRole.
type Role uint8

const (
	RoleStudent Role = iota + 1
	RoleStaff
	RoleAdmin
)

var roleNames = map[Role]string{
	RoleStudent: "student",
	RoleStaff:   "staff",
	RoleAdmin:   "admin",
}

// DefaultRole is assigned at registration when none is requested.
const DefaultRole = RoleStudent

// ParseRole accepts exactly "student", "staff" or "admin".
func ParseRole(s string) (Role, error) {
	for r, name := range roleNames {
		if s == name {
			return r, nil
		}
	}
	return 0, fmt.Errorf("unknown role %q", s)
}

func (r Role) String() string {
	if name, ok := roleNames[r]; ok {
		return name
	}
	return fmt.Sprintf("Role(%d)", uint8(r))
}

func (r Role) Valid() bool {
	_, ok := roleNames[r]
	return ok
}

func (r Role) MarshalText() ([]byte, error) {
	if !r.Valid() {
		return nil, fmt.Errorf("invalid role %d", uint8(r))
	}
	return []byte(r.String()), nil
}

func (r *Role) UnmarshalText(b []byte) error {
	parsed, err := ParseRole(string(b))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// RoleSet is the set of roles a handler accepts. An empty set means any
// authenticated caller is allowed.
type RoleSet []Role

var (
	AdminOnly    = RoleSet{RoleAdmin}
	AdminOrStaff = RoleSet{RoleAdmin, RoleStaff}
	StudentOnly  = RoleSet{RoleStudent}
	AnyRole      = RoleSet{}
)

// Allows reports whether r is a member of the set. An empty set allows
// every valid role.
func (s RoleSet) Allows(r Role) bool {
	if !r.Valid() {
		return false
	}
	if len(s) == 0 {
		return true
	}
	for _, want := range s {
		if want == r {
			return true
		}
	}
	return false
}

// Strings returns role names in set order, for diagnostics.
func (s RoleSet) Strings() []string {
	out := make([]string, 0, len(s))
	for _, r := range s {
		out = append(out, r.String())
	}
	return out
}

func (s RoleSet) String() string {
	return "{" + strings.Join(s.Strings(), ", ") + "}"
}

// MarshalJSON always emits an array, never null.
func (s RoleSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Strings())
}
