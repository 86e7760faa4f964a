package domain

import "errors"

// Role is a closed permission level gating access to route prefixes.
type Role string

const (
	RoleAdmin      Role = "admin"
	RoleDispatcher Role = "dispatcher"
	RoleDriver     Role = "driver"
	RoleCustomer   Role = "customer"
)

var ErrUnknownRole = errors.New("unknown role")

// ParseRole converts a raw string into a Role. Anything outside the closed
// set is rejected; callers must treat a rejection as unauthorized.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleAdmin, RoleDispatcher, RoleDriver, RoleCustomer:
		return Role(s), nil
	}
	return "", ErrUnknownRole
}

// Valid reports whether r is one of the four known roles.
func (r Role) Valid() bool {
	_, err := ParseRole(string(r))
	return err == nil
}
