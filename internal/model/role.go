package model

import (
	"fmt"
	"strings"
)

// Role is one of the closed set of capabilities checked on mutating calls.
type Role uint8

const (
	RoleAdmin Role = iota + 1
	RoleAttributor
	RolePauser
)

var Roles = []Role{RoleAdmin, RoleAttributor, RolePauser}

func (r Role) String() string {
	switch r {
	case RoleAdmin:
		return "admin"
	case RoleAttributor:
		return "attributor"
	case RolePauser:
		return "pauser"
	default:
		return fmt.Sprintf("role(%d)", uint8(r))
	}
}

func ParseRole(input string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(input)) {
	case "admin":
		return RoleAdmin, nil
	case "attributor":
		return RoleAttributor, nil
	case "pauser":
		return RolePauser, nil
	default:
		return 0, fmt.Errorf("unknown role: %s", input)
	}
}
