package domain

import "fmt"

type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

type Permission int

const (
	PermissionManageOwnLedger Permission = iota + 1
	PermissionListPersons
)

var rolePermissions = map[Role][]Permission{
	RoleUser:  {PermissionManageOwnLedger},
	RoleAdmin: {PermissionManageOwnLedger, PermissionListPersons},
}

// ParseRole maps a stored or claimed role name onto the closed set of roles.
func ParseRole(s string) (Role, error) {
	switch r := Role(s); r {
	case RoleUser, RoleAdmin:
		return r, nil
	default:
		return "", fmt.Errorf("ParseRole: unknown role %q", s)
	}
}

func (r Role) Can(p Permission) bool {
	for _, granted := range rolePermissions[r] {
		if granted == p {
			return true
		}
	}
	return false
}
