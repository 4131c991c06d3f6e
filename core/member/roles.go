package member

import (
	"github.com/pkg/errors"
)

var ErrInvalidRole = errors.New("invalid role")

// Role is the closed set of roles a Member can hold.
type Role int

// Roles
const (
	RoleStudent Role = iota + 1
	RoleMentor
	RoleFloorStaff
	RoleAdmin
)

var (
	AllRoles = []Role{RoleStudent, RoleMentor, RoleFloorStaff, RoleAdmin}

	Roles = []RoleInfo{
		{Name: "Student", Value: RoleStudent},
		{Name: "Mentor", Value: RoleMentor},
		{Name: "Floor Staff", Value: RoleFloorStaff},
		{Name: "Admin", Value: RoleAdmin},
	}
)

type RoleInfo struct {
	Name  string `json:"name"`
	Value Role   `json:"value"`
}

func ParseRole(s string) (Role, error) {
	switch s {
	case "student":
		return RoleStudent, nil
	case "mentor":
		return RoleMentor, nil
	case "floor_staff":
		return RoleFloorStaff, nil
	case "admin":
		return RoleAdmin, nil
	default:
		return 0, errors.Wrapf(ErrInvalidRole, "%q", s)
	}
}

func (r Role) String() string {
	switch r {
	case RoleStudent:
		return "student"
	case RoleMentor:
		return "mentor"
	case RoleFloorStaff:
		return "floor_staff"
	case RoleAdmin:
		return "admin"
	default:
		return ""
	}
}

func (r Role) IsValid() bool {
	return r.String() != ""
}

// Priority orders roles: a member may only grant roles whose priority is lower or equal to their own.
func (r Role) Priority() int {
	switch r {
	case RoleAdmin:
		return 30
	case RoleFloorStaff:
		return 20
	case RoleMentor:
		return 11
	case RoleStudent:
		return 1
	default:
		return 0
	}
}

// RequiresScope reports whether members with this role belong to a campus floor.
func (r Role) RequiresScope() bool {
	switch r {
	case RoleStudent, RoleMentor, RoleFloorStaff:
		return true
	case RoleAdmin:
		return false
	default:
		return false
	}
}

func (r Role) MarshalText() ([]byte, error) {
	if !r.IsValid() {
		return nil, ErrInvalidRole
	}
	return []byte(r.String()), nil
}

func (r *Role) UnmarshalText(text []byte) error {
	role, err := ParseRole(string(text))
	if err != nil {
		return err
	}
	*r = role
	return nil
}
